package engine

import (
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
	"github.com/riskibarqy/fpl-predictor/internal/platform/stats"
)

// Stat names a per-appearance rate that can be blended across contexts.
type Stat string

const (
	StatGoalsPer90     Stat = "goals_per_90"
	StatAssistsPer90   Stat = "assists_per_90"
	StatSavesPer90     Stat = "saves_per_90"
	StatCleanSheetRate Stat = "clean_sheet_rate"
	StatBonus          Stat = "bonus_avg"
	StatPointsPerGame  Stat = "points_per_game"
)

var blendableStats = []Stat{
	StatGoalsPer90,
	StatAssistsPer90,
	StatSavesPer90,
	StatCleanSheetRate,
	StatBonus,
	StatPointsPerGame,
}

// Data quality labels.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// MatchAggregate summarises a set of match records.
type MatchAggregate struct {
	Games           int `json:"games"`
	TotalMinutes    int `json:"total_minutes"`
	Goals           int `json:"goals"`
	Assists         int `json:"assists"`
	Saves           int `json:"saves"`
	FullGames       int `json:"full_games"`
	CleanSheets     int `json:"clean_sheets"`
	GoalsConceded   int `json:"goals_conceded"`
	YellowCards     int `json:"yellow_cards"`
	RedCards        int `json:"red_cards"`
	OwnGoals        int `json:"own_goals"`
	PenaltiesMissed int `json:"penalties_missed"`
	PenaltiesSaved  int `json:"penalties_saved"`
	Bonus           int `json:"bonus"`
	BPS             int `json:"bps"`
	TotalPoints     int `json:"total_points"`

	GoalsPer90     float64 `json:"goals_per_90"`
	AssistsPer90   float64 `json:"assists_per_90"`
	SavesPer90     float64 `json:"saves_per_90"`
	CleanSheetRate float64 `json:"clean_sheet_rate"`
	AvgBonus       float64 `json:"avg_bonus"`
	AvgBPS         float64 `json:"avg_bps"`
	YellowRate     float64 `json:"yellow_rate"`
	RedRate        float64 `json:"red_rate"`
	PointsPerGame  float64 `json:"points_per_game"`
	AvgMinutes     float64 `json:"avg_minutes"`
}

// Aggregate counts records with at least minMinutes. Clean sheets and goals
// conceded only count appearances of at least csMinutes.
func Aggregate(records []player.MatchRecord, minMinutes, csMinutes int) MatchAggregate {
	var a MatchAggregate
	for _, rec := range records {
		if rec.Minutes < minMinutes || rec.Minutes <= 0 {
			continue
		}
		a.Games++
		a.TotalMinutes += rec.Minutes
		a.Goals += rec.Goals
		a.Assists += rec.Assists
		a.Saves += rec.Saves
		a.YellowCards += rec.YellowCards
		a.RedCards += rec.RedCards
		a.OwnGoals += rec.OwnGoals
		a.PenaltiesMissed += rec.PenaltiesMissed
		a.PenaltiesSaved += rec.PenaltiesSaved
		a.Bonus += rec.Bonus
		a.BPS += rec.BPS
		a.TotalPoints += rec.TotalPoints
		if rec.Minutes >= csMinutes {
			a.FullGames++
			a.GoalsConceded += rec.GoalsConceded
			if rec.CleanSheet {
				a.CleanSheets++
			}
		}
	}
	if a.Games == 0 {
		return a
	}

	games := float64(a.Games)
	a.GoalsPer90 = stats.Per90(float64(a.Goals), a.TotalMinutes)
	a.AssistsPer90 = stats.Per90(float64(a.Assists), a.TotalMinutes)
	a.SavesPer90 = stats.Per90(float64(a.Saves), a.TotalMinutes)
	if a.FullGames > 0 {
		a.CleanSheetRate = float64(a.CleanSheets) / float64(a.FullGames)
	}
	a.AvgBonus = float64(a.Bonus) / games
	a.AvgBPS = float64(a.BPS) / games
	a.YellowRate = float64(a.YellowCards) / games
	a.RedRate = float64(a.RedCards) / games
	a.PointsPerGame = float64(a.TotalPoints) / games
	a.AvgMinutes = float64(a.TotalMinutes) / games
	return a
}

// Value reads one blendable stat.
func (a MatchAggregate) Value(stat Stat) float64 {
	switch stat {
	case StatGoalsPer90:
		return a.GoalsPer90
	case StatAssistsPer90:
		return a.AssistsPer90
	case StatSavesPer90:
		return a.SavesPer90
	case StatCleanSheetRate:
		return a.CleanSheetRate
	case StatBonus:
		return a.AvgBonus
	case StatPointsPerGame:
		return a.PointsPerGame
	default:
		return 0
	}
}

// PlayerAggregate is everything the probability model needs about a player.
type PlayerAggregate struct {
	PlayerID     int64                     `json:"player_id"`
	Position     player.Position           `json:"position"`
	Overall      MatchAggregate            `json:"overall"`
	ByTier       map[string]MatchAggregate `json:"by_tier"`
	Recent       MatchAggregate            `json:"recent"`
	RotationRisk float64                   `json:"rotation_risk"`
	DataQuality  float64                   `json:"data_quality"`
	QualityLabel string                    `json:"quality_label"`
	LastGameweek int                       `json:"last_gameweek"`
}

// PositionMeans holds league-wide stat means per position.
type PositionMeans map[player.Position]map[Stat]float64

func (m PositionMeans) Get(pos player.Position, stat Stat) float64 {
	if byStat, ok := m[pos]; ok {
		return byStat[stat]
	}
	return 0
}

// Aggregator builds player aggregates against a fixed classifier.
type Aggregator struct {
	cfg        Config
	classifier *Classifier
}

func NewAggregator(cfg Config, classifier *Classifier) *Aggregator {
	return &Aggregator{cfg: cfg, classifier: classifier}
}

// Build aggregates p's history. History must be ordered by gameweek.
func (a *Aggregator) Build(p player.Player) PlayerAggregate {
	agg := PlayerAggregate{
		PlayerID: p.ID,
		Position: p.Position,
		Overall:  Aggregate(p.History, a.cfg.MinMinutes, a.cfg.CleanSheetMinutes),
		ByTier:   make(map[string]MatchAggregate),
	}

	byTier := make(map[string][]player.MatchRecord)
	valid := make([]player.MatchRecord, 0, len(p.History))
	for _, rec := range p.History {
		if rec.Gameweek > agg.LastGameweek {
			agg.LastGameweek = rec.Gameweek
		}
		if !rec.Counts(a.cfg.MinMinutes) {
			continue
		}
		valid = append(valid, rec)
		key := a.classifier.TierOrMidTable(rec.OpponentTeamID).Key()
		byTier[key] = append(byTier[key], rec)
	}
	for key, records := range byTier {
		agg.ByTier[key] = Aggregate(records, a.cfg.MinMinutes, a.cfg.CleanSheetMinutes)
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Gameweek > valid[j].Gameweek })
	if len(valid) > a.cfg.RecentGames {
		valid = valid[:a.cfg.RecentGames]
	}
	agg.Recent = Aggregate(valid, a.cfg.MinMinutes, a.cfg.CleanSheetMinutes)

	agg.RotationRisk = a.rotationRisk(p.History)
	agg.DataQuality, agg.QualityLabel = a.dataQuality(p.History)
	return agg
}

// rotationRisk looks at the most recent window of all gameweeks, including
// those the player missed entirely.
func (a *Aggregator) rotationRisk(history []player.MatchRecord) float64 {
	if len(history) == 0 {
		return 0.5
	}
	recent := history
	if len(recent) > a.cfg.RotationWindow {
		recent = recent[len(recent)-a.cfg.RotationWindow:]
	}
	minutes := make([]float64, len(recent))
	for i, rec := range recent {
		minutes[i] = float64(rec.Minutes)
	}
	avg := stats.Mean(minutes)
	if avg < 30 {
		return 0.9
	}
	if len(minutes) > 1 {
		return min(stats.SampleStdDev(minutes)/avg, 1)
	}
	return 0.3
}

func (a *Aggregator) dataQuality(history []player.MatchRecord) (float64, string) {
	games := 0
	totalMinutes := 0
	maxGameweek := 0
	for _, rec := range history {
		if !rec.Counts(a.cfg.MinMinutes) {
			continue
		}
		games++
		totalMinutes += rec.Minutes
		if rec.Gameweek > maxGameweek {
			maxGameweek = rec.Gameweek
		}
	}

	score := 0.0
	switch {
	case games >= 15:
		score += 0.5
	case games >= 10:
		score += 0.4
	case games >= 5:
		score += 0.3
	case games >= 2:
		score += 0.15
	}

	if games >= 3 {
		avg := float64(totalMinutes) / float64(games)
		switch {
		case avg >= 70:
			score += 0.3
		case avg >= 50:
			score += 0.2
		case avg >= 30:
			score += 0.1
		}
	}

	if games > 0 {
		switch {
		case maxGameweek >= a.cfg.RecentGameweekHigh:
			score += 0.2
		case maxGameweek >= a.cfg.RecentGameweekMid:
			score += 0.1
		}
	}

	score = min(score, 1)
	return score, qualityLabel(score)
}

func qualityLabel(score float64) string {
	switch {
	case score >= 0.7:
		return QualityHigh
	case score >= 0.4:
		return QualityMedium
	default:
		return QualityLow
	}
}

// WeightedStat blends the tier-specific value with the overall one, then
// with recent form, then shrinks toward the position mean when the sample
// is small. A zero tier means no tier context.
func (a *Aggregator) WeightedStat(agg PlayerAggregate, t tier.Tier, stat Stat, positionMean float64) float64 {
	overall := agg.Overall.Value(stat)
	overallGames := agg.Overall.Games

	tierValue, tierGames := overall, 0
	if !t.IsZero() {
		if byTier, ok := agg.ByTier[t.Key()]; ok {
			tierValue, tierGames = byTier.Value(stat), byTier.Games
		}
	}

	var blended float64
	switch {
	case tierGames <= 0:
		blended = overall
	case overallGames <= 0:
		blended = tierValue
	default:
		saturation := min(float64(tierGames)/float64(a.cfg.TierSaturationGames), 1)
		blended = stats.Blend(tierValue, overall, a.cfg.TierWeight*saturation)
	}

	recentGames := agg.Recent.Games
	if recentGames > 0 {
		saturation := min(float64(recentGames)/float64(a.cfg.RecentGames), 1)
		blended = stats.Blend(agg.Recent.Value(stat), blended, a.cfg.FormWeight*saturation)
	}

	if positionMean > 0 {
		blended = stats.ShrinkTowardMean(blended, positionMean, overallGames, a.cfg.ShrinkageHorizon, a.cfg.RegressionFactor)
	}
	return blended
}

// ComputePositionMeans averages each stat over players with enough games.
func ComputePositionMeans(aggregates []PlayerAggregate, minGames int) PositionMeans {
	sums := make(map[player.Position]map[Stat]float64)
	counts := make(map[player.Position]int)
	for _, agg := range aggregates {
		if agg.Overall.Games < minGames {
			continue
		}
		byStat, ok := sums[agg.Position]
		if !ok {
			byStat = make(map[Stat]float64, len(blendableStats))
			sums[agg.Position] = byStat
		}
		for _, stat := range blendableStats {
			byStat[stat] += agg.Overall.Value(stat)
		}
		counts[agg.Position]++
	}

	out := make(PositionMeans, len(sums))
	for pos, byStat := range sums {
		n := float64(counts[pos])
		means := make(map[Stat]float64, len(byStat))
		for stat, total := range byStat {
			if stat == StatSavesPer90 && pos != player.PositionGoalkeeper {
				continue
			}
			means[stat] = total / n
		}
		out[pos] = means
	}
	return out
}
