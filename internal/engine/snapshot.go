package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
)

var ErrUnknownPlayer = errors.New("unknown player")

// SnapshotInput is the raw data one snapshot is built from. Records are
// merged into each player's History by PlayerID. Standings override the
// team positions when present.
type SnapshotInput struct {
	Version   string
	Teams     []team.Team
	Players   []player.Player
	Records   []player.MatchRecord
	Standings map[int64]int
}

// Snapshot is an immutable view of one data load with every derived index
// precomputed. All methods are safe for concurrent use.
type Snapshot struct {
	version string
	builtAt time.Time
	cfg     Config
	input   SnapshotInput

	teams      map[int64]team.Team
	players    map[int64]player.Player
	playerIDs  []int64
	aggregates map[int64]PlayerAggregate
	forms      map[int64]FormAnalysis
	means      PositionMeans
	dropped    int

	classifier   *Classifier
	aggregator   *Aggregator
	model        *ProbabilityModel
	points       *PointsCalculator
	distribution *DistributionBuilder
}

// NewSnapshot validates cfg and precomputes classifier, aggregates, form and
// position means. Invalid players and records are dropped and counted.
func NewSnapshot(cfg Config, in SnapshotInput) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	s := &Snapshot{
		version:    in.Version,
		builtAt:    time.Now().UTC(),
		cfg:        cfg,
		input:      in,
		teams:      make(map[int64]team.Team, len(in.Teams)),
		players:    make(map[int64]player.Player, len(in.Players)),
		aggregates: make(map[int64]PlayerAggregate, len(in.Players)),
		forms:      make(map[int64]FormAnalysis, len(in.Players)),
	}
	if s.version == "" {
		s.version = fmt.Sprintf("%d", s.builtAt.UnixNano())
	}

	positions := make(map[int64]int, len(in.Teams))
	for _, t := range in.Teams {
		if err := t.Validate(); err != nil {
			s.dropped++
			continue
		}
		s.teams[t.ID] = t
		if t.Position > 0 {
			positions[t.ID] = t.Position
		}
	}
	for id, pos := range in.Standings {
		if pos > 0 {
			positions[id] = pos
		}
	}
	if len(positions) == 0 {
		positions = provisionalPositions(in.Teams)
	}

	s.loadPlayers(in)
	all := make([]player.Player, 0, len(s.playerIDs))
	for _, id := range s.playerIDs {
		all = append(all, s.players[id])
	}

	s.classifier = NewClassifier(cfg.Tiers, positions, all, cfg.MinMinutes)
	s.aggregator = NewAggregator(cfg, s.classifier)
	forms := NewFormAnalyzer(cfg)

	aggregates := make([]PlayerAggregate, 0, len(all))
	for _, p := range all {
		agg := s.aggregator.Build(p)
		s.aggregates[p.ID] = agg
		s.forms[p.ID] = forms.Analyze(p)
		aggregates = append(aggregates, agg)
	}
	s.means = ComputePositionMeans(aggregates, cfg.PositionMeanMinGames)

	s.model = NewProbabilityModel(s.aggregator, s.means, s.classifier.League())
	s.points = NewPointsCalculator(cfg.Rules)
	s.distribution = NewDistributionBuilder(cfg, s.classifier)
	return s, nil
}

func (s *Snapshot) loadPlayers(in SnapshotInput) {
	records := make(map[int64][]player.MatchRecord)
	for _, rec := range in.Records {
		if err := rec.Validate(); err != nil {
			s.dropped++
			continue
		}
		records[rec.PlayerID] = append(records[rec.PlayerID], rec)
	}

	for _, p := range in.Players {
		if err := p.Validate(); err != nil {
			s.dropped++
			continue
		}
		history := make([]player.MatchRecord, 0, len(p.History)+len(records[p.ID]))
		history = append(history, p.History...)
		history = append(history, records[p.ID]...)
		sort.SliceStable(history, func(i, j int) bool { return history[i].Gameweek < history[j].Gameweek })
		p.History = history

		if _, exists := s.players[p.ID]; !exists {
			s.playerIDs = append(s.playerIDs, p.ID)
		}
		s.players[p.ID] = p
	}
	sort.Slice(s.playerIDs, func(i, j int) bool { return s.playerIDs[i] < s.playerIDs[j] })
}

// provisionalPositions orders teams by strength rating when no table is
// known yet, as at the start of a season.
func provisionalPositions(teams []team.Team) map[int64]int {
	ranked := make([]team.Team, 0, len(teams))
	for _, t := range teams {
		if t.ID > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Strength != ranked[j].Strength {
			return ranked[i].Strength > ranked[j].Strength
		}
		return ranked[i].ID < ranked[j].ID
	})
	out := make(map[int64]int, len(ranked))
	for i, t := range ranked {
		out[t.ID] = i + 1
	}
	return out
}

// WithStandings rebuilds the derived indices against new table positions.
// The receiver is left untouched.
func (s *Snapshot) WithStandings(positions map[int64]int, version string) (*Snapshot, error) {
	in := s.input
	in.Version = version
	in.Standings = positions
	return NewSnapshot(s.cfg, in)
}

// Version identifies the data load; derived caches key on it.
func (s *Snapshot) Version() string {
	return s.version
}

func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

func (s *Snapshot) Config() Config {
	return s.cfg
}

func (s *Snapshot) Classifier() *Classifier {
	return s.classifier
}

func (s *Snapshot) PositionMeans() PositionMeans {
	return s.means
}

// Dropped counts invalid teams, players and records skipped at build time.
func (s *Snapshot) Dropped() int {
	return s.dropped
}

func (s *Snapshot) PlayerCount() int {
	return len(s.playerIDs)
}

func (s *Snapshot) Team(id int64) (team.Team, bool) {
	t, ok := s.teams[id]
	return t, ok
}

func (s *Snapshot) Player(id int64) (player.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

// Players returns every player ordered by id.
func (s *Snapshot) Players() []player.Player {
	out := make([]player.Player, 0, len(s.playerIDs))
	for _, id := range s.playerIDs {
		out = append(out, s.players[id])
	}
	return out
}

func (s *Snapshot) Aggregate(playerID int64) (PlayerAggregate, bool) {
	agg, ok := s.aggregates[playerID]
	return agg, ok
}

func (s *Snapshot) Form(playerID int64) (FormAnalysis, bool) {
	f, ok := s.forms[playerID]
	return f, ok
}

// Member is the lineup identity of a known player.
func (s *Snapshot) Member(playerID int64) (lineup.SquadMember, bool) {
	p, ok := s.players[playerID]
	if !ok {
		return lineup.SquadMember{}, false
	}
	return lineup.SquadMember{PlayerID: p.ID, Name: p.DisplayName(), TeamID: p.TeamID, Position: p.Position}, true
}

// ResolveFixture describes the opponent and reports whether it is a known
// team. Unknown opponents are treated as mid-table.
func (s *Snapshot) ResolveFixture(fx prediction.FixtureContext) (prediction.Fixture, FixtureInput, bool) {
	t, known := s.classifier.TierOf(fx.OpponentTeamID)
	if !known {
		t = s.classifier.Tiers().MidTable()
	}
	out := prediction.Fixture{
		OpponentTeamID: fx.OpponentTeamID,
		OpponentTier:   t,
		IsHome:         fx.IsHome,
		Difficulty:     s.classifier.Difficulty(fx.OpponentTeamID),
	}
	if pos, ok := s.classifier.Position(fx.OpponentTeamID); ok {
		out.OpponentPosition = pos
	}
	if opp, ok := s.teams[fx.OpponentTeamID]; ok {
		out.OpponentName = opp.Name
		out.OpponentShort = opp.ShortName
	}
	input := FixtureInput{OpponentTier: t, Strength: s.classifier.Strength(t), IsHome: fx.IsHome}
	return out, input, known
}

// Predict forecasts one player's expected points. A nil fixture yields the
// blank prediction.
func (s *Snapshot) Predict(playerID int64, fx *prediction.FixtureContext) (prediction.Prediction, error) {
	p, ok := s.players[playerID]
	if !ok {
		return prediction.Prediction{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	agg := s.aggregates[playerID]
	if fx == nil {
		return blankPrediction(p, agg), nil
	}

	fixture, input, known := s.ResolveFixture(*fx)
	probs, err := s.model.Calculate(p, agg, input)
	if err != nil {
		return prediction.Prediction{}, err
	}
	breakdown := s.points.Breakdown(p.Position, probs)
	total := breakdown.Total()
	form := s.forms[playerID]

	warnings := predictionWarnings(p, probs, agg)
	if !known {
		warnings = append(warnings, unknownOpponentWarning(fx.OpponentTeamID))
	}

	return prediction.Prediction{
		PlayerID:           p.ID,
		PlayerName:         p.DisplayName(),
		TeamID:             p.TeamID,
		Position:           p.Position,
		Fixture:            &fixture,
		Probabilities:      probs,
		Breakdown:          breakdown,
		ExpectedPoints:     total,
		FormAdjustedPoints: form.Adjust(total, s.cfg.FormMinGames),
		FormTrend:          string(form.Trend),
		Confidence:         confidenceFor(agg),
		SampleSize:         agg.Overall.Games,
		DataQuality:        agg.QualityLabel,
		Warnings:           warnings,
	}, nil
}

// PredictSquad predicts every listed player and picks the optimal eleven.
// Players missing from fixtures get the blank prediction.
func (s *Snapshot) PredictSquad(playerIDs []int64, fixtures map[int64]prediction.FixtureContext) (prediction.SquadPrediction, error) {
	preds := make([]prediction.Prediction, 0, len(playerIDs))
	for _, id := range playerIDs {
		var fx *prediction.FixtureContext
		if f, ok := fixtures[id]; ok {
			fx = &f
		}
		pred, err := s.Predict(id, fx)
		if err != nil {
			return prediction.SquadPrediction{}, err
		}
		preds = append(preds, pred)
	}
	return OptimalLineup(preds, s.cfg.Bounds)
}

// Distribution builds the score distribution for one player. A nil fixture
// gives the unconditional distribution.
func (s *Snapshot) Distribution(playerID int64, fx *prediction.FixtureContext) (distribution.ScoreDistribution, error) {
	p, ok := s.players[playerID]
	if !ok {
		return distribution.ScoreDistribution{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	var ctx *DistributionContext
	if fx != nil {
		_, input, _ := s.ResolveFixture(*fx)
		ctx = &DistributionContext{OpponentTier: input.OpponentTier, IsHome: fx.IsHome}
	}
	return s.distribution.Build(p, ctx)
}
