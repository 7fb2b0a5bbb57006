package engine

import (
	"math"
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/platform/stats"
)

type Trend string

const (
	TrendHot    Trend = "hot"
	TrendCold   Trend = "cold"
	TrendStable Trend = "stable"
)

const (
	trendRecentGames   = 3
	trendPreviousGames = 5
	volatilityLookback = 10
	formAdjustWeight   = 0.3
	formRatioFloor     = 0.7
	formRatioCeiling   = 1.4
	trendNudge         = 0.1
)

// FormAnalysis summarises a player's recent scoring. Streak counts
// consecutive latest games on the same side of the season average: positive
// above, negative below.
type FormAnalysis struct {
	EWMA          float64 `json:"ewma"`
	EWMV          float64 `json:"ewmv"`
	SeasonAverage float64 `json:"season_average"`
	FormDelta     float64 `json:"form_delta"`
	Trend         Trend   `json:"trend"`
	TrendStrength float64 `json:"trend_strength"`
	Streak        int     `json:"streak"`
	Consistency   float64 `json:"consistency"`
	Volatility    float64 `json:"volatility"`
	Window        int     `json:"window"`
	Games         int     `json:"games"`
	RecentScores  []int   `json:"recent_scores"`
}

// FormAnalyzer computes exponentially weighted form.
type FormAnalyzer struct {
	cfg Config
}

func NewFormAnalyzer(cfg Config) *FormAnalyzer {
	return &FormAnalyzer{cfg: cfg}
}

// Analyze reads the points of every counted appearance in gameweek order.
func (f *FormAnalyzer) Analyze(p player.Player) FormAnalysis {
	played := make([]player.MatchRecord, 0, len(p.History))
	for _, rec := range p.History {
		if rec.Counts(f.cfg.MinMinutes) {
			played = append(played, rec)
		}
	}
	sort.SliceStable(played, func(i, j int) bool { return played[i].Gameweek < played[j].Gameweek })

	scores := make([]float64, len(played))
	for i, rec := range played {
		scores[i] = float64(rec.TotalPoints)
	}
	return f.AnalyzeScores(scores, p.Form, p.PointsPerGame)
}

// AnalyzeScores works on a chronological score series. fallbackForm and
// fallbackAverage are used when there are no scores at all.
func (f *FormAnalyzer) AnalyzeScores(scores []float64, fallbackForm, fallbackAverage float64) FormAnalysis {
	n := len(scores)
	out := FormAnalysis{Trend: TrendStable, Games: n, Window: n}
	out.RecentScores = lastInts(scores, 5)

	if n < f.cfg.FormMinGames {
		out.Consistency = 0.5
		if n == 0 {
			out.EWMA = fallbackForm
			out.SeasonAverage = fallbackAverage
			return out
		}
		out.SeasonAverage = stats.Mean(scores)
		out.EWMA = out.SeasonAverage
		return out
	}

	out.SeasonAverage = stats.Mean(scores)
	out.Window = f.adaptiveWindow(scores)
	out.EWMA, out.EWMV = f.ewma(scores[n-out.Window:])
	out.FormDelta = out.EWMA - out.SeasonAverage
	out.Trend, out.TrendStrength = f.trend(scores)
	out.Streak = streak(scores, out.SeasonAverage)
	out.Consistency = consistency(scores)
	if out.EWMA > 0 {
		out.Volatility = math.Sqrt(out.EWMV) / out.EWMA
	}
	return out
}

// adaptiveWindow shrinks the lookback for volatile scorers.
func (f *FormAnalyzer) adaptiveWindow(scores []float64) int {
	n := len(scores)
	if n < 5 {
		return n
	}
	recent := scores
	if n > volatilityLookback {
		recent = scores[n-volatilityLookback:]
	}
	if stats.Mean(recent) <= 0 {
		return 5
	}
	cv := stats.CoefficientOfVariation(recent)
	switch {
	case cv > 1.0:
		return 4
	case cv > 0.7:
		return 5
	case cv > 0.5:
		return 7
	case cv > 0.3:
		return 10
	default:
		return min(f.cfg.FormMaxWindow, n)
	}
}

// ewma seeds both moments from the first observation.
func (f *FormAnalyzer) ewma(scores []float64) (float64, float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	alpha := f.cfg.FormAlpha
	mean, variance := scores[0], 0.0
	for _, s := range scores[1:] {
		diff := s - mean
		mean += alpha * diff
		variance = (1 - alpha) * (variance + alpha*diff*diff)
	}
	return mean, variance
}

func (f *FormAnalyzer) trend(scores []float64) (Trend, float64) {
	n := len(scores)
	if n < trendRecentGames+2 {
		return TrendStable, 0
	}
	recent := scores[n-trendRecentGames:]
	prevStart := max(0, n-trendRecentGames-trendPreviousGames)
	previous := scores[prevStart : n-trendRecentGames]

	recentAvg := stats.Mean(recent)
	previousAvg := stats.Mean(previous)
	// No baseline to compare against.
	if previousAvg <= 0 {
		return TrendStable, 0
	}

	change := (recentAvg - previousAvg) / previousAvg
	switch {
	case change > f.cfg.TrendThreshold:
		return TrendHot, min(1, change)
	case change < -f.cfg.TrendThreshold:
		return TrendCold, min(1, -change)
	default:
		return TrendStable, 0
	}
}

func streak(scores []float64, baseline float64) int {
	count := 0
	for i := len(scores) - 1; i >= 0; i-- {
		above := scores[i] >= baseline
		switch {
		case count == 0 && above:
			count = 1
		case count == 0:
			count = -1
		case count > 0 && above:
			count++
		case count < 0 && !above:
			count--
		default:
			return count
		}
	}
	return count
}

// consistency is the share of scores within one population std dev.
func consistency(scores []float64) float64 {
	if len(scores) < 3 {
		return 0.5
	}
	mean := stats.Mean(scores)
	std := stats.StdDev(scores)
	if std == 0 {
		return 1
	}
	within := 0
	for _, s := range scores {
		if math.Abs(s-mean) <= std {
			within++
		}
	}
	return float64(within) / float64(len(scores))
}

// Adjust rescales an external estimate by the form ratio.
func (a FormAnalysis) Adjust(base float64, minGames int) float64 {
	if a.Games < minGames || a.SeasonAverage <= 0 {
		return base
	}
	ratio := stats.Clamp(a.EWMA/a.SeasonAverage, formRatioFloor, formRatioCeiling)
	switch a.Trend {
	case TrendHot:
		ratio *= 1 + a.TrendStrength*trendNudge
	case TrendCold:
		ratio *= 1 - a.TrendStrength*trendNudge
	}
	return base * ((1 - formAdjustWeight) + formAdjustWeight*ratio)
}

func lastInts(scores []float64, n int) []int {
	start := max(0, len(scores)-n)
	out := make([]int, 0, len(scores)-start)
	for _, s := range scores[start:] {
		out = append(out, int(s))
	}
	return out
}
