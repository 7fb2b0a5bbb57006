package engine

import (
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

const (
	upsidePercentile   = 0.9
	floorPercentile    = 0.1
	differentialsPool  = 100
	DefaultPerPosition = 5
)

// FreeAgentCandidate is an unowned player with a prepared distribution.
type FreeAgentCandidate struct {
	Member       lineup.SquadMember
	Distribution distribution.ScoreDistribution
	Form         FormAnalysis
}

// FreeAgent is one ranked pickup option.
type FreeAgent struct {
	lineup.SquadMember
	ExpectedPoints float64               `json:"expected_points"`
	Upside         float64               `json:"upside"`
	Floor          float64               `json:"floor"`
	CI80           distribution.Interval `json:"ci_80"`
	FormTrend      string                `json:"form_trend"`
	FormEWMA       float64               `json:"form_ewma"`
	Quality        float64               `json:"quality"`
	SampleSize     int                   `json:"sample_size"`
	OverallRank    int                   `json:"overall_rank"`
	PositionRank   int                   `json:"position_rank"`
}

// RankFreeAgents drops owned players and, when position is non-empty, other
// positions, then orders the rest by expected points. topN <= 0 keeps all.
func RankFreeAgents(candidates []FreeAgentCandidate, owned map[int64]struct{}, position player.Position, topN int) []FreeAgent {
	out := make([]FreeAgent, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := owned[c.Member.PlayerID]; ok {
			continue
		}
		if position != "" && c.Member.Position != position {
			continue
		}
		out = append(out, FreeAgent{
			SquadMember:    c.Member,
			ExpectedPoints: c.Distribution.Mean,
			Upside:         c.Distribution.Upside(upsidePercentile),
			Floor:          c.Distribution.Downside(floorPercentile),
			CI80:           c.Distribution.CI80,
			FormTrend:      string(c.Form.Trend),
			FormEWMA:       c.Form.EWMA,
			Quality:        c.Distribution.Quality,
			SampleSize:     c.Distribution.SampleSize,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExpectedPoints != out[j].ExpectedPoints {
			return out[i].ExpectedPoints > out[j].ExpectedPoints
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	byPosition := make(map[player.Position]int, len(player.OrderedPositions))
	for i := range out {
		out[i].OverallRank = i + 1
		byPosition[out[i].Position]++
		out[i].PositionRank = byPosition[out[i].Position]
	}

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// BestByPosition keeps the first perPosition entries of each position from
// an already ranked list.
func BestByPosition(ranked []FreeAgent, perPosition int) map[player.Position][]FreeAgent {
	if perPosition <= 0 {
		perPosition = DefaultPerPosition
	}
	out := make(map[player.Position][]FreeAgent, len(player.OrderedPositions))
	for _, fa := range ranked {
		if len(out[fa.Position]) < perPosition {
			out[fa.Position] = append(out[fa.Position], fa)
		}
	}
	return out
}

// Differentials reorders the strongest options by upside.
func Differentials(ranked []FreeAgent, topN int) []FreeAgent {
	pool := ranked
	if len(pool) > differentialsPool {
		pool = pool[:differentialsPool]
	}
	out := append([]FreeAgent(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Upside > out[j].Upside })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
