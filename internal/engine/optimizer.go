package engine

import (
	"fmt"
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
)

// rankByPosition groups indexes by position, best score first. Ties keep
// input order.
func rankByPosition(positions []player.Position, scores []float64) map[player.Position][]int {
	out := make(map[player.Position][]int, len(player.OrderedPositions))
	for i, pos := range positions {
		out[pos] = append(out[pos], i)
	}
	for _, idx := range out {
		sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	}
	return out
}

// greedyLineup fills every position minimum, then the remaining slots from
// the best leftovers while respecting the maximums. The returned indexes are
// grouped by position, best first.
func greedyLineup(positions []player.Position, scores []float64, bounds lineup.Bounds) ([]int, lineup.Formation, error) {
	ranked := rankByPosition(positions, scores)
	counts := make(map[player.Position]int, len(player.OrderedPositions))
	var leftovers []int
	for _, pos := range player.OrderedPositions {
		r := bounds.For(pos)
		available := ranked[pos]
		if len(available) < r.Min {
			return nil, lineup.Formation{}, fmt.Errorf("%w: need %d %s, have %d", lineup.ErrInsufficientPlayers, r.Min, pos, len(available))
		}
		counts[pos] = r.Min
		leftovers = append(leftovers, available[r.Min:]...)
	}

	sort.SliceStable(leftovers, func(a, b int) bool {
		if scores[leftovers[a]] != scores[leftovers[b]] {
			return scores[leftovers[a]] > scores[leftovers[b]]
		}
		return leftovers[a] < leftovers[b]
	})

	filled := 0
	for _, pos := range player.OrderedPositions {
		filled += counts[pos]
	}
	for _, idx := range leftovers {
		if filled == bounds.Size {
			break
		}
		pos := positions[idx]
		if counts[pos] >= bounds.For(pos).Max {
			continue
		}
		counts[pos]++
		filled++
	}
	if filled < bounds.Size {
		return nil, lineup.Formation{}, fmt.Errorf("%w: only %d of %d slots can be filled", lineup.ErrInsufficientPlayers, filled, bounds.Size)
	}

	formation := lineup.Formation{
		Goalkeepers: counts[player.PositionGoalkeeper],
		Defenders:   counts[player.PositionDefender],
		Midfielders: counts[player.PositionMidfielder],
		Forwards:    counts[player.PositionForward],
	}
	selected := make([]int, 0, bounds.Size)
	for _, pos := range player.OrderedPositions {
		selected = append(selected, ranked[pos][:counts[pos]]...)
	}
	return selected, formation, nil
}

// OptimalLineup splits predictions into the best legal eleven and a bench
// ordered by expected points.
func OptimalLineup(preds []prediction.Prediction, bounds lineup.Bounds) (prediction.SquadPrediction, error) {
	positions := make([]player.Position, len(preds))
	scores := make([]float64, len(preds))
	for i, p := range preds {
		positions[i] = p.Position
		scores[i] = p.ExpectedPoints
	}

	selected, formation, err := greedyLineup(positions, scores, bounds)
	if err != nil {
		return prediction.SquadPrediction{}, err
	}

	out := prediction.SquadPrediction{
		Predictions: preds,
		Starting:    make([]prediction.Prediction, 0, len(selected)),
		Formation:   formation.String(),
	}
	inXI := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		inXI[idx] = struct{}{}
		out.Starting = append(out.Starting, preds[idx])
		out.TotalExpected += preds[idx].ExpectedPoints
	}
	for i, p := range preds {
		if _, ok := inXI[i]; !ok {
			out.Bench = append(out.Bench, p)
		}
	}
	sort.SliceStable(out.Bench, func(a, b int) bool {
		return out.Bench[a].ExpectedPoints > out.Bench[b].ExpectedPoints
	})
	return out, nil
}

// bestFormation evaluates every candidate shape on pre-ranked scores and
// returns the index of the highest-scoring one. Earlier shapes win ties.
func bestFormation(formations []lineup.Formation, ranked map[player.Position][]int, scores []float64) (int, float64) {
	best, bestTotal := -1, 0.0
	for i, f := range formations {
		total := 0.0
		feasible := true
		for _, pos := range player.OrderedPositions {
			k := f.Count(pos)
			if len(ranked[pos]) < k {
				feasible = false
				break
			}
			for _, idx := range ranked[pos][:k] {
				total += scores[idx]
			}
		}
		if !feasible {
			continue
		}
		if best < 0 || total > bestTotal {
			best, bestTotal = i, total
		}
	}
	return best, bestTotal
}
