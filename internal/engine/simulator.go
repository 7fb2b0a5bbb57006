package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/platform/stats"
)

// fallbackTrialScore is sampled for squad members without a distribution.
const fallbackTrialScore = 2

var ErrNoCompletedTrials = errors.New("simulation completed no trials")

// SimulationEntry is one squad member with its score distribution. Form is
// optional and only decorates the output.
type SimulationEntry struct {
	Member       lineup.SquadMember
	Distribution *distribution.ScoreDistribution
	Form         *FormAnalysis
}

type SimulationInput struct {
	RunID  string
	Squad  []SimulationEntry
	Trials int
	// Formation pins every trial to one "D-M-F" shape when set.
	Formation string
}

// Simulator samples whole-squad outcomes and tallies which lineups win.
type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

type trialTally struct {
	selected  []int
	captained []int
	totals    []float64
	discarded int
}

// Run executes the trials across a worker pool. Cancellation is observed
// between trials; a cancelled run returns the trials that finished with
// Cancelled set.
func (s *Simulator) Run(ctx context.Context, in SimulationInput) (lineup.Recommendation, error) {
	bounds := s.cfg.Bounds
	if len(in.Squad) < bounds.Size {
		return lineup.Recommendation{}, fmt.Errorf("%w: squad has %d players, lineup needs %d", lineup.ErrInsufficientPlayers, len(in.Squad), bounds.Size)
	}

	formations := bounds.Formations()
	if in.Formation != "" {
		f, err := bounds.ParseFormation(in.Formation)
		if err != nil {
			return lineup.Recommendation{}, err
		}
		formations = []lineup.Formation{f}
	}

	positions := make([]player.Position, len(in.Squad))
	dists := make([]distribution.ScoreDistribution, len(in.Squad))
	for i, e := range in.Squad {
		positions[i] = e.Member.Position
		if e.Distribution != nil {
			dists[i] = *e.Distribution
		} else {
			dists[i] = distribution.Point(fallbackTrialScore)
		}
	}
	if !formationFits(formations, positions) {
		return lineup.Recommendation{}, fmt.Errorf("%w: no allowed formation fits the squad", lineup.ErrInsufficientPlayers)
	}

	trials := in.Trials
	if trials <= 0 {
		trials = s.cfg.DefaultTrials
	}
	trials = min(trials, s.cfg.MaxTrials)

	workerCount := max(min(s.cfg.SimulationWorkers, trials), 1)
	seed := s.cfg.SimulationSeed
	if seed == 0 {
		seed = rand.Uint64()
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return lineup.Recommendation{}, fmt.Errorf("create simulation pool: %w", err)
	}
	defer pool.Release()

	results := make(chan trialTally, workerCount)
	var workers sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		count := trials / workerCount
		if w < trials%workerCount {
			count++
		}
		rng := rand.New(rand.NewPCG(seed, uint64(w)))
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- runTrials(ctx, rng, count, positions, dists, formations)
		}); err != nil {
			workers.Done()
			return lineup.Recommendation{}, fmt.Errorf("submit simulation worker: %w", err)
		}
	}
	workers.Wait()
	close(results)

	merged := trialTally{
		selected:  make([]int, len(in.Squad)),
		captained: make([]int, len(in.Squad)),
	}
	for tally := range results {
		for i := range merged.selected {
			merged.selected[i] += tally.selected[i]
			merged.captained[i] += tally.captained[i]
		}
		merged.totals = append(merged.totals, tally.totals...)
		merged.discarded += tally.discarded
	}

	// Only skipped trials make a run partial. A context cancelled after the
	// last trial finished leaves a complete run.
	cancelled := len(merged.totals)+merged.discarded < trials
	if len(merged.totals) == 0 {
		if err := ctx.Err(); cancelled && err != nil {
			return lineup.Recommendation{}, err
		}
		return lineup.Recommendation{}, fmt.Errorf("%w: %d trials discarded", ErrNoCompletedTrials, merged.discarded)
	}

	rec, err := summarise(in, merged, bounds)
	if err != nil {
		return lineup.Recommendation{}, err
	}
	rec.TrialsRequested = trials
	rec.Cancelled = cancelled
	return rec, nil
}

func formationFits(formations []lineup.Formation, positions []player.Position) bool {
	scores := make([]float64, len(positions))
	best, _ := bestFormation(formations, rankByPosition(positions, scores), scores)
	return best >= 0
}

// runTrials is one worker's share. It owns rng and its tallies.
func runTrials(ctx context.Context, rng *rand.Rand, count int, positions []player.Position, dists []distribution.ScoreDistribution, formations []lineup.Formation) trialTally {
	n := len(positions)
	tally := trialTally{
		selected:  make([]int, n),
		captained: make([]int, n),
		totals:    make([]float64, 0, count),
	}
	scores := make([]float64, n)

trials:
	for t := 0; t < count; t++ {
		if ctx.Err() != nil {
			break
		}
		for i := range dists {
			score, err := dists[i].Sample(rng.Float64())
			if err != nil {
				tally.discarded++
				continue trials
			}
			scores[i] = float64(score)
		}

		ranked := rankByPosition(positions, scores)
		best, total := bestFormation(formations, ranked, scores)
		if best < 0 {
			tally.discarded++
			continue
		}

		xi := make([]int, 0, formations[best].Total())
		for _, pos := range player.OrderedPositions {
			xi = append(xi, ranked[pos][:formations[best].Count(pos)]...)
		}
		sort.Ints(xi)

		captain := xi[0]
		for _, idx := range xi[1:] {
			if scores[idx] > scores[captain] {
				captain = idx
			}
		}
		for _, idx := range xi {
			tally.selected[idx]++
		}
		tally.captained[captain]++
		tally.totals = append(tally.totals, total+scores[captain])
	}
	return tally
}

func summarise(in SimulationInput, tally trialTally, bounds lineup.Bounds) (lineup.Recommendation, error) {
	runs := float64(len(tally.totals))
	rates := make([]lineup.PlayerRate, len(in.Squad))
	positions := make([]player.Position, len(in.Squad))
	selection := make([]float64, len(in.Squad))
	for i, e := range in.Squad {
		rate := lineup.PlayerRate{
			SquadMember:   e.Member,
			SelectionRate: float64(tally.selected[i]) / runs,
			CaptainRate:   float64(tally.captained[i]) / runs,
		}
		if e.Distribution != nil {
			rate.ExpectedPoints = e.Distribution.Mean
			rate.CI80 = e.Distribution.CI80
		} else {
			rate.ExpectedPoints = fallbackTrialScore
			rate.CI80 = distribution.Interval{Low: fallbackTrialScore, High: fallbackTrialScore}
		}
		if e.Form != nil {
			rate.FormTrend = string(e.Form.Trend)
			rate.FormEWMA = e.Form.EWMA
		}
		rates[i] = rate
		positions[i] = e.Member.Position
		selection[i] = rate.SelectionRate
	}

	xi, formation, err := greedyLineup(positions, selection, bounds)
	if err != nil {
		return lineup.Recommendation{}, err
	}

	captains := make([]int, len(in.Squad))
	for i := range captains {
		captains[i] = i
	}
	sort.SliceStable(captains, func(a, b int) bool {
		return tally.captained[captains[a]] > tally.captained[captains[b]]
	})

	sorted := append([]float64(nil), tally.totals...)
	sort.Float64s(sorted)

	rec := lineup.Recommendation{
		RunID:          in.RunID,
		Formation:      formation.String(),
		CaptainID:      in.Squad[captains[0]].Member.PlayerID,
		ViceCaptainID:  in.Squad[captains[1]].Member.PlayerID,
		ExpectedPoints: stats.Mean(tally.totals),
		StdDev:         stats.StdDev(tally.totals),
		Interval80: distribution.Interval{
			Low:  stats.Percentile(sorted, 0.1),
			High: stats.Percentile(sorted, 0.9),
		},
		TrialsRun:       len(tally.totals),
		TrialsDiscarded: tally.discarded,
		SquadSize:       len(in.Squad),
	}
	for _, idx := range xi {
		rec.StartingXI = append(rec.StartingXI, in.Squad[idx].Member.PlayerID)
	}

	sort.SliceStable(rates, func(a, b int) bool { return rates[a].SelectionRate > rates[b].SelectionRate })
	rec.Players = rates
	return rec, nil
}
