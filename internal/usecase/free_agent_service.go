package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// FreeAgentQuery filters the pickup pool. Owned players are excluded;
// Position may be empty; TopN <= 0 returns every match.
type FreeAgentQuery struct {
	Owned    []int64
	Position player.Position
	TopN     int
}

type FreeAgentService struct {
	snapshots     *SnapshotService
	distributions *DistributionService
	logger        *logging.Logger
}

func NewFreeAgentService(snapshots *SnapshotService, distributions *DistributionService, logger *logging.Logger) *FreeAgentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FreeAgentService{
		snapshots:     snapshots,
		distributions: distributions,
		logger:        logger.Named("freeagent"),
	}
}

// Rank orders unowned players by expected points for their next fixture.
func (s *FreeAgentService) Rank(ctx context.Context, query FreeAgentQuery) ([]engine.FreeAgent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FreeAgentService.Rank", attribute.String("position", string(query.Position)))
	defer span.End()

	if query.Position != "" {
		if _, ok := player.AllPositions[query.Position]; !ok {
			return nil, fmt.Errorf("%w: unknown position %q", ErrInvalidInput, query.Position)
		}
	}
	owned := make(map[int64]struct{}, len(query.Owned))
	for _, id := range query.Owned {
		owned[id] = struct{}{}
	}

	candidates, err := s.candidates(ctx, owned, query.Position)
	if err != nil {
		return nil, err
	}
	return engine.RankFreeAgents(candidates, owned, query.Position, query.TopN), nil
}

// BestByPosition returns the top perPosition free agents of every position.
func (s *FreeAgentService) BestByPosition(ctx context.Context, owned []int64, perPosition int) (map[player.Position][]engine.FreeAgent, error) {
	if perPosition <= 0 {
		perPosition = engine.DefaultPerPosition
	}
	ranked, err := s.Rank(ctx, FreeAgentQuery{Owned: owned})
	if err != nil {
		return nil, err
	}
	return engine.BestByPosition(ranked, perPosition), nil
}

// Differentials returns high-upside picks from the strongest part of the
// pool, ordered by upside.
func (s *FreeAgentService) Differentials(ctx context.Context, owned []int64, topN int) ([]engine.FreeAgent, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: top_n must be > 0", ErrInvalidInput)
	}
	ranked, err := s.Rank(ctx, FreeAgentQuery{Owned: owned})
	if err != nil {
		return nil, err
	}
	return engine.Differentials(ranked, topN), nil
}

func (s *FreeAgentService) candidates(ctx context.Context, owned map[int64]struct{}, position player.Position) ([]engine.FreeAgentCandidate, error) {
	st, err := s.snapshots.load()
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, p := range st.snap.Players() {
		if _, skip := owned[p.ID]; skip {
			continue
		}
		if position != "" && p.Position != position {
			continue
		}
		ids = append(ids, p.ID)
	}

	dists, err := s.distributions.buildMany(ctx, st, ids, nil)
	if err != nil {
		return nil, fmt.Errorf("build free agent distributions: %w", err)
	}

	out := make([]engine.FreeAgentCandidate, 0, len(ids))
	for _, id := range ids {
		member, _ := st.snap.Member(id)
		form, _ := st.snap.Form(id)
		out = append(out, engine.FreeAgentCandidate{
			Member:       member,
			Distribution: dists[id].Distribution,
			Form:         form,
		})
	}
	s.logger.DebugContext(ctx, "free agent pool built", "candidates", len(out), "snapshot_version", st.snap.Version())
	return out, nil
}
