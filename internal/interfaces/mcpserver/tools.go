package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

type FixtureArgs struct {
	PlayerID       int64 `json:"player_id" jsonschema:"Squad member the fixture applies to"`
	OpponentTeamID int64 `json:"opponent_team_id" jsonschema:"Opponent team id"`
	IsHome         bool  `json:"is_home,omitempty" jsonschema:"True when the player's team is at home"`
}

type PlayerArgs struct {
	PlayerID       int64 `json:"player_id" jsonschema:"FPL element id (required)"`
	OpponentTeamID int64 `json:"opponent_team_id,omitempty" jsonschema:"Opponent team id (0 = next scheduled fixture)"`
	IsHome         bool  `json:"is_home,omitempty" jsonschema:"Home fixture flag, used with opponent_team_id"`
}

type SquadArgs struct {
	PlayerIDs []int64       `json:"player_ids" jsonschema:"11 to 15 unique player ids"`
	Fixtures  []FixtureArgs `json:"fixtures,omitempty" jsonschema:"Per-player fixture overrides"`
}

type SimulationArgs struct {
	PlayerIDs []int64       `json:"player_ids" jsonschema:"11 to 15 unique player ids"`
	Fixtures  []FixtureArgs `json:"fixtures,omitempty" jsonschema:"Per-player fixture overrides"`
	Trials    int           `json:"trials,omitempty" jsonschema:"Monte Carlo trials (0 = server default)"`
	Formation string        `json:"formation,omitempty" jsonschema:"Pin a D-M-F formation such as 4-4-2"`
}

type FreeAgentArgs struct {
	Owned         []int64 `json:"owned,omitempty" jsonschema:"Player ids already owned in the league"`
	Position      string  `json:"position,omitempty" jsonschema:"GK|DEF|MID|FWD (empty = all)"`
	TopN          int     `json:"top_n,omitempty" jsonschema:"Maximum results (0 = all, default 10 for differentials)"`
	PerPosition   int     `json:"per_position,omitempty" jsonschema:"Group the best N per position instead of one ranking"`
	Differentials bool    `json:"differentials,omitempty" jsonschema:"Return high-upside differential picks"`
}

type SnapshotArgs struct{}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "predict_player",
		Description: "Expected FPL points, event probabilities and points breakdown for one player",
	}, s.predictPlayer)

	addTool(s, &mcp.Tool{
		Name:        "predict_squad",
		Description: "Predict a 11-15 player squad and pick the optimal starting eleven",
	}, s.predictSquad)

	addTool(s, &mcp.Tool{
		Name:        "score_distribution",
		Description: "Discrete points distribution with percentiles and confidence intervals for one player",
	}, s.scoreDistribution)

	addTool(s, &mcp.Tool{
		Name:        "simulate_lineup",
		Description: "Monte Carlo lineup simulation recommending an eleven, captain and vice-captain",
	}, s.simulateLineup)

	addTool(s, &mcp.Tool{
		Name:        "free_agents",
		Description: "Rank unowned players by expected points, grouped by position or as differentials",
	}, s.freeAgentsTool)

	addTool(s, &mcp.Tool{
		Name:        "snapshot_info",
		Description: "Version, player count and opponent tiers of the data snapshot being served",
	}, s.snapshotInfo)
}

func (s *Server) predictPlayer(ctx context.Context, args PlayerArgs) (any, error) {
	return s.predictions.PredictPlayer(ctx, args.PlayerID, fixtureFromArgs(args))
}

func (s *Server) predictSquad(ctx context.Context, args SquadArgs) (any, error) {
	return s.predictions.PredictSquad(ctx, usecase.SquadRequest{
		PlayerIDs: args.PlayerIDs,
		Fixtures:  fixtureOverrides(args.Fixtures),
	})
}

func (s *Server) scoreDistribution(ctx context.Context, args PlayerArgs) (any, error) {
	return s.distributions.Distribution(ctx, args.PlayerID, fixtureFromArgs(args))
}

func (s *Server) simulateLineup(ctx context.Context, args SimulationArgs) (any, error) {
	return s.simulations.SimulateLineup(ctx, usecase.SimulationRequest{
		PlayerIDs: args.PlayerIDs,
		Fixtures:  fixtureOverrides(args.Fixtures),
		Trials:    args.Trials,
		Formation: args.Formation,
	})
}

func (s *Server) freeAgentsTool(ctx context.Context, args FreeAgentArgs) (any, error) {
	var position player.Position
	if args.Position != "" {
		pos, ok := player.ParsePosition(args.Position)
		if !ok {
			return nil, fmt.Errorf("%w: unknown position %q", usecase.ErrInvalidInput, args.Position)
		}
		position = pos
	}

	switch {
	case args.Differentials:
		topN := args.TopN
		if topN <= 0 {
			topN = 10
		}
		return s.freeAgents.Differentials(ctx, args.Owned, topN)
	case args.PerPosition > 0 && position == "":
		return s.freeAgents.BestByPosition(ctx, args.Owned, args.PerPosition)
	default:
		ranked, err := s.freeAgents.Rank(ctx, usecase.FreeAgentQuery{Owned: args.Owned, Position: position, TopN: args.TopN})
		if err != nil {
			return nil, err
		}
		if ranked == nil {
			ranked = []engine.FreeAgent{}
		}
		return ranked, nil
	}
}

func (s *Server) snapshotInfo(context.Context, SnapshotArgs) (any, error) {
	return s.snapshots.Info()
}

func fixtureFromArgs(args PlayerArgs) *prediction.FixtureContext {
	if args.OpponentTeamID == 0 {
		return nil
	}
	return &prediction.FixtureContext{OpponentTeamID: args.OpponentTeamID, IsHome: args.IsHome}
}

func fixtureOverrides(items []FixtureArgs) map[int64]prediction.FixtureContext {
	if len(items) == 0 {
		return nil
	}
	out := make(map[int64]prediction.FixtureContext, len(items))
	for _, item := range items {
		out[item.PlayerID] = prediction.FixtureContext{OpponentTeamID: item.OpponentTeamID, IsHome: item.IsHome}
	}
	return out
}
