package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeRequest reads a JSON body strictly and validates it.
func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, dst any) error {
	decoder := jsoniter.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, dst)
}

type fixtureOverrideRequest struct {
	PlayerID       int64 `json:"player_id" validate:"gt=0"`
	OpponentTeamID int64 `json:"opponent_team_id" validate:"gt=0"`
	IsHome         bool  `json:"is_home"`
}

type squadPredictionRequest struct {
	PlayerIDs []int64                  `json:"player_ids" validate:"required,min=11,max=15,unique,dive,gt=0"`
	Fixtures  []fixtureOverrideRequest `json:"fixtures" validate:"omitempty,dive"`
}

type simulationRequest struct {
	PlayerIDs []int64                  `json:"player_ids" validate:"required,min=11,max=15,unique,dive,gt=0"`
	Fixtures  []fixtureOverrideRequest `json:"fixtures" validate:"omitempty,dive"`
	Trials    int                      `json:"trials" validate:"gte=0"`
	Formation string                   `json:"formation" validate:"omitempty,max=16"`
}

func fixtureOverrides(items []fixtureOverrideRequest) map[int64]prediction.FixtureContext {
	if len(items) == 0 {
		return nil
	}
	out := make(map[int64]prediction.FixtureContext, len(items))
	for _, item := range items {
		out[item.PlayerID] = prediction.FixtureContext{OpponentTeamID: item.OpponentTeamID, IsHome: item.IsHome}
	}
	return out
}

func parsePlayerID(r *http.Request) (int64, error) {
	raw := r.PathValue("playerID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid player id %q", usecase.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseFixtureQuery reads ?opponent=&home=. No opponent means the scheduled
// fixture is used.
func parseFixtureQuery(r *http.Request) (*prediction.FixtureContext, error) {
	query := r.URL.Query()
	rawOpponent := strings.TrimSpace(query.Get("opponent"))
	if rawOpponent == "" {
		return nil, nil
	}
	opponent, err := strconv.ParseInt(rawOpponent, 10, 64)
	if err != nil || opponent <= 0 {
		return nil, fmt.Errorf("%w: invalid opponent %q", usecase.ErrInvalidInput, rawOpponent)
	}
	isHome, err := parseBoolQuery(r, "home", false)
	if err != nil {
		return nil, err
	}
	return &prediction.FixtureContext{OpponentTeamID: opponent, IsHome: isHome}, nil
}

func parseBoolQuery(r *http.Request, key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q", usecase.ErrInvalidInput, key, raw)
	}
	return v, nil
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", usecase.ErrInvalidInput, key, raw)
	}
	return v, nil
}

// parseOwnedQuery accepts ?owned=1,2,3 and repeated ?owned= parameters.
func parseOwnedQuery(r *http.Request) ([]int64, error) {
	var out []int64
	for _, value := range r.URL.Query()["owned"] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: invalid owned player id %q", usecase.ErrInvalidInput, part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func parsePositionQuery(r *http.Request) (player.Position, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("position"))
	if raw == "" {
		return "", nil
	}
	pos, ok := player.ParsePosition(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown position %q", usecase.ErrInvalidInput, raw)
	}
	return pos, nil
}
