package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fpl-predictor/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

func (h *Handler) GetPlayerPrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerPrediction")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	span.SetAttributes(attribute.Int64("player.id", playerID))
	fx, err := parseFixtureQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	pred, err := h.predictionService.PredictPlayer(ctx, playerID, fx)
	if err != nil {
		h.logger.WarnContext(ctx, "predict player failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, pred)
}

func (h *Handler) PredictSquad(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PredictSquad")
	defer span.End()

	var req squadPredictionRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	squad, err := h.predictionService.PredictSquad(ctx, usecase.SquadRequest{
		PlayerIDs: req.PlayerIDs,
		Fixtures:  fixtureOverrides(req.Fixtures),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "predict squad failed", "squad_size", len(req.PlayerIDs), "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, squad)
}

func (h *Handler) GetPlayerDistribution(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerDistribution")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	span.SetAttributes(attribute.Int64("player.id", playerID))
	fx, err := parseFixtureQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	dist, err := h.distributionService.Distribution(ctx, playerID, fx)
	if err != nil {
		h.logger.WarnContext(ctx, "score distribution failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, dist)
}
