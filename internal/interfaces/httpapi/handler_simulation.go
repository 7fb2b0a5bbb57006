package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fpl-predictor/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

func (h *Handler) SimulateLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SimulateLineup")
	defer span.End()

	var req simulationRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	span.SetAttributes(
		attribute.Int("squad.size", len(req.PlayerIDs)),
		attribute.Int("simulation.trials", req.Trials),
		attribute.String("simulation.formation", req.Formation),
	)

	rec, err := h.simulationService.SimulateLineup(ctx, usecase.SimulationRequest{
		PlayerIDs: req.PlayerIDs,
		Fixtures:  fixtureOverrides(req.Fixtures),
		Trials:    req.Trials,
		Formation: req.Formation,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "simulate lineup failed", "squad_size", len(req.PlayerIDs), "error", err)
		writeError(ctx, w, err)
		return
	}

	span.SetAttributes(attribute.Int("simulation.trials_run", rec.TrialsRun))
	status := http.StatusOK
	if rec.Cancelled {
		status = http.StatusPartialContent
	}
	writeSuccess(ctx, w, status, rec)
}
