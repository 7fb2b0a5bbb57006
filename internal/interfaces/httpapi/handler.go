package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

const defaultDifferentials = 10

type Handler struct {
	snapshotService     *usecase.SnapshotService
	predictionService   *usecase.PredictionService
	distributionService *usecase.DistributionService
	simulationService   *usecase.SimulationService
	freeAgentService    *usecase.FreeAgentService
	logger              *logging.Logger
	validator           *validator.Validate
}

func NewHandler(
	snapshotService *usecase.SnapshotService,
	predictionService *usecase.PredictionService,
	distributionService *usecase.DistributionService,
	simulationService *usecase.SimulationService,
	freeAgentService *usecase.FreeAgentService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		snapshotService:     snapshotService,
		predictionService:   predictionService,
		distributionService: distributionService,
		simulationService:   simulationService,
		freeAgentService:    freeAgentService,
		logger:              logger.Named("httpapi"),
		validator:           validator.New(),
	}
}

type healthDTO struct {
	Status          string `json:"status"`
	SnapshotVersion string `json:"snapshot_version,omitempty"`
}

// Healthz reports "starting" until the first snapshot is served.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	info, err := h.snapshotService.Info()
	if err != nil {
		writeSuccess(ctx, w, http.StatusOK, healthDTO{Status: "starting"})
		return
	}
	writeSuccess(ctx, w, http.StatusOK, healthDTO{Status: "ok", SnapshotVersion: info.Version})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSnapshot")
	defer span.End()

	info, err := h.snapshotService.Info()
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, info)
}

func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTiers")
	defer span.End()

	info, err := h.snapshotService.Info()
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, info.Tiers)
}

// RefreshSnapshot rebuilds from the repositories; ?scope=standings only
// reassigns tiers from fresh standings.
func (h *Handler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshSnapshot")
	defer span.End()

	refresh := h.snapshotService.Refresh
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("scope")), "standings") {
		refresh = h.snapshotService.RefreshStandings
	}
	info, err := refresh(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "snapshot refresh failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, info)
}
