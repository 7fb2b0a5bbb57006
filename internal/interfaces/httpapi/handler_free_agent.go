package httpapi

import (
	"net/http"

	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

// ListFreeAgents ranks the unowned pool. With ?per_position=N the response
// is grouped by position instead.
func (h *Handler) ListFreeAgents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFreeAgents")
	defer span.End()

	owned, err := parseOwnedQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	position, err := parsePositionQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	top, err := parseIntQuery(r, "top", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	perPosition, err := parseIntQuery(r, "per_position", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if perPosition > 0 && position == "" {
		grouped, err := h.freeAgentService.BestByPosition(ctx, owned, perPosition)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, grouped)
		return
	}

	ranked, err := h.freeAgentService.Rank(ctx, usecase.FreeAgentQuery{Owned: owned, Position: position, TopN: top})
	if err != nil {
		h.logger.WarnContext(ctx, "rank free agents failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, ranked)
}

func (h *Handler) ListDifferentials(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDifferentials")
	defer span.End()

	owned, err := parseOwnedQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	top, err := parseIntQuery(r, "top", defaultDifferentials)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	picks, err := h.freeAgentService.Differentials(ctx, owned, top)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, picks)
}
