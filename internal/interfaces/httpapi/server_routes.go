package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPredictionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/snapshot", handler.GetSnapshot)
	mux.HandleFunc("GET /v1/tiers", handler.ListTiers)
	mux.HandleFunc("GET /v1/players/{playerID}/prediction", handler.GetPlayerPrediction)
	mux.HandleFunc("GET /v1/players/{playerID}/distribution", handler.GetPlayerDistribution)
	mux.HandleFunc("POST /v1/squads/predictions", handler.PredictSquad)
	mux.HandleFunc("POST /v1/squads/simulations", handler.SimulateLineup)
	mux.HandleFunc("GET /v1/free-agents", handler.ListFreeAgents)
	mux.HandleFunc("GET /v1/free-agents/differentials", handler.ListDifferentials)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalToken string) {
	mux.Handle("POST /v1/internal/snapshot/refresh", RequireInternalToken(internalToken, http.HandlerFunc(handler.RefreshSnapshot)))
}
