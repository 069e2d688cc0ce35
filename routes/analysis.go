package routes

import (
	"net/http"

	"clementus360/task-insights/handlers"
)

// RegisterAnalysisRoutes registers all analysis-related routes
func RegisterAnalysisRoutes(mux *http.ServeMux, api *handlers.API, wrap func(http.Handler) http.Handler) {
	mux.Handle("POST /analysis", wrap(http.HandlerFunc(api.ExecuteAnalysisHandler)))
	mux.Handle("DELETE /analysis", wrap(http.HandlerFunc(api.ClearAnalysisHandler)))
	mux.Handle("POST /analysis/trigger", wrap(http.HandlerFunc(api.TriggerAnalysisHandler)))
	mux.Handle("GET /analysis/state", wrap(http.HandlerFunc(api.AnalysisStateHandler)))
	mux.Handle("GET /analysis/stats", wrap(http.HandlerFunc(api.AnalysisStatsHandler)))
}
