package routes

import (
	"net/http"

	"clementus360/task-insights/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterAllRoutes registers all application routes. wrap guards the
// per-user endpoints; /metrics and /health stay open.
func RegisterAllRoutes(mux *http.ServeMux, api *handlers.API, wrap func(http.Handler) http.Handler) {
	RegisterAnalysisRoutes(mux, api, wrap)
	RegisterContextRoutes(mux, api, wrap)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
