package routes

import (
	"net/http"

	"clementus360/task-insights/handlers"
)

// RegisterContextRoutes registers context collection, query and pattern routes
func RegisterContextRoutes(mux *http.ServeMux, api *handlers.API, wrap func(http.Handler) http.Handler) {
	mux.Handle("POST /context/collect", wrap(http.HandlerFunc(api.CollectContextHandler)))
	mux.Handle("GET /context", wrap(http.HandlerFunc(api.GetContextHandler)))
	mux.Handle("GET /context/aggregate", wrap(http.HandlerFunc(api.AggregateContextHandler)))

	mux.Handle("GET /patterns", wrap(http.HandlerFunc(api.LatestPatternsHandler)))
	mux.Handle("POST /patterns/completion", wrap(http.HandlerFunc(api.RecordCompletionHandler)))
	mux.Handle("POST /patterns/session", wrap(http.HandlerFunc(api.RecordSessionHandler)))
	mux.Handle("POST /patterns/creation", wrap(http.HandlerFunc(api.RecordCreationHandler)))
}
