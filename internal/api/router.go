package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askdb.dev/askdb/internal/logger"
)

func NewRouter(apiHandler *APIHandler, authCfg AuthConfig, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(Metrics)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(authCfg, log))

		r.Post("/ask", apiHandler.AskHandler)
		r.Get("/sessions/{sessionID}/history", apiHandler.SessionHistoryHandler)
		r.Post("/schema/refresh", apiHandler.SchemaRefreshHandler)
	})

	return r
}
