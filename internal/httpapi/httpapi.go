// Package httpapi exposes the management.Service over HTTP: a small
// chi router with CORS and request logging wired the way dagu's admin
// HTTP surface wires its own handlers (internal/admin/handlers).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/mellivora/etl-engine/internal/management"
)

// NewRouter builds the chi.Mux exposing svc's operations.
func NewRouter(svc *management.Service) *chi.Mux {
	r := chi.NewRouter()

	logger := httplog.NewLogger("etl-engine", httplog.Options{
		JSON:     true,
		LogLevel: "info",
	})

	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", handleHealth())
	r.Get("/plugins", handleListPlugins(svc))

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", handleListSchedules(svc))
		r.Post("/{scheduleID}/trigger", handleTriggerSchedule(svc))
	})

	r.Route("/pipelines", func(r chi.Router) {
		r.Post("/{pipelineID}/trigger", handleTriggerPipeline(svc))
	})

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleListPlugins(svc *management.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListPlugins())
	}
}

func handleListSchedules(svc *management.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.ListActiveSchedules())
	}
}

func handleTriggerSchedule(svc *management.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID := chi.URLParam(r, "scheduleID")

		var body struct {
			Params map[string]any `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		// A run outlives the request: trigger detaches from r.Context() so
		// a client disconnect or timeout doesn't cancel an in-flight DAG.
		execution, err := svc.TriggerSchedule(context.Background(), scheduleID, body.Params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, execution)
	}
}

func handleTriggerPipeline(svc *management.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipelineID := chi.URLParam(r, "pipelineID")

		var body struct {
			Params map[string]any `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		execution, err := svc.TriggerPipeline(context.Background(), pipelineID, body.Params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, execution)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}
