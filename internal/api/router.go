// Package api exposes the processed invoice data over HTTP. Handlers are
// read-mostly: they serve partitions, summaries and snapshot listings from
// the store, and a single POST endpoint triggers an ingestion batch.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/pipeline"
	"github.com/poravv/cuencly-backend/internal/store"
)

// NewRouter mounts all API routes on a Chi router.
func NewRouter(repo *store.InvoiceRepo, exporter *export.Service, pipe *pipeline.Pipeline, inboxDir string) http.Handler {
	h := &Handlers{
		repo:     repo,
		exporter: exporter,
		pipeline: pipe,
		inboxDir: inboxDir,
		log:      logger.WithComponent("api"),
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/months", h.ListMonths)
		r.Get("/months/{partition}", h.GetMonth)
		r.Get("/months/{partition}/summary", h.GetMonthSummary)

		r.Get("/snapshots", h.ListSnapshots)
		r.Get("/stats", h.GetStats)

		r.Post("/process", h.TriggerProcess)
	})

	return r
}

// requestLogger emits one structured line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		reqLog := logger.WithRequestID(middleware.GetReqID(r.Context()))
		reqLog.Info().
			Str("component", "api").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
