package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/pipeline"
	"github.com/poravv/cuencly-backend/internal/store"
)

var partitionPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Handlers groups the HTTP handler methods and their dependencies.
type Handlers struct {
	repo     *store.InvoiceRepo
	exporter *export.Service
	pipeline *pipeline.Pipeline
	inboxDir string
	log      zerolog.Logger

	// processMu keeps at most one batch run in flight.
	processMu sync.Mutex
}

func writeJSON(w http.ResponseWriter, status int, v any, log zerolog.Logger) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg}, h.log)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.log)
}

// ListMonths returns every stored partition with its invoice count.
func (h *Handlers) ListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.repo.ListMonths(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := h.repo.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type monthEntry struct {
		Partition string `json:"partition"`
		Invoices  int    `json:"invoices"`
	}
	entries := make([]monthEntry, 0, len(months))
	for _, m := range months {
		entries = append(entries, monthEntry{Partition: m, Invoices: counts[m]})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"months": entries,
		"total":  len(entries),
	}, h.log)
}

// GetMonth returns the rows and line items of one partition.
func (h *Handlers) GetMonth(w http.ResponseWriter, r *http.Request) {
	partition := chi.URLParam(r, "partition")
	if !partitionPattern.MatchString(partition) {
		h.writeError(w, http.StatusBadRequest, "partition must look like 2026-01")
		return
	}

	rows, items, err := h.repo.LoadPartition(r.Context(), partition)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		h.writeError(w, http.StatusNotFound, "no invoices for partition "+partition)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"partition": partition,
		"invoices":  rows,
		"items":     items,
	}, h.log)
}

// GetMonthSummary returns the aggregated totals of one partition.
func (h *Handlers) GetMonthSummary(w http.ResponseWriter, r *http.Request) {
	partition := chi.URLParam(r, "partition")
	if !partitionPattern.MatchString(partition) {
		h.writeError(w, http.StatusBadRequest, "partition must look like 2026-01")
		return
	}

	summary, err := h.exporter.Summary(r.Context(), partition)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary.Invoices == 0 {
		h.writeError(w, http.StatusNotFound, "no invoices for partition "+partition)
		return
	}

	writeJSON(w, http.StatusOK, summary, h.log)
}

// ListSnapshots lists the CSV snapshot files on disk, newest partition first.
func (h *Handlers) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.exporter.Snapshots()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"total":     len(snapshots),
	}, h.log)
}

// GetStats returns per-partition invoice counts.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"by_partition":   counts,
		"total_invoices": total,
	}, h.log)
}

type processRequest struct {
	Dir string `json:"dir"`
}

// TriggerProcess runs an ingestion batch over a document directory. Only one
// batch may run at a time; concurrent requests get 409.
func (h *Handlers) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		h.writeError(w, http.StatusServiceUnavailable, "processing pipeline is not configured")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	dir := req.Dir
	if dir == "" {
		dir = h.inboxDir
	}
	if dir == "" {
		h.writeError(w, http.StatusBadRequest, "no document directory configured, pass one in the request body")
		return
	}

	if !h.processMu.TryLock() {
		h.writeError(w, http.StatusConflict, "a batch run is already in progress")
		return
	}
	defer h.processMu.Unlock()

	result, err := h.pipeline.Run(r.Context(), dir)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result, h.log)
}
