// Package pipeline drives a batch run: discover documents, extract each one
// through the right extractor, then hand the batch to the export service.
// The whole run sits under a watchdog timeout so a stuck external API can
// never wedge the process; per-document failures are isolated and reported,
// never fatal to the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/extract"
	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// Config controls one batch run.
type Config struct {
	// Timeout is the watchdog for the whole run.
	Timeout time.Duration
	// Workers is the number of concurrent document extractions.
	Workers int
}

// DefaultConfig returns the batch defaults: a 10 minute watchdog and a small
// worker pool sized for API-bound work.
func DefaultConfig() Config {
	return Config{
		Timeout: 600 * time.Second,
		Workers: 4,
	}
}

// Pipeline wires extractors to the export service.
type Pipeline struct {
	xml    extract.Extractor
	vision extract.Extractor
	export *export.Service
	config Config
	log    zerolog.Logger
}

// New creates a pipeline. vision may be nil when no AI extraction backend is
// configured; scanned documents are then reported as failures.
func New(xml, vision extract.Extractor, exportService *export.Service, config Config) *Pipeline {
	return &Pipeline{
		xml:    xml,
		vision: vision,
		export: exportService,
		config: config,
		log:    logger.WithComponent("pipeline"),
	}
}

// documentResult is the outcome for one file.
type documentResult struct {
	path    string
	invoice *models.Invoice
	err     error
}

// Run processes every supported document under dir and exports the batch.
// The returned result is never nil; a watchdog expiry is reported as a
// distinct timed-out outcome rather than a generic failure.
func (p *Pipeline) Run(ctx context.Context, dir string) (*models.ProcessResult, error) {
	const op = "Run"
	start := time.Now()

	result := &models.ProcessResult{StartedAt: start}

	files, err := findDocuments(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(files) == 0 {
		result.Success = true
		result.Message = "no documents found"
		result.Duration = time.Since(start)
		return result, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	p.log.Info().
		Int("documents", len(files)).
		Int("workers", p.config.Workers).
		Dur("timeout", p.config.Timeout).
		Msg("starting batch run")

	results := p.extractAll(runCtx, files)

	var invoices []models.Invoice
	for _, r := range results {
		if r.err != nil {
			result.Failed++
			p.log.Warn().
				Err(r.err).
				Str("file", filepath.Base(r.path)).
				Msg("document failed")
			continue
		}
		invoices = append(invoices, *r.invoice)
	}
	result.InvoiceCount = len(invoices)

	if timedOut(runCtx) {
		result.TimedOut = true
		result.Message = fmt.Sprintf("batch timed out after %s; %d of %d documents extracted",
			p.config.Timeout, len(invoices), len(files))
		result.Duration = time.Since(start)
		p.log.Error().
			Int("extracted", len(invoices)).
			Int("total", len(files)).
			Msg("batch watchdog expired")
		return result, nil
	}

	if len(invoices) > 0 {
		// Export with a fresh context: persisting already-extracted records
		// should not be lost to a late cancellation.
		exported, err := p.export.Export(context.WithoutCancel(ctx), invoices)
		if err != nil {
			return nil, fmt.Errorf("%s: exporting batch: %w", op, err)
		}
		result.Export = exported
	}

	result.Success = true
	result.Message = fmt.Sprintf("%d documents processed, %d failed", len(invoices), result.Failed)
	result.Duration = time.Since(start)

	p.log.Info().
		Int("invoices", result.InvoiceCount).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("batch run completed")
	return result, nil
}

// extractAll runs the worker pool. Results keep the input order.
func (p *Pipeline) extractAll(ctx context.Context, files []string) []documentResult {
	type job struct {
		index int
		path  string
	}

	jobs := make(chan job, len(files))
	results := make([]documentResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results[j.index] = documentResult{path: j.path, err: ctx.Err()}
					continue
				}
				p.log.Debug().
					Int("worker", workerID).
					Str("file", filepath.Base(j.path)).
					Msg("worker extracting document")
				inv, err := p.extractOne(ctx, j.path)
				results[j.index] = documentResult{path: j.path, invoice: inv, err: err}
			}
		}(w)
	}

	for i, f := range files {
		jobs <- job{index: i, path: f}
	}
	close(jobs)
	wg.Wait()

	return results
}

// extractOne routes a document to the right extractor by extension.
func (p *Pipeline) extractOne(ctx context.Context, path string) (*models.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	if isXML(path) {
		return p.xml.Extract(ctx, f)
	}
	if p.vision == nil {
		return nil, errors.New("no AI extraction backend configured for scanned documents")
	}
	return p.vision.Extract(ctx, f)
}

// findDocuments lists the supported files under dir in deterministic order.
func findDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".xml", ".pdf", ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
