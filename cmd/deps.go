package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poravv/cuencly-backend/internal/config"
	"github.com/poravv/cuencly-backend/internal/export"
	"github.com/poravv/cuencly-backend/internal/extract"
	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/pipeline"
	"github.com/poravv/cuencly-backend/internal/store"
)

// openExporter opens the SQLite store and builds the export service on top of
// it. The caller owns the returned *sql.DB.
func openExporter(cfg *config.Config) (*sql.DB, *store.InvoiceRepo, *export.Service, error) {
	db, err := store.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}

	repo := store.NewInvoiceRepo(db)
	exporter := export.NewService(repo, cfg.SnapshotDir, cfg.ReconcileConfig())
	return db, repo, exporter, nil
}

// buildPipeline wires the document extractors into a processing pipeline.
// The XML extractor is always available; scanned documents go through
// whichever AI backend the configuration enables.
func buildPipeline(ctx context.Context, cfg *config.Config, exporter *export.Service) (*pipeline.Pipeline, error) {
	scan, err := scanExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeCfg := pipeline.Config{
		Timeout: time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
		Workers: cfg.BatchWorkers,
	}
	return pipeline.New(extract.NewNativeXMLExtractor(), scan, exporter, pipeCfg), nil
}

// scanExtractor picks the backend for scanned documents. OpenAI vision wins
// when an API key is configured, then Document AI when a processor ID is
// configured; with neither, scans are skipped with a warning.
func scanExtractor(ctx context.Context, cfg *config.Config) (extract.Extractor, error) {
	switch {
	case cfg.OpenAIAPIKey != "":
		v, err := extract.NewVisionExtractor(ctx)
		if err != nil {
			return nil, fmt.Errorf("build vision extractor: %w", err)
		}
		return v, nil
	case cfg.DocumentAIProcessorID != "":
		d, err := extract.NewDocumentAIExtractorWithConfig(ctx, extract.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			return nil, fmt.Errorf("build Document AI extractor: %w", err)
		}
		return d, nil
	default:
		log := logger.WithComponent("cmd")
		log.Warn().
			Msg("neither OPENAI_API_KEY nor DOCUMENT_AI_PROCESSOR_ID set, scanned documents will be skipped")
		return nil, nil
	}
}
