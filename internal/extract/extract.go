// Package extract turns source documents into invoice records.
//
// Two extractors exist: the native SIFEN XML parser, used whenever an
// electronic document is available, and the vision pipeline (OCR plus an AI
// model) for scanned or photographed facturas. Both produce the same
// models.Invoice; the reconciliation engine downstream does not care which
// path a record took.
package extract

import (
	"context"
	"io"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// Extractor converts one source document into an invoice record.
type Extractor interface {
	// Extract parses the document. The returned invoice may carry partial
	// monetary fields; completion is the reconciliation engine's job.
	Extract(ctx context.Context, doc io.Reader) (*models.Invoice, error)

	// Source identifies the extraction path for provenance
	// (models.SourceNative or models.SourceVision).
	Source() string
}
