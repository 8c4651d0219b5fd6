// Package ocr extracts text from scanned facturas using the Google Cloud
// Vision API. It feeds the AI extraction path: documents that arrive as PDFs
// or photos instead of SIFEN XML are OCRed here before field extraction.
//
// Required environment variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: path to a service account JSON file, OR
//   - GOOGLE_CREDENTIALS: inline JSON credentials string
//
// Vision API limits for synchronous processing: 20MB per file, 5 pages per
// PDF. Facturas are single-page documents in practice, so the limits are
// generous.
package ocr

import (
	"context"
	"io"
	"time"
)

// Service extracts text from factura documents.
type Service interface {
	// ReadDocument extracts text from a PDF or image document.
	ReadDocument(ctx context.Context, doc io.Reader) (*Result, error)
}

// Result is the outcome of one OCR pass.
type Result struct {
	// Text is the extracted text in reading order, multi-page PDFs
	// concatenated.
	Text string `json:"text"`

	// PageCount is the number of pages processed; 1 for images.
	PageCount int `json:"page_count"`

	// Confidence is the average detection confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is when the OCR pass completed.
	ProcessedAt time.Time `json:"processed_at"`

	// Duration is how long the OCR pass took.
	Duration time.Duration `json:"duration"`
}
