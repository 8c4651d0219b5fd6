package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/poravv/cuencly-backend/internal/ocr"
)

// Example demonstrates basic usage of the OCR service.
func Example() {
	// Create context with timeout for OCR processing
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create service - credentials handled internally from environment
	svc, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	// Open a scanned factura, PDF or photo
	doc, err := os.Open("factura.pdf")
	if err != nil {
		log.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	result, err := svc.ReadDocument(ctx, doc)
	if err != nil {
		log.Fatalf("OCR failed: %v", err)
	}

	fmt.Printf("Extracted %d characters from %d page(s)\n", len(result.Text), result.PageCount)
	fmt.Printf("Average confidence: %.1f%%\n", result.Confidence*100)
}
