package ocr

import (
	"errors"
	"fmt"
)

// Common OCR errors
var (
	// ErrDocumentTooLarge is returned when the document exceeds the Vision
	// API's 20MB synchronous limit.
	ErrDocumentTooLarge = errors.New("document exceeds the maximum size (20MB)")

	// ErrUnsupportedFormat is returned when the document is neither a PDF
	// nor a supported image format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrOCRFailed is returned when the Vision API fails to process the
	// document.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials are
	// configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrTooManyPages is returned when a PDF exceeds the 5-page synchronous
	// limit.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 for synchronous processing)")

	// ErrEmptyDocument is returned when no readable text was found.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// Error wraps OCR failures with the operation that produced them.
type Error struct {
	// Op is the operation that failed (e.g., "ReadDocument").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with OCR context unless it already carries one.
func WrapError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *Error
	if errors.As(err, &ocrErr) {
		return err
	}
	return &Error{Op: op, Err: err, Details: details}
}
