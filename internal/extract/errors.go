package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrEmptyDocument is returned when the source document contains no data.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidXML is returned when a document claimed to be a SIFEN XML
	// cannot be parsed as one.
	ErrInvalidXML = errors.New("invalid SIFEN XML document")

	// ErrMissingBusinessKey is returned when neither issuer RUC nor invoice
	// number could be extracted. Such a record cannot be merged and is
	// rejected rather than persisted under an empty key.
	ErrMissingBusinessKey = errors.New("missing issuer RUC or invoice number")

	// ErrExtractionFailed is returned when the AI extraction path fails after
	// all retries.
	ErrExtractionFailed = errors.New("AI extraction failed")

	// ErrMissingAPIKey is returned when OPENAI_API_KEY is not configured.
	ErrMissingAPIKey = errors.New("missing OpenAI API key: set OPENAI_API_KEY environment variable")
)

// ExtractError wraps errors with context about the extraction failure.
type ExtractError struct {
	// Op is the operation that failed (e.g., "Extract", "ParseResponse").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractError creates a new ExtractError.
func NewExtractError(op string, err error, details string) *ExtractError {
	return &ExtractError{Op: op, Err: err, Details: details}
}
