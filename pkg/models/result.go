package models

import (
	"fmt"
	"time"
)

// Warning kinds attached to processing and export results. Warnings are
// reporting-only outcomes: the record they reference was still persisted.
const (
	WarnResidualOutOfTolerance = "residual_out_of_tolerance"
	WarnMalformedAmount        = "malformed_amount"
)

// Warning identifies a non-fatal anomaly on a single record.
type Warning struct {
	Kind    string      `json:"kind"`
	Key     BusinessKey `json:"key"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Key, w.Message)
}

// ExportResult summarizes one export operation against the partition store.
type ExportResult struct {
	Partitions []string  `json:"partitions"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Warnings   []Warning `json:"warnings,omitempty"`
	Snapshots  []string  `json:"snapshots,omitempty"`
}

// ProcessResult summarizes one ingestion batch.
type ProcessResult struct {
	Success      bool          `json:"success"`
	TimedOut     bool          `json:"timed_out,omitempty"`
	Message      string        `json:"message"`
	InvoiceCount int           `json:"invoice_count"`
	Failed       int           `json:"failed"`
	Export       *ExportResult `json:"export,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}
