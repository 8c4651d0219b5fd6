// Package export turns extracted invoices into deterministic monthly
// partitions: it applies reconciliation, freezes amounts to fixed-point
// integers, merges against previously persisted rows and rewrites each
// affected partition atomically, with a CSV snapshot on the side.
package export

import (
	"time"

	"github.com/poravv/cuencly-backend/internal/reconcile"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// partitionFormat is the partition key layout, e.g. "2026-08".
const partitionFormat = "2006-01"

// MonthKey returns the partition an invoice belongs to. An explicit
// ProcessMonth wins, then the issue date, then the current time (records with
// no usable date still land somewhere reviewable).
func MonthKey(inv *models.Invoice, now time.Time) string {
	if inv.ProcessMonth != "" {
		return inv.ProcessMonth
	}
	if !inv.IssueDate.IsZero() {
		return inv.IssueDate.Format(partitionFormat)
	}
	return now.Format(partitionFormat)
}

// GroupByMonth reconciles each invoice in place and groups the batch by
// partition key. Reconciliation warnings are collected, never fatal.
func GroupByMonth(invoices []models.Invoice, cfg reconcile.Config, now time.Time) (map[string][]models.Invoice, []models.Warning) {
	groups := make(map[string][]models.Invoice)
	var warnings []models.Warning

	for i := range invoices {
		inv := &invoices[i]
		if w := reconcile.Apply(inv, cfg); w != nil {
			warnings = append(warnings, *w)
		}
		key := MonthKey(inv, now)
		groups[key] = append(groups[key], *inv)
	}
	return groups, warnings
}
