package export

import (
	"sort"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// mergeRows folds freshly exported rows into the previously persisted rows of
// the same partition. Per business key exactly one row survives: the
// last-appended row that carries a valid control code, or failing that simply
// the last-appended row. Existing rows count as appended before incoming
// ones, so a re-run of the same batch is a no-op.
//
// inserted counts keys that were new to the partition; updated counts keys
// whose surviving row came from the incoming batch and replaced an existing
// one.
func mergeRows(existing, incoming []models.ExportRow) (merged []models.ExportRow, inserted, updated int) {
	type slot struct {
		row     models.ExportRow
		fromNew bool
		existed bool
	}
	slots := make(map[models.BusinessKey]*slot, len(existing)+len(incoming))
	var order []models.BusinessKey

	place := func(row models.ExportRow, fromNew bool) {
		key := row.Key()
		s, ok := slots[key]
		if !ok {
			slots[key] = &slot{row: row, fromNew: fromNew, existed: !fromNew}
			order = append(order, key)
			return
		}
		if !fromNew {
			s.existed = true
		}
		// A valid CDC already in place only yields to another valid CDC.
		if s.row.HasValidCDC() && !row.HasValidCDC() {
			return
		}
		s.row = row
		s.fromNew = fromNew
	}

	for _, row := range existing {
		place(row, false)
	}
	for _, row := range incoming {
		place(row, true)
	}

	merged = make([]models.ExportRow, 0, len(order))
	for _, key := range order {
		s := slots[key]
		merged = append(merged, s.row)
		if s.fromNew {
			if s.existed {
				updated++
			} else {
				inserted++
			}
		}
	}

	sortRows(merged)
	return merged, inserted, updated
}

// mergeItems folds line items keyed by (business key, article), last write
// wins. Items of invoices that disappeared during row merge are pruned.
func mergeItems(existing, incoming []models.ItemRow, rows []models.ExportRow) []models.ItemRow {
	type itemKey struct {
		key     models.BusinessKey
		article string
	}

	keep := make(map[models.BusinessKey]bool, len(rows))
	for i := range rows {
		keep[rows[i].Key()] = true
	}

	slots := make(map[itemKey]models.ItemRow, len(existing)+len(incoming))
	var order []itemKey
	place := func(it models.ItemRow) {
		k := itemKey{
			key:     models.BusinessKey{IssuerRUC: it.IssuerRUC, InvoiceNumber: it.InvoiceNumber},
			article: it.Article,
		}
		if !keep[k.key] {
			return
		}
		if _, ok := slots[k]; !ok {
			order = append(order, k)
		}
		slots[k] = it
	}

	for _, it := range existing {
		place(it)
	}
	for _, it := range incoming {
		place(it)
	}

	merged := make([]models.ItemRow, 0, len(order))
	for _, k := range order {
		merged = append(merged, slots[k])
	}
	sortItems(merged)
	return merged
}

// sortRows orders a partition deterministically: issue date, then issuer
// RUC, then invoice number.
func sortRows(rows []models.ExportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].IssueDate.Equal(rows[j].IssueDate) {
			return rows[i].IssueDate.Before(rows[j].IssueDate)
		}
		if rows[i].IssuerRUC != rows[j].IssuerRUC {
			return rows[i].IssuerRUC < rows[j].IssuerRUC
		}
		return rows[i].InvoiceNumber < rows[j].InvoiceNumber
	})
}

func sortItems(items []models.ItemRow) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IssuerRUC != items[j].IssuerRUC {
			return items[i].IssuerRUC < items[j].IssuerRUC
		}
		if items[i].InvoiceNumber != items[j].InvoiceNumber {
			return items[i].InvoiceNumber < items[j].InvoiceNumber
		}
		return items[i].Article < items[j].Article
	})
}
