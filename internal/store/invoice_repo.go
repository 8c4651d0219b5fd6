package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

// InvoiceRepo implements partition persistence over SQLite.
type InvoiceRepo struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo {
	return &InvoiceRepo{db: db}
}

// LoadPartition reads back all rows and items of one partition in positional
// order.
func (r *InvoiceRepo) LoadPartition(ctx context.Context, partition string) ([]models.ExportRow, []models.ItemRow, error) {
	rows, err := r.loadRows(ctx, partition)
	if err != nil {
		return nil, nil, fmt.Errorf("load partition %s: %w", partition, err)
	}
	items, err := r.loadItems(ctx, partition)
	if err != nil {
		return nil, nil, fmt.Errorf("load partition %s items: %w", partition, err)
	}
	return rows, items, nil
}

func (r *InvoiceRepo) loadRows(ctx context.Context, partition string) ([]models.ExportRow, error) {
	rs, err := r.db.QueryContext(ctx,
		`SELECT issuer_ruc, invoice_number, issue_date, issuer_name, doc_type,
		        taxed_base_10, tax_10, taxed_base_5, tax_5, exempt, total,
		        currency, exchange_rate, timbrado, cdc,
		        customer_ruc, customer_name, description,
		        source, origin_channel, processed_at
		 FROM invoices WHERE partition = ?
		 ORDER BY issue_date, issuer_ruc, invoice_number`,
		partition,
	)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []models.ExportRow
	for rs.Next() {
		var row models.ExportRow
		var issueDate, base10, tax10, base5, tax5, exempt, total, rate, processedAt string
		if err := rs.Scan(
			&row.IssuerRUC, &row.InvoiceNumber, &issueDate, &row.IssuerName, &row.DocType,
			&base10, &tax10, &base5, &tax5, &exempt, &total,
			&row.Currency, &rate, &row.Timbrado, &row.CDC,
			&row.CustomerRUC, &row.CustomerName, &row.Description,
			&row.Source, &row.OriginChannel, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row.IssueDate = parseStoredTime(issueDate)
		row.ProcessedAt = parseStoredTime(processedAt)
		if row.TaxedBase10, err = decimal.NewFromString(base10); err != nil {
			return nil, fmt.Errorf("row %s/%s: taxed_base_10 %q: %w", row.IssuerRUC, row.InvoiceNumber, base10, err)
		}
		if row.Tax10, err = decimal.NewFromString(tax10); err != nil {
			return nil, fmt.Errorf("row %s/%s: tax_10 %q: %w", row.IssuerRUC, row.InvoiceNumber, tax10, err)
		}
		if row.TaxedBase5, err = decimal.NewFromString(base5); err != nil {
			return nil, fmt.Errorf("row %s/%s: taxed_base_5 %q: %w", row.IssuerRUC, row.InvoiceNumber, base5, err)
		}
		if row.Tax5, err = decimal.NewFromString(tax5); err != nil {
			return nil, fmt.Errorf("row %s/%s: tax_5 %q: %w", row.IssuerRUC, row.InvoiceNumber, tax5, err)
		}
		if row.Exempt, err = decimal.NewFromString(exempt); err != nil {
			return nil, fmt.Errorf("row %s/%s: exempt %q: %w", row.IssuerRUC, row.InvoiceNumber, exempt, err)
		}
		if row.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("row %s/%s: total %q: %w", row.IssuerRUC, row.InvoiceNumber, total, err)
		}
		if row.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("row %s/%s: exchange_rate %q: %w", row.IssuerRUC, row.InvoiceNumber, rate, err)
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

func (r *InvoiceRepo) loadItems(ctx context.Context, partition string) ([]models.ItemRow, error) {
	rs, err := r.db.QueryContext(ctx,
		`SELECT issuer_ruc, invoice_number, issue_date, article,
		        quantity, unit_price, total, tax_rate, currency
		 FROM invoice_items WHERE partition = ?
		 ORDER BY issuer_ruc, invoice_number, article`,
		partition,
	)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []models.ItemRow
	for rs.Next() {
		var it models.ItemRow
		var issueDate, qty, price, total string
		if err := rs.Scan(
			&it.IssuerRUC, &it.InvoiceNumber, &issueDate, &it.Article,
			&qty, &price, &total, &it.TaxRate, &it.Currency,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.IssueDate = parseStoredTime(issueDate)
		if it.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("item %s/%s %q: quantity %q: %w", it.IssuerRUC, it.InvoiceNumber, it.Article, qty, err)
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("item %s/%s %q: unit_price %q: %w", it.IssuerRUC, it.InvoiceNumber, it.Article, price, err)
		}
		if it.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("item %s/%s %q: total %q: %w", it.IssuerRUC, it.InvoiceNumber, it.Article, total, err)
		}
		out = append(out, it)
	}
	return out, rs.Err()
}

// ReplacePartition swaps the full contents of one partition inside a single
// transaction, so readers see either the old state or the new one.
func (r *InvoiceRepo) ReplacePartition(ctx context.Context, partition string, rows []models.ExportRow, items []models.ItemRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM invoices WHERE partition = ?", partition); err != nil {
		return fmt.Errorf("clear partition %s: %w", partition, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM invoice_items WHERE partition = ?", partition); err != nil {
		return fmt.Errorf("clear partition %s items: %w", partition, err)
	}

	rowStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO invoices
		(partition, issuer_ruc, invoice_number, issue_date, issuer_name, doc_type,
		 taxed_base_10, tax_10, taxed_base_5, tax_5, exempt, total,
		 currency, exchange_rate, timbrado, cdc,
		 customer_ruc, customer_name, description,
		 source, origin_channel, processed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare invoice insert: %w", err)
	}
	defer rowStmt.Close()

	for i := range rows {
		row := &rows[i]
		if _, err := rowStmt.ExecContext(ctx,
			partition, row.IssuerRUC, row.InvoiceNumber,
			formatStoredTime(row.IssueDate), row.IssuerName, row.DocType,
			row.TaxedBase10.String(), row.Tax10.String(),
			row.TaxedBase5.String(), row.Tax5.String(),
			row.Exempt.String(), row.Total.String(),
			row.Currency, row.ExchangeRate.String(), row.Timbrado, row.CDC,
			row.CustomerRUC, row.CustomerName, row.Description,
			row.Source, row.OriginChannel, formatStoredTime(row.ProcessedAt),
		); err != nil {
			return fmt.Errorf("insert row %s/%s: %w", row.IssuerRUC, row.InvoiceNumber, err)
		}
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO invoice_items
		(partition, issuer_ruc, invoice_number, article, issue_date,
		 quantity, unit_price, total, tax_rate, currency)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for i := range items {
		it := &items[i]
		if _, err := itemStmt.ExecContext(ctx,
			partition, it.IssuerRUC, it.InvoiceNumber, it.Article,
			formatStoredTime(it.IssueDate),
			it.Quantity.String(), it.UnitPrice.String(), it.Total.String(),
			it.TaxRate, it.Currency,
		); err != nil {
			return fmt.Errorf("insert item %s/%s %q: %w", it.IssuerRUC, it.InvoiceNumber, it.Article, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMonths returns all partition keys present in the store, newest first.
func (r *InvoiceRepo) ListMonths(ctx context.Context) ([]string, error) {
	rs, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT partition FROM invoices ORDER BY partition DESC")
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rs.Close()

	var months []string
	for rs.Next() {
		var m string
		if err := rs.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rs.Err()
}

// Stats returns the row count per partition.
func (r *InvoiceRepo) Stats(ctx context.Context) (map[string]int, error) {
	rs, err := r.db.QueryContext(ctx,
		"SELECT partition, COUNT(*) FROM invoices GROUP BY partition")
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rs.Close()

	stats := make(map[string]int)
	for rs.Next() {
		var partition string
		var n int
		if err := rs.Scan(&partition, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[partition] = n
	}
	return stats, rs.Err()
}

func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseStoredTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
