// Package store persists monthly invoice partitions in SQLite. Amounts are
// stored as decimal strings, never as binary floats, so a read-back returns
// exactly what was written.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invoices (
			partition TEXT NOT NULL,
			issuer_ruc TEXT NOT NULL,
			invoice_number TEXT NOT NULL,
			issue_date TEXT,
			issuer_name TEXT NOT NULL DEFAULT '',
			doc_type TEXT NOT NULL DEFAULT 'CO',
			taxed_base_10 TEXT NOT NULL,
			tax_10 TEXT NOT NULL,
			taxed_base_5 TEXT NOT NULL,
			tax_5 TEXT NOT NULL,
			exempt TEXT NOT NULL,
			total TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'GS',
			exchange_rate TEXT NOT NULL DEFAULT '0',
			timbrado TEXT NOT NULL DEFAULT '',
			cdc TEXT NOT NULL DEFAULT '',
			customer_ruc TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			origin_channel TEXT NOT NULL DEFAULT '',
			processed_at TEXT NOT NULL,
			PRIMARY KEY (partition, issuer_ruc, invoice_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_partition ON invoices(partition)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_issue_date ON invoices(issue_date)`,

		`CREATE TABLE IF NOT EXISTS invoice_items (
			partition TEXT NOT NULL,
			issuer_ruc TEXT NOT NULL,
			invoice_number TEXT NOT NULL,
			article TEXT NOT NULL,
			issue_date TEXT,
			quantity TEXT NOT NULL,
			unit_price TEXT NOT NULL,
			total TEXT NOT NULL,
			tax_rate INTEGER NOT NULL,
			currency TEXT NOT NULL DEFAULT 'GS',
			PRIMARY KEY (partition, issuer_ruc, invoice_number, article)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_items_partition ON invoice_items(partition)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
