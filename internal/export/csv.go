package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poravv/cuencly-backend/pkg/models"
)

const (
	invoiceSnapshotPrefix = "facturas_"
	itemSnapshotPrefix    = "productos_"
	snapshotExt           = ".csv"
)

var invoiceHeader = []string{
	"fecha", "ruc_emisor", "nombre_emisor", "nro_factura", "tipo_documento",
	"gravada_10", "iva_10", "gravada_5", "iva_5", "exentas", "total",
	"moneda", "tipo_cambio", "timbrado", "cdc",
	"ruc_cliente", "nombre_cliente", "descripcion", "origen", "procesado",
}

var itemHeader = []string{
	"fecha", "ruc_emisor", "nro_factura", "articulo",
	"cantidad", "precio_unitario", "total", "tasa_iva", "moneda",
}

// writeSnapshot atomically rewrites the two CSV files of one partition and
// returns their paths. The temp-then-rename dance keeps readers from ever
// seeing a half-written snapshot.
func writeSnapshot(dir, partition string, rows []models.ExportRow, items []models.ItemRow) ([]string, error) {
	const op = "writeSnapshot"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: creating snapshot dir: %w", op, err)
	}

	invoicePath := filepath.Join(dir, invoiceSnapshotPrefix+partition+snapshotExt)
	if err := writeCSVFile(invoicePath, invoiceHeader, invoiceRecords(rows)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	itemPath := filepath.Join(dir, itemSnapshotPrefix+partition+snapshotExt)
	if err := writeCSVFile(itemPath, itemHeader, itemRecords(items)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return []string{invoicePath, itemPath}, nil
}

func writeCSVFile(path string, header []string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func invoiceRecords(rows []models.ExportRow) [][]string {
	records := make([][]string, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		places := amountPlaces(r.Currency)
		records = append(records, []string{
			formatDate(r.IssueDate),
			r.IssuerRUC,
			r.IssuerName,
			r.InvoiceNumber,
			r.DocType,
			amountString(r.TaxedBase10, places),
			amountString(r.Tax10, places),
			amountString(r.TaxedBase5, places),
			amountString(r.Tax5, places),
			amountString(r.Exempt, places),
			amountString(r.Total, places),
			r.Currency,
			rateString(r.ExchangeRate),
			r.Timbrado,
			r.CDC,
			r.CustomerRUC,
			r.CustomerName,
			r.Description,
			r.Source,
			r.ProcessedAt.Format(time.RFC3339),
		})
	}
	return records
}

func itemRecords(items []models.ItemRow) [][]string {
	records := make([][]string, 0, len(items))
	for i := range items {
		it := &items[i]
		places := amountPlaces(it.Currency)
		records = append(records, []string{
			formatDate(it.IssueDate),
			it.IssuerRUC,
			it.InvoiceNumber,
			it.Article,
			it.Quantity.String(),
			amountString(it.UnitPrice, places),
			amountString(it.Total, places),
			strconv.Itoa(it.TaxRate),
			it.Currency,
		})
	}
	return records
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func amountPlaces(currency string) int32 {
	if currency == "" || currency == "GS" || currency == "PYG" {
		return 0
	}
	return 2
}

func amountString(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func rateString(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// ListSnapshots enumerates the invoice snapshot files under dir, newest
// partition first. Row counts exclude the header line.
func ListSnapshots(dir string) ([]models.SnapshotInfo, error) {
	const op = "ListSnapshots"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: reading %s: %w", op, dir, err)
	}

	var infos []models.SnapshotInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, invoiceSnapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		infos = append(infos, models.SnapshotInfo{
			Filename:     name,
			Partition:    strings.TrimSuffix(strings.TrimPrefix(name, invoiceSnapshotPrefix), snapshotExt),
			Path:         path,
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
			Rows:         countDataRows(path),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Partition > infos[j].Partition })
	return infos, nil
}

func countDataRows(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if n > 0 {
		n-- // header
	}
	return n
}
