// Package sheets mirrors monthly partitions to a Google Sheet, one worksheet
// per partition. The mirror is a convenience view for the accountant; the
// SQLite store and CSV snapshots remain the source of truth.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/pkg/models"
)

// Service handles Google Sheets operations.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// columnCount matches the header below; range A:T.
const columnCount = 20

var headerRow = []interface{}{
	"Fecha", "RUC Emisor", "Nombre Emisor", "Nro Factura", "Tipo",
	"Gravada 10%", "IVA 10%", "Gravada 5%", "IVA 5%", "Exentas", "Total",
	"Moneda", "Tipo Cambio", "Timbrado", "CDC",
	"RUC Cliente", "Nombre Cliente", "Descripción", "Origen", "Procesado",
}

// NewService creates a Google Sheets mirror for the spreadsheet behind
// sheetURL, with credentials from the environment.
func NewService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	jwtConfig, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// WritePartition rewrites the worksheet named after the partition with the
// partition's current rows. The worksheet is cleared first, so a re-export
// produces the identical sheet.
func (s *Service) WritePartition(ctx context.Context, partition string, rows []models.ExportRow) error {
	const op = "WritePartition"

	s.log.Info().
		Str("partition", partition).
		Int("rows", len(rows)).
		Msg("mirroring partition to Google Sheet")

	sheetID, err := s.ensureSheet(ctx, partition)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	clearRange := fmt.Sprintf("%s!A:T", partition)
	if _, err := s.sheetsService.Spreadsheets.Values.Clear(
		s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{},
	).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to clear worksheet: %w", op, err)
	}

	values := [][]interface{}{headerRow}
	for i := range rows {
		values = append(values, rowToValues(&rows[i]))
	}

	if _, err := s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A1", partition),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to write rows: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("failed to format headers, continuing anyway")
	}

	s.log.Info().
		Int("rows_written", len(rows)).
		Str("partition", partition).
		Msg("partition mirrored to Google Sheet")
	return nil
}

// rowToValues flattens one export row into a sheet row. Amounts go out as
// strings to keep the sheet from reinterpreting them as floats.
func rowToValues(r *models.ExportRow) []interface{} {
	issueDate := ""
	if !r.IssueDate.IsZero() {
		issueDate = r.IssueDate.Format("2006-01-02")
	}
	rate := ""
	if !r.ExchangeRate.IsZero() {
		rate = r.ExchangeRate.String()
	}
	return []interface{}{
		issueDate,                          // A: Fecha
		r.IssuerRUC,                        // B: RUC Emisor
		r.IssuerName,                       // C: Nombre Emisor
		r.InvoiceNumber,                    // D: Nro Factura
		r.DocType,                          // E: Tipo
		r.TaxedBase10.String(),             // F: Gravada 10%
		r.Tax10.String(),                   // G: IVA 10%
		r.TaxedBase5.String(),              // H: Gravada 5%
		r.Tax5.String(),                    // I: IVA 5%
		r.Exempt.String(),                  // J: Exentas
		r.Total.String(),                   // K: Total
		r.Currency,                         // L: Moneda
		rate,                               // M: Tipo Cambio
		r.Timbrado,                         // N: Timbrado
		r.CDC,                              // O: CDC
		r.CustomerRUC,                      // P: RUC Cliente
		r.CustomerName,                     // Q: Nombre Cliente
		r.Description,                      // R: Descripción
		r.Source,                           // S: Origen
		r.ProcessedAt.Format(time.RFC3339), // T: Procesado
	}
}

// ensureSheet makes sure a worksheet with the given title exists and returns
// its sheet ID.
func (s *Service) ensureSheet(ctx context.Context, title string) (int64, error) {
	const op = "ensureSheet"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == title {
			return sheet.Properties.SheetId, nil
		}
	}

	s.log.Info().Str("sheet", title).Msg("creating new worksheet")
	resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create worksheet: %w", op, err)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// formatHeaders makes the header row bold and auto-sizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columnCount,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columnCount,
				},
			},
		},
	}

	if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}
