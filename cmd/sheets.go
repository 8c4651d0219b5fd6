package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/config"
	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/sheets"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets [YYYY-MM]",
	Short: "Mirror one monthly partition to a Google Sheet",
	Long: `Write the rows of one monthly partition to a Google Sheet. The sheet is
a mirror for people who review in a spreadsheet; SQLite and the CSV
snapshots remain the source of truth.

Required environment variables:
  GOOGLE_SHEET_URL               - Target spreadsheet URL
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS             - Inline JSON credentials string`,
	Example: `  cuencly sheets 2026-08`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSheets,
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}

func runSheets(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sheets-cmd")

	partition := args[0]
	if !monthArgPattern.MatchString(partition) {
		return fmt.Errorf("invalid month %q, expected YYYY-MM", partition)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}

	db, repo, _, err := openExporter(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	rows, _, err := repo.LoadPartition(ctx, partition)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("No hay facturas para %s.\n", partition)
		return nil
	}

	svc, err := sheets.NewService(ctx, cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("create Google Sheets service: %w", err)
	}

	if err := svc.WritePartition(ctx, partition, rows); err != nil {
		return fmt.Errorf("write partition to sheet: %w", err)
	}

	log.Info().
		Str("partition", partition).
		Int("rows", len(rows)).
		Msg("Partition mirrored to Google Sheet")

	fmt.Printf("Hoja: %s\n", partition)
	fmt.Printf("Filas escritas: %d\n", len(rows))
	fmt.Printf("URL: %s\n", cfg.GoogleSheetURL)
	return nil
}
