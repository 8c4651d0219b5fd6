package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/config"
	"github.com/poravv/cuencly-backend/internal/logger"
)

var processCmd = &cobra.Command{
	Use:   "process [folder-path]",
	Short: "Process all invoice documents in a folder and update the monthly exports",
	Long: `Process every invoice document in a folder and merge the results into the
monthly export partitions.

SIFEN XML documents are parsed natively. Scanned documents (PDF, JPG, PNG)
go through Google Vision OCR and an OpenAI completion when OPENAI_API_KEY is
set, or through a Google Document AI invoice processor when
DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_PROJECT are set. With neither
backend configured, scanned documents are skipped.

Each month touched by the batch gets its SQLite partition updated and its
CSV snapshot rewritten. Re-running the same folder is a no-op.

Optional environment variables:
  CUENCLY_DB_PATH       - SQLite database file (default: cuencly.db)
  CUENCLY_SNAPSHOT_DIR  - CSV snapshot directory (default: snapshots)
  BATCH_WORKERS         - Number of parallel workers (default: 4)
  BATCH_TIMEOUT_SECONDS - Watchdog for the whole batch (default: 600)`,
	Example: `  # Process a folder of XML facturas
  cuencly process ./facturas

  # Scanned documents too, with more workers
  BATCH_WORKERS=8 cuencly process ./facturas`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	folderPath := args[0]
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, _, exporter, err := openExporter(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	pipe, err := buildPipeline(ctx, cfg, exporter)
	if err != nil {
		return err
	}

	log.Info().
		Str("folder", folderPath).
		Int("workers", cfg.BatchWorkers).
		Msg("Starting invoice batch")

	result, err := pipe.Run(ctx, folderPath)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("              PROCESAMIENTO DE FACTURAS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Procesadas: %d\n", result.InvoiceCount)
	if result.Failed > 0 {
		fmt.Printf("Con errores: %d\n", result.Failed)
	}
	if result.TimedOut {
		fmt.Println("Advertencia: el lote excedió el tiempo límite")
	}
	if result.Export != nil {
		fmt.Printf("Meses actualizados: %s\n", strings.Join(result.Export.Partitions, ", "))
		fmt.Printf("Nuevas: %d  Actualizadas: %d\n", result.Export.Inserted, result.Export.Updated)
		for _, w := range result.Export.Warnings {
			fmt.Printf("Advertencia %s\n", w)
		}
		for _, snap := range result.Export.Snapshots {
			fmt.Printf("Snapshot: %s\n", snap)
		}
	}
	fmt.Printf("Duración: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Println(strings.Repeat("=", 60))

	if !result.Success {
		return fmt.Errorf("batch failed: %s", result.Message)
	}
	return nil
}
