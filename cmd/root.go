package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "cuencly",
	Short: "CuenclY - Paraguayan invoice processing and monthly export",
	Long: `CuenclY ingests Paraguayan invoices (SIFEN XML documents and scanned
PDFs or photos), reconciles their VAT buckets, and maintains deterministic
monthly exports in SQLite with CSV snapshots.

Amounts are handled as fixed-point decimals throughout; re-running a batch
over the same documents never changes the stored result.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("CuenclY invoice processing CLI")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
