package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/config"
)

var monthArgPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var summaryCmd = &cobra.Command{
	Use:     "summary [YYYY-MM]",
	Short:   "Show the VAT totals of one monthly partition",
	Example: `  cuencly summary 2026-08`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	partition := args[0]
	if !monthArgPattern.MatchString(partition) {
		return fmt.Errorf("invalid month %q, expected YYYY-MM", partition)
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

	summary, err := exporter.Summary(cmd.Context(), partition)
	if err != nil {
		return err
	}
	if summary.Invoices == 0 {
		fmt.Printf("No hay facturas para %s.\n", partition)
		return nil
	}

	fmt.Println(strings.Repeat("=", 44))
	fmt.Printf("        RESUMEN MENSUAL %s\n", summary.Partition)
	fmt.Println(strings.Repeat("=", 44))
	fmt.Printf("Facturas:     %d (con CDC: %d)\n", summary.Invoices, summary.WithCDC)
	fmt.Printf("Gravada 10%%:  %s\n", summary.TaxedBase10)
	fmt.Printf("IVA 10%%:      %s\n", summary.Tax10)
	fmt.Printf("Gravada 5%%:   %s\n", summary.TaxedBase5)
	fmt.Printf("IVA 5%%:       %s\n", summary.Tax5)
	fmt.Printf("Exentas:      %s\n", summary.Exempt)
	fmt.Printf("Total:        %s\n", summary.Total)
	fmt.Println(strings.Repeat("=", 44))
	return nil
}
