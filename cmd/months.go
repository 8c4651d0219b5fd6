package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/config"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List the stored monthly partitions",
	Long: `List every monthly partition in the database with its invoice count,
newest first. With --snapshots the CSV snapshot files on disk are listed
instead.`,
	Args: cobra.NoArgs,
	RunE: runMonths,
}

func init() {
	rootCmd.AddCommand(monthsCmd)

	monthsCmd.Flags().Bool("snapshots", false, "List CSV snapshot files instead of database partitions")
}

func runMonths(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, repo, exporter, err := openExporter(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if showSnapshots, _ := cmd.Flags().GetBool("snapshots"); showSnapshots {
		snapshots, err := exporter.Snapshots()
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No hay snapshots.")
			return nil
		}
		for _, s := range snapshots {
			fmt.Printf("%s  %s  %d filas  %d bytes\n", s.Partition, s.Filename, s.Rows, s.Size)
		}
		return nil
	}

	ctx := cmd.Context()
	months, err := repo.ListMonths(ctx)
	if err != nil {
		return err
	}
	if len(months) == 0 {
		fmt.Println("No hay facturas almacenadas.")
		return nil
	}

	counts, err := repo.Stats(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, m := range months {
		fmt.Printf("%s  %d facturas\n", m, counts[m])
		total += counts[m]
	}
	fmt.Printf("Total: %d facturas en %d meses\n", total, len(months))
	return nil
}
