package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poravv/cuencly-backend/internal/api"
	"github.com/poravv/cuencly-backend/internal/config"
	"github.com/poravv/cuencly-backend/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve the processed invoice data over HTTP: monthly partitions,
summaries, snapshot listings, and an endpoint to trigger a processing run.

Optional environment variables:
  API_ADDR - Listen address (default: :8080)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("inbox", "", "Default document directory for POST /api/v1/process")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, repo, exporter, err := openExporter(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inboxDir, _ := cmd.Flags().GetString("inbox")
	pipe, err := buildPipeline(ctx, cfg, exporter)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewRouter(repo, exporter, pipe, inboxDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.APIAddr).Msg("HTTP API listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}
