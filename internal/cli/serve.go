package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/config"
	"github.com/evcraddock/ticketboard/internal/logging"
	"github.com/evcraddock/ticketboard/internal/web"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long:  "Start an HTTP server for the ticket form, building boards and manager replies. Configuration is read from TB_* environment variables, optionally seeded from a .env file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, port, envFile)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "file to load environment variables from")

	return cmd
}

func runServe(ctx context.Context, port int, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.FromEnv()
	logging.Setup(cfg.DevMode)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	api := client.New(cfg.APIURL, cfg.APITimeout)
	handler, err := web.NewServer(database, api, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go runCleanup(ctx, handler)

	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "api", cfg.APIURL, "dev", cfg.DevMode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// runCleanup expires old sessions and drafts until ctx is done.
func runCleanup(ctx context.Context, srv *web.Server) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := srv.Cleanup(); err != nil {
				slog.Warn("cleanup failed", "error", err)
			}
		}
	}
}
