package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rahttp "github.com/Strob0t/RegAdvisor/internal/adapter/http"
	"github.com/Strob0t/RegAdvisor/internal/config"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health and performance endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.LoadWithCLI(g.cliFlags(cmd))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					slog.Error("shutdown", "error", err)
				}
			}()
			slog.Info("config loaded", "path", path, "port", cfg.Server.Port, "log_level", cfg.Logging.Level)

			return serve(ctx, cfg, a)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, a *app) error {
	handlers := &rahttp.Handlers{Monitor: a.orchestrator}
	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           rahttp.NewRouter(handlers, cfg.OTel.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
