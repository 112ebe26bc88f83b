package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/app"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/services"
)

func serveCmd() *cobra.Command {
	var trustedProxies []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI",
		Long: `Serve the web UI on the configured port. A session stored by an earlier
login is validated on startup and every collection is loaded for it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), trustedProxies)
		},
	}
	cmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxy", nil, "additional trusted proxy CIDR (repeatable)")
	return cmd
}

func runServe(ctx context.Context, trustedProxies []string) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err.Error())
		}
	}()

	if a.Auth.CheckToken(ctx) == services.StatusAuthenticated {
		if err := a.RefreshAll(ctx); err != nil {
			logger.Warn("Initial load failed", log.FieldError, err.Error())
		}
	}

	opts := apphttp.DefaultOptions()
	opts.TrustedProxies = trustedProxies
	srv, err := apphttp.NewServer(":"+cfg.Port, a, logger, opts)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting saldo server", "port", cfg.Port, "api_url", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			_ = srv.Shutdown(context.Background())
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
