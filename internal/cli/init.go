// Package cli provides common CLI initialization utilities shared by the
// saldo subcommands: environment and config file loading, logger setup and
// signal handling.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"saldo/internal/config"
	"saldo/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ReadConfig registers defaults and environment bindings on v, then reads
// cfgFile, or config.yaml from $HOME/.config/saldo or the working directory.
// A missing config file is not an error.
func ReadConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "saldo"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// LoadAndValidateConfig builds the configuration from v and validates it.
func LoadAndValidateConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger creates the process logger from the configured level and
// format and makes it the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format := log.FormatConsole
	if cfg.LogFormat == string(log.FormatJSON) {
		format = log.FormatJSON
	}
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentApp,
		Format:    format,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// GracefulShutdown waits for ctx to end, then runs stop with a fresh
// context bounded by timeout.
func GracefulShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, stop func(context.Context) error) error {
	<-ctx.Done()
	logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := stop(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached", slog.Duration("timeout", timeout))
		}
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
