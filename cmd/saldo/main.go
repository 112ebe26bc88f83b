package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/log"
)

var (
	cfgFile string
	version = "dev"

	// v holds flags, environment and the config file; cfg and logger are
	// resolved from it before any subcommand runs.
	v      = viper.New()
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "saldo",
		Short: "Personal budget client",
		Long: `saldo keeps incomes, expenses, savings, budget categories, category
templates and monthly budgets in sync with the budget API. It serves a web UI
and mirrors confirmed changes into a ledger.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/saldo/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the budget API")

	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	cli.LoadEnvFile()

	ctx, cancel := cli.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := cli.ReadConfig(v, cfgFile); err != nil {
		return err
	}
	c, err := cli.LoadAndValidateConfig(v)
	if err != nil {
		return err
	}
	l, err := cli.SetupLogger(c)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	cfg, logger = c, l
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "saldo %s\n", version)
		},
	}
}
