package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"saldo/internal/api"
	"saldo/internal/app"
	"saldo/internal/log"
)

func loginCmd() *cobra.Command {
	var creds api.Credentials
	var register bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session",
		Long: `Log in (or register with --register) and store the session. The session
outlives the process only with the sqlite session backend.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("SALDO_PASSWORD")
			}
			if cfg.SessionBackend != "sqlite" {
				logger.Warn("Session backend is memory; the session ends with this command")
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			start := a.Auth.Login
			if register {
				start = a.Auth.Register
			}
			if err := start(cmd.Context(), creds); err != nil {
				return err
			}
			if u := a.Auth.User(); u != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", u.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (default: $SALDO_PASSWORD)")
	cmd.Flags().BoolVar(&register, "register", false, "create the account first")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Auth.Logout(cmd.Context()); err != nil {
				logger.Error("Failed to clear session", log.FieldOperation, log.OpLogout, log.FieldError, err.Error())
				return errors.New("logout failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
