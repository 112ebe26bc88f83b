package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. SALDO_API_URL.
const EnvPrefix = "SALDO"

type Config struct {
	// HTTP Server
	Port string

	// Remote API
	APIURL     string
	APITimeout time.Duration

	// Session storage
	SessionBackend string
	SQLiteDBPath   string

	// AMQP change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger mirror written by the worker
	LedgerBackend    string
	LedgerSQLitePath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Logging
	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("api.url", "http://localhost:3000")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.sqlite_path", "./data/saldo.db")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "saldo")
	v.SetDefault("amqp.queue", "ledger_changes")
	v.SetDefault("ledger.backend", "memory")
	v.SetDefault("ledger.sqlite_path", "./data/ledger.db")
	v.SetDefault("google.spreadsheet_id", "")
	v.SetDefault("google.sheet_name", "Ledger")
	v.SetDefault("google.service_account_file", "")
	v.SetDefault("google.service_account_json", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes every key readable from SALDO_ prefixed variables, with dots
// replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from v. Defaults must already be registered.
func Load(v *viper.Viper) *Config {
	return &Config{
		Port: v.GetString("port"),

		APIURL:     strings.TrimRight(v.GetString("api.url"), "/"),
		APITimeout: v.GetDuration("api.timeout"),

		SessionBackend: v.GetString("session.backend"),
		SQLiteDBPath:   v.GetString("session.sqlite_path"),

		AMQPURL:      v.GetString("amqp.url"),
		AMQPExchange: v.GetString("amqp.exchange"),
		AMQPQueue:    v.GetString("amqp.queue"),

		LedgerBackend:    v.GetString("ledger.backend"),
		LedgerSQLitePath: v.GetString("ledger.sqlite_path"),

		GoogleSpreadsheetID:      v.GetString("google.spreadsheet_id"),
		GoogleSheetName:          v.GetString("google.sheet_name"),
		GoogleServiceAccountFile: v.GetString("google.service_account_file"),
		GoogleServiceAccountJSON: v.GetString("google.service_account_json"),

		LogLevel:  v.GetString("logging.level"),
		LogFormat: v.GetString("logging.format"),
	}
}

// FromEnv is Load on a fresh viper instance reading only defaults and the
// environment.
func FromEnv() *Config {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return Load(v)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate API
	if c.APIURL == "" {
		errors = append(errors, "API URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.APITimeout < time.Second || c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 1s and 5m", c.APITimeout))
	}

	// Validate session backend
	validSessionBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validSessionBackends, c.SessionBackend) {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validSessionBackends))
	}
	if c.SessionBackend == "sqlite" {
		errors = append(errors, checkSQLitePath("session", c.SQLiteDBPath)...)
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate ledger backend
	validLedgerBackends := []string{"memory", "sqlite", "sheets"}
	if !slices.Contains(validLedgerBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validLedgerBackends))
	}
	if c.LedgerBackend == "sqlite" {
		errors = append(errors, checkSQLitePath("ledger", c.LedgerSQLitePath)...)
	}

	// Validate Google Sheets configuration if ledger is sheets
	if c.LedgerBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets ledger")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets ledger")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either google.service_account_file, google.service_account_json or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets ledger")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate logging
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'console' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// checkSQLitePath requires a path whose directory exists or can be created.
func checkSQLitePath(what, path string) []string {
	if path == "" {
		return []string{fmt.Sprintf("SQLite database path cannot be empty when using sqlite %s backend", what)}
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
		}
	}
	return nil
}

// RequiresAMQP reports whether change events are published.
func (c *Config) RequiresAMQP() bool { return c.AMQPURL != "" }
