package backend

import (
	"context"
	"fmt"

	"saldo/internal/log"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/sheets/memory"
	"saldo/internal/storage"
)

// Ledger is what every ledger backend provides.
type Ledger interface {
	sheets.LedgerWriter
	sheets.LedgerReader
}

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// Result contains the ledger and an optional cleanup function
type Result struct {
	Ledger  Ledger
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledgers based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentWorker)}
}

// CreateLedger builds the ledger selected by config.Type.
func (f *Factory) CreateLedger(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteLedger(config)
	case SheetsBackend:
		return f.createSheetsLedger(ctx, config)
	default:
		f.logger.InfoContext(ctx, "Initialized memory ledger")
		return &Result{Ledger: memory.New()}, nil
	}
}

func (f *Factory) createSQLiteLedger(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
	}
	f.logger.Info("Initialized SQLite ledger", "db_path", config.SQLiteDBPath)
	return &Result{Ledger: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createSheetsLedger(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets ledger", "sheet", config.GoogleSheetName)
	return &Result{Ledger: cli}, nil
}
