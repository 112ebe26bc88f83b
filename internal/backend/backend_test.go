package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/config"
	"saldo/internal/core"
	"saldo/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{LedgerBackend: "excel"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		LedgerBackend:       "sheets",
		GoogleSpreadsheetID: "sheet-1",
		GoogleSheetName:     "Ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "sheet-1", cfg.GoogleSpreadsheetID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateLedger(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateLedger(ctx, cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, res.Close()) }()

			c := core.NewChange("incomes", core.OpCreated, 4, decimal.NewFromInt(1200), "Salary")
			_, err = res.Ledger.Append(ctx, c)
			require.NoError(t, err)

			got, err := res.Ledger.RecentChanges(ctx, 10)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, c.ID, got[0].ID)
		})
	}
}
