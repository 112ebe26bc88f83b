package sheets

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound ledger adapters.
type (
	// LedgerWriter appends one row per confirmed change. Appending the same
	// change twice must not produce two rows where the backend can tell.
	LedgerWriter interface {
		Append(ctx context.Context, c core.Change) (rowRef string, err error)
	}

	// LedgerReader returns the most recent changes, newest first.
	LedgerReader interface {
		RecentChanges(ctx context.Context, limit int) ([]core.Change, error)
	}
)
