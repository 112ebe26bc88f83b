package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"saldo/internal/core"
	ports "saldo/internal/sheets"
)

var (
	_ ports.LedgerWriter = (*Ledger)(nil)
	_ ports.LedgerReader = (*Ledger)(nil)
)

// Ledger keeps changes in memory, in append order.
type Ledger struct {
	mu    sync.Mutex
	rows  []core.Change
	index map[uuid.UUID]int
}

func New() *Ledger {
	return &Ledger{index: make(map[uuid.UUID]int)}
}

// Append stores the change and returns a synthetic row reference.
func (l *Ledger) Append(_ context.Context, c core.Change) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.index[c.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	l.rows = append(l.rows, c)
	l.index[c.ID] = len(l.rows) - 1
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

func (l *Ledger) RecentChanges(_ context.Context, limit int) ([]core.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.rows) {
		limit = len(l.rows)
	}
	out := make([]core.Change, 0, limit)
	for i := len(l.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.rows[i])
	}
	return out, nil
}

// Len returns the number of stored rows.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
