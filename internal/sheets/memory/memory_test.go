package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func TestLedgerAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	l := New()

	a := core.NewChange("incomes", core.OpCreated, 1, decimal.NewFromInt(10), "Salary")
	b := core.NewChange("expenses", core.OpDeleted, 2, decimal.NewFromInt(5), "")

	ref, err := l.Append(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	ref, err = l.Append(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "mem:2", ref)

	ref, err = l.Append(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref, "redelivery maps to the original row")
	assert.Equal(t, 2, l.Len())

	recent, err := l.RecentChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, b.ID, recent[0].ID)

	all, err := l.RecentChanges(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
