package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/sheets/memory"
)

// feedConsumer hands its changes to the handler, then waits for cancellation.
type feedConsumer struct {
	changes []core.Change

	mu      sync.Mutex
	results []error
}

func (f *feedConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, c := range f.changes {
		err := handler(ctx, c)
		f.mu.Lock()
		f.results = append(f.results, err)
		f.mu.Unlock()
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *feedConsumer) Results() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.results...)
}

type failingLedger struct{ err error }

func (f failingLedger) Append(context.Context, core.Change) (string, error) { return "", f.err }

func change(op core.Operation, id int64) core.Change {
	return core.NewChange("expenses", op, id, decimal.NewFromInt(id), "row")
}

func TestHandleChangeAppends(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(nil, ledger, DefaultConfig(), log.Discard())

	require.NoError(t, w.HandleChange(context.Background(), change(core.OpCreated, 1)))
	require.NoError(t, w.HandleChange(context.Background(), change(core.OpDeleted, 1)))

	got, err := ledger.RecentChanges(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.OpDeleted, got[0].Operation)
}

func TestHandleChangeSkipsRedelivery(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(nil, ledger, Config{RecentWindow: 2}, log.Discard())
	c := change(core.OpCreated, 7)

	require.NoError(t, w.HandleChange(context.Background(), c))
	require.NoError(t, w.HandleChange(context.Background(), c))
	assert.Equal(t, 1, ledger.Len())
}

func TestRecentWindowIsBounded(t *testing.T) {
	w := NewLedgerWorker(nil, memory.New(), Config{RecentWindow: 2}, log.Discard())
	a, b, c := change(core.OpCreated, 1), change(core.OpCreated, 2), change(core.OpCreated, 3)
	for _, ch := range []core.Change{a, b, c} {
		require.NoError(t, w.HandleChange(context.Background(), ch))
	}
	assert.False(t, w.wasWritten(a.ID), "oldest id evicted")
	assert.True(t, w.wasWritten(c.ID))
	assert.Equal(t, 2, w.seen.Size())
}

func TestHandleChangeFailureIsReturned(t *testing.T) {
	cause := errors.New("quota exceeded")
	w := NewLedgerWorker(nil, failingLedger{err: cause}, DefaultConfig(), log.Discard())
	c := change(core.OpCreated, 1)

	err := w.HandleChange(context.Background(), c)

	assert.ErrorIs(t, err, cause)
	assert.False(t, w.wasWritten(c.ID), "a failed write is retried on redelivery")
}

func TestStartStop(t *testing.T) {
	ledger := memory.New()
	consumer := &feedConsumer{changes: []core.Change{change(core.OpCreated, 1), change(core.OpUpdated, 1)}}
	w := NewLedgerWorker(consumer, ledger, DefaultConfig(), log.Discard())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "double start")

	require.Eventually(t, func() bool { return ledger.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	<-w.Done()
	assert.False(t, w.IsRunning())
	assert.ErrorIs(t, w.Err(), context.Canceled)
	assert.Equal(t, []error{nil, nil}, consumer.Results())
	assert.NoError(t, w.Stop(ctx), "stop is idempotent")
}
