package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/sheets"
)

// Consumer delivers change events until its context is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Config holds configuration for the ledger worker
type Config struct {
	// RecentWindow is how many change ids are remembered to skip broker
	// redeliveries of changes already written (default: 1024)
	RecentWindow int

	// RecentTTL is how long a written change id is remembered (default: 24h)
	RecentTTL time.Duration

	// AppendTimeout bounds a single ledger write (default: 15s)
	AppendTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RecentWindow:  1024,
		RecentTTL:     24 * time.Hour,
		AppendTimeout: 15 * time.Second,
	}
}

// LedgerWorker mirrors confirmed changes into the ledger.
type LedgerWorker struct {
	consumer Consumer
	ledger   sheets.LedgerWriter
	config   Config
	logger   *log.Logger

	seen   *cache.LRUCache[struct{}]
	caches *cache.Manager

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewLedgerWorker(consumer Consumer, ledger sheets.LedgerWriter, config Config, logger *log.Logger) *LedgerWorker {
	if config.RecentWindow <= 0 {
		config.RecentWindow = DefaultConfig().RecentWindow
	}
	if config.RecentTTL <= 0 {
		config.RecentTTL = DefaultConfig().RecentTTL
	}
	if config.AppendTimeout <= 0 {
		config.AppendTimeout = DefaultConfig().AppendTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)

	seen := cache.NewLRUCache[struct{}](config.RecentWindow, config.RecentTTL)
	caches := cache.NewManager(logger)
	caches.Register(seen)

	return &LedgerWorker{
		consumer: consumer,
		ledger:   ledger,
		config:   config,
		logger:   logger,
		seen:     seen,
		caches:   caches,
	}
}

// HandleChange writes one change to the ledger. It is the consumer handler;
// an error makes the broker redeliver the change.
func (w *LedgerWorker) HandleChange(ctx context.Context, c core.Change) error {
	if w.wasWritten(c.ID) {
		w.logger.DebugContext(ctx, "Skipping redelivered change", log.FieldChangeID, c.ID.String())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.AppendTimeout)
	defer cancel()

	ref, err := w.ledger.Append(ctx, c)
	if err != nil {
		return fmt.Errorf("append change %s: %w", c.ID, err)
	}
	w.remember(c.ID)

	w.logger.InfoContext(ctx, "Change written to ledger",
		log.FieldChangeID, c.ID.String(),
		log.FieldCollection, c.Collection,
		log.FieldOperation, string(c.Operation),
		log.FieldEntityID, c.EntityID,
		log.FieldAmount, c.Amount.String(),
		log.FieldLedgerRef, ref)
	return nil
}

func (w *LedgerWorker) wasWritten(id uuid.UUID) bool {
	_, ok := w.seen.Get(id.String())
	return ok
}

func (w *LedgerWorker) remember(id uuid.UUID) {
	w.seen.Set(id.String(), struct{}{})
}

// Start begins consuming. Returns an error if already running.
func (w *LedgerWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("ledger worker is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.err = nil
	w.mu.Unlock()

	w.caches.StartCleanup(w.config.RecentTTL / 4)
	go w.run(runCtx)

	w.logger.InfoContext(ctx, "Ledger worker started")
	return nil
}

func (w *LedgerWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	err := w.consumer.Consume(ctx, w.HandleChange)
	if err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Consumer stopped", log.FieldError, err.Error())
	}
	w.mu.Lock()
	w.err = err
	w.running = false
	w.mu.Unlock()
}

// Stop cancels consumption and waits for the in-flight change to finish.
func (w *LedgerWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	defer w.caches.Stop()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Ledger worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Ledger worker stop timed out")
		return ctx.Err()
	}
}

// Done is closed when consumption ends, on Stop or on a fatal consumer error.
func (w *LedgerWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// Err returns the error consumption ended with, if any.
func (w *LedgerWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// IsRunning returns whether the worker is currently consuming
func (w *LedgerWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
