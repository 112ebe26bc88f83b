// Package notify carries user-visible notifications from the sync layer to
// whatever is rendering the response.
package notify

import (
	"context"
	"sync"

	"saldo/internal/log"
)

// Kind is the notification severity shown to the user.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one message for the user.
type Notification struct {
	Kind    Kind
	Title   string
	Message string
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Success is a shorthand for a success notification.
func Success(ctx context.Context, n Notifier, title, msg string) {
	n.Notify(ctx, Notification{Kind: KindSuccess, Title: title, Message: msg})
}

// Error is a shorthand for an error notification.
func Error(ctx context.Context, n Notifier, title, msg string) {
	n.Notify(ctx, Notification{Kind: KindError, Title: title, Message: msg})
}

// LogNotifier writes notifications to the log. Used when nobody is
// listening, e.g. background refreshes and the CLI.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	if n.Kind == KindError {
		l.logger.WarnContext(ctx, n.Message, "title", n.Title, "kind", string(n.Kind))
		return
	}
	l.logger.InfoContext(ctx, n.Message, "title", n.Title, "kind", string(n.Kind))
}

// Collector gathers notifications raised while serving one request.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// Drain returns the collected notifications and resets the collector.
func (c *Collector) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

// Last returns the most recent notification.
func (c *Collector) Last() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Notification{}, false
	}
	return c.items[len(c.items)-1], true
}

type ctxKey struct{}

// WithNotifier scopes a notifier to ctx.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notifier scoped to ctx, or fallback.
func FromContext(ctx context.Context, fallback Notifier) Notifier {
	if n, ok := ctx.Value(ctxKey{}).(Notifier); ok {
		return n
	}
	return fallback
}
