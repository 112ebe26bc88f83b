// Package store holds the client-side state of each API collection.
//
// A Collection keeps the last confirmed list of records, the running sum of
// their amounts, the request status and two independent selections: the
// record the server flags as active, and the record the user is working on.
// State only changes through the transition methods, each applied atomically.
package store

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Options parameterize a Collection for one entity type.
type Options[T any] struct {
	// ID returns the server-assigned identifier. Required.
	ID func(T) int64
	// Amount returns the summed field. Nil means no aggregate is tracked.
	Amount func(T) decimal.Decimal
	// Active reports whether the server flags the record as active.
	// Nil means the collection has no active selection.
	Active func(T) bool
}

// State is a consistent snapshot of a Collection.
type State[T any] struct {
	Items     []T
	Aggregate decimal.Decimal
	IsLoading bool
	// Error is empty when no error is set.
	Error string
	// Active is the first item matching the active predicate.
	Active *T
	// Selected is the client-side selection, unrelated to Active.
	Selected *T
}

// Collection is the state container for one entity type.
type Collection[T any] struct {
	mu        sync.RWMutex
	opts      Options[T]
	items     []T
	aggregate decimal.Decimal
	loading   bool
	err       string
	activeID  int64
	hasActive bool
	selected  *T
	closed    bool
}

// New creates an empty collection.
func New[T any](opts Options[T]) *Collection[T] {
	if opts.ID == nil {
		panic("store: Options.ID is required")
	}
	return &Collection[T]{opts: opts, aggregate: decimal.Zero}
}

// BeginLoad marks a list request as in flight and clears the error.
func (c *Collection[T]) BeginLoad() {
	c.apply(func() {
		c.loading = true
		c.err = ""
	})
}

// LoadSucceeded replaces the items wholesale. Later duplicates of an id
// already seen in the payload are dropped. A selection whose id is gone is
// cleared; one that is still listed follows the reloaded record.
func (c *Collection[T]) LoadSucceeded(items []T) {
	c.apply(func() {
		var sel int64
		if c.selected != nil {
			sel = c.opts.ID(*c.selected)
		}
		c.loading = false
		seen := make(map[int64]struct{}, len(items))
		next := make([]T, 0, len(items))
		for _, it := range items {
			id := c.opts.ID(it)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, it)
		}
		c.items = next
		c.recompute()
		if c.selected != nil {
			c.selected = nil
			if i := c.indexOf(sel); i >= 0 {
				v := c.items[i]
				c.selected = &v
			}
		}
	})
}

// LoadFailed ends a list request with an error. Items and aggregate are kept.
func (c *Collection[T]) LoadFailed(msg string) {
	c.apply(func() {
		c.loading = false
		c.err = msg
	})
}

// Failed records the error of a write. The loading flag belongs to list
// requests and is left alone.
func (c *Collection[T]) Failed(msg string) {
	c.apply(func() {
		c.err = msg
	})
}

// EntityAdded appends a created record. A record whose id is already present
// replaces it in place instead.
func (c *Collection[T]) EntityAdded(e T) {
	c.apply(func() {
		if i := c.indexOf(c.opts.ID(e)); i >= 0 {
			c.replaceAt(i, e)
			return
		}
		c.items = append(c.items, e)
		c.aggregate = c.aggregate.Add(c.amount(e))
		c.refreshActive()
	})
}

// EntityUpdated replaces a record in place. Unknown ids are ignored.
func (c *Collection[T]) EntityUpdated(e T) {
	c.apply(func() {
		if i := c.indexOf(c.opts.ID(e)); i >= 0 {
			c.replaceAt(i, e)
		}
	})
}

// EntityRemoved drops a record by id. Unknown ids are ignored.
func (c *Collection[T]) EntityRemoved(id int64) {
	c.apply(func() {
		i := c.indexOf(id)
		if i < 0 {
			return
		}
		c.aggregate = c.aggregate.Sub(c.amount(c.items[i]))
		c.items = append(c.items[:i:i], c.items[i+1:]...)
		if c.selected != nil && c.opts.ID(*c.selected) == id {
			c.selected = nil
		}
		c.refreshActive()
	})
}

// ErrorCleared resets the error.
func (c *Collection[T]) ErrorCleared() {
	c.apply(func() {
		c.err = ""
	})
}

// SetSelected sets or clears the client-side selection. The record need not
// be listed, e.g. a budget fetched on its own; it stays selected until it is
// removed or a reload no longer lists it.
func (c *Collection[T]) SetSelected(e *T) {
	c.apply(func() {
		if e == nil {
			c.selected = nil
			return
		}
		v := *e
		c.selected = &v
	})
}

// Close tears the collection down. Transitions after Close are no-ops, so
// responses that land after the owner went away are dropped silently.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *Collection[T]) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Snapshot returns a copy of the current state.
func (c *Collection[T]) Snapshot() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := State[T]{
		Items:     append([]T(nil), c.items...),
		Aggregate: c.aggregate,
		IsLoading: c.loading,
		Error:     c.err,
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	if c.hasActive {
		if i := c.indexOf(c.activeID); i >= 0 {
			v := c.items[i]
			s.Active = &v
		}
	}
	if c.selected != nil {
		v := *c.selected
		s.Selected = &v
	}
	return s
}

// Find returns the record with the given id.
func (c *Collection[T]) Find(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) apply(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	fn()
}

func (c *Collection[T]) replaceAt(i int, e T) {
	c.aggregate = c.aggregate.Sub(c.amount(c.items[i])).Add(c.amount(e))
	c.items[i] = e
	if c.selected != nil && c.opts.ID(*c.selected) == c.opts.ID(e) {
		v := e
		c.selected = &v
	}
	c.refreshActive()
}

func (c *Collection[T]) recompute() {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(c.amount(it))
	}
	c.aggregate = sum
	c.refreshActive()
}

// refreshActive points the active selection at the first matching item.
func (c *Collection[T]) refreshActive() {
	c.hasActive = false
	c.activeID = 0
	if c.opts.Active == nil {
		return
	}
	for _, it := range c.items {
		if c.opts.Active(it) {
			c.activeID = c.opts.ID(it)
			c.hasActive = true
			return
		}
	}
}

func (c *Collection[T]) amount(e T) decimal.Decimal {
	if c.opts.Amount == nil {
		return decimal.Zero
	}
	return c.opts.Amount(e)
}

func (c *Collection[T]) indexOf(id int64) int {
	for i, it := range c.items {
		if c.opts.ID(it) == id {
			return i
		}
	}
	return -1
}
