package services

import (
	"context"
	"errors"
	"sync"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/notify"
)

// fakeRemote is an in-memory Remote whose calls can be made to fail.
type fakeRemote[T any] struct {
	mu sync.Mutex

	items   []T
	one     T
	created T
	updated T
	err     error

	calls    []string
	payloads []any
	parents  []int64
}

func (f *fakeRemote[T]) record(call string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if payload != nil {
		f.payloads = append(f.payloads, payload)
	}
	return f.err
}

func (f *fakeRemote[T]) List(_ context.Context, parentID int64) ([]T, error) {
	f.mu.Lock()
	f.parents = append(f.parents, parentID)
	f.mu.Unlock()
	if err := f.record("list", nil); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeRemote[T]) Get(_ context.Context, _ int64) (T, error) {
	var zero T
	if err := f.record("get", nil); err != nil {
		return zero, err
	}
	return f.one, nil
}

func (f *fakeRemote[T]) Create(_ context.Context, payload any) (T, error) {
	var zero T
	if err := f.record("create", payload); err != nil {
		return zero, err
	}
	return f.created, nil
}

func (f *fakeRemote[T]) Update(_ context.Context, _ int64, payload any) (T, error) {
	var zero T
	if err := f.record("update", payload); err != nil {
		return zero, err
	}
	return f.updated, nil
}

func (f *fakeRemote[T]) Delete(_ context.Context, _ int64) error {
	return f.record("delete", nil)
}

func (f *fakeRemote[T]) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []core.Change
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, c core.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, c)
	return nil
}

func (p *fakePublisher) Changes() []core.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Change(nil), p.changes...)
}

func apiError(status int, msg string) error {
	return &api.Error{StatusCode: status, Method: "GET", Path: "/x", Message: msg}
}

var errNetwork = errors.New("dial tcp: connection refused")

func testDeps(pub ChangePublisher) (Deps, *notify.Collector) {
	c := &notify.Collector{}
	deps := Deps{Notifier: c, Logger: log.Discard()}
	if pub != nil {
		deps.Publisher = pub
	}
	return deps, c
}
