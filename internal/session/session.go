// Package session keeps the credential of the logged-in user.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"saldo/internal/api"
	"saldo/internal/core"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no session")

// Session is the stored credential and the user it belongs to.
type Session struct {
	Token    string
	IssuedAt time.Time
	User     core.User
}

// Store persists the current session.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Tokens exposes the stored token as the API bearer credential. A missing
// session yields an empty token rather than an error.
func Tokens(st Store) api.TokenSource {
	return api.TokenFunc(func(ctx context.Context) (string, error) {
		s, err := st.Load(ctx)
		if errors.Is(err, ErrNoSession) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return s.Token, nil
	})
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	current *Session
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, ErrNoSession
	}
	return *m.current, nil
}

func (m *Memory) Save(_ context.Context, s Session) error {
	if s.Token == "" {
		return errors.New("session token cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
