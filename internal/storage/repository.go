package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/session"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the session and the local change ledger.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements session.Store
func (r *SQLiteRepository) Load(ctx context.Context) (session.Session, error) {
	var (
		s        session.Session
		issuedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, issued_at, user_id, user_email, user_created_at FROM sessions WHERE id = 1`).
		Scan(&s.Token, &issuedAt, &s.User.ID, &s.User.Email, &s.User.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNoSession
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	if s.IssuedAt, err = time.Parse(time.RFC3339Nano, issuedAt); err != nil {
		return session.Session{}, fmt.Errorf("parse session issue time: %w", err)
	}
	return s, nil
}

// Save implements session.Store
func (r *SQLiteRepository) Save(ctx context.Context, s session.Session) error {
	if s.Token == "" {
		return errors.New("session token cannot be empty")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, issued_at, user_id, user_email, user_created_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			issued_at = excluded.issued_at,
			user_id = excluded.user_id,
			user_email = excluded.user_email,
			user_created_at = excluded.user_created_at`,
		s.Token, s.IssuedAt.UTC().Format(time.RFC3339Nano), s.User.ID, s.User.Email, s.User.CreatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear implements session.Store
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Append implements sheets.LedgerWriter. Redelivered changes are ignored,
// so the returned reference is the change id either way.
func (r *SQLiteRepository) Append(ctx context.Context, c core.Change) (string, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO changes (id, collection, operation, entity_id, amount, label, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Collection, string(c.Operation), c.EntityID, c.Amount.String(), c.Label,
		c.OccurredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("append change: %w", err)
	}
	return "sqlite:" + c.ID.String(), nil
}

// RecentChanges returns the latest changes, newest first.
func (r *SQLiteRepository) RecentChanges(ctx context.Context, limit int) ([]core.Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, collection, operation, entity_id, amount, label, occurred_at
		FROM changes ORDER BY occurred_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var out []core.Change
	for rows.Next() {
		var (
			c                      core.Change
			id, op, amount, occurs string
		)
		if err := rows.Scan(&id, &c.Collection, &op, &c.EntityID, &amount, &c.Label, &occurs); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse change id: %w", err)
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse change amount: %w", err)
		}
		if c.OccurredAt, err = time.Parse(time.RFC3339Nano, occurs); err != nil {
			return nil, fmt.Errorf("parse change time: %w", err)
		}
		c.Operation = core.Operation(op)
		out = append(out, c)
	}
	return out, rows.Err()
}
