package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/notify"
	"saldo/internal/store"
)

// Remote is the REST collection a service synchronises with.
// *api.Resource implements it.
type Remote[T any] interface {
	List(ctx context.Context, parentID int64) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, payload any) (T, error)
	Update(ctx context.Context, id int64, payload any) (T, error)
	Delete(ctx context.Context, id int64) error
}

// ChangePublisher receives confirmed mutations. Publishing is best effort.
type ChangePublisher interface {
	Publish(ctx context.Context, c core.Change) error
}

// Deps are the collaborators shared by every service.
type Deps struct {
	// Notifier is used when the context carries none.
	Notifier  notify.Notifier
	Publisher ChangePublisher
	Logger    *log.Logger
}

// OperationError is returned to callers of a failed write. Message is what
// the user was shown.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Describe extracts the amount and a short label of a record for change events.
type Describe[T any] func(T) (decimal.Decimal, string)

// CollectionService binds one remote collection to its store. Every remote
// outcome becomes exactly one store transition; callers read the store.
type CollectionService[T core.Entity] struct {
	remote     Remote[T]
	store      *store.Collection[T]
	msgs       Messages
	describe   Describe[T]
	notifier   notify.Notifier
	publisher  ChangePublisher
	logger     *log.Logger
	structured *log.StructuredLogger

	// carry copies server-owned fields of the stored record into an edit.
	carry func(stored, edited T) T
}

// NewCollectionService wires a remote collection to a store.
func NewCollectionService[T core.Entity](remote Remote[T], st *store.Collection[T], msgs Messages, describe Describe[T], deps Deps) *CollectionService[T] {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSync).With(log.FieldCollection, msgs.Collection)
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if describe == nil {
		describe = func(T) (decimal.Decimal, string) { return decimal.Zero, "" }
	}
	return &CollectionService[T]{
		remote:     remote,
		store:      st,
		msgs:       msgs,
		describe:   describe,
		notifier:   notifier,
		publisher:  deps.Publisher,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// Collection returns the collection name used in messages and change events.
func (s *CollectionService[T]) Collection() string { return s.msgs.Collection }

// State returns the current store snapshot.
func (s *CollectionService[T]) State() store.State[T] { return s.store.Snapshot() }

// Store exposes the underlying state container.
func (s *CollectionService[T]) Store() *store.Collection[T] { return s.store }

// List refreshes the collection, optionally scoped to a parent record.
// An expired session empties the collection without raising an error.
// Failures are reported through the store and a notification, never returned.
func (s *CollectionService[T]) List(ctx context.Context, parentID int64) {
	n := notify.FromContext(ctx, s.notifier)
	ctx = context.WithoutCancel(ctx)

	s.store.BeginLoad()
	items, err := s.remote.List(ctx, parentID)
	switch {
	case err == nil:
		s.store.LoadSucceeded(items)
		s.logger.DebugContext(ctx, "Collection loaded", log.FieldParentID, parentID, log.FieldCount, len(items))
	case api.IsUnauthenticated(err):
		s.store.LoadSucceeded(nil)
		s.logger.DebugContext(ctx, "Session expired while listing, showing empty collection")
	default:
		msg := api.MessageOf(err, s.msgs.LoadError)
		notify.Error(ctx, n, s.msgs.ErrorTitle(), msg)
		s.store.LoadFailed(msg)
		s.logger.WarnContext(ctx, "Failed to load collection", log.FieldParentID, parentID, log.FieldError, err.Error())
	}
}

// Save creates the record when it has no id, otherwise updates it.
// On failure the returned *OperationError carries the message the user saw.
func (s *CollectionService[T]) Save(ctx context.Context, e T) (T, error) {
	n := notify.FromContext(ctx, s.notifier)
	ctx = context.WithoutCancel(ctx)

	if err := e.Validate(); err != nil {
		return e, s.fail(ctx, n, log.OpValidate, validationMessage(err), err)
	}

	if id := e.EntityID(); id != 0 {
		if s.carry != nil {
			if stored, ok := s.store.Find(id); ok {
				e = s.carry(stored, e)
			}
		}
		saved, err := s.remote.Update(ctx, id, e.UpdatePayload())
		if err != nil {
			return e, s.fail(ctx, n, log.OpUpdate, api.MessageOf(err, s.msgs.SaveError), err)
		}
		s.store.EntityUpdated(saved)
		notify.Success(ctx, n, s.msgs.UpdatedTitle, s.msgs.UpdatedText)
		s.confirmed(ctx, core.OpUpdated, saved)
		return saved, nil
	}

	saved, err := s.remote.Create(ctx, e.CreatePayload())
	if err != nil {
		return e, s.fail(ctx, n, log.OpCreate, api.MessageOf(err, s.msgs.SaveError), err)
	}
	s.store.EntityAdded(saved)
	notify.Success(ctx, n, s.msgs.CreatedTitle, s.msgs.CreatedText)
	s.confirmed(ctx, core.OpCreated, saved)
	return saved, nil
}

// Remove deletes the record. The store only changes once the server confirmed.
func (s *CollectionService[T]) Remove(ctx context.Context, e T) error {
	n := notify.FromContext(ctx, s.notifier)
	ctx = context.WithoutCancel(ctx)

	if err := s.remote.Delete(ctx, e.EntityID()); err != nil {
		return s.fail(ctx, n, log.OpDelete, api.MessageOf(err, s.msgs.DeleteError), err)
	}
	s.store.EntityRemoved(e.EntityID())
	notify.Success(ctx, n, s.msgs.DeletedTitle, s.msgs.DeletedText)
	s.confirmed(ctx, core.OpDeleted, e)
	return nil
}

// RemoveByID looks the record up in the store and removes it.
func (s *CollectionService[T]) RemoveByID(ctx context.Context, id int64) error {
	e, ok := s.store.Find(id)
	if !ok {
		return &OperationError{Op: log.OpDelete, Message: s.msgs.DeleteError, Err: ErrNotLoaded}
	}
	return s.Remove(ctx, e)
}

// ClearError resets the store error.
func (s *CollectionService[T]) ClearError() { s.store.ErrorCleared() }

// Select sets or clears the client-side selection.
func (s *CollectionService[T]) Select(e *T) { s.store.SetSelected(e) }

// Reset empties the store, e.g. when the session ends.
func (s *CollectionService[T]) Reset() {
	s.store.LoadSucceeded(nil)
	s.store.SetSelected(nil)
	s.store.ErrorCleared()
}

// Close tears the store down; responses still in flight are dropped.
func (s *CollectionService[T]) Close() { s.store.Close() }

func (s *CollectionService[T]) fail(ctx context.Context, n notify.Notifier, op, msg string, err error) error {
	notify.Error(ctx, n, s.msgs.ErrorTitle(), msg)
	s.store.Failed(msg)
	s.structured.LogError(ctx, "Collection operation failed", err, op, log.NewFields())
	return &OperationError{Op: op, Message: msg, Err: err}
}

func (s *CollectionService[T]) confirmed(ctx context.Context, op core.Operation, e T) {
	amount, label := s.describe(e)
	s.structured.LogMutation(ctx, string(op), e.EntityID(), amount)
	if s.publisher == nil {
		return
	}
	change := core.NewChange(s.msgs.Collection, op, e.EntityID(), amount, label)
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change",
			log.FieldOperation, log.OpPublish,
			log.FieldChangeID, change.ID.String(),
			log.FieldEntityID, e.EntityID(),
			log.FieldError, err.Error())
	}
}

// ErrNotLoaded is returned for ids the store does not hold.
var ErrNotLoaded = errors.New("record not loaded")

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter an amount greater than zero."
	case errors.Is(err, core.ErrInvalidPercentage):
		return "Percentages must be between 0 and 100."
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a valid date."
	case errors.Is(err, core.ErrInvalidMonth):
		return "Month must be between 1 and 12."
	case errors.Is(err, core.ErrInvalidYear):
		return "Enter a valid year."
	case errors.Is(err, core.ErrEmptyDescription):
		return "A description is required."
	case errors.Is(err, core.ErrEmptySource):
		return "A source is required."
	case errors.Is(err, core.ErrEmptyName):
		return "A name is required."
	case errors.Is(err, core.ErrMissingParent):
		return "Choose where this belongs before saving."
	default:
		return err.Error()
	}
}
