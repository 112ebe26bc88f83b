package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Resource is one REST collection of T.
type Resource[T any] struct {
	client *Client
	// Path is the collection path, e.g. "/incomes".
	Path string
	// ParentParam is the query parameter used to scope lists, e.g.
	// "monthlyBudgetId". Empty when the collection is never scoped.
	ParentParam string
}

// NewResource binds a collection path to a client.
func NewResource[T any](c *Client, path, parentParam string) *Resource[T] {
	return &Resource[T]{client: c, Path: path, ParentParam: parentParam}
}

// List fetches the collection. A zero parentID lists unscoped.
func (r *Resource[T]) List(ctx context.Context, parentID int64) ([]T, error) {
	var query url.Values
	if parentID != 0 && r.ParentParam != "" {
		query = url.Values{r.ParentParam: {strconv.FormatInt(parentID, 10)}}
	}
	var out []T
	if err := r.client.Do(ctx, http.MethodGet, r.Path, query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Get fetches a single record.
func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &out)
	return out, err
}

// Create posts a creation payload and returns the stored record.
func (r *Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPost, r.Path, nil, payload, &out)
	return out, err
}

// Update puts a partial payload and returns the stored record.
func (r *Resource[T]) Update(ctx context.Context, id int64, payload any) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), nil, payload, &out)
	return out, err
}

// Delete removes a record. Any response body is ignored.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.Path + "/" + strconv.FormatInt(id, 10)
}
