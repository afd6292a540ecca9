// Package store owns the military_requests collection: create, partial
// update, delete and a live ordered query whose subscribers receive the
// full result set after every change.
package store

import (
	"context"
	"errors"

	"github.com/patiponrmutl/thaimilitary/models"
)

var (
	ErrNotFound       = errors.New("request not found")
	ErrStoreOperation = errors.New("store operation failed")
	ErrImmutableField = errors.New("field cannot be updated")
	ErrInvalidStatus  = errors.New("invalid status transition")
)

// Fields is a partial update keyed by column name.
type Fields map[string]any

// RequestStore is the request collection as seen by the form, the
// dashboard and the feed.
type RequestStore interface {
	Create(ctx context.Context, r *models.Request) (string, error)
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Request, error)

	// List returns every request ordered by timestamp, newest first.
	List(ctx context.Context) ([]models.Request, error)

	// Subscribe opens a live query over List. The current result set
	// is delivered immediately, then again after every change.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a standing live query. Snapshots is closed when the
// subscription ends; Err reports why if it was not Unsubscribe.
type Subscription interface {
	Snapshots() <-chan []models.Request
	Err() error
	Unsubscribe()
}
