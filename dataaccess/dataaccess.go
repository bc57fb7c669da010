// Package dataaccess is the per-entity read/mutate layer. Reads are keyed by
// their owning id and cached; a successful mutation invalidates the reads of
// its entity so the caller's next read sees its own write.
package dataaccess

import (
	"context"
	"errors"
	"log/slog"

	"foodconnect/events"
	"foodconnect/querycache"
	"foodconnect/realtime"
	"foodconnect/store"
)

var (
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrInvalidCategory    = errors.New("unknown menu category")
	ErrNameRequired       = errors.New("name is required")
	ErrRestaurantRequired = errors.New("create a restaurant first")
	ErrForbidden          = errors.New("not allowed for this account")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrAlreadyAssigned    = errors.New("order already has a driver")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrItemUnavailable    = errors.New("menu item is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// MutationError carries the user-visible message for a failed mutation
type MutationError struct {
	Message string
	Err     error
}

func (e *MutationError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *MutationError) Unwrap() error { return e.Err }

// ChangePublisher is the write side of the realtime feed
type ChangePublisher interface {
	Publish(ctx context.Context, table string, event realtime.EventType, newRow, oldRow any) error
}

// Deps bundles what every entity service needs
type Deps struct {
	Store  *store.Store
	Cache  *querycache.Cache
	Images ImageStore
	Feed   ChangePublisher
	Events events.Publisher
	Log    *slog.Logger
}

type base struct {
	Deps
}

func (b base) fail(message string, err error, attrs ...any) error {
	b.Log.Error(message, append(attrs, "error", err)...)
	return &MutationError{Message: message, Err: err}
}

// invalidate logs rather than fails: the write already committed
func (b base) invalidate(ctx context.Context, prefixes ...string) {
	if err := b.Cache.Invalidate(ctx, prefixes...); err != nil {
		b.Log.Warn("query cache invalidation failed", "prefixes", prefixes, "error", err)
	}
}

func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
