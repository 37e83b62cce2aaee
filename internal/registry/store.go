package registry

import (
	"context"

	"github.com/Priya8975/event-registry/internal/domain"
)

// Reader is a consistent read-only view of the registry state.
type Reader interface {
	Owner(ctx context.Context) (domain.Principal, error)
	LastEventID(ctx context.Context) (int64, error)
	HasOrganizer(ctx context.Context, p domain.Principal) (bool, error)
	ListOrganizers(ctx context.Context) ([]domain.Principal, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Tx is a read-write view that commits or discards as a unit.
// Implementations hold the registry-wide write lock for the lifetime of the Tx.
type Tx interface {
	Reader

	// InsertOrganizer adds p to the organizer set. Adding an existing
	// member is a no-op.
	InsertOrganizer(ctx context.Context, p domain.Principal) error

	// NextEventID advances the event counter and returns the new value.
	NextEventID(ctx context.Context) (int64, error)

	InsertEvent(ctx context.Context, e domain.Event) error

	// SetVerified marks the event verified, returning domain.ErrNotFound
	// if it does not exist.
	SetVerified(ctx context.Context, id int64) error
}

// Store owns the persisted registry state.
//
// Update runs fn atomically: if fn returns nil every write is committed,
// otherwise none is. Calls to Update never interleave.
type Store interface {
	Init(ctx context.Context, owner domain.Principal) error
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
