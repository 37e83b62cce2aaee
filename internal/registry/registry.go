// Package registry implements the access-controlled event registry:
// role checks, event storage, and identifier allocation behind a single
// dispatcher. Every public operation runs inside one Store transaction.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
)

// Registry dispatches the public registry operations.
type Registry struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterEvent records a new event organized by caller and returns its id.
// The caller must be the owner or an organizer.
func (r *Registry) RegisterEvent(ctx context.Context, caller domain.Principal, name, venue string, date int64) (int64, error) {
	req := domain.RegisterEventRequest{Name: name, Venue: venue, Date: date}

	var id int64
	err := r.store.Update(ctx, func(tx Tx) error {
		ok, err := isOrganizer(ctx, tx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}
		if err := req.Validate(); err != nil {
			return err
		}
		id, err = insertEvent(ctx, tx, caller, req, r.now())
		return err
	})
	if err != nil {
		r.logFailure("register event", caller, err)
		return 0, err
	}

	r.logger.Info("event registered",
		"event_id", id,
		"organizer", caller,
		"date", date,
	)
	return id, nil
}

// VerifyEvent marks an existing event verified. Any organizer may verify any
// event, not only the ones it registered. Verifying twice succeeds.
func (r *Registry) VerifyEvent(ctx context.Context, caller domain.Principal, id int64) (bool, error) {
	err := r.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.GetEvent(ctx, id); err != nil {
			return err
		}
		ok, err := isOrganizer(ctx, tx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}
		return tx.SetVerified(ctx, id)
	})
	if err != nil {
		r.logFailure("verify event", caller, err, "event_id", id)
		return false, err
	}

	r.logger.Info("event verified", "event_id", id, "verifier", caller)
	return true, nil
}

// IsEventVerified reports the verification flag of an event. Unknown ids
// read as false rather than failing; the only possible error is a
// storage fault.
func (r *Registry) IsEventVerified(ctx context.Context, id int64) (bool, error) {
	var verified bool
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		verified, err = eventVerified(ctx, rd, id)
		return err
	})
	return verified, err
}

// GetEvent returns the full record, or domain.ErrNotFound.
func (r *Registry) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	var e domain.Event
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		e, err = rd.GetEvent(ctx, id)
		return err
	})
	return e, err
}

// AddEventOrganizer grants organizer rights to p. Only the owner may call it.
func (r *Registry) AddEventOrganizer(ctx context.Context, caller, p domain.Principal) (bool, error) {
	err := r.store.Update(ctx, func(tx Tx) error {
		return addOrganizer(ctx, tx, caller, p)
	})
	if err != nil {
		r.logFailure("add organizer", caller, err, "organizer", p)
		return false, err
	}

	r.logger.Info("organizer added", "organizer", p, "added_by", caller)
	return true, nil
}

func (r *Registry) Owner(ctx context.Context) (domain.Principal, error) {
	var owner domain.Principal
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		owner, err = rd.Owner(ctx)
		return err
	})
	return owner, err
}

func (r *Registry) LastEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		id, err = rd.LastEventID(ctx)
		return err
	})
	return id, err
}

// RoleOf reports whether p is an organizer and whether it is the owner.
func (r *Registry) RoleOf(ctx context.Context, p domain.Principal) (organizer, owner bool, err error) {
	err = r.store.View(ctx, func(rd Reader) error {
		var err error
		if owner, err = isOwner(ctx, rd, p); err != nil {
			return err
		}
		organizer, err = isOrganizer(ctx, rd, p)
		return err
	})
	return organizer, owner, err
}

// ListOrganizers returns the explicitly added organizers in the order they
// were added. The owner is not included unless it was added.
func (r *Registry) ListOrganizers(ctx context.Context) ([]domain.Principal, error) {
	var out []domain.Principal
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		out, err = rd.ListOrganizers(ctx)
		return err
	})
	if out == nil {
		out = []domain.Principal{}
	}
	return out, err
}

func (r *Registry) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := r.store.View(ctx, func(rd Reader) error {
		var err error
		s, err = rd.Stats(ctx)
		return err
	})
	return s, err
}

func (r *Registry) logFailure(op string, caller domain.Principal, err error, attrs ...any) {
	attrs = append([]any{"principal", caller, "error", err}, attrs...)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		r.logger.Warn(op+" rejected", attrs...)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput):
		r.logger.Info(op+" failed", attrs...)
	default:
		r.logger.Error(op+" failed", attrs...)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
