package registry

import (
	"context"

	"github.com/Priya8975/event-registry/internal/domain"
)

func isOwner(ctx context.Context, r Reader, p domain.Principal) (bool, error) {
	owner, err := r.Owner(ctx)
	if err != nil {
		return false, err
	}
	return p == owner, nil
}

// isOrganizer reports whether p may register and verify events.
// The owner is always an organizer, whether or not it was added explicitly.
func isOrganizer(ctx context.Context, r Reader, p domain.Principal) (bool, error) {
	owner, err := isOwner(ctx, r, p)
	if err != nil {
		return false, err
	}
	if owner {
		return true, nil
	}
	return r.HasOrganizer(ctx, p)
}

// addOrganizer grows the organizer set. Only the owner may call it and
// there is no inverse operation.
func addOrganizer(ctx context.Context, tx Tx, caller, p domain.Principal) error {
	ok, err := isOwner(ctx, tx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return tx.InsertOrganizer(ctx, p)
}
