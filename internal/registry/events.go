package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
)

// insertEvent allocates the next id and stores a new unverified event
// owned by organizer.
func insertEvent(ctx context.Context, tx Tx, organizer domain.Principal, req domain.RegisterEventRequest, now time.Time) (int64, error) {
	id, err := tx.NextEventID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocating event id: %w", err)
	}

	err = tx.InsertEvent(ctx, domain.Event{
		ID:        id,
		Name:      req.Name,
		Venue:     req.Venue,
		Date:      req.Date,
		Organizer: organizer,
		Verified:  false,
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("inserting event %d: %w", id, err)
	}
	return id, nil
}

// eventVerified is the total read behind IsEventVerified: a missing
// event reads as unverified.
func eventVerified(ctx context.Context, r Reader, id int64) (bool, error) {
	e, err := r.GetEvent(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return e.Verified, nil
}
