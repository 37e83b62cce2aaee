package domain

import (
	"fmt"
	"time"
)

const (
	MaxNameLen  = 100
	MaxVenueLen = 100
)

// Event is one registered event and its verification status.
// Only Verified changes after creation.
type Event struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	Date      int64     `json:"date"`
	Organizer Principal `json:"organizer"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterEventRequest struct {
	Name  string `json:"name"`
	Venue string `json:"venue"`
	Date  int64  `json:"date"`
}

type RegisterEventResponse struct {
	ID int64 `json:"id"`
}

type AddOrganizerRequest struct {
	Principal Principal `json:"principal"`
}

// Validate checks the bounds of a registration request.
func (r RegisterEventRequest) Validate() error {
	if r.Name == "" || len(r.Name) > MaxNameLen {
		return fmt.Errorf("%w: name must be 1-%d bytes", ErrInvalidInput, MaxNameLen)
	}
	if !storableText(r.Name) {
		return fmt.Errorf("%w: name must be valid UTF-8 without NUL bytes", ErrInvalidInput)
	}
	if r.Venue == "" || len(r.Venue) > MaxVenueLen {
		return fmt.Errorf("%w: venue must be 1-%d bytes", ErrInvalidInput, MaxVenueLen)
	}
	if !storableText(r.Venue) {
		return fmt.Errorf("%w: venue must be valid UTF-8 without NUL bytes", ErrInvalidInput)
	}
	if r.Date < 0 {
		return fmt.Errorf("%w: date must not be negative", ErrInvalidInput)
	}
	return nil
}

// Stats summarizes the persisted registry state.
type Stats struct {
	Owner          Principal `json:"owner"`
	LastEventID    int64     `json:"last_event_id"`
	TotalEvents    int64     `json:"total_events"`
	VerifiedEvents int64     `json:"verified_events"`
	Organizers     int64     `json:"organizers"`
}
