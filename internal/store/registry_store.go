package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/jackc/pgx/v5"
)

// pgTx implements registry.Tx on top of a pgx transaction.
type pgTx struct {
	tx    pgx.Tx
	owner domain.Principal
}

func (t *pgTx) Owner(context.Context) (domain.Principal, error) {
	return t.owner, nil
}

func (t *pgTx) LastEventID(ctx context.Context) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT last_event_id FROM registry_state WHERE id = 1`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("querying last event id: %w", err)
	}
	return id, nil
}

func (t *pgTx) HasOrganizer(ctx context.Context, p domain.Principal) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM organizers WHERE principal = $1)",
		string(p),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking organizer: %w", err)
	}
	return exists, nil
}

func (t *pgTx) ListOrganizers(ctx context.Context) ([]domain.Principal, error) {
	rows, err := t.tx.Query(ctx, `SELECT principal FROM organizers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying organizers: %w", err)
	}
	defer rows.Close()

	var organizers []domain.Principal
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning organizer: %w", err)
		}
		organizers = append(organizers, domain.Principal(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organizers: %w", err)
	}

	if organizers == nil {
		organizers = []domain.Principal{}
	}

	return organizers, nil
}

func (t *pgTx) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	var (
		e         domain.Event
		organizer string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, venue, date, organizer, verified, created_at
		FROM events WHERE id = $1
	`, id).Scan(
		&e.ID, &e.Name, &e.Venue, &e.Date, &organizer, &e.Verified, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("querying event: %w", err)
	}
	e.Organizer = domain.Principal(organizer)
	return e, nil
}

func (t *pgTx) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{Owner: t.owner}

	err := t.tx.QueryRow(ctx, `
		SELECT
			(SELECT last_event_id FROM registry_state WHERE id = 1),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE verified),
			(SELECT COUNT(*) FROM organizers)
	`).Scan(&st.LastEventID, &st.TotalEvents, &st.VerifiedEvents, &st.Organizers)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("querying registry stats: %w", err)
	}

	return st, nil
}

func (t *pgTx) InsertOrganizer(ctx context.Context, p domain.Principal) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO organizers (principal) VALUES ($1)
		ON CONFLICT (principal) DO NOTHING
	`, string(p))
	if err != nil {
		return fmt.Errorf("inserting organizer: %w", err)
	}
	return nil
}

func (t *pgTx) NextEventID(ctx context.Context) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		UPDATE registry_state SET last_event_id = last_event_id + 1
		WHERE id = 1
		RETURNING last_event_id
	`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("advancing event counter: %w", err)
	}
	return id, nil
}

func (t *pgTx) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO events (id, name, venue, date, organizer, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Name, e.Venue, e.Date, string(e.Organizer), e.Verified, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (t *pgTx) SetVerified(ctx context.Context, id int64) error {
	result, err := t.tx.Exec(ctx, `UPDATE events SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("verifying event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
