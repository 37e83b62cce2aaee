package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/registry"

	_ "modernc.org/sqlite"
)

// TimeFormat is the fixed-width timestamp layout stored in SQLite, so that
// lexicographic order matches chronological order.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists the registry in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Write transactions take the database lock immediately.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	// escape ?, # and spaces so they stay part of the file name
	dsn := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// One connection serializes every transaction in this process.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS registry_state (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		owner         TEXT NOT NULL,
		last_event_id INTEGER NOT NULL DEFAULT 0 CHECK (last_event_id >= 0),
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY CHECK (id > 0),
		name       TEXT NOT NULL,
		venue      TEXT NOT NULL,
		date       INTEGER NOT NULL CHECK (date >= 0),
		organizer  TEXT NOT NULL,
		verified   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer);

	CREATE TABLE IF NOT EXISTS organizers (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		principal TEXT NOT NULL UNIQUE,
		added_at  TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create registry tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Init(ctx context.Context, owner domain.Principal) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_state (id, owner, last_event_id, created_at)
		VALUES (1, ?, 0, ?)
		ON CONFLICT (id) DO NOTHING
	`, string(owner), time.Now().UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("initialize registry state: %w", err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx, `SELECT owner FROM registry_state WHERE id = 1`).Scan(&stored); err != nil {
		return fmt.Errorf("query registry owner: %w", err)
	}
	if domain.Principal(stored) != owner {
		return fmt.Errorf("%w: stored %q, configured %q", domain.ErrOwnerMismatch, stored, owner)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(registry.Tx) error) error {
	return s.inTx(ctx, func(t *sqliteTx) error { return fn(t) }, true)
}

func (s *SQLiteStore) View(ctx context.Context, fn func(registry.Reader) error) error {
	return s.inTx(ctx, func(t *sqliteTx) error { return fn(t) }, false)
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sqliteTx) error, commit bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT owner FROM registry_state WHERE id = 1`).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotInitialized
		}
		return fmt.Errorf("query registry owner: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx, owner: domain.Principal(owner)}); err != nil {
		return err
	}

	if !commit {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqliteTx implements registry.Tx on top of a database/sql transaction.
type sqliteTx struct {
	tx    *sql.Tx
	owner domain.Principal
}

func (t *sqliteTx) Owner(context.Context) (domain.Principal, error) {
	return t.owner, nil
}

func (t *sqliteTx) LastEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := t.tx.QueryRowContext(ctx, `SELECT last_event_id FROM registry_state WHERE id = 1`).Scan(&id); err != nil {
		return 0, fmt.Errorf("query last event id: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) HasOrganizer(ctx context.Context, p domain.Principal) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizers WHERE principal = ?)`, string(p),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check organizer: %w", err)
	}
	return exists, nil
}

func (t *sqliteTx) ListOrganizers(ctx context.Context) ([]domain.Principal, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT principal FROM organizers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query organizers: %w", err)
	}
	defer rows.Close()

	organizers := []domain.Principal{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan organizer: %w", err)
		}
		organizers = append(organizers, domain.Principal(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizers: %w", err)
	}
	return organizers, nil
}

func (t *sqliteTx) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	var (
		e                    domain.Event
		organizer, createdAt string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, venue, date, organizer, verified, created_at
		FROM events WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.Venue, &e.Date, &organizer, &e.Verified, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("query event: %w", err)
	}

	e.Organizer = domain.Principal(organizer)
	if e.CreatedAt, err = time.Parse(TimeFormat, createdAt); err != nil {
		return domain.Event{}, fmt.Errorf("parse created_at of event %d: %w", id, err)
	}
	return e, nil
}

func (t *sqliteTx) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{Owner: t.owner}
	err := t.tx.QueryRowContext(ctx, `
		SELECT
			(SELECT last_event_id FROM registry_state WHERE id = 1),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE verified = 1),
			(SELECT COUNT(*) FROM organizers)
	`).Scan(&st.LastEventID, &st.TotalEvents, &st.VerifiedEvents, &st.Organizers)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("query registry stats: %w", err)
	}
	return st, nil
}

func (t *sqliteTx) InsertOrganizer(ctx context.Context, p domain.Principal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO organizers (principal, added_at) VALUES (?, ?)
		ON CONFLICT (principal) DO NOTHING
	`, string(p), time.Now().UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}

func (t *sqliteTx) NextEventID(ctx context.Context) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE registry_state SET last_event_id = last_event_id + 1
		WHERE id = 1
		RETURNING last_event_id
	`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("advance event counter: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) InsertEvent(ctx context.Context, e domain.Event) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (id, name, venue, date, organizer, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Venue, e.Date, string(e.Organizer), boolToInt(e.Verified), e.CreatedAt.UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *sqliteTx) SetVerified(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE events SET verified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("verify event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
