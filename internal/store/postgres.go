package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/registry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Pool exposes the underlying pool for maintenance statements outside the
// registry operations, such as resetting tables between integration tests.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	return s.RunMigrations(ctx, sub)
}

// RunMigrations executes all .up.sql migration files in fsys in name order,
// skipping those already recorded in schema_migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context, fsys fs.FS) error {
	// Create migrations tracking table
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var migrations []string
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".up.sql") {
			migrations = append(migrations, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	sort.Strings(migrations)

	for _, p := range migrations {
		version := path.Base(p)

		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		sql, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		if err := s.applyMigration(ctx, version, string(sql)); err != nil {
			return err
		}
	}

	return nil
}

func (s *PostgresStore) applyMigration(ctx context.Context, version, sql string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("recording migration %s: %w", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %s: %w", version, err)
	}
	return nil
}

// Init creates the singleton state row on first start. A later Init with a
// different owner fails with domain.ErrOwnerMismatch.
func (s *PostgresStore) Init(ctx context.Context, owner domain.Principal) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO registry_state (id, owner, last_event_id)
		VALUES (1, $1, 0)
		ON CONFLICT (id) DO NOTHING
	`, string(owner))
	if err != nil {
		return fmt.Errorf("initializing registry state: %w", err)
	}

	var stored string
	if err := s.pool.QueryRow(ctx, `SELECT owner FROM registry_state WHERE id = 1`).Scan(&stored); err != nil {
		return fmt.Errorf("querying registry owner: %w", err)
	}
	if domain.Principal(stored) != owner {
		return fmt.Errorf("%w: stored %q, configured %q", domain.ErrOwnerMismatch, stored, owner)
	}
	return nil
}

// Update runs fn in a transaction that first locks the registry_state row,
// so concurrent Updates execute one at a time.
func (s *PostgresStore) Update(ctx context.Context, fn func(registry.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx, `SELECT owner FROM registry_state WHERE id = 1 FOR UPDATE`).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotInitialized
		}
		return fmt.Errorf("locking registry state: %w", err)
	}

	if err := fn(&pgTx{tx: tx, owner: domain.Principal(owner)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// View runs fn against a read-only repeatable-read snapshot.
func (s *PostgresStore) View(ctx context.Context, fn func(registry.Reader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx, `SELECT owner FROM registry_state WHERE id = 1`).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotInitialized
		}
		return fmt.Errorf("querying registry owner: %w", err)
	}

	return fn(&pgTx{tx: tx, owner: domain.Principal(owner)})
}
