package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"querydesk/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations applies all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SeedDevSubjects inserts a few subjects for development. Existing subjects are kept.
func (d *DB) SeedDevSubjects(ctx context.Context) error {
	subjects := []struct {
		name     string
		code     string
		semester int
		keywords []string
	}{
		{"Operating Systems", "CS301", 5, []string{"process", "thread", "schedul", "memori", "kernel"}},
		{"Computer Networks", "CS302", 5, []string{"packet", "router", "tcp", "protocol", "network"}},
		{"Database Systems", "CS303", 5, []string{"sql", "index", "transact", "queri", "normal"}},
	}

	query := `
		INSERT INTO subjects (name, code, department, semester, keywords)
		VALUES ($1, $2, 'CSE', $3, $4)
		ON CONFLICT (code) DO NOTHING
	`

	for _, s := range subjects {
		if _, err := d.Pool.Exec(ctx, query, s.name, s.code, s.semester, s.keywords); err != nil {
			return fmt.Errorf("failed to seed subject %s: %w", s.code, err)
		}
	}

	return nil
}
