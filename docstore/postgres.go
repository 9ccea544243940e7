package docstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// Registers the postgres:// database driver used by migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // database/sql driver behind migrate's postgres driver
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresStore keeps each resource as one JSONB row in the `documents` table.
// The row's version column is bumped on every write and conditional writes
// compare against it inside a single statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool opens and pings a pgx pool for dsn.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore wraps an open pool. The caller owns the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Conditional() bool { return true }

func (s *PostgresStore) Get(ctx context.Context, resource string) (*Document, error) {
	var (
		body    string
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT body::text, version FROM documents WHERE resource = $1`, resource,
	).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", resource, err)
	}
	return &Document{Body: []byte(body), Version: strconv.FormatInt(version, 10)}, nil
}

func (s *PostgresStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	var (
		version int64
		err     error
	)
	switch {
	case cond.IfAbsent:
		err = s.pool.QueryRow(ctx,
			`INSERT INTO documents (resource, body) VALUES ($1, $2::jsonb)
			 ON CONFLICT (resource) DO NOTHING
			 RETURNING version`,
			resource, string(body),
		).Scan(&version)
	case cond.IfMatch != "":
		expected, perr := strconv.ParseInt(cond.IfMatch, 10, 64)
		if perr != nil {
			return "", ErrVersionConflict
		}
		err = s.pool.QueryRow(ctx,
			`UPDATE documents SET body = $2::jsonb, version = version + 1, updated_at = now()
			 WHERE resource = $1 AND version = $3
			 RETURNING version`,
			resource, string(body), expected,
		).Scan(&version)
	default:
		err = s.pool.QueryRow(ctx,
			`INSERT INTO documents (resource, body) VALUES ($1, $2::jsonb)
			 ON CONFLICT (resource) DO UPDATE
			 SET body = EXCLUDED.body, version = documents.version + 1, updated_at = now()
			 RETURNING version`,
			resource, string(body),
		).Scan(&version)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrVersionConflict
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", resource, err)
	}
	return strconv.FormatInt(version, 10), nil
}

// RunMigrations applies the embedded schema migrations to the database at dsn.
// migrate.ErrNoChange is not an error.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
