// Package postgres implements the repository interfaces on PostgreSQL using
// sqlx over the pgx stdlib driver. Tables live in a dedicated schema
// (default "toolhub_schema"); the connection's search_path points there, so
// queries and migrations use unqualified table names.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/toolhub/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// uniqueViolation is the SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

var _ repository.Store = (*DB)(nil)

type Config struct {
	URL          string
	Schema       string
	MaxOpenConns int
	MaxIdleConns int
}

type DB struct {
	db      *sqlx.DB
	connCfg *pgx.ConnConfig // nil when built from an existing handle
	schema  string
}

// Open connects, makes sure the schema exists, and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing DATABASE_URL: %w", err)
	}
	if cfg.Schema != "" {
		connCfg.RuntimeParams["search_path"] = cfg.Schema
	}

	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), "pgx")
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if cfg.Schema != "" {
		stmt := `CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{cfg.Schema}.Sanitize()
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres: creating schema %s: %w", cfg.Schema, err)
		}
	}

	p := &DB{db: db, connCfg: connCfg, schema: cfg.Schema}
	if err := p.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return p, nil
}

// NewWithDB wraps an existing handle without touching the schema.
// Used by tests that drive the repository through sqlmock.
func NewWithDB(db *sqlx.DB) *DB {
	return &DB{db: db}
}

func (p *DB) Close() error {
	return p.db.Close()
}

func (p *DB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Reset runs every down migration and then every up migration, leaving
// empty tables behind.
func (p *DB) Reset(ctx context.Context) error {
	m, err := p.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: dropping tables: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: recreating tables: %w", err)
	}
	return nil
}

func (p *DB) migrateUp() error {
	m, err := p.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: applying migrations: %w", err)
	}
	return nil
}

// newMigrate is swapped in tests to exercise the failure path.
var newMigrate = migrate.NewWithInstance

// migrator builds a golang-migrate instance over the embedded SQL files.
// The pgx driver closes the *sql.DB it is given on Close, so it gets a
// dedicated pool instead of the repository's.
func (p *DB) migrator() (*migrate.Migrate, error) {
	if p.connCfg == nil {
		return nil, errors.New("postgres: migrations need a connection opened with Open")
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: loading migrations: %w", err)
	}

	conn := stdlib.OpenDB(*p.connCfg)
	driver, err := pgxmigrate.WithInstance(conn, &pgxmigrate.Config{
		SchemaName: p.schema,
	})
	if err != nil {
		src.Close()
		conn.Close()
		return nil, fmt.Errorf("postgres: preparing migration driver: %w", err)
	}

	m, err := newMigrate("iofs", src, "pgx5", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return nil, fmt.Errorf("postgres: creating migrator: %w", err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
