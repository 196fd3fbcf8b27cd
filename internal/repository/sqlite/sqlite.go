// Package sqlite implements the repository interfaces on top of SQLite.
//
// SQLite is the default backend: a single file (or ":memory:" in tests),
// no server to run. modernc.org/sqlite is a pure Go translation of SQLite,
// so no C toolchain is needed to build the binary.
//
// DATABASE/SQL RECAP:
//   - sql.DB   is a connection pool, not a single connection
//   - sql.Row  is one result row, read with Scan
//   - sql.Rows is an iterator that MUST be closed, or the connection leaks
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	// Importing the package registers the "sqlite" driver with database/sql.
	msqlite "modernc.org/sqlite"

	"github.com/sakif/toolhub/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// SQLite's built-in LOWER only folds ASCII, so searches call unicode_lower
// instead and fold the same way the postgres backend does.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower)
}

func unicodeLower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/toolhub.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// Every connection to ":memory:" is a separate, empty database, so the pool
// is pinned to a single connection in that case. File databases get their
// PRAGMAs through the DSN so that every pooled connection is configured,
// not just the first one.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// WAL lets readers proceed while a write is in flight; busy_timeout
		// makes concurrent writers wait instead of failing with SQLITE_BUSY.
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open is lazy; Ping forces a real connection so a bad path fails here.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it idempotent,
// so it runs on every start.
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tools (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			description TEXT,
			category    TEXT NOT NULL,
			url         TEXT NOT NULL UNIQUE
		);
		CREATE INDEX IF NOT EXISTS idx_tools_name ON tools(name);
		CREATE INDEX IF NOT EXISTS idx_tools_category ON tools(category);
	`)
	if err != nil {
		return fmt.Errorf("creating tools table: %w", err)
	}

	// email is UNIQUE: one account per provider identity.
	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			email   TEXT NOT NULL UNIQUE,
			name    TEXT,
			picture TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}

// Reset drops both tables and recreates them empty.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		DROP TABLE IF EXISTS tools;
		DROP TABLE IF EXISTS users;
	`); err != nil {
		return fmt.Errorf("sqlite: dropping tables: %w", err)
	}
	if err := db.migrate(ctx); err != nil {
		return fmt.Errorf("sqlite: recreating tables: %w", err)
	}
	return nil
}

// isUniqueViolation recognises SQLite's unique constraint error.
// modernc reports it as "constraint failed: UNIQUE constraint failed: tools.url (2067)".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
