// Package store picks a repository backend from configuration.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/toolhub/internal/config"
	"github.com/sakif/toolhub/internal/repository"
	"github.com/sakif/toolhub/internal/repository/postgres"
	"github.com/sakif/toolhub/internal/repository/sqlite"
)

// Open connects to the configured database and brings its schema up to date.
// On failure the returned Store is a nil interface, never a typed nil.
func Open(ctx context.Context, cfg config.DBConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("store: creating directory for %s: %w", cfg.Path, err)
			}
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			URL:          cfg.URL,
			Schema:       cfg.Schema,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}
