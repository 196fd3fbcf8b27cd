// Package repository declares the storage contracts. The service layer only
// ever sees these interfaces; sqlite and postgres provide implementations.
package repository

import (
	"context"

	"github.com/sakif/toolhub/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// SearchOptions filters tools by case-insensitive substring.
// Empty Name or Category means "no filter on that column"; both are ANDed.
type SearchOptions struct {
	Name     string
	Category string
	ListOptions
}

// ToolRepository is the CRUD surface used by the HTTP API.
// Listings are ordered by id ascending, i.e. insertion order.
type ToolRepository interface {
	Create(ctx context.Context, tool *model.Tool) error
	GetByID(ctx context.Context, id int64) (*model.Tool, error)
	List(ctx context.Context, opts ListOptions) ([]model.Tool, error)
	Search(ctx context.Context, opts SearchOptions) ([]model.Tool, error)
	Update(ctx context.Context, tool *model.Tool) error
	Delete(ctx context.Context, id int64) error
	All(ctx context.Context) ([]model.Tool, error)
}

// CatalogRepository holds the bulk operations the batch jobs need.
type CatalogRepository interface {
	// InsertIgnore stores tool unless its URL already exists.
	// It reports whether a row was written.
	InsertIgnore(ctx context.Context, tool *model.Tool) (bool, error)
	ListURLs(ctx context.Context) (map[string]struct{}, error)
	ListByDescription(ctx context.Context, description string) ([]model.Tool, error)
	UpdateDescription(ctx context.Context, id int64, description string) error
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// Store is everything a backend provides, plus lifecycle.
type Store interface {
	ToolRepository
	CatalogRepository
	UserRepository

	Ping(ctx context.Context) error
	// Reset drops and recreates every table.
	Reset(ctx context.Context) error
	Close() error
}

// EscapeLike escapes the LIKE wildcards in s so user input is matched
// literally. Both backends declare ESCAPE '\'.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
