package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
)

const toolColumns = `id, name, description, category, url`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTool reads one tools row. description is nullable, so it is scanned
// into a **string: database/sql sets it to nil for NULL.
func scanTool(s rowScanner) (model.Tool, error) {
	var t model.Tool
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.URL)
	return t, err
}

// Create inserts a new tool and fills in its generated ID.
//
// A duplicate URL hits the UNIQUE index; that is translated to
// apperror.Conflict so the handler can answer 409.
func (db *DB) Create(ctx context.Context, tool *model.Tool) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO tools (name, description, category, url) VALUES (?, ?, ?, ?)`,
		tool.Name,
		tool.Description,
		tool.Category,
		tool.URL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tool", "url "+tool.URL)
		}
		return fmt.Errorf("sqlite: creating tool: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading tool id: %w", err)
	}
	tool.ID = id

	return nil
}

// GetByID retrieves a single tool. sql.ErrNoRows becomes apperror.NotFound.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Tool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE id = ?`, id)

	tool, err := scanTool(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tool", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting tool %d: %w", id, err)
	}

	return &tool, nil
}

// List returns one page of tools in insertion order.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Tool, error) {
	return db.queryTools(ctx, "listing tools",
		`SELECT `+toolColumns+` FROM tools ORDER BY id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
}

// Search filters by case-insensitive substring on name and/or category.
//
// Both sides go through unicode_lower (registered in sqlite.go) because
// SQLite's LIKE and LOWER only fold ASCII; "ÄRZTE" must find "Ärzte".
// User input is escaped so "%" and "_" match literally.
func (db *DB) Search(ctx context.Context, opts repository.SearchOptions) ([]model.Tool, error) {
	var (
		where []string
		args  []any
	)
	if opts.Name != "" {
		where = append(where, `unicode_lower(name) LIKE unicode_lower(?) ESCAPE '\'`)
		args = append(args, "%"+repository.EscapeLike(opts.Name)+"%")
	}
	if opts.Category != "" {
		where = append(where, `unicode_lower(category) LIKE unicode_lower(?) ESCAPE '\'`)
		args = append(args, "%"+repository.EscapeLike(opts.Category)+"%")
	}

	query := `SELECT ` + toolColumns + ` FROM tools`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	return db.queryTools(ctx, "searching tools", query, args...)
}

// All returns the whole catalog in insertion order. Semantic search ranks
// over every tool, so there is no pagination here.
func (db *DB) All(ctx context.Context) ([]model.Tool, error) {
	return db.queryTools(ctx, "loading catalog",
		`SELECT `+toolColumns+` FROM tools ORDER BY id`)
}

// Update overwrites every mutable column of an existing tool.
// RowsAffected == 0 means the id did not match anything.
func (db *DB) Update(ctx context.Context, tool *model.Tool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE tools
		 SET name = ?, description = ?, category = ?, url = ?
		 WHERE id = ?`,
		tool.Name,
		tool.Description,
		tool.Category,
		tool.URL,
		tool.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tool", "url "+tool.URL)
		}
		return fmt.Errorf("sqlite: updating tool %d: %w", tool.ID, err)
	}

	return expectOneRow(result, "tool", tool.ID)
}

// Delete removes a tool by id.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM tools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tool %d: %w", id, err)
	}

	return expectOneRow(result, "tool", id)
}

// InsertIgnore is the batch-job insert: a URL that already exists is
// silently skipped instead of being reported as a conflict.
func (db *DB) InsertIgnore(ctx context.Context, tool *model.Tool) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO tools (name, description, category, url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		tool.Name,
		tool.Description,
		tool.Category,
		tool.URL,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting tool %q: %w", tool.URL, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		tool.ID = id
	}
	return true, nil
}

// ListURLs returns every stored URL as a set.
func (db *DB) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT url FROM tools`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning url: %w", err)
		}
		urls[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating urls: %w", err)
	}

	return urls, nil
}

// ListByDescription returns tools whose description equals description exactly.
func (db *DB) ListByDescription(ctx context.Context, description string) ([]model.Tool, error) {
	return db.queryTools(ctx, "listing tools by description",
		`SELECT `+toolColumns+` FROM tools WHERE description = ? ORDER BY id`,
		description,
	)
}

// UpdateDescription replaces one tool's description.
func (db *DB) UpdateDescription(ctx context.Context, id int64, description string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE tools SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating description of tool %d: %w", id, err)
	}

	return expectOneRow(result, "tool", id)
}

// queryTools runs a SELECT over tools and collects the rows.
// rows.Close is deferred so the connection returns to the pool on every path.
func (db *DB) queryTools(ctx context.Context, op, query string, args ...any) ([]model.Tool, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	tools := make([]model.Tool, 0)
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning tool row: %w", err)
		}
		tools = append(tools, t)
	}

	// rows.Err catches failures that happened mid-iteration.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}

	return tools, nil
}

func expectOneRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, strconv.FormatInt(id, 10))
	}
	return nil
}
