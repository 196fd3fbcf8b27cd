package postgres

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

func (p *DB) Create(ctx context.Context, tool *model.Tool) error {
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO tools (name, description, category, url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		tool.Name, tool.Description, tool.Category, tool.URL,
	).Scan(&tool.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tool", "url "+tool.URL)
		}
		return fmt.Errorf("postgres: creating tool: %w", err)
	}
	return nil
}

func (p *DB) GetByID(ctx context.Context, id int64) (*model.Tool, error) {
	var tool model.Tool
	err := p.db.GetContext(ctx, &tool, `SELECT `+toolColumns+` FROM tools WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tool", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting tool %d: %w", id, err)
	}
	return &tool, nil
}

func (p *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Tool, error) {
	return p.selectTools(ctx, "listing tools",
		`SELECT `+toolColumns+` FROM tools ORDER BY id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
}

// Search builds the WHERE clause from whichever filters are set.
// Placeholders are numbered as arguments are appended.
func (p *DB) Search(ctx context.Context, opts repository.SearchOptions) ([]model.Tool, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		args = append(args, "%"+repository.EscapeLike(value)+"%")
		where = append(where, fmt.Sprintf(`LOWER(%s) LIKE LOWER($%d) ESCAPE '\'`, column, len(args)))
	}
	if opts.Name != "" {
		add("name", opts.Name)
	}
	if opts.Category != "" {
		add("category", opts.Category)
	}

	query := `SELECT ` + toolColumns + ` FROM tools`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	args = append(args, opts.Limit, opts.Offset)
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return p.selectTools(ctx, "searching tools", query, args...)
}

func (p *DB) All(ctx context.Context) ([]model.Tool, error) {
	return p.selectTools(ctx, "loading catalog", `SELECT `+toolColumns+` FROM tools ORDER BY id`)
}

func (p *DB) Update(ctx context.Context, tool *model.Tool) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE tools SET name = $1, description = $2, category = $3, url = $4 WHERE id = $5`,
		tool.Name, tool.Description, tool.Category, tool.URL, tool.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tool", "url "+tool.URL)
		}
		return fmt.Errorf("postgres: updating tool %d: %w", tool.ID, err)
	}
	return expectOneRow(result, "tool", tool.ID)
}

func (p *DB) Delete(ctx context.Context, id int64) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM tools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting tool %d: %w", id, err)
	}
	return expectOneRow(result, "tool", id)
}

// InsertIgnore relies on ON CONFLICT DO NOTHING: when the URL exists no row
// is returned, which surfaces as sql.ErrNoRows.
func (p *DB) InsertIgnore(ctx context.Context, tool *model.Tool) (bool, error) {
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO tools (name, description, category, url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (url) DO NOTHING
		 RETURNING id`,
		tool.Name, tool.Description, tool.Category, tool.URL,
	).Scan(&tool.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("postgres: inserting tool %q: %w", tool.URL, err)
	}
	return true, nil
}

func (p *DB) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	var list []string
	if err := p.db.SelectContext(ctx, &list, `SELECT url FROM tools`); err != nil {
		return nil, fmt.Errorf("postgres: listing urls: %w", err)
	}

	urls := make(map[string]struct{}, len(list))
	for _, u := range list {
		urls[u] = struct{}{}
	}
	return urls, nil
}

func (p *DB) ListByDescription(ctx context.Context, description string) ([]model.Tool, error) {
	return p.selectTools(ctx, "listing tools by description",
		`SELECT `+toolColumns+` FROM tools WHERE description = $1 ORDER BY id`, description)
}

func (p *DB) UpdateDescription(ctx context.Context, id int64, description string) error {
	result, err := p.db.ExecContext(ctx, `UPDATE tools SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("postgres: updating description of tool %d: %w", id, err)
	}
	return expectOneRow(result, "tool", id)
}

func (p *DB) selectTools(ctx context.Context, op, query string, args ...any) ([]model.Tool, error) {
	tools := make([]model.Tool, 0)
	if err := p.db.SelectContext(ctx, &tools, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return tools, nil
}

func expectOneRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, strconv.FormatInt(id, 10))
	}
	return nil
}
