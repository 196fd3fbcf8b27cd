package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
)

const userColumns = `id, email, name, picture`

func (p *DB) CreateUser(ctx context.Context, user *model.User) error {
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, name, picture) VALUES ($1, $2, $3) RETURNING id`,
		user.Email, user.Name, user.Picture,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email "+user.Email)
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Email, err)
	}
	return nil
}

func (p *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE users SET name = $1, picture = $2 WHERE id = $3`,
		user.Name, user.Picture, user.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating user %d: %w", user.ID, err)
	}
	return expectOneRow(result, "user", user.ID)
}

func (p *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := p.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return &u, nil
}

func (p *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := p.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with email %s", email),
			}
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return &u, nil
}
