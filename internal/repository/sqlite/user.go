package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
)

// CreateUser inserts a new user and fills in the generated ID.
// A second row with the same email is a Conflict; the auth service relies on
// that to resolve two first-logins racing for the same account.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, name, picture) VALUES (?, ?, ?)`,
		user.Email,
		user.Name,
		user.Picture,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email "+user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Email, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	user.ID = id

	return nil
}

// UpdateUserProfile refreshes name and picture. Email is the identity key
// and never changes.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, picture = ? WHERE id = ?`,
		user.Name,
		user.Picture,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	return expectOneRow(result, "user", user.ID)
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := db.getUser(ctx, `WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.getUser(ctx, `WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with email %s", email),
			}
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, picture FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Picture)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
