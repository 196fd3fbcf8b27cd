package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
)

// AuthService turns a verified provider profile into a local user and a
// session token.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user and the session token so the handler can set
// the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegister finds the user by email or creates one.
//
// On a repeat login the stored name and picture are refreshed from the
// profile. The user id never changes. Two first logins racing on the same
// email both end up with the one row the unique index let through.
func (s *AuthService) LoginOrRegister(ctx context.Context, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, apperror.AuthFailed("Authentication failed", "identity provider returned no email")
	}

	user, err := s.findOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		zap.Int64("userID", user.ID),
		zap.String("email", user.Email),
	)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) findOrCreate(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	email := strings.TrimSpace(profile.Email)
	name := optional(profile.Name)
	picture := optional(profile.Picture)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return s.refresh(ctx, user, name, picture)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	user = &model.User{Email: email, Name: name, Picture: picture}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
		}
		// Lost the race with a concurrent first login.
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("service/auth: reloading user %s: %w", email, err)
		}
		return s.refresh(ctx, existing, name, picture)
	}

	s.logger.Info("user registered", zap.Int64("userID", user.ID), zap.String("email", email))
	return user, nil
}

// refresh writes name and picture back only when the provider reports a
// change. Empty values from the provider never erase stored ones.
func (s *AuthService) refresh(ctx context.Context, user *model.User, name, picture *string) (*model.User, error) {
	changed := false
	if name != nil && !equalPtr(user.Name, name) {
		user.Name = name
		changed = true
	}
	if picture != nil && !equalPtr(user.Picture, picture) {
		user.Picture = picture
		changed = true
	}
	if !changed {
		return user, nil
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: refreshing profile of user %d: %w", user.ID, err)
	}
	return user, nil
}

// GetUserByID loads the user behind a session. A session whose user has
// been removed yields apperror.ErrNotFound.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.Unauthorized("Not authenticated")
	}
	return s.users.GetUserByID(ctx, id)
}

// ValidateToken returns the user id encoded in a session token.
func (s *AuthService) ValidateToken(tokenStr string) (int64, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return 0, apperror.Unauthorized("Not authenticated")
	}
	return id, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
