// Package service holds the business rules. Handlers parse HTTP and call in
// here; services validate, apply defaults and talk to the repositories.
//
//	Handler (HTTP) → Service (rules) → Repository (SQL)
//
// Services take repository interfaces, never a concrete backend, so the same
// code runs against sqlite, postgres or an in-memory fake in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
)

// Pagination limits for List and Search.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ToolService implements the catalog CRUD and keyword search.
type ToolService struct {
	repo   repository.ToolRepository
	logger *zap.Logger
}

func NewToolService(repo repository.ToolRepository, logger *zap.Logger) *ToolService {
	return &ToolService{
		repo:   repo,
		logger: logger,
	}
}

// ToolInput carries the fields of a new tool.
type ToolInput struct {
	Name        string
	Description *string
	Category    string
	URL         string
}

// Create validates and stores a new tool.
// Name, category and url are required; a blank description is stored as NULL.
func (s *ToolService) Create(ctx context.Context, in ToolInput) (*model.Tool, error) {
	tool := &model.Tool{
		Name:        strings.TrimSpace(in.Name),
		Description: normalizeDescription(in.Description),
		Category:    strings.TrimSpace(in.Category),
		URL:         strings.TrimSpace(in.URL),
	}

	if err := validateRequired(tool); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tool); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create tool", zap.String("url", tool.URL), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("tool created",
		zap.Int64("id", tool.ID),
		zap.String("name", tool.Name),
	)
	return tool, nil
}

func (s *ToolService) GetByID(ctx context.Context, id int64) (*model.Tool, error) {
	if id <= 0 {
		return nil, apperror.NotFound("tool", strconv.FormatInt(id, 10))
	}
	return s.repo.GetByID(ctx, id)
}

// List returns one page of tools in insertion order. limit is clamped to
// [1, MaxListLimit] with 0 meaning DefaultListLimit; a negative skip is 0.
func (s *ToolService) List(ctx context.Context, skip, limit int) ([]model.Tool, error) {
	tools, err := s.repo.List(ctx, page(skip, limit))
	if err != nil {
		s.logger.Error("failed to list tools", zap.Error(err))
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	return tools, nil
}

// Search filters by case-insensitive substring of name and/or category.
// With neither filter it behaves like List.
func (s *ToolService) Search(ctx context.Context, name, category string, skip, limit int) ([]model.Tool, error) {
	tools, err := s.repo.Search(ctx, repository.SearchOptions{
		Name:        strings.TrimSpace(name),
		Category:    strings.TrimSpace(category),
		ListOptions: page(skip, limit),
	})
	if err != nil {
		s.logger.Error("failed to search tools", zap.Error(err))
		return nil, fmt.Errorf("searching tools: %w", err)
	}
	return tools, nil
}

// Update applies a partial update.
//
// Fetch, merge, save: a nil field leaves the stored value alone. An explicit
// empty description clears it, while an empty name, category or url is
// rejected.
func (s *ToolService) Update(ctx context.Context, id int64, upd model.ToolUpdate) (*model.Tool, error) {
	tool, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		tool.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Category != nil {
		tool.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.URL != nil {
		tool.URL = strings.TrimSpace(*upd.URL)
	}
	if upd.Description != nil {
		tool.Description = normalizeDescription(upd.Description)
	}

	if err := validateRequired(tool); err != nil {
		return nil, err
	}

	if upd.IsEmpty() {
		return tool, nil
	}

	if err := s.repo.Update(ctx, tool); err != nil {
		if !errors.Is(err, apperror.ErrConflict) && !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update tool", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("tool updated", zap.Int64("id", tool.ID))
	return tool, nil
}

func (s *ToolService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.NotFound("tool", strconv.FormatInt(id, 10))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("tool deleted", zap.Int64("id", id))
	return nil
}

func validateRequired(t *model.Tool) error {
	switch {
	case t.Name == "":
		return apperror.ValidationFailed("name", "name must not be empty")
	case t.Category == "":
		return apperror.ValidationFailed("category", "category must not be empty")
	case t.URL == "":
		return apperror.ValidationFailed("url", "url must not be empty")
	}
	return nil
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func page(skip, limit int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if skip < 0 {
		skip = 0
	}
	return repository.ListOptions{Limit: limit, Offset: skip}
}
