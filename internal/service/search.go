package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
	"github.com/sakif/toolhub/internal/search"
)

const DefaultTopK = 5

// SearchService ranks the whole catalog against a free-text query.
// Embeddings are computed per request; nothing is cached.
type SearchService struct {
	repo   repository.ToolRepository
	ranker *search.Ranker
	logger *zap.Logger
}

func NewSearchService(repo repository.ToolRepository, embedder embedding.Embedder, logger *zap.Logger) *SearchService {
	return &SearchService{
		repo:   repo,
		ranker: search.NewRanker(embedder),
		logger: logger,
	}
}

// AISearch returns the topK tools most similar to query, best first.
// Ties keep catalog order.
func (s *SearchService) AISearch(ctx context.Context, query string, topK int) ([]model.Tool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "q must not be empty")
	}
	if topK <= 0 {
		return nil, apperror.ValidationFailed("top_k", "top_k must be a positive integer")
	}

	tools, err := s.repo.All(ctx)
	if err != nil {
		s.logger.Error("failed to load catalog", zap.Error(err))
		return nil, err
	}
	if len(tools) == 0 {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "No tools found in database",
		}
	}

	texts := make([]string, len(tools))
	for i, t := range tools {
		texts[i] = t.SearchText()
	}

	ranked, err := s.ranker.Rank(ctx, query, texts, topK)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.logger.Warn("embedding failed", zap.Error(err))
		return nil, apperror.Upstream("embedding model", err)
	}

	out := make([]model.Tool, len(ranked))
	for i, r := range ranked {
		out[i] = tools[r.Index]
	}

	s.logger.Debug("semantic search",
		zap.String("query", query),
		zap.Int("catalog", len(tools)),
		zap.Int("returned", len(out)),
	)
	return out, nil
}
