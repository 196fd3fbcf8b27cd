package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/sakif/toolhub/internal/config"
)

// NewOpenAIEmbedder builds an OpenAI-compatible embedding client from
// config. It returns (nil, nil) when no API key is set.
func NewOpenAIEmbedder(ctx context.Context, cfg config.LLMConfig) (embedding.Embedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}

	ec := &openai.EmbeddingConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.EmbeddingModel,
	}
	if cfg.BaseURL != "" {
		ec.BaseURL = cfg.BaseURL
	}

	e, err := openai.NewEmbedder(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("search: creating embedder: %w", err)
	}
	return e, nil
}

// NewEmbedder picks the embedder ai_search runs on: the OpenAI model when
// an API key is configured, otherwise the local HashEmbedder. The bool
// reports whether the remote model was chosen.
func NewEmbedder(ctx context.Context, cfg config.LLMConfig) (embedding.Embedder, bool, error) {
	e, err := NewOpenAIEmbedder(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return NewHashEmbedder(DefaultDimensions), false, nil
	}
	return e, true, nil
}
