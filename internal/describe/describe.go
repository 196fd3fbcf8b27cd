// Package describe writes short API descriptions with a chat completion model.
package describe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/config"
)

const (
	SystemPrompt = "You are an API documentation assistant."

	// Fallback is stored when the model cannot produce a description.
	Fallback = "No description available"
)

var ErrNoModel = errors.New("describe: no completion model configured")

// Generator asks a chat model for one-line API descriptions.
type Generator struct {
	model  model.BaseChatModel
	logger *zap.Logger
}

// NewGenerator wraps m. A nil model is allowed: every call then fails with
// ErrNoModel and DescribeOrFallback returns Fallback.
func NewGenerator(m model.BaseChatModel, logger *zap.Logger) *Generator {
	return &Generator{model: m, logger: logger}
}

// NewOpenAIModel builds the OpenAI-compatible chat model from config.
// It returns (nil, nil) when no API key is set.
func NewOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}

	mc := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}
	if cfg.BaseURL != "" {
		mc.BaseURL = cfg.BaseURL
	}

	m, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("describe: creating chat model: %w", err)
	}
	return m, nil
}

// Prompt is the user message used when backfilling descriptions.
func Prompt(name string) string {
	return fmt.Sprintf("Provide a short, concise description for an API named '%s'.", name)
}

// PublicAPIPrompt is the user message used while scraping the public API
// directory, where the row itself had no usable description.
func PublicAPIPrompt(name string) string {
	return fmt.Sprintf("The API is called '%s' and is a public API. "+
		"Please provide a short, concise description for this API, focusing on what it does for developers.", name)
}

// Describe sends prompt (built by Prompt or PublicAPIPrompt for the API
// called name) and returns the trimmed completion.
func (g *Generator) Describe(ctx context.Context, name, prompt string) (string, error) {
	if g.model == nil {
		return "", ErrNoModel
	}

	resp, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("describe: generating for %q: %w", name, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("describe: empty completion for %q", name)
	}

	return strings.TrimSpace(resp.Content), nil
}

// DescribeOrFallback never fails: any error is logged and Fallback returned,
// so one bad item does not stop a batch.
func (g *Generator) DescribeOrFallback(ctx context.Context, name, prompt string) string {
	desc, err := g.Describe(ctx, name, prompt)
	if err != nil {
		g.logger.Warn("description generation failed, using fallback",
			zap.String("name", name),
			zap.Error(err),
		)
		return Fallback
	}
	return desc
}
