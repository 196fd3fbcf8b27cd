package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/toolhub/internal/config"
)

func TestNewEmbedder_NoKeyFallsBackToHash(t *testing.T) {
	e, remote, err := NewEmbedder(context.Background(), config.LLMConfig{EmbeddingModel: "text-embedding-3-small"})
	require.NoError(t, err)
	assert.False(t, remote)
	assert.IsType(t, &HashEmbedder{}, e)
}

func TestNewOpenAIEmbedder_NoKey(t *testing.T) {
	e, err := NewOpenAIEmbedder(context.Background(), config.LLMConfig{APIKey: "  "})
	require.NoError(t, err)
	assert.Nil(t, e)
}

// fakeEmbeddings answers POST /embeddings with one two-dimensional vector
// per input: [len(input), index].
func fakeEmbeddings(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(in)), float64(i)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbedder_WithKeyUsesOpenAI(t *testing.T) {
	srv := fakeEmbeddings(t)

	e, remote, err := NewEmbedder(context.Background(), config.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)
	require.True(t, remote)

	vectors, err := e.EmbedStrings(context.Background(), []string{"cats", "weather"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{4, 0}, {7, 1}}, vectors)
}
