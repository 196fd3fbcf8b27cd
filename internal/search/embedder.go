// Package search ranks catalog entries against a free-text query.
//
// Embeddings come from any eino embedding.Embedder. With OPENAI_API_KEY set
// the server uses the OpenAI embedding model (see NewEmbedder); without it,
// HashEmbedder, a local deterministic feature-hashing model that needs no
// network access. Tests use HashEmbedder too.
package search

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
)

// DefaultDimensions matches the width of common sentence-embedding models.
const DefaultDimensions = 384

var _ embedding.Embedder = (*HashEmbedder)(nil)

// HashEmbedder maps text to a fixed-size vector by hashing word tokens and
// character trigrams into signed buckets, then L2-normalising. Texts that
// share words or word fragments end up with a high cosine similarity.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

// EmbedStrings returns one vector per input text, in order.
func (e *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dims)

	for _, word := range tokenize(text) {
		e.add(vec, "w:"+word, 1.0)

		padded := []rune("#" + word + "#")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(vec, "g:"+string(padded[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// add hashes feature into a bucket. One hash bit picks the sign so that
// unrelated collisions tend to cancel out instead of piling up.
func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
