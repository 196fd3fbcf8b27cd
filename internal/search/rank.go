package search

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/cloudwego/eino/components/embedding"
)

// Scored is one ranked candidate. Index points back into the slice of
// texts given to Rank.
type Scored struct {
	Index int
	Score float64
}

// Ranker embeds a query together with candidate texts and orders the
// candidates by cosine similarity.
type Ranker struct {
	embedder embedding.Embedder
}

func NewRanker(embedder embedding.Embedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// Rank returns the top k candidates, most similar first. Equal scores keep
// the order of texts, so callers passing the catalog in id order get a
// deterministic tie-break. k larger than len(texts) returns everything.
func (r *Ranker) Rank(ctx context.Context, query string, texts []string, k int) ([]Scored, error) {
	if len(texts) == 0 || k <= 0 {
		return []Scored{}, nil
	}

	// One call: the query goes last so the candidate indexes stay aligned.
	vectors, err := r.embedder.EmbedStrings(ctx, append(append([]string{}, texts...), query))
	if err != nil {
		// Returned unwrapped: callers surface the provider's own text.
		return nil, err
	}
	if len(vectors) != len(texts)+1 {
		return nil, errors.New("search: embedder returned the wrong number of vectors")
	}

	queryVec := vectors[len(texts)]
	scored := make([]Scored, len(texts))
	for i := range texts {
		scored[i] = Scored{Index: i, Score: Cosine(queryVec, vectors[i])}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Cosine is the cosine similarity of a and b. Zero vectors and length
// mismatches score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
