package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryIndex keeps entries in process and ranks recall by cosine
// similarity. Intended for local/dev use and tests.
type InMemoryIndex struct {
	embedder Embedder
	mu       sync.RWMutex
	entries  []Entry
}

func NewInMemoryIndex(embedder Embedder) *InMemoryIndex {
	return &InMemoryIndex{embedder: embedder}
}

func (x *InMemoryIndex) Add(ctx context.Context, text string) error {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = append(x.entries, Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Embedding: vec,
	})
	return nil
}

func (x *InMemoryIndex) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 3
	}
	qvec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(x.entries))
	for _, e := range x.entries {
		ranked = append(ranked, scored{text: e.Text, score: cosine(qvec, e.Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.text)
	}
	return out, nil
}

func (x *InMemoryIndex) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

func (x *InMemoryIndex) Close() error { return nil }

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
