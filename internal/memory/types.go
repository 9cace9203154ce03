package memory

import "context"

// Entry is one stored utterance with its embedding.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Index stores utterances and recalls the most relevant ones for a
// query. Embedding model identity and similarity metric belong to the
// implementation, not to callers.
type Index interface {
	Add(ctx context.Context, text string) error
	// Retrieve returns up to k stored texts, most relevant first.
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SeedText is the default recall entry for a fresh installation.
const SeedText = "You are AI chatbot agent for me. You have to help me with questions about several areas."

// EnsureSeed plants the default entry when the index is empty.
func EnsureSeed(ctx context.Context, idx Index) error {
	n, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return idx.Add(ctx, SeedText)
}
