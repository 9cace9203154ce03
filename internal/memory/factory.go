package memory

import (
	"context"
	"strings"
)

// NewIndex creates a postgres-backed index when configured, otherwise
// in-memory, and plants the default seed entry when empty.
func NewIndex(ctx context.Context, databaseURL string, embedder Embedder, dim int) (Index, error) {
	var idx Index
	if strings.TrimSpace(databaseURL) == "" {
		idx = NewInMemoryIndex(embedder)
	} else {
		pg, err := NewPostgresIndex(ctx, databaseURL, embedder, dim)
		if err != nil {
			return nil, err
		}
		idx = pg
	}

	if err := EnsureSeed(ctx, idx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}
