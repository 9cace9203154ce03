package conversation

import (
	"context"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one recorded message in the conversation log.
type Turn struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
}

// Store is an append-only, queryable log of turns. Append is an
// upsert keyed by Turn.ID and is committed before it returns.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	ListRecent(ctx context.Context, limit int) ([]Turn, error)
	// ListBefore resolves cursorID to its timestamp and returns up to
	// limit strictly older turns in chronological order, plus whether
	// any older turns remain beyond the page. An empty cursorID pages
	// from the newest turn.
	ListBefore(ctx context.Context, cursorID string, limit int) ([]Turn, bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
