package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process turn log for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns []Turn
	byID  map[string]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]int)}
}

func (s *InMemoryStore) Append(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	if i, ok := s.byID[turn.ID]; ok {
		s.turns[i] = turn
	} else {
		s.turns = append(s.turns, turn)
	}
	s.reindex()
	return nil
}

// reindex keeps turns sorted chronologically; equal timestamps keep
// insertion order.
func (s *InMemoryStore) reindex() {
	sort.SliceStable(s.turns, func(i, j int) bool {
		return s.turns[i].Timestamp.Before(s.turns[j].Timestamp)
	})
	for i, t := range s.turns {
		s.byID[t.ID] = i
	}
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	if limit > len(s.turns) {
		limit = len(s.turns)
	}
	out := make([]Turn, 0, limit)
	for i := len(s.turns) - 1; i >= len(s.turns)-limit; i-- {
		out = append(out, s.turns[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListBefore(_ context.Context, cursorID string, limit int) ([]Turn, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	// Page end: everything when there is no cursor, otherwise strictly
	// older turns than the cursor's timestamp.
	end := len(s.turns)
	if cursorID != "" {
		i, ok := s.byID[cursorID]
		if !ok {
			return nil, false, ErrCursorNotFound
		}
		cursorTS := s.turns[i].Timestamp
		end = sort.Search(len(s.turns), func(j int) bool {
			return !s.turns[j].Timestamp.Before(cursorTS)
		})
	}

	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]Turn, end-start)
	copy(out, s.turns[start:end])

	hasMore := false
	if len(out) > 0 {
		oldest := out[0].Timestamp
		for _, t := range s.turns[:start] {
			if t.Timestamp.Before(oldest) {
				hasMore = true
				break
			}
		}
	}
	return out, hasMore, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns), nil
}

func (s *InMemoryStore) Close() error { return nil }
