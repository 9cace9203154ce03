package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCursorNotFound is returned by ListBefore for an unknown cursor id.
var ErrCursorNotFound = errors.New("cursor turn not found")

// PostgresStore persists turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations (timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, timestamp, role, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET timestamp = EXCLUDED.timestamp, role = EXCLUDED.role, content = EXCLUDED.content`,
		turn.ID,
		turn.Timestamp,
		string(turn.Role),
		turn.Content,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, role, content
		 FROM conversations ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	return scanTurns(rows, limit)
}

func (s *PostgresStore) ListBefore(ctx context.Context, cursorID string, limit int) ([]Turn, bool, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursorID == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT id, timestamp, role, content
			 FROM conversations ORDER BY timestamp DESC LIMIT $1`,
			limit,
		)
	} else {
		var cursorTS time.Time
		row := s.pool.QueryRow(ctx, `SELECT timestamp FROM conversations WHERE id = $1`, cursorID)
		if err := row.Scan(&cursorTS); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, ErrCursorNotFound
			}
			return nil, false, fmt.Errorf("resolve cursor: %w", err)
		}
		rows, err = s.pool.Query(ctx,
			`SELECT id, timestamp, role, content
			 FROM conversations WHERE timestamp < $1 ORDER BY timestamp DESC LIMIT $2`,
			cursorTS,
			limit,
		)
	}
	if err != nil {
		return nil, false, fmt.Errorf("query page: %w", err)
	}

	turns, err := scanTurns(rows, limit)
	if err != nil {
		return nil, false, err
	}

	hasMore := false
	if len(turns) > 0 {
		oldest := turns[len(turns)-1].Timestamp
		var older int
		row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE timestamp < $1`, oldest)
		if err := row.Scan(&older); err != nil {
			return nil, false, fmt.Errorf("count older turns: %w", err)
		}
		hasMore = older > 0
	}

	reverse(turns)
	return turns, hasMore, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTurns(rows pgx.Rows, capacity int) ([]Turn, error) {
	defer rows.Close()
	turns := make([]Turn, 0, capacity)
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &t.Timestamp, &role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func reverse(turns []Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
