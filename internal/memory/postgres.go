package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIndex stores entries in PostgreSQL with pgvector similarity
// search.
type PostgresIndex struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

func NewPostgresIndex(ctx context.Context, databaseURL string, embedder Embedder, dim int) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_entries (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		);`, dim),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}

	return &PostgresIndex{pool: pool, embedder: embedder}, nil
}

func (x *PostgresIndex) Add(ctx context.Context, text string) error {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	_, err = x.pool.Exec(ctx,
		`INSERT INTO memory_entries (id, text, embedding) VALUES ($1, $2, $3::vector)`,
		uuid.NewString(),
		text,
		vectorLiteral(vec),
	)
	if err != nil {
		return fmt.Errorf("insert memory entry: %w", err)
	}
	return nil
}

func (x *PostgresIndex) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 3
	}
	qvec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := x.pool.Query(ctx,
		`SELECT text FROM memory_entries ORDER BY embedding <=> $1::vector LIMIT $2`,
		vectorLiteral(qvec),
		k,
	)
	if err != nil {
		return nil, fmt.Errorf("query memory entries: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, k)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		out = append(out, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory rows: %w", err)
	}
	return out, nil
}

func (x *PostgresIndex) Count(ctx context.Context) (int, error) {
	var n int
	row := x.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memory_entries`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count memory entries: %w", err)
	}
	return n, nil
}

func (x *PostgresIndex) Close() error {
	x.pool.Close()
	return nil
}

// vectorLiteral renders a pgvector input literal like [0.1,0.2].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
