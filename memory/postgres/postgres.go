// Package postgres implements core.MemoryStore on PostgreSQL with the
// pgvector extension. Retrieval ranks by cosine similarity between the query
// embedding and stored turn embeddings; the user boundary is a plain WHERE
// clause, so isolation holds regardless of index strategy.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/embedding"
)

// Options configure the postgres store.
type Options struct {
	// Embedder computes turn and query vectors. Required.
	Embedder embedding.Embedder
	// Dimensions of the embedding column. Must match the embedder's output.
	Dimensions int
}

// Store is a pgvector-backed MemoryStore.
type Store struct {
	db       *sql.DB
	embedder embedding.Embedder
	dims     int
}

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*Store)(nil)

// Open is a convenience wrapper around sql.Open with the pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// NewStore creates a postgres-backed memory store over an existing handle.
// Call Migrate once before first use.
func NewStore(db *sql.DB, optFns ...func(o *Options)) *Store {
	opts := Options{Dimensions: 1536}
	for _, fn := range optFns {
		fn(&opts)
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = embedding.NewOpenAI()
	}
	return &Store{db: db, embedder: embedder, dims: opts.Dimensions}
}

// Migrate creates the vector extension and the memory table.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL DEFAULT '',
			run_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_ts TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dims),
		`CREATE INDEX IF NOT EXISTS idx_memory_user ON memory (user_id, created_ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// scopeWhere builds the WHERE clause narrowing a read to the scope. The user
// clause is always first; agent/run join only when the scope carries them.
func scopeWhere(scope core.Scope) (string, []any) {
	where := "user_id = $1"
	args := []any{scope.UserID}
	if scope.AgentID != "" {
		args = append(args, scope.AgentID)
		where += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	if scope.RunID != "" {
		args = append(args, scope.RunID)
		where += fmt.Sprintf(" AND run_id = $%d", len(args))
	}
	return where, args
}

// Search implements core.MemoryStore ranking by cosine similarity.
func (s *Store) Search(ctx context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}

	where, args := scopeWhere(scope)
	args = append(args, pgvector.NewVector(vec))
	vecArg := len(args)
	args = append(args, topK)

	stmt := fmt.Sprintf(`
		SELECT content, 1 - (embedding <=> $%d) AS score
		FROM memory
		WHERE %s AND embedding IS NOT NULL
		ORDER BY embedding <=> $%d
		LIMIT $%d
	`, vecArg, where, vecArg, vecArg+1)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}
	defer rows.Close()

	results := []core.RetrievedMemory{}
	for rows.Next() {
		var mem core.RetrievedMemory
		if err := rows.Scan(&mem.Text, &mem.Score); err != nil {
			return nil, core.NewRetrievalError("search", err)
		}
		if mem.Score < threshold {
			continue
		}
		results = append(results, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewRetrievalError("search", err)
	}
	return results, nil
}

// Add embeds and inserts one row per turn inside a single transaction.
func (s *Store) Add(ctx context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "", core.NewPersistenceError("add", fmt.Errorf("no turns to persist"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", core.NewPersistenceError("add", err)
	}
	defer tx.Rollback()

	var ref string
	for _, turn := range turns {
		vec, err := s.embedder.Embed(ctx, turn.Content)
		if err != nil {
			return "", core.NewPersistenceError("add", err)
		}
		md := map[string]string{"role": turn.Role}
		for k, v := range metadata {
			md[k] = v
		}
		encoded, err := json.Marshal(md)
		if err != nil {
			return "", core.NewPersistenceError("add", err)
		}

		id := core.NewID()
		if ref == "" {
			ref = id
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memory (id, user_id, agent_id, run_id, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, scope.UserID, scope.AgentID, scope.RunID, turn.Content, encoded, pgvector.NewVector(vec))
		if err != nil {
			return "", core.NewPersistenceError("add", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", core.NewPersistenceError("add", err)
	}
	return ref, nil
}

// List returns the scope's first pageSize records (oldest first) plus the
// scope's total count.
func (s *Store) List(ctx context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error) {
	if err := scope.Validate(); err != nil {
		return core.MemoryPage{}, err
	}
	where, args := scopeWhere(scope)

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memory WHERE "+where, args...).Scan(&count); err != nil {
		return core.MemoryPage{}, core.NewRetrievalError("list", err)
	}

	args = append(args, pageSize)
	stmt := fmt.Sprintf(`
		SELECT id, content, metadata, created_ts
		FROM memory
		WHERE %s
		ORDER BY created_ts
		LIMIT $%d
	`, where, len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return core.MemoryPage{}, core.NewRetrievalError("list", err)
	}
	defer rows.Close()

	page := core.MemoryPage{Count: count, Records: []core.MemoryRecord{}}
	for rows.Next() {
		var (
			rec     core.MemoryRecord
			encoded []byte
			created time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &encoded, &created); err != nil {
			return core.MemoryPage{}, core.NewRetrievalError("list", err)
		}
		if len(encoded) > 0 {
			if err := json.Unmarshal(encoded, &rec.Metadata); err != nil {
				return core.MemoryPage{}, core.NewRetrievalError("list", err)
			}
		}
		rec.CreatedAt = created
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return core.MemoryPage{}, core.NewRetrievalError("list", err)
	}
	return page, nil
}

// DeleteAll removes every row owned by the scope's user. Agent/run
// refinements are deliberately ignored: deletion is user-wide but must never
// cross users.
func (s *Store) DeleteAll(ctx context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM memory WHERE user_id = $1", scope.UserID); err != nil {
		return core.NewPersistenceError("delete_all", err)
	}
	return nil
}
