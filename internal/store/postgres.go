// Package store implements the chunk store on PostgreSQL with the pgvector
// extension. Ranking uses the cosine distance operator; the vector index is
// created at runtime once the embedding dimensionality is known.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
)

// Postgres persists chunks in the content_chunks table. It is safe for
// concurrent use; the pool handles connection management.
type Postgres struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Postgres store over an existing pool. A nil logger falls
// back to a no-op logger.
func New(pool *pgxpool.Pool, logger log.Logger) *Postgres {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Postgres{pool: pool, logger: logger}
}

// UpsertChunk inserts the chunk or, when the content id already exists,
// overwrites the stored record in place.
func (p *Postgres) UpsertChunk(ctx context.Context, chunk retrieval.Chunk) error {
	const query = `
		INSERT INTO content_chunks (id, chapter, subject, class_no, text, embedding, source_pdf, page)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			chapter = EXCLUDED.chapter,
			subject = EXCLUDED.subject,
			class_no = EXCLUDED.class_no,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			source_pdf = EXCLUDED.source_pdf,
			page = EXCLUDED.page`

	embedding := pgvector.NewVector(chunk.Embedding)
	_, err := p.pool.Exec(ctx, query,
		chunk.ID, chunk.Chapter, chunk.Subject, chunk.ClassNo,
		chunk.Text, embedding, nullIfEmpty(chunk.SourcePDF), chunk.Page)
	if err != nil {
		return fmt.Errorf("upserting chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// SimilaritySearch ranks chunks matching the subject and class filters by
// cosine similarity to the query vector and returns the top limit rows.
func (p *Postgres) SimilaritySearch(ctx context.Context, vector []float32, subject string, classNo, limit int) ([]retrieval.SearchResult, error) {
	const query = `
		SELECT text, chapter, subject, class_no, page, COALESCE(source_pdf, '')
		FROM content_chunks
		WHERE subject = $2 AND class_no = $3
		ORDER BY embedding <=> $1
		LIMIT $4`

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), subject, classNo, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []retrieval.SearchResult
	for rows.Next() {
		var res retrieval.SearchResult
		if err := rows.Scan(&res.Text, &res.Chapter, &res.Subject, &res.ClassNo, &res.Page, &res.SourcePDF); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// ChunksByFilter returns every chunk matching the subject and class filters,
// embeddings included, in insertion order. It feeds the in-process ranking
// fallback, so it must not depend on the vector index.
func (p *Postgres) ChunksByFilter(ctx context.Context, subject string, classNo int) ([]retrieval.Chunk, error) {
	const query = `
		SELECT id, chapter, subject, class_no, text, embedding, COALESCE(source_pdf, ''), page
		FROM content_chunks
		WHERE subject = $1 AND class_no = $2
		ORDER BY created_at, id`

	rows, err := p.pool.Query(ctx, query, subject, classNo)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []retrieval.Chunk
	for rows.Next() {
		var (
			chunk     retrieval.Chunk
			embedding pgvector.Vector
		)
		if err := rows.Scan(&chunk.ID, &chunk.Chapter, &chunk.Subject, &chunk.ClassNo,
			&chunk.Text, &embedding, &chunk.SourcePDF, &chunk.Page); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunk.Embedding = embedding.Slice()
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return chunks, nil
}

// CreateVectorIndex fixes the embedding column to the given dimensionality
// and builds an HNSW cosine index over it. The column starts untyped
// (dimension-less vector) because the dimensionality is only known after the
// first embedding call. Wraps retrieval.ErrIndexExists when the index is
// already present.
func (p *Postgres) CreateVectorIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensionality %d", dimensions)
	}

	alter := fmt.Sprintf(`ALTER TABLE content_chunks ALTER COLUMN embedding TYPE vector(%d)`, dimensions)
	if _, err := p.pool.Exec(ctx, alter); err != nil {
		return classifyIndexError(fmt.Errorf("fixing embedding dimensionality: %w", err))
	}

	const index = `
		CREATE INDEX idx_content_chunks_embedding
		ON content_chunks USING hnsw (embedding vector_cosine_ops)`
	if _, err := p.pool.Exec(ctx, index); err != nil {
		return classifyIndexError(fmt.Errorf("creating vector index: %w", err))
	}

	p.logger.Info("vector index created", "dimensions", dimensions)
	return nil
}

// CreateFilterIndexes builds the btree indexes backing the subject and class
// equality filters. Wraps retrieval.ErrIndexExists when already present.
func (p *Postgres) CreateFilterIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE INDEX idx_content_chunks_subject ON content_chunks (subject)`,
		`CREATE INDEX idx_content_chunks_class_no ON content_chunks (class_no)`,
		`CREATE INDEX idx_content_chunks_chapter ON content_chunks (chapter)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return classifyIndexError(fmt.Errorf("creating filter index: %w", err))
		}
	}
	return nil
}

// Ping verifies database connectivity for health checks.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Postgres error codes for objects that already exist.
const (
	codeDuplicateTable  = "42P07" // duplicate_table, also raised for indexes
	codeDuplicateObject = "42710" // duplicate_object
)

// classifyIndexError maps "already exists" failures onto
// retrieval.ErrIndexExists so the index manager can treat them as success.
// Anything else passes through untouched.
func classifyIndexError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeDuplicateTable || pgErr.Code == codeDuplicateObject {
			return fmt.Errorf("%w: %s", retrieval.ErrIndexExists, pgErr.Message)
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return fmt.Errorf("%w: %v", retrieval.ErrIndexExists, err)
	}
	return err
}

// nullIfEmpty stores absent optional strings as NULL rather than "".
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ retrieval.Store = (*Postgres)(nil)
