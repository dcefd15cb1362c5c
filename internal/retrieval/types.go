// Package retrieval implements the content retrieval core: turning source
// text into content-addressed, embedded chunks, and answering queries by
// retrieving relevant chunks and grounding generation strictly on them.
//
// The package owns no wire protocol or storage engine. It composes a chunk
// store, an embedding provider, and a generation provider through the
// consumer-defined interfaces below; the concrete implementations live in
// internal/store and internal/azureai.
package retrieval

import (
	"context"
	"errors"

	"github.com/gurukul-labs/gurukul/internal/azureai"
)

// ErrIndexExists classifies an index-creation failure caused by the index
// already being present (a race with another process or a prior partial
// run). Store implementations wrap this sentinel; the IndexManager treats
// it as success.
var ErrIndexExists = errors.New("index already exists")

// Chunk is the unit of storage and retrieval: a bounded segment of source
// text with its embedding and categorical filter fields. Chapter, Subject
// and ClassNo are immutable once the chunk is created; SourcePDF and Page
// are optional provenance.
type Chunk struct {
	ID        string
	Chapter   string
	Subject   string
	ClassNo   int
	Text      string
	Embedding []float32
	SourcePDF string
	Page      *int
}

// SearchResult is the retrieval projection of a Chunk: text plus metadata,
// without the id or the embedding, which downstream consumers never need.
type SearchResult struct {
	Text      string `json:"text"`
	Chapter   string `json:"chapter"`
	Subject   string `json:"subject"`
	ClassNo   int    `json:"class_no"`
	Page      *int   `json:"page,omitempty"`
	SourcePDF string `json:"source_pdf,omitempty"`
}

// Embedder maps a batch of texts to one vector per text, preserving input
// order. An empty batch must return an empty result without a provider
// call. Provider errors propagate unmodified; retries, if any, belong to
// the caller's outer layer.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from role-tagged messages with the given
// sampling temperature.
type Generator interface {
	Complete(ctx context.Context, messages []azureai.Message, temperature float32) (string, error)
}

// ChunkUpserter persists a chunk keyed by its content-addressed id,
// overwriting any existing record with the same id.
type ChunkUpserter interface {
	UpsertChunk(ctx context.Context, chunk Chunk) error
}

// SimilaritySearcher is the two-path search surface of the chunk store.
// SimilaritySearch is the primary ANN path; ChunksByFilter feeds the
// brute-force fallback with full chunks including embeddings.
type SimilaritySearcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, subject string, classNo, limit int) ([]SearchResult, error)
	ChunksByFilter(ctx context.Context, subject string, classNo int) ([]Chunk, error)
}

// IndexCreator issues index creation against the chunk store. An attempt
// that fails because the index is already present must wrap ErrIndexExists.
type IndexCreator interface {
	CreateVectorIndex(ctx context.Context, dimensions int) error
	CreateFilterIndexes(ctx context.Context) error
}

// Store is the full store contract the retrieval system composes.
type Store interface {
	ChunkUpserter
	SimilaritySearcher
	IndexCreator
}
