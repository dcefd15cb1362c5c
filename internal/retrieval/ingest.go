package retrieval

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/textsplit"
)

// ChunkInput carries the fields needed to embed and upsert one chunk.
// Text must be non-empty after trimming; SourcePDF and Page are optional.
type ChunkInput struct {
	Subject   string
	ClassNo   int
	Chapter   string
	Text      string
	SourcePDF string
	Page      *int
}

// PageText is one page (or unit) of raw extracted text from a source work.
type PageText struct {
	Number int
	Text   string
}

// DocumentInput is a paginated source document to ingest as chunks.
type DocumentInput struct {
	Subject   string
	ClassNo   int
	Chapter   string
	SourcePDF string
	Pages     []PageText
}

// Report aggregates the outcome of a document ingestion run.
type Report struct {
	Chunks int // chunks embedded and upserted
	Failed int // chunks whose embedding or upsert failed
}

// Ingestor turns source documents into persisted, searchable chunks:
// normalize, chunk, embed, ensure the index, upsert keyed by content id.
type Ingestor struct {
	embedder Embedder
	index    *IndexManager
	store    ChunkUpserter
	chunker  textsplit.Chunker
	logger   log.Logger
}

// NewIngestor creates an Ingestor. A nil logger falls back to a no-op
// logger.
func NewIngestor(store ChunkUpserter, embedder Embedder, index *IndexManager, chunker textsplit.Chunker, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{
		embedder: embedder,
		index:    index,
		store:    store,
		chunker:  chunker,
		logger:   logger,
	}
}

// IngestChunk embeds one chunk of text, ensures the index is ready, and
// upserts the chunk record. Returns the content-addressed chunk id.
// Re-ingesting identical input overwrites in place rather than
// duplicating.
func (in *Ingestor) IngestChunk(ctx context.Context, input ChunkInput) (string, error) {
	vectors, err := in.embedder.Embed(ctx, []string{input.Text})
	if err != nil {
		return "", fmt.Errorf("embedding chunk: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return "", fmt.Errorf("embedder returned an empty vector")
	}
	vec := vectors[0]

	in.index.EnsureReady(ctx, len(vec))

	id := ChunkID(input.Subject, input.ClassNo, input.Chapter, input.Page, input.SourcePDF, input.Text)
	chunk := Chunk{
		ID:        id,
		Chapter:   input.Chapter,
		Subject:   input.Subject,
		ClassNo:   input.ClassNo,
		Text:      input.Text,
		Embedding: vec,
		SourcePDF: input.SourcePDF,
		Page:      input.Page,
	}

	if err := in.store.UpsertChunk(ctx, chunk); err != nil {
		return "", fmt.Errorf("upserting chunk %s: %w", id, err)
	}

	in.logger.Debug("chunk ingested", "id", id, "subject", input.Subject, "chapter", input.Chapter)
	return id, nil
}

// IngestDocument runs the full pipeline over every page of a document.
// Embeddings are batched per page. A failed chunk does not abort the run:
// ingestion is a best-effort batch job, so the pipeline continues and
// reports failures aggregated in the returned error (which may wrap
// multiple causes).
func (in *Ingestor) IngestDocument(ctx context.Context, doc DocumentInput) (Report, error) {
	var (
		report Report
		errs   []error
	)

	for _, page := range doc.Pages {
		text := textsplit.Normalize(page.Text)
		chunks := slices.Collect(in.chunker.Split(text))
		if len(chunks) == 0 {
			continue
		}

		vectors, err := in.embedder.Embed(ctx, chunks)
		if err != nil {
			report.Failed += len(chunks)
			errs = append(errs, fmt.Errorf("embedding page %d: %w", page.Number, err))
			continue
		}
		if len(vectors) != len(chunks) {
			report.Failed += len(chunks)
			errs = append(errs, fmt.Errorf("page %d: embedder returned %d vectors for %d chunks", page.Number, len(vectors), len(chunks)))
			continue
		}

		in.index.EnsureReady(ctx, len(vectors[0]))

		pageNo := page.Number
		for i, chunkText := range chunks {
			id := ChunkID(doc.Subject, doc.ClassNo, doc.Chapter, &pageNo, doc.SourcePDF, chunkText)
			chunk := Chunk{
				ID:        id,
				Chapter:   doc.Chapter,
				Subject:   doc.Subject,
				ClassNo:   doc.ClassNo,
				Text:      chunkText,
				Embedding: vectors[i],
				SourcePDF: doc.SourcePDF,
				Page:      &pageNo,
			}
			if err := in.store.UpsertChunk(ctx, chunk); err != nil {
				report.Failed++
				errs = append(errs, fmt.Errorf("upserting chunk %s (page %d): %w", id, page.Number, err))
				continue
			}
			report.Chunks++
		}
	}

	in.logger.Info("document ingested",
		"subject", doc.Subject,
		"chapter", doc.Chapter,
		"pages", len(doc.Pages),
		"chunks", report.Chunks,
		"failed", report.Failed)

	return report, errors.Join(errs...)
}
