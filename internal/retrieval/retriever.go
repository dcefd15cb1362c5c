package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/gurukul-labs/gurukul/internal/log"
)

// DefaultTopK is the result limit used when a caller passes k <= 0.
const DefaultTopK = 4

// Retriever answers similarity queries over the chunk store. Every call
// takes one of two paths: the primary path delegates ranking to the
// store's similarity search; if that fails for any reason, the fallback
// path fetches all chunks matching the filters and ranks them in process
// by cosine similarity.
type Retriever struct {
	embedder Embedder
	index    *IndexManager
	store    SimilaritySearcher
	logger   log.Logger
}

// NewRetriever creates a Retriever. A nil logger falls back to a no-op
// logger.
func NewRetriever(store SimilaritySearcher, embedder Embedder, index *IndexManager, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		logger:   logger,
	}
}

// Search embeds the query and returns up to k chunks matching the subject
// and class filters, ranked by similarity. Fewer than k results (or none)
// is not an error. Embedding failures and fallback fetch failures
// propagate.
func (r *Retriever) Search(ctx context.Context, query string, classNo int, subject string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	qvec := vectors[0]

	r.index.EnsureReady(ctx, len(qvec))

	results, err := r.store.SimilaritySearch(ctx, qvec, subject, classNo, k)
	if err == nil {
		return results, nil
	}

	r.logger.Warn("similarity search failed, falling back to in-process scoring",
		"subject", subject, "class_no", classNo, "error", err)

	return r.bruteForce(ctx, qvec, subject, classNo, k)
}

// bruteForce fetches every chunk matching the filters and ranks by cosine
// similarity computed in process. A chunk with an empty embedding scores
// -1 so it sorts behind every valid chunk without raising. The sort is
// stable: ties keep store-fetch order.
func (r *Retriever) bruteForce(ctx context.Context, qvec []float32, subject string, classNo, k int) ([]SearchResult, error) {
	chunks, err := r.store.ChunksByFilter(ctx, subject, classNo)
	if err != nil {
		return nil, fmt.Errorf("fallback fetch: %w", err)
	}

	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			scores[i] = -1.0
			continue
		}
		scores[i] = cosineSimilarity(qvec, c.Embedding)
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	if k > len(order) {
		k = len(order)
	}

	results := make([]SearchResult, 0, k)
	for _, idx := range order[:k] {
		c := chunks[idx]
		results = append(results, SearchResult{
			Text:      c.Text,
			Chapter:   c.Chapter,
			Subject:   c.Subject,
			ClassNo:   c.ClassNo,
			Page:      c.Page,
			SourcePDF: c.SourcePDF,
		})
	}
	return results, nil
}
