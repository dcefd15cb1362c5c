package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/gurukul-labs/gurukul/internal/azureai"
)

// mockStore implements Store in memory with configurable failures and call
// tracking.
type mockStore struct {
	mu sync.Mutex

	chunks map[string]Chunk // keyed by id, insertion order tracked below
	order  []string

	upsertErr       error
	failUpsertText  string // fail only upserts carrying this exact text
	searchErr       error
	listErr         error
	vectorIndexErr  error
	filterIndexErr  error
	searchResults   []SearchResult
	vectorIndexCall int
	filterIndexCall int
	searchCalls     int
	listCalls       int
}

func newMockStore() *mockStore {
	return &mockStore{chunks: make(map[string]Chunk)}
}

func (m *mockStore) UpsertChunk(_ context.Context, chunk Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.failUpsertText != "" && chunk.Text == m.failUpsertText {
		return fmt.Errorf("upsert rejected")
	}
	if _, exists := m.chunks[chunk.ID]; !exists {
		m.order = append(m.order, chunk.ID)
	}
	m.chunks[chunk.ID] = chunk
	return nil
}

func (m *mockStore) SimilaritySearch(_ context.Context, _ []float32, _ string, _, _ int) ([]SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockStore) ChunksByFilter(_ context.Context, subject string, classNo int) ([]Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Chunk
	for _, id := range m.order {
		c := m.chunks[id]
		if c.Subject == subject && c.ClassNo == classNo {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) CreateVectorIndex(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectorIndexCall++
	return m.vectorIndexErr
}

func (m *mockStore) CreateFilterIndexes(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filterIndexCall++
	return m.filterIndexErr
}

func (m *mockStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// mockEmbedder returns fixture vectors by exact text match, or a default
// vector for unknown texts. It honors the empty-batch contract.
type mockEmbedder struct {
	byText     map[string][]float32
	defaultVec []float32
	err        error
	calls      int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		byText:     make(map[string][]float32),
		defaultVec: []float32{0.1, 0.2, 0.3},
	}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := m.byText[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = m.defaultVec
	}
	return out, nil
}

// mockGenerator records the messages it was called with.
type mockGenerator struct {
	reply        string
	err          error
	gotMessages  []azureai.Message
	gotTemp      float32
	completeCall int
}

func (m *mockGenerator) Complete(_ context.Context, messages []azureai.Message, temperature float32) (string, error) {
	m.completeCall++
	m.gotMessages = messages
	m.gotTemp = temperature
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// failingEmbedder always errors with a recognizable message.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("provider unavailable")
}
