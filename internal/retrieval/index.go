package retrieval

import (
	"context"
	"errors"
	"sync"

	"github.com/gurukul-labs/gurukul/internal/log"
)

// IndexManager guarantees the chunk store has a vector similarity index and
// the scalar filter indexes before ingestion or retrieval touch it, at most
// once per process. Construct one per process and inject it into the
// Ingestor and Retriever.
//
// Creation failures never propagate. "Already exists" failures are success
// by definition; any other store failure is logged, the manager marks
// itself degraded, and the ready flag is still set so a doomed creation is
// not retried on every call. Searches then degrade to the in-process
// fallback path instead of hard-failing. Degraded() surfaces this state to
// health checks.
type IndexManager struct {
	store  IndexCreator
	logger log.Logger

	mu       sync.Mutex
	ready    bool
	degraded bool
}

// NewIndexManager creates an IndexManager. A nil logger falls back to a
// no-op logger.
func NewIndexManager(store IndexCreator, logger log.Logger) *IndexManager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &IndexManager{store: store, logger: logger}
}

// EnsureReady issues index creation on the first call and is a no-op on
// every subsequent call, regardless of argument changes: a later caller
// with a different embedding dimensionality does not re-trigger creation.
func (m *IndexManager) EnsureReady(ctx context.Context, dimensions int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return
	}

	if err := m.store.CreateVectorIndex(ctx, dimensions); err != nil && !errors.Is(err, ErrIndexExists) {
		m.logger.Warn("vector index creation failed; similarity search may degrade to in-process scoring",
			"dimensions", dimensions, "error", err)
		m.degraded = true
	}

	if err := m.store.CreateFilterIndexes(ctx); err != nil && !errors.Is(err, ErrIndexExists) {
		m.logger.Warn("filter index creation failed", "error", err)
		m.degraded = true
	}

	m.ready = true
}

// Degraded reports whether index creation failed for a reason other than
// the index already existing. Rebuilt fresh on process restart.
func (m *IndexManager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}
