package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gurukul-labs/gurukul/internal/log"
)

func TestIndexManager_CreatesOnce(t *testing.T) {
	store := newMockStore()
	m := NewIndexManager(store, log.NewNop())

	m.EnsureReady(context.Background(), 1536)
	m.EnsureReady(context.Background(), 1536)
	m.EnsureReady(context.Background(), 3072) // different dimensionality: still a no-op

	if store.vectorIndexCall != 1 {
		t.Errorf("vector index created %d times, want 1", store.vectorIndexCall)
	}
	if store.filterIndexCall != 1 {
		t.Errorf("filter indexes created %d times, want 1", store.filterIndexCall)
	}
	if m.Degraded() {
		t.Error("manager should not be degraded after successful creation")
	}
}

func TestIndexManager_AlreadyExistsIsSuccess(t *testing.T) {
	store := newMockStore()
	store.vectorIndexErr = fmt.Errorf("creating index: %w", ErrIndexExists)
	store.filterIndexErr = fmt.Errorf("creating index: %w", ErrIndexExists)

	m := NewIndexManager(store, log.NewNop())
	m.EnsureReady(context.Background(), 1536)

	if m.Degraded() {
		t.Error("already-exists failures must count as success")
	}

	m.EnsureReady(context.Background(), 1536)
	if store.vectorIndexCall != 1 {
		t.Errorf("creation retried after already-exists, calls = %d", store.vectorIndexCall)
	}
}

func TestIndexManager_OtherFailureSwallowedButDegraded(t *testing.T) {
	store := newMockStore()
	store.vectorIndexErr = errors.New("store on fire")

	m := NewIndexManager(store, log.NewNop())
	m.EnsureReady(context.Background(), 1536)

	if !m.Degraded() {
		t.Error("non-exists failure should mark the manager degraded")
	}

	// The ready flag is still set: no repeated hammering of the store.
	m.EnsureReady(context.Background(), 1536)
	if store.vectorIndexCall != 1 {
		t.Errorf("creation retried after failure, calls = %d", store.vectorIndexCall)
	}
}

func TestIndexManager_ConcurrentCallsCreateOnce(t *testing.T) {
	store := newMockStore()
	m := NewIndexManager(store, log.NewNop())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.EnsureReady(context.Background(), 768)
		}()
	}
	wg.Wait()

	if store.vectorIndexCall != 1 {
		t.Errorf("vector index created %d times under concurrency, want 1", store.vectorIndexCall)
	}
}
