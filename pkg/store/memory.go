package store

import (
	"context"
	"slices"
	"sync"

	"github.com/depfuse/depfuse/pkg/analyzer"
)

// MemoryStore keeps runs in memory. Intended for tests and one-shot CLI
// invocations that render a run without persisting it.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*analyzer.Run
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*analyzer.Run)}
}

// Save persists a run, overwriting any run with the same ID.
func (s *MemoryStore) Save(ctx context.Context, run *analyzer.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// Get retrieves a run by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*analyzer.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

// List returns summaries of all runs, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, summarize(run))
	}
	slices.SortFunc(out, func(a, b RunSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out, nil
}

// Delete removes a run.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
