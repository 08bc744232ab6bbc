package store

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// MemoryBackend keeps snapshots in process memory. Documents are stored
// encoded so callers never share state with the backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// NewMemory is shorthand for New(NewMemoryBackend()).
func NewMemory(opts ...Option) *Documents {
	return New(NewMemoryBackend(), opts...)
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Get(ctx context.Context, projectID string) (*graph.Snapshot, error) {
	b.mu.RLock()
	data, ok := b.docs[projectID]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s graph.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *MemoryBackend) Put(ctx context.Context, s *graph.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[s.ProjectID] = data
	return nil
}

func (b *MemoryBackend) Remove(ctx context.Context, projectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, projectID)
	return nil
}

func (b *MemoryBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.docs)), nil
}

func (b *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
