package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// SnapshotFile is the snapshot file name inside a project directory.
const SnapshotFile = "graph.json"

// FileBackend stores each project as <dir>/<project>/graph.json.
// It is safe for concurrent use within one process.
type FileBackend struct {
	mu  sync.RWMutex
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the data directory.
func (b *FileBackend) Dir() string { return b.dir }

// ProjectDir returns the directory holding projectID's files.
func (b *FileBackend) ProjectDir(projectID string) string {
	return filepath.Join(b.dir, projectID)
}

func (b *FileBackend) path(projectID string) string {
	return filepath.Join(b.ProjectDir(projectID), SnapshotFile)
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Get implements Backend.
func (b *FileBackend) Get(ctx context.Context, projectID string) (*graph.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.path(projectID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s graph.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	s.ProjectID = projectID
	return &s, nil
}

// Put implements Backend. The snapshot is written to a temporary file and
// renamed into place so readers never see a partial document.
func (b *FileBackend) Put(ctx context.Context, s *graph.Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.path(s.ProjectID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Remove implements Backend. Only the snapshot is removed; other files in
// the project directory, such as its configuration, stay.
func (b *FileBackend) Remove(ctx context.Context, projectID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(projectID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// Keys implements Backend.
func (b *FileBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(b.path(e.Name())); err == nil {
			keys = append(keys, e.Name())
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close does nothing for the file backend.
func (b *FileBackend) Close() error { return nil }

var _ Backend = (*FileBackend)(nil)
