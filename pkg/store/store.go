// Package store persists project canvases.
//
// Every backend keeps one document per project: the project's
// [graph.Snapshot]. [Documents] implements the item-level [Store] operations
// (put or delete one node, edge or group) as read-modify-write cycles on that
// document, so a backend only needs whole-document Get and Put.
//
// Backends:
//   - [FileBackend]: JSON files under a data directory (CLI use)
//   - [MemoryBackend]: an in-process map (tests, throwaway sessions)
//   - [RedisBackend]: one JSON value per project key
//   - [MongoBackend]: one BSON document per project
//
// Use [Open] to build the backend named in a project's configuration.
package store

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/observability"
)

// ErrNotFound is returned by a backend when no document exists for a project.
var ErrNotFound = stderrors.New("project not found")

// Store is the persistence collaborator of a session.
type Store interface {
	// Load returns the project's snapshot. A missing project is reported
	// with code PROJECT_NOT_FOUND.
	Load(ctx context.Context, projectID string) (*graph.Snapshot, error)
	// Save replaces the whole snapshot.
	Save(ctx context.Context, s *graph.Snapshot) error

	PutNode(ctx context.Context, projectID string, n graph.Node) error
	// DeleteNode also drops edges touching the node and its group memberships.
	DeleteNode(ctx context.Context, projectID, nodeID string) error
	PutEdge(ctx context.Context, projectID string, e graph.Edge) error
	DeleteEdge(ctx context.Context, projectID, edgeID string) error
	PutGroup(ctx context.Context, projectID string, g graph.Group) error
	DeleteGroup(ctx context.Context, projectID, groupID string) error

	// List returns the stored project IDs in ascending order.
	List(ctx context.Context) ([]string, error)
	// Delete removes a project. Deleting a missing project is not an error.
	Delete(ctx context.Context, projectID string) error

	Close() error
}

// Backend stores whole snapshots keyed by project ID.
type Backend interface {
	// Name identifies the backend in logs and hooks.
	Name() string
	// Get returns ErrNotFound when the project has no document.
	Get(ctx context.Context, projectID string) (*graph.Snapshot, error)
	Put(ctx context.Context, s *graph.Snapshot) error
	Remove(ctx context.Context, projectID string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Updater is implemented by backends that can apply a read-modify-write
// cycle atomically against concurrent writers in other processes. fn
// receives an empty snapshot when the project does not exist yet.
type Updater interface {
	Update(ctx context.Context, projectID string, fn func(*graph.Snapshot) error) error
}

// Documents implements Store on top of a Backend.
type Documents struct {
	backend Backend
	logger  *log.Logger
	now     func() time.Time

	// mu serializes read-modify-write cycles for backends that are not
	// Updaters.
	mu sync.Mutex
}

// Option configures a Documents store.
type Option func(*Documents)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(d *Documents) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a store over b.
func New(b Backend, opts ...Option) *Documents {
	d := &Documents{
		backend: b,
		logger:  log.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backend returns the underlying backend.
func (d *Documents) Backend() Backend { return d.backend }

// Load implements Store.
func (d *Documents) Load(ctx context.Context, projectID string) (*graph.Snapshot, error) {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	var s *graph.Snapshot
	err := d.observe(ctx, "load", func() error {
		var err error
		s, err = d.backend.Get(ctx, projectID)
		return err
	})
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(errors.ErrCodeProjectNotFound, err, "project %q", projectID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load project %q", projectID)
	}
	return s, nil
}

// Save implements Store.
func (d *Documents) Save(ctx context.Context, s *graph.Snapshot) error {
	if err := errors.ValidateProjectID(s.ProjectID); err != nil {
		return err
	}
	s.SavedAt = d.now()
	return d.wrap(s.ProjectID, "save", d.observe(ctx, "save", func() error {
		return d.backend.Put(ctx, s)
	}))
}

// PutNode implements Store.
func (d *Documents) PutNode(ctx context.Context, projectID string, n graph.Node) error {
	return d.update(ctx, projectID, "put_node", func(s *graph.Snapshot) error {
		putNode(s, n)
		return nil
	})
}

// DeleteNode implements Store.
func (d *Documents) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	return d.update(ctx, projectID, "delete_node", func(s *graph.Snapshot) error {
		deleteNode(s, nodeID)
		return nil
	})
}

// PutEdge implements Store.
func (d *Documents) PutEdge(ctx context.Context, projectID string, e graph.Edge) error {
	return d.update(ctx, projectID, "put_edge", func(s *graph.Snapshot) error {
		putEdge(s, e)
		return nil
	})
}

// DeleteEdge implements Store.
func (d *Documents) DeleteEdge(ctx context.Context, projectID, edgeID string) error {
	return d.update(ctx, projectID, "delete_edge", func(s *graph.Snapshot) error {
		deleteEdge(s, edgeID)
		return nil
	})
}

// PutGroup implements Store.
func (d *Documents) PutGroup(ctx context.Context, projectID string, g graph.Group) error {
	return d.update(ctx, projectID, "put_group", func(s *graph.Snapshot) error {
		putGroup(s, g)
		return nil
	})
}

// DeleteGroup implements Store.
func (d *Documents) DeleteGroup(ctx context.Context, projectID, groupID string) error {
	return d.update(ctx, projectID, "delete_group", func(s *graph.Snapshot) error {
		deleteGroup(s, groupID)
		return nil
	})
}

// List implements Store.
func (d *Documents) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := d.observe(ctx, "list", func() error {
		var err error
		keys, err = d.backend.Keys(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list projects")
	}
	return keys, nil
}

// Delete implements Store.
func (d *Documents) Delete(ctx context.Context, projectID string) error {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return err
	}
	return d.wrap(projectID, "delete", d.observe(ctx, "delete", func() error {
		return d.backend.Remove(ctx, projectID)
	}))
}

// Close implements Store.
func (d *Documents) Close() error { return d.backend.Close() }

func (d *Documents) update(ctx context.Context, projectID, op string, fn func(*graph.Snapshot) error) error {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return err
	}
	apply := func(s *graph.Snapshot) error {
		s.ProjectID = projectID
		s.SavedAt = d.now()
		return fn(s)
	}

	err := d.observe(ctx, op, func() error {
		if u, ok := d.backend.(Updater); ok {
			return u.Update(ctx, projectID, apply)
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		s, err := d.backend.Get(ctx, projectID)
		if stderrors.Is(err, ErrNotFound) {
			s, err = &graph.Snapshot{}, nil
		}
		if err != nil {
			return err
		}
		if err := apply(s); err != nil {
			return err
		}
		return d.backend.Put(ctx, s)
	})
	return d.wrap(projectID, op, err)
}

func (d *Documents) observe(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.Store().OnStoreOp(ctx, d.backend.Name(), op, time.Since(start), err)
	if err != nil && !stderrors.Is(err, ErrNotFound) {
		d.logger.Debug("store operation failed", "backend", d.backend.Name(), "op", op, "err", err)
	}
	return err
}

func (d *Documents) wrap(projectID, op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "%s project %q", op, projectID)
}

// Ensure Documents implements Store.
var _ Store = (*Documents)(nil)
