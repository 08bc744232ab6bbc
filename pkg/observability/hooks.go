// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events about connections, layout passes, bulk operations,
// cache lookups and store round trips through the hooks registered here.
// The defaults do nothing. [Metrics] is a ready-made Prometheus
// implementation, and [Tee] combines it with others.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := observability.NewMetrics("metricgraph")
//	    observability.Install(observability.Tee(myLogHooks, m))
//	    http.Handle("/metrics", m.Handler())
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnLayoutStart(ctx, direction, nodeCount)
//	// ... compute positions ...
//	observability.Layout().OnLayoutComplete(ctx, direction, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout engine.
type LayoutHooks interface {
	OnLayoutStart(ctx context.Context, direction string, nodeCount int)
	// OnLayoutComplete reports the outcome. A non-nil err means the original
	// positions were kept.
	OnLayoutComplete(ctx context.Context, direction string, nodeCount int, duration time.Duration, err error)
	// OnEdgeSkipped reports an edge dropped because an endpoint is missing.
	OnEdgeSkipped(ctx context.Context, edgeID string)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events about edge creation and bulk operations.
type GraphHooks interface {
	// OnConnection records an accepted or rejected connection request.
	// code is empty for accepted connections.
	OnConnection(ctx context.Context, category string, code string)

	// OnBulkComplete records the outcome of a bulk operation.
	OnBulkComplete(ctx context.Context, op string, processed, failed int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from the persistence layer.
type StoreHooks interface {
	// OnStoreOp records one backend round trip.
	OnStoreOp(ctx context.Context, backend, op string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int) {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopLayoutHooks) OnEdgeSkipped(context.Context, string) {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnConnection(context.Context, string, string)                    {}
func (NoopGraphHooks) OnBulkComplete(context.Context, string, int, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreOp(context.Context, string, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	graphHooks  GraphHooks  = NoopGraphHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetGraphHooks registers custom graph hooks.
// This should be called once at application startup.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	graphHooks = NoopGraphHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
}

// =============================================================================
// Combined Hooks
// =============================================================================

// Hooks covers every hook category.
type Hooks interface {
	LayoutHooks
	GraphHooks
	CacheHooks
	StoreHooks
}

// Install registers h for every hook category.
func Install(h Hooks) {
	SetLayoutHooks(h)
	SetGraphHooks(h)
	SetCacheHooks(h)
	SetStoreHooks(h)
}

// Tee returns Hooks that forward every event to each of hs in order.
func Tee(hs ...Hooks) Hooks { return tee(hs) }

type tee []Hooks

func (t tee) OnLayoutStart(ctx context.Context, direction string, nodeCount int) {
	for _, h := range t {
		h.OnLayoutStart(ctx, direction, nodeCount)
	}
}

func (t tee) OnLayoutComplete(ctx context.Context, direction string, nodeCount int, d time.Duration, err error) {
	for _, h := range t {
		h.OnLayoutComplete(ctx, direction, nodeCount, d, err)
	}
}

func (t tee) OnEdgeSkipped(ctx context.Context, edgeID string) {
	for _, h := range t {
		h.OnEdgeSkipped(ctx, edgeID)
	}
}

func (t tee) OnConnection(ctx context.Context, category, code string) {
	for _, h := range t {
		h.OnConnection(ctx, category, code)
	}
}

func (t tee) OnBulkComplete(ctx context.Context, op string, processed, failed int, d time.Duration) {
	for _, h := range t {
		h.OnBulkComplete(ctx, op, processed, failed, d)
	}
}

func (t tee) OnCacheHit(ctx context.Context, keyType string) {
	for _, h := range t {
		h.OnCacheHit(ctx, keyType)
	}
}

func (t tee) OnCacheMiss(ctx context.Context, keyType string) {
	for _, h := range t {
		h.OnCacheMiss(ctx, keyType)
	}
}

func (t tee) OnCacheSet(ctx context.Context, keyType string, size int) {
	for _, h := range t {
		h.OnCacheSet(ctx, keyType, size)
	}
}

func (t tee) OnStoreOp(ctx context.Context, backend, op string, d time.Duration, err error) {
	for _, h := range t {
		h.OnStoreOp(ctx, backend, op, d, err)
	}
}
