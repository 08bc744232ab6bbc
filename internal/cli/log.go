package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/metricgraph/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Laid out 12 nodes (4ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports engine events to the CLI logger at debug level, so
// --verbose shows cache hits, store timings and rejected connections.
type logHooks struct {
	logger *log.Logger
}

func installHooks(l *log.Logger, extra ...observability.Hooks) {
	hs := append([]observability.Hooks{logHooks{logger: l}}, extra...)
	observability.Install(observability.Tee(hs...))
}

func (h logHooks) OnLayoutStart(_ context.Context, direction string, nodeCount int) {
	h.logger.Debug("layout start", "direction", direction, "nodes", nodeCount)
}

func (h logHooks) OnLayoutComplete(_ context.Context, direction string, nodeCount int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("layout failed", "direction", direction, "nodes", nodeCount, "err", err)
		return
	}
	h.logger.Debug("layout complete", "direction", direction, "nodes", nodeCount, "took", d.Round(time.Microsecond))
}

func (h logHooks) OnEdgeSkipped(_ context.Context, edgeID string) {
	h.logger.Debug("layout skipped edge", "edge", edgeID)
}

func (h logHooks) OnConnection(_ context.Context, category, code string) {
	if code != "" {
		h.logger.Debug("connection rejected", "code", code)
		return
	}
	h.logger.Debug("connection created", "category", category)
}

func (h logHooks) OnBulkComplete(_ context.Context, op string, processed, failed int, d time.Duration) {
	h.logger.Debug("bulk complete", "op", op, "processed", processed, "failed", failed, "took", d.Round(time.Microsecond))
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnStoreOp(_ context.Context, backend, op string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("store operation failed", "backend", backend, "op", op, "err", err)
		return
	}
	h.logger.Debug("store", "backend", backend, "op", op, "took", d.Round(time.Microsecond))
}
