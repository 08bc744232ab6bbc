package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordHooks(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics("test")

	m.OnLayoutComplete(ctx, "TB", 4, time.Millisecond, nil)
	m.OnLayoutComplete(ctx, "TB", 4, time.Millisecond, errors.New("boom"))
	m.OnEdgeSkipped(ctx, "e1")
	m.OnConnection(ctx, "data-flow", "")
	m.OnConnection(ctx, "", "RULE_VIOLATION")
	m.OnBulkComplete(ctx, "delete", 3, 1, time.Millisecond)
	m.OnCacheHit(ctx, "layout")
	m.OnCacheMiss(ctx, "layout")
	m.OnCacheMiss(ctx, "layout")
	m.OnCacheSet(ctx, "layout", 512)
	m.OnStoreOp(ctx, "file", "put_node", time.Millisecond, nil)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"layout ok", testutil.ToFloat64(m.layouts.WithLabelValues("TB", "ok")), 1},
		{"layout error", testutil.ToFloat64(m.layouts.WithLabelValues("TB", "error")), 1},
		{"edges skipped", testutil.ToFloat64(m.edgesSkipped), 1},
		{"accepted", testutil.ToFloat64(m.connections.WithLabelValues("data-flow", "accepted")), 1},
		{"rejected", testutil.ToFloat64(m.connections.WithLabelValues("", "RULE_VIOLATION")), 1},
		{"bulk processed", testutil.ToFloat64(m.bulkItems.WithLabelValues("delete", "processed")), 3},
		{"bulk failed", testutil.ToFloat64(m.bulkItems.WithLabelValues("delete", "failed")), 1},
		{"cache hit", testutil.ToFloat64(m.cacheLookups.WithLabelValues("layout", "hit")), 1},
		{"cache miss", testutil.ToFloat64(m.cacheLookups.WithLabelValues("layout", "miss")), 2},
		{"cache bytes", testutil.ToFloat64(m.cacheBytes), 512},
		{"store op", testutil.ToFloat64(m.storeOps.WithLabelValues("file", "put_node", "ok")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestInstallTee(t *testing.T) {
	Reset()
	defer Reset()

	a, b := NewMetrics("a"), NewMetrics("b")
	Install(Tee(a, b))
	Graph().OnConnection(context.Background(), "data-flow", "")
	Store().OnStoreOp(context.Background(), "memory", "load", time.Millisecond, errors.New("down"))

	for _, m := range []*Metrics{a, b} {
		if got := testutil.ToFloat64(m.connections.WithLabelValues("data-flow", "accepted")); got != 1 {
			t.Errorf("connections = %v, want 1", got)
		}
		if got := testutil.ToFloat64(m.storeOps.WithLabelValues("memory", "load", "error")); got != 1 {
			t.Errorf("store errors = %v, want 1", got)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("mg")
	m.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `mg_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}
