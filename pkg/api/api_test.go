package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/config"
	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/observability"
	"github.com/matzehuels/metricgraph/pkg/session"
	"github.com/matzehuels/metricgraph/pkg/store"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	st := store.NewMemory(store.WithLogger(logger))
	cfg := config.Default()
	cfg.Layout.Auto = false

	srv := New(func(ctx context.Context, projectID string) (*session.Session, error) {
		return session.Open(ctx, st, projectID, cfg, session.WithLogger(logger))
	}, logger, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close(context.Background())
	})
	return ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createNode(t *testing.T, base, typ, title string) graph.Node {
	t.Helper()
	var n graph.Node
	if code := do(t, http.MethodPost, base+"/nodes", map[string]any{"type": typ, "title": title}, &n); code != http.StatusCreated {
		t.Fatalf("create %s: status %d", title, code)
	}
	return n
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body struct {
		Status string `json:"status"`
	}
	if code := do(t, http.MethodGet, ts.URL+"/health", nil, &body); code != http.StatusOK || body.Status != "ok" {
		t.Errorf("health = %d %+v", code, body)
	}
}

func TestRules(t *testing.T) {
	ts := newTestServer(t)
	var rules []ruleView
	if code := do(t, http.MethodGet, ts.URL+"/rules", nil, &rules); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(rules) == 0 || rules[0].Name != "business" {
		t.Errorf("rules = %+v", rules)
	}
}

func TestRuleNeighbors(t *testing.T) {
	ts := newTestServer(t)

	var targets []string
	if code := do(t, http.MethodGet, ts.URL+"/rules/metric/targets", nil, &targets); code != http.StatusOK {
		t.Fatalf("targets status %d", code)
	}
	if !slices.Contains(targets, "chart") || slices.Contains(targets, "comment") {
		t.Errorf("metric targets = %v", targets)
	}

	var sources []string
	if code := do(t, http.MethodGet, ts.URL+"/rules/chart/sources", nil, &sources); code != http.StatusOK {
		t.Fatalf("sources status %d", code)
	}
	if !slices.Contains(sources, "data-source") || slices.Contains(sources, "hypothesis") {
		t.Errorf("chart sources = %v", sources)
	}

	var body errorBody
	if code := do(t, http.MethodGet, ts.URL+"/rules/widget/targets", nil, &body); code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", code)
	}
}

func TestGetProject(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"
	createNode(t, base, "metric", "Revenue")

	var view struct {
		ProjectID     string       `json:"project_id"`
		Nodes         []graph.Node `json:"nodes"`
		Direction     string       `json:"direction"`
		AutoLayout    bool         `json:"auto_layout"`
		LayoutPending bool         `json:"layout_pending"`
	}
	if code := do(t, http.MethodGet, base, nil, &view); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if view.ProjectID != "growth" || len(view.Nodes) != 1 {
		t.Errorf("project view = %+v", view)
	}
	if view.Direction != "TB" || view.AutoLayout || view.LayoutPending {
		t.Errorf("layout fields = %q auto=%v pending=%v", view.Direction, view.AutoLayout, view.LayoutPending)
	}
}

func TestConnectEndpoint(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"

	a := createNode(t, base, "metric", "A")
	b := createNode(t, base, "metric", "B")
	c := createNode(t, base, "chart", "C")

	tests := []struct {
		name     string
		src, tgt string
		status   int
		category graph.EdgeCategory
		code     errors.Code
	}{
		{"relationship", a.ID, b.ID, http.StatusCreated, graph.CategoryRelationship, ""},
		{"data-flow", b.ID, c.ID, http.StatusCreated, graph.CategoryDataFlow, ""},
		{"rejected", c.ID, a.ID, http.StatusUnprocessableEntity, "", errors.ErrCodeRuleViolation},
		{"missing node", a.ID, "ghost", http.StatusNotFound, "", errors.ErrCodeNotFound},
		{"empty", "", a.ID, http.StatusBadRequest, "", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			code := do(t, http.MethodPost, base+"/edges", connectRequest{SourceID: tt.src, TargetID: tt.tgt}, &raw)
			if code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", code, tt.status, raw)
			}
			if tt.category != "" {
				var e graph.Edge
				_ = json.Unmarshal(raw, &e)
				if e.Category != tt.category {
					t.Errorf("category = %s, want %s", e.Category, tt.category)
				}
				return
			}
			var body errorBody
			_ = json.Unmarshal(raw, &body)
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
			if strings.HasPrefix(body.Error.Message, string(tt.code)) {
				t.Errorf("message %q repeats the code", body.Error.Message)
			}
		})
	}
}

func TestNodeLifecycle(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"
	n := createNode(t, base, "metric", "Revenue")

	var updated graph.Node
	owner := "ana"
	if code := do(t, http.MethodPatch, base+"/nodes/"+n.ID, updateNodeRequest{Owner: &owner, Tags: []string{"kpi"}}, &updated); code != http.StatusOK {
		t.Fatalf("patch status %d", code)
	}
	if updated.Owner != "ana" || !updated.HasTag("kpi") || updated.Title != "Revenue" {
		t.Errorf("updated = %+v", updated)
	}

	if code := do(t, http.MethodPut, base+"/nodes/"+n.ID+"/position", graph.Position{X: 12, Y: 34}, nil); code != http.StatusNoContent {
		t.Fatalf("move status %d", code)
	}

	var list []graph.Node
	do(t, http.MethodGet, base+"/nodes?tag=kpi", nil, &list)
	if len(list) != 1 || list[0].Position != (graph.Position{X: 12, Y: 34}) {
		t.Errorf("filtered list = %+v", list)
	}
	do(t, http.MethodGet, base+"/nodes?type=chart", nil, &list)
	if len(list) != 0 {
		t.Errorf("chart filter returned %d nodes", len(list))
	}
	if code := do(t, http.MethodGet, base+"/nodes?type=widget", nil, nil); code != http.StatusBadRequest {
		t.Errorf("unknown type filter status %d", code)
	}

	if code := do(t, http.MethodDelete, base+"/nodes/"+n.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("delete status %d", code)
	}
	if code := do(t, http.MethodGet, base+"/nodes/"+n.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("get after delete status %d", code)
	}
}

func TestCreateNodeValidation(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"

	if code := do(t, http.MethodPost, base+"/nodes", map[string]any{"type": "widget", "title": "x"}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown type status %d", code)
	}
	if code := do(t, http.MethodPost, base+"/nodes", map[string]any{"type": "metric", "colour": "red"}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown field status %d", code)
	}
	createNode(t, base, "metric", "A")
	if code := do(t, http.MethodPost, base+"/nodes", map[string]any{"id": "dup", "type": "metric"}, nil); code != http.StatusCreated {
		t.Fatalf("first dup status %d", code)
	}
	if code := do(t, http.MethodPost, base+"/nodes", map[string]any{"id": "dup", "type": "metric"}, nil); code != http.StatusConflict {
		t.Errorf("duplicate ID status %d", code)
	}
	if code := do(t, http.MethodGet, ts.URL+"/projects/..%2Fetc/nodes", nil, nil); code == http.StatusOK {
		t.Error("path traversal project accepted")
	}

	tests := []struct {
		name    string
		path    string
		body    map[string]any
		message string
	}{
		{"missing type", "/nodes", map[string]any{"title": "x"}, "type is required"},
		{"empty tag", "/nodes", map[string]any{"type": "metric", "tags": []string{"kpi", ""}}, "tags[1] is required"},
		{"long tag", "/nodes", map[string]any{"type": "metric", "tags": []string{strings.Repeat("t", 65)}}, "tags[0] must be at most 64 characters"},
		{"missing target", "/edges", map[string]any{"source_id": "a"}, "target_id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			if code := do(t, http.MethodPost, base+tt.path, tt.body, &body); code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
			if body.Error.Code != errors.ErrCodeInvalidInput || !strings.Contains(body.Error.Message, tt.message) {
				t.Errorf("error = %+v, want message containing %q", body.Error, tt.message)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	if code := do(t, http.MethodGet, newTestServer(t).URL+"/metrics", nil, nil); code != http.StatusNotFound {
		t.Errorf("metrics without option = %d, want 404", code)
	}

	ts := newTestServer(t, WithMetrics(observability.NewMetrics("mg")))
	do(t, http.MethodGet, ts.URL+"/health", nil, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `mg_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("metrics missing health request:\n%s", data)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, WithCORS("https://canvas.example.com"))

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/rules", nil)
	req.Header.Set("Origin", "https://canvas.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://canvas.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/rules", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestBulkEndpoints(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"
	a := createNode(t, base, "metric", "A")
	b := createNode(t, base, "metric", "B")

	if code := do(t, http.MethodPut, base+"/selection", selectionBody{IDs: []string{a.ID, b.ID}}, nil); code != http.StatusOK {
		t.Fatalf("select status %d", code)
	}

	var res bulk.Result
	do(t, http.MethodPost, base+"/bulk/add-tags", map[string]any{"tags": []string{"x"}}, &res)
	if !res.Success || res.Processed != 2 {
		t.Errorf("add-tags = %+v", res)
	}

	do(t, http.MethodPost, base+"/bulk/duplicate", map[string]any{"ids": []string{a.ID}}, &res)
	if !res.Success || len(res.UpdatedIDs) != 1 {
		t.Errorf("duplicate = %+v", res)
	}

	do(t, http.MethodPost, base+"/bulk/delete", map[string]any{"ids": []string{b.ID, "ghost"}}, &res)
	if res.Success || res.Processed != 1 || len(res.Errors) != 1 {
		t.Errorf("delete = %+v", res)
	}

	var last bulk.Result
	if code := do(t, http.MethodGet, base+"/bulk/last", nil, &last); code != http.StatusOK || last.Op != bulk.OpDelete {
		t.Errorf("last = %d %+v", code, last)
	}
	do(t, http.MethodDelete, base+"/bulk/last", nil, nil)
	if code := do(t, http.MethodGet, base+"/bulk/last", nil, nil); code != http.StatusNoContent {
		t.Errorf("last after clear status %d", code)
	}

	var sel selectionBody
	do(t, http.MethodGet, base+"/selection", nil, &sel)
	if len(sel.IDs) != 0 {
		t.Errorf("selection after delete = %v", sel.IDs)
	}
}

func TestBulkExport(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"
	a := createNode(t, base, "metric", "A")

	body, _ := json.Marshal(map[string]any{"ids": []string{a.ID}})
	resp, err := http.Post(base+"/bulk/export?format=csv", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "growth-export-") {
		t.Errorf("disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if !strings.HasPrefix(string(data), "id,title,") {
		t.Errorf("csv = %q", data)
	}

	if code := do(t, http.MethodPost, base+"/bulk/export?format=xml", nil, nil); code != http.StatusBadRequest {
		t.Errorf("xml export status %d", code)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/projects/growth"
	a := createNode(t, base, "metric", "A")
	b := createNode(t, base, "metric", "B")
	do(t, http.MethodPost, base+"/edges", connectRequest{SourceID: a.ID, TargetID: b.ID}, nil)

	var res session.LayoutResult
	if code := do(t, http.MethodPost, base+"/layout", nil, &res); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if res.Moved != 2 || len(res.Issues) != 0 {
		t.Errorf("layout = %+v", res)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeProjectNotFound, http.StatusNotFound},
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeDuplicateID, http.StatusConflict},
		{errors.ErrCodeRuleViolation, http.StatusUnprocessableEntity},
		{errors.ErrCodeCycleViolation, http.StatusUnprocessableEntity},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
