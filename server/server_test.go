package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/symbolic"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s := New(opts...)
	return s, s.Router()
}

func post(t *testing.T, h http.Handler, body string) (int, ToolResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tool", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func call(t *testing.T, h http.Handler, tool string, params interface{}) ToolResponse {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(ToolRequest{Tool: tool, Params: raw})
	require.NoError(t, err)
	code, resp := post(t, h, string(body))
	require.Equal(t, http.StatusOK, code)
	return resp
}

func create(t *testing.T, h http.Handler, metric string) string {
	t.Helper()
	resp := call(t, h, "create_manifold", map[string]interface{}{"metric": metric})
	require.Empty(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "result %T", resp.Result)
	id, _ := result["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func assertExpr(t *testing.T, resp ToolResponse, want string) {
	t.Helper()
	require.Empty(t, resp.Error)
	got, err := symbolic.Parse(resp.String)
	require.NoError(t, err, resp.String)
	assert.True(t, symbolic.Equivalent(got, symbolic.MustParse(want)), "got %s, want %s", resp.String, want)
}

func TestHealthAndSchema(t *testing.T) {
	_, h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["manifolds"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var spec struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	var names []string
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "create_manifold")
	assert.Contains(t, names, "geodesic")
	assert.Len(t, names, 11)
}

func TestBadRequests(t *testing.T) {
	_, h := newTestServer(t)
	for name, body := range map[string]string{
		"malformed":     `{"tool":`,
		"unknown field": `{"tool":"list","extra":1}`,
		"trailing data": `{"tool":"list"} {"tool":"list"}`,
	} {
		t.Run(name, func(t *testing.T) {
			code, resp := post(t, h, body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestToolErrors(t *testing.T) {
	_, h := newTestServer(t)

	resp := call(t, h, "no_such_tool", map[string]string{})
	assert.Contains(t, resp.Error, "unknown tool")

	resp = call(t, h, "list", map[string]string{"id": "missing"})
	assert.Contains(t, resp.Error, "unknown manifold id")

	resp = call(t, h, "list", map[string]string{})
	assert.Contains(t, resp.Error, "invalid params")

	resp = call(t, h, "create_manifold", map[string]string{})
	assert.Contains(t, resp.Error, "invalid params")

	resp = call(t, h, "create_manifold", map[string]string{"metric": "qqq"})
	assert.NotEmpty(t, resp.Error)

	resp = call(t, h, "scalar", map[string]string{"id": "x", "scalar": "weyl"})
	assert.Contains(t, resp.Error, "invalid params")
}

func TestSearch(t *testing.T) {
	_, h := newTestServer(t)
	resp := call(t, h, "search", map[string]interface{}{
		"terms":   []string{"minkowski"},
		"filters": map[string]bool{"flat": true},
	})
	require.Empty(t, resp.Error)
	hits, ok := resp.Result.([]interface{})
	require.True(t, ok)
	assert.Len(t, hits, 3)
	for _, hit := range hits {
		assert.Contains(t, hit.(map[string]interface{})["name"], "Minkowski")
	}
}

func TestManifoldSession(t *testing.T) {
	_, h := newTestServer(t)
	id := create(t, h, "spherical Minkowski metric")

	resp := call(t, h, "define", map[string]string{"id": id, "tensor": "Ricci tensor"})
	require.Empty(t, resp.Error)
	statuses, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, statuses, 3)

	resp = call(t, h, "define", map[string]string{"id": id, "tensor": "riemann"})
	require.Empty(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"riemann": "duplicate"}, resp.Result)

	resp = call(t, h, "list", map[string]string{"id": id})
	require.Empty(t, resp.Error)
	assert.ElementsMatch(t, []interface{}{"connection coefficients", "riemann", "ricci"}, resp.Result)

	assertExpr(t, call(t, h, "component", map[string]interface{}{
		"id": id, "tensor": "connection", "variance": "mixed", "indices": []int{1, 2, 2},
	}), "-r")
	assertExpr(t, call(t, h, "component", map[string]interface{}{
		"id": id, "tensor": "connection coefficients", "variance": "mixed", "indices": []int{2, 1, 2},
	}), "1/r")

	resp = call(t, h, "component", map[string]interface{}{
		"id": id, "tensor": "ricci", "variance": "co", "indices": []int{0, 4},
	})
	assert.NotEmpty(t, resp.Error)

	resp = call(t, h, "component", map[string]interface{}{
		"id": id, "tensor": "ricci", "variance": "sideways", "indices": []int{0, 0},
	})
	assert.NotEmpty(t, resp.Error)

	resp = call(t, h, "report", map[string]string{"id": id, "tensor": "ricci", "variance": "co"})
	require.Empty(t, resp.Error)
	assert.Empty(t, resp.Result)

	resp = call(t, h, "report", map[string]string{"id": id, "tensor": "connection", "variance": "mixed"})
	require.Empty(t, resp.Error)
	rows, ok := resp.Result.([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, rows)

	assertExpr(t, call(t, h, "scalar", map[string]string{"id": id, "scalar": "ricci"}), "0")
	assertExpr(t, call(t, h, "scalar", map[string]string{"id": id, "scalar": "kretschmann"}), "0")

	resp = call(t, h, "delete_manifold", map[string]string{"id": id})
	require.Empty(t, resp.Error)
	resp = call(t, h, "list", map[string]string{"id": id})
	assert.Contains(t, resp.Error, "unknown manifold id")
	resp = call(t, h, "delete_manifold", map[string]string{"id": id})
	assert.Contains(t, resp.Error, "unknown manifold id")
}

func TestCreateFromComponents(t *testing.T) {
	_, h := newTestServer(t)
	resp := call(t, h, "create_manifold", map[string]interface{}{
		"coordinates": []string{"theta", "phi"},
		"components":  [][]string{{"a^2", "0"}, {"0", "a^2*sin(theta)^2"}},
	})
	require.Empty(t, resp.Error)
	id := resp.Result.(map[string]interface{})["id"].(string)

	resp = call(t, h, "define", map[string]string{"id": id, "tensor": "Ricci tensor"})
	require.Empty(t, resp.Error)
	assertExpr(t, call(t, h, "scalar", map[string]string{"id": id, "scalar": "ricci"}), "2/a^2")

	resp = call(t, h, "create_manifold", map[string]interface{}{
		"coordinates": []string{"x"},
		"components":  [][]string{{"1", "0"}, {"0", "1"}},
	})
	assert.NotEmpty(t, resp.Error)
}

func TestUndefinedDependency(t *testing.T) {
	_, h := newTestServer(t)
	id := create(t, h, "rectangular Minkowski metric")
	resp := call(t, h, "define", map[string]string{"id": id, "tensor": "riemann"})
	assert.Contains(t, resp.Error, "undefined")
	resp = call(t, h, "list", map[string]string{"id": id})
	require.Empty(t, resp.Error)
	assert.Empty(t, resp.Result)
}

func TestSessionLimit(t *testing.T) {
	s, h := newTestServer(t, WithMaxManifolds(1))
	id := create(t, h, "rectangular Minkowski metric")

	resp := call(t, h, "create_manifold", map[string]string{"metric": "rectangular Minkowski metric"})
	assert.Contains(t, resp.Error, "too many manifolds")

	require.NoError(t, s.drop(id))
	create(t, h, "rectangular Minkowski metric")
}

func TestGeodesic(t *testing.T) {
	_, h := newTestServer(t)
	id := create(t, h, "rectangular Minkowski metric")

	params := map[string]interface{}{
		"id": id, "position": []float64{0, 0, 0, 0}, "velocity": []float64{1, 0.6, 0, 0},
		"steps": 4, "dtau": 0.5,
	}
	resp := call(t, h, "geodesic", params)
	assert.Contains(t, resp.Error, "undefined")

	require.Empty(t, call(t, h, "define", map[string]string{"id": id, "tensor": "connection"}).Error)
	resp = call(t, h, "geodesic", params)
	require.Empty(t, resp.Error)
	states, ok := resp.Result.([]interface{})
	require.True(t, ok)
	require.Len(t, states, 5)
	last := states[4].(map[string]interface{})
	assert.InDelta(t, 2.0, last["tau"], 1e-9)
	pos := last["position"].([]interface{})
	assert.InDelta(t, 2.5, pos[0], 1e-9)
	assert.InDelta(t, 1.5, pos[1], 1e-9)

	params["steps"] = 0
	resp = call(t, h, "geodesic", params)
	assert.Contains(t, resp.Error, "invalid params")
}

func TestNormalize(t *testing.T) {
	_, h := newTestServer(t)
	assertExpr(t, call(t, h, "normalize", map[string]string{"expr": "(x^2 - 1)/(x - 1)"}), "x + 1")
	assertExpr(t, call(t, h, "normalize", map[string]string{"expr": "c^2*G*M"}), "M")

	resp := call(t, h, "normalize", map[string]string{"expr": "(x +"})
	assert.NotEmpty(t, resp.Error)
}

func TestMetricsHandler(t *testing.T) {
	_, h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, h = newTestServer(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("sxl_tool_calls_total 1\n"))
	})))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sxl_tool_calls_total")
}

func TestHandleDirect(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	resp := s.Handle(context.Background(), ToolRequest{Tool: "schema"})
	require.Empty(t, resp.Error)
	assert.NotNil(t, resp.Result)

	resp = s.Handle(context.Background(), ToolRequest{Tool: "bogus"})
	assert.NotEmpty(t, resp.Error)
	assert.Contains(t, buf.String(), "tool call failed")
}

func TestListenAndServeShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}

func TestListenAndServeShutdownWaitsForSession(t *testing.T) {
	s, h := newTestServer(t)
	id := create(t, h, "spherical Minkowski metric")
	resp := call(t, h, "define", map[string]string{"id": id, "tensor": "riemann"})
	require.Empty(t, resp.Error)

	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	require.NotNil(t, sess)

	// An in-flight tool call holds the session lock.
	sess.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		t.Fatalf("shutdown returned while a session was in use: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	assert.NotEmpty(t, sess.m.Tensors())
	sess.mu.Unlock()

	require.NoError(t, <-done)
	assert.Empty(t, sess.m.Tensors())
	s.mu.RLock()
	assert.Empty(t, s.sessions)
	s.mu.RUnlock()
}
