package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/app"
	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/config"
)

type stubUploader struct {
	calls int
}

func (s *stubUploader) Upload(ctx context.Context, projectID, accessToken, document string) (json.RawMessage, error) {
	s.calls++
	return json.RawMessage(`{"imported":true}`), nil
}

func newTestApp(t *testing.T, up *stubUploader) *app.App {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.SSE.HeartbeatInterval = "20ms"

	application, err := app.New(cfg, common.NewSilentLogger(), app.WithUploader(up))
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}

	return application
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRoutes_HealthEndpoint(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["status"] != "UP" {
		t.Errorf("expected status UP, got %v", body["status"])
	}
	if body["service"] != "doc-mcp-server" {
		t.Errorf("expected service doc-mcp-server, got %v", body["service"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Errorf("timestamp not RFC3339: %v", err)
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}

func TestRoutes_VersionEndpoint(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	req := httptest.NewRequest("GET", "/version", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if _, ok := decodeBody(t, w)["version"]; !ok {
		t.Error("expected version field in response")
	}
}

func TestRoutes_Index(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	tools, _ := decodeBody(t, w)["tools"].([]interface{})
	if len(tools) != 2 {
		t.Errorf("expected 2 tools in index, got %v", tools)
	}
}

func TestRoutes_NotFound(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	for _, path := range []string{"/nope", "/api/anything", "/tools"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
			continue
		}
		body := decodeBody(t, w)
		if body["success"] != false || body["error"] != "not found" {
			t.Errorf("%s: unexpected body %v", path, body)
		}
	}
}

func TestRoutes_Preflight(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	req := httptest.NewRequest("OPTIONS", "/tools/uploadSwaggerToApiFox", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestRoutes_ToolEndpoints(t *testing.T) {
	up := &stubUploader{}
	srv := New(newTestApp(t, up))

	req := httptest.NewRequest("POST", "/tools/getSwaggerSpecification", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if data, _ := decodeBody(t, w)["data"].(string); !strings.Contains(data, "Swagger") {
		t.Error("expected Swagger text in data")
	}

	req = httptest.NewRequest("POST", "/tools/uploadSwaggerToApiFox",
		strings.NewReader(`{"projectId":"555","accessToken":"t","swaggerJson":"{\"swagger\":\"2.0\"}"}`))
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if data, _ := decodeBody(t, w)["data"].(string); !strings.Contains(data, "555") {
		t.Errorf("expected projectId in payload, got %q", data)
	}

	req = httptest.NewRequest("POST", "/tools/uploadSwaggerToApiFox",
		strings.NewReader(`{"projectId":"555","accessToken":"","swaggerJson":"{}"}`))
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if decodeBody(t, w)["error"] != "accessToken must not be empty" {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
	if up.calls != 1 {
		t.Errorf("expected exactly 1 upload, got %d", up.calls)
	}
}

func TestRoutes_SSEThroughMiddleware(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	var types []string
	for len(types) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended early: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &evt); err != nil {
			t.Fatalf("bad event: %v", err)
		}
		types = append(types, evt.Type)
	}
	if types[0] != "connection" || types[1] != "heartbeat" {
		t.Errorf("unexpected event order: %v", types)
	}
}

func TestRoutes_MCPEndpoint(t *testing.T) {
	srv := New(newTestApp(t, &stubUploader{}))

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "uploadSwaggerToApiFox") {
		t.Errorf("expected upload tool in tools/list, got %s", w.Body.String())
	}
}
