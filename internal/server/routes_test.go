package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/generic-mcp/internal/app"
	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/config"
)

const notesSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Notes", "version": "1.0"},
  "paths": {
    "/notes": {"get": {"operationId": "listNotes", "tags": ["notes"], "responses": {"200": {"description": "ok"}}}},
    "/health": {"get": {"operationId": "health", "responses": {"200": {"description": "ok"}}}}
  }
}`

func newTestApp(t *testing.T, metricsEnabled bool) *app.App {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/openapi.json" {
			w.Write([]byte(notesSpec))
			return
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(api.Close)

	cfg := config.NewDefaultConfig()
	cfg.Metrics.Enabled = metricsEnabled
	cfg.Sources = []config.SourceConfig{{
		Name:       "notes",
		OpenAPIURL: api.URL + "/openapi.json",
		Tools:      config.ToolsConfig{Case: "snake"},
	}}

	application, err := app.New(context.Background(), cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}

	t.Cleanup(func() {
		application.Close()
	})

	return application
}

func serve(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRoutes_HealthEndpoint(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/api/health")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["tools"] != 2.0 {
		t.Errorf("expected 2 tools, got %v", body["tools"])
	}
}

func TestRoutes_VersionEndpoint(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/api/version")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"version"`) {
		t.Errorf("expected version field, got %s", w.Body.String())
	}
}

func TestRoutes_ToolsEndpoint(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/api/tools?tag=notes")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body struct {
		Count   int `json:"count"`
		Sources []struct {
			Name  string `json:"name"`
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body.Count != 1 || body.Sources[0].Tools[0].Name != "list_notes" {
		t.Errorf("expected only list_notes, got %s", w.Body.String())
	}
}

func TestRoutes_MetricsEndpoint(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "generic_mcp_catalog_tools") {
		t.Errorf("expected catalog gauge in metrics output")
	}
}

func TestRoutes_MetricsDisabled(t *testing.T) {
	srv := New(newTestApp(t, false))

	if w := serve(t, srv, "GET", "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestRoutes_NotFound(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/api/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON 404, got %s", w.Header().Get("Content-Type"))
	}
}

func TestRoutes_MCPToolsList(t *testing.T) {
	srv := New(newTestApp(t, true))

	payload := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, name := range []string{"list_notes", "health", "get_version"} {
		if !strings.Contains(w.Body.String(), `"`+name+`"`) {
			t.Errorf("expected tool %s in tools/list response", name)
		}
	}
}

func TestRoutes_MiddlewareApplied(t *testing.T) {
	srv := New(newTestApp(t, true))

	w := serve(t, srv, "GET", "/api/health")
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header from middleware")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers from middleware")
	}
}
