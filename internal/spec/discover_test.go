package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
)

const discoverSpec = `{"openapi":"3.0.0","info":{"title":"Discovered","version":"1"},"servers":[{"url":"/"}],"paths":{"/ping":{"get":{"responses":{"200":{"description":"ok"}}}}}}`

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" href="/static/swagger-ui.css">
  <link rel="icon" href="/static/favicon.png">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
const ui = SwaggerUIBundle({
    url: '/api/openapi.json',
    dom_id: '#swagger-ui',
})
</script>
</body>
</html>`

const redocPage = `<!DOCTYPE html>
<html>
<body>
<redoc spec-url="specs/api.yaml"></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`

const scriptIndirectionPage = `<!DOCTYPE html>
<html>
<body>
<div id="swagger-ui"></div>
<script src="/static/swagger-ui-bundle.js"></script>
<script src="/static/init.js"></script>
</body>
</html>`

const barePage = `<!DOCTYPE html><html><body><h1>Docs</h1></body></html>`

func docsServer(t *testing.T, routes map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case len(body) > 0 && body[0] == '<':
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case len(body) > 0 && body[0] == '{':
			w.Header().Set("Content-Type", "application/json")
		default:
			w.Header().Set("Content-Type", "application/javascript")
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDiscover_SwaggerUIInlineURL(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{
		"/docs":             swaggerUIPage,
		"/api/openapi.json": discoverSpec,
	})

	doc, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Title != "Discovered" {
		t.Errorf("expected discovered title, got %q", doc.Title)
	}
	if doc.SourceURL != srv.URL+"/api/openapi.json" {
		t.Errorf("expected source URL to be the discovered description, got %s", doc.SourceURL)
	}
	if doc.BaseURL != srv.URL {
		t.Errorf("expected base URL %s, got %s", srv.URL, doc.BaseURL)
	}
}

func TestDiscover_RedocRelativeSpecURL(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{
		"/reference/":               redocPage,
		"/reference/specs/api.yaml": "openapi: 3.0.0\ninfo:\n  title: Redoc\n  version: '1'\nservers:\n  - url: /\npaths: {}\n",
	})

	doc, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/reference/"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Title != "Redoc" {
		t.Errorf("expected Redoc, got %q", doc.Title)
	}
}

func TestDiscover_ScriptIndirection(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{
		"/docs":           scriptIndirectionPage,
		"/static/init.js": `window.onload = function() { SwaggerUIBundle({ url: "/v2/spec.json" }) }`,
		"/v2/spec.json":   discoverSpec,
	})

	doc, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.SourceURL != srv.URL+"/v2/spec.json" {
		t.Errorf("unexpected source URL %s", doc.SourceURL)
	}
}

func TestDiscover_WellKnownFallback(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{
		"/docs":         barePage,
		"/swagger.json": `{"swagger":"2.0","info":{"title":"Fallback","version":"1"},"basePath":"/","paths":{}}`,
	})

	doc, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Title != "Fallback" || !doc.IsSwagger() {
		t.Errorf("expected swagger fallback document, got %q (%s)", doc.Title, doc.SpecVersion)
	}
}

func TestDiscover_URLReturningHTML(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{
		"/openapi":          swaggerUIPage,
		"/api/openapi.json": discoverSpec,
	})

	doc, err := testLoader().Load(context.Background(), Source{URL: srv.URL + "/openapi"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Title != "Discovered" {
		t.Errorf("expected discovery from HTML response, got %q", doc.Title)
	}
}

func TestDiscover_NothingFound(t *testing.T) {
	srv, _ := docsServer(t, map[string]string{"/docs": barePage})

	_, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if !errors.Is(err, ErrSpecInvalid) {
		t.Fatalf("expected ErrSpecInvalid, got %v", err)
	}
}

func TestDiscover_ReferencedDescriptionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/docs" {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><redoc spec-url="/openapi.json"></redoc></body></html>`))
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if !errors.Is(err, ErrSpecUnavailable) {
		t.Fatalf("expected ErrSpecUnavailable, got %v", err)
	}
	if errors.Is(err, ErrSpecInvalid) {
		t.Errorf("expected an unreachable description not to be reported as invalid, got %v", err)
	}
}

func TestDiscover_WithoutServersNeedsBaseURL(t *testing.T) {
	noServers := `{"openapi":"3.0.0","info":{"title":"Bare","version":"1"},"paths":{}}`
	srv, _ := docsServer(t, map[string]string{
		"/docs":             swaggerUIPage,
		"/api/openapi.json": noServers,
	})

	_, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs"})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	doc, err := testLoader().Load(context.Background(), Source{DocsURL: srv.URL + "/docs", BaseURL: "https://api.example.com/v1"})
	if err != nil {
		t.Fatalf("Load with base URL failed: %v", err)
	}
	if doc.BaseURL != "https://api.example.com/v1" {
		t.Errorf("expected configured base URL, got %s", doc.BaseURL)
	}
}

func TestScanPage(t *testing.T) {
	refs, scripts := scanPage([]byte(swaggerUIPage))

	if !reflect.DeepEqual(refs, []string{"/api/openapi.json"}) {
		t.Errorf("unexpected refs %v", refs)
	}
	if len(scripts) != 1 || !isLibraryScript(scripts[0]) {
		t.Errorf("expected one library script, got %v", scripts)
	}
}

func TestLikelySpecURL(t *testing.T) {
	tests := map[string]bool{
		"/api/openapi.json":                            true,
		"https://petstore.example.com/v2/swagger.json": true,
		"/v3/api-docs":                                 true,
		"specs/api.yaml":                               true,
		"/custom-endpoint":                             true,
		"/static/swagger-ui.css":                       false,
		"/static/app.js":                               false,
		"https://fonts.googleapis.com/css":             false,
		"/favicon.ico":                                 false,
		"#section":                                     false,
		"data:application/json;base64,e30=":            false,
		"relative-page":                                false,
	}
	for ref, want := range tests {
		if got := likelySpecURL(ref); got != want {
			t.Errorf("likelySpecURL(%q) = %v, want %v", ref, got, want)
		}
	}
}
