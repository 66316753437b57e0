package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/metrics"
	"github.com/bobmcallan/generic-mcp/internal/spec"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

// echoIDHandler returns the last path segment so each caller can check it got its own response.
func echoIDHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id, "key": r.Header.Get("X-Api-Key")})
}

func TestInvoke_StressConcurrentCalls(t *testing.T) {
	api := &fakeAPI{handler: echoIDHandler}
	srv := httptest.NewServer(api)
	defer srv.Close()

	data, err := os.ReadFile(filepath.Join("testdata", "items.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := spec.Parse(data, "", srv.URL)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	catalog, err := tools.Build("items", doc, tools.Policy{IncludeAll: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	m := metrics.NewCollector("dispatch_stress")
	d := New(catalog, Options{Headers: map[string]string{"X-Api-Key": "shared"}}, common.NewSilentLogger(), m)

	const callers = 50
	var wg sync.WaitGroup
	var mismatches, failures int64

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("item-%d", i)
			res, err := d.Invoke(context.Background(), "get_item", map[string]any{"id": id})
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			body, ok := res.JSON.(map[string]any)
			if !ok || body["id"] != id || body["key"] != "shared" {
				atomic.AddInt64(&mismatches, 1)
			}
		}(i)
	}
	wg.Wait()

	if failures != 0 {
		t.Errorf("expected every call to succeed, %d failed", failures)
	}
	if mismatches != 0 {
		t.Errorf("expected each caller to receive its own response, %d mismatched", mismatches)
	}
	if n := api.calls.Load(); n != callers {
		t.Errorf("expected %d requests, got %d", callers, n)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := fmt.Sprintf(`dispatch_stress_tool_invocations_total{outcome="ok",source="items",tool="get_item"} %d`, callers)
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected metrics to contain %s", want)
	}
}

func TestInvoke_StressMixedOutcomes(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/report" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		echoIDHandler(w, r)
	}}
	d, _ := newTestDispatcher(t, api, Options{})

	const rounds = 20
	var wg sync.WaitGroup
	var ok, remote, invalid, unexpected int64

	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			if _, err := d.Invoke(context.Background(), "get_item", map[string]any{"id": fmt.Sprint(i)}); err != nil {
				atomic.AddInt64(&unexpected, 1)
				return
			}
			atomic.AddInt64(&ok, 1)
		}(i)
		go func() {
			defer wg.Done()
			_, err := d.Invoke(context.Background(), "get_report", nil)
			if errors.Is(err, ErrRemote) {
				atomic.AddInt64(&remote, 1)
				return
			}
			atomic.AddInt64(&unexpected, 1)
		}()
		go func() {
			defer wg.Done()
			_, err := d.Invoke(context.Background(), "list_items", map[string]any{"limit": "many"})
			if errors.Is(err, ErrInvalidArguments) {
				atomic.AddInt64(&invalid, 1)
				return
			}
			atomic.AddInt64(&unexpected, 1)
		}()
	}
	wg.Wait()

	if ok != rounds || remote != rounds || invalid != rounds || unexpected != 0 {
		t.Errorf("expected %d of each outcome, got ok=%d remote=%d invalid=%d unexpected=%d", rounds, ok, remote, invalid, unexpected)
	}
	// Invalid arguments never reach the API.
	if n := api.calls.Load(); n != 2*rounds {
		t.Errorf("expected %d requests, got %d", 2*rounds, n)
	}
}
