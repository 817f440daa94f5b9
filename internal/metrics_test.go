package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, router http.Handler) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /metrics, got %d", w.Code)
	}
	return w.Body.String()
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	testW := httptest.NewRecorder()
	router.ServeHTTP(testW, httptest.NewRequest("GET", "/ping", nil))
	if testW.Body.String() != "pong" {
		t.Errorf("Expected body 'pong', got '%s'", testW.Body.String())
	}

	body := scrape(t, router)
	for _, metric := range []string{"http_requests_total", "http_request_duration_seconds"} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric '%s' not found in response", metric)
		}
	}
	if !strings.Contains(body, `path="/ping"`) {
		t.Error("Expected metrics to contain path label for /ping endpoint")
	}
}

func TestMetricsWithChiRoutePatterns(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/vendors/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/vendors/V123", nil))

	body := scrape(t, router)
	if !strings.Contains(body, `path="/vendors/{id}"`) {
		t.Error("Expected metrics to contain Chi route pattern, not actual path")
	}
	if !strings.Contains(body, `status="Not Found"`) {
		t.Error("Expected the recorded status to be Not Found")
	}
}

func TestRecordMutation(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	metrics.RecordMutation("delete", 3)
	metrics.RecordMutation("delete", 0)
	metrics.RecordMutation("import", 2)

	body := scrape(t, router)
	if !strings.Contains(body, `vendor_mutations_total{op="delete"} 3`) {
		t.Errorf("Expected 3 deletes, got:\n%s", body)
	}
	if !strings.Contains(body, `vendor_mutations_total{op="import"} 2`) {
		t.Errorf("Expected 2 imports, got:\n%s", body)
	}

	var disabled *Metrics
	disabled.RecordMutation("create", 1)
}

func TestMetricsDisabledRoute(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = false
	e := newTestEnv(t)
	s, err := NewServer(cfg, e.vendors, e.server.Users, nil)
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code == http.StatusOK {
		t.Errorf("Expected /metrics to be unavailable when metrics are disabled, got %d", w.Code)
	}
}
