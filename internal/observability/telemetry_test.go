package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// HTTP Metrics Middleware Tests
// =============================================================================

// TestHTTPMetricsMiddleware_CountsRequests verifies served requests land
// in the request counter with method, path and status labels.
func TestHTTPMetricsMiddleware_CountsRequests(t *testing.T) {
	tel, err := New(Config{
		ServiceName:    "test",
		LogLevel:       "error",
		MetricsEnabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer tel.Shutdown()

	h := tel.HTTPMetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookup", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)

	counter := tel.Metrics().RequestsTotal.WithLabelValues("GET", "/api/v1/lookup", "404")
	if got := testutil.ToFloat64(counter); got != 2 {
		t.Errorf("requests counted = %v, want 2", got)
	}

	// Latency lands in the histogram under the same method and path.
	if n := testutil.CollectAndCount(tel.Metrics().RequestDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

// TestHTTPMetricsMiddleware_DisabledPassesThrough verifies the middleware
// is inert when metrics are off.
func TestHTTPMetricsMiddleware_DisabledPassesThrough(t *testing.T) {
	tel, err := New(Config{ServiceName: "test", LogLevel: "error"})
	if err != nil {
		t.Fatal(err)
	}
	defer tel.Shutdown()

	called := false
	h := tel.HTTPMetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if !called {
		t.Error("inner handler not reached")
	}
	if tel.Metrics() != nil {
		t.Error("metrics should be nil when disabled")
	}
}
