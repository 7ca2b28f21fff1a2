package exporters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smazurov/mxcamera/internal/metrics"
)

func scrape(t *testing.T, h http.Handler, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	return w
}

func TestHTTPHandlerServesPipelineMetrics(t *testing.T) {
	metrics.SetCaptureFPS(25.0)

	w := scrape(t, HTTPHandler(), "")
	body := w.Body.String()
	if !strings.Contains(body, "mxcamera_capture_fps 25") {
		t.Errorf("capture fps missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, "promhttp_metric_handler_requests_total") {
		t.Error("handler instrumentation missing")
	}
}

func TestHTTPHandlerOpenMetrics(t *testing.T) {
	// A second handler reuses the instrumentation counters.
	w := scrape(t, HTTPHandler(), "application/openmetrics-text; version=1.0.0")
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/openmetrics-text") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasSuffix(strings.TrimSpace(w.Body.String()), "# EOF") {
		t.Error("OpenMetrics body not terminated")
	}
}
