package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RocketMan-System/rocketman-service/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.SetTunnelRunning(true)
	metrics.IncrementTunnelStart()
	metrics.IncrementTunnelStop("api")
	metrics.IncrementProbeFailure()
	metrics.SetConsecutiveFailures(2)
	metrics.ObserveProbeLatency(25 * time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, line := range []string{
		"rocketman_tunnel_running 1",
		`rocketman_tunnel_stops_total{initiator="api"} 1`,
		"rocketman_probe_consecutive_failures 2",
		"rocketman_build_info",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected metric line %q in body:\n%s", line, body)
		}
	}
}

func TestUnknownInitiatorIsLabeled(t *testing.T) {
	metrics.IncrementTunnelStop("")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `rocketman_tunnel_stops_total{initiator="unknown"} 1`) {
		t.Fatal("expected empty initiator to be recorded as unknown")
	}
}
