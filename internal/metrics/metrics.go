package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	tunnelRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rocketman",
		Name:      "tunnel_running",
		Help:      "Whether a supervised tunnel process is alive (1=running, 0=stopped).",
	})

	tunnelStarts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rocketman",
		Name:      "tunnel_starts_total",
		Help:      "Total number of successful tunnel starts.",
	})

	tunnelStops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rocketman",
		Name:      "tunnel_stops_total",
		Help:      "Total number of tunnel stops by initiator.",
	}, []string{"initiator"})

	probeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rocketman",
		Name:      "probe_failures_total",
		Help:      "Total number of failed companion liveness probes.",
	})

	consecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rocketman",
		Name:      "probe_consecutive_failures",
		Help:      "Current run of consecutive failed companion probes.",
	})

	probeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rocketman",
		Name:      "probe_latency_seconds",
		Help:      "Latency of companion liveness probes in seconds.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rocketman",
		Name:      "build_info",
		Help:      "Build metadata for the running rocketman-service binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(tunnelRunning, tunnelStarts, tunnelStops, probeFailures, consecutiveFailures, probeLatency, buildInfo)
}

// Registry returns the Prometheus registry containing all service metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetTunnelRunning records whether a tunnel process is currently alive.
func SetTunnelRunning(running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	tunnelRunning.Set(value)
}

// IncrementTunnelStart counts a successful tunnel spawn.
func IncrementTunnelStart() {
	tunnelStarts.Inc()
}

// IncrementTunnelStop counts a completed stop attributed to its initiator
// (api, health or shutdown).
func IncrementTunnelStop(initiator string) {
	if initiator == "" {
		initiator = "unknown"
	}
	tunnelStops.WithLabelValues(initiator).Inc()
}

// IncrementProbeFailure counts one failed companion probe.
func IncrementProbeFailure() {
	probeFailures.Inc()
}

// SetConsecutiveFailures records the monitor's current failure run.
func SetConsecutiveFailures(n int) {
	consecutiveFailures.Set(float64(n))
}

// ObserveProbeLatency records the latency of a companion probe.
func ObserveProbeLatency(d time.Duration) {
	probeLatency.Observe(d.Seconds())
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
