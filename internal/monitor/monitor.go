// Package monitor watches the companion application and tears the tunnel
// down when the companion stops responding, so a dead desktop app never
// leaves a tunnel running unattended.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/RocketMan-System/rocketman-service/internal/api"
	"github.com/RocketMan-System/rocketman-service/internal/metrics"
	"github.com/RocketMan-System/rocketman-service/internal/probe"
)

const (
	defaultInterval     = 2 * time.Second
	defaultProbeTimeout = 2 * time.Second
	defaultThreshold    = 3
	joinTimeout         = 5 * time.Second
)

// Tunnel is the slice of the supervisor the monitor needs.
type Tunnel interface {
	Status() api.Result
	Stop() api.Result
}

// Options configures a Monitor. Zero values select the contract defaults.
type Options struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	// Threshold is the number of consecutive failed probes that triggers
	// a tunnel stop.
	Threshold int
	Logger    *slog.Logger
}

// Monitor runs a single probe loop on a dedicated goroutine. It never
// holds any supervisor state of its own beyond the failure counter, and
// only calls into the supervisor for the duration of one status or stop
// call.
type Monitor struct {
	tunnel Tunnel
	prober probe.Prober

	interval     time.Duration
	probeTimeout time.Duration
	threshold    int
	logger       *slog.Logger

	// failures is only touched from the probe loop.
	failures int

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New constructs a Monitor probing the companion through prober.
func New(tunnel Tunnel, prober probe.Prober, opts Options) *Monitor {
	m := &Monitor{
		tunnel:       tunnel,
		prober:       prober,
		interval:     opts.Interval,
		probeTimeout: opts.ProbeTimeout,
		threshold:    opts.Threshold,
		logger:       opts.Logger,
		done:         make(chan struct{}),
	}
	if m.interval <= 0 {
		m.interval = defaultInterval
	}
	if m.probeTimeout <= 0 {
		m.probeTimeout = defaultProbeTimeout
	}
	if m.threshold <= 0 {
		m.threshold = defaultThreshold
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Start launches the probe loop. Subsequent calls are no-ops.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		loopCtx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		go m.run(loopCtx)
		m.logger.Info("app monitor started", "interval", m.interval, "threshold", m.threshold)
	})
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle performs one probe iteration. Cancellation is only observed
// between cycles; an in-flight probe or stop call always runs to
// completion (the probe itself is bounded by probeTimeout).
func (m *Monitor) cycle(ctx context.Context) {
	// An idle supervisor needs no monitoring.
	if m.tunnel.Status().Status != api.StatusRunning {
		return
	}

	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.probeTimeout)
	start := time.Now()
	err := m.prober.Probe(probeCtx)
	cancel()
	metrics.ObserveProbeLatency(time.Since(start))

	if err == nil {
		if m.failures > 0 {
			m.logger.Info("companion app reconnected")
		}
		m.failures = 0
		metrics.SetConsecutiveFailures(0)
		return
	}

	m.failures++
	metrics.IncrementProbeFailure()
	metrics.SetConsecutiveFailures(m.failures)
	m.logger.Debug("companion probe failed", "consecutive", m.failures, "error", err)

	if m.failures < m.threshold {
		return
	}

	m.logger.Warn("companion app not responding, stopping tunnel", "checks", m.failures)
	result := m.tunnel.Stop()
	if result.Status == api.StatusStopped {
		metrics.IncrementTunnelStop("health")
	}
	m.logger.Info("tunnel stop triggered by companion disconnect",
		"status", result.Status, "message", result.Message)

	// Reset regardless of the stop outcome so a stuck supervisor error
	// cannot cause a stop-retry storm every cycle.
	m.failures = 0
	metrics.SetConsecutiveFailures(0)
}

// Stop cancels the loop and waits a bounded time for it to observe the
// cancellation. An in-flight probe is never aborted mid-call.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel == nil {
			return
		}
		m.cancel()
		select {
		case <-m.done:
			m.logger.Info("app monitor stopped")
		case <-time.After(joinTimeout):
			m.logger.Warn("app monitor did not exit within bound")
		}
	})
}
