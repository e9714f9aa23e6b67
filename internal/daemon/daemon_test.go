package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/RocketMan-System/rocketman-service/internal/api"
	"github.com/RocketMan-System/rocketman-service/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.ControlAddr = freeAddr(t)
	// Nothing listens on the companion URL in tests; keep probes short so
	// the monitor never slows the test down.
	cfg.CompanionPingURL = "http://127.0.0.1:9/ping"
	cfg.ProbeInterval.Duration = time.Hour
	cfg.ProbeTimeout.Duration = 50 * time.Millisecond
	cfg.ReadyTimeout.Duration = 5 * time.Second
	return cfg
}

type notifyRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *notifyRecorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *notifyRecorder) saw(state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == state {
			return true
		}
	}
	return false
}

func TestDaemonStartServesControlAPI(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &notifyRecorder{}
	d.notify = rec.notify

	if err := d.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart: %v", err)
	}
	defer d.OnStop()

	client := api.NewClient(cfg.ControlAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping after start: %v", err)
	}
	result, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status after start: %v", err)
	}
	if result.Status != api.StatusStopped {
		t.Fatalf("status = %q, want %q", result.Status, api.StatusStopped)
	}
	if !rec.saw("READY=1") {
		t.Fatalf("READY=1 was not notified, got %v", rec.states)
	}
}

func TestDaemonStopShutsControlAPIDown(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &notifyRecorder{}
	d.notify = rec.notify

	if err := d.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart: %v", err)
	}
	d.OnStop()

	if !rec.saw("STOPPING=1") {
		t.Fatalf("STOPPING=1 was not notified, got %v", rec.states)
	}

	client := api.NewClient(cfg.ControlAddr)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx); err == nil {
		t.Fatal("control API still reachable after OnStop")
	}
}

func TestDaemonRunHonorsContext(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &notifyRecorder{}
	d.notify = rec.notify

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	client := api.NewClient(cfg.ControlAddr)
	deadline := time.Now().Add(5 * time.Second)
	for {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(pingCtx)
		pingCancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("control API never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestReadinessWaitPrefersReachableOverCancelled(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Occupy the control address so the port is reachable without running
	// the server goroutine.
	ln, err := net.Listen("tcp", cfg.ControlAddr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	d.serverErr = make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.waitForControl(ctx); err != nil {
		t.Fatalf("cancellation masked a reachable control API: %v", err)
	}
}

func TestReadinessWaitHonorsCancellationWhenUnreachable(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.serverErr = make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	err = d.waitForControl(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled wait on an unreachable port")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Fatalf("cancelled wait ran the full readiness window: %s", elapsed)
	}
}

func TestDaemonStartFailsWhenControlNeverReady(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReadyTimeout.Duration = time.Nanosecond
	d, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &notifyRecorder{}
	d.notify = rec.notify

	if err := d.OnStart(context.Background()); err == nil {
		d.OnStop()
		t.Fatal("OnStart succeeded with an expired readiness window")
	}
	if rec.saw("READY=1") {
		t.Fatal("READY=1 notified despite failed start")
	}
}

func TestDaemonStopWithoutStart(t *testing.T) {
	d, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &notifyRecorder{}
	d.notify = rec.notify

	// Must not panic or hang.
	d.OnStop()
	if !rec.saw("STOPPING=1") {
		t.Fatalf("STOPPING=1 was not notified, got %v", rec.states)
	}
}
