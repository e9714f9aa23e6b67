// Package daemon is the composition root for the service: it owns the one
// supervisor instance and wires the control API and health monitor around
// it, exposing the start/stop lifecycle the hosting service shell drives.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/RocketMan-System/rocketman-service/internal/api"
	httpapi "github.com/RocketMan-System/rocketman-service/internal/api/http"
	"github.com/RocketMan-System/rocketman-service/internal/config"
	"github.com/RocketMan-System/rocketman-service/internal/logging"
	"github.com/RocketMan-System/rocketman-service/internal/metrics"
	"github.com/RocketMan-System/rocketman-service/internal/monitor"
	"github.com/RocketMan-System/rocketman-service/internal/probe"
	"github.com/RocketMan-System/rocketman-service/internal/supervisor"
)

const readyPollInterval = 200 * time.Millisecond

// Daemon composes the supervisor, monitor and control server.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	sup    *supervisor.Supervisor
	mon    *monitor.Monitor
	server *httpapi.Server

	serverCancel context.CancelFunc
	serverErr    chan error

	// notify is the sd_notify entry point, a seam for tests.
	notify func(unsetEnv bool, state string) (bool, error)
}

// New builds a fully wired Daemon from the configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	sup := supervisor.New(supervisor.Options{
		StartGrace:  cfg.StartGrace.Duration,
		StopTimeout: cfg.StopTimeout.Duration,
		Logger:      logging.Component(logger, "supervisor"),
	})

	mon := monitor.New(sup, probe.NewHTTP(cfg.CompanionPingURL, cfg.ProbeTimeout.Duration), monitor.Options{
		Interval:     cfg.ProbeInterval.Duration,
		ProbeTimeout: cfg.ProbeTimeout.Duration,
		Threshold:    cfg.FailureThreshold,
		Logger:       logging.Component(logger, "monitor"),
	})

	server, err := httpapi.NewServer(httpapi.Config{
		Addr:       cfg.ControlAddr,
		Controller: sup,
		Logger:     logging.Component(logger, "control"),
	})
	if err != nil {
		return nil, fmt.Errorf("control server: %w", err)
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		sup:    sup,
		mon:    mon,
		server: server,
		notify: sd.SdNotify,
	}, nil
}

// Run starts the daemon, blocks until the context is cancelled and then
// performs an orderly shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.OnStart(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.OnStop()
	return nil
}

// OnStart brings up the control API, verifies it is reachable and then
// starts the health monitor. A control API that never becomes reachable
// within the readiness window is the one fatal startup condition.
func (d *Daemon) OnStart(ctx context.Context) error {
	serverCtx, cancel := context.WithCancel(context.Background())
	d.serverCancel = cancel
	d.serverErr = make(chan error, 1)
	go func() {
		d.serverErr <- d.server.Run(serverCtx)
	}()

	if err := d.waitForControl(ctx); err != nil {
		cancel()
		return fmt.Errorf("control API failed to start on %s: %w", d.server.Addr(), err)
	}

	// The monitor is cancelled by OnStop, never by the run context, so
	// shutdown ordering stays explicit.
	d.mon.Start(context.Background())

	if _, err := d.notify(false, sd.SdNotifyReady); err != nil {
		d.logger.Warn("sd_notify ready failed", "error", err)
	}
	d.logger.Info("service started", "control", d.server.Addr())
	return nil
}

// waitForControl polls a TCP connect against the control port until it
// succeeds or the readiness window closes.
func (d *Daemon) waitForControl(ctx context.Context) error {
	prober := probe.NewTCP(d.server.Addr())
	deadline := time.Now().Add(d.cfg.ReadyTimeout.Duration)

	var lastErr error
	for time.Now().Before(deadline) {
		select {
		case err := <-d.serverErr:
			if err == nil {
				return fmt.Errorf("control server exited during startup")
			}
			return err
		default:
		}

		// The probe gets the final word on every iteration: a stop signal
		// racing the readiness window must never turn an already-serving
		// control API into a startup failure.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readyPollInterval)
		lastErr = prober.Probe(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
		case <-time.After(readyPollInterval):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("control port never accepted a connection")
	}
	return fmt.Errorf("not reachable within %s: %w", d.cfg.ReadyTimeout.Duration, lastErr)
}

// OnStop tears everything down in order: monitor, tunnel, control server.
// Each step is independently guarded so one failure never prevents the
// next from running; shutdown always completes.
func (d *Daemon) OnStop() {
	if _, err := d.notify(false, sd.SdNotifyStopping); err != nil {
		d.logger.Warn("sd_notify stopping failed", "error", err)
	}

	d.mon.Stop()

	if result := d.sup.Stop(); result.Status == api.StatusError {
		d.logger.Error("stopping tunnel during shutdown failed", "message", result.Message)
	} else if result.Status == api.StatusStopped {
		metrics.IncrementTunnelStop("shutdown")
	}

	if d.serverCancel != nil {
		d.serverCancel()
		select {
		case err := <-d.serverErr:
			if err != nil {
				d.logger.Error("control server shutdown failed", "error", err)
			}
		case <-time.After(10 * time.Second):
			d.logger.Error("control server did not shut down in time")
		}
	}

	d.logger.Info("service stopped")
}

// Supervisor exposes the daemon's controller for in-process callers.
func (d *Daemon) Supervisor() api.Controller {
	return d.sup
}
