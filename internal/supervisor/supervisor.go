// Package supervisor owns the lifecycle of the single managed sing-box
// process. It is the only component allowed to touch the OS process handle
// and the single source of truth for its state.
package supervisor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/RocketMan-System/rocketman-service/internal/api"
	"github.com/RocketMan-System/rocketman-service/internal/metrics"
)

const (
	defaultStartGrace  = 500 * time.Millisecond
	defaultStopTimeout = 5 * time.Second

	// diagnosticLimit bounds the stderr prefix embedded in the
	// immediate-exit error message.
	diagnosticLimit = 200
)

// Options configures a Supervisor. Zero values select the contract
// defaults.
type Options struct {
	// StartGrace is how long Start waits after a spawn before re-checking
	// that the process did not exit immediately.
	StartGrace time.Duration
	// StopTimeout bounds the graceful-termination wait before Stop
	// escalates to an unconditional kill.
	StopTimeout time.Duration
	Logger      *slog.Logger
}

// Supervisor serializes start, stop and status of the managed process
// behind a single mutex. The lock is held for entire operation bodies, so
// path validation, the spawn and the post-spawn grace check are atomic
// with respect to concurrent callers.
type Supervisor struct {
	mu   sync.Mutex
	proc *process

	startGrace  time.Duration
	stopTimeout time.Duration
	logger      *slog.Logger

	sleep func(time.Duration)
}

// process bundles the OS handle with the channels used to observe it.
type process struct {
	cmd        *exec.Cmd
	stderr     *prefixBuffer
	tunnelPath string
	configPath string

	// done is closed once the reaper goroutine's Wait returns; waitErr is
	// only valid after that.
	done    chan struct{}
	waitErr error
}

func (p *process) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// New constructs a Supervisor with no managed process.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		startGrace:  opts.StartGrace,
		stopTimeout: opts.StopTimeout,
		logger:      opts.Logger,
		sleep:       time.Sleep,
	}
	if s.startGrace <= 0 {
		s.startGrace = defaultStartGrace
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = defaultStopTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start spawns the tunnel executable with the provided configuration. It
// is idempotent: if a live process is already supervised the call reports
// it instead of spawning a second one.
func (s *Supervisor) Start(tunnelPath, configPath string) api.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		if s.proc.alive() {
			return api.Result{Status: api.StatusAlreadyRunning, PID: s.proc.cmd.Process.Pid}
		}
		s.proc = nil
		metrics.SetTunnelRunning(false)
	}

	if _, err := os.Stat(tunnelPath); err != nil {
		return api.Result{Status: api.StatusError, Message: fmt.Sprintf("sing-box not found: %s", tunnelPath)}
	}
	if _, err := os.Stat(configPath); err != nil {
		return api.Result{Status: api.StatusError, Message: fmt.Sprintf("Config not found: %s", configPath)}
	}

	stderr := newPrefixBuffer(diagnosticLimit)
	cmd := exec.Command(tunnelPath, "run", "-c", configPath)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return api.Result{Status: api.StatusError, Message: fmt.Sprintf("Failed to start process: %v", err)}
	}

	proc := &process{
		cmd:        cmd,
		stderr:     stderr,
		tunnelPath: tunnelPath,
		configPath: configPath,
		done:       make(chan struct{}),
	}
	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()
	s.proc = proc

	// Deliberately sleeps inside the lock: a concurrent caller must see a
	// terminal outcome, never the window between spawn and verification.
	s.sleep(s.startGrace)

	if !proc.alive() {
		s.proc = nil
		diagnostic := proc.stderr.String()
		if diagnostic == "" && proc.waitErr != nil {
			diagnostic = proc.waitErr.Error()
		}
		return api.Result{
			Status:  api.StatusError,
			Message: fmt.Sprintf("Process exited immediately. Error: %s", diagnostic),
		}
	}

	metrics.IncrementTunnelStart()
	metrics.SetTunnelRunning(true)
	s.logger.Info("tunnel started",
		"pid", cmd.Process.Pid,
		"tunnel", tunnelPath,
		"config", configPath)

	return api.Result{
		Status:     api.StatusStarted,
		PID:        cmd.Process.Pid,
		TunnelPath: tunnelPath,
		ConfigPath: configPath,
	}
}

// Stop terminates the managed process, escalating from a polite terminate
// signal to an unconditional kill once the graceful bound elapses. It is
// idempotent: stopping an idle supervisor reports not_running. Whatever
// happens, the supervisor never reports a process as running once Stop
// has returned.
func (s *Supervisor) Stop() api.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || !s.proc.alive() {
		if s.proc != nil {
			s.proc = nil
			metrics.SetTunnelRunning(false)
		}
		return api.Result{Status: api.StatusNotRunning}
	}

	proc := s.proc
	pid := proc.cmd.Process.Pid

	if err := terminateProcess(proc.cmd); err != nil {
		s.logger.Warn("graceful terminate failed, escalating", "pid", pid, "error", err)
		if killErr := killProcess(proc.cmd); killErr != nil {
			s.proc = nil
			metrics.SetTunnelRunning(false)
			return api.Result{Status: api.StatusError, Message: fmt.Sprintf("Failed to stop process: %v", killErr)}
		}
		<-proc.done
		s.proc = nil
		metrics.SetTunnelRunning(false)
		return api.Result{Status: api.StatusStopped}
	}

	select {
	case <-proc.done:
	case <-time.After(s.stopTimeout):
		s.logger.Warn("process did not exit gracefully, killing", "pid", pid)
		if err := killProcess(proc.cmd); err != nil {
			s.proc = nil
			metrics.SetTunnelRunning(false)
			return api.Result{Status: api.StatusError, Message: fmt.Sprintf("Failed to stop process: %v", err)}
		}
		<-proc.done
	}

	s.proc = nil
	metrics.SetTunnelRunning(false)
	s.logger.Info("tunnel stopped", "pid", pid)
	return api.Result{Status: api.StatusStopped}
}

// Status reports a point-in-time snapshot. Liveness is re-verified on
// every call since the process may exit outside supervisor control.
func (s *Supervisor) Status() api.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil && s.proc.alive() {
		return api.Result{
			Status:     api.StatusRunning,
			PID:        s.proc.cmd.Process.Pid,
			TunnelPath: s.proc.tunnelPath,
			ConfigPath: s.proc.configPath,
		}
	}

	// Only an actual running-to-stopped transition touches the gauge; an
	// idle supervisor leaves it alone.
	if s.proc != nil {
		s.proc = nil
		metrics.SetTunnelRunning(false)
	}
	return api.Result{Status: api.StatusStopped}
}

// prefixBuffer retains only the first limit bytes written to it. The
// managed process can emit arbitrary amounts of output; only a short
// prefix is ever useful in an error message.
type prefixBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newPrefixBuffer(limit int) *prefixBuffer {
	return &prefixBuffer{limit: limit}
}

func (b *prefixBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.limit - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *prefixBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
