package api

// Status enumerates the outcomes a supervisor operation can report. The
// literal values are part of the wire contract with the companion
// application and must not change.
type Status string

const (
	// StatusStarted is returned by a start call that spawned a new tunnel.
	StatusStarted Status = "started"
	// StatusAlreadyRunning is returned by a start call that found a live
	// tunnel already under supervision.
	StatusAlreadyRunning Status = "already_running"
	// StatusRunning is returned by a status call while the tunnel is alive.
	StatusRunning Status = "running"
	// StatusStopped is returned by a status call while no tunnel is alive
	// and by a stop call that terminated one.
	StatusStopped Status = "stopped"
	// StatusNotRunning is returned by a stop call that had nothing to stop.
	StatusNotRunning Status = "not_running"
	// StatusError marks any failed operation; Message carries the detail.
	StatusError Status = "error"
)

// Result is the structured outcome of every supervisor operation. The JSON
// field names (including singbox_path) are fixed by the companion
// application and mirror the historical payloads byte for byte.
type Result struct {
	Status     Status `json:"status"`
	PID        int    `json:"pid,omitempty"`
	TunnelPath string `json:"singbox_path,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Controller exposes the supervisor operations required by control
// surfaces. Implementations must serialize internally; callers may invoke
// any method from any goroutine.
type Controller interface {
	Start(tunnelPath, configPath string) Result
	Stop() Result
	Status() Result
}
