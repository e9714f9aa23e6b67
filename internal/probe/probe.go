// Package probe implements the liveness checks the service relies on: an
// HTTP check against the companion application's ping endpoint and a TCP
// reachability check used while waiting for the control API to come up.
package probe

import "context"

// Prober executes a single liveness check. A nil return means alive.
type Prober interface {
	Probe(ctx context.Context) error
}

// Func adapts a plain function to the Prober interface.
type Func func(ctx context.Context) error

func (f Func) Probe(ctx context.Context) error {
	return f(ctx)
}
