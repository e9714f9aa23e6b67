package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/RocketMan-System/rocketman-service/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// printResult renders a supervisor result for humans, coloring the status
// when stdout is a terminal.
func printResult(w io.Writer, result api.Result) {
	fmt.Fprintf(w, "status: %s\n", colorStatus(w, result.Status))
	if result.PID != 0 {
		fmt.Fprintf(w, "pid: %d\n", result.PID)
	}
	if result.TunnelPath != "" {
		fmt.Fprintf(w, "sing-box: %s\n", result.TunnelPath)
	}
	if result.ConfigPath != "" {
		fmt.Fprintf(w, "config: %s\n", result.ConfigPath)
	}
	if result.Message != "" {
		fmt.Fprintf(w, "message: %s\n", result.Message)
	}
}

func colorStatus(w io.Writer, status api.Status) string {
	if !isTerminal(w) {
		return string(status)
	}
	switch status {
	case api.StatusRunning, api.StatusStarted, api.StatusStopped:
		return ansiGreen + string(status) + ansiReset
	case api.StatusAlreadyRunning, api.StatusNotRunning:
		return ansiYellow + string(status) + ansiReset
	case api.StatusError:
		return ansiRed + string(status) + ansiReset
	default:
		return string(status)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
