// Package appdata resolves the on-disk location of the sing-box executable
// and its generated configuration for a given user and application name.
//
// The layout is a contract with the companion desktop application, which
// provisions the files before asking the service to start the tunnel. It
// must never be changed independently of the companion.
package appdata

import "path/filepath"

const (
	// TunnelDir is the hidden directory the companion creates underneath
	// its per-user application data root.
	TunnelDir = ".sing-box"
	// ConfigName is the generated configuration file the tunnel runs with.
	ConfigName = "sing-box-auto.json"
)

// Paths returns the absolute executable and configuration paths for the
// supplied username and application name on the current platform. The
// result is purely deterministic; existence of the files is the
// supervisor's concern.
func Paths(username, appname string) (tunnelPath, configPath string) {
	base := baseDir(username, appname)
	return filepath.Join(base, binaryName), filepath.Join(base, ConfigName)
}
