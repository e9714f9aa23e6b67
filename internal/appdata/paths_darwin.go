//go:build darwin

package appdata

import "path/filepath"

const binaryName = "sing-box"

// The daemon may run as root, so the target user's home is addressed by
// name rather than through the process environment.
func baseDir(username, appname string) string {
	return filepath.Join("/Users", username, "Library", "Application Support", appname, TunnelDir)
}
