//go:build windows

package appdata

import "path/filepath"

const binaryName = "sing-box.exe"

// The service typically runs as LocalSystem, so the target user's roaming
// profile is addressed by name rather than through the process environment.
func baseDir(username, appname string) string {
	return filepath.Join(`C:\Users`, username, "AppData", "Roaming", appname, TunnelDir)
}
