//go:build !windows && !darwin

package appdata

import "path/filepath"

const binaryName = "sing-box"

func baseDir(username, appname string) string {
	return filepath.Join("/home", username, ".config", appname, TunnelDir)
}
