package config

import (
	"os"
	"path/filepath"
)

const appName = "feedstore"

// platformDir is a candidate data location, used when probe exists.
type platformDir struct {
	probe string
	dir   string
}

// DefaultDataDir returns the default data directory for the host OS:
// $XDG_DATA_HOME/feedstore, /var/lib/feedstore, the macOS or Windows
// per-user application directory, or ~/.feedstore. Without a home directory
// it is ./data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	candidates := []platformDir{
		{probe: "/var/lib", dir: filepath.Join("/var/lib", appName)},
		{probe: filepath.Join(home, "Library"), dir: filepath.Join(home, "Library", "Application Support", "Feedstore")},
		{probe: filepath.Join(home, "AppData"), dir: filepath.Join(home, "AppData", "Local", "Feedstore")},
	}
	for _, c := range candidates {
		if isDir(c.probe) {
			return c.dir
		}
	}
	return filepath.Join(home, "."+appName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
