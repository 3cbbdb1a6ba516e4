//go:build !windows

package integrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// NewPlatform returns an integrator backed by files under the user's config
// directory and freedesktop .desktop entries.
func NewPlatform(opts ...Option) (*Integrator, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate home dir: %w", err)
	}

	base := filepath.Join(configDir, "julesetup")
	return New(
		NewFileEnvStore(filepath.Join(base, "path.env"), "PATH"),
		NewFileUninstallRegistry(filepath.Join(base, "uninstall")),
		NewDesktopEntryMaker(shortcutDir(home)),
		opts...,
	), nil
}

// shortcutDir prefers the Desktop and falls back to the applications menu.
func shortcutDir(home string) string {
	desktop := filepath.Join(home, "Desktop")
	if info, err := os.Stat(desktop); err == nil && info.IsDir() {
		return desktop
	}
	return filepath.Join(home, ".local", "share", "applications")
}
