//go:build windows

package integrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// NewPlatform returns an integrator backed by the Windows registry and
// Desktop .lnk shortcuts.
func NewPlatform(opts ...Option) (*Integrator, error) {
	desktop, err := DesktopDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil, fmt.Errorf("locate desktop: %w", err)
		}
		desktop = filepath.Join(home, "Desktop")
	}

	return New(
		NewRegistryEnvStore("Path"),
		NewWindowsUninstallRegistry(),
		NewLnkShortcutMaker(desktop),
		opts...,
	), nil
}
