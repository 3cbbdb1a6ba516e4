//go:build windows

package integrate

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallRoot = `Software\Microsoft\Windows\CurrentVersion\Uninstall`

// WindowsUninstallRegistry writes records under HKCU's Uninstall key so they
// appear in Apps & Features.
type WindowsUninstallRegistry struct{}

// NewWindowsUninstallRegistry creates the registry backend.
func NewWindowsUninstallRegistry() *WindowsUninstallRegistry {
	return &WindowsUninstallRegistry{}
}

func uninstallKeyPath(key string) string {
	return uninstallRoot + `\` + key
}

func (r *WindowsUninstallRegistry) Register(reg Registration) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, uninstallKeyPath(reg.Key), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create key %s: %w", reg.Key, err)
	}
	defer func() { _ = k.Close() }()

	values := []struct{ name, value string }{
		{"DisplayName", reg.DisplayName},
		{"DisplayVersion", reg.DisplayVersion},
		{"Publisher", reg.Publisher},
		{"InstallLocation", reg.InstallLocation},
		{"DisplayIcon", reg.DisplayIcon},
		{"UninstallString", reg.UninstallString},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := k.SetStringValue(v.name, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.name, err)
		}
	}

	for _, name := range []string{"NoModify", "NoRepair"} {
		if err := k.SetDWordValue(name, 1); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

func (r *WindowsUninstallRegistry) Unregister(key string) error {
	err := registry.DeleteKey(registry.CURRENT_USER, uninstallKeyPath(key))
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}

func (r *WindowsUninstallRegistry) Lookup(key string) (Registration, bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, uninstallKeyPath(key), registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("open key %s: %w", key, err)
	}
	defer func() { _ = k.Close() }()

	read := func(name string) string {
		v, _, _ := k.GetStringValue(name)
		return v
	}
	return Registration{
		Key:             key,
		DisplayName:     read("DisplayName"),
		DisplayVersion:  read("DisplayVersion"),
		Publisher:       read("Publisher"),
		InstallLocation: read("InstallLocation"),
		DisplayIcon:     read("DisplayIcon"),
		UninstallString: read("UninstallString"),
	}, true, nil
}
