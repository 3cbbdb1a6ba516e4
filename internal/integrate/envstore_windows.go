//go:build windows

package integrate

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/valksor/go-julesetup/internal/log"
)

const userEnvironmentKey = `Environment`

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

const (
	hwndBroadcast   = 0xffff
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

// RegistryEnvStore reads and writes a variable under HKCU\Environment.
type RegistryEnvStore struct {
	variable string
}

// NewRegistryEnvStore creates a store for the user's variable, usually "Path".
func NewRegistryEnvStore(variable string) *RegistryEnvStore {
	return &RegistryEnvStore{variable: variable}
}

func (s *RegistryEnvStore) Variable() string  { return s.variable }
func (s *RegistryEnvStore) Separator() string { return ";" }

// Get returns the raw, unexpanded value. A missing value reads as "".
func (s *RegistryEnvStore) Get() (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, userEnvironmentKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open HKCU\\%s: %w", userEnvironmentKey, err)
	}
	defer func() { _ = k.Close() }()

	v, _, err := k.GetStringValue(s.variable)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.variable, err)
	}
	return v, nil
}

// Set writes value as REG_EXPAND_SZ and notifies running programs.
func (s *RegistryEnvStore) Set(value string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, userEnvironmentKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\%s: %w", userEnvironmentKey, err)
	}
	defer func() { _ = k.Close() }()

	if err := k.SetExpandStringValue(s.variable, value); err != nil {
		return fmt.Errorf("write %s: %w", s.variable, err)
	}

	broadcastEnvironmentChange()
	return nil
}

// broadcastEnvironmentChange tells Explorer and other top-level windows to
// reload the user environment. Failure only delays the change until next logon.
func broadcastEnvironmentChange() {
	param, err := windows.UTF16PtrFromString(userEnvironmentKey)
	if err != nil {
		return
	}
	var result uintptr
	r, _, callErr := procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmSettingChange,
		0,
		uintptr(unsafe.Pointer(param)),
		smtoAbortIfHung,
		5000,
		uintptr(unsafe.Pointer(&result)),
	)
	if r == 0 {
		log.Debug("environment change broadcast failed", log.Err(callErr))
	}
}
