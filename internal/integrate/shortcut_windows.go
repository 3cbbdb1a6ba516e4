//go:build windows

package integrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"
)

const sFalse = 0x00000001

// LnkShortcutMaker creates .lnk files through the WScript.Shell COM object.
type LnkShortcutMaker struct {
	dir string
}

// NewLnkShortcutMaker creates a maker writing into dir.
func NewLnkShortcutMaker(dir string) *LnkShortcutMaker {
	return &LnkShortcutMaker{dir: dir}
}

// DesktopDir returns the current user's Desktop folder.
func DesktopDir() (string, error) {
	return windows.KnownFolderPath(windows.FOLDERID_Desktop, 0)
}

func (m *LnkShortcutMaker) PathFor(name string) string {
	return filepath.Join(m.dir, name+".lnk")
}

func (m *LnkShortcutMaker) Create(l Launcher) (string, error) {
	path := m.PathFor(l.Name)

	// COM apartments are per OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return "", fmt.Errorf("initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", fmt.Errorf("create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("query IDispatch: %w", err)
	}
	defer shell.Release()

	v, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return "", fmt.Errorf("CreateShortcut: %w", err)
	}
	sc := v.ToIDispatch()
	defer sc.Release()

	props := []struct {
		name  string
		value string
	}{
		{"TargetPath", l.Target},
		{"Arguments", l.Args},
		{"WorkingDirectory", l.WorkingDir},
		{"IconLocation", l.Icon},
		{"Description", l.Description},
	}
	for _, p := range props {
		if p.value == "" {
			continue
		}
		if _, err := oleutil.PutProperty(sc, p.name, p.value); err != nil {
			return "", fmt.Errorf("set %s: %w", p.name, err)
		}
	}

	if _, err := oleutil.CallMethod(sc, "Save"); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func (m *LnkShortcutMaker) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
