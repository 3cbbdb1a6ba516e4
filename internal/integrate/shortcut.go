package integrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Launcher describes a shortcut to create.
type Launcher struct {
	Name        string
	Target      string
	Args        string
	WorkingDir  string
	Icon        string
	Description string
}

// ShortcutMaker creates and removes launcher shortcuts.
type ShortcutMaker interface {
	// PathFor returns where the shortcut for a launcher name is written.
	PathFor(name string) string
	// Create writes the shortcut, replacing an existing one, and returns its path.
	Create(l Launcher) (string, error)
	// Remove deletes a shortcut. A missing file is not an error.
	Remove(path string) error
}

// MemoryShortcutMaker records shortcuts without touching the filesystem.
type MemoryShortcutMaker struct {
	mu        sync.Mutex
	dir       string
	shortcuts map[string]Launcher
}

// NewMemoryShortcutMaker creates a maker that pretends to write below dir.
func NewMemoryShortcutMaker(dir string) *MemoryShortcutMaker {
	return &MemoryShortcutMaker{dir: dir, shortcuts: make(map[string]Launcher)}
}

func (m *MemoryShortcutMaker) PathFor(name string) string {
	return filepath.Join(m.dir, name+".lnk")
}

func (m *MemoryShortcutMaker) Create(l Launcher) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.PathFor(l.Name)
	m.shortcuts[path] = l
	return path, nil
}

func (m *MemoryShortcutMaker) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shortcuts, path)
	return nil
}

// Shortcuts returns a copy of the current shortcuts keyed by path.
func (m *MemoryShortcutMaker) Shortcuts() map[string]Launcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Launcher, len(m.shortcuts))
	for k, v := range m.shortcuts {
		out[k] = v
	}
	return out
}

// DesktopEntryMaker writes freedesktop.org .desktop files.
type DesktopEntryMaker struct {
	dir string
}

// NewDesktopEntryMaker creates a maker writing into dir.
func NewDesktopEntryMaker(dir string) *DesktopEntryMaker {
	return &DesktopEntryMaker{dir: dir}
}

func (m *DesktopEntryMaker) PathFor(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	return filepath.Join(m.dir, slug+".desktop")
}

func (m *DesktopEntryMaker) Create(l Launcher) (string, error) {
	path := m.PathFor(l.Name)
	if err := writeFileAtomic(path, []byte(desktopEntry(l)), 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (m *DesktopEntryMaker) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func desktopEntry(l Launcher) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Version=1.0\n")
	fmt.Fprintf(&b, "Name=%s\n", l.Name)
	if l.Description != "" {
		fmt.Fprintf(&b, "Comment=%s\n", l.Description)
	}
	exec := quoteExec(l.Target)
	if l.Args != "" {
		exec += " " + l.Args
	}
	fmt.Fprintf(&b, "Exec=%s\n", exec)
	if l.WorkingDir != "" {
		fmt.Fprintf(&b, "Path=%s\n", l.WorkingDir)
	}
	if l.Icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", l.Icon)
	}
	b.WriteString("Terminal=true\n")
	return b.String()
}

// quoteExec quotes an Exec argument per the desktop entry spec.
func quoteExec(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\$`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}
