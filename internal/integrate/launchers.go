package integrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// Product identity written to the uninstall registry.
const (
	ProductKey  = "JuleLang"
	ProductName = "Jule Programming Language"
	Publisher   = "Jule Development Team"
)

const (
	InterpreterShortcut = "Jule Interpreter"
	IDEShortcut         = "IDLE Jule"

	ideScript = "jule_idle.py"
	logoFile  = "logo.png"
)

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// ExecutableName returns the toolchain binary name for goos.
func ExecutableName(goos string) string {
	if goos == "windows" {
		return "jule.exe"
	}
	return "jule"
}

// pythonCandidates lists interpreter names in preference order.
func pythonCandidates(goos string) []string {
	if goos == "windows" {
		return []string{"pythonw", "python", "py"}
	}
	return []string{"python3", "python"}
}

// SkippedLauncher names a launcher that could not be created and why.
type SkippedLauncher struct {
	Name   string
	Reason string
}

// Launchers returns the shortcuts to create for an installation in dir.
// Launchers whose target or interpreter is missing are returned as skipped.
func Launchers(dir, goos string, lookPath LookPathFunc) ([]Launcher, []SkippedLauncher) {
	var (
		out     []Launcher
		skipped []SkippedLauncher
	)

	exe := filepath.Join(dir, ExecutableName(goos))
	if fileExists(exe) {
		out = append(out, Launcher{
			Name:        InterpreterShortcut,
			Target:      exe,
			WorkingDir:  dir,
			Icon:        exe,
			Description: "Jule Programming Language Interpreter",
		})
	} else {
		skipped = append(skipped, SkippedLauncher{Name: InterpreterShortcut, Reason: fmt.Sprintf("%s not found", exe)})
	}

	script := filepath.Join(dir, ideScript)
	switch python := findPython(goos, lookPath); {
	case !fileExists(script):
		skipped = append(skipped, SkippedLauncher{Name: IDEShortcut, Reason: fmt.Sprintf("%s not found", script)})
	case python == "":
		skipped = append(skipped, SkippedLauncher{Name: IDEShortcut, Reason: "no python interpreter on PATH"})
	default:
		out = append(out, Launcher{
			Name:        IDEShortcut,
			Target:      python,
			Args:        `"` + script + `"`,
			WorkingDir:  dir,
			Icon:        iconFor(dir, goos),
			Description: "Jule Integrated Development Environment",
		})
	}

	return out, skipped
}

func findPython(goos string, lookPath LookPathFunc) string {
	if lookPath == nil {
		return ""
	}
	for _, name := range pythonCandidates(goos) {
		if p, err := lookPath(name); err == nil && p != "" {
			return p
		}
	}
	return ""
}

// iconFor prefers the bundled logo and falls back to the binary.
func iconFor(dir, goos string) string {
	logo := filepath.Join(dir, logoFile)
	if fileExists(logo) {
		return logo
	}
	return filepath.Join(dir, ExecutableName(goos))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
