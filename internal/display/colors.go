// Package display provides user-friendly formatting for CLI output.
package display

import (
	"fmt"
	"os"
	"sync"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

// colorOn is nil until InitColors or SetColorsEnabled runs.
var (
	colorMu sync.RWMutex
	colorOn *bool
)

// InitColors decides whether output is colored. Colors are off when noColor
// is set or NO_COLOR is present in the environment (https://no-color.org/).
func InitColors(noColor bool) {
	_, envSet := os.LookupEnv("NO_COLOR")
	SetColorsEnabled(!noColor && !envSet)
}

// ColorsEnabled reports whether colors are enabled, initializing from the
// environment on first use.
func ColorsEnabled() bool {
	colorMu.RLock()
	on := colorOn
	colorMu.RUnlock()
	if on == nil {
		InitColors(false)
		return ColorsEnabled()
	}
	return *on
}

// SetColorsEnabled forces colors on or off.
func SetColorsEnabled(enabled bool) {
	colorMu.Lock()
	defer colorMu.Unlock()
	colorOn = &enabled
}

func colorize(text, color string) string {
	if !ColorsEnabled() {
		return text
	}
	return color + text + reset
}

// Semantic color functions

// Success formats text as successful (green).
func Success(text string) string {
	return colorize(text, green)
}

// Error formats text as an error (red).
func Error(text string) string {
	return colorize(text, red)
}

// Warning formats text as a warning (yellow).
func Warning(text string) string {
	return colorize(text, yellow)
}

// Info formats text as informational (blue).
func Info(text string) string {
	return colorize(text, blue)
}

// Muted formats text as muted/secondary (gray).
func Muted(text string) string {
	return colorize(text, gray)
}

// Bold formats text as bold.
func Bold(text string) string {
	return colorize(text, bold)
}

// Cyan formats text in cyan (used for commands/code).
func Cyan(text string) string {
	return colorize(text, cyan)
}

// Prefixed message helpers

// SuccessPrefix returns a success checkmark prefix.
func SuccessPrefix() string {
	return Success("✓")
}

// ErrorPrefix returns an error X prefix.
func ErrorPrefix() string {
	return Error("✗")
}

// WarningPrefix returns a warning icon prefix.
func WarningPrefix() string {
	return Warning("⚠")
}

// Formatted messages

// SuccessMsg formats a message after a success prefix.
func SuccessMsg(format string, args ...any) string {
	return SuccessPrefix() + " " + fmt.Sprintf(format, args...)
}

// ErrorMsg formats an error message in red after an error prefix.
func ErrorMsg(format string, args ...any) string {
	return ErrorPrefix() + " " + Error(fmt.Sprintf(format, args...))
}

// WarningMsg formats a warning message in yellow after a warning prefix.
func WarningMsg(format string, args ...any) string {
	return WarningPrefix() + " " + Warning(fmt.Sprintf(format, args...))
}

// State color mapping

// ColorState returns a colored state string based on the state value.
func ColorState(state, displayName string) string {
	switch state {
	case "not_started":
		return Muted(displayName)
	case "downloading", "extracting", "integrating":
		return Info(displayName)
	case "completed":
		return Success(displayName)
	case "failed":
		return Error(displayName)
	case "cancelled":
		return Warning(displayName)
	default:
		return displayName
	}
}

// ColorOutcome returns a colored run outcome.
func ColorOutcome(outcome, displayName string) string {
	switch outcome {
	case "completed":
		return Success(displayName)
	case "completed_with_warnings", "cancelled":
		return Warning(displayName)
	case "failed":
		return Error(displayName)
	default:
		return displayName
	}
}
