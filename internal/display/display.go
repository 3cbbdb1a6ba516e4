// Package display provides user-friendly formatting for internal state values.
// This separates display concerns from internal state representation, allowing
// user-facing text to evolve without breaking the install manifest.
package display

import (
	"github.com/valksor/go-julesetup/internal/workflow"
)

// StateDisplay maps internal workflow state values to user-friendly names.
var StateDisplay = map[workflow.State]string{
	workflow.StateNotStarted:  "Not started",
	workflow.StateDownloading: "Downloading",
	workflow.StateExtracting:  "Extracting",
	workflow.StateIntegrating: "Integrating",
	workflow.StateCompleted:   "Completed",
	workflow.StateFailed:      "Failed",
	workflow.StateCancelled:   "Cancelled",
}

// StateDescription provides additional context for each state.
var StateDescription = map[workflow.State]string{
	workflow.StateNotStarted:  "Waiting for an installation plan",
	workflow.StateDownloading: "Fetching the release archive",
	workflow.StateExtracting:  "Unpacking files into the install directory",
	workflow.StateIntegrating: "Updating PATH, uninstall entry and shortcuts",
	workflow.StateCompleted:   "Installation finished",
	workflow.StateFailed:      "Installation stopped with an error",
	workflow.StateCancelled:   "Installation cancelled during download",
}

// StateAccessiblePrefix provides short text prefixes for accessibility.
// These help color-blind users distinguish states without relying on color alone.
var StateAccessiblePrefix = map[workflow.State]string{
	workflow.StateNotStarted:  "[N]",
	workflow.StateDownloading: "[D]",
	workflow.StateExtracting:  "[E]",
	workflow.StateIntegrating: "[I]",
	workflow.StateCompleted:   "[C]",
	workflow.StateFailed:      "[F]",
	workflow.StateCancelled:   "[X]",
}

// StageDisplay maps pipeline stages to the verb shown on the status line.
var StageDisplay = map[workflow.Stage]string{
	workflow.StageDownload:  "Downloading",
	workflow.StageExtract:   "Extracting",
	workflow.StageIntegrate: "Integrating",
}

// OutcomeDisplay maps run outcomes to user-friendly names.
var OutcomeDisplay = map[string]string{
	"completed":               "Installed",
	"completed_with_warnings": "Installed with warnings",
	"failed":                  "Failed",
	"cancelled":               "Cancelled",
}

// FormatState returns the user-friendly display name for a workflow state.
// Falls back to the raw state string if not found in the mapping.
func FormatState(state workflow.State) string {
	if name, ok := StateDisplay[state]; ok {
		return name
	}
	return string(state)
}

// FormatStateString returns the user-friendly display name for a state string.
func FormatStateString(state string) string {
	return FormatState(workflow.State(state))
}

// GetStateDescription returns a brief description of what the state means.
func GetStateDescription(state workflow.State) string {
	if desc, ok := StateDescription[state]; ok {
		return desc
	}
	return ""
}

// FormatStage returns the status line verb for a stage.
func FormatStage(stage workflow.Stage) string {
	if name, ok := StageDisplay[stage]; ok {
		return name
	}
	return string(stage)
}

// FormatOutcome returns the user-friendly name for a run outcome.
func FormatOutcome(outcome string) string {
	if name, ok := OutcomeDisplay[outcome]; ok {
		return name
	}
	return outcome
}

// Color-aware formatting functions

// GetStateAccessiblePrefix returns the accessibility prefix for a state.
func GetStateAccessiblePrefix(state workflow.State) string {
	if prefix, ok := StateAccessiblePrefix[state]; ok {
		return prefix
	}
	return "[?]"
}

// FormatStateColored returns a colored state display name with accessibility prefix.
// Format: "[D] Downloading" where the prefix is muted and the name is colored.
func FormatStateColored(state workflow.State) string {
	prefix := Muted(GetStateAccessiblePrefix(state))
	displayName := FormatState(state)
	coloredName := ColorState(string(state), displayName)
	return prefix + " " + coloredName
}

// FormatOutcomeColored returns a colored outcome name.
func FormatOutcomeColored(outcome string) string {
	return ColorOutcome(outcome, FormatOutcome(outcome))
}
