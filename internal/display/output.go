package display

import (
	"fmt"
	"strings"

	"github.com/valksor/go-julesetup/internal/workflow"
)

// InstallInfo holds installation details for consistent display.
type InstallInfo struct {
	RunID     string
	Version   string
	Location  string
	State     string
	Outcome   string
	PathEntry string
	Shortcuts []string
	Installed string
}

// InstallInfoOptions controls what fields to show in install info output.
type InstallInfoOptions struct {
	ShowRunID     bool
	ShowState     bool
	ShowShortcuts bool
	Compact       bool // If true, uses shorter format without state description
}

// DefaultInstallInfoOptions returns options that show all non-empty fields.
func DefaultInstallInfoOptions() InstallInfoOptions {
	return InstallInfoOptions{
		ShowRunID:     true,
		ShowState:     true,
		ShowShortcuts: true,
	}
}

// FormatInstallInfo formats installation details consistently across
// commands.
func FormatInstallInfo(header string, info InstallInfo, opts InstallInfoOptions) string {
	var sb strings.Builder

	title := info.Version
	if info.Outcome != "" {
		title += " " + Muted("(") + FormatOutcomeColored(info.Outcome) + Muted(")")
	}
	sb.WriteString(fmt.Sprintf("%s: %s\n", header, Bold(title)))

	if opts.ShowRunID && info.RunID != "" {
		sb.WriteString(fmt.Sprintf("  %-11s%s\n", "Run:", Muted(info.RunID)))
	}
	if info.Location != "" {
		sb.WriteString(fmt.Sprintf("  %-11s%s\n", "Location:", info.Location))
	}
	if opts.ShowState && info.State != "" {
		stateStr := FormatStateColored(workflow.State(info.State))
		if !opts.Compact {
			if desc := StateDescription[workflow.State(info.State)]; desc != "" {
				stateStr += " - " + Muted(desc)
			}
		}
		sb.WriteString(fmt.Sprintf("  %-11s%s\n", "State:", stateStr))
	}
	if info.PathEntry != "" {
		sb.WriteString(fmt.Sprintf("  %-11s%s\n", "PATH:", info.PathEntry))
	}
	if opts.ShowShortcuts {
		for i, s := range info.Shortcuts {
			label := ""
			if i == 0 {
				label = "Shortcuts:"
			}
			sb.WriteString(fmt.Sprintf("  %-11s%s\n", label, s))
		}
	}
	if info.Installed != "" {
		sb.WriteString(fmt.Sprintf("  %-11s%s\n", "Installed:", info.Installed))
	}

	return sb.String()
}

// NextStep represents a single next step suggestion.
type NextStep struct {
	Command     string
	Description string
}

// FormatNextSteps formats the "Next steps:" section consistently.
func FormatNextSteps(steps []NextStep) string {
	if len(steps) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(Muted("Next steps:"))
	sb.WriteString("\n")

	maxLen := 0
	for _, s := range steps {
		maxLen = max(maxLen, len(s.Command))
	}

	for _, s := range steps {
		sb.WriteString(fmt.Sprintf("  %s%s  %s\n",
			Cyan(s.Command),
			strings.Repeat(" ", maxLen-len(s.Command)),
			Muted("- "+s.Description),
		))
	}

	return sb.String()
}

// StepLine formats one integration step result.
func StepLine(step string, skipped bool, detail string, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("%s %-24s %s", ErrorPrefix(), step, Error(err.Error()))
	case skipped:
		return fmt.Sprintf("%s %-24s %s", Muted("-"), step, Muted(detail))
	default:
		return fmt.Sprintf("%s %-24s %s", SuccessPrefix(), step, detail)
	}
}
