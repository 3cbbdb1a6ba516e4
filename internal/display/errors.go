package display

import (
	"fmt"
	"strings"
)

// Suggestion represents a suggested action for error recovery.
type Suggestion struct {
	Command     string
	Description string
}

// ErrorWithSuggestions formats an error message with actionable suggestions.
func ErrorWithSuggestions(message string, suggestions []Suggestion) string {
	var sb strings.Builder

	sb.WriteString(ErrorMsg("%s", message))
	sb.WriteString("\n")

	if len(suggestions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(Muted("Suggested actions:"))
		sb.WriteString("\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  %s %s - %s\n",
				Muted("•"),
				Cyan(s.Command),
				s.Description,
			))
		}
	}

	return sb.String()
}

// Common error messages with suggestions

// NoReleasesError explains an empty catalog for keyword.
func NoReleasesError(keyword string) string {
	return ErrorWithSuggestions(
		fmt.Sprintf("No releases with a %q asset", keyword),
		[]Suggestion{
			{Command: "julesetup releases --platform <keyword>", Description: "List releases for another platform"},
			{Command: "julesetup releases --pre-releases", Description: "Include pre-releases"},
		},
	)
}

// RateLimitedError explains an anonymous rate limit.
func RateLimitedError() string {
	return ErrorWithSuggestions(
		"The release feed rate limit was reached",
		[]Suggestion{
			{Command: "export GITHUB_TOKEN=<token>", Description: "Authenticate to raise the limit"},
			{Command: "gh auth login", Description: "Let julesetup use the GitHub CLI token"},
		},
	)
}

// NotInstalledError explains a missing install manifest.
func NotInstalledError(dir string) string {
	return ErrorWithSuggestions(
		fmt.Sprintf("No julesetup installation found in %s", dir),
		[]Suggestion{
			{Command: "julesetup uninstall --dir <path>", Description: "Point at the directory you installed to"},
		},
	)
}
