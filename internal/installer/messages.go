package installer

import (
	"fmt"

	"github.com/valksor/go-julesetup/internal/download"
	"github.com/valksor/go-julesetup/internal/integrate"
)

func downloadMessage(ev download.Event) string {
	if ev.Indeterminate || ev.BytesTotal <= 0 {
		return "Downloading " + FormatBytes(ev.BytesTransferred)
	}
	return fmt.Sprintf("Downloading %s of %s", FormatBytes(ev.BytesTransferred), FormatBytes(ev.BytesTotal))
}

func stepMessage(s integrate.StepResult) string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("%s failed: %v", s.Step, s.Err)
	case s.Skipped:
		return fmt.Sprintf("%s skipped", s.Step)
	case s.Detail != "":
		return fmt.Sprintf("%s: %s", s.Step, s.Detail)
	default:
		return fmt.Sprintf("%s done", s.Step)
	}
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
