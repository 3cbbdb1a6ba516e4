package display

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// IndentOne is one level of indentation.
const IndentOne = "  "

// ProgressBarWidth is the number of cells in a progress bar.
const ProgressBarWidth = 30

// SeparatorLine is the rule drawn under section headers.
var SeparatorLine = strings.Repeat("─", 60)

// TimestampFormat is the timestamp layout used in CLI output.
const TimestampFormat = "2006-01-02 15:04:05"

// keyWidth aligns KeyValue values, including the trailing colon.
const keyWidth = 12

// Formatter lays out CLI text at an indentation level.
type Formatter struct {
	indentLevel int
}

// NewFormatter returns a formatter without indentation.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// SetIndent sets the indentation level.
func (f *Formatter) SetIndent(level int) *Formatter {
	f.indentLevel = level
	return f
}

// Indent returns the current indentation string.
func (f *Formatter) Indent() string {
	return strings.Repeat(IndentOne, f.indentLevel)
}

// Section renders a bold title over a separator rule.
func (f *Formatter) Section(title string) string {
	if title == "" {
		return "\n" + SeparatorLine + "\n"
	}
	return "\n" + Bold(title) + "\n" + SeparatorLine + "\n"
}

// KeyValue renders "key: value" with values aligned.
func (f *Formatter) KeyValue(key, value string) string {
	return fmt.Sprintf("%s%-*s %s\n", f.Indent(), keyWidth, key+":", value)
}

// Timestamp formats a time.Time using the standard format.
func (f *Formatter) Timestamp(t time.Time) string {
	return t.Local().Format(TimestampFormat)
}

// Truncate truncates a string to a maximum number of runes, adding "..." if
// truncated.
func (f *Formatter) Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// Table formats a simple table with headers. Cells are padded by rune count
// so colored values should be applied after layout.
func (f *Formatter) Table(headers []string, rows [][]string) string {
	var sb strings.Builder

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				colWidths[i] = max(colWidths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	pad := func(cells []string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			if i < len(colWidths) && i < len(cells)-1 {
				out[i] = cell + strings.Repeat(" ", colWidths[i]-utf8.RuneCountInString(cell))
			} else {
				out[i] = cell
			}
		}
		return strings.Join(out, "  ")
	}

	sb.WriteString(Bold(pad(headers)))
	sb.WriteString("\n")

	separators := make([]string, len(colWidths))
	for i, w := range colWidths {
		separators[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Muted(strings.Join(separators, "  ")))
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString(pad(row))
		sb.WriteString("\n")
	}

	return sb.String()
}

// Section renders a section header without indentation.
func Section(title string) string { return NewFormatter().Section(title) }

// KeyValue renders an unindented key-value line.
func KeyValue(key, value string) string { return NewFormatter().KeyValue(key, value) }

// Truncate shortens s to maxLen runes.
func Truncate(s string, maxLen int) string { return NewFormatter().Truncate(s, maxLen) }

// ProgressBar renders percent as a fixed width bar.
func ProgressBar(percent int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * ProgressBarWidth / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", ProgressBarWidth-filled) + "]"
}
