// Package progress provides status line tracking for an installation run.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/workflow"
)

const maxActivity = 50

// StatusLine renders installer updates on a single rewritten terminal line,
// starting a fresh line whenever the stage changes.
type StatusLine struct {
	out         io.Writer
	stage       workflow.Stage
	activity    string
	startTime   time.Time
	stageStart  time.Time
	updateCount int
	now         func() time.Time
	mu          sync.Mutex
}

// Option configures a StatusLine.
type Option func(*StatusLine)

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(s *StatusLine) { s.out = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *StatusLine) { s.now = now }
}

// NewStatusLine creates a status line.
func NewStatusLine(opts ...Option) *StatusLine {
	s := &StatusLine{out: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.startTime = s.now()
	s.stageStart = s.startTime
	return s
}

// OnUpdate renders one update. It matches the callback taken by
// installer.Orchestrator.Install.
func (s *StatusLine) OnUpdate(u installer.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Stage != s.stage {
		if s.stage != "" {
			s.finishStage()
		}
		s.stage = u.Stage
		s.stageStart = s.now()
	}
	s.update(u)
}

// update overwrites the current line with \r.
func (s *StatusLine) update(u installer.Update) {
	activity := display.Truncate(u.Message, maxActivity)

	elapsed := s.now().Sub(s.stageStart)
	elapsedStr := ""
	if elapsed >= 5*time.Second {
		elapsedStr = fmt.Sprintf(" (%s)", formatDuration(elapsed))
	}

	bar := ""
	if !u.Indeterminate {
		bar = fmt.Sprintf(" %s %3d%%", display.ProgressBar(u.Percent), u.Percent)
	}

	_, _ = fmt.Fprintf(s.out, "\r→ %s%s%s %s\x1b[K", display.FormatStage(u.Stage), bar, elapsedStr, display.Muted(activity))
	s.activity = activity
	s.updateCount++
}

func (s *StatusLine) finishStage() {
	_, _ = fmt.Fprintf(s.out, "\r→ %s %s (%s)\x1b[K\n",
		display.FormatStage(s.stage), display.SuccessPrefix(), formatDuration(s.now().Sub(s.stageStart)))
}

// Done closes the last stage line. Failed and cancelled runs leave the line
// without a checkmark.
func (s *StatusLine) Done(res installer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage == "" {
		return
	}
	switch res.Outcome {
	case installer.OutcomeCompleted, installer.OutcomeCompletedWithWarnings:
		s.finishStage()
	default:
		_, _ = fmt.Fprintf(s.out, "\r→ %s %s (%s)\x1b[K\n",
			display.FormatStage(s.stage), display.ErrorPrefix(), formatDuration(s.now().Sub(s.stageStart)))
	}
	s.stage = ""
}

// Elapsed is the time since the status line was created.
func (s *StatusLine) Elapsed() time.Duration {
	return s.now().Sub(s.startTime)
}

// GetStage returns the stage currently shown.
func (s *StatusLine) GetStage() workflow.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// GetLastActivity returns the last rendered message.
func (s *StatusLine) GetLastActivity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activity
}

// GetUpdateCount returns how many updates have been rendered.
func (s *StatusLine) GetUpdateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCount
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
