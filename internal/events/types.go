package events

import "time"

// Type identifies event categories
type Type string

const (
	TypeStateChanged    Type = "state_changed"
	TypeProgress        Type = "progress"
	TypeError           Type = "error"
	TypeReleasesLoaded  Type = "releases_loaded"
	TypeIntegrationStep Type = "integration_step"
	TypeRunFinished     Type = "run_finished"
)

// Event is the base event structure
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
}

// Eventer interface for typed events
type Eventer interface {
	ToEvent() Event
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// StateChangedEvent when the installation state machine moves.
type StateChangedEvent struct {
	From      string
	To        string
	Event     string // Triggering event
	RunID     string
	Timestamp time.Time
}

func (e StateChangedEvent) ToEvent() Event {
	return Event{
		Type:      TypeStateChanged,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"from":   e.From,
			"to":     e.To,
			"event":  e.Event,
			"run_id": e.RunID,
		},
	}
}

// ProgressEvent carries stage progress. Percent is meaningless when
// Indeterminate is set.
type ProgressEvent struct {
	RunID         string
	Stage         string
	Message       string
	Percent       int
	Indeterminate bool
	Timestamp     time.Time
}

func (e ProgressEvent) ToEvent() Event {
	return Event{
		Type:      TypeProgress,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"run_id":        e.RunID,
			"stage":         e.Stage,
			"message":       e.Message,
			"percent":       e.Percent,
			"indeterminate": e.Indeterminate,
		},
	}
}

// ErrorEvent for errors
type ErrorEvent struct {
	RunID     string
	Stage     string
	Error     error
	Fatal     bool
	Timestamp time.Time
}

func (e ErrorEvent) ToEvent() Event {
	errMsg := ""
	if e.Error != nil {
		errMsg = e.Error.Error()
	}
	return Event{
		Type:      TypeError,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"run_id": e.RunID,
			"stage":  e.Stage,
			"error":  errMsg,
			"fatal":  e.Fatal,
		},
	}
}

// ReleasesLoadedEvent when a catalog fetch finishes successfully.
type ReleasesLoadedEvent struct {
	Source    string
	Count     int
	Timestamp time.Time
}

func (e ReleasesLoadedEvent) ToEvent() Event {
	return Event{
		Type:      TypeReleasesLoaded,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"source": e.Source,
			"count":  e.Count,
		},
	}
}

// IntegrationStepEvent reports the outcome of one system integration step.
type IntegrationStepEvent struct {
	RunID     string
	Step      string
	Skipped   bool
	Detail    string
	Error     error
	Timestamp time.Time
}

func (e IntegrationStepEvent) ToEvent() Event {
	errMsg := ""
	if e.Error != nil {
		errMsg = e.Error.Error()
	}
	return Event{
		Type:      TypeIntegrationStep,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"run_id":  e.RunID,
			"step":    e.Step,
			"skipped": e.Skipped,
			"detail":  e.Detail,
			"error":   errMsg,
		},
	}
}

// RunFinishedEvent is published once per installation run.
type RunFinishedEvent struct {
	RunID     string
	Outcome   string
	Stage     string // failing stage, empty unless Outcome is failed
	Reason    string
	Warnings  int
	Timestamp time.Time
}

func (e RunFinishedEvent) ToEvent() Event {
	return Event{
		Type:      TypeRunFinished,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"run_id":   e.RunID,
			"outcome":  e.Outcome,
			"stage":    e.Stage,
			"reason":   e.Reason,
			"warnings": e.Warnings,
		},
	}
}
