package download

import (
	"context"
	"sync"
)

// State is the lifecycle state of a Task.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// IsTerminal reports whether no further events follow this state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// EventKind identifies a task event.
type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// Event is delivered on Task.Events.
type Event struct {
	Kind EventKind

	// Progress fields. Percent is only meaningful when Indeterminate is false.
	Percent          int
	Indeterminate    bool
	BytesTransferred int64
	BytesTotal       int64

	Path string // Completed only
	Err  error  // Failed and Cancelled
}

// IsTerminal reports whether the event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Kind != EventProgress
}

// Snapshot is a point-in-time copy of a task's counters.
type Snapshot struct {
	SourceURL        string
	DestinationPath  string
	BytesTotal       int64 // -1 when the server did not send a length
	BytesTransferred int64
	State            State
}

// Task is one transfer. It is owned by the goroutine started in
// Downloader.Start; callers observe it through Events and Snapshot.
type Task struct {
	SourceURL       string
	DestinationPath string

	mu               sync.Mutex
	bytesTotal       int64
	bytesTransferred int64
	state            State
	err              error

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func newTask(src, dst string, cancel context.CancelFunc) *Task {
	return &Task{
		SourceURL:       src,
		DestinationPath: dst,
		bytesTotal:      -1,
		state:           StatePending,
		events:          make(chan Event, 16),
		cancel:          cancel,
		done:            make(chan struct{}),
	}
}

// Events returns the event stream. It ends with exactly one terminal event
// and is then closed. Callers must drain it.
func (t *Task) Events() <-chan Event {
	return t.events
}

// Cancel aborts the transfer. It is safe to call more than once and after
// the task has finished.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed after the terminal event has been sent.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure or cancellation error once the task is done.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Snapshot returns the current counters and state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		SourceURL:        t.SourceURL,
		DestinationPath:  t.DestinationPath,
		BytesTotal:       t.bytesTotal,
		BytesTransferred: t.bytesTransferred,
		State:            t.state,
	}
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Task) setTotal(n int64) {
	t.mu.Lock()
	t.bytesTotal = n
	t.mu.Unlock()
}

func (t *Task) addTransferred(n int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bytesTransferred += n
	return t.bytesTransferred
}

func (t *Task) finish(s State, err error) {
	t.mu.Lock()
	t.state = s
	t.err = err
	t.mu.Unlock()
}
