package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/valksor/go-julesetup/internal/events"
)

// StateListener is called when state changes
type StateListener func(from, to State, event Event, job *Job)

// Machine manages installation state transitions
type Machine struct {
	mu sync.RWMutex

	state     State
	job       *Job
	eventBus  *events.Bus
	listeners []StateListener
	history   []HistoryEntry
}

// HistoryEntry records a state transition
type HistoryEntry struct {
	From  State
	To    State
	Event Event
}

// NewMachine creates a new state machine. eventBus may be nil.
func NewMachine(eventBus *events.Bus) *Machine {
	return &Machine{
		state:     StateNotStarted,
		eventBus:  eventBus,
		listeners: make([]StateListener, 0),
		history:   make([]HistoryEntry, 0),
	}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Job returns the current job
func (m *Machine) Job() *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.job
}

// SetJob sets the job
func (m *Machine) SetJob(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.job = job
}

// Update mutates the job under the machine lock.
func (m *Machine) Update(fn func(job *Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job != nil {
		fn(m.job)
	}
}

// AddListener registers a state change listener
func (m *Machine) AddListener(listener StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// Dispatch attempts to transition based on an event
func (m *Machine) Dispatch(ctx context.Context, event Event) error {
	m.mu.Lock()

	from := m.state

	transitions := GetTransitions(from, event)
	if len(transitions) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("no transition from %s on event %s", from, event)
	}

	for _, t := range transitions {
		if EvaluateGuards(ctx, m.job, t.Guards) {
			notify := m.transitionTo(from, t.To, event)
			m.mu.Unlock()
			notify()
			return nil
		}
	}

	m.mu.Unlock()
	return fmt.Errorf("no valid transition from %s on event %s (guards failed)", from, event)
}

// CanDispatch reports whether event would change state now, with a reason
// when it would not.
func (m *Machine) CanDispatch(ctx context.Context, event Event) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from := m.state
	if !CanTransition(from, event) {
		return false, fmt.Sprintf("no transition from %s on event %s", from, event)
	}

	for _, t := range GetTransitions(from, event) {
		if EvaluateGuards(ctx, m.job, t.Guards) {
			return true, ""
		}
	}

	return false, fmt.Sprintf("guards failed for transition from %s on event %s", from, event)
}

// transitionTo performs the actual state change (must hold lock). The
// returned func publishes the change and must be called after unlocking.
func (m *Machine) transitionTo(from, to State, event Event) func() {
	m.history = append(m.history, HistoryEntry{From: from, To: to, Event: event})
	m.state = to

	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	job := m.job
	runID := ""
	if job != nil {
		runID = job.ID
	}

	bus := m.eventBus

	return func() {
		// Synchronous publish keeps state events ordered for subscribers.
		if bus != nil {
			bus.Publish(events.StateChangedEvent{
				From:  string(from),
				To:    string(to),
				Event: string(event),
				RunID: runID,
			})
		}

		// Listeners run on their own goroutine so they may dispatch.
		if len(listeners) > 0 {
			go func() {
				for _, listener := range listeners {
					listener(from, to, event, job)
				}
			}()
		}
	}
}

// History returns the transition history
func (m *Machine) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]HistoryEntry, len(m.history))
	copy(history, m.history)
	return history
}

// IsTerminal returns true if current state is terminal
func (m *Machine) IsTerminal() bool {
	return IsTerminal(m.State())
}
