package testutil

import (
	"sync"
	"time"

	"github.com/valksor/go-julesetup/internal/events"
)

// Recorder collects every event published on a bus.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	notify chan struct{}
}

// NewRecorder subscribes a recorder to all events on bus.
func NewRecorder(bus *events.Bus) *Recorder {
	r := &Recorder{notify: make(chan struct{}, 1)}
	bus.SubscribeAll(func(e events.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()

		select {
		case r.notify <- struct{}{}:
		default:
		}
	})
	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of type t in publish order.
func (r *Recorder) OfType(t events.Type) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until an event of type t has been recorded or the timeout
// expires.
func (r *Recorder) WaitFor(t events.Type, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(r.OfType(t)) > 0 {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline:
			return len(r.OfType(t)) > 0
		}
	}
}
