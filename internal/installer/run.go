package installer

import (
	"context"
	"sync"

	"github.com/valksor/go-julesetup/internal/download"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/workflow"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeCompleted             Outcome = "completed"
	OutcomeCompletedWithWarnings Outcome = "completed_with_warnings"
	OutcomeFailed                Outcome = "failed"
	OutcomeCancelled             Outcome = "cancelled"
)

// Update is a progress report for the presentation layer.
type Update struct {
	RunID         string
	Stage         workflow.Stage
	Percent       int
	Indeterminate bool
	Message       string
}

// Result is delivered once when a run ends.
type Result struct {
	RunID   string
	Version string
	Outcome Outcome
	Stage   workflow.Stage // failing stage; empty unless Outcome is failed
	Reason  string
	Err     error
	Steps   []integrate.StepResult
	Record  *integrate.Record
}

// Warnings counts integration steps that reported an error.
func (r Result) Warnings() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Run is one installation attempt.
type Run struct {
	ID   string
	Plan Plan

	machine *workflow.Machine
	updates chan Update
	done    chan struct{}

	queueMu  sync.Mutex
	queue    []Update
	queued   chan struct{}
	finished bool

	mu     sync.Mutex
	task   *download.Task
	result Result
}

// Updates streams progress in order and is closed after the last update of
// a finished run. The run never waits for the consumer: while the consumer
// lags, consecutive download progress collapses into the newest value.
// Stage changes, integration steps and the final update are always
// delivered. Consumers must drain the channel.
func (r *Run) Updates() <-chan Update {
	return r.updates
}

// Cancel aborts the run while it is downloading. Once extraction has begun
// the request is ignored.
func (r *Run) Cancel() {
	if ok, _ := r.machine.CanDispatch(context.Background(), workflow.EventCancel); !ok {
		return
	}
	r.mu.Lock()
	task := r.task
	r.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

// State returns the current workflow state.
func (r *Run) State() workflow.State {
	return r.machine.State()
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// WaitContext is like Wait but gives up when ctx is done.
func (r *Run) WaitContext(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.Wait(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func newRun(id string, plan Plan, machine *workflow.Machine) *Run {
	r := &Run{
		ID:      id,
		Plan:    plan,
		machine: machine,
		updates: make(chan Update, updateBuffer),
		done:    make(chan struct{}),
		queued:  make(chan struct{}, 1),
	}
	go r.pump()
	return r
}

// emit queues u without blocking.
func (r *Run) emit(u Update) {
	u.RunID = r.ID

	r.queueMu.Lock()
	if n := len(r.queue); n > 0 && coalesces(r.queue[n-1], u) {
		r.queue[n-1] = u
	} else {
		r.queue = append(r.queue, u)
	}
	r.queueMu.Unlock()
	r.wake()
}

// coalesces reports whether next may replace the pending prev.
func coalesces(prev, next Update) bool {
	return prev.Stage == workflow.StageDownload && next.Stage == workflow.StageDownload
}

// closeUpdates lets the pump close Updates once the queue is drained.
func (r *Run) closeUpdates() {
	r.queueMu.Lock()
	r.finished = true
	r.queueMu.Unlock()
	r.wake()
}

func (r *Run) wake() {
	select {
	case r.queued <- struct{}{}:
	default:
	}
}

// pump forwards queued updates to the consumer.
func (r *Run) pump() {
	defer close(r.updates)

	for {
		r.queueMu.Lock()
		for len(r.queue) == 0 && !r.finished {
			r.queueMu.Unlock()
			<-r.queued
			r.queueMu.Lock()
		}
		if len(r.queue) == 0 {
			r.queueMu.Unlock()
			return
		}
		u := r.queue[0]
		r.queue = r.queue[1:]
		r.queueMu.Unlock()

		r.updates <- u
	}
}
