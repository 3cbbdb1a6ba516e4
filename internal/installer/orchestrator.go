// Package installer sequences download, extraction and system integration
// into a single installation run.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/valksor/go-julesetup/internal/archive"
	"github.com/valksor/go-julesetup/internal/download"
	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/log"
	"github.com/valksor/go-julesetup/internal/workflow"
)

const updateBuffer = 16

// Fetcher starts asynchronous downloads.
type Fetcher interface {
	Start(ctx context.Context, src, dst string) *download.Task
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(archivePath, target string) (*archive.Result, error)
}

// Integrator applies and reverses system integration.
type Integrator interface {
	Integrate(ctx context.Context, req integrate.Request) (*integrate.Record, []integrate.StepResult, error)
	Remove(ctx context.Context, dir string, onStep integrate.StepFunc) ([]integrate.StepResult, error)
}

// Orchestrator runs installations one at a time.
type Orchestrator struct {
	fetcher    Fetcher
	extractor  Extractor
	integrator Integrator
	bus        *events.Bus
	newID      func() string

	mu     sync.Mutex
	active *Run
	busy   bool // uninstall in progress
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventBus publishes run events on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// New creates an Orchestrator.
func New(fetcher Fetcher, extractor Extractor, integrator Integrator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		extractor:  extractor,
		integrator: integrator,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Active returns the running installation, or nil.
func (o *Orchestrator) Active() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Start validates plan and begins a run. The download is already underway
// when Start returns.
func (o *Orchestrator) Start(ctx context.Context, plan Plan) (*Run, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil || o.busy {
		return nil, ErrRunActive
	}

	run := newRun(o.newID(), plan, workflow.NewMachine(o.bus))
	run.machine.SetJob(&workflow.Job{
		ID:          run.ID,
		Version:     plan.Release.Version,
		TargetDir:   plan.TargetDirectory,
		AssetURL:    plan.Release.AssetURL,
		ArchivePath: plan.ArchivePath(),
	})
	run.machine.AddListener(func(from, to workflow.State, event workflow.Event, _ *workflow.Job) {
		log.Debug("run transition", append(log.Transition(string(from), string(to)), log.RunID(run.ID), "event", event)...)
	})

	if err := run.machine.Dispatch(ctx, workflow.EventStart); err != nil {
		run.closeUpdates()
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	log.Info("installation started",
		log.RunID(run.ID),
		"version", plan.Release.Version,
		"target", plan.TargetDirectory,
	)

	run.task = o.fetcher.Start(ctx, plan.Release.AssetURL, plan.ArchivePath())
	o.active = run

	go o.execute(ctx, run)

	return run, nil
}

// Install runs plan to completion. Updates are delivered to onUpdate, which
// may be nil.
func (o *Orchestrator) Install(ctx context.Context, plan Plan, onUpdate func(Update)) (Result, error) {
	run, err := o.Start(ctx, plan)
	if err != nil {
		return Result{}, err
	}
	for u := range run.Updates() {
		if onUpdate != nil {
			onUpdate(u)
		}
	}
	return run.Wait(), nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	result := o.pipeline(ctx, run)
	result.RunID = run.ID
	result.Version = run.Plan.Release.Version

	o.publish(events.RunFinishedEvent{
		RunID:    run.ID,
		Outcome:  string(result.Outcome),
		Stage:    string(result.Stage),
		Reason:   result.Reason,
		Warnings: result.Warnings(),
	})

	attrs := []any{log.RunID(run.ID), "outcome", result.Outcome}
	switch result.Outcome {
	case OutcomeFailed:
		log.Error("installation failed", append(attrs, log.Stage(string(result.Stage)), log.Err(result.Err))...)
	case OutcomeCompletedWithWarnings:
		log.Warn("installation completed with warnings", append(attrs, "warnings", result.Warnings())...)
	default:
		log.Info("installation finished", attrs...)
	}

	o.mu.Lock()
	if o.active == run {
		o.active = nil
	}
	o.mu.Unlock()

	run.mu.Lock()
	run.result = result
	run.mu.Unlock()
	run.closeUpdates()
	close(run.done)
}

func (o *Orchestrator) pipeline(ctx context.Context, run *Run) Result {
	if res, ok := o.awaitDownload(ctx, run); !ok {
		return res
	}

	// Extraction and integration run to completion even if ctx is cancelled.
	ctx = context.WithoutCancel(ctx)

	o.report(run, Update{Stage: workflow.StageExtract, Indeterminate: true, Message: "Extracting " + archiveName(run.Plan.Release)})
	extracted, err := o.extractor.Extract(run.Plan.ArchivePath(), run.Plan.TargetDirectory)
	if err != nil {
		return o.fail(ctx, run, workflow.StageExtract, err)
	}
	log.Debug("archive extracted", log.RunID(run.ID), "files", len(extracted.Files), "bytes", extracted.Bytes)
	if err := run.machine.Dispatch(ctx, workflow.EventExtracted); err != nil {
		return o.fail(ctx, run, workflow.StageExtract, err)
	}
	o.report(run, Update{Stage: workflow.StageExtract, Percent: 100, Message: fmt.Sprintf("Extracted %d files", len(extracted.Files))})

	o.report(run, Update{Stage: workflow.StageIntegrate, Indeterminate: true, Message: "Integrating with the system"})
	record, steps, err := o.integrator.Integrate(ctx, integrate.Request{
		InstallDir:  run.Plan.TargetDirectory,
		Version:     run.Plan.Release.Version,
		AddToPath:   run.Plan.AddToPath,
		NoShortcuts: run.Plan.NoShortcuts,
		OnStep: func(s integrate.StepResult) {
			o.publish(events.IntegrationStepEvent{
				RunID:   run.ID,
				Step:    string(s.Step),
				Skipped: s.Skipped,
				Detail:  s.Detail,
				Error:   s.Err,
			})
			o.report(run, Update{Stage: workflow.StageIntegrate, Indeterminate: true, Message: stepMessage(s)})
		},
	})
	if dispatchErr := run.machine.Dispatch(ctx, workflow.EventIntegrated); dispatchErr != nil {
		return o.fail(ctx, run, workflow.StageIntegrate, dispatchErr)
	}

	result := Result{Outcome: OutcomeCompleted, Steps: steps, Record: record}
	if err != nil {
		result.Outcome = OutcomeCompletedWithWarnings
		result.Reason = err.Error()
		result.Err = err
	}
	o.report(run, Update{Stage: workflow.StageIntegrate, Percent: 100, Message: "Installation complete"})
	return result
}

// awaitDownload drains the download task. It reports false when the run
// ended during the download stage.
func (o *Orchestrator) awaitDownload(ctx context.Context, run *Run) (Result, bool) {
	task := run.task
	for ev := range task.Events() {
		switch ev.Kind {
		case download.EventProgress:
			o.report(run, Update{
				Stage:         workflow.StageDownload,
				Percent:       ev.Percent,
				Indeterminate: ev.Indeterminate,
				Message:       downloadMessage(ev),
			})
		case download.EventCompleted:
			run.machine.Update(func(job *workflow.Job) { job.Downloaded = ev.Path })
			if err := run.machine.Dispatch(ctx, workflow.EventDownloaded); err != nil {
				return o.fail(ctx, run, workflow.StageDownload, err), false
			}
			return Result{}, true
		case download.EventCancelled:
			if err := run.machine.Dispatch(ctx, workflow.EventCancel); err != nil {
				return o.fail(ctx, run, workflow.StageDownload, err), false
			}
			return Result{Outcome: OutcomeCancelled, Reason: "cancelled by user", Err: ev.Err}, false
		case download.EventFailed:
			return o.fail(ctx, run, workflow.StageDownload, ev.Err), false
		}
	}

	// The task always ends with a terminal event; a closed channel without
	// one means the downloader broke its contract.
	err := task.Err()
	if err == nil {
		err = errors.New("download ended without a result")
	}
	return o.fail(ctx, run, workflow.StageDownload, err), false
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, stage workflow.Stage, err error) Result {
	if err == nil {
		err = errors.New("unknown error")
	}
	if dispatchErr := run.machine.Dispatch(context.WithoutCancel(ctx), workflow.EventError); dispatchErr != nil {
		log.Warn("failed to record failure", log.RunID(run.ID), log.Err(dispatchErr))
	}
	o.publish(events.ErrorEvent{RunID: run.ID, Stage: string(stage), Error: err, Fatal: true})
	return Result{Outcome: OutcomeFailed, Stage: stage, Reason: err.Error(), Err: err}
}

func (o *Orchestrator) report(run *Run, u Update) {
	run.emit(u)
	if o.bus == nil || !o.bus.HasSubscribers(events.TypeProgress) {
		return
	}
	o.bus.Publish(events.ProgressEvent{
		RunID:         run.ID,
		Stage:         string(u.Stage),
		Message:       u.Message,
		Percent:       u.Percent,
		Indeterminate: u.Indeterminate,
	})
}

func (o *Orchestrator) publish(e events.Eventer) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}

// UninstallOptions tunes Uninstall.
type UninstallOptions struct {
	// Purge deletes the install directory once integration is reversed.
	// It only applies to directories that carry an install manifest.
	Purge  bool
	OnStep integrate.StepFunc
}

// UninstallResult reports what Uninstall did.
type UninstallResult struct {
	Steps  []integrate.StepResult
	Purged bool
}

// Uninstall reverses system integration for dir. It fails with ErrRunActive
// while an installation is running.
func (o *Orchestrator) Uninstall(ctx context.Context, dir string, opts UninstallOptions) (UninstallResult, error) {
	o.mu.Lock()
	if o.active != nil || o.busy {
		o.mu.Unlock()
		return UninstallResult{}, ErrRunActive
	}
	o.busy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	_, manifestErr := integrate.LoadRecord(dir)
	managed := manifestErr == nil

	id := o.newID()
	logger := log.With(log.RunID(id), "dir", dir)
	steps, err := o.integrator.Remove(ctx, dir, func(s integrate.StepResult) {
		o.publish(events.IntegrationStepEvent{
			RunID:   id,
			Step:    string(s.Step),
			Skipped: s.Skipped,
			Detail:  s.Detail,
			Error:   s.Err,
		})
		if opts.OnStep != nil {
			opts.OnStep(s)
		}
	})
	res := UninstallResult{Steps: steps}
	if err != nil {
		logger.Warn("uninstall incomplete", log.Err(err))
		return res, err
	}

	if opts.Purge {
		if !managed {
			logger.Warn("not purging unmanaged directory")
			return res, nil
		}
		if err := os.RemoveAll(dir); err != nil {
			return res, fmt.Errorf("%w: purge %s: %w", integrate.ErrIntegration, dir, err)
		}
		res.Purged = true
	}

	logger.Info("uninstalled", "purged", res.Purged)
	return res, nil
}
