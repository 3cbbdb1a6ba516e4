// Package integrate performs the operating system side effects of an
// installation and reverses them on uninstall.
package integrate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/valksor/go-julesetup/internal/log"
)

// Step names an integration step.
type Step string

const (
	StepPath         Step = "path"
	StepRegistration Step = "uninstall_registration"
	StepShortcuts    Step = "shortcuts"
	StepRecord       Step = "record"
)

// Steps lists install-time steps in execution order.
var Steps = []Step{StepPath, StepRegistration, StepShortcuts, StepRecord}

// StepResult is the outcome of one step.
type StepResult struct {
	Step    Step
	Skipped bool
	Detail  string
	Err     error
}

// StepFunc observes step results as they complete.
type StepFunc func(StepResult)

// Request describes what to integrate.
type Request struct {
	InstallDir string
	Version    string
	AddToPath  bool
	// NoShortcuts skips launcher creation. Shortcuts recorded by an earlier
	// install are kept in the record.
	NoShortcuts bool
	OnStep      StepFunc
}

// Integrator runs the integration steps against pluggable backends.
type Integrator struct {
	env          EnvStore
	registry     UninstallRegistry
	shortcuts    ShortcutMaker
	lookPath     LookPathFunc
	goos         string
	uninstallCmd string
	now          func() time.Time
}

// Option configures an Integrator.
type Option func(*Integrator)

// WithLookPath sets the executable resolver used to find a Python interpreter.
func WithLookPath(fn LookPathFunc) Option {
	return func(i *Integrator) { i.lookPath = fn }
}

// WithGOOS overrides the target operating system for binary naming.
func WithGOOS(goos string) Option {
	return func(i *Integrator) {
		if goos != "" {
			i.goos = goos
		}
	}
}

// WithUninstallCommand sets the command recorded as UninstallString. The
// install directory is appended as the final argument.
func WithUninstallCommand(cmd string) Option {
	return func(i *Integrator) { i.uninstallCmd = cmd }
}

// WithClock sets the time source for InstalledAt.
func WithClock(now func() time.Time) Option {
	return func(i *Integrator) { i.now = now }
}

// New creates an integrator over the given backends.
func New(env EnvStore, registry UninstallRegistry, shortcuts ShortcutMaker, opts ...Option) *Integrator {
	i := &Integrator{
		env:       env,
		registry:  registry,
		shortcuts: shortcuts,
		lookPath:  exec.LookPath,
		goos:      runtime.GOOS,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Integrate runs every install-time step. A failing step never stops the
// others; failures are aggregated into the returned error, which wraps
// ErrIntegration. The record reflects what was actually applied.
func (i *Integrator) Integrate(ctx context.Context, req Request) (*Record, []StepResult, error) {
	prev, err := LoadRecord(req.InstallDir)
	if err != nil {
		prev = nil
	}

	rec := &Record{InstalledAt: i.now().UTC()}
	var (
		results []StepResult
		errs    *multierror.Error
	)

	report := func(res StepResult) {
		if res.Err != nil {
			res.Err = fmt.Errorf("%w: %s: %w", ErrIntegration, res.Step, res.Err)
			errs = multierror.Append(errs, res.Err)
			log.WarnContext(ctx, "integration step failed", "step", string(res.Step), log.Err(res.Err))
		} else {
			log.DebugContext(ctx, "integration step done", "step", string(res.Step), "skipped", res.Skipped, "detail", res.Detail)
		}
		results = append(results, res)
		if req.OnStep != nil {
			req.OnStep(res)
		}
	}

	report(i.updatePath(req, prev, rec))
	report(i.register(req, rec))
	report(i.createShortcuts(req, prev, rec))
	report(i.persist(req, rec))

	return rec, results, errs.ErrorOrNil()
}

func (i *Integrator) updatePath(req Request, prev *Record, rec *Record) StepResult {
	res := StepResult{Step: StepPath}

	// A path change from an earlier install stays owned by this installation.
	var carried *PathChange
	if prev != nil && prev.Path != nil && prev.Path.Segment == req.InstallDir {
		carried = prev.Path
	}

	if !req.AddToPath {
		rec.Path = carried
		res.Skipped = true
		res.Detail = "not requested"
		return res
	}

	current, err := i.env.Get()
	if err != nil {
		rec.Path = carried
		res.Err = fmt.Errorf("read %s: %w", i.env.Variable(), err)
		return res
	}

	next, changed := AppendSegment(current, req.InstallDir, i.env.Separator())
	if !changed {
		if carried != nil && carried.Appended {
			rec.Path = carried
		} else {
			rec.Path = &PathChange{
				Variable: i.env.Variable(),
				Segment:  req.InstallDir,
				Prior:    current,
				Written:  current,
			}
		}
		res.Detail = "already present"
		return res
	}

	if err := i.env.Set(next); err != nil {
		rec.Path = carried
		res.Err = fmt.Errorf("write %s: %w", i.env.Variable(), err)
		return res
	}

	rec.Path = &PathChange{
		Variable: i.env.Variable(),
		Segment:  req.InstallDir,
		Prior:    current,
		Written:  next,
		Appended: true,
	}
	res.Detail = "appended " + req.InstallDir
	return res
}

func (i *Integrator) register(req Request, rec *Record) StepResult {
	res := StepResult{Step: StepRegistration}

	reg := Registration{
		Key:             ProductKey,
		DisplayName:     ProductName,
		DisplayVersion:  req.Version,
		Publisher:       Publisher,
		InstallLocation: req.InstallDir,
		DisplayIcon:     iconFor(req.InstallDir, i.goos),
	}
	if i.uninstallCmd != "" {
		reg.UninstallString = fmt.Sprintf(`%s "%s"`, i.uninstallCmd, req.InstallDir)
	}

	// The manifest keeps the intended record even if the write fails, so a
	// later uninstall still knows which key to clean up.
	rec.Registration = reg

	if err := i.registry.Register(reg); err != nil {
		res.Err = err
		return res
	}
	res.Detail = ProductKey
	return res
}

func (i *Integrator) createShortcuts(req Request, prev *Record, rec *Record) StepResult {
	res := StepResult{Step: StepShortcuts}

	if req.NoShortcuts {
		if prev != nil {
			rec.Shortcuts = append(rec.Shortcuts, prev.Shortcuts...)
		}
		res.Skipped = true
		res.Detail = "not requested"
		return res
	}

	launchers, skipped := Launchers(req.InstallDir, i.goos, i.lookPath)
	for _, s := range skipped {
		log.Info("shortcut skipped", "name", s.Name, "reason", s.Reason)
	}

	var errs *multierror.Error
	seen := make(map[string]bool)
	for _, l := range launchers {
		path, err := i.shortcuts.Create(l)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", l.Name, err))
			continue
		}
		if !seen[path] {
			seen[path] = true
			rec.Shortcuts = append(rec.Shortcuts, path)
		}
	}

	// Shortcuts from an earlier install that were not recreated still belong
	// to this installation.
	if prev != nil {
		for _, p := range prev.Shortcuts {
			if !seen[p] && fileExists(p) {
				seen[p] = true
				rec.Shortcuts = append(rec.Shortcuts, p)
			}
		}
	}

	switch {
	case errs != nil:
		res.Err = errs.ErrorOrNil()
	case len(launchers) == 0:
		res.Skipped = true
		res.Detail = "no launcher targets found"
	default:
		res.Detail = fmt.Sprintf("%d created, %d skipped", len(launchers), len(skipped))
	}
	return res
}

func (i *Integrator) persist(req Request, rec *Record) StepResult {
	res := StepResult{Step: StepRecord}
	if err := SaveRecord(req.InstallDir, rec); err != nil {
		res.Err = err
		return res
	}
	res.Detail = ManifestPath(req.InstallDir)
	return res
}

// Remove reverses an installation in dir using its manifest. Without a
// manifest it falls back to the default product key, shortcut names and a
// plain segment removal. Already absent artifacts are not errors.
func (i *Integrator) Remove(ctx context.Context, dir string, onStep StepFunc) ([]StepResult, error) {
	rec, err := LoadRecord(dir)
	if err != nil {
		if !errors.Is(err, ErrNotInstalled) {
			log.WarnContext(ctx, "unreadable installation record, using defaults", log.Err(err))
		}
		rec = i.fallbackRecord(dir)
	}

	var (
		results []StepResult
		errs    *multierror.Error
	)
	report := func(res StepResult) {
		if res.Err != nil {
			res.Err = fmt.Errorf("%w: %s: %w", ErrIntegration, res.Step, res.Err)
			errs = multierror.Append(errs, res.Err)
			log.WarnContext(ctx, "removal step failed", "step", string(res.Step), log.Err(res.Err))
		}
		results = append(results, res)
		if onStep != nil {
			onStep(res)
		}
	}

	report(i.restorePath(rec.Path))
	report(i.unregister(rec.Registration.Key))
	report(i.removeShortcuts(rec.Shortcuts))

	recordRes := StepResult{Step: StepRecord, Detail: ManifestPath(dir)}
	if errs == nil {
		recordRes.Err = RemoveRecord(dir)
	} else {
		// Keep the manifest so a retry knows what is left.
		recordRes.Skipped = true
		recordRes.Detail = "kept for retry"
	}
	report(recordRes)

	return results, errs.ErrorOrNil()
}

func (i *Integrator) fallbackRecord(dir string) *Record {
	rec := &Record{
		Registration: Registration{Key: ProductKey},
		Path:         &PathChange{Variable: i.env.Variable(), Segment: dir, Appended: true},
	}
	for _, name := range []string{InterpreterShortcut, IDEShortcut} {
		rec.Shortcuts = append(rec.Shortcuts, i.shortcuts.PathFor(name))
	}
	return rec
}

func (i *Integrator) restorePath(change *PathChange) StepResult {
	res := StepResult{Step: StepPath}
	if change == nil || !change.Appended {
		res.Skipped = true
		res.Detail = "path was not modified"
		return res
	}

	current, err := i.env.Get()
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", i.env.Variable(), err)
		return res
	}

	var next string
	switch {
	case change.Written != "" && current == change.Written:
		next = change.Prior
	default:
		var removed bool
		next, removed = RemoveSegment(current, change.Segment, i.env.Separator())
		if !removed {
			res.Detail = "segment already absent"
			return res
		}
	}

	if next == current {
		res.Detail = "unchanged"
		return res
	}
	if err := i.env.Set(next); err != nil {
		res.Err = fmt.Errorf("write %s: %w", i.env.Variable(), err)
		return res
	}
	res.Detail = "removed " + change.Segment
	return res
}

func (i *Integrator) unregister(key string) StepResult {
	res := StepResult{Step: StepRegistration}
	if key == "" {
		key = ProductKey
	}
	if err := i.registry.Unregister(key); err != nil {
		res.Err = err
		return res
	}
	res.Detail = key
	return res
}

func (i *Integrator) removeShortcuts(paths []string) StepResult {
	res := StepResult{Step: StepShortcuts}
	if len(paths) == 0 {
		res.Skipped = true
		res.Detail = "none recorded"
		return res
	}

	var errs *multierror.Error
	for _, p := range paths {
		if err := i.shortcuts.Remove(p); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	res.Err = errs.ErrorOrNil()
	if res.Err == nil {
		res.Detail = fmt.Sprintf("%d removed", len(paths))
	}
	return res
}
