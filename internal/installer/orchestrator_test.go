package installer

import (
	"context"
	crand "crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/valksor/go-julesetup/internal/archive"
	"github.com/valksor/go-julesetup/internal/download"
	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/release"
	"github.com/valksor/go-julesetup/internal/testutil"
	"github.com/valksor/go-julesetup/internal/workflow"
)

var toolchain = map[string]string{
	"jule.exe":     "binary",
	"jule_idle.py": "print('idle')",
	"std/":         "",
	"std/fmt.jule": "fn main() {}",
}

type harness struct {
	root      string
	target    string
	env       *integrate.MemoryEnvStore
	registry  integrate.UninstallRegistry
	shortcuts *integrate.MemoryShortcutMaker
	bus       *events.Bus
	rec       *testutil.Recorder
	orch      *Orchestrator
}

type harnessOpt func(*harness)

func withRegistry(r integrate.UninstallRegistry) harnessOpt {
	return func(h *harness) { h.registry = r }
}

func newHarness(t *testing.T, extractor Extractor, opts ...harnessOpt) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		root:      root,
		target:    filepath.Join(root, "jule"),
		env:       integrate.NewMemoryEnvStore("Path", ";", `C:\Windows`),
		registry:  integrate.NewMemoryUninstallRegistry(),
		shortcuts: integrate.NewMemoryShortcutMaker(filepath.Join(root, "Desktop")),
		bus:       events.NewBus(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.rec = testutil.NewRecorder(h.bus)

	if extractor == nil {
		extractor = archive.New()
	}
	ig := integrate.New(h.env, h.registry, h.shortcuts,
		integrate.WithGOOS("windows"),
		integrate.WithLookPath(func(name string) (string, error) {
			return `C:\Python\` + name + ".exe", nil
		}),
	)

	n := 0
	h.orch = New(download.New(), extractor, ig,
		WithEventBus(h.bus),
		WithIDGenerator(func() string {
			n++
			return "run-" + strconv.Itoa(n)
		}),
	)
	return h
}

func (h *harness) plan(url string) Plan {
	return Plan{
		TargetDirectory: h.target,
		AddToPath:       true,
		Release: release.ReleaseInfo{
			Version:   "jule0.2.0",
			AssetURL:  url + "/jule-windows-amd64.zip",
			AssetName: "jule-windows-amd64.zip",
		},
	}
}

// hangingServer sends part of a body and then stalls until the client goes
// away.
func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write(make([]byte, 64*1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

type failingRegistry struct {
	*integrate.MemoryUninstallRegistry
}

func (failingRegistry) Register(integrate.Registration) error {
	return errors.New("access denied")
}

type gatedExtractor struct {
	entered chan struct{}
	release chan struct{}
	inner   *archive.Installer
}

func (g *gatedExtractor) Extract(archivePath, target string) (*archive.Result, error) {
	close(g.entered)
	<-g.release
	return g.inner.Extract(archivePath, target)
}

func TestInstall_Completes(t *testing.T) {
	h := newHarness(t, nil)
	srv := testutil.AssetServer(t, testutil.ZipBytes(t, toolchain), false)

	var updates []Update
	res, err := h.orch.Install(context.Background(), h.plan(srv.URL), func(u Update) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("Outcome = %s (%s), want completed", res.Outcome, res.Reason)
	}
	if res.RunID != "run-1" || res.Version != "jule0.2.0" {
		t.Errorf("RunID/Version = %q/%q", res.RunID, res.Version)
	}
	for _, name := range []string{"jule.exe", "jule_idle.py", filepath.Join("std", "fmt.jule")} {
		if !testutil.Exists(filepath.Join(h.target, name)) {
			t.Errorf("%s not extracted", name)
		}
	}
	if testutil.Exists(filepath.Join(h.target, "jule-windows-amd64.zip")) {
		t.Error("archive was not removed")
	}

	path, _ := h.env.Get()
	if want := `C:\Windows;` + h.target; path != want {
		t.Errorf("Path = %q, want %q", path, want)
	}
	if _, ok, _ := h.registry.Lookup(integrate.ProductKey); !ok {
		t.Error("uninstall registration missing")
	}
	if got := len(h.shortcuts.Shortcuts()); got != 2 {
		t.Errorf("shortcuts = %d, want 2", got)
	}
	if res.Record == nil || res.Record.Registration.DisplayVersion != "jule0.2.0" {
		t.Errorf("Record = %+v", res.Record)
	}

	last := -1
	saw100 := false
	for _, u := range updates {
		if u.RunID != "run-1" {
			t.Errorf("update run id = %q", u.RunID)
		}
		if u.Stage != workflow.StageDownload || u.Indeterminate {
			continue
		}
		if u.Percent < last {
			t.Errorf("download percent went from %d to %d", last, u.Percent)
		}
		last = u.Percent
		saw100 = saw100 || u.Percent == 100
	}
	if !saw100 {
		t.Error("download never reported 100%")
	}

	var states []string
	for _, e := range h.rec.OfType(events.TypeStateChanged) {
		states = append(states, e.Data["to"].(string))
	}
	want := []string{"downloading", "extracting", "integrating", "completed"}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("state events mismatch (-want +got):\n%s", diff)
	}

	finished := h.rec.OfType(events.TypeRunFinished)
	if len(finished) != 1 || finished[0].Data["outcome"] != "completed" {
		t.Errorf("run finished events = %v", finished)
	}
	if got := len(h.rec.OfType(events.TypeIntegrationStep)); got != len(integrate.Steps) {
		t.Errorf("integration step events = %d, want %d", got, len(integrate.Steps))
	}
	if len(h.rec.OfType(events.TypeProgress)) == 0 {
		t.Error("no progress events reached the bus subscriber")
	}
	if h.orch.Active() != nil {
		t.Error("orchestrator still has an active run")
	}
}

func TestInstall_IntegrationWarnings(t *testing.T) {
	h := newHarness(t, nil, withRegistry(failingRegistry{integrate.NewMemoryUninstallRegistry()}))
	srv := testutil.AssetServer(t, testutil.ZipBytes(t, toolchain), false)

	res, err := h.orch.Install(context.Background(), h.plan(srv.URL), nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if res.Outcome != OutcomeCompletedWithWarnings {
		t.Fatalf("Outcome = %s, want completed_with_warnings", res.Outcome)
	}
	if res.Warnings() != 1 {
		t.Errorf("Warnings() = %d, want 1", res.Warnings())
	}
	if !errors.Is(res.Err, integrate.ErrIntegration) {
		t.Errorf("Err = %v, want ErrIntegration", res.Err)
	}

	// The other steps still ran.
	path, _ := h.env.Get()
	if !integrate.ContainsSegment(path, h.target, ";") {
		t.Errorf("Path = %q, want install dir appended", path)
	}
	if len(h.shortcuts.Shortcuts()) == 0 {
		t.Error("shortcuts were not created")
	}
}

func TestInstall_DownloadFailure(t *testing.T) {
	h := newHarness(t, nil)
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	res, err := h.orch.Install(context.Background(), h.plan(srv.URL), nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if res.Outcome != OutcomeFailed || res.Stage != workflow.StageDownload {
		t.Fatalf("result = %s at %s, want failed at download", res.Outcome, res.Stage)
	}
	if !errors.Is(res.Err, download.ErrNetwork) {
		t.Errorf("Err = %v, want download.ErrNetwork", res.Err)
	}
	if res.Reason == "" {
		t.Error("Reason is empty")
	}

	errs := h.rec.OfType(events.TypeError)
	if len(errs) != 1 || errs[0].Data["stage"] != "download" || errs[0].Data["fatal"] != true {
		t.Errorf("error events = %v", errs)
	}
	if h.env.Writes() != 0 {
		t.Error("path was modified after a failed download")
	}
}

func TestInstall_ExtractionFailure(t *testing.T) {
	h := newHarness(t, nil)
	srv := testutil.AssetServer(t, []byte("this is not a zip archive"), false)

	res, err := h.orch.Install(context.Background(), h.plan(srv.URL), nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if res.Outcome != OutcomeFailed || res.Stage != workflow.StageExtract {
		t.Fatalf("result = %s at %s, want failed at extract", res.Outcome, res.Stage)
	}
	if !errors.Is(res.Err, archive.ErrExtraction) {
		t.Errorf("Err = %v, want archive.ErrExtraction", res.Err)
	}
	if _, ok, _ := h.registry.Lookup(integrate.ProductKey); ok {
		t.Error("registration written after failed extraction")
	}
}

func TestStart_InvalidPlan(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.orch.Start(context.Background(), Plan{TargetDirectory: "relative/dir"})
	if !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("Start() error = %v, want ErrInvalidPlan", err)
	}
	if h.orch.Active() != nil {
		t.Error("invalid plan left an active run")
	}
}

func TestStart_SingleActiveRun(t *testing.T) {
	h := newHarness(t, nil)
	srv := hangingServer(t)

	run, err := h.orch.Start(context.Background(), h.plan(srv.URL))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := h.orch.Start(context.Background(), h.plan(srv.URL)); !errors.Is(err, ErrRunActive) {
		t.Errorf("second Start() error = %v, want ErrRunActive", err)
	}
	if _, err := h.orch.Uninstall(context.Background(), h.target, UninstallOptions{}); !errors.Is(err, ErrRunActive) {
		t.Errorf("Uninstall() during run error = %v, want ErrRunActive", err)
	}

	run.Cancel()
	if res := run.Wait(); res.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %s, want cancelled", res.Outcome)
	}

	// A finished run frees the slot for a fresh attempt.
	ok := testutil.AssetServer(t, testutil.ZipBytes(t, toolchain), false)
	res, err := h.orch.Install(context.Background(), h.plan(ok.URL), nil)
	if err != nil {
		t.Fatalf("Install() after cancel error = %v", err)
	}
	if res.Outcome != OutcomeCompleted || res.RunID != "run-2" {
		t.Errorf("retry = %s %s, want completed run-2", res.Outcome, res.RunID)
	}
}

func TestCancel_DuringDownload(t *testing.T) {
	h := newHarness(t, nil)
	srv := hangingServer(t)

	run, err := h.orch.Start(context.Background(), h.plan(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-run.Updates():
		if u.Stage != workflow.StageDownload {
			t.Fatalf("first update stage = %s", u.Stage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no progress before timeout")
	}
	run.Cancel()

	res, err := run.WaitContext(testContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Errorf("Outcome = %s, want cancelled", res.Outcome)
	}
	if !errors.Is(res.Err, download.ErrCancelled) {
		t.Errorf("Err = %v, want ErrCancelled", res.Err)
	}
	if run.State() != workflow.StateCancelled {
		t.Errorf("State() = %s, want cancelled", run.State())
	}
	finished := h.rec.OfType(events.TypeRunFinished)
	if len(finished) != 1 || finished[0].Data["outcome"] != "cancelled" {
		t.Errorf("run finished events = %v", finished)
	}
}

func TestCancel_ParentContext(t *testing.T) {
	h := newHarness(t, nil)
	srv := hangingServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := h.orch.Start(ctx, h.plan(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	<-run.Updates()
	cancel()

	res, err := run.WaitContext(testContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Errorf("Outcome = %s, want cancelled", res.Outcome)
	}
}

func TestCancel_IgnoredAfterDownload(t *testing.T) {
	gate := &gatedExtractor{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		inner:   archive.New(),
	}
	h := newHarness(t, gate)
	srv := testutil.AssetServer(t, testutil.ZipBytes(t, toolchain), false)

	run, err := h.orch.Start(context.Background(), h.plan(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("extraction never started")
	}
	if run.State() != workflow.StateExtracting {
		t.Fatalf("State() = %s, want extracting", run.State())
	}
	run.Cancel()
	close(gate.release)

	res, err := run.WaitContext(testContext(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %s, want completed", res.Outcome)
	}
}

func TestUninstall_ReversesInstall(t *testing.T) {
	h := newHarness(t, nil)
	srv := testutil.AssetServer(t, testutil.ZipBytes(t, toolchain), false)

	res, err := h.orch.Install(context.Background(), h.plan(srv.URL), nil)
	if err != nil || res.Outcome != OutcomeCompleted {
		t.Fatalf("Install() = %s, %v", res.Outcome, err)
	}

	var steps []integrate.Step
	out, err := h.orch.Uninstall(context.Background(), h.target, UninstallOptions{
		Purge:  true,
		OnStep: func(s integrate.StepResult) { steps = append(steps, s.Step) },
	})
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}

	if diff := cmp.Diff(integrate.Steps, steps); diff != "" {
		t.Errorf("removal steps mismatch (-want +got):\n%s", diff)
	}
	if !out.Purged {
		t.Error("Purged = false")
	}
	if _, err := os.Stat(h.target); !os.IsNotExist(err) {
		t.Errorf("install dir still present: %v", err)
	}
	if path, _ := h.env.Get(); path != `C:\Windows` {
		t.Errorf("Path = %q, want restored", path)
	}
	if _, ok, _ := h.registry.Lookup(integrate.ProductKey); ok {
		t.Error("registration still present")
	}
	if len(h.shortcuts.Shortcuts()) != 0 {
		t.Error("shortcuts still present")
	}
}

func TestUninstall_DoesNotPurgeUnmanagedDirectory(t *testing.T) {
	h := newHarness(t, nil)
	dir := filepath.Join(h.root, "elsewhere")
	testutil.WriteFile(t, dir, "keep.txt", "data")

	out, err := h.orch.Uninstall(context.Background(), dir, UninstallOptions{Purge: true})
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if out.Purged {
		t.Error("unmanaged directory was purged")
	}
	if !testutil.Exists(filepath.Join(dir, "keep.txt")) {
		t.Error("file removed from unmanaged directory")
	}
}

func TestStart_SlowConsumerKeepsStageUpdates(t *testing.T) {
	h := newHarness(t, nil)

	// Incompressible content yields one progress update per percent, far
	// more than the update buffer holds.
	content := make([]byte, 4<<20)
	if _, err := crand.Read(content); err != nil {
		t.Fatal(err)
	}
	payload := testutil.ZipBytes(t, map[string]string{
		"jule.exe":     string(content),
		"jule_idle.py": "print('idle')",
	})
	srv := testutil.AssetServer(t, payload, false)

	run, err := h.orch.Start(context.Background(), h.plan(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-run.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("run did not finish while nobody read updates")
	}

	var got []Update
	for u := range run.Updates() {
		got = append(got, u)
	}
	if res := run.Wait(); res.Outcome != OutcomeCompleted {
		t.Fatalf("Outcome = %s (%v)", res.Outcome, res.Err)
	}

	perStage := make(map[workflow.Stage]int)
	lastPercent := -1
	for _, u := range got {
		perStage[u.Stage]++
		if u.RunID != run.ID {
			t.Errorf("update RunID = %q, want %q", u.RunID, run.ID)
		}
		if u.Stage == workflow.StageDownload {
			if u.Percent < lastPercent {
				t.Errorf("download percent went from %d to %d", lastPercent, u.Percent)
			}
			lastPercent = u.Percent
		}
	}
	if lastPercent != 100 {
		t.Errorf("last download percent = %d, want 100", lastPercent)
	}
	if perStage[workflow.StageExtract] == 0 || perStage[workflow.StageIntegrate] < len(integrate.Steps) {
		t.Errorf("updates per stage = %v", perStage)
	}
	if len(got) == 0 || got[len(got)-1].Message != "Installation complete" {
		t.Errorf("final update missing, got %d updates", len(got))
	}
}

func TestCoalesces(t *testing.T) {
	dl := Update{Stage: workflow.StageDownload, Percent: 10}
	tests := []struct {
		name string
		prev Update
		next Update
		want bool
	}{
		{name: "download progress", prev: dl, next: Update{Stage: workflow.StageDownload, Percent: 11}, want: true},
		{name: "stage change", prev: dl, next: Update{Stage: workflow.StageExtract, Indeterminate: true}, want: false},
		{name: "integration steps", prev: Update{Stage: workflow.StageIntegrate, Message: "path done"}, next: Update{Stage: workflow.StageIntegrate, Message: "record done"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coalesces(tt.prev, tt.next); got != tt.want {
				t.Errorf("coalesces() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
