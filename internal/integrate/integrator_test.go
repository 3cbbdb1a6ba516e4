package integrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/valksor/go-julesetup/internal/testutil"
)

type fixture struct {
	dir       string
	env       *MemoryEnvStore
	registry  *MemoryUninstallRegistry
	shortcuts *MemoryShortcutMaker
	ig        *Integrator
}

func lookPython(name string) (string, error) {
	if name == "python" || name == "python3" {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func newFixture(t *testing.T, path string, opts ...Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "jule.exe", "bin")
	testutil.WriteFile(t, dir, "jule_idle.py", "print()")

	f := &fixture{
		dir:       dir,
		env:       NewMemoryEnvStore("Path", ";", path),
		registry:  NewMemoryUninstallRegistry(),
		shortcuts: NewMemoryShortcutMaker(filepath.Join(dir, "Desktop")),
	}
	base := []Option{
		WithGOOS("windows"),
		WithLookPath(lookPython),
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	f.ig = New(f.env, f.registry, f.shortcuts, append(base, opts...)...)
	return f
}

func stepMap(results []StepResult) map[Step]StepResult {
	m := make(map[Step]StepResult, len(results))
	for _, r := range results {
		m[r.Step] = r
	}
	return m
}

func TestIntegrate_AllSteps(t *testing.T) {
	f := newFixture(t, `C:\A;C:\B`, WithUninstallCommand(`"C:\julesetup.exe" uninstall --dir`))

	var observed []Step
	rec, results, err := f.ig.Integrate(context.Background(), Request{
		InstallDir: f.dir,
		Version:    "jule0.2.0",
		AddToPath:  true,
		OnStep:     func(r StepResult) { observed = append(observed, r.Step) },
	})
	if err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}

	if diff := cmp.Diff(Steps, observed); diff != "" {
		t.Errorf("step order mismatch (-want +got):\n%s", diff)
	}
	for _, r := range results {
		if r.Err != nil || r.Skipped {
			t.Errorf("step %s: skipped=%v err=%v", r.Step, r.Skipped, r.Err)
		}
	}

	wantPath := `C:\A;C:\B;` + f.dir
	if got, _ := f.env.Get(); got != wantPath {
		t.Errorf("path = %q, want %q", got, wantPath)
	}

	reg, ok, _ := f.registry.Lookup(ProductKey)
	if !ok {
		t.Fatal("registration missing")
	}
	wantReg := Registration{
		Key:             ProductKey,
		DisplayName:     ProductName,
		DisplayVersion:  "jule0.2.0",
		Publisher:       Publisher,
		InstallLocation: f.dir,
		DisplayIcon:     filepath.Join(f.dir, "jule.exe"),
		UninstallString: `"C:\julesetup.exe" uninstall --dir "` + f.dir + `"`,
	}
	if diff := cmp.Diff(wantReg, reg); diff != "" {
		t.Errorf("registration mismatch (-want +got):\n%s", diff)
	}

	shortcuts := f.shortcuts.Shortcuts()
	if len(shortcuts) != 2 {
		t.Fatalf("created %d shortcuts, want 2", len(shortcuts))
	}
	idle := shortcuts[f.shortcuts.PathFor(IDEShortcut)]
	if idle.Target != "/usr/bin/python" || idle.Args != `"`+filepath.Join(f.dir, "jule_idle.py")+`"` {
		t.Errorf("IDE shortcut = %+v", idle)
	}

	loaded, err := LoadRecord(f.dir)
	if err != nil {
		t.Fatalf("LoadRecord() error = %v", err)
	}
	if diff := cmp.Diff(rec, loaded); diff != "" {
		t.Errorf("persisted record mismatch (-want +got):\n%s", diff)
	}
	if rec.Path == nil || rec.Path.Prior != `C:\A;C:\B` || rec.Path.Written != wantPath || !rec.Path.Appended {
		t.Errorf("path change = %+v", rec.Path)
	}
}

func TestIntegrate_Idempotent(t *testing.T) {
	f := newFixture(t, `C:\A`)
	req := Request{InstallDir: f.dir, Version: "v1", AddToPath: true}

	first, _, err := f.ig.Integrate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := f.ig.Integrate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	path, _ := f.env.Get()
	if path != `C:\A;`+f.dir {
		t.Errorf("path after two runs = %q", path)
	}
	if f.env.Writes() != 1 {
		t.Errorf("path written %d times, want 1", f.env.Writes())
	}
	if f.registry.Len() != 1 {
		t.Errorf("registry has %d records, want 1", f.registry.Len())
	}
	if len(f.shortcuts.Shortcuts()) != 2 {
		t.Errorf("shortcuts = %d, want 2", len(f.shortcuts.Shortcuts()))
	}

	// The second run keeps ownership of the segment appended by the first.
	if diff := cmp.Diff(first.Path, second.Path); diff != "" {
		t.Errorf("path change not carried over (-first +second):\n%s", diff)
	}
}

func TestIntegrate_PathAlreadyPresent(t *testing.T) {
	f := newFixture(t, "")
	if err := f.env.Set(`C:\A;` + f.dir); err != nil {
		t.Fatal(err)
	}

	rec, results, err := f.ig.Integrate(context.Background(), Request{InstallDir: f.dir, AddToPath: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := stepMap(results)[StepPath].Detail; got != "already present" {
		t.Errorf("path detail = %q", got)
	}
	if rec.Path == nil || rec.Path.Appended {
		t.Errorf("path change = %+v, want recorded but not appended", rec.Path)
	}

	if _, err := f.ig.Remove(context.Background(), f.dir, nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.env.Get(); got != `C:\A;`+f.dir {
		t.Errorf("uninstall touched a segment it did not add: %q", got)
	}
}

func TestIntegrate_PathSkipped(t *testing.T) {
	f := newFixture(t, `C:\A`)

	rec, results, err := f.ig.Integrate(context.Background(), Request{InstallDir: f.dir})
	if err != nil {
		t.Fatal(err)
	}
	if !stepMap(results)[StepPath].Skipped {
		t.Error("path step should be skipped")
	}
	if rec.Path != nil {
		t.Errorf("path change = %+v, want nil", rec.Path)
	}
	if f.env.Writes() != 0 {
		t.Error("path written although not requested")
	}
}

func TestIntegrate_ShortcutsSkippedKeepPrevious(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	first, _, err := f.ig.Integrate(ctx, Request{InstallDir: f.dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Shortcuts) != 2 {
		t.Fatalf("first install shortcuts = %v", first.Shortcuts)
	}

	rec, results, err := f.ig.Integrate(ctx, Request{InstallDir: f.dir, NoShortcuts: true})
	if err != nil {
		t.Fatal(err)
	}
	if res := stepMap(results)[StepShortcuts]; !res.Skipped || res.Detail != "not requested" {
		t.Errorf("shortcut step = %+v", res)
	}
	if diff := cmp.Diff(first.Shortcuts, rec.Shortcuts); diff != "" {
		t.Errorf("recorded shortcuts changed (-want +got):\n%s", diff)
	}
}

type failingRegistry struct{ *MemoryUninstallRegistry }

func (failingRegistry) Register(Registration) error { return errors.New("access denied") }

func TestIntegrate_FailingStepDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, `C:\A`)
	ig := New(f.env, failingRegistry{NewMemoryUninstallRegistry()}, f.shortcuts, WithGOOS("windows"), WithLookPath(lookPython))

	rec, results, err := ig.Integrate(context.Background(), Request{InstallDir: f.dir, Version: "v1", AddToPath: true})
	if !errors.Is(err, ErrIntegration) {
		t.Fatalf("Integrate() error = %v, want ErrIntegration", err)
	}

	steps := stepMap(results)
	if steps[StepRegistration].Err == nil {
		t.Error("registration step should report its error")
	}
	for _, s := range []Step{StepPath, StepShortcuts, StepRecord} {
		if steps[s].Err != nil {
			t.Errorf("step %s failed: %v", s, steps[s].Err)
		}
	}
	if len(results) != len(Steps) {
		t.Errorf("got %d results, want %d", len(results), len(Steps))
	}
	if rec.Registration.Key != ProductKey {
		t.Error("record should keep the intended registration")
	}
	if !testutil.Exists(ManifestPath(f.dir)) {
		t.Error("manifest should be written despite the failed step")
	}
}

func TestIntegrate_MissingLaunchersSkipped(t *testing.T) {
	f := newFixture(t, "")
	_ = os.Remove(filepath.Join(f.dir, "jule.exe"))
	ig := New(f.env, f.registry, f.shortcuts, WithGOOS("windows"), WithLookPath(func(string) (string, error) {
		return "", errors.New("not found")
	}))

	rec, results, err := ig.Integrate(context.Background(), Request{InstallDir: f.dir})
	if err != nil {
		t.Fatal(err)
	}
	if !stepMap(results)[StepShortcuts].Skipped {
		t.Error("shortcuts step should be skipped with no launchers")
	}
	if len(rec.Shortcuts) != 0 {
		t.Errorf("shortcuts recorded: %v", rec.Shortcuts)
	}
}

func TestRemove_AfterInstallRestoresEverything(t *testing.T) {
	f := newFixture(t, `C:\A;C:\B`)
	ctx := context.Background()

	if _, _, err := f.ig.Integrate(ctx, Request{InstallDir: f.dir, Version: "v1", AddToPath: true}); err != nil {
		t.Fatal(err)
	}

	results, err := f.ig.Remove(ctx, f.dir, nil)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(results) != 4 {
		t.Errorf("got %d results, want 4", len(results))
	}

	if got, _ := f.env.Get(); got != `C:\A;C:\B` {
		t.Errorf("path = %q, want prior value", got)
	}
	if f.registry.Len() != 0 {
		t.Error("registration not removed")
	}
	if len(f.shortcuts.Shortcuts()) != 0 {
		t.Error("shortcuts not removed")
	}
	if testutil.Exists(ManifestPath(f.dir)) {
		t.Error("manifest not removed")
	}

	// Everything is already gone; a second removal is a no-op.
	if _, err := f.ig.Remove(ctx, f.dir, nil); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestRemove_PathChangedSinceInstall(t *testing.T) {
	f := newFixture(t, `C:\A`)
	ctx := context.Background()

	if _, _, err := f.ig.Integrate(ctx, Request{InstallDir: f.dir, AddToPath: true}); err != nil {
		t.Fatal(err)
	}
	cur, _ := f.env.Get()
	_ = f.env.Set(cur + `;C:\Later`)

	if _, err := f.ig.Remove(ctx, f.dir, nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.env.Get(); got != `C:\A;C:\Later` {
		t.Errorf("path = %q, want only the install segment removed", got)
	}
}

func TestRemove_WithoutManifest(t *testing.T) {
	f := newFixture(t, "")
	_ = f.env.Set(`C:\A;` + f.dir)
	_ = f.registry.Register(Registration{Key: ProductKey})
	_, _ = f.shortcuts.Create(Launcher{Name: InterpreterShortcut})

	if _, err := f.ig.Remove(context.Background(), f.dir, nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.env.Get(); got != `C:\A` {
		t.Errorf("path = %q", got)
	}
	if f.registry.Len() != 0 || len(f.shortcuts.Shortcuts()) != 0 {
		t.Error("fallback removal left artifacts behind")
	}
}

func TestLaunchers(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "jule", "bin")

	launchers, skipped := Launchers(dir, "linux", lookPython)
	if len(launchers) != 1 || launchers[0].Name != InterpreterShortcut {
		t.Errorf("launchers = %+v", launchers)
	}
	if len(skipped) != 1 || skipped[0].Name != IDEShortcut {
		t.Errorf("skipped = %+v", skipped)
	}

	testutil.WriteFile(t, dir, "jule_idle.py", "")
	testutil.WriteFile(t, dir, "logo.png", "")
	launchers, _ = Launchers(dir, "linux", lookPython)
	if len(launchers) != 2 {
		t.Fatalf("launchers = %+v", launchers)
	}
	if launchers[1].Target != "/usr/bin/python3" || launchers[1].Icon != filepath.Join(dir, "logo.png") {
		t.Errorf("IDE launcher = %+v", launchers[1])
	}
}
