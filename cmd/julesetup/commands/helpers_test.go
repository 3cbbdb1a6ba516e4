package commands

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/config"
	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/testutil"
)

// TestContext provides test context for command tests.
type TestContext struct {
	T         *testing.T
	StdoutBuf *bytes.Buffer
	StderrBuf *bytes.Buffer
	RootCmd   *cobra.Command
	Config    *config.Config
	TmpDir    string

	Env       *integrate.MemoryEnvStore
	Registry  *integrate.MemoryUninstallRegistry
	Shortcuts *integrate.MemoryShortcutMaker
}

// NewTestContext creates a test context with in-memory system integration
// and default configuration. Command flags are reset.
func NewTestContext(t *testing.T, cmds ...*cobra.Command) *TestContext {
	t.Helper()

	tmpDir := t.TempDir()
	tc := &TestContext{
		T:         t,
		StdoutBuf: &bytes.Buffer{},
		StderrBuf: &bytes.Buffer{},
		TmpDir:    tmpDir,
		Config:    config.NewDefault(),
		Env:       integrate.NewMemoryEnvStore("Path", ";", `C:\Windows`),
		Registry:  integrate.NewMemoryUninstallRegistry(),
		Shortcuts: integrate.NewMemoryShortcutMaker(filepath.Join(tmpDir, "Desktop")),
	}
	tc.Config.Feed.Platform = "windows"

	t.Setenv("JULESETUP_GITHUB_TOKEN", "test-token")
	display.SetColorsEnabled(false)
	resetFlags()

	prevCfg, prevIntegrator := cfg, newIntegrator
	cfg = tc.Config
	newIntegrator = func() (installer.Integrator, error) {
		return integrate.New(tc.Env, tc.Registry, tc.Shortcuts,
			integrate.WithGOOS("windows"),
			integrate.WithLookPath(func(name string) (string, error) { return `C:\Python\` + name + ".exe", nil }),
		), nil
	}
	t.Cleanup(func() {
		cfg, newIntegrator = prevCfg, prevIntegrator
		display.SetColorsEnabled(true)
		resetFlags()
	})

	tc.RootCmd = createTestRootCommand(tc.StdoutBuf, tc.StderrBuf)
	for _, c := range cmds {
		tc.RootCmd.AddCommand(c)
	}
	return tc
}

// Execute runs the test root with args and optional stdin.
func (tc *TestContext) Execute(stdin string, args ...string) error {
	tc.T.Helper()
	tc.RootCmd.SetIn(strings.NewReader(stdin))
	tc.RootCmd.SetArgs(args)
	return tc.RootCmd.ExecuteContext(context.Background())
}

// Stdout returns captured standard output.
func (tc *TestContext) Stdout() string {
	return tc.StdoutBuf.String()
}

// UseFeed points the configuration at a test feed.
func (tc *TestContext) UseFeed(releases []testutil.FeedRelease) {
	tc.T.Helper()
	srv := testutil.FeedServer(tc.T, tc.Config.Feed.Owner, tc.Config.Feed.Repo, releases)
	tc.Config.Feed.GitHubURL = srv.URL
}

func createTestRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "julesetup",
		Short:         "Test command",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddGroup(&cobra.Group{ID: "install", Title: "Installation Commands:"}, &cobra.Group{ID: "info", Title: "Information Commands:"})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func resetFlags() {
	quiet = false
	verbose = false

	installDir, installPlatform = "", ""
	installNoPath, installNoShortcuts, installPreReleases, installYes, installKeepArchive = false, false, false, false, false

	uninstallDir = ""
	uninstallPurge, uninstallYes = false, false

	releasesPlatform = ""
	releasesPreReleases, releasesNotes = false, false

	statusDir = ""
}

var toolchain = map[string]string{
	"jule.exe":     "binary",
	"jule_idle.py": "print('idle')",
	"std/":         "",
	"std/fmt.jule": "fn main() {}",
}

// serveToolchain returns a feed release whose windows asset is served by a
// local server.
func serveToolchain(t *testing.T, tag string) testutil.FeedRelease {
	t.Helper()
	payload := testutil.ZipBytes(t, toolchain)
	srv := testutil.AssetServer(t, payload, false)
	return testutil.FeedRelease{
		TagName:     tag,
		Body:        "Release notes for " + tag,
		PublishedAt: "2024-03-01T10:00:00Z",
		Assets: []testutil.FeedAsset{
			{Name: "jule-linux-amd64.zip", URL: srv.URL + "/jule-linux-amd64.zip", Size: len(payload)},
			{Name: "jule-windows-amd64.zip", URL: srv.URL + "/jule-windows-amd64.zip", Size: len(payload)},
		},
	}
}
