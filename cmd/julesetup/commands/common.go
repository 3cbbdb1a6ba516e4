package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/valksor/go-julesetup/internal/archive"
	"github.com/valksor/go-julesetup/internal/config"
	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/download"
	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/log"
	"github.com/valksor/go-julesetup/internal/release"
	"github.com/valksor/go-julesetup/internal/token"
)

// ErrReleaseNotFound is returned when the requested version is not in the
// catalog.
var ErrReleaseNotFound = errors.New("release not found")

// newIntegrator builds the integrator for this OS. Tests replace it with
// in-memory backends.
var newIntegrator = func() (installer.Integrator, error) {
	return integrate.NewPlatform(integrate.WithUninstallCommand(uninstallCommand()))
}

// uninstallCommand is registered with the OS so the installation can be
// removed without knowing where julesetup lives. The integrator appends the
// quoted install directory.
func uninstallCommand() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`"%s" uninstall --yes --dir`, exe)
}

// newSource creates the release feed selected by configuration. A missing
// token is not fatal; the feed is read anonymously.
func newSource(c *config.Config) (release.Source, error) {
	switch c.Feed.Provider {
	case "gitlab":
		tok, err := token.GitLab("")
		if err != nil && !errors.Is(err, token.ErrNoToken) {
			return nil, err
		}
		return release.NewGitLabSource(tok, c.Feed.GitLabHost, c.Project())
	default:
		tok, err := token.GitHub("")
		if err != nil {
			if !errors.Is(err, token.ErrNoToken) {
				return nil, err
			}
			log.Info("reading release feed without authentication, rate limits may apply")
		}
		opts := []release.GitHubOption{release.WithGitHubPageSize(c.Feed.PageSize)}
		if c.Feed.GitHubURL != "" {
			opts = append(opts, release.WithGitHubBaseURL(c.Feed.GitHubURL))
		}
		return release.NewGitHubSource(tok, c.Feed.Owner, c.Feed.Repo, opts...)
	}
}

// fetchReleases loads the catalog for the configured platform.
func fetchReleases(ctx context.Context, c *config.Config, bus *events.Bus) (*release.Catalog, []release.ReleaseInfo, error) {
	src, err := newSource(c)
	if err != nil {
		return nil, nil, fmt.Errorf("create release source: %w", err)
	}

	catalog := release.NewCatalog(src,
		release.WithPlatformKeyword(c.PlatformKeyword()),
		release.WithPreReleases(c.Feed.PreReleases),
		release.WithEventBus(bus),
	)

	// The fetch runs on its own goroutine so an interrupt is noticed even if
	// the feed is slow to answer.
	select {
	case res := <-catalog.FetchAsync(ctx):
		return catalog, res.Releases, res.Err
	case <-ctx.Done():
		return catalog, nil, ctx.Err()
	}
}

// withFeedTimeout bounds a feed fetch. A zero timeout leaves ctx unbounded.
func withFeedTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// selectRelease picks version from releases, or the newest one when version
// is empty or "latest". Releases are in feed order, newest first.
func selectRelease(releases []release.ReleaseInfo, version string) (release.ReleaseInfo, error) {
	if len(releases) == 0 {
		return release.ReleaseInfo{}, ErrReleaseNotFound
	}
	if version == "" || strings.EqualFold(version, "latest") {
		return releases[0], nil
	}
	for _, r := range releases {
		if strings.EqualFold(r.Version, version) {
			return r, nil
		}
	}
	return release.ReleaseInfo{}, fmt.Errorf("%w: %s", ErrReleaseNotFound, version)
}

// newOrchestrator wires the installation pipeline from configuration.
func newOrchestrator(c *config.Config, bus *events.Bus) (*installer.Orchestrator, error) {
	ig, err := newIntegrator()
	if err != nil {
		return nil, fmt.Errorf("create integrator: %w", err)
	}

	dl := download.New(
		download.WithChunkSize(c.Download.ChunkSize),
		download.WithRateLimit(c.Download.RateLimit),
		download.WithUserAgent(c.Download.UserAgent),
		download.WithConnectTimeout(c.Download.Timeout),
	)

	ex := archive.New(archive.WithKeepArchive(c.Install.KeepArchive))
	return installer.New(dl, ex, ig, installer.WithEventBus(bus)), nil
}

// resolveDir returns the absolute install directory from a flag value or
// configuration.
func resolveDir(c *config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		c.Install.Dir = flagValue
	}
	return c.InstallDir()
}

// confirmAction prompts for confirmation unless skipConfirm is set.
func confirmAction(in io.Reader, out io.Writer, prompt string, skipConfirm bool) (bool, error) {
	if skipConfirm {
		return true, nil
	}

	_, _ = fmt.Fprintf(out, "%s\nProceed? [y/N]: ", prompt)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// feedError adds a suggestion for errors the user can act on.
func feedError(w io.Writer, err error) error {
	if errors.Is(err, release.ErrRateLimited) {
		_, _ = fmt.Fprint(w, display.RateLimitedError())
	}
	return fmt.Errorf("fetch releases: %w", err)
}
