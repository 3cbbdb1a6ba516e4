package release

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v67/github"
	"golang.org/x/oauth2"
)

const githubPageSize = 50

// GitHubSource reads releases from the GitHub releases API.
type GitHubSource struct {
	gh       *github.Client
	owner    string
	repo     string
	pageSize int
}

// GitHubOption configures a GitHubSource.
type GitHubOption func(*githubConfig)

type githubConfig struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// WithGitHubBaseURL points the source at another API root, such as a
// GitHub Enterprise host or a test server.
func WithGitHubBaseURL(u string) GitHubOption {
	return func(c *githubConfig) { c.baseURL = u }
}

// WithGitHubHTTPClient sets the transport used for unauthenticated requests.
func WithGitHubHTTPClient(hc *http.Client) GitHubOption {
	return func(c *githubConfig) { c.httpClient = hc }
}

// WithGitHubPageSize sets how many releases are requested per page.
func WithGitHubPageSize(n int) GitHubOption {
	return func(c *githubConfig) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewGitHubSource creates a source for owner/repo.
// If token is empty, requests are unauthenticated and subject to rate limits.
func NewGitHubSource(token, owner, repo string, opts ...GitHubOption) (*GitHubSource, error) {
	cfg := &githubConfig{pageSize: githubPageSize}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	gh := github.NewClient(httpClient)
	if cfg.baseURL != "" {
		base := cfg.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &GitHubSource{gh: gh, owner: owner, repo: repo, pageSize: cfg.pageSize}, nil
}

// Name implements Source.
func (s *GitHubSource) Name() string {
	return "github:" + s.owner + "/" + s.repo
}

// githubRelease is the subset of the releases API read by the installer.
// published_at stays a string because only its date component is used.
type githubRelease struct {
	TagName     string  `json:"tag_name"`
	Body        string  `json:"body"`
	PublishedAt *string `json:"published_at"`
	Prerelease  bool    `json:"prerelease"`
	Draft       bool    `json:"draft"`
	Assets      []struct {
		Name string `json:"name"`
		URL  string `json:"browser_download_url"`
		Size int64  `json:"size"`
	} `json:"assets"`
}

// ListReleases implements Source. Drafts carry no publish date and are
// skipped.
func (s *GitHubSource) ListReleases(ctx context.Context) ([]Release, error) {
	var out []Release
	page := 1
	for {
		u := fmt.Sprintf("repos/%s/%s/releases?per_page=%d&page=%d",
			url.PathEscape(s.owner), url.PathEscape(s.repo), s.pageSize, page)
		req, err := s.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}

		var batch []*githubRelease
		resp, err := s.gh.Do(ctx, req, &batch)
		if err != nil {
			return nil, classify(err)
		}

		for _, r := range batch {
			if r.Draft {
				continue
			}
			rel, err := releaseFromGitHub(r)
			if err != nil {
				return nil, err
			}
			out = append(out, rel)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return out, nil
}

func releaseFromGitHub(r *githubRelease) (Release, error) {
	if r.PublishedAt == nil || *r.PublishedAt == "" {
		return Release{}, fmt.Errorf("%w: release %q has no published_at", ErrParse, r.TagName)
	}
	published, err := parseFeedDate(*r.PublishedAt)
	if err != nil {
		return Release{}, fmt.Errorf("%w: release %q: %w", ErrParse, r.TagName, err)
	}

	assets := make([]Asset, 0, len(r.Assets))
	for _, a := range r.Assets {
		assets = append(assets, Asset{Name: a.Name, URL: a.URL, Size: a.Size})
	}

	return Release{
		TagName:     r.TagName,
		Body:        r.Body,
		PublishedAt: published,
		PreRelease:  r.Prerelease,
		Draft:       r.Draft,
		Assets:      assets,
	}, nil
}

// parseFeedDate reads the ISO-8601 date component of a feed timestamp. The
// clock part, including any offset, is ignored.
func parseFeedDate(ts string) (time.Time, error) {
	date, _, _ := strings.Cut(ts, "T")
	return time.Parse(time.DateOnly, date)
}
