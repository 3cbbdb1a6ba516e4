package release

import (
	"context"
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabSource reads releases from a GitLab project.
type GitLabSource struct {
	gl      *gitlab.Client
	project string
}

// NewGitLabSource creates a source for a project path such as "group/jule".
// host may be empty for gitlab.com.
func NewGitLabSource(token, host, project string) (*GitLabSource, error) {
	var options []gitlab.ClientOptionFunc

	if host != "" && host != "https://gitlab.com" && host != "gitlab.com" {
		if !strings.Contains(host, "://") {
			host = "https://" + host
		}
		options = append(options, gitlab.WithBaseURL(strings.TrimSuffix(host, "/")+"/api/v4"))
	}

	client, err := gitlab.NewClient(token, options...)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	return &GitLabSource{gl: client, project: project}, nil
}

// Name implements Source.
func (s *GitLabSource) Name() string {
	return "gitlab:" + s.project
}

// ListReleases implements Source. Upcoming releases are reported as
// pre-releases, as are tags with a semantic version pre-release suffix.
func (s *GitLabSource) ListReleases(ctx context.Context) ([]Release, error) {
	opts := &gitlab.ListReleasesOptions{}
	opts.Page = 1
	opts.PerPage = 50

	var out []Release
	for {
		page, resp, err := s.gl.Releases.ListReleases(s.project, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, classify(err)
		}

		for _, r := range page {
			rel, err := releaseFromGitLab(r)
			if err != nil {
				return nil, err
			}
			out = append(out, rel)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

func releaseFromGitLab(r *gitlab.Release) (Release, error) {
	if r.ReleasedAt == nil {
		return Release{}, fmt.Errorf("%w: release %q has no released_at", ErrParse, r.TagName)
	}

	assets := make([]Asset, 0, len(r.Assets.Links))
	for _, l := range r.Assets.Links {
		if l == nil {
			continue
		}
		link := l.DirectAssetURL
		if link == "" {
			link = l.URL
		}
		assets = append(assets, Asset{Name: l.Name, URL: link})
	}

	return Release{
		TagName:     r.TagName,
		Body:        r.Description,
		PublishedAt: *r.ReleasedAt,
		PreRelease:  r.UpcomingRelease || IsPreReleaseTag(r.TagName),
		Assets:      assets,
	}, nil
}
