// Package release discovers installable toolchain releases from a release feed.
package release

import (
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ReleaseInfo is one installable version for the current platform.
type ReleaseInfo struct {
	Version       string    // Tag as published, e.g. "jule0.1.0" or "v0.1.0"
	PublishedDate time.Time // Calendar date only; clock fields are zero
	Description   string    // Markdown release notes
	AssetURL      string    // Download URL of the platform asset
	AssetName     string
	AssetSize     int64 // Bytes, 0 when the feed does not say
	PreRelease    bool
}

// DateString formats the publish date the way the installer displays it.
func (r ReleaseInfo) DateString() string {
	if r.PublishedDate.IsZero() {
		return ""
	}
	return r.PublishedDate.Format("January 02, 2006")
}

// Release is a raw feed entry, before platform filtering.
type Release struct {
	TagName     string
	Body        string
	PublishedAt time.Time
	PreRelease  bool
	Draft       bool
	Assets      []Asset
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name string
	URL  string
	Size int64
}

// dateOf keeps the calendar date as written in the feed timestamp.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsPreReleaseTag reports whether a tag carries a semantic version
// pre-release suffix ("v1.2.0-beta.1"). Tags that are not semantic versions
// are treated as stable.
func IsPreReleaseTag(tag string) bool {
	v := tag
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return false
	}
	return semver.Prerelease(v) != ""
}
