package installer

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/valksor/go-julesetup/internal/release"
)

var (
	// ErrInvalidPlan is returned by Start when the plan fails validation.
	ErrInvalidPlan = errors.New("installer: invalid plan")

	// ErrRunActive is returned when a run or uninstall is already in progress.
	ErrRunActive = errors.New("installer: a run is already active")
)

const defaultArchiveName = "jule.zip"

// Plan is what the user chose. It is not modified once a run starts.
type Plan struct {
	TargetDirectory string
	AddToPath       bool
	NoShortcuts     bool
	Release         release.ReleaseInfo
}

// Validate checks that the target is absolute and the release can be fetched.
func (p Plan) Validate() error {
	if p.TargetDirectory == "" {
		return fmt.Errorf("%w: target directory is empty", ErrInvalidPlan)
	}
	if !filepath.IsAbs(p.TargetDirectory) {
		return fmt.Errorf("%w: target directory %q is not absolute", ErrInvalidPlan, p.TargetDirectory)
	}
	if p.Release.AssetURL == "" {
		return fmt.Errorf("%w: release %q has no asset url", ErrInvalidPlan, p.Release.Version)
	}

	u, err := url.Parse(p.Release.AssetURL)
	if err != nil {
		return fmt.Errorf("%w: asset url: %w", ErrInvalidPlan, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: asset url scheme %q", ErrInvalidPlan, u.Scheme)
	}
	return nil
}

// ArchivePath is where the asset is downloaded before extraction.
func (p Plan) ArchivePath() string {
	return filepath.Join(p.TargetDirectory, archiveName(p.Release))
}

func archiveName(r release.ReleaseInfo) string {
	name := r.AssetName
	if name == "" {
		if u, err := url.Parse(r.AssetURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	name = filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return defaultArchiveName
	}
	return name
}
