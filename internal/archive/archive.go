// Package archive unpacks a downloaded toolchain archive into the install
// directory.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/valksor/go-julesetup/internal/log"
)

// ErrExtraction is returned when the archive cannot be read or an entry
// cannot be written.
var ErrExtraction = errors.New("archive: extraction failed")

// ErrUnsafePath is returned alongside ErrExtraction for entries that would
// land outside the target directory.
var ErrUnsafePath = errors.New("archive: entry escapes target directory")

// Result summarizes an extraction.
type Result struct {
	Files          []string // Relative slash paths of extracted files, archive order
	Dirs           int
	Bytes          int64
	ArchiveRemoved bool
}

// Installer extracts ZIP archives.
type Installer struct {
	keepArchive bool
}

// Option configures an Installer.
type Option func(*Installer)

// WithKeepArchive leaves the archive on disk after a successful extraction.
func WithKeepArchive(keep bool) Option {
	return func(i *Installer) { i.keepArchive = keep }
}

// New creates an installer.
func New(opts ...Option) *Installer {
	i := &Installer{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Extract unpacks every entry of archivePath below target, creating
// directories as needed, then deletes the archive. Files already extracted
// stay in place when a later entry fails.
func (i *Installer) Extract(archivePath, target string) (*Result, error) {
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %w: %s", ErrExtraction, ErrUnsafePath, archivePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrExtraction, archivePath, err)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	res := &Result{}
	for _, f := range zr.File {
		dest, err := entryPath(target, f.Name)
		if err != nil {
			_ = zr.Close()
			return res, fmt.Errorf("%w: %w", ErrExtraction, err)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(dest, 0o755); err != nil {
				_ = zr.Close()
				return res, fmt.Errorf("%w: %w", ErrExtraction, err)
			}
			res.Dirs++

		case mode.IsRegular():
			n, err := writeEntry(f, dest)
			if err != nil {
				_ = zr.Close()
				return res, fmt.Errorf("%w: %s: %w", ErrExtraction, f.Name, err)
			}
			res.Files = append(res.Files, strings.TrimPrefix(filepath.ToSlash(f.Name), "./"))
			res.Bytes += n

		default:
			log.Warn("skipping archive entry", "name", f.Name, "mode", mode.String())
		}
	}

	// Windows will not remove a file that is still open.
	if err := zr.Close(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if !i.keepArchive {
		if err := os.Remove(archivePath); err != nil {
			log.Warn("could not remove archive", "path", archivePath, log.Err(err))
		} else {
			res.ArchiveRemoved = true
		}
	}

	log.Debug("archive extracted", "target", target, "files", len(res.Files), "bytes", res.Bytes)
	return res, nil
}

// entryPath resolves a ZIP entry name below target and rejects names that
// would escape it.
func entryPath(target, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" || strings.HasPrefix(clean, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	dest := filepath.Join(target, clean)
	rel, err := filepath.Rel(target, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return dest, nil
}

// writeEntry writes a file entry to a temporary sibling and renames it into
// place.
func writeEntry(f *zip.File, dest string) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, rc)
	if err == nil {
		err = tmp.Chmod(fileMode(f))
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	return n, nil
}

func fileMode(f *zip.File) os.FileMode {
	perm := f.Mode().Perm()
	if perm == 0 {
		return 0o644
	}
	return perm | 0o200
}
