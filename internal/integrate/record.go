package integrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the installation record file inside the install directory.
const ManifestName = ".julesetup.yaml"

// PathChange is the search path mutation applied by an installation.
type PathChange struct {
	Variable string `yaml:"variable"`
	Segment  string `yaml:"segment"`
	Prior    string `yaml:"prior"`
	Written  string `yaml:"written"`
	// Appended is false when the segment was already present, in which case
	// removal leaves the variable alone.
	Appended bool `yaml:"appended"`
}

// Record is the durable result of system integration.
type Record struct {
	Registration Registration `yaml:"registration"`
	Path         *PathChange  `yaml:"path,omitempty"`
	Shortcuts    []string     `yaml:"shortcuts,omitempty"`
	InstalledAt  time.Time    `yaml:"installed_at"`
}

// ManifestPath returns the manifest location for an install directory.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestName)
}

// SaveRecord writes r into dir, replacing any previous manifest.
func SaveRecord(dir string, r *Record) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := writeFileAtomic(ManifestPath(dir), data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// LoadRecord reads the manifest from dir. It returns ErrNotInstalled when
// there is none.
func LoadRecord(dir string) (*Record, error) {
	data, err := os.ReadFile(ManifestPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &r, nil
}

// RemoveRecord deletes the manifest. A missing manifest is not an error.
func RemoveRecord(dir string) error {
	err := os.Remove(ManifestPath(dir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}
