package integrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registration is an uninstall registry record.
type Registration struct {
	Key             string `yaml:"key"`
	DisplayName     string `yaml:"display_name"`
	DisplayVersion  string `yaml:"display_version"`
	Publisher       string `yaml:"publisher"`
	InstallLocation string `yaml:"install_location"`
	DisplayIcon     string `yaml:"display_icon"`
	UninstallString string `yaml:"uninstall_string,omitempty"`
}

// UninstallRegistry stores one record per product key.
type UninstallRegistry interface {
	// Register writes reg, replacing any record under the same key.
	Register(reg Registration) error
	// Unregister deletes the record. A missing record is not an error.
	Unregister(key string) error
	// Lookup returns the record and whether it exists.
	Lookup(key string) (Registration, bool, error)
}

// MemoryUninstallRegistry keeps records in a map.
type MemoryUninstallRegistry struct {
	mu      sync.Mutex
	records map[string]Registration
}

// NewMemoryUninstallRegistry creates an empty registry.
func NewMemoryUninstallRegistry() *MemoryUninstallRegistry {
	return &MemoryUninstallRegistry{records: make(map[string]Registration)}
}

func (r *MemoryUninstallRegistry) Register(reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[reg.Key] = reg
	return nil
}

func (r *MemoryUninstallRegistry) Unregister(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *MemoryUninstallRegistry) Lookup(key string) (Registration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.records[key]
	return reg, ok, nil
}

// Len returns the number of records.
func (r *MemoryUninstallRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// FileUninstallRegistry stores each record as <dir>/<key>.yaml.
type FileUninstallRegistry struct {
	dir string
}

// NewFileUninstallRegistry creates a registry rooted at dir.
func NewFileUninstallRegistry(dir string) *FileUninstallRegistry {
	return &FileUninstallRegistry{dir: dir}
}

func (r *FileUninstallRegistry) path(key string) string {
	return filepath.Join(r.dir, key+".yaml")
}

func (r *FileUninstallRegistry) Register(reg Registration) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}
	return writeFileAtomic(r.path(reg.Key), data, 0o644)
}

func (r *FileUninstallRegistry) Unregister(key string) error {
	err := os.Remove(r.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove registration: %w", err)
	}
	return nil
}

func (r *FileUninstallRegistry) Lookup(key string) (Registration, bool, error) {
	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("read registration: %w", err)
	}

	var reg Registration
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return Registration{}, false, fmt.Errorf("parse registration: %w", err)
	}
	return reg, true, nil
}

// writeFileAtomic writes data to a temporary sibling and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(perm)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
	}
	return err
}
