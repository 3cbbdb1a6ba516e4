package integrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// EnvStore reads and writes one persistent user environment variable.
type EnvStore interface {
	Variable() string
	Separator() string
	Get() (string, error)
	Set(value string) error
}

// MemoryEnvStore keeps the value in memory.
type MemoryEnvStore struct {
	mu       sync.Mutex
	variable string
	sep      string
	value    string
	writes   int
}

// NewMemoryEnvStore creates an in-memory store holding value.
func NewMemoryEnvStore(variable, sep, value string) *MemoryEnvStore {
	return &MemoryEnvStore{variable: variable, sep: sep, value: value}
}

func (s *MemoryEnvStore) Variable() string  { return s.variable }
func (s *MemoryEnvStore) Separator() string { return s.sep }

func (s *MemoryEnvStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *MemoryEnvStore) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.writes++
	return nil
}

// Writes returns how many times Set was called.
func (s *MemoryEnvStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FileEnvStore keeps variables in a dotenv file. Other keys in the file are
// preserved on write.
type FileEnvStore struct {
	path     string
	variable string
	sep      string
}

// NewFileEnvStore creates a store for variable in the dotenv file at path.
func NewFileEnvStore(path, variable string) *FileEnvStore {
	return &FileEnvStore{path: path, variable: variable, sep: string(os.PathListSeparator)}
}

func (s *FileEnvStore) Variable() string  { return s.variable }
func (s *FileEnvStore) Separator() string { return s.sep }

// Path returns the backing file.
func (s *FileEnvStore) Path() string { return s.path }

// Get returns the stored value, or "" when the file or key does not exist.
func (s *FileEnvStore) Get() (string, error) {
	env, err := s.read()
	if err != nil {
		return "", err
	}
	return env[s.variable], nil
}

// Set writes the value, removing the key when value is empty.
func (s *FileEnvStore) Set(value string) error {
	env, err := s.read()
	if err != nil {
		return err
	}

	if value == "" {
		delete(env, s.variable)
	} else {
		env[s.variable] = value
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create env dir: %w", err)
	}
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileEnvStore) read() (map[string]string, error) {
	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return env, nil
}
