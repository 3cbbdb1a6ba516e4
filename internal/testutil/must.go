// Package testutil provides testing utilities, including must-style helpers.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// T panics if err is non-nil, returning v. Useful for test setup.
// Usage: f := testutil.T(os.ReadFile("file.txt")).
func T[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Eq panics if got != want. Useful for assertions in test setup.
func Eq[T comparable](got, want T) {
	if got != want {
		panic(fmt.Sprintf("got %v, want %v", got, want))
	}
}

// EqFatal calls t.Fatal if got != want.
func EqFatal[T comparable](t *testing.T, got, want T, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		t.Fatal(append([]interface{}{fmt.Sprintf("got %v, want %v", got, want)}, msgAndArgs...)...)
	}
}

// NoError calls t.Fatal if err is non-nil.
func NoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatal(append([]interface{}{err}, msgAndArgs...)...)
	}
}

// WriteFile writes content below dir, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
