// Package testkit provides testing helpers
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// MustPanic asserts that fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if _, ok := recovered(fn); !ok {
		t.Fatalf("expected a panic, fn returned normally")
	}
}

// MustNotPanic asserts that fn returns without panicking
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if v, ok := recovered(fn); ok {
		t.Fatalf("unexpected panic: %v", v)
	}
}

// recovered runs fn and reports what it panicked with, if anything
func recovered(fn func()) (v any, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			v, panicked = r, true
		}
	}()
	fn()
	return nil, false
}

// MustContain asserts that needle appears in haystack. On failure the whole
// haystack is written to a temp file
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	dump := filepath.Join(t.TempDir(), "testkit_output.txt")
	_ = os.WriteFile(dump, []byte(haystack), 0o600)
	t.Fatalf("%q not found in output, haystack saved to %s", needle, dump)
}

// WriteTemp writes contents to name under t.TempDir() and returns the full path
func WriteTemp(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp file %s: %v", name, err)
	}
	return p
}

// Unsetenv clears an env var for the duration of the test and restores it after.
// t.Setenv can only set, tests that need a variable ABSENT use this
func Unsetenv(t *testing.T, key string) {
	t.Helper()
	orig, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, orig)
		}
	})
}

var seamMu sync.Mutex

// Swap points target at replacement until the test ends, then restores it
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	saved := *target
	*target = replacement
	t.Cleanup(func() { *target = saved })
}

// Serial takes a process wide lock for the whole test. Tests that swap
// package level seams run under it so parallel siblings never observe a
// foreign swap
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(seamMu.Unlock)
}
