package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ErrTest is a generic test error.
var ErrTest = errors.New("test error")

// NonexistentPID is above any kernel's pid ceiling.
const NonexistentPID int32 = 1 << 30

// SelfPID is the pid of the running test binary, a process that is
// guaranteed to exist for the duration of the test.
func SelfPID() int32 {
	return int32(os.Getpid())
}

// TempFile creates a file with content under dir.
func TempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// DirEntries lists the names in dir, or nil if it does not exist.
func DirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
