//go:build darwin

package diagnostics

import (
	"os"

	"golang.org/x/sys/unix"
)

// CountFDs returns the number of open file descriptors and the soft limit.
func CountFDs() (open, limit int) {
	entries, err := os.ReadDir("/dev/fd")
	if err != nil {
		return 0, 0
	}
	open = len(entries)

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err == nil && rlim.Cur < 1<<31 {
		limit = int(rlim.Cur)
	}
	return open, limit
}
