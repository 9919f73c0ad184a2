//go:build linux

package diagnostics

import (
	"math"

	"github.com/prometheus/procfs"
)

// CountFDs returns the number of open file descriptors and the maximum allowed.
func CountFDs() (open, limit int) {
	self, err := procfs.Self()
	if err != nil {
		return 0, 0
	}
	if n, err := self.FileDescriptorsLen(); err == nil {
		open = n
	}
	if limits, err := self.Limits(); err == nil && limits.OpenFiles > 0 && limits.OpenFiles <= math.MaxInt32 {
		limit = int(limits.OpenFiles)
	}
	return open, limit
}
