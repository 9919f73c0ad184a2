//go:build windows

package diagnostics

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// CountFDs returns the number of open handles. Windows has no per-process
// handle limit to report, so limit is always 0.
func CountFDs() (open, limit int) {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0
	}
	n, err := self.NumFDs()
	if err != nil {
		return 0, 0
	}
	return int(n), 0
}
