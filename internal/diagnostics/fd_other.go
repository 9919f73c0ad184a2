//go:build !linux && !darwin && !windows

package diagnostics

// CountFDs is not implemented here and reports zero.
func CountFDs() (open, limit int) {
	return 0, 0
}
