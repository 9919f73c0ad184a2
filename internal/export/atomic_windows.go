//go:build windows

package export

import (
	"os"
)

// atomicWriteFile writes data to a file atomically.
// renameio does not support Windows; a rename on the same volume is atomic.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}
	return nil
}
