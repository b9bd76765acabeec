//go:build windows

package snapshot

import (
	"os"
	"path/filepath"
)

// lockDir creates dir/.lock but takes no lock.
// On Windows, only the in-process mutex serializes writers.
func lockDir(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}

// syncDir is a no-op: Windows cannot fsync a directory handle.
func syncDir(string) error {
	return nil
}
