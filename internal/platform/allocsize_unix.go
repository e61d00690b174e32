//go:build linux || darwin

package platform

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// AllocatedSize returns the bytes of storage backing path, counted from the
// 512-byte blocks stat(2) reports.
func AllocatedSize(path string) (int64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return st.Blocks * 512, nil
}
