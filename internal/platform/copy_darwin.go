//go:build darwin

package platform

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile tries clonefile first, which shares extents (holes included) on
// APFS, then falls back to read/write on macOS.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	err := unix.Clonefile(params.SrcPath, params.DstPath, 0)
	if err == nil {
		info, err := os.Stat(params.DstPath)
		if err != nil {
			return CopyResult{Method: Clonefile}, err
		}
		return CopyResult{BytesWritten: info.Size(), Method: Clonefile}, nil
	}
	if !isFallbackCloneErr(err) {
		return CopyResult{}, err
	}

	// EEXIST lands here too: openPair applies the overwrite rules.
	return copyWith(params, copyReadWrite)
}

func isFallbackCloneErr(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EXDEV) || errors.Is(err, unix.EEXIST)
}
