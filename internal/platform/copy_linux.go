//go:build linux

package platform

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// CopyFile tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	return copyWith(params, func(src, dst *os.File, size int64) (CopyResult, error) {
		preallocate(dst, size)

		result, err := copyFileRange(src, dst, size)
		if err == nil || !isFallbackErr(err) {
			return result, err
		}

		result, err = copySendfile(src, dst, size)
		if err == nil || !isFallbackErr(err) {
			return result, err
		}

		return copyReadWrite(src, dst, size)
	})
}

//nolint:gosec // G115: fd values are small non-negative integers
func copyFileRange(src, dst *os.File, size int64) (CopyResult, error) {
	var roff, woff int64
	var total int64
	for total < size {
		n, err := unix.CopyFileRange(int(src.Fd()), &roff, int(dst.Fd()), &woff, int(size-total), 0)
		if err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

//nolint:gosec // G115: fd values are small non-negative integers
func copySendfile(src, dst *os.File, size int64) (CopyResult, error) {
	// copy_file_range may have moved nothing but sendfile writes at the
	// destination's file offset.
	if _, err := dst.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}

	var offset int64
	var total int64
	for total < size {
		n, err := unix.Sendfile(int(dst.Fd()), int(src.Fd()), &offset, int(size-total))
		if err != nil {
			return CopyResult{BytesWritten: total, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return CopyResult{BytesWritten: total, Method: Sendfile}, nil
}

// isFallbackErr returns true if err should trigger a fallback to the next copy strategy.
func isFallbackErr(err error) bool {
	for _, errno := range []syscall.Errno{unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// preallocate reserves size bytes for dst. fallocate is advisory here and
// unsupported filesystems are ignored.
//
//nolint:gosec // G115: fd values are small non-negative integers
func preallocate(dst *os.File, size int64) {
	if size <= 0 {
		return
	}
	//nolint:errcheck // advisory
	unix.Fallocate(int(dst.Fd()), 0, 0, size)
}
