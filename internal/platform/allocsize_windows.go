//go:build windows

package platform

import (
	"io/fs"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const invalidFileSize = 0xFFFFFFFF

var procGetCompressedFileSizeW = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetCompressedFileSizeW")

// AllocatedSize returns the on-disk size of path as GetCompressedFileSizeW
// reports it; holes and compression both reduce it.
func AllocatedSize(path string) (int64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, &fs.PathError{Op: "GetCompressedFileSize", Path: path, Err: err}
	}

	var high uint32
	r1, _, e1 := procGetCompressedFileSizeW.Call(
		uintptr(unsafe.Pointer(p)),
		uintptr(unsafe.Pointer(&high)),
	)
	low := uint32(r1)
	if low == invalidFileSize {
		// INVALID_FILE_SIZE is also a valid low word; only a set error counts.
		if errno, ok := e1.(syscall.Errno); ok && errno != 0 {
			return 0, &fs.PathError{Op: "GetCompressedFileSize", Path: path, Err: errno}
		}
	}
	return int64(high)<<32 | int64(low), nil
}
