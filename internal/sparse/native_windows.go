//go:build windows

package sparse

import (
	"errors"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Control codes from winioctl.h.
const (
	fsctlSetSparse            = 0x000900c4
	fsctlSetZeroData          = 0x000980c8
	fsctlQueryAllocatedRanges = 0x000940cf
)

// fileZeroDataInformation mirrors FILE_ZERO_DATA_INFORMATION.
type fileZeroDataInformation struct {
	FileOffset      int64
	BeyondFinalZero int64
}

// Range has the same layout as FILE_ALLOCATED_RANGE_BUFFER, so the query
// writes straight into the caller's page.
var rangeSize = uint32(unsafe.Sizeof(Range{}))

// fsctlPlatform drives NTFS/ReFS sparse support through DeviceIoControl.
type fsctlPlatform struct{}

//nolint:ireturn // see Native
func native() (Platform, bool) {
	return fsctlPlatform{}, true
}

func (fsctlPlatform) MarkSparse(f *os.File) error {
	in := [1]byte{1}
	var returned uint32
	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()), fsctlSetSparse,
		&in[0], uint32(len(in)),
		nil, 0,
		&returned, nil,
	)
	if err != nil {
		return newPlatformError("FSCTL_SET_SPARSE", f.Name(), err)
	}
	return nil
}

// QueryAllocatedRanges issues FSCTL_QUERY_ALLOCATED_RANGES for [off, end).
// ERROR_MORE_DATA means page was too small: the entries returned are valid
// and complete is false.
func (fsctlPlatform) QueryAllocatedRanges(f *os.File, off, end int64, page []Range) (int, bool, error) {
	if len(page) == 0 {
		return 0, false, newPlatformError("FSCTL_QUERY_ALLOCATED_RANGES", f.Name(), windows.ERROR_INSUFFICIENT_BUFFER)
	}

	in := Range{Offset: off, Length: end - off}
	var returned uint32
	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()), fsctlQueryAllocatedRanges,
		(*byte)(unsafe.Pointer(&in)), rangeSize,
		(*byte)(unsafe.Pointer(&page[0])), uint32(len(page))*rangeSize,
		&returned, nil,
	)
	complete := true
	if err != nil {
		if !errors.Is(err, windows.ERROR_MORE_DATA) {
			return 0, false, newPlatformError("FSCTL_QUERY_ALLOCATED_RANGES", f.Name(), err)
		}
		complete = false
	}
	return int(returned / rangeSize), complete, nil
}

func (fsctlPlatform) PunchHole(f *os.File, off, end int64) error {
	if end <= off {
		return nil
	}
	in := fileZeroDataInformation{FileOffset: off, BeyondFinalZero: end}
	var returned uint32
	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()), fsctlSetZeroData,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		nil, 0,
		&returned, nil,
	)
	if err != nil {
		return newPlatformError("FSCTL_SET_ZERO_DATA", f.Name(), err)
	}
	return nil
}
