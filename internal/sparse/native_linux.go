//go:build linux

package sparse

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// seekPlatform enumerates ranges with lseek(SEEK_DATA/SEEK_HOLE) and punches
// holes with fallocate(2).
type seekPlatform struct{}

//nolint:ireturn // see Native
func native() (Platform, bool) {
	return seekPlatform{}, true
}

// MarkSparse is a no-op: every Linux file that supports holes is sparse.
func (seekPlatform) MarkSparse(*os.File) error {
	return nil
}

// QueryAllocatedRanges walks data regions from off until end or until page
// is full. A filesystem without SEEK_DATA support (EINVAL) reports the rest
// of the interval as allocated.
//
//nolint:gosec // G115: fd values are small non-negative integers
func (seekPlatform) QueryAllocatedRanges(f *os.File, off, end int64, page []Range) (int, bool, error) {
	fd := int(f.Fd())
	n := 0
	for off < end {
		if n == len(page) {
			return n, false, nil
		}

		start, err := unix.Seek(fd, off, unix.SEEK_DATA)
		if err != nil {
			switch {
			case errors.Is(err, unix.ENXIO):
				return n, true, nil
			case errors.Is(err, unix.EINVAL):
				page[n] = Range{Offset: off, Length: end - off}
				return n + 1, true, nil
			default:
				return n, false, newPlatformError("seek_data", f.Name(), err)
			}
		}
		if start >= end {
			return n, true, nil
		}

		stop, err := unix.Seek(fd, start, unix.SEEK_HOLE)
		if err != nil {
			if !errors.Is(err, unix.ENXIO) {
				return n, false, newPlatformError("seek_hole", f.Name(), err)
			}
			stop = end
		}
		stop = min(stop, end)

		page[n] = Range{Offset: start, Length: stop - start}
		n++
		off = stop
	}
	return n, true, nil
}

// PunchHole deallocates [off, end) keeping the file size.
//
//nolint:gosec // G115: fd values are small non-negative integers
func (seekPlatform) PunchHole(f *os.File, off, end int64) error {
	if end <= off {
		return nil
	}
	mode := uint32(unix.FALLOC_FL_PUNCH_HOLE | unix.FALLOC_FL_KEEP_SIZE)
	if err := unix.Fallocate(int(f.Fd()), mode, off, end-off); err != nil {
		return newPlatformError("fallocate", f.Name(), err)
	}
	return nil
}
