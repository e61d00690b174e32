package sparse

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrAlreadyExists is returned when the destination exists and overwrite
	// was not requested. It matches fs.ErrExist.
	ErrAlreadyExists = fmt.Errorf("destination %w", fs.ErrExist)

	// ErrInvariant marks a range enumeration that went backwards or stalled.
	ErrInvariant = errors.New("allocated range invariant violated")

	// ErrUnsupported is returned by CopyFile when no Platform was given and
	// the OS has no sparse primitives.
	ErrUnsupported = errors.New("sparse copy not supported on this platform")

	// ErrSameFile is returned when source and destination name the same file.
	ErrSameFile = errors.New("source and destination are the same file")

	// ErrNotRegular is returned when the source is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// PlatformError reports a failed filesystem control operation (sparse mark,
// range query or hole punch). Code is the raw OS status.
type PlatformError struct {
	Op   string
	Path string
	Code uint64
	Err  error
}

func newPlatformError(op, path string, err error) *PlatformError {
	pe := &PlatformError{Op: op, Path: path, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		pe.Code = uint64(errno)
	}
	return pe
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s %s: %v (code %d)", e.Op, e.Path, e.Err, e.Code)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// InvariantError reports a range that starts before the copy cursor.
type InvariantError struct {
	Cursor int64
	Offset int64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: range at %d precedes cursor %d", ErrInvariant, e.Offset, e.Cursor)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}
