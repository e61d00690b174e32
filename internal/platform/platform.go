// Package platform holds the OS-specific pieces that sit beside the sparse
// copier: a plain whole-file copy for hosts without sparse primitives, and
// allocated-size queries.
package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	Clonefile                // macOS clonefile(2)
	Sparse                   // range query + hole punch
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case Clonefile:
		return "clonefile"
	case Sparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes a whole-file copy. DstPath must already be
// resolved; without Overwrite an existing destination fails with fs.ErrExist.
type CopyFileParams struct {
	SrcPath   string
	DstPath   string
	Overwrite bool
}

// openPair opens the source and creates the destination with the source's
// permission bits.
func openPair(params CopyFileParams) (src, dst *os.File, size int64, err error) {
	src, err = os.Open(params.SrcPath)
	if err != nil {
		return nil, nil, 0, err
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, nil, 0, err
	}
	if !info.Mode().IsRegular() {
		src.Close()
		return nil, nil, 0, fmt.Errorf("%s: not a regular file", params.SrcPath)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if params.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	dst, err = os.OpenFile(params.DstPath, flags, info.Mode().Perm())
	if err != nil {
		src.Close()
		return nil, nil, 0, err
	}
	return src, dst, info.Size(), nil
}

// copyWith opens the pair, runs fn and closes both files, reporting a
// destination close error when fn succeeded.
func copyWith(params CopyFileParams, fn func(src, dst *os.File, size int64) (CopyResult, error)) (CopyResult, error) {
	src, dst, size, err := openPair(params)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	result, err := fn(src, dst, size)
	if cerr := dst.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return result, err
}

// IsExist reports whether err came from an existing destination.
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}
