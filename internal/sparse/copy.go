package sparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DefaultBufferSize is the chunk size used to move allocated data.
	DefaultBufferSize = 64 * 1024
	// DefaultPageSize is the number of ranges fetched per query, matching a
	// 4 KiB FSCTL_QUERY_ALLOCATED_RANGES output buffer.
	DefaultPageSize = 256
)

// Options controls a single CopyFile call.
type Options struct {
	// Platform overrides the native sparse primitives.
	Platform Platform
	// Logger receives debug records; slog.Default() when nil.
	Logger *slog.Logger
	// Progress, when set, is called with the byte count of every chunk written.
	Progress   func(n int64)
	BufferSize int
	PageSize   int
	Overwrite  bool
}

// Result describes a completed (or aborted) copy.
type Result struct {
	Src          string
	Dst          string
	Size         int64
	BytesCopied  int64 // allocated bytes transferred
	BytesPunched int64 // bytes deallocated in the destination
	Holes        int   // hole punch calls
	Queries      int   // range query calls
}

// ResolveDestination appends the base name of src when dst is an existing
// directory.
func ResolveDestination(src, dst string) string {
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		return filepath.Join(dst, filepath.Base(src))
	}
	return dst
}

// CheckDestination returns ErrAlreadyExists when dst exists and overwrite is
// false, and ErrSameFile when dst is src.
func CheckDestination(src, dst string, overwrite bool) error {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !overwrite {
		return fmt.Errorf("%s: %w", dst, ErrAlreadyExists)
	}
	if srcInfo, err := os.Stat(src); err == nil && os.SameFile(srcInfo, dstInfo) {
		return fmt.Errorf("%s: %w", dst, ErrSameFile)
	}
	return nil
}

// CopyFile copies src to dst keeping the source's holes. dst may name an
// existing directory. Partially written destinations are left in place on
// failure.
func CopyFile(src, dst string, opts Options) (Result, error) {
	return CopyResolved(src, ResolveDestination(src, dst), opts)
}

// CopyResolved is CopyFile for a destination already passed through
// ResolveDestination. dst is used as given, so an existing directory there
// is rejected like any other existing destination.
func CopyResolved(src, dst string, opts Options) (Result, error) {
	res := Result{Src: src, Dst: dst}

	p := opts.Platform
	if p == nil {
		native, ok := Native()
		if !ok {
			return res, ErrUnsupported
		}
		p = native
	}

	if err := CheckDestination(src, dst, opts.Overwrite); err != nil {
		return res, err
	}

	in, err := os.Open(src)
	if err != nil {
		return res, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return res, err
	}
	if !info.Mode().IsRegular() {
		return res, fmt.Errorf("%s: %w", src, ErrNotRegular)
	}
	res.Size = info.Size()

	flags := os.O_WRONLY | os.O_CREATE
	if opts.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return res, fmt.Errorf("%s: %w", dst, ErrAlreadyExists)
		}
		return res, err
	}

	c := newCopier(p, in, out, &res, opts)
	err = c.run()
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return res, err
}

// copier holds the state of one copy. cursor is the offset up to which the
// destination is byte-correct; it never moves backwards.
type copier struct {
	p        Platform
	src      *os.File
	dst      *os.File
	w        *bufio.Writer
	res      *Result
	log      *slog.Logger
	progress func(int64)
	buf      []byte
	page     []Range
	size     int64
	cursor   int64
}

func newCopier(p Platform, src, dst *os.File, res *Result, opts Options) *copier {
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &copier{
		p:        p,
		src:      src,
		dst:      dst,
		w:        bufio.NewWriterSize(dst, bufSize),
		res:      res,
		log:      logger.With("src", src.Name(), "dst", dst.Name()),
		progress: opts.Progress,
		buf:      make([]byte, bufSize),
		page:     make([]Range, pageSize),
		size:     res.Size,
	}
}

func (c *copier) run() error {
	if err := c.p.MarkSparse(c.dst); err != nil {
		return err
	}

	for complete := false; !complete && c.cursor < c.size; {
		n, done, err := c.p.QueryAllocatedRanges(c.src, c.cursor, c.size, c.page)
		if err != nil {
			return err
		}
		c.res.Queries++
		c.log.Debug("allocated ranges", "off", c.cursor, "ranges", n, "complete", done)

		start := c.cursor
		for _, r := range c.page[:n] {
			if err := c.copyRange(r); err != nil {
				return err
			}
		}
		// A partial page must move the cursor or the next query repeats it.
		if !done && c.cursor == start {
			return fmt.Errorf("%w: partial page of %d ranges made no progress at offset %d",
				ErrInvariant, n, c.cursor)
		}
		complete = done
	}

	if c.cursor < c.size {
		if err := c.punch(c.size); err != nil {
			return err
		}
		if err := c.dst.Truncate(c.size); err != nil {
			return fmt.Errorf("extend %s: %w", c.dst.Name(), err)
		}
		return nil
	}

	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", c.dst.Name(), err)
	}
	return nil
}

func (c *copier) copyRange(r Range) error {
	if r.Offset < c.cursor {
		return &InvariantError{Cursor: c.cursor, Offset: r.Offset}
	}
	// Ranges past EOF are left to the trailing hole.
	if r.Offset >= c.size {
		return nil
	}

	if r.Offset > c.cursor {
		if err := c.punch(r.Offset); err != nil {
			return err
		}
		if _, err := c.dst.Seek(r.Offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", c.dst.Name(), err)
		}
	}

	end := min(r.End(), c.size)
	for c.cursor < end {
		amount := int(min(end-c.cursor, int64(len(c.buf))))
		n, err := c.src.ReadAt(c.buf[:amount], c.cursor)
		if n > 0 {
			if _, werr := c.w.Write(c.buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", c.dst.Name(), werr)
			}
			c.cursor += int64(n)
			c.res.BytesCopied += int64(n)
			if c.progress != nil {
				c.progress(int64(n))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read %s: %w", c.src.Name(), err)
			}
			if n == 0 {
				return fmt.Errorf("read %s at %d: %w", c.src.Name(), c.cursor, io.ErrUnexpectedEOF)
			}
		}
	}
	return nil
}

// punch deallocates [cursor, end) in the destination and advances cursor.
// Buffered data is flushed first so the punch cannot be overwritten.
func (c *copier) punch(end int64) error {
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", c.dst.Name(), err)
	}
	if err := c.p.PunchHole(c.dst, c.cursor, end); err != nil {
		return err
	}
	c.log.Debug("punched hole", "off", c.cursor, "end", end)
	c.res.Holes++
	c.res.BytesPunched += end - c.cursor
	c.cursor = end
	return nil
}
