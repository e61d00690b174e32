//go:build linux

package sparse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const mib = 1 << 20

// makeSparseFile creates a file of size bytes with 4 KiB of data written at
// each of offsets and holes elsewhere.
func makeSparseFile(t *testing.T, path string, size int64, offsets ...int64) {
	t.Helper()
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	defer fd.Close()

	require.NoError(t, fd.Truncate(size))
	data := make([]byte, 4096)
	for i := range data {
		data[i] = 'S'
	}
	for _, off := range offsets {
		_, err := fd.WriteAt(data, off)
		require.NoError(t, err)
	}
}

func allocatedBytes(t *testing.T, path string) int64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	var total int64
	page := make([]Range, DefaultPageSize)
	for off, complete := int64(0), false; !complete && off < info.Size(); {
		var n int
		n, complete, err = seekPlatform{}.QueryAllocatedRanges(f, off, info.Size(), page)
		require.NoError(t, err)
		for _, r := range page[:n] {
			total += r.Length
			off = r.End()
		}
	}
	return total
}

func skipIfNoPunch(t *testing.T, err error) {
	t.Helper()
	var pe *PlatformError
	if errors.As(err, &pe) && (errors.Is(pe.Err, unix.EOPNOTSUPP) || errors.Is(pe.Err, unix.ENOSYS)) {
		t.Skipf("filesystem cannot punch holes: %v", err)
	}
}

func TestNative_Available(t *testing.T) {
	p, ok := Native()
	require.True(t, ok)
	assert.NotNil(t, p)
}

func TestSeekPlatform_QueryRanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sparse")
	makeSparseFile(t, path, 4*mib, mib, 3*mib)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	page := make([]Range, 8)
	n, complete, err := seekPlatform{}.QueryAllocatedRanges(f, 0, 4*mib, page)
	require.NoError(t, err)
	assert.True(t, complete)
	require.GreaterOrEqual(t, n, 1)

	var data int64
	for i, r := range page[:n] {
		if i > 0 {
			assert.GreaterOrEqual(t, r.Offset, page[i-1].End(), "ranges must not overlap")
		}
		data += r.Length
	}
	assert.GreaterOrEqual(t, data, int64(2*4096))
}

func TestSeekPlatform_QueryPaginates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sparse")
	makeSparseFile(t, path, 4*mib, 0, 2*mib)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	page := make([]Range, 1)
	n, complete, err := seekPlatform{}.QueryAllocatedRanges(f, 0, 4*mib, page)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	if page[0].End() >= 4*mib {
		t.Skip("filesystem reports the whole file as data")
	}
	assert.False(t, complete)
}

func TestSeekPlatform_QueryEmptyInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hole")
	makeSparseFile(t, path, mib)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n, complete, err := seekPlatform{}.QueryAllocatedRanges(f, 0, mib, make([]Range, 4))
	require.NoError(t, err)
	assert.True(t, complete)
	if n > 0 {
		t.Skip("filesystem reports holes as data")
	}
}

func TestCopyFile_NativeSparse(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	size := int64(8 * mib)
	makeSparseFile(t, src, size, mib, 5*mib)

	res, err := CopyFile(src, dst, Options{})
	skipIfNoPunch(t, err)
	require.NoError(t, err)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, size, res.Size)
	assert.LessOrEqual(t, allocatedBytes(t, dst), allocatedBytes(t, src))
}

func TestCopyFile_NativeSinglePage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	makeSparseFile(t, src, 6*mib, 0, 2*mib, 4*mib)

	res, err := CopyFile(src, dst, Options{PageSize: 1, BufferSize: 1000})
	skipIfNoPunch(t, err)
	require.NoError(t, err)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.GreaterOrEqual(t, res.Queries, 1)
}

func TestCopyFile_NativeTrailingHole(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	makeSparseFile(t, src, 3*mib, 0)

	_, err := CopyFile(src, dst, Options{})
	skipIfNoPunch(t, err)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(3*mib), info.Size())
}

func TestPunchHole_KeepsSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dense")
	data := make([]byte, mib)
	for i := range data {
		data[i] = 0xaa
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	err = seekPlatform{}.PunchHole(f, 4096, 8192)
	skipIfNoPunch(t, err)
	require.NoError(t, err)

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(mib), info.Size())

	buf := make([]byte, 4096)
	_, err = f.ReadAt(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4096), buf)
}
