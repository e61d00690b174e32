// Package sparse copies regular files while keeping their holes. The source's
// allocated ranges are enumerated through a RangeQuerier, only those ranges
// are copied, and every gap in between is deallocated in the destination
// through a HolePuncher.
package sparse

import "os"

// Range is a half-open byte interval [Offset, Offset+Length) of a file that
// is backed by storage. Queries return ranges in ascending, non-overlapping
// offset order.
type Range struct {
	Offset int64
	Length int64
}

// End returns the first offset past the range.
func (r Range) End() int64 {
	return r.Offset + r.Length
}

// RangeQuerier enumerates allocated ranges of an open file.
type RangeQuerier interface {
	// QueryAllocatedRanges fills page with the allocated ranges found in
	// [off, end) and returns how many entries it wrote. complete is false
	// when page filled up before the interval was exhausted; the entries
	// written are still valid and the caller re-queries from where they end.
	QueryAllocatedRanges(f *os.File, off, end int64, page []Range) (n int, complete bool, err error)
}

// HolePuncher deallocates byte ranges of an open file.
type HolePuncher interface {
	// MarkSparse flags f as sparse-capable. Called once before the first write.
	MarkSparse(f *os.File) error
	// PunchHole deallocates [off, end) of f without changing its length.
	PunchHole(f *os.File, off, end int64) error
}

// Platform bundles the two capabilities the copy loop depends on.
type Platform interface {
	RangeQuerier
	HolePuncher
}

// Native returns the sparse primitives of the running OS. ok is false when
// the OS has none; callers then fall back to a plain byte copy.
//
//nolint:ireturn // one backend per OS behind the interface
func Native() (p Platform, ok bool) {
	return native()
}
