package engine

// FileTask describes a single source-to-destination copy.
type FileTask struct {
	SrcPath string
	DstPath string // resolved: a directory target already has the base name appended
	Size    int64
}
