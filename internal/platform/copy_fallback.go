//go:build !linux && !darwin

package platform

// CopyFile falls back to read/write on platforms without a faster path.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	return copyWith(params, copyReadWrite)
}
