//go:build !linux && !darwin && !windows

package platform

import "context"

// AllocatedSize asks du(1) on platforms without a native query.
func AllocatedSize(path string) (int64, error) {
	return DuSize(context.Background(), path)
}
