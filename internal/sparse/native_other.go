//go:build !linux && !windows

package sparse

//nolint:ireturn // see Native
func native() (Platform, bool) {
	return nil, false
}
