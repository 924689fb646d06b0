//go:build !linux

package interop

// LoadCUDA reports ErrUnavailable: CUDA graphics interop is only wired up
// on Linux.
func LoadCUDA() (Runtime, error) {
	return nil, ErrUnavailable
}
