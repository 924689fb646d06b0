package interop

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by LoadCUDA when no CUDA runtime can be loaded.
var ErrUnavailable = errors.New("interop: runtime unavailable")

// Resource is a GL object registered with a compute runtime.
type Resource uintptr

// Runtime is the part of a GPU compute runtime the links need: graphics
// resource registration and mapping, device allocation and device to device
// copies. Pitches, widths and sizes are in bytes. Arrays are the opaque
// handles of mapped textures.
type Runtime interface {
	RegisterImage(texture, target uint32) (Resource, error)
	RegisterBuffer(buffer uint32) (Resource, error)
	Unregister(r Resource) error

	Map(r Resource) error
	Unmap(r Resource) error
	MappedArray(r Resource) (uintptr, error)
	MappedPointer(r Resource) (ptr uintptr, size int, err error)

	Malloc(size int) (uintptr, error)
	Free(ptr uintptr) error

	Memcpy(dst, src uintptr, size int) error
	Memcpy2D(dst uintptr, dpitch int, src uintptr, spitch int, width, height int) error
	Memcpy2DToArray(dst uintptr, src uintptr, spitch int, width, height int) error
	Memcpy2DFromArray(dst uintptr, dpitch int, src uintptr, width, height int) error

	Synchronize() error
}

// planarToInterleaved copies a CxHxW tensor at src into HxWxC order at dst,
// one strided copy per channel.
func planarToInterleaved(rt Runtime, dst, src uintptr, c, h, w, elem int) error {
	plane := h * w * elem
	for ch := 0; ch < c; ch++ {
		err := rt.Memcpy2D(dst+uintptr(ch*elem), c*elem, src+uintptr(ch*plane), elem, elem, h*w)
		if err != nil {
			return fmt.Errorf("interleave channel %d: %w", ch, err)
		}
	}
	return nil
}

// interleavedToPlanar is the inverse of planarToInterleaved.
func interleavedToPlanar(rt Runtime, dst, src uintptr, c, h, w, elem int) error {
	plane := h * w * elem
	for ch := 0; ch < c; ch++ {
		err := rt.Memcpy2D(dst+uintptr(ch*plane), elem, src+uintptr(ch*elem), c*elem, elem, h*w)
		if err != nil {
			return fmt.Errorf("split channel %d: %w", ch, err)
		}
	}
	return nil
}
