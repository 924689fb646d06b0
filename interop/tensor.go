// Package interop moves data between glkit textures or buffers and tensors
// living in the memory of a GPU compute runtime, without a round trip
// through host memory.
//
// Images cross the boundary as NCHW tensors with N == 1 and 1, 2 or 4
// channels. CUDA cannot register 3 channel textures.
package interop

import (
	"fmt"

	"github.com/tinyrange/glkit"
	"github.com/tinyrange/glkit/gl"
)

// DType is the element type of a tensor.
type DType int

const (
	Uint8 DType = iota
	Int32
	Float32
)

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// Size is the byte size of one element.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int32, Float32:
		return 4
	}
	return 0
}

func (d DType) depth() (glkit.Depth, bool) {
	switch d {
	case Uint8:
		return glkit.DepthU8, true
	case Int32:
		return glkit.DepthS32, true
	case Float32:
		return glkit.DepthF32, true
	}
	return 0, false
}

// Tensor describes a contiguous block of device memory. Ptr is a device
// pointer owned by whoever allocated it.
type Tensor struct {
	Ptr   uintptr
	Shape []int
	DType DType
}

// NumElements is the product of the shape.
func (t Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range t.Shape {
		n *= s
	}
	return n
}

func (t Tensor) NumBytes() int { return t.NumElements() * t.DType.Size() }

// imageDims returns channels, height and width of a 1xCxHxW tensor.
func (t Tensor) imageDims() (c, h, w int, err error) {
	if len(t.Shape) != 4 || t.Shape[0] != 1 {
		return 0, 0, 0, fmt.Errorf("%w: image tensors are 1xCxHxW, got shape %v", glkit.ErrPrecondition, t.Shape)
	}
	c, h, w = t.Shape[1], t.Shape[2], t.Shape[3]
	if c != 1 && c != 2 && c != 4 {
		return 0, 0, 0, fmt.Errorf("%w: %d channel tensors cannot be shared, only 1, 2 and 4", glkit.ErrInvalidEnum, c)
	}
	if h < 1 || w < 1 {
		return 0, 0, 0, fmt.Errorf("%w: empty tensor %v", glkit.ErrPrecondition, t.Shape)
	}
	return c, h, w, nil
}

// TensorTriple picks the texture format a tensor with the given channel
// count and element type is stored in. Unsigned bytes are normalized unless
// normalized is false, in which case an integer format is used. Signed
// integer tensors cannot be uploaded.
func TensorTriple(channels int, dtype DType, flipRedBlue, normalized bool) (glkit.Triple, error) {
	if channels == 3 {
		return glkit.Triple{}, fmt.Errorf("%w: 3 channel tensors cannot be shared", glkit.ErrInvalidEnum)
	}
	depth, ok := dtype.depth()
	if !ok {
		return glkit.Triple{}, fmt.Errorf("%w: tensor type %s", glkit.ErrInvalidEnum, dtype)
	}
	return glkit.MatTriple(depth, channels, flipRedBlue, normalized)
}

// textureTensors lists the internal formats a texture can be read into a
// tensor from.
var textureTensors = map[int32]struct {
	channels int
	dtype    DType
}{
	gl.R8UI:    {1, Uint8},
	gl.RG8UI:   {2, Uint8},
	gl.RGBA8UI: {4, Uint8},
	gl.R8:      {1, Uint8},
	gl.RG8:     {2, Uint8},
	gl.RGBA8:   {4, Uint8},
	gl.R32I:    {1, Int32},
	gl.RG32I:   {2, Int32},
	gl.RGBA32I: {4, Int32},
	gl.R32F:    {1, Float32},
	gl.RG32F:   {2, Float32},
	gl.RGBA32F: {4, Float32},
}

// TextureTensor is the channel count and element type of the tensor a
// texture of the given internal format reads into.
func TextureTensor(internalFormat int32) (int, DType, error) {
	t, ok := textureTensors[internalFormat]
	if !ok {
		return 0, 0, fmt.Errorf("%w: internal format 0x%X cannot be shared, use 8, 8UI, 32I or 32F with 1, 2 or 4 channels", glkit.ErrInvalidEnum, internalFormat)
	}
	return t.channels, t.dtype, nil
}
