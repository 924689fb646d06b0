package glkit

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/tinyrange/glkit/gl"
)

type set[T comparable] map[T]struct{}

func newSet[T comparable](items ...T) set[T] {
	s := make(set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

// Sized internal formats accepted for texture storage. Unsized formats such
// as GL_RGBA are deliberately absent.
var internalFormats = newSet[int32](
	gl.R8, gl.R8SNorm, gl.R16, gl.R16SNorm,
	gl.RG8, gl.RG8SNorm, gl.RG16, gl.RG16SNorm,
	gl.R3G3B2, gl.RGB4, gl.RGB5, gl.RGB8, gl.RGB8SNorm, gl.RGB10, gl.RGB12, gl.RGB16SNorm,
	gl.RGBA2, gl.RGBA4, gl.RGB5A1, gl.RGBA8, gl.RGBA8SNorm, gl.RGB10A2, gl.RGB10A2UI, gl.RGBA12, gl.RGBA16,
	gl.SRGB8, gl.SRGB8Alpha8,
	gl.R16F, gl.RG16F, gl.RGB16F, gl.RGBA16F,
	gl.R32F, gl.RG32F, gl.RGB32F, gl.RGBA32F,
	gl.R11FG11FB10F, gl.RGB9E5,
	gl.R8I, gl.R8UI, gl.R16I, gl.R16UI, gl.R32I, gl.R32UI,
	gl.RG8I, gl.RG8UI, gl.RG16I, gl.RG16UI, gl.RG32I, gl.RG32UI,
	gl.RGB8I, gl.RGB8UI, gl.RGB16I, gl.RGB16UI, gl.RGB32I, gl.RGB32UI,
	gl.RGBA8I, gl.RGBA8UI, gl.RGBA16I, gl.RGBA16UI, gl.RGBA32I, gl.RGBA32UI,
	gl.DepthComponent32F, gl.DepthComponent32, gl.DepthComponent24, gl.DepthComponent16,
	gl.Depth24Stencil8, gl.Depth32FStencil8, gl.StencilIndex8,
)

var pixelFormats = newSet[uint32](
	gl.Red, gl.RG, gl.RGB, gl.BGR, gl.RGBA, gl.BGRA,
	gl.RedInteger, gl.RGInteger, gl.RGBInteger, gl.BGRInteger, gl.RGBAInteger, gl.BGRAInteger,
	gl.StencilIndex, gl.DepthComponent, gl.DepthStencil,
)

var pixelTypes = newSet[uint32](
	gl.UnsignedByte, gl.Byte, gl.UnsignedShort, gl.Short, gl.UnsignedInt, gl.Int,
	gl.Float, gl.HalfFloat,
	gl.UnsignedByte332, gl.UnsignedByte233Rev,
	gl.UnsignedShort565, gl.UnsignedShort565Rev,
	gl.UnsignedShort4444, gl.UnsignedShort4444Rev,
	gl.UnsignedShort5551, gl.UnsignedShort1555Rev,
	gl.UnsignedInt8888, gl.UnsignedInt8888Rev,
	gl.UnsignedInt1010102, gl.UnsignedInt2101010Rev,
)

// Internal formats usable with glBindImageTexture.
var imageFormats = newSet[int32](
	gl.RGBA32F, gl.RGBA16F, gl.RG32F, gl.RG16F, gl.R11FG11FB10F, gl.R32F, gl.R16F,
	gl.RGBA16, gl.RGB10A2, gl.RGBA8, gl.RG16, gl.RG8, gl.R16, gl.R8,
	gl.RGBA16SNorm, gl.RGBA8SNorm, gl.RG16SNorm, gl.RG8SNorm, gl.R16SNorm,
	gl.RGBA32UI, gl.RGBA16UI, gl.RGB10A2UI, gl.RGBA8UI, gl.RG32UI, gl.RG16UI, gl.RG8UI, gl.R32UI, gl.R16UI, gl.R8UI,
	gl.RGBA32I, gl.RGBA16I, gl.RGBA8I, gl.RG32I, gl.RG16I, gl.RG8I, gl.R32I, gl.R16I, gl.R8I,
)

func ValidInternalFormat(f int32) bool { return internalFormats.has(f) }
func ValidFormat(f uint32) bool        { return pixelFormats.has(f) }
func ValidType(t uint32) bool          { return pixelTypes.has(t) }
func ValidImageFormat(f int32) bool    { return imageFormats.has(f) }

// Triple is the (internal format, pixel format, pixel type) a texture is
// allocated and transferred with.
type Triple struct {
	InternalFormat int32
	Format         uint32
	Type           uint32
}

// unsetTriple is the triple of storage that was never allocated.
var unsetTriple = Triple{InternalFormat: InvalidID, Format: InvalidID, Type: InvalidID}

func (t Triple) String() string {
	return fmt.Sprintf("(0x%04X, 0x%04X, 0x%04X)", t.InternalFormat, t.Format, t.Type)
}

func (t Triple) set() bool {
	return t.InternalFormat != InvalidID && t.Format != InvalidID && t.Type != InvalidID
}

// Validate checks each member against its allow-list.
func (t Triple) Validate() error {
	if msg := t.problem(); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidEnum, msg)
	}
	return nil
}

func (t Triple) problem() string {
	switch {
	case !ValidInternalFormat(t.InternalFormat):
		return fmt.Sprintf("internal format 0x%X is not allowed", t.InternalFormat)
	case !ValidFormat(t.Format):
		return fmt.Sprintf("format 0x%X is not allowed", t.Format)
	case !ValidType(t.Type):
		return fmt.Sprintf("type 0x%X is not allowed", t.Type)
	}
	return ""
}

// Channels returns the components per pixel of a pixel format, or 0 when the
// format is not a colour or depth format.
func Channels(format uint32) int {
	switch format {
	case gl.Red, gl.RedInteger, gl.DepthComponent, gl.StencilIndex:
		return 1
	case gl.RG, gl.RGInteger, gl.DepthStencil:
		return 2
	case gl.RGB, gl.BGR, gl.RGBInteger, gl.BGRInteger:
		return 3
	case gl.RGBA, gl.BGRA, gl.RGBAInteger, gl.BGRAInteger:
		return 4
	}
	return 0
}

// BytesPerElement returns the size of one component of a pixel type, or 0
// for packed types.
func BytesPerElement(typ uint32) int {
	switch typ {
	case gl.UnsignedByte, gl.Byte:
		return 1
	case gl.UnsignedShort, gl.Short, gl.HalfFloat:
		return 2
	case gl.UnsignedInt, gl.Int, gl.Float:
		return 4
	}
	return 0
}

// Depth is the element type of a Mat.
type Depth int

const (
	DepthU8 Depth = iota
	DepthS32
	DepthF32
)

func (d Depth) String() string {
	switch d {
	case DepthU8:
		return "u8"
	case DepthS32:
		return "s32"
	case DepthF32:
		return "f32"
	}
	return fmt.Sprintf("Depth(%d)", int(d))
}

// Size is the byte size of one element.
func (d Depth) Size() int {
	if d == DepthU8 {
		return 1
	}
	return 4
}

// MatTriple maps a matrix element type and channel count to the triple used
// to store it. Byte matrices are stored normalized (R8..RGBA8, sampled as
// floats in [0,1]) unless normalized is false, in which case they are stored
// as unsigned integers (R8UI..RGBA8UI). flipRedBlue selects BGR and BGRA
// layouts for 3 and 4 channels.
func MatTriple(depth Depth, channels int, flipRedBlue, normalized bool) (Triple, error) {
	if channels < 1 || channels > 4 {
		return Triple{}, fmt.Errorf("%w: %d channels, only 1, 2, 3 and 4 are supported", ErrInvalidEnum, channels)
	}
	idx := channels - 1

	var t Triple
	switch {
	case depth == DepthU8 && normalized:
		t.Type = gl.UnsignedByte
		t.InternalFormat = [4]int32{gl.R8, gl.RG8, gl.RGB8, gl.RGBA8}[idx]
		t.Format = [4]uint32{gl.Red, gl.RG, gl.RGB, gl.RGBA}[idx]
		if flipRedBlue {
			t.Format = [4]uint32{gl.Red, gl.RG, gl.BGR, gl.BGRA}[idx]
		}
	case depth == DepthU8:
		t.Type = gl.UnsignedByte
		t.InternalFormat = [4]int32{gl.R8UI, gl.RG8UI, gl.RGB8UI, gl.RGBA8UI}[idx]
		t.Format = [4]uint32{gl.RedInteger, gl.RGInteger, gl.RGBInteger, gl.RGBAInteger}[idx]
		if flipRedBlue {
			t.Format = [4]uint32{gl.RedInteger, gl.RGInteger, gl.BGRInteger, gl.BGRAInteger}[idx]
		}
	case depth == DepthF32:
		t.Type = gl.Float
		t.InternalFormat = [4]int32{gl.R32F, gl.RG32F, gl.RGB32F, gl.RGBA32F}[idx]
		t.Format = [4]uint32{gl.Red, gl.RG, gl.RGB, gl.RGBA}[idx]
		if flipRedBlue {
			t.Format = [4]uint32{gl.Red, gl.RG, gl.BGR, gl.BGRA}[idx]
		}
	default:
		return Triple{}, fmt.Errorf("%w: matrices of %s elements cannot be uploaded, use u8 or f32", ErrInvalidEnum, depth)
	}
	return t, nil
}

// InternalFormatMat maps an internal format back to the matrix element type
// and channel count it holds.
func InternalFormatMat(internalFormat int32) (Depth, int, error) {
	switch internalFormat {
	case gl.R8UI, gl.R8:
		return DepthU8, 1, nil
	case gl.RG8UI, gl.RG8:
		return DepthU8, 2, nil
	case gl.RGB8UI, gl.RGB8:
		return DepthU8, 3, nil
	case gl.RGBA8UI, gl.RGBA8:
		return DepthU8, 4, nil
	case gl.R32I:
		return DepthS32, 1, nil
	case gl.RG32I:
		return DepthS32, 2, nil
	case gl.RGB32I:
		return DepthS32, 3, nil
	case gl.RGBA32I:
		return DepthS32, 4, nil
	case gl.R32F:
		return DepthF32, 1, nil
	case gl.RG32F:
		return DepthF32, 2, nil
	case gl.RGB32F:
		return DepthF32, 3, nil
	case gl.RGBA32F:
		return DepthF32, 4, nil
	}
	return 0, 0, fmt.Errorf("%w: internal format 0x%X has no matrix equivalent, only 8, 8UI, 32I and 32F formats with 1 to 4 channels do", ErrInvalidEnum, internalFormat)
}

// FormatAndType returns the pixel format and type data for internalFormat
// is transferred with.
func FormatAndType(internalFormat int32, flipRedBlue, normalized bool) (uint32, uint32, error) {
	depth, channels, err := InternalFormatMat(internalFormat)
	if err != nil {
		return 0, 0, err
	}
	t, err := MatTriple(depth, channels, flipRedBlue, normalized)
	if err != nil {
		return 0, 0, err
	}
	return t.Format, t.Type, nil
}

// normalizedByte reports whether internalFormat stores bytes sampled as
// floats in [0,1].
func normalizedByte(internalFormat int32) bool {
	switch internalFormat {
	case gl.R8, gl.RG8, gl.RGB8, gl.RGBA8, gl.SRGB8, gl.SRGB8Alpha8:
		return true
	}
	return false
}

func depthFormat(internalFormat int32) bool {
	switch internalFormat {
	case gl.DepthComponent16, gl.DepthComponent24, gl.DepthComponent32, gl.DepthComponent32F:
		return true
	}
	return false
}

// MipmapHighestLevel is floor(log2(max(w, h))), the index of the smallest
// level of a full chain.
func MipmapHighestLevel(w, h int) int {
	m := max(w, h)
	if m < 1 {
		return 0
	}
	return int(math32.Floor(math32.Log2(float32(m))))
}

// LevelSize returns the size of one dimension at a mip level.
func LevelSize(size, level int) int {
	return max(1, size>>level)
}

// rowAligned reports whether a tightly packed row of w pixels satisfies the
// default pack and unpack alignment of 4.
func rowAligned(w, channels, bytesPerElement int) bool {
	return (w*channels*bytesPerElement)%4 == 0
}

// readback describes how DownloadMat reads a texture: the matrix it fills
// and the pixel format and type it asks GL for.
type readback struct {
	depth    Depth
	channels int
	format   uint32
	typ      uint32
}

// readbackFor picks the readback of an internal format. Normalized bytes are
// read as floats in [0,1], integer formats raw and depth as one float.
func readbackFor(internalFormat int32) (readback, error) {
	if depthFormat(internalFormat) {
		return readback{depth: DepthF32, channels: 1, format: gl.DepthComponent, typ: gl.Float}, nil
	}
	depth, channels, err := InternalFormatMat(internalFormat)
	if err != nil {
		return readback{}, err
	}
	idx := channels - 1
	plain := [4]uint32{gl.Red, gl.RG, gl.RGB, gl.RGBA}[idx]
	integer := [4]uint32{gl.RedInteger, gl.RGInteger, gl.RGBInteger, gl.RGBAInteger}[idx]
	switch {
	case depth == DepthU8 && normalizedByte(internalFormat):
		return readback{depth: DepthF32, channels: channels, format: plain, typ: gl.Float}, nil
	case depth == DepthU8:
		return readback{depth: DepthU8, channels: channels, format: integer, typ: gl.UnsignedByte}, nil
	case depth == DepthS32:
		return readback{depth: DepthS32, channels: channels, format: integer, typ: gl.Int}, nil
	}
	return readback{depth: DepthF32, channels: channels, format: plain, typ: gl.Float}, nil
}
