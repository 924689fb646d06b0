package gltest

import "github.com/tinyrange/glkit/gl"

type storageKind int

const (
	kindNorm storageKind = iota
	kindSNorm
	kindFloat
	kindInt
	kindDepth
)

type internalInfo struct {
	channels int
	kind     storageKind
}

var internalFormats = map[int32]internalInfo{
	gl.R8:          {1, kindNorm},
	gl.R16:         {1, kindNorm},
	gl.RG8:         {2, kindNorm},
	gl.RG16:        {2, kindNorm},
	gl.RGB8:        {3, kindNorm},
	gl.RGB10:       {3, kindNorm},
	gl.RGB12:       {3, kindNorm},
	gl.SRGB8:       {3, kindNorm},
	gl.RGBA8:       {4, kindNorm},
	gl.RGBA12:      {4, kindNorm},
	gl.RGBA16:      {4, kindNorm},
	gl.RGB10A2:     {4, kindNorm},
	gl.SRGB8Alpha8: {4, kindNorm},
	gl.R8SNorm:     {1, kindSNorm},
	gl.RG8SNorm:    {2, kindSNorm},
	gl.RGB8SNorm:   {3, kindSNorm},
	gl.RGBA8SNorm:  {4, kindSNorm},

	gl.R16F:         {1, kindFloat},
	gl.RG16F:        {2, kindFloat},
	gl.RGB16F:       {3, kindFloat},
	gl.RGBA16F:      {4, kindFloat},
	gl.R32F:         {1, kindFloat},
	gl.RG32F:        {2, kindFloat},
	gl.RGB32F:       {3, kindFloat},
	gl.RGBA32F:      {4, kindFloat},
	gl.R11FG11FB10F: {3, kindFloat},

	gl.R8I:      {1, kindInt},
	gl.R8UI:     {1, kindInt},
	gl.R32I:     {1, kindInt},
	gl.R32UI:    {1, kindInt},
	gl.RG8I:     {2, kindInt},
	gl.RG8UI:    {2, kindInt},
	gl.RG32I:    {2, kindInt},
	gl.RG32UI:   {2, kindInt},
	gl.RGB8I:    {3, kindInt},
	gl.RGB8UI:   {3, kindInt},
	gl.RGB32I:   {3, kindInt},
	gl.RGB32UI:  {3, kindInt},
	gl.RGBA8I:   {4, kindInt},
	gl.RGBA8UI:  {4, kindInt},
	gl.RGBA32I:  {4, kindInt},
	gl.RGBA32UI: {4, kindInt},

	gl.DepthComponent16:  {1, kindDepth},
	gl.DepthComponent24:  {1, kindDepth},
	gl.DepthComponent32:  {1, kindDepth},
	gl.DepthComponent32F: {1, kindDepth},
}

func infoFor(internalFormat int32) internalInfo {
	if info, ok := internalFormats[internalFormat]; ok {
		return info
	}
	return internalInfo{channels: 4, kind: kindFloat}
}

// layout maps each client component to an RGBA index.
func layout(format uint32) ([]int, bool) {
	switch format {
	case gl.Red, gl.RedInteger, gl.DepthComponent:
		return []int{0}, true
	case gl.RG, gl.RGInteger:
		return []int{0, 1}, true
	case gl.RGB, gl.RGBInteger:
		return []int{0, 1, 2}, true
	case gl.BGR, gl.BGRInteger:
		return []int{2, 1, 0}, true
	case gl.RGBA, gl.RGBAInteger:
		return []int{0, 1, 2, 3}, true
	case gl.BGRA, gl.BGRAInteger:
		return []int{2, 1, 0, 3}, true
	}
	return nil, false
}

func componentSize(xtype uint32) (int, bool) {
	switch xtype {
	case gl.UnsignedByte, gl.Byte:
		return 1, true
	case gl.UnsignedShort, gl.Short:
		return 2, true
	case gl.UnsignedInt, gl.Int, gl.Float:
		return 4, true
	}
	return 0, false
}

// rowStride is the distance in bytes between rows for the given alignment.
func rowStride(width, comps, size, alignment int) int {
	row := width * comps * size
	if alignment <= 1 || row%alignment == 0 {
		return row
	}
	return row + alignment - row%alignment
}
