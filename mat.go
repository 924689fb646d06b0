package glkit

import (
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"
)

// Mat is a dense row-major matrix of interleaved channels, the host side of
// texture transfers.
type Mat struct {
	Rows     int
	Cols     int
	Channels int
	Depth    Depth
	Data     []byte
}

// NewMat allocates a zeroed matrix. Float and int32 matrices are backed by
// 4-byte aligned memory so Float32s can view them in place.
func NewMat(rows, cols, channels int, depth Depth) *Mat {
	m := &Mat{Rows: rows, Cols: cols, Channels: channels, Depth: depth}
	n := rows * cols * channels
	if depth == DepthU8 {
		m.Data = make([]byte, n)
		return m
	}
	words := make([]float32, n)
	if n > 0 {
		m.Data = unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n*4)
	} else {
		m.Data = []byte{}
	}
	return m
}

// Empty reports whether the matrix holds no elements.
func (m *Mat) Empty() bool {
	return m == nil || m.Rows*m.Cols*m.Channels == 0
}

// NumBytes is the size of Data the shape requires.
func (m *Mat) NumBytes() int {
	return m.Rows * m.Cols * m.Channels * m.Depth.Size()
}

// Float32s views the data of a DepthF32 matrix.
func (m *Mat) Float32s() []float32 {
	if m.Depth != DepthF32 || len(m.Data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&m.Data[0])), len(m.Data)/4)
}

// Int32s views the data of a DepthS32 matrix.
func (m *Mat) Int32s() []int32 {
	if m.Depth != DepthS32 || len(m.Data) < 4 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&m.Data[0])), len(m.Data)/4)
}

// At returns element (row, col, channel) as a float.
func (m *Mat) At(row, col, ch int) float32 {
	i := (row*m.Cols+col)*m.Channels + ch
	switch m.Depth {
	case DepthF32:
		return m.Float32s()[i]
	case DepthS32:
		return float32(m.Int32s()[i])
	}
	return float32(m.Data[i])
}

// Scale multiplies every element of a float matrix by f.
func (m *Mat) Scale(f float32) {
	data := m.Float32s()
	for i := range data {
		data[i] *= f
	}
}

// MatFromImage converts an image to a DepthU8 matrix. Gray images keep one
// channel, everything else becomes straight RGBA.
func MatFromImage(img image.Image) *Mat {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		m := NewMat(b.Dy(), b.Dx(), 1, DepthU8)
		for y := 0; y < b.Dy(); y++ {
			copy(m.Data[y*b.Dx():(y+1)*b.Dx()], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return m
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	m := NewMat(b.Dy(), b.Dx(), 4, DepthU8)
	row := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		copy(m.Data[y*row:(y+1)*row], rgba.Pix[y*rgba.Stride:])
	}
	return m
}

// Image converts a 1, 3 or 4 channel matrix to an image. Float matrices are
// expected in [0,1].
func (m *Mat) Image() (image.Image, error) {
	rect := image.Rect(0, 0, m.Cols, m.Rows)
	switch m.Channels {
	case 1:
		img := image.NewGray(rect)
		for y := 0; y < m.Rows; y++ {
			for x := 0; x < m.Cols; x++ {
				img.SetGray(x, y, color.Gray{Y: m.byteAt(y, x, 0)})
			}
		}
		return img, nil
	case 3, 4:
		img := image.NewNRGBA(rect)
		for y := 0; y < m.Rows; y++ {
			for x := 0; x < m.Cols; x++ {
				c := color.NRGBA{R: m.byteAt(y, x, 0), G: m.byteAt(y, x, 1), B: m.byteAt(y, x, 2), A: 255}
				if m.Channels == 4 {
					c.A = m.byteAt(y, x, 3)
				}
				img.SetNRGBA(x, y, c)
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: cannot convert a %d channel matrix to an image", ErrInvalidEnum, m.Channels)
}

func (m *Mat) byteAt(row, col, ch int) uint8 {
	v := m.At(row, col, ch)
	if m.Depth == DepthF32 {
		v = math32.Round(v * 255)
	}
	return uint8(max(0, min(255, v)))
}
