package glkit

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMat(t *testing.T) {
	m := NewMat(2, 3, 4, DepthF32)
	assert.Equal(t, 2*3*4*4, len(m.Data))
	assert.Equal(t, m.NumBytes(), len(m.Data))
	assert.Len(t, m.Float32s(), 24)
	assert.Nil(t, m.Int32s())

	m.Float32s()[5] = 0.5
	m.Scale(4)
	assert.Equal(t, float32(2), m.At(0, 1, 1))

	u := NewMat(2, 2, 1, DepthU8)
	assert.Len(t, u.Data, 4)
	assert.Nil(t, u.Float32s())

	s := NewMat(1, 2, 1, DepthS32)
	s.Int32s()[1] = -7
	assert.Equal(t, float32(-7), s.At(0, 1, 0))

	assert.True(t, NewMat(0, 4, 1, DepthF32).Empty())
	assert.False(t, m.Empty())
}

func TestMatFromImageRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	m := MatFromImage(img)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, 4, m.Channels)
	assert.Equal(t, DepthU8, m.Depth)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255, 10, 20, 30, 255}, m.Data)

	back, err := m.Image()
	require.NoError(t, err)
	assert.Equal(t, img.At(1, 1), back.At(1, 1))
}

func TestMatFromImageGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	sub := img.SubImage(image.Rect(1, 1, 3, 3))

	m := MatFromImage(sub)
	assert.Equal(t, 1, m.Channels)
	assert.Equal(t, []byte{5, 6, 9, 10}, m.Data)

	back, err := m.Image()
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 9}, back.At(0, 1))
}

func TestMatImageFloat(t *testing.T) {
	m := NewMat(1, 1, 3, DepthF32)
	copy(m.Float32s(), []float32{1, 0.5, 2})

	img, err := m.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 255, A: 255}, img.At(0, 0))

	_, err = NewMat(1, 1, 2, DepthU8).Image()
	assert.ErrorIs(t, err, ErrInvalidEnum)
}
