package glkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit/gl"
)

func TestTexture2DArrayAllocate(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")
	require.NoError(t, arr.Allocate(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 4, 4, 3))

	assert.Equal(t, 3, arr.Depth())
	assert.Equal(t, 4*4*4*3, arr.NumBytes())
	assert.Equal(t, 1, f.Count("TexImage3D"))
	w, h, d, _, ok := f.Level(arr.ID(), gl.Texture2DArray, 0)
	require.True(t, ok)
	assert.Equal(t, []int32{4, 4, 3}, []int32{w, h, d})

	require.NoError(t, arr.AllocateOrResize(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 4, 4, 3))
	assert.Equal(t, 1, f.Count("TexImage3D"))
	require.NoError(t, arr.AllocateOrResize(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 4, 4, 5))
	assert.Equal(t, 2, f.Count("TexImage3D"))
	assert.Equal(t, 5, arr.Depth())
}

func TestTexture2DArrayUpload(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")

	data := append(solid(2, 2, 255, 0, 0, 255), solid(2, 2, 0, 255, 0, 255)...)
	require.NoError(t, arr.Upload(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 2, 2, 2, data))
	assert.Equal(t, 1, f.Count("TexImage3D"))
	assert.Equal(t, 1, f.Count("TexSubImage3D"))
	assert.Zero(t, f.BoundBuffer(gl.PixelUnpackBuffer))

	_, _, d, texels, ok := f.Level(arr.ID(), gl.Texture2DArray, 0)
	require.True(t, ok)
	assert.Equal(t, int32(2), d)
	layer0 := ((0*2+1)*2 + 1) * 4
	layer1 := ((1*2+1)*2 + 1) * 4
	assert.Equal(t, []float32{1, 0, 0, 1}, texels[layer0:layer0+4])
	assert.Equal(t, []float32{0, 1, 0, 1}, texels[layer1:layer1+4])

	assert.ErrorIs(t, arr.Upload(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 2, 2, 3, data), ErrPrecondition)
	assert.ErrorIs(t, arr.Upload(gl.RGBA32F, gl.RGBA, gl.Float, 1, 1, 1, make([]byte, 16)), ErrPrecondition)

	require.NoError(t, arr.Upload(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 2, 2, 1, data))
	assert.Equal(t, 1, arr.Depth())
	assert.Equal(t, 2, f.Count("TexImage3D"))
	assert.Equal(t, 2, f.Count("TexSubImage3D"))
}

func TestTexture2DArrayImmutable(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")
	require.NoError(t, arr.AllocateImmutable(gl.R32F, gl.Red, gl.Float, 8, 8, 4))
	assert.True(t, arr.IsImmutable())

	calls := f.Named("TexStorage3D")
	require.Len(t, calls, 1)
	assert.Equal(t, int32(4), calls[0].Arg(5))

	assert.ErrorIs(t, arr.Resize(8, 8, 2), ErrImmutable)
	assert.ErrorIs(t, arr.Allocate(gl.R32F, gl.Red, gl.Float, 8, 8, 4), ErrImmutable)
	assert.ErrorIs(t, arr.AllocateImmutable(gl.R32F, gl.Red, gl.Float, 8, 8, 4), ErrImmutable)
	assert.Empty(t, f.PendingErrors())
}

func TestTexture2DArrayUploadRegion(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")
	assert.ErrorIs(t, arr.UploadRegion(0, 0, 0, 1, 1, 1, make([]byte, 4)), ErrPrecondition)

	require.NoError(t, arr.Allocate(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 4, 4, 3))
	require.NoError(t, arr.UploadRegion(1, 1, 2, 2, 2, 1, solid(2, 2, 0, 0, 255, 255)))

	_, _, _, texels, ok := f.Level(arr.ID(), gl.Texture2DArray, 0)
	require.True(t, ok)
	i := ((2*4+1)*4 + 1) * 4
	assert.Equal(t, float32(1), texels[i+2])
	j := ((1*4+1)*4 + 1) * 4
	assert.Equal(t, float32(0), texels[j+2], "other layers are untouched")

	assert.ErrorIs(t, arr.UploadRegion(3, 0, 0, 2, 1, 1, make([]byte, 8)), ErrPrecondition)
	assert.ErrorIs(t, arr.UploadRegion(0, 0, 2, 1, 1, 2, make([]byte, 8)), ErrPrecondition)
	assert.ErrorIs(t, arr.UploadRegion(-1, 0, 0, 1, 1, 1, make([]byte, 4)), ErrPrecondition)
	assert.ErrorIs(t, arr.UploadRegion(0, 0, 0, 2, 2, 1, make([]byte, 15)), ErrPrecondition)
}

func TestTexture2DArraySparse(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("virtual")
	require.NoError(t, arr.SetSparse(true))
	assert.True(t, arr.IsSparse())
	v, ok := f.TexParameter(arr.ID(), gl.TextureSparseARB)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)

	require.NoError(t, arr.AllocateImmutable(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 16, 16, 2))
	assert.ErrorIs(t, arr.SetSparse(false), ErrPrecondition)
	assert.True(t, arr.IsSparse())
}

func TestTexture2DArrayBindImageLayer(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")
	require.NoError(t, arr.Allocate(gl.RGBA32F, gl.RGBA, gl.Float, 4, 4, 3))
	s := newComputeShader(t, ctx)

	require.NoError(t, s.BindImageLayer(arr, 2, gl.WriteOnly, "img"))
	b := f.ImageUnit(0)
	assert.Equal(t, arr.ID(), b.Texture)
	assert.False(t, b.Layered)
	assert.Equal(t, int32(2), b.Layer)
	assert.Equal(t, uint32(gl.RGBA32F), b.Format)
}

func TestTexture2DArrayMoveKeepsRing(t *testing.T) {
	f, ctx := newTestContext(t)
	arr := ctx.NewTexture2DArray("layers")
	require.NoError(t, arr.Upload(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 1, 1, 1, []byte{1, 2, 3, 4}))
	ring := arr.UploadRing()

	moved := arr.Move()
	assert.Same(t, ring, moved.UploadRing())
	assert.ErrorIs(t, arr.UploadRegion(0, 0, 0, 1, 1, 1, []byte{1, 2, 3, 4}), ErrPrecondition)

	moved.Destroy()
	textures, buffers, _, _, _ := f.Live()
	assert.Zero(t, textures)
	assert.Zero(t, buffers)
}
