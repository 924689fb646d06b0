package interop

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit"
	"github.com/tinyrange/glkit/gl"
	"github.com/tinyrange/glkit/gl/gltest"
)

func newTestContext(t *testing.T) (*gltest.Fake, *glkit.Context) {
	t.Helper()
	f := gltest.New()
	ctx, err := glkit.NewContext(f)
	require.NoError(t, err)
	f.ResetCalls()
	return f, ctx
}

func float32Bytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(x))
	}
	return out
}

func TestTensorTriple(t *testing.T) {
	for _, tc := range []struct {
		channels   int
		dtype      DType
		flip, norm bool
		want       glkit.Triple
	}{
		{4, Uint8, false, true, glkit.Triple{InternalFormat: gl.RGBA8, Format: gl.RGBA, Type: gl.UnsignedByte}},
		{4, Uint8, true, true, glkit.Triple{InternalFormat: gl.RGBA8, Format: gl.BGRA, Type: gl.UnsignedByte}},
		{1, Uint8, false, false, glkit.Triple{InternalFormat: gl.R8UI, Format: gl.RedInteger, Type: gl.UnsignedByte}},
		{2, Float32, false, true, glkit.Triple{InternalFormat: gl.RG32F, Format: gl.RG, Type: gl.Float}},
	} {
		got, err := TensorTriple(tc.channels, tc.dtype, tc.flip, tc.norm)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%d x %s", tc.channels, tc.dtype)
	}

	_, err := TensorTriple(3, Uint8, false, true)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	_, err = TensorTriple(1, Int32, false, true)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	_, err = TensorTriple(1, DType(9), false, true)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
}

func TestTextureTensor(t *testing.T) {
	c, dtype, err := TextureTensor(gl.RGBA8)
	require.NoError(t, err)
	assert.Equal(t, 4, c)
	assert.Equal(t, Uint8, dtype)

	c, dtype, err = TextureTensor(gl.R32I)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
	assert.Equal(t, Int32, dtype)

	_, _, err = TextureTensor(gl.RGB8)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	_, _, err = TextureTensor(gl.RGBA16F)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
}

func TestTensorShape(t *testing.T) {
	tensor := Tensor{Shape: []int{1, 4, 2, 3}, DType: Float32}
	assert.Equal(t, 24, tensor.NumElements())
	assert.Equal(t, 96, tensor.NumBytes())
	assert.Zero(t, Tensor{}.NumElements())
	assert.Equal(t, "int32", Int32.String())

	_, _, _, err := Tensor{Shape: []int{2, 1, 1, 1}}.imageDims()
	assert.ErrorIs(t, err, glkit.ErrPrecondition)
	_, _, _, err = Tensor{Shape: []int{1, 3, 1, 1}}.imageDims()
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	_, _, _, err = Tensor{Shape: []int{1, 1, 0, 4}}.imageDims()
	assert.ErrorIs(t, err, glkit.ErrPrecondition)
}

func TestTextureLinkRoundTrip(t *testing.T) {
	f, ctx := newTestContext(t)
	tex := ctx.NewTexture2D("features")
	rt := newFakeRuntime(f)
	link := NewTextureLink(rt, tex)

	const c, h, w = 4, 2, 3
	planar := make([]float32, c*h*w)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				planar[(ch*h+y)*w+x] = float32(ch*100 + y*10 + x)
			}
		}
	}
	in := Tensor{Ptr: rt.upload(float32Bytes(planar)), Shape: []int{1, c, h, w}, DType: Float32}

	require.NoError(t, link.Upload(in, false, true))
	assert.Equal(t, w, tex.Width())
	assert.Equal(t, h, tex.Height())
	assert.Equal(t, int32(gl.RGBA32F), tex.InternalFormat())
	assert.Equal(t, []string{fmt.Sprintf("register image %d", tex.ID()), "map", "unmap"}, rt.events)

	array := rt.arrays[Resource(1)]
	require.Len(t, array, c*h*w*4)
	at := ((1*w+2)*c + 3) * 4
	assert.Equal(t, float32(312), math.Float32frombits(binary.LittleEndian.Uint32(array[at:])), "texels are interleaved")
	assert.Equal(t, 1, rt.live(), "the staging copy is freed")

	out, err := link.Download()
	require.NoError(t, err)
	assert.Equal(t, []int{1, c, h, w}, out.Shape)
	assert.Equal(t, Float32, out.DType)
	assert.Equal(t, float32Bytes(planar), rt.read(out.Ptr))
	assert.Equal(t, 1, rt.count("register"))
	assert.Equal(t, 2, rt.live())

	require.NoError(t, link.Close())
	assert.Empty(t, rt.registeredIDs())
	textures, _, _, _, _ := f.Live()
	assert.Equal(t, 1, textures, "closing the link keeps the texture")
}

func TestTextureLinkReregistersOnResize(t *testing.T) {
	f, ctx := newTestContext(t)
	tex := ctx.NewTexture2D("mask")
	rt := newFakeRuntime(f)
	link := NewTextureLink(rt, tex)

	small := Tensor{Ptr: rt.upload([]byte{1, 2, 3, 4}), Shape: []int{1, 1, 2, 2}, DType: Uint8}
	require.NoError(t, link.Upload(small, false, true))
	assert.Equal(t, 1, rt.mallocs, "single channel tensors are copied directly")
	assert.Equal(t, []byte{1, 2, 3, 4}, rt.arrays[Resource(1)])
	assert.Equal(t, int32(gl.R8), tex.InternalFormat())

	require.NoError(t, link.Upload(small, false, true))
	assert.Equal(t, 1, rt.count("register"))

	large := Tensor{Ptr: rt.upload(make([]byte, 16)), Shape: []int{1, 1, 4, 4}, DType: Uint8}
	require.NoError(t, link.Upload(large, false, true))
	assert.Equal(t, 4, tex.Width())
	assert.Equal(t, 2, rt.count("register"))
	assert.Equal(t, 1, rt.count("unregister"))
	assert.Equal(t, []uint32{tex.ID()}, rt.registeredIDs())

	require.NoError(t, link.Close())
	require.NoError(t, link.Close())
	assert.Equal(t, 2, rt.count("unregister"))
}

func TestTextureLinkRejects(t *testing.T) {
	f, ctx := newTestContext(t)
	tex := ctx.NewTexture2D("rgb")
	rt := newFakeRuntime(f)
	link := NewTextureLink(rt, tex)

	err := link.Upload(Tensor{Ptr: rt.upload(make([]byte, 12)), Shape: []int{1, 3, 2, 2}, DType: Uint8}, false, true)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	err = link.Upload(Tensor{Shape: []int{2, 4, 2, 2}, DType: Uint8}, false, true)
	assert.ErrorIs(t, err, glkit.ErrPrecondition)
	err = link.Upload(Tensor{Shape: []int{1, 1, 2, 2}, DType: Int32}, false, true)
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)
	assert.Zero(t, f.Count("TexImage2D"))

	_, err = link.Download()
	assert.ErrorIs(t, err, glkit.ErrPrecondition)

	require.NoError(t, tex.Allocate(gl.RGB8, gl.RGB, gl.UnsignedByte, 2, 2))
	_, err = link.Download()
	assert.ErrorIs(t, err, glkit.ErrInvalidEnum)

	rgba := ctx.NewTexture2D("rgba")
	require.NoError(t, rgba.Allocate(gl.RGBA8, gl.RGBA, gl.UnsignedByte, 2, 2))
	err = NewTextureLink(rt, rgba).Upload(Tensor{Ptr: rt.upload(make([]byte, 64)), Shape: []int{1, 4, 2, 2}, DType: Float32}, false, true)
	assert.ErrorIs(t, err, glkit.ErrPrecondition)
	assert.Zero(t, rt.count("register"))
}

func TestBufferLink(t *testing.T) {
	f, ctx := newTestContext(t)
	buf := ctx.NewBuf("weights")
	buf.SetTarget(gl.ShaderStorageBuffer)
	rt := newFakeRuntime(f)
	link := NewBufferLink(rt, buf)

	_, err := link.Download(Float32)
	assert.ErrorIs(t, err, glkit.ErrPrecondition)
	assert.ErrorIs(t, link.Upload(Tensor{DType: Float32}), glkit.ErrPrecondition)

	data := float32Bytes([]float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, link.Upload(Tensor{Ptr: rt.upload(data), Shape: []int{6}, DType: Float32}))
	assert.Equal(t, 24, buf.Size())
	assert.Equal(t, uint32(gl.DynamicDraw), f.BufferUsage(buf.ID()))
	assert.Equal(t, data, rt.read(rt.bufs[Resource(1)]))

	out, err := link.Download(Float32)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, out.Shape)
	assert.Equal(t, data, rt.read(out.Ptr))

	bytes, err := link.Download(Uint8)
	require.NoError(t, err)
	assert.Equal(t, []int{24}, bytes.Shape)

	allocs := f.Count("BufferData")
	require.NoError(t, link.Upload(Tensor{Ptr: rt.upload(data), Shape: []int{6}, DType: Float32}))
	assert.Equal(t, allocs, f.Count("BufferData"), "same size keeps the data store")
	assert.Equal(t, 1, rt.count("register buffer"))

	require.NoError(t, link.Upload(Tensor{Ptr: rt.upload(make([]byte, 32)), Shape: []int{8}, DType: Float32}))
	assert.Equal(t, 32, buf.Size())
	assert.Equal(t, 2, rt.count("register buffer"))
	assert.Equal(t, 1, rt.count("unregister"))

	require.NoError(t, link.Close())
	assert.Empty(t, rt.registeredIDs())
}

func TestLoadCUDA(t *testing.T) {
	rt, err := LoadCUDA()
	if err != nil {
		assert.ErrorIs(t, err, ErrUnavailable)
		return
	}
	assert.NotNil(t, rt)
}
