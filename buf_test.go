package glkit

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit/gl"
	"github.com/tinyrange/glkit/gl/gltest"
)

func TestBufRequiresTarget(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("vbo")
	assert.Equal(t, -1, b.Size())
	assert.False(t, b.IsInitialized())

	assert.ErrorIs(t, b.Bind(), ErrPrecondition)
	assert.ErrorIs(t, b.UploadData([]byte{1}, gl.StaticDraw), ErrPrecondition)
	assert.Zero(t, f.Count("BindBuffer"))
}

func TestBufUploadData(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("vbo")
	b.SetTargetArrayBuffer()

	require.NoError(t, b.UploadData([]byte{1, 2, 3, 4}, gl.StaticDraw))
	assert.Equal(t, 4, b.Size())
	assert.Equal(t, uint32(gl.StaticDraw), b.Usage())
	assert.True(t, b.IsInitialized())
	assert.Equal(t, []byte{1, 2, 3, 4}, f.BufferBytes(b.ID()))

	require.NoError(t, b.UploadSubData(2, []byte{9, 8}))
	assert.Equal(t, []byte{1, 2, 9, 8}, f.BufferBytes(b.ID()))

	err := b.UploadSubData(3, []byte{1, 2})
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorIs(t, b.UploadSubData(-1, []byte{1}), ErrPrecondition)

	require.NoError(t, b.UploadDataSameUsage([]byte{5, 6}))
	assert.Equal(t, uint32(gl.StaticDraw), f.BufferUsage(b.ID()))
	assert.Equal(t, 2, b.Size())
}

func TestBufUploadSubDataBeforeAllocation(t *testing.T) {
	_, ctx := newTestContext(t)
	b := ctx.NewBuf("ssbo")
	b.SetTarget(gl.ShaderStorageBuffer)
	assert.ErrorIs(t, b.UploadSubData(0, []byte{1}), ErrPrecondition)
	assert.ErrorIs(t, b.UploadDataSameUsage([]byte{1}), ErrPrecondition)
	assert.ErrorIs(t, b.Orphan(), ErrPrecondition)
}

func TestBufUploadDataTo(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("ibo")
	require.NoError(t, b.UploadDataTo(gl.ElementArrayBuffer, []byte{0, 1, 2, 0}, gl.StaticDraw))
	assert.Equal(t, uint32(gl.ElementArrayBuffer), b.Target())

	require.NoError(t, b.UploadSubDataTo(gl.UniformBuffer, 0, []byte{7}))
	assert.Equal(t, []byte{7, 1, 2, 0}, f.BufferBytes(b.ID()))
}

func TestBufAllocateStorage(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("scratch")
	b.SetTarget(gl.UniformBuffer)

	require.NoError(t, b.AllocateStorage(0, gl.DynamicDraw))
	assert.Zero(t, f.Count("BufferData"))
	assert.False(t, b.IsInitialized())

	require.NoError(t, b.AllocateStorage(64, gl.DynamicDraw))
	assert.Equal(t, 64, b.Size())
	assert.Len(t, f.BufferBytes(b.ID()), 64)

	require.NoError(t, b.Orphan())
	assert.Equal(t, 2, f.Count("BufferData"))
	assert.Equal(t, 64, b.Size())
}

func TestUploadSlice(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("positions")
	b.SetTargetArrayBuffer()

	require.NoError(t, UploadSlice(b, []float32{1, -2}, gl.StaticDraw))
	raw := f.BufferBytes(b.ID())
	require.Len(t, raw, 8)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(raw[0:])))
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])))

	require.NoError(t, UploadSlice[uint32](b, nil, gl.StaticDraw))
	assert.Equal(t, 0, b.Size())
}

func TestBufImmutable(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("persistent")
	require.NoError(t, b.AllocateImmutableTo(gl.ShaderStorageBuffer, 32, gl.DynamicStorageBit))
	assert.True(t, b.IsImmutable())
	assert.Equal(t, 32, b.Size())

	err := b.AllocateImmutable(32, gl.DynamicStorageBit)
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorIs(t, b.UploadData([]byte{1}, gl.StaticDraw), ErrImmutable)
	assert.ErrorIs(t, b.AllocateStorage(16, gl.StaticDraw), ErrImmutable)
	assert.ErrorIs(t, b.Orphan(), ErrImmutable)
	assert.Equal(t, 1, f.Count("BufferStorage"))

	require.NoError(t, b.UploadSubData(4, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, f.BufferBytes(b.ID())[4:8])

	other := ctx.NewBuf("empty")
	other.SetTarget(gl.ShaderStorageBuffer)
	assert.ErrorIs(t, other.AllocateImmutable(0, 0), ErrPrecondition)
}

func TestBufBindForModify(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("particles")
	b.SetTarget(gl.ShaderStorageBuffer)
	require.NoError(t, b.AllocateStorage(16, gl.DynamicDraw))

	require.NoError(t, b.BindForModify(-1))
	assert.Zero(t, f.Count("BindBufferBase"))
	assert.False(t, b.IsGPUDirty())

	require.NoError(t, b.BindForModify(2))
	assert.Equal(t, b.ID(), f.BufferBase(gl.ShaderStorageBuffer, 2))
	assert.True(t, b.IsGPUDirty())
}

func TestBufClearToFloat(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("weights")
	b.SetTarget(gl.ShaderStorageBuffer)
	assert.ErrorIs(t, b.ClearToFloat(1), ErrPrecondition)

	require.NoError(t, UploadSlice(b, make([]float32, 4), gl.DynamicDraw))
	require.NoError(t, b.ClearToFloat(2.5))
	raw := f.BufferBytes(b.ID())
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(2.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
}

func TestBufClearToFloatNeedsGL45(t *testing.T) {
	f := gltest.New()
	f.VersionString = "4.1.0 gltest"
	_, ctx := newTestContextWith(t, f)
	b := ctx.NewBuf("weights")
	b.SetTarget(gl.ShaderStorageBuffer)
	require.NoError(t, b.AllocateStorage(16, gl.DynamicDraw))

	assert.ErrorIs(t, b.ClearToFloat(1), ErrPrecondition)
	assert.Zero(t, f.Count("ClearNamedBufferSubData"))
}

func TestBufDownload(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("readback")
	b.SetTarget(gl.ShaderStorageBuffer)

	_, err := b.Download(make([]byte, 4))
	assert.ErrorIs(t, err, ErrPrecondition)

	require.NoError(t, b.UploadData([]byte{1, 2, 3, 4, 5, 6, 7, 8}, gl.DynamicRead))
	b.SetGPUDirty(true)

	dst := make([]byte, 8)
	n, err := b.Download(dst)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dst)
	assert.False(t, b.IsGPUDirty())

	unmaps := f.Named("UnmapBuffer")
	require.Len(t, unmaps, 1)
	assert.Equal(t, uint32(gl.ShaderStorageBuffer), unmaps[0].Arg(0))
	assert.Zero(t, f.BoundBuffer(gl.ShaderStorageBuffer))

	short := make([]byte, 3)
	n, err = b.Download(short)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, short)
}

func TestBufDestroyAndMove(t *testing.T) {
	f, ctx := newTestContext(t)
	b := ctx.NewBuf("vbo")
	b.SetTargetArrayBuffer()
	b.SetDims(4, 2, 1)
	require.NoError(t, b.UploadData([]byte{1, 2}, gl.StaticDraw))
	id := b.ID()

	moved := b.Move()
	assert.Equal(t, id, moved.ID())
	assert.Equal(t, uint32(InvalidID), b.ID())
	assert.Equal(t, 2, moved.Size())
	assert.Equal(t, 4, moved.Width())
	assert.Equal(t, 2, moved.Height())
	assert.ErrorIs(t, b.Bind(), ErrPrecondition)

	b.Destroy()
	assert.Zero(t, f.Count("DeleteBuffers"))
	moved.Destroy()
	moved.Destroy()
	assert.Equal(t, 1, f.Count("DeleteBuffers"))
	_, buffers, _, _, _ := f.Live()
	assert.Zero(t, buffers)
}
