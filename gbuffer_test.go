package glkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit/gl"
	"github.com/tinyrange/glkit/gl/gltest"
)

func newGBuffer(t *testing.T, ctx *Context, w, h int) *GBuffer {
	t.Helper()
	gb := ctx.NewGBuffer("gb")
	require.NoError(t, gb.SetSize(w, h))
	require.NoError(t, gb.AddTexture("A", gl.RGBA8, gl.RGBA, gl.UnsignedByte))
	require.NoError(t, gb.AddTexture("B", gl.RGBA32F, gl.RGBA, gl.Float))
	return gb
}

func TestGBufferRequiresSize(t *testing.T) {
	_, ctx := newTestContext(t)
	gb := ctx.NewGBuffer("gb")
	assert.False(t, gb.IsInitialized())
	assert.ErrorIs(t, gb.AddTexture("A", gl.RGBA8, gl.RGBA, gl.UnsignedByte), ErrPrecondition)
	assert.ErrorIs(t, gb.AddDepth("depth"), ErrPrecondition)
}

func TestGBufferAttachments(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 32, 32)
	require.NoError(t, gb.AddDepth("depth"))

	assert.Equal(t, []string{"A", "B"}, gb.Names())
	i, ok := gb.AttachmentIndex("B")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = gb.AttachmentIndex("depth")
	assert.False(t, ok)

	assert.Equal(t, "gb.A", gb.Texture("A").Name())
	assert.Same(t, gb.DepthTexture(), gb.Texture("depth"))
	assert.True(t, gb.HasTexture("depth"))
	assert.Nil(t, gb.Texture("C"))

	id, _, _, ok := f.Attachment(gb.FBO(), gl.ColorAttachment0+1)
	require.True(t, ok)
	assert.Equal(t, gb.Texture("B").ID(), id)
	id, _, _, ok = f.Attachment(gb.FBO(), gl.DepthAttachment)
	require.True(t, ok)
	assert.Equal(t, gb.DepthTexture().ID(), id)
	assert.Equal(t, int32(gl.DepthComponent32), gb.DepthTexture().InternalFormat())

	require.NoError(t, gb.SanityCheck())
	draw, read := f.BoundFramebuffers()
	assert.Zero(t, draw)
	assert.Zero(t, read)
}

func TestGBufferResize(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 32, 32)
	require.NoError(t, gb.AddDepth("depth"))

	require.NoError(t, gb.SetSize(64, 64))
	assert.Equal(t, 64, gb.Width())
	assert.Equal(t, 64, gb.Height())
	for _, name := range []string{"A", "B", "depth"} {
		tex := gb.Texture(name)
		assert.Equal(t, 64, tex.Width(), name)
		assert.Equal(t, 64, tex.Height(), name)
		w, h, _, _, ok := f.Level(tex.ID(), gl.Texture2D, 0)
		require.True(t, ok, name)
		assert.Equal(t, int32(64), w, name)
		assert.Equal(t, int32(64), h, name)
	}
	require.NoError(t, gb.SanityCheck())

	f.ResetCalls()
	require.NoError(t, gb.SetSize(64, 64))
	assert.Zero(t, f.Count("TexImage2D"), "matching members are left alone")
}

func TestGBufferRejectsEmptySize(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 32, 32)
	require.NoError(t, gb.AddDepth("depth"))

	f.ResetCalls()
	for _, size := range [][2]int{{0, 0}, {0, 16}, {16, 0}, {-1, 8}} {
		assert.ErrorIs(t, gb.SetSize(size[0], size[1]), ErrPrecondition, "%v", size)
		assert.Equal(t, 32, gb.Width(), "%v", size)
		assert.Equal(t, 32, gb.Height(), "%v", size)
		for _, name := range []string{"A", "B", "depth"} {
			tex := gb.Texture(name)
			assert.Equal(t, gb.Width(), tex.Width(), name)
			assert.Equal(t, gb.Height(), tex.Height(), name)
		}
	}
	assert.Zero(t, f.Count("TexImage2D"))

	empty := ctx.NewGBuffer("compute")
	assert.ErrorIs(t, empty.MakeEmpty(0, 8), ErrPrecondition)
	assert.ErrorIs(t, empty.MakeEmpty(8, 0), ErrPrecondition)
	assert.False(t, empty.IsInitialized())
	assert.Zero(t, f.Count("FramebufferParameteri"))
}

func TestGBufferDuplicateName(t *testing.T) {
	_, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 8, 8)
	assert.ErrorIs(t, gb.AddTexture("A", gl.R8, gl.Red, gl.UnsignedByte), ErrPrecondition)

	require.NoError(t, gb.AddDepth("depth"))
	assert.ErrorIs(t, gb.AddTexture("depth", gl.R8, gl.Red, gl.UnsignedByte), ErrPrecondition)
	assert.ErrorIs(t, gb.AddDepth("z"), ErrPrecondition)
	assert.Len(t, gb.Names(), 2)
}

func TestGBufferAttachmentLimit(t *testing.T) {
	f := gltest.New()
	f.MaxColorAttachments = 2
	_, ctx := newTestContextWith(t, f)
	gb := newGBuffer(t, ctx, 8, 8)

	f.ResetCalls()
	err := gb.AddTexture("C", gl.R8, gl.Red, gl.UnsignedByte)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Zero(t, f.Count("GenTextures"))
	assert.False(t, gb.HasTexture("C"))
}

func TestGBufferInvalidTexture(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := ctx.NewGBuffer("gb")
	require.NoError(t, gb.SetSize(8, 8))

	assert.ErrorIs(t, gb.AddTexture("A", gl.RGBA, gl.RGBA, gl.UnsignedByte), ErrInvalidEnum)
	assert.False(t, gb.HasTexture("A"))
	textures, _, _, _, _ := f.Live()
	assert.Zero(t, textures, "the rejected texture is deleted")
}

func TestGBufferMakeEmpty(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := ctx.NewGBuffer("compute")
	assert.ErrorIs(t, gb.SanityCheck(), ErrNative)

	require.NoError(t, gb.MakeEmpty(16, 8))
	assert.True(t, gb.IsInitialized())
	assert.Equal(t, 16, gb.Width())
	params := f.Named("FramebufferParameteri")
	require.Len(t, params, 2)
	assert.Equal(t, int32(16), params[0].Arg(2))
	assert.Equal(t, int32(8), params[1].Arg(2))
}

func TestGBufferSanityCheckStatus(t *testing.T) {
	_, ctx := newTestContext(t)
	gb := ctx.NewGBuffer("gb")
	err := gb.SanityCheck()
	require.ErrorIs(t, err, ErrNative)
	assert.Contains(t, err.Error(), "0x8CD7")
}

func TestGBufferClear(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 4, 4)
	require.NoError(t, gb.AddDepth("depth"))

	require.NoError(t, gb.SetConstant(0.25))
	for _, name := range gb.Names() {
		m, err := gb.Texture(name).DownloadMat(0, false)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, m.At(2, 2, 0), 1e-6, name)
		assert.InDelta(t, 0.25, m.At(2, 2, 3), 1e-6, name)
	}
	assert.Equal(t, []uint32{gl.ColorAttachment0, gl.ColorAttachment0 + 1}, f.DrawBuffersOf(gb.FBO()))

	require.NoError(t, gb.ClearDepth(0.5))
	m, err := gb.DepthTexture().DownloadMat(0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Channels)
	assert.InDelta(t, 0.5, m.At(3, 3, 0), 1e-6)

	require.NoError(t, gb.Clear())
	m, err = gb.Texture("B").DownloadMat(0, false)
	require.NoError(t, err)
	assert.InDelta(t, 0, m.At(0, 0, 1), 1e-6)
}

func TestGBufferClearDepthRequiresDepth(t *testing.T) {
	_, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 4, 4)
	assert.ErrorIs(t, gb.ClearDepth(1), ErrPrecondition)
}

func TestGBufferBind(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 4, 4)

	require.NoError(t, gb.BindForRead())
	draw, read := f.BoundFramebuffers()
	assert.Zero(t, draw)
	assert.Equal(t, gb.FBO(), read)

	require.NoError(t, gb.Bind())
	draw, _ = f.BoundFramebuffers()
	assert.Equal(t, gb.FBO(), draw)

	gb.Unbind()
	draw, read = f.BoundFramebuffers()
	assert.Zero(t, draw)
	assert.Zero(t, read)
}

func TestGBufferDestroy(t *testing.T) {
	f, ctx := newTestContext(t)
	gb := newGBuffer(t, ctx, 4, 4)
	require.NoError(t, gb.AddDepth("depth"))

	gb.Destroy()
	textures, _, framebuffers, _, _ := f.Live()
	assert.Zero(t, textures)
	assert.Zero(t, framebuffers)
	assert.Empty(t, gb.Names())
	assert.ErrorIs(t, gb.BindForDraw(), ErrPrecondition)
	gb.Destroy()
}
