package glkit

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit/gl"
	"github.com/tinyrange/glkit/gl/gltest"
)

const testVertex = `#version 460 core
layout(location = 0) in vec3 position;
in vec2 uv;
uniform mat4 mvp;
out vec2 vUV;
void main() {
	vUV = uv;
	gl_Position = mvp * vec4(position, 1.0);
}
`

const testFragment = `#version 460 core
in vec2 vUV;
uniform sampler2D albedo;
uniform sampler2D normals;
uniform float strength;
uniform vec3 lights[2];
layout(location = 0) out vec4 color;
layout(location = 1) out vec4 extra;
void main() {
	color = texture(albedo, vUV) * strength;
	extra = texture(normals, vUV);
}
`

const testCompute = `#version 460 core
layout(local_size_x = 8, local_size_y = 8) in;
layout(rgba32f) uniform writeonly image2D img;
uniform float scale;
void main() {}
`

func newGraphicsShader(t *testing.T, ctx *Context) *Shader {
	t.Helper()
	s := ctx.NewShader("gbuffer")
	require.NoError(t, s.Compile(Sources{Vertex: testVertex, Fragment: testFragment}))
	return s
}

func newComputeShader(t *testing.T, ctx *Context) *Shader {
	t.Helper()
	s := ctx.NewShader("blur")
	require.NoError(t, s.Compile(Sources{Compute: testCompute}))
	return s
}

// captureLogs routes the default logger into a buffer for the rest of the
// test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestShaderCompile(t *testing.T) {
	f, ctx := newTestContext(t)
	s := ctx.NewShader("gbuffer")
	assert.False(t, s.IsCompiled())
	assert.Equal(t, uint32(InvalidID), s.ID())

	require.NoError(t, s.Compile(Sources{Vertex: testVertex, Fragment: testFragment}))
	assert.True(t, s.IsCompiled())
	assert.False(t, s.IsCompute())
	assert.Equal(t, 2, f.Count("CreateShader"))
	assert.Equal(t, 2, f.Count("DeleteShader"))
	_, _, _, _, programs := f.Live()
	assert.Equal(t, 1, programs)

	c := newComputeShader(t, ctx)
	assert.True(t, c.IsCompute())
}

func TestShaderCompileFailureKeepsProgram(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	id := s.ID()

	err := s.Compile(Sources{Vertex: testVertex, Fragment: "out vec4 color;"})
	require.ErrorIs(t, err, ErrNative)
	assert.Contains(t, err.Error(), "fragment shader")
	assert.Contains(t, err.Error(), "main function not found")
	assert.Equal(t, id, s.ID())
	assert.Equal(t, 4, f.Count("DeleteShader"), "both stages are deleted on failure")
	_, _, _, _, programs := f.Live()
	assert.Equal(t, 1, programs)
}

func TestShaderCompileStageCombinations(t *testing.T) {
	f, ctx := newTestContext(t)
	s := ctx.NewShader("bad")
	assert.ErrorIs(t, s.Compile(Sources{Vertex: testVertex, Compute: testCompute}), ErrPrecondition)
	assert.ErrorIs(t, s.Compile(Sources{Vertex: testVertex}), ErrPrecondition)
	assert.ErrorIs(t, s.Compile(Sources{}), ErrPrecondition)
	assert.Zero(t, f.Count("CreateShader"))
}

func TestShaderRequiresCompile(t *testing.T) {
	_, ctx := newTestContext(t)
	s := ctx.NewShader("empty")
	assert.ErrorIs(t, s.Use(), ErrPrecondition)
	assert.ErrorIs(t, s.UniformFloat("x", 1), ErrPrecondition)
	assert.ErrorIs(t, s.Dispatch(8, 8, 8, 8), ErrPrecondition)
	_, err := s.AttribLocation("position")
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestShaderUniforms(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)

	require.NoError(t, s.UniformFloat("strength", 0.5))
	assert.Equal(t, []float32{0.5}, f.UniformFloats(s.ID(), "strength"))
	assert.Equal(t, s.ID(), f.CurrentProgram())

	require.NoError(t, s.UniformVec3Array("lights", [][3]float32{{1, 2, 3}, {4, 5, 6}}))
	assert.Equal(t, []float32{4, 5, 6}, f.UniformFloats(s.ID(), "lights[1]"))

	m := NewMat(4, 4, 1, DepthF32)
	m.Float32s()[1] = 2
	require.NoError(t, s.UniformMat("mvp", m))
	calls := f.Named("UniformMatrix4fv")
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].Arg(2), "row-major matrices are transposed")
	assert.Equal(t, float32(2), f.UniformFloats(s.ID(), "mvp")[1])

	assert.ErrorIs(t, s.UniformMat("mvp", NewMat(4, 4, 2, DepthF32)), ErrInvalidEnum)
	assert.ErrorIs(t, s.UniformMat("mvp", NewMat(2, 2, 1, DepthF32)), ErrInvalidEnum)
	assert.Empty(t, f.PendingErrors())
}

func TestShaderMissingUniformWarns(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	logs := captureLogs(t)

	require.NoError(t, s.UniformFloat("missing", 1))
	assert.Zero(t, f.Count("Uniform1f"))
	assert.Contains(t, logs.String(), "uniform not found")
	assert.Contains(t, logs.String(), "uniform=missing")
	assert.Empty(t, f.PendingErrors())
}

func TestShaderBindTexture(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	a := newRGBA8(t, ctx, "a", 2, 2)
	b := newRGBA8(t, ctx, "b", 2, 2)

	require.NoError(t, s.BindTexture(a, "albedo"))
	require.NoError(t, s.BindTexture(b, "normals"))
	require.NoError(t, s.BindTexture(b, "albedo"))

	unit, ok := s.TextureUnit("albedo")
	require.True(t, ok)
	assert.Equal(t, 0, unit)
	unit, ok = s.TextureUnit("normals")
	require.True(t, ok)
	assert.Equal(t, 1, unit)

	assert.Equal(t, b.ID(), f.TextureAt(0, gl.Texture2D))
	assert.Equal(t, b.ID(), f.TextureAt(1, gl.Texture2D))
	v, ok := f.UniformInt(s.ID(), "normals")
	require.True(t, ok)
	assert.Equal(t, int32(1), v)

	empty := ctx.NewTexture2D("empty")
	assert.ErrorIs(t, s.BindTexture(empty, "albedo"), ErrPrecondition)
}

func TestShaderBindTextureUnitLimit(t *testing.T) {
	f := gltest.New()
	f.MaxTextureImageUnits = 1
	_, ctx := newTestContextWith(t, f)
	s := newGraphicsShader(t, ctx)
	tex := newRGBA8(t, ctx, "a", 2, 2)

	require.NoError(t, s.BindTexture(tex, "albedo"))
	f.ResetCalls()
	assert.ErrorIs(t, s.BindTexture(tex, "normals"), ErrPrecondition)
	assert.Zero(t, f.Count("ActiveTexture"))
}

func TestShaderBindImage(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newComputeShader(t, ctx)
	tex := ctx.NewTexture2D("target")
	require.NoError(t, tex.Allocate(gl.RGBA32F, gl.RGBA, gl.Float, 8, 8))

	require.NoError(t, s.BindImage(tex, gl.WriteOnly, "img"))
	b := f.ImageUnit(0)
	assert.Equal(t, tex.ID(), b.Texture)
	assert.Equal(t, uint32(gl.WriteOnly), b.Access)
	assert.Equal(t, uint32(gl.RGBA32F), b.Format)
	v, ok := f.UniformInt(s.ID(), "img")
	require.True(t, ok)
	assert.Zero(t, v)

	rgb := ctx.NewTexture2D("rgb")
	require.NoError(t, rgb.Allocate(gl.RGB8, gl.RGB, gl.UnsignedByte, 2, 2))
	assert.ErrorIs(t, s.BindImage(rgb, gl.ReadOnly, "img"), ErrInvalidEnum)
	assert.ErrorIs(t, s.BindImage(tex, gl.Texture2D, "img"), ErrInvalidEnum)
}

func TestShaderImageUnitLimit(t *testing.T) {
	f, ctx := newTestContext(t, WithMaxImageUnits(1))
	s := newComputeShader(t, ctx)
	tex := ctx.NewTexture2D("target")
	require.NoError(t, tex.Allocate(gl.R32F, gl.Red, gl.Float, 4, 4))
	buf := ctx.NewBuf("ssbo")
	buf.SetTarget(gl.ShaderStorageBuffer)

	require.NoError(t, s.BindImage(tex, gl.ReadWrite, "img"))
	f.ResetCalls()
	assert.ErrorIs(t, s.BindBuffer(buf, "weights"), ErrPrecondition)
	assert.Zero(t, f.Count("BindBufferBase"))
}

func TestShaderBindBuffer(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newComputeShader(t, ctx)
	tex := ctx.NewTexture2D("target")
	require.NoError(t, tex.Allocate(gl.RGBA32F, gl.RGBA, gl.Float, 8, 8))
	buf := ctx.NewBuf("ssbo")
	buf.SetTarget(gl.ShaderStorageBuffer)
	require.NoError(t, buf.AllocateStorage(64, gl.DynamicDraw))

	require.NoError(t, s.BindImage(tex, gl.WriteOnly, "img"))
	require.NoError(t, s.BindBuffer(buf, "weights"))
	unit, ok := s.ImageUnit("weights")
	require.True(t, ok)
	assert.Equal(t, 1, unit)
	assert.Equal(t, buf.ID(), f.BufferBase(gl.ShaderStorageBuffer, 1))

	untargeted := ctx.NewBuf("raw")
	assert.ErrorIs(t, s.BindBuffer(untargeted, "raw"), ErrPrecondition)
}

func TestShaderDispatch(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newComputeShader(t, ctx)

	require.NoError(t, s.Dispatch(100, 30, 8, 8))
	calls := f.Named("DispatchCompute")
	require.Len(t, calls, 1)
	assert.Equal(t, []interface{}{uint32(13), uint32(4), uint32(1)}, calls[0].Args)
	barriers := f.Named("MemoryBarrier")
	require.Len(t, barriers, 1)
	assert.Equal(t, uint32(gl.AllBarrierBits), barriers[0].Arg(0))

	assert.ErrorIs(t, s.Dispatch(8, 8, 0, 8), ErrPrecondition)

	g := newGraphicsShader(t, ctx)
	assert.ErrorIs(t, g.Dispatch(8, 8, 8, 8), ErrPrecondition)
	assert.Empty(t, f.PendingErrors())
}

func TestShaderDrawInto(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	gb := newGBuffer(t, ctx, 8, 8)

	require.NoError(t, s.DrawInto(gb, []OutputBinding{{"color", "B"}, {"extra", "A"}}))
	assert.Equal(t, []uint32{gl.ColorAttachment0 + 1, gl.ColorAttachment0}, f.DrawBuffersOf(gb.FBO()))
	draw, _ := f.BoundFramebuffers()
	assert.Equal(t, gb.FBO(), draw, "the framebuffer stays bound for the draw")
	assert.Equal(t, s.ID(), f.CurrentProgram())

	require.NoError(t, s.DrawInto(gb, []OutputBinding{{"extra", "B"}}))
	assert.Equal(t, []uint32{gl.None, gl.ColorAttachment0 + 1}, f.DrawBuffersOf(gb.FBO()))

	logs := captureLogs(t)
	require.NoError(t, s.DrawInto(gb, []OutputBinding{{"color", "A"}, {"ghost", "B"}}))
	assert.Equal(t, []uint32{gl.ColorAttachment0}, f.DrawBuffersOf(gb.FBO()))
	assert.Contains(t, logs.String(), "output=ghost")

	f.ResetCalls()
	assert.ErrorIs(t, s.DrawInto(gb, []OutputBinding{{"color", "A"}, {"extra", "Z"}}), ErrPrecondition)
	assert.Zero(t, f.Count("DrawBuffers"))

	c := newComputeShader(t, ctx)
	assert.ErrorIs(t, c.DrawInto(gb, []OutputBinding{{"color", "A"}}), ErrPrecondition)
}

func TestShaderDrawIntoUnresolvedOutputs(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	gb := newGBuffer(t, ctx, 8, 8)

	require.NoError(t, s.DrawInto(gb, []OutputBinding{{"color", "A"}, {"extra", "B"}}))
	assert.Equal(t, []uint32{gl.ColorAttachment0, gl.ColorAttachment0 + 1}, f.DrawBuffersOf(gb.FBO()))

	logs := captureLogs(t)
	require.NoError(t, s.DrawInto(gb, []OutputBinding{{"ghost", "A"}}))
	assert.Contains(t, logs.String(), "output=ghost")
	for _, b := range f.DrawBuffersOf(gb.FBO()) {
		assert.Equal(t, uint32(gl.None), b, "no attachment keeps the previous routing")
	}
	assert.NotEmpty(t, f.DrawBuffersOf(gb.FBO()))

	tex := newRGBA8(t, ctx, "target", 4, 4)
	require.NoError(t, s.DrawIntoTexture(tex, "ghost", 0))
	fbo, err := tex.FBO(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{gl.None}, f.DrawBuffersOf(fbo))
}

func TestShaderDrawIntoTexture(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	tex := newRGBA8(t, ctx, "target", 4, 4)

	require.NoError(t, s.DrawIntoTexture(tex, "extra", 0))
	fbo, err := tex.FBO(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{gl.None, gl.ColorAttachment0}, f.DrawBuffersOf(fbo))
	id, _, level, ok := f.Attachment(fbo, gl.ColorAttachment0)
	require.True(t, ok)
	assert.Equal(t, tex.ID(), id)
	assert.Equal(t, int32(0), level)

	assert.ErrorIs(t, s.DrawIntoTexture(tex, "color", 3), ErrPrecondition)
}

func TestShaderDrawIntoCubeFace(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	cube := ctx.NewCubeMap("env")
	require.NoError(t, cube.Allocate(gl.RGBA16F, gl.RGBA, gl.HalfFloat, 4, 4))

	require.NoError(t, s.DrawIntoCubeFace(cube, "color", FaceNegativeY, 0))
	fbo, err := cube.FBO(0)
	require.NoError(t, err)
	_, face, _, ok := f.Attachment(fbo, gl.ColorAttachment0)
	require.True(t, ok)
	assert.Equal(t, uint32(gl.TextureCubeMapPositiveX+3), face)
	assert.Equal(t, []uint32{gl.ColorAttachment0}, f.DrawBuffersOf(fbo))

	assert.ErrorIs(t, s.DrawIntoCubeFace(cube, "color", CubeFace(7), 0), ErrInvalidEnum)
}

func writeShader(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestShaderWatchReload(t *testing.T) {
	f, ctx := newTestContext(t)
	dir := t.TempDir()
	vert := filepath.Join(dir, "quad.vert")
	frag := filepath.Join(dir, "quad.frag")
	writeShader(t, vert, testVertex)
	writeShader(t, frag, testFragment)

	s := ctx.NewShader("quad")
	require.NoError(t, s.CompileFiles(Files{Vertex: vert, Fragment: frag}))
	require.NoError(t, s.Watch())
	defer s.Destroy()

	reloaded, err := s.ReloadIfChanged()
	require.NoError(t, err)
	assert.False(t, reloaded)
	first := s.ID()

	writeShader(t, frag, strings.Replace(testFragment, "uniform float strength;", "uniform float strength;\nuniform float gain;", 1))
	assert.Eventually(t, func() bool {
		ok, err := s.ReloadIfChanged()
		return err == nil && ok
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotEqual(t, first, s.ID())

	require.NoError(t, s.UniformFloat("gain", 2))
	assert.Equal(t, []float32{2}, f.UniformFloats(s.ID(), "gain"))

	second := s.ID()
	writeShader(t, frag, "broken")
	assert.Eventually(t, func() bool {
		_, err := s.ReloadIfChanged()
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, second, s.ID(), "a failed reload keeps the program")
}

func TestShaderWatchRequiresFiles(t *testing.T) {
	_, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	assert.ErrorIs(t, s.Watch(), ErrPrecondition)
}

func TestShaderCompileFilesMissing(t *testing.T) {
	_, ctx := newTestContext(t)
	s := ctx.NewShader("missing")
	err := s.CompileFiles(Files{Compute: filepath.Join(t.TempDir(), "nope.comp")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShaderDestroy(t *testing.T) {
	f, ctx := newTestContext(t)
	s := newGraphicsShader(t, ctx)
	require.NoError(t, s.Use())

	s.Destroy()
	assert.False(t, s.IsCompiled())
	assert.Zero(t, f.CurrentProgram())
	_, _, _, _, programs := f.Live()
	assert.Zero(t, programs)
	s.Destroy()
}
