// Package gl exposes the OpenGL entry points used by glkit as a Go interface
// together with the enum values they take. Platform loaders resolve the
// entry points at runtime without cgo.
package gl

import (
	"fmt"
	"unsafe"
)

const (
	// ColorBufferBit is a mask used with Clear to clear the color buffer.
	ColorBufferBit = 0x00004000
	// DepthBufferBit is a mask used with Clear to clear the depth buffer.
	DepthBufferBit = 0x00000100

	// Texture2D is the texture target for 2D textures.
	Texture2D = 0x0DE1
	// Texture2DArray is the texture target for layered 2D textures.
	Texture2DArray = 0x8C1A
	// TextureCubeMap is the texture target for cube maps.
	TextureCubeMap = 0x8513
	// TextureCubeMapPositiveX is the first of the six consecutive cube face
	// targets (+X, -X, +Y, -Y, +Z, -Z).
	TextureCubeMapPositiveX = 0x8515

	// Texture0 is the first texture unit; unit i is Texture0+i.
	Texture0 = 0x84C0

	// UnpackAlignment specifies the alignment requirements for pixel data
	// when uploading textures (PixelStorei).
	UnpackAlignment = 0x0CF5
	// PackAlignment specifies the alignment requirements for pixel data
	// read back from textures or framebuffers.
	PackAlignment = 0x0D05

	// TextureWrapS selects the wrapping function for texture coordinate S.
	TextureWrapS = 0x2802
	// TextureWrapT selects the wrapping function for texture coordinate T.
	TextureWrapT = 0x2803
	// TextureWrapR selects the wrapping function for texture coordinate R.
	TextureWrapR = 0x8072

	// TextureMinFilter selects the texture minification filter.
	TextureMinFilter = 0x2801
	// TextureMagFilter selects the texture magnification filter.
	TextureMagFilter = 0x2800
	// TextureBaseLevel is the index of the lowest defined mipmap level.
	TextureBaseLevel = 0x813C
	// TextureMaxLevel is the index of the highest defined mipmap level.
	TextureMaxLevel = 0x813D
	// TextureSparseARB marks a texture as sparse (ARB_sparse_texture).
	TextureSparseARB = 0x91A6

	// Filters.
	Nearest              = 0x2600
	Linear               = 0x2601
	NearestMipmapNearest = 0x2700
	LinearMipmapNearest  = 0x2701
	NearestMipmapLinear  = 0x2702
	LinearMipmapLinear   = 0x2703

	// Wrap modes.
	ClampToEdge    = 0x812F
	Repeat         = 0x2901
	MirroredRepeat = 0x8370

	// GetTexLevelParameteriv parameters.
	TextureWidth          = 0x1000
	TextureHeight         = 0x1001
	TextureDepth          = 0x8071
	TextureInternalFormat = 0x1003

	// Pixel formats.
	StencilIndex   = 0x1901
	DepthComponent = 0x1902
	Red            = 0x1903
	RG             = 0x8227
	RGB            = 0x1907
	BGR            = 0x80E0
	RGBA           = 0x1908
	BGRA           = 0x80E1
	RedInteger     = 0x8D94
	RGInteger      = 0x8228
	RGBInteger     = 0x8D98
	BGRInteger     = 0x8D9A
	RGBAInteger    = 0x8D99
	BGRAInteger    = 0x8D9B
	DepthStencil   = 0x84F9

	// Pixel data types.
	Byte                  = 0x1400
	UnsignedByte          = 0x1401
	Short                 = 0x1402
	UnsignedShort         = 0x1403
	Int                   = 0x1404
	UnsignedInt           = 0x1405
	Float                 = 0x1406
	HalfFloat             = 0x140B
	UnsignedByte332       = 0x8032
	UnsignedByte233Rev    = 0x8362
	UnsignedShort565      = 0x8363
	UnsignedShort565Rev   = 0x8364
	UnsignedShort4444     = 0x8033
	UnsignedShort4444Rev  = 0x8365
	UnsignedShort5551     = 0x8034
	UnsignedShort1555Rev  = 0x8366
	UnsignedInt8888       = 0x8035
	UnsignedInt8888Rev    = 0x8367
	UnsignedInt1010102    = 0x8036
	UnsignedInt2101010Rev = 0x8368

	// Sized internal formats, normalized.
	R8          = 0x8229
	R8SNorm     = 0x8F94
	R16         = 0x822A
	R16SNorm    = 0x8F98
	RG8         = 0x822B
	RG8SNorm    = 0x8F95
	RG16        = 0x822C
	RG16SNorm   = 0x8F99
	R3G3B2      = 0x2A10
	RGB4        = 0x804F
	RGB5        = 0x8050
	RGB8        = 0x8051
	RGB8SNorm   = 0x8F96
	RGB10       = 0x8052
	RGB12       = 0x8053
	RGB16SNorm  = 0x8F9A
	RGBA2       = 0x8055
	RGBA4       = 0x8056
	RGB5A1      = 0x8057
	RGBA8       = 0x8058
	RGBA8SNorm  = 0x8F97
	RGB10A2     = 0x8059
	RGB10A2UI   = 0x906F
	RGBA12      = 0x805A
	RGBA16      = 0x805B
	RGBA16SNorm = 0x8F9B
	SRGB8       = 0x8C41
	SRGB8Alpha8 = 0x8C43

	// Sized internal formats, floating point.
	R16F         = 0x822D
	RG16F        = 0x822F
	RGB16F       = 0x881B
	RGBA16F      = 0x881A
	R32F         = 0x822E
	RG32F        = 0x8230
	RGB32F       = 0x8815
	RGBA32F      = 0x8814
	R11FG11FB10F = 0x8C3A
	RGB9E5       = 0x8C3D

	// Sized internal formats, integer.
	R8I      = 0x8231
	R8UI     = 0x8232
	R16I     = 0x8233
	R16UI    = 0x8234
	R32I     = 0x8235
	R32UI    = 0x8236
	RG8I     = 0x8237
	RG8UI    = 0x8238
	RG16I    = 0x8239
	RG16UI   = 0x823A
	RG32I    = 0x823B
	RG32UI   = 0x823C
	RGB8I    = 0x8D8F
	RGB8UI   = 0x8D7D
	RGB16I   = 0x8D89
	RGB16UI  = 0x8D77
	RGB32I   = 0x8D83
	RGB32UI  = 0x8D71
	RGBA8I   = 0x8D8E
	RGBA8UI  = 0x8D7C
	RGBA16I  = 0x8D88
	RGBA16UI = 0x8D76
	RGBA32I  = 0x8D82
	RGBA32UI = 0x8D70

	// Depth and stencil internal formats.
	DepthComponent32F = 0x8CAC
	DepthComponent32  = 0x81A7
	DepthComponent24  = 0x81A6
	DepthComponent16  = 0x81A5
	Depth24Stencil8   = 0x88F0
	Depth32FStencil8  = 0x8CAD
	StencilIndex8     = 0x8D48

	// Buffer targets.
	ArrayBuffer         = 0x8892
	ElementArrayBuffer  = 0x8893
	PixelPackBuffer     = 0x88EB
	PixelUnpackBuffer   = 0x88EC
	UniformBuffer       = 0x8A11
	ShaderStorageBuffer = 0x90D2

	// Buffer usage hints.
	StreamDraw  = 0x88E0
	StreamRead  = 0x88E1
	StaticDraw  = 0x88E4
	DynamicDraw = 0x88E8
	DynamicRead = 0x88E9

	// Access modes for MapBuffer and BindImageTexture.
	ReadOnly  = 0x88B8
	WriteOnly = 0x88B9
	ReadWrite = 0x88BA

	// BufferStorage flags.
	MapReadBit        = 0x0001
	MapWriteBit       = 0x0002
	MapPersistentBit  = 0x0040
	MapCoherentBit    = 0x0080
	DynamicStorageBit = 0x0100

	// Framebuffer targets, attachments and status.
	Framebuffer              = 0x8D40
	ReadFramebuffer          = 0x8CA8
	DrawFramebuffer          = 0x8CA9
	ColorAttachment0         = 0x8CE0
	DepthAttachment          = 0x8D00
	FramebufferComplete      = 0x8CD5
	FramebufferDefaultWidth  = 0x9310
	FramebufferDefaultHeight = 0x9311
	// None disables a draw buffer slot.
	None = 0

	// Shader stages and program queries.
	VertexShader   = 0x8B31
	FragmentShader = 0x8B30
	GeometryShader = 0x8DD9
	ComputeShader  = 0x91B9
	CompileStatus  = 0x8B81
	LinkStatus     = 0x8B82
	InfoLogLength  = 0x8B84

	// AllBarrierBits orders every kind of incoherent memory access.
	AllBarrierBits = 0xFFFFFFFF

	// GetIntegerv parameters.
	MaxTextureImageUnits = 0x8872
	MaxImageUnits        = 0x8F38
	MaxColorAttachments  = 0x8CDF
	MaxDrawBuffers       = 0x8824
	MajorVersion         = 0x821B
	MinorVersion         = 0x821C

	// Primitive types.
	Triangles     = 0x0004
	TriangleStrip = 0x0005

	// GetString parameters.
	//
	// Vendor returns the company responsible for the GL implementation.
	Vendor = 0x1F00
	// Renderer returns the name of the renderer.
	Renderer = 0x1F01
	// Version returns the GL version string of the current context.
	Version = 0x1F02
	// ShadingLanguageVersion returns the GLSL version string.
	ShadingLanguageVersion = 0x8B8C

	// Error codes returned by GetError.
	NoError                     = 0
	InvalidEnum                 = 0x0500
	InvalidValue                = 0x0501
	InvalidOperation            = 0x0502
	OutOfMemory                 = 0x0505
	InvalidFramebufferOperation = 0x0506
)

// OpenGL describes the subset of OpenGL entry points used by glkit.
//
// Implementations typically wrap platform-specific GL bindings. All methods are
// expected to operate on the currently current GL context for the calling thread.
type OpenGL interface {
	// ClearColor sets the clear color used by Clear when clearing the color buffer.
	ClearColor(r, g, b, a float32)

	// ClearDepth sets the value used by Clear when clearing the depth buffer.
	ClearDepth(depth float64)

	// Clear clears buffers to preset values (e.g., ColorBufferBit).
	Clear(mask uint32)

	// Viewport sets the affine transformation of x and y from normalized device
	// coordinates to window coordinates.
	Viewport(x, y, width, height int32)

	// GetString returns a string describing a GL property for the current context.
	//
	// Common names are Vendor and Version.
	// If the name is not recognized or no context is current, implementations may
	// return the empty string.
	GetString(name uint32) string

	// GetIntegerv returns the value of an integer state variable.
	GetIntegerv(pname uint32, data *int32)

	// GetError returns and clears the oldest recorded error flag.
	GetError() uint32

	// GenTextures generates texture object names.
	GenTextures(n int32, textures *uint32)

	// DeleteTextures deletes named textures.
	DeleteTextures(n int32, textures *uint32)

	// BindTexture binds a named texture to a texturing target (e.g., Texture2D).
	BindTexture(target, texture uint32)

	// ActiveTexture selects the texture unit affected by BindTexture.
	ActiveTexture(texture uint32)

	// TexParameteri sets texture parameters for the currently bound texture.
	TexParameteri(target, pname uint32, param int32)

	// TexImage2D specifies a two-dimensional texture image.
	//
	// The pixels pointer may be nil to allocate storage without uploading data.
	// When a buffer is bound to PixelUnpackBuffer, pixels is an offset into it.
	TexImage2D(
		target uint32,
		level int32,
		internalformat int32,
		width int32,
		height int32,
		border int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// TexSubImage2D specifies a sub-region of an existing two-dimensional texture image.
	TexSubImage2D(
		target uint32,
		level int32,
		xoffset int32,
		yoffset int32,
		width int32,
		height int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// TexImage3D specifies a three-dimensional or layered texture image.
	TexImage3D(
		target uint32,
		level int32,
		internalformat int32,
		width int32,
		height int32,
		depth int32,
		border int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// TexSubImage3D specifies a sub-region of a layered texture image.
	TexSubImage3D(
		target uint32,
		level int32,
		xoffset int32,
		yoffset int32,
		zoffset int32,
		width int32,
		height int32,
		depth int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// TexStorage2D allocates immutable storage for all levels of a 2D texture.
	TexStorage2D(target uint32, levels int32, internalformat uint32, width, height int32)

	// TexStorage3D allocates immutable storage for a layered texture.
	TexStorage3D(target uint32, levels int32, internalformat uint32, width, height, depth int32)

	// GenerateMipmap generates the mipmap chain of the bound texture.
	GenerateMipmap(target uint32)

	// GetTexImage reads back one level of the bound texture.
	//
	// When a buffer is bound to PixelPackBuffer, pixels is an offset into it.
	GetTexImage(target uint32, level int32, format, xtype uint32, pixels unsafe.Pointer)

	// GetTexLevelParameteriv queries a parameter of one level of the bound texture.
	GetTexLevelParameteriv(target uint32, level int32, pname uint32, params *int32)

	// CopyTexSubImage2D copies pixels from the read framebuffer into the bound texture.
	CopyTexSubImage2D(target uint32, level, xoffset, yoffset, x, y, width, height int32)

	// PixelStorei sets pixel storage modes (e.g., UnpackAlignment).
	PixelStorei(pname uint32, param int32)

	// BindImageTexture binds a texture level to an image unit for load/store.
	BindImageTexture(unit, texture uint32, level int32, layered bool, layer int32, access, format uint32)

	// GenBuffers generates buffer object names.
	GenBuffers(n int32, buffers *uint32)

	// DeleteBuffers deletes named buffers.
	DeleteBuffers(n int32, buffers *uint32)

	// BindBuffer binds a named buffer to a target.
	BindBuffer(target, buffer uint32)

	// BindBufferBase binds a buffer to an indexed binding point.
	BindBufferBase(target, index, buffer uint32)

	// BufferData creates and initializes the data store of the bound buffer.
	//
	// A nil data pointer allocates uninitialized storage.
	BufferData(target uint32, size int, data unsafe.Pointer, usage uint32)

	// BufferSubData updates a subset of the bound buffer's data store.
	BufferSubData(target uint32, offset, size int, data unsafe.Pointer)

	// BufferStorage creates an immutable data store for the bound buffer.
	BufferStorage(target uint32, size int, data unsafe.Pointer, flags uint32)

	// ClearNamedBufferSubData fills a range of a buffer with a fixed value.
	ClearNamedBufferSubData(buffer, internalformat uint32, offset, size int, format, xtype uint32, data unsafe.Pointer)

	// MapBuffer maps the bound buffer's data store into client memory.
	MapBuffer(target, access uint32) unsafe.Pointer

	// UnmapBuffer releases a mapping created by MapBuffer.
	UnmapBuffer(target uint32) bool

	// GenFramebuffers generates framebuffer object names.
	GenFramebuffers(n int32, framebuffers *uint32)

	// DeleteFramebuffers deletes named framebuffers.
	DeleteFramebuffers(n int32, framebuffers *uint32)

	// BindFramebuffer binds a framebuffer to a framebuffer target.
	BindFramebuffer(target, framebuffer uint32)

	// FramebufferTexture2D attaches a texture level to the bound framebuffer.
	FramebufferTexture2D(target, attachment, textarget, texture uint32, level int32)

	// FramebufferParameteri sets a parameter of the bound framebuffer.
	FramebufferParameteri(target, pname uint32, param int32)

	// CheckFramebufferStatus returns the completeness status of the bound framebuffer.
	CheckFramebufferStatus(target uint32) uint32

	// DrawBuffer selects a single color buffer for drawing.
	DrawBuffer(buf uint32)

	// DrawBuffers selects the color buffers that fragment outputs write into.
	DrawBuffers(n int32, bufs *uint32)

	// ReadBuffer selects the color buffer used as a source for pixel reads.
	ReadBuffer(src uint32)

	// GenVertexArrays generates vertex array object names.
	GenVertexArrays(n int32, arrays *uint32)

	// DeleteVertexArrays deletes named vertex array objects.
	DeleteVertexArrays(n int32, arrays *uint32)

	// BindVertexArray binds a vertex array object.
	BindVertexArray(array uint32)

	// VertexAttribPointer defines an array of generic vertex attribute data.
	VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset unsafe.Pointer)

	// EnableVertexAttribArray enables a generic vertex attribute array.
	EnableVertexAttribArray(index uint32)

	// CreateShader creates an empty shader object of the given stage.
	CreateShader(xtype uint32) uint32

	// ShaderSource replaces the source code of a shader object.
	ShaderSource(shader uint32, source string)

	// CompileShader compiles a shader object.
	CompileShader(shader uint32)

	// GetShaderiv returns a parameter from a shader object.
	GetShaderiv(shader uint32, pname uint32, params *int32)

	// GetShaderInfoLog returns the information log of a shader object.
	GetShaderInfoLog(shader uint32) string

	// DeleteShader deletes a shader object.
	DeleteShader(shader uint32)

	// CreateProgram creates an empty program object.
	CreateProgram() uint32

	// AttachShader attaches a shader object to a program.
	AttachShader(program uint32, shader uint32)

	// LinkProgram links a program object.
	LinkProgram(program uint32)

	// GetProgramiv returns a parameter from a program object.
	GetProgramiv(program uint32, pname uint32, params *int32)

	// GetProgramInfoLog returns the information log of a program object.
	GetProgramInfoLog(program uint32) string

	// UseProgram installs a program as part of the current rendering state.
	UseProgram(program uint32)

	// DeleteProgram deletes a program object.
	DeleteProgram(program uint32)

	// GetUniformLocation returns the location of a uniform, or -1.
	GetUniformLocation(program uint32, name string) int32

	// GetAttribLocation returns the location of a vertex attribute, or -1.
	GetAttribLocation(program uint32, name string) int32

	// GetFragDataLocation returns the color number bound to a fragment output, or -1.
	GetFragDataLocation(program uint32, name string) int32

	// Uniform1i sets an int or sampler uniform of the current program.
	Uniform1i(location int32, v0 int32)

	// Uniform1f sets a float uniform of the current program.
	Uniform1f(location int32, v0 float32)

	// Uniform2fv sets count vec2 uniforms.
	Uniform2fv(location int32, count int32, value *float32)

	// Uniform3fv sets count vec3 uniforms.
	Uniform3fv(location int32, count int32, value *float32)

	// Uniform4fv sets count vec4 uniforms.
	Uniform4fv(location int32, count int32, value *float32)

	// UniformMatrix3fv sets count mat3 uniforms.
	UniformMatrix3fv(location int32, count int32, transpose bool, value *float32)

	// UniformMatrix4fv sets count mat4 uniforms.
	UniformMatrix4fv(location int32, count int32, transpose bool, value *float32)

	// DispatchCompute launches compute work groups.
	DispatchCompute(numGroupsX, numGroupsY, numGroupsZ uint32)

	// MemoryBarrier orders memory transactions issued before the call.
	MemoryBarrier(barriers uint32)

	// DrawArrays renders primitives from array data.
	DrawArrays(mode uint32, first int32, count int32)
}

// Missing returns the entry points the table could not resolve. Tables that do
// not track resolution report none.
func Missing(table OpenGL) []string {
	if m, ok := table.(interface{ Missing() []string }); ok {
		return m.Missing()
	}
	return nil
}

// ErrorString returns a readable name for a GetError code.
func ErrorString(code uint32) string {
	switch code {
	case NoError:
		return "GL_NO_ERROR"
	case InvalidEnum:
		return "GL_INVALID_ENUM"
	case InvalidValue:
		return "GL_INVALID_VALUE"
	case InvalidOperation:
		return "GL_INVALID_OPERATION"
	case OutOfMemory:
		return "GL_OUT_OF_MEMORY"
	case InvalidFramebufferOperation:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	default:
		return fmt.Sprintf("GL error 0x%04X", code)
	}
}

func gostring(ptr *byte) string {
	if ptr == nil {
		return ""
	}
	var bytes []byte
	for p := ptr; *p != 0; p = (*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + 1)) {
		bytes = append(bytes, *p)
	}
	return string(bytes)
}

func cstring(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}
