//go:build windows

package gl

import (
	"math"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	opengl32          = windows.NewLazySystemDLL("opengl32.dll")
	wglGetProcAddress = opengl32.NewProc("wglGetProcAddress")
)

// proc is an entry point resolved on first use. opengl32.dll only exports
// OpenGL 1.1; everything newer comes from wglGetProcAddress, which needs a
// current context.
type proc struct {
	name     string
	addr     uintptr
	resolved bool
}

func (p *proc) find() uintptr {
	if p.resolved {
		return p.addr
	}
	p.resolved = true
	if lp := opengl32.NewProc(p.name); lp.Find() == nil {
		p.addr = lp.Addr()
		return p.addr
	}
	name, err := windows.BytePtrFromString(p.name)
	if err != nil {
		return 0
	}
	addr, _, _ := wglGetProcAddress.Call(uintptr(unsafe.Pointer(name)))
	// Some drivers return small sentinel values instead of NULL.
	switch addr {
	case 1, 2, 3, ^uintptr(0):
		addr = 0
	}
	p.addr = addr
	return p.addr
}

func (p *proc) Call(args ...uintptr) uintptr {
	addr := p.find()
	if addr == 0 {
		panic("gl: entry point " + p.name + " is not available")
	}
	r, _, _ := syscall.SyscallN(addr, args...)
	return r
}

type openGL struct {
	procs map[string]*proc
}

func (gl *openGL) p(name string) *proc {
	if pr, ok := gl.procs[name]; ok {
		return pr
	}
	pr := &proc{name: name}
	gl.procs[name] = pr
	return pr
}

// Missing resolves every entry point glkit uses and returns the ones the
// driver does not provide. It must be called with a context current.
func (gl *openGL) Missing() []string {
	var missing []string
	for _, name := range entryPoints {
		if gl.p(name).find() == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

var entryPoints = []string{
	"glClearColor", "glClearDepth", "glClear", "glViewport", "glGetString",
	"glGetIntegerv", "glGetError", "glGenTextures", "glDeleteTextures",
	"glBindTexture", "glActiveTexture", "glTexParameteri", "glTexImage2D",
	"glTexSubImage2D", "glTexImage3D", "glTexSubImage3D", "glTexStorage2D",
	"glTexStorage3D", "glGenerateMipmap", "glGetTexImage",
	"glGetTexLevelParameteriv", "glCopyTexSubImage2D", "glPixelStorei",
	"glBindImageTexture", "glGenBuffers", "glDeleteBuffers", "glBindBuffer",
	"glBindBufferBase", "glBufferData", "glBufferSubData", "glBufferStorage",
	"glClearNamedBufferSubData", "glMapBuffer", "glUnmapBuffer",
	"glGenFramebuffers", "glDeleteFramebuffers", "glBindFramebuffer",
	"glFramebufferTexture2D", "glFramebufferParameteri",
	"glCheckFramebufferStatus", "glDrawBuffer", "glDrawBuffers", "glReadBuffer",
	"glGenVertexArrays", "glDeleteVertexArrays", "glBindVertexArray",
	"glVertexAttribPointer", "glEnableVertexAttribArray", "glCreateShader",
	"glShaderSource", "glCompileShader", "glGetShaderiv", "glGetShaderInfoLog",
	"glDeleteShader", "glCreateProgram", "glAttachShader", "glLinkProgram",
	"glGetProgramiv", "glGetProgramInfoLog", "glUseProgram", "glDeleteProgram",
	"glGetUniformLocation", "glGetAttribLocation", "glGetFragDataLocation",
	"glUniform1i", "glUniform1f", "glUniform2fv", "glUniform3fv", "glUniform4fv",
	"glUniformMatrix3fv", "glUniformMatrix4fv", "glDispatchCompute",
	"glMemoryBarrier", "glDrawArrays",
}

func (gl *openGL) ClearColor(r, g, b, a float32) {
	gl.p("glClearColor").Call(f32(r), f32(g), f32(b), f32(a))
}

func (gl *openGL) ClearDepth(depth float64) {
	gl.p("glClearDepth").Call(f64(depth))
}

func (gl *openGL) Clear(mask uint32) {
	gl.p("glClear").Call(uintptr(mask))
}

func (gl *openGL) Viewport(x, y, width, height int32) {
	gl.p("glViewport").Call(uintptr(x), uintptr(y), uintptr(width), uintptr(height))
}

func (gl *openGL) GetString(name uint32) string {
	ptr := gl.p("glGetString").Call(uintptr(name))
	return gostring((*byte)(unsafe.Pointer(ptr)))
}

func (gl *openGL) GetIntegerv(pname uint32, data *int32) {
	gl.p("glGetIntegerv").Call(uintptr(pname), uintptr(unsafe.Pointer(data)))
}

func (gl *openGL) GetError() uint32 {
	return uint32(gl.p("glGetError").Call())
}

func (gl *openGL) GenTextures(n int32, textures *uint32) {
	gl.p("glGenTextures").Call(uintptr(n), uintptr(unsafe.Pointer(textures)))
}

func (gl *openGL) DeleteTextures(n int32, textures *uint32) {
	gl.p("glDeleteTextures").Call(uintptr(n), uintptr(unsafe.Pointer(textures)))
}

func (gl *openGL) BindTexture(target, texture uint32) {
	gl.p("glBindTexture").Call(uintptr(target), uintptr(texture))
}

func (gl *openGL) ActiveTexture(texture uint32) {
	gl.p("glActiveTexture").Call(uintptr(texture))
}

func (gl *openGL) TexParameteri(target, pname uint32, param int32) {
	gl.p("glTexParameteri").Call(uintptr(target), uintptr(pname), uintptr(param))
}

func (gl *openGL) TexImage2D(target uint32, level, internalFormat, width, height, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.p("glTexImage2D").Call(uintptr(target), uintptr(level), uintptr(internalFormat), uintptr(width), uintptr(height), uintptr(border), uintptr(format), uintptr(xtype), uintptr(pixels))
}

func (gl *openGL) TexSubImage2D(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.p("glTexSubImage2D").Call(uintptr(target), uintptr(level), uintptr(xoffset), uintptr(yoffset), uintptr(width), uintptr(height), uintptr(format), uintptr(xtype), uintptr(pixels))
}

func (gl *openGL) TexImage3D(target uint32, level, internalFormat, width, height, depth, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.p("glTexImage3D").Call(uintptr(target), uintptr(level), uintptr(internalFormat), uintptr(width), uintptr(height), uintptr(depth), uintptr(border), uintptr(format), uintptr(xtype), uintptr(pixels))
}

func (gl *openGL) TexSubImage3D(target uint32, level, xoffset, yoffset, zoffset, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.p("glTexSubImage3D").Call(uintptr(target), uintptr(level), uintptr(xoffset), uintptr(yoffset), uintptr(zoffset), uintptr(width), uintptr(height), uintptr(depth), uintptr(format), uintptr(xtype), uintptr(pixels))
}

func (gl *openGL) TexStorage2D(target uint32, levels int32, internalFormat uint32, width, height int32) {
	gl.p("glTexStorage2D").Call(uintptr(target), uintptr(levels), uintptr(internalFormat), uintptr(width), uintptr(height))
}

func (gl *openGL) TexStorage3D(target uint32, levels int32, internalFormat uint32, width, height, depth int32) {
	gl.p("glTexStorage3D").Call(uintptr(target), uintptr(levels), uintptr(internalFormat), uintptr(width), uintptr(height), uintptr(depth))
}

func (gl *openGL) GenerateMipmap(target uint32) {
	gl.p("glGenerateMipmap").Call(uintptr(target))
}

func (gl *openGL) GetTexImage(target uint32, level int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.p("glGetTexImage").Call(uintptr(target), uintptr(level), uintptr(format), uintptr(xtype), uintptr(pixels))
}

func (gl *openGL) GetTexLevelParameteriv(target uint32, level int32, pname uint32, params *int32) {
	gl.p("glGetTexLevelParameteriv").Call(uintptr(target), uintptr(level), uintptr(pname), uintptr(unsafe.Pointer(params)))
}

func (gl *openGL) CopyTexSubImage2D(target uint32, level, xoffset, yoffset, x, y, width, height int32) {
	gl.p("glCopyTexSubImage2D").Call(uintptr(target), uintptr(level), uintptr(xoffset), uintptr(yoffset), uintptr(x), uintptr(y), uintptr(width), uintptr(height))
}

func (gl *openGL) PixelStorei(pname uint32, param int32) {
	gl.p("glPixelStorei").Call(uintptr(pname), uintptr(param))
}

func (gl *openGL) BindImageTexture(unit, texture uint32, level int32, layered bool, layer int32, access, format uint32) {
	gl.p("glBindImageTexture").Call(uintptr(unit), uintptr(texture), uintptr(level), boolean(layered), uintptr(layer), uintptr(access), uintptr(format))
}

func (gl *openGL) GenBuffers(n int32, buffers *uint32) {
	gl.p("glGenBuffers").Call(uintptr(n), uintptr(unsafe.Pointer(buffers)))
}

func (gl *openGL) DeleteBuffers(n int32, buffers *uint32) {
	gl.p("glDeleteBuffers").Call(uintptr(n), uintptr(unsafe.Pointer(buffers)))
}

func (gl *openGL) BindBuffer(target uint32, buffer uint32) {
	gl.p("glBindBuffer").Call(uintptr(target), uintptr(buffer))
}

func (gl *openGL) BindBufferBase(target, index, buffer uint32) {
	gl.p("glBindBufferBase").Call(uintptr(target), uintptr(index), uintptr(buffer))
}

func (gl *openGL) BufferData(target uint32, size int, data unsafe.Pointer, usage uint32) {
	gl.p("glBufferData").Call(uintptr(target), uintptr(size), uintptr(data), uintptr(usage))
}

func (gl *openGL) BufferSubData(target uint32, offset int, size int, data unsafe.Pointer) {
	gl.p("glBufferSubData").Call(uintptr(target), uintptr(offset), uintptr(size), uintptr(data))
}

func (gl *openGL) BufferStorage(target uint32, size int, data unsafe.Pointer, flags uint32) {
	gl.p("glBufferStorage").Call(uintptr(target), uintptr(size), uintptr(data), uintptr(flags))
}

func (gl *openGL) ClearNamedBufferSubData(buffer, internalFormat uint32, offset, size int, format, xtype uint32, data unsafe.Pointer) {
	gl.p("glClearNamedBufferSubData").Call(uintptr(buffer), uintptr(internalFormat), uintptr(offset), uintptr(size), uintptr(format), uintptr(xtype), uintptr(data))
}

func (gl *openGL) MapBuffer(target, access uint32) unsafe.Pointer {
	r := gl.p("glMapBuffer").Call(uintptr(target), uintptr(access))
	return *(*unsafe.Pointer)(unsafe.Pointer(&r))
}

func (gl *openGL) UnmapBuffer(target uint32) bool {
	return gl.p("glUnmapBuffer").Call(uintptr(target))&0xff != 0
}

func (gl *openGL) GenFramebuffers(n int32, framebuffers *uint32) {
	gl.p("glGenFramebuffers").Call(uintptr(n), uintptr(unsafe.Pointer(framebuffers)))
}

func (gl *openGL) DeleteFramebuffers(n int32, framebuffers *uint32) {
	gl.p("glDeleteFramebuffers").Call(uintptr(n), uintptr(unsafe.Pointer(framebuffers)))
}

func (gl *openGL) BindFramebuffer(target, framebuffer uint32) {
	gl.p("glBindFramebuffer").Call(uintptr(target), uintptr(framebuffer))
}

func (gl *openGL) FramebufferTexture2D(target, attachment, textarget, texture uint32, level int32) {
	gl.p("glFramebufferTexture2D").Call(uintptr(target), uintptr(attachment), uintptr(textarget), uintptr(texture), uintptr(level))
}

func (gl *openGL) FramebufferParameteri(target, pname uint32, param int32) {
	gl.p("glFramebufferParameteri").Call(uintptr(target), uintptr(pname), uintptr(param))
}

func (gl *openGL) CheckFramebufferStatus(target uint32) uint32 {
	return uint32(gl.p("glCheckFramebufferStatus").Call(uintptr(target)))
}

func (gl *openGL) DrawBuffer(buf uint32) {
	gl.p("glDrawBuffer").Call(uintptr(buf))
}

func (gl *openGL) DrawBuffers(n int32, bufs *uint32) {
	gl.p("glDrawBuffers").Call(uintptr(n), uintptr(unsafe.Pointer(bufs)))
}

func (gl *openGL) ReadBuffer(src uint32) {
	gl.p("glReadBuffer").Call(uintptr(src))
}

func (gl *openGL) GenVertexArrays(n int32, arrays *uint32) {
	gl.p("glGenVertexArrays").Call(uintptr(n), uintptr(unsafe.Pointer(arrays)))
}

func (gl *openGL) DeleteVertexArrays(n int32, arrays *uint32) {
	gl.p("glDeleteVertexArrays").Call(uintptr(n), uintptr(unsafe.Pointer(arrays)))
}

func (gl *openGL) BindVertexArray(array uint32) {
	gl.p("glBindVertexArray").Call(uintptr(array))
}

func (gl *openGL) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset unsafe.Pointer) {
	gl.p("glVertexAttribPointer").Call(uintptr(index), uintptr(size), uintptr(xtype), boolean(normalized), uintptr(stride), uintptr(offset))
}

func (gl *openGL) EnableVertexAttribArray(index uint32) {
	gl.p("glEnableVertexAttribArray").Call(uintptr(index))
}

func (gl *openGL) CreateShader(xtype uint32) uint32 {
	return uint32(gl.p("glCreateShader").Call(uintptr(xtype)))
}

func (gl *openGL) ShaderSource(shader uint32, source string) {
	srcPtr := cstring(source)
	length := int32(len(source))
	gl.p("glShaderSource").Call(uintptr(shader), 1, uintptr(unsafe.Pointer(&srcPtr)), uintptr(unsafe.Pointer(&length)))
}

func (gl *openGL) CompileShader(shader uint32) {
	gl.p("glCompileShader").Call(uintptr(shader))
}

func (gl *openGL) GetShaderiv(shader uint32, pname uint32, params *int32) {
	gl.p("glGetShaderiv").Call(uintptr(shader), uintptr(pname), uintptr(unsafe.Pointer(params)))
}

func (gl *openGL) GetShaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.p("glGetShaderInfoLog").Call(uintptr(shader), uintptr(length), uintptr(unsafe.Pointer(&length)), uintptr(unsafe.Pointer(&log[0])))
	return string(log[:length])
}

func (gl *openGL) DeleteShader(shader uint32) {
	gl.p("glDeleteShader").Call(uintptr(shader))
}

func (gl *openGL) CreateProgram() uint32 {
	return uint32(gl.p("glCreateProgram").Call())
}

func (gl *openGL) AttachShader(program uint32, shader uint32) {
	gl.p("glAttachShader").Call(uintptr(program), uintptr(shader))
}

func (gl *openGL) LinkProgram(program uint32) {
	gl.p("glLinkProgram").Call(uintptr(program))
}

func (gl *openGL) GetProgramiv(program uint32, pname uint32, params *int32) {
	gl.p("glGetProgramiv").Call(uintptr(program), uintptr(pname), uintptr(unsafe.Pointer(params)))
}

func (gl *openGL) GetProgramInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.p("glGetProgramInfoLog").Call(uintptr(program), uintptr(length), uintptr(unsafe.Pointer(&length)), uintptr(unsafe.Pointer(&log[0])))
	return string(log[:length])
}

func (gl *openGL) UseProgram(program uint32) {
	gl.p("glUseProgram").Call(uintptr(program))
}

func (gl *openGL) DeleteProgram(program uint32) {
	gl.p("glDeleteProgram").Call(uintptr(program))
}

func (gl *openGL) GetUniformLocation(program uint32, name string) int32 {
	return int32(gl.p("glGetUniformLocation").Call(uintptr(program), uintptr(unsafe.Pointer(cstring(name)))))
}

func (gl *openGL) GetAttribLocation(program uint32, name string) int32 {
	return int32(gl.p("glGetAttribLocation").Call(uintptr(program), uintptr(unsafe.Pointer(cstring(name)))))
}

func (gl *openGL) GetFragDataLocation(program uint32, name string) int32 {
	return int32(gl.p("glGetFragDataLocation").Call(uintptr(program), uintptr(unsafe.Pointer(cstring(name)))))
}

func (gl *openGL) Uniform1i(location int32, v0 int32) {
	gl.p("glUniform1i").Call(uintptr(location), uintptr(v0))
}

func (gl *openGL) Uniform1f(location int32, v0 float32) {
	gl.p("glUniform1f").Call(uintptr(location), f32(v0))
}

func (gl *openGL) Uniform2fv(location int32, count int32, value *float32) {
	gl.p("glUniform2fv").Call(uintptr(location), uintptr(count), uintptr(unsafe.Pointer(value)))
}

func (gl *openGL) Uniform3fv(location int32, count int32, value *float32) {
	gl.p("glUniform3fv").Call(uintptr(location), uintptr(count), uintptr(unsafe.Pointer(value)))
}

func (gl *openGL) Uniform4fv(location int32, count int32, value *float32) {
	gl.p("glUniform4fv").Call(uintptr(location), uintptr(count), uintptr(unsafe.Pointer(value)))
}

func (gl *openGL) UniformMatrix3fv(location int32, count int32, transpose bool, value *float32) {
	gl.p("glUniformMatrix3fv").Call(uintptr(location), uintptr(count), boolean(transpose), uintptr(unsafe.Pointer(value)))
}

func (gl *openGL) UniformMatrix4fv(location int32, count int32, transpose bool, value *float32) {
	gl.p("glUniformMatrix4fv").Call(uintptr(location), uintptr(count), boolean(transpose), uintptr(unsafe.Pointer(value)))
}

func (gl *openGL) DispatchCompute(x, y, z uint32) {
	gl.p("glDispatchCompute").Call(uintptr(x), uintptr(y), uintptr(z))
}

func (gl *openGL) MemoryBarrier(barriers uint32) {
	gl.p("glMemoryBarrier").Call(uintptr(barriers))
}

func (gl *openGL) DrawArrays(mode uint32, first int32, count int32) {
	gl.p("glDrawArrays").Call(uintptr(mode), uintptr(first), uintptr(count))
}

// Load binds opengl32.dll. Entry points are resolved on first use.
func Load() (OpenGL, error) {
	if err := opengl32.Load(); err != nil {
		return nil, err
	}
	return &openGL{procs: make(map[string]*proc)}, nil
}

func f32(v float32) uintptr {
	return uintptr(math.Float32bits(v))
}

func f64(v float64) uintptr {
	return uintptr(math.Float64bits(v))
}

func boolean(v bool) uintptr {
	if v {
		return 1
	}
	return 0
}
