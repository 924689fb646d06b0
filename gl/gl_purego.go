//go:build linux || darwin

package gl

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// openGL forwards every OpenGL method to a function pointer registered with
// purego. Entry points the driver does not export stay nil and are listed by
// Missing.
type openGL struct {
	clearColor  func(float32, float32, float32, float32)
	clearDepth  func(float64)
	clear       func(uint32)
	viewport    func(int32, int32, int32, int32)
	getString   func(uint32) *byte
	getIntegerv func(uint32, *int32)
	getError    func() uint32

	// Texture operations
	genTextures            func(int32, *uint32)
	deleteTextures         func(int32, *uint32)
	bindTexture            func(uint32, uint32)
	activeTexture          func(uint32)
	texParameteri          func(uint32, uint32, int32)
	texImage2D             func(uint32, int32, int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	texSubImage2D          func(uint32, int32, int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	texImage3D             func(uint32, int32, int32, int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	texSubImage3D          func(uint32, int32, int32, int32, int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	texStorage2D           func(uint32, int32, uint32, int32, int32)
	texStorage3D           func(uint32, int32, uint32, int32, int32, int32)
	generateMipmap         func(uint32)
	getTexImage            func(uint32, int32, uint32, uint32, unsafe.Pointer)
	getTexLevelParameteriv func(uint32, int32, uint32, *int32)
	copyTexSubImage2D      func(uint32, int32, int32, int32, int32, int32, int32, int32)
	pixelStorei            func(uint32, int32)
	bindImageTexture       func(uint32, uint32, int32, bool, int32, uint32, uint32)

	// Buffer operations
	genBuffers              func(int32, *uint32)
	deleteBuffers           func(int32, *uint32)
	bindBuffer              func(uint32, uint32)
	bindBufferBase          func(uint32, uint32, uint32)
	bufferData              func(uint32, int, unsafe.Pointer, uint32)
	bufferSubData           func(uint32, int, int, unsafe.Pointer)
	bufferStorage           func(uint32, int, unsafe.Pointer, uint32)
	clearNamedBufferSubData func(uint32, uint32, int, int, uint32, uint32, unsafe.Pointer)
	mapBuffer               func(uint32, uint32) unsafe.Pointer
	unmapBuffer             func(uint32) bool

	// Framebuffer operations
	genFramebuffers        func(int32, *uint32)
	deleteFramebuffers     func(int32, *uint32)
	bindFramebuffer        func(uint32, uint32)
	framebufferTexture2D   func(uint32, uint32, uint32, uint32, int32)
	framebufferParameteri  func(uint32, uint32, int32)
	checkFramebufferStatus func(uint32) uint32
	drawBuffer             func(uint32)
	drawBuffers            func(int32, *uint32)
	readBuffer             func(uint32)

	// VAO operations
	genVertexArrays         func(int32, *uint32)
	deleteVertexArrays      func(int32, *uint32)
	bindVertexArray         func(uint32)
	vertexAttribPointer     func(uint32, int32, uint32, bool, int32, unsafe.Pointer)
	enableVertexAttribArray func(uint32)

	// Shader operations
	createShader        func(uint32) uint32
	shaderSource        func(uint32, int32, **byte, *int32)
	compileShader       func(uint32)
	getShaderiv         func(uint32, uint32, *int32)
	getShaderInfoLog    func(uint32, int32, *int32, *byte)
	deleteShader        func(uint32)
	createProgram       func() uint32
	attachShader        func(uint32, uint32)
	linkProgram         func(uint32)
	getProgramiv        func(uint32, uint32, *int32)
	getProgramInfoLog   func(uint32, int32, *int32, *byte)
	useProgram          func(uint32)
	deleteProgram       func(uint32)
	getUniformLocation  func(uint32, *byte) int32
	getAttribLocation   func(uint32, *byte) int32
	getFragDataLocation func(uint32, *byte) int32
	uniform1i           func(int32, int32)
	uniform1f           func(int32, float32)
	uniform2fv          func(int32, int32, *float32)
	uniform3fv          func(int32, int32, *float32)
	uniform4fv          func(int32, int32, *float32)
	uniformMatrix3fv    func(int32, int32, bool, *float32)
	uniformMatrix4fv    func(int32, int32, bool, *float32)
	dispatchCompute     func(uint32, uint32, uint32)
	memoryBarrier       func(uint32)

	// Drawing
	drawArrays func(uint32, int32, int32)

	missing []string
}

// bind resolves every entry point through lookup. A zero address leaves the
// field nil and records the name.
func (gl *openGL) bind(lookup func(name string) uintptr) {
	register := func(dst interface{}, name string) {
		addr := lookup(name)
		if addr == 0 {
			gl.missing = append(gl.missing, name)
			return
		}
		purego.RegisterFunc(dst, addr)
	}

	register(&gl.clearColor, "glClearColor")
	register(&gl.clearDepth, "glClearDepth")
	register(&gl.clear, "glClear")
	register(&gl.viewport, "glViewport")
	register(&gl.getString, "glGetString")
	register(&gl.getIntegerv, "glGetIntegerv")
	register(&gl.getError, "glGetError")

	register(&gl.genTextures, "glGenTextures")
	register(&gl.deleteTextures, "glDeleteTextures")
	register(&gl.bindTexture, "glBindTexture")
	register(&gl.activeTexture, "glActiveTexture")
	register(&gl.texParameteri, "glTexParameteri")
	register(&gl.texImage2D, "glTexImage2D")
	register(&gl.texSubImage2D, "glTexSubImage2D")
	register(&gl.texImage3D, "glTexImage3D")
	register(&gl.texSubImage3D, "glTexSubImage3D")
	register(&gl.texStorage2D, "glTexStorage2D")
	register(&gl.texStorage3D, "glTexStorage3D")
	register(&gl.generateMipmap, "glGenerateMipmap")
	register(&gl.getTexImage, "glGetTexImage")
	register(&gl.getTexLevelParameteriv, "glGetTexLevelParameteriv")
	register(&gl.copyTexSubImage2D, "glCopyTexSubImage2D")
	register(&gl.pixelStorei, "glPixelStorei")
	register(&gl.bindImageTexture, "glBindImageTexture")

	register(&gl.genBuffers, "glGenBuffers")
	register(&gl.deleteBuffers, "glDeleteBuffers")
	register(&gl.bindBuffer, "glBindBuffer")
	register(&gl.bindBufferBase, "glBindBufferBase")
	register(&gl.bufferData, "glBufferData")
	register(&gl.bufferSubData, "glBufferSubData")
	register(&gl.bufferStorage, "glBufferStorage")
	register(&gl.clearNamedBufferSubData, "glClearNamedBufferSubData")
	register(&gl.mapBuffer, "glMapBuffer")
	register(&gl.unmapBuffer, "glUnmapBuffer")

	register(&gl.genFramebuffers, "glGenFramebuffers")
	register(&gl.deleteFramebuffers, "glDeleteFramebuffers")
	register(&gl.bindFramebuffer, "glBindFramebuffer")
	register(&gl.framebufferTexture2D, "glFramebufferTexture2D")
	register(&gl.framebufferParameteri, "glFramebufferParameteri")
	register(&gl.checkFramebufferStatus, "glCheckFramebufferStatus")
	register(&gl.drawBuffer, "glDrawBuffer")
	register(&gl.drawBuffers, "glDrawBuffers")
	register(&gl.readBuffer, "glReadBuffer")

	register(&gl.genVertexArrays, "glGenVertexArrays")
	register(&gl.deleteVertexArrays, "glDeleteVertexArrays")
	register(&gl.bindVertexArray, "glBindVertexArray")
	register(&gl.vertexAttribPointer, "glVertexAttribPointer")
	register(&gl.enableVertexAttribArray, "glEnableVertexAttribArray")

	register(&gl.createShader, "glCreateShader")
	register(&gl.shaderSource, "glShaderSource")
	register(&gl.compileShader, "glCompileShader")
	register(&gl.getShaderiv, "glGetShaderiv")
	register(&gl.getShaderInfoLog, "glGetShaderInfoLog")
	register(&gl.deleteShader, "glDeleteShader")
	register(&gl.createProgram, "glCreateProgram")
	register(&gl.attachShader, "glAttachShader")
	register(&gl.linkProgram, "glLinkProgram")
	register(&gl.getProgramiv, "glGetProgramiv")
	register(&gl.getProgramInfoLog, "glGetProgramInfoLog")
	register(&gl.useProgram, "glUseProgram")
	register(&gl.deleteProgram, "glDeleteProgram")
	register(&gl.getUniformLocation, "glGetUniformLocation")
	register(&gl.getAttribLocation, "glGetAttribLocation")
	register(&gl.getFragDataLocation, "glGetFragDataLocation")
	register(&gl.uniform1i, "glUniform1i")
	register(&gl.uniform1f, "glUniform1f")
	register(&gl.uniform2fv, "glUniform2fv")
	register(&gl.uniform3fv, "glUniform3fv")
	register(&gl.uniform4fv, "glUniform4fv")
	register(&gl.uniformMatrix3fv, "glUniformMatrix3fv")
	register(&gl.uniformMatrix4fv, "glUniformMatrix4fv")
	register(&gl.dispatchCompute, "glDispatchCompute")
	register(&gl.memoryBarrier, "glMemoryBarrier")

	register(&gl.drawArrays, "glDrawArrays")
}

// Missing returns the entry points the driver did not provide.
func (gl *openGL) Missing() []string {
	return gl.missing
}

func (gl *openGL) ClearColor(r, g, b, a float32) {
	gl.clearColor(r, g, b, a)
}

func (gl *openGL) ClearDepth(depth float64) {
	gl.clearDepth(depth)
}

func (gl *openGL) Clear(mask uint32) {
	gl.clear(mask)
}

func (gl *openGL) Viewport(x, y, width, height int32) {
	gl.viewport(x, y, width, height)
}

func (gl *openGL) GetString(name uint32) string {
	return gostring(gl.getString(name))
}

func (gl *openGL) GetIntegerv(pname uint32, data *int32) {
	gl.getIntegerv(pname, data)
}

func (gl *openGL) GetError() uint32 {
	return gl.getError()
}

func (gl *openGL) GenTextures(n int32, textures *uint32) {
	gl.genTextures(n, textures)
}

func (gl *openGL) DeleteTextures(n int32, textures *uint32) {
	gl.deleteTextures(n, textures)
}

func (gl *openGL) BindTexture(target, texture uint32) {
	gl.bindTexture(target, texture)
}

func (gl *openGL) ActiveTexture(texture uint32) {
	gl.activeTexture(texture)
}

func (gl *openGL) TexParameteri(target, pname uint32, param int32) {
	gl.texParameteri(target, pname, param)
}

func (gl *openGL) TexImage2D(target uint32, level, internalFormat, width, height, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.texImage2D(target, level, internalFormat, width, height, border, format, xtype, pixels)
}

func (gl *openGL) TexSubImage2D(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.texSubImage2D(target, level, xoffset, yoffset, width, height, format, xtype, pixels)
}

func (gl *openGL) TexImage3D(target uint32, level, internalFormat, width, height, depth, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.texImage3D(target, level, internalFormat, width, height, depth, border, format, xtype, pixels)
}

func (gl *openGL) TexSubImage3D(target uint32, level, xoffset, yoffset, zoffset, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.texSubImage3D(target, level, xoffset, yoffset, zoffset, width, height, depth, format, xtype, pixels)
}

func (gl *openGL) TexStorage2D(target uint32, levels int32, internalFormat uint32, width, height int32) {
	gl.texStorage2D(target, levels, internalFormat, width, height)
}

func (gl *openGL) TexStorage3D(target uint32, levels int32, internalFormat uint32, width, height, depth int32) {
	gl.texStorage3D(target, levels, internalFormat, width, height, depth)
}

func (gl *openGL) GenerateMipmap(target uint32) {
	gl.generateMipmap(target)
}

func (gl *openGL) GetTexImage(target uint32, level int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.getTexImage(target, level, format, xtype, pixels)
}

func (gl *openGL) GetTexLevelParameteriv(target uint32, level int32, pname uint32, params *int32) {
	gl.getTexLevelParameteriv(target, level, pname, params)
}

func (gl *openGL) CopyTexSubImage2D(target uint32, level, xoffset, yoffset, x, y, width, height int32) {
	gl.copyTexSubImage2D(target, level, xoffset, yoffset, x, y, width, height)
}

func (gl *openGL) PixelStorei(pname uint32, param int32) {
	gl.pixelStorei(pname, param)
}

func (gl *openGL) BindImageTexture(unit, texture uint32, level int32, layered bool, layer int32, access, format uint32) {
	gl.bindImageTexture(unit, texture, level, layered, layer, access, format)
}

func (gl *openGL) GenBuffers(n int32, buffers *uint32) {
	gl.genBuffers(n, buffers)
}

func (gl *openGL) DeleteBuffers(n int32, buffers *uint32) {
	gl.deleteBuffers(n, buffers)
}

func (gl *openGL) BindBuffer(target uint32, buffer uint32) {
	gl.bindBuffer(target, buffer)
}

func (gl *openGL) BindBufferBase(target, index, buffer uint32) {
	gl.bindBufferBase(target, index, buffer)
}

func (gl *openGL) BufferData(target uint32, size int, data unsafe.Pointer, usage uint32) {
	gl.bufferData(target, size, data, usage)
}

func (gl *openGL) BufferSubData(target uint32, offset int, size int, data unsafe.Pointer) {
	gl.bufferSubData(target, offset, size, data)
}

func (gl *openGL) BufferStorage(target uint32, size int, data unsafe.Pointer, flags uint32) {
	gl.bufferStorage(target, size, data, flags)
}

func (gl *openGL) ClearNamedBufferSubData(buffer, internalFormat uint32, offset, size int, format, xtype uint32, data unsafe.Pointer) {
	gl.clearNamedBufferSubData(buffer, internalFormat, offset, size, format, xtype, data)
}

func (gl *openGL) MapBuffer(target, access uint32) unsafe.Pointer {
	return gl.mapBuffer(target, access)
}

func (gl *openGL) UnmapBuffer(target uint32) bool {
	return gl.unmapBuffer(target)
}

func (gl *openGL) GenFramebuffers(n int32, framebuffers *uint32) {
	gl.genFramebuffers(n, framebuffers)
}

func (gl *openGL) DeleteFramebuffers(n int32, framebuffers *uint32) {
	gl.deleteFramebuffers(n, framebuffers)
}

func (gl *openGL) BindFramebuffer(target, framebuffer uint32) {
	gl.bindFramebuffer(target, framebuffer)
}

func (gl *openGL) FramebufferTexture2D(target, attachment, textarget, texture uint32, level int32) {
	gl.framebufferTexture2D(target, attachment, textarget, texture, level)
}

func (gl *openGL) FramebufferParameteri(target, pname uint32, param int32) {
	gl.framebufferParameteri(target, pname, param)
}

func (gl *openGL) CheckFramebufferStatus(target uint32) uint32 {
	return gl.checkFramebufferStatus(target)
}

func (gl *openGL) DrawBuffer(buf uint32) {
	gl.drawBuffer(buf)
}

func (gl *openGL) DrawBuffers(n int32, bufs *uint32) {
	gl.drawBuffers(n, bufs)
}

func (gl *openGL) ReadBuffer(src uint32) {
	gl.readBuffer(src)
}

func (gl *openGL) GenVertexArrays(n int32, arrays *uint32) {
	gl.genVertexArrays(n, arrays)
}

func (gl *openGL) DeleteVertexArrays(n int32, arrays *uint32) {
	gl.deleteVertexArrays(n, arrays)
}

func (gl *openGL) BindVertexArray(array uint32) {
	gl.bindVertexArray(array)
}

func (gl *openGL) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset unsafe.Pointer) {
	gl.vertexAttribPointer(index, size, xtype, normalized, stride, offset)
}

func (gl *openGL) EnableVertexAttribArray(index uint32) {
	gl.enableVertexAttribArray(index)
}

func (gl *openGL) CreateShader(xtype uint32) uint32 {
	return gl.createShader(xtype)
}

func (gl *openGL) ShaderSource(shader uint32, source string) {
	srcPtr := cstring(source)
	length := int32(len(source))
	gl.shaderSource(shader, 1, &srcPtr, &length)
}

func (gl *openGL) CompileShader(shader uint32) {
	gl.compileShader(shader)
}

func (gl *openGL) GetShaderiv(shader uint32, pname uint32, params *int32) {
	gl.getShaderiv(shader, pname, params)
}

func (gl *openGL) GetShaderInfoLog(shader uint32) string {
	var length int32
	gl.getShaderiv(shader, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.getShaderInfoLog(shader, length, &length, &log[0])
	return string(log[:length])
}

func (gl *openGL) DeleteShader(shader uint32) {
	gl.deleteShader(shader)
}

func (gl *openGL) CreateProgram() uint32 {
	return gl.createProgram()
}

func (gl *openGL) AttachShader(program uint32, shader uint32) {
	gl.attachShader(program, shader)
}

func (gl *openGL) LinkProgram(program uint32) {
	gl.linkProgram(program)
}

func (gl *openGL) GetProgramiv(program uint32, pname uint32, params *int32) {
	gl.getProgramiv(program, pname, params)
}

func (gl *openGL) GetProgramInfoLog(program uint32) string {
	var length int32
	gl.getProgramiv(program, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.getProgramInfoLog(program, length, &length, &log[0])
	return string(log[:length])
}

func (gl *openGL) UseProgram(program uint32) {
	gl.useProgram(program)
}

func (gl *openGL) DeleteProgram(program uint32) {
	gl.deleteProgram(program)
}

func (gl *openGL) GetUniformLocation(program uint32, name string) int32 {
	return gl.getUniformLocation(program, cstring(name))
}

func (gl *openGL) GetAttribLocation(program uint32, name string) int32 {
	return gl.getAttribLocation(program, cstring(name))
}

func (gl *openGL) GetFragDataLocation(program uint32, name string) int32 {
	return gl.getFragDataLocation(program, cstring(name))
}

func (gl *openGL) Uniform1i(location int32, v0 int32) {
	gl.uniform1i(location, v0)
}

func (gl *openGL) Uniform1f(location int32, v0 float32) {
	gl.uniform1f(location, v0)
}

func (gl *openGL) Uniform2fv(location int32, count int32, value *float32) {
	gl.uniform2fv(location, count, value)
}

func (gl *openGL) Uniform3fv(location int32, count int32, value *float32) {
	gl.uniform3fv(location, count, value)
}

func (gl *openGL) Uniform4fv(location int32, count int32, value *float32) {
	gl.uniform4fv(location, count, value)
}

func (gl *openGL) UniformMatrix3fv(location int32, count int32, transpose bool, value *float32) {
	gl.uniformMatrix3fv(location, count, transpose, value)
}

func (gl *openGL) UniformMatrix4fv(location int32, count int32, transpose bool, value *float32) {
	gl.uniformMatrix4fv(location, count, transpose, value)
}

func (gl *openGL) DispatchCompute(x, y, z uint32) {
	gl.dispatchCompute(x, y, z)
}

func (gl *openGL) MemoryBarrier(barriers uint32) {
	gl.memoryBarrier(barriers)
}

func (gl *openGL) DrawArrays(mode uint32, first int32, count int32) {
	gl.drawArrays(mode, first, count)
}
