package glkit

import (
	"github.com/tinyrange/glkit/gl"
)

// VertexArrayObject records vertex attribute layouts and an index buffer.
type VertexArrayObject struct {
	noCopy noCopy

	ctx *Context
	h   *handle
}

func (c *Context) NewVertexArrayObject(name string) *VertexArrayObject {
	return &VertexArrayObject{ctx: c, h: newHandle(c, kindVertexArray, name)}
}

func (v *VertexArrayObject) Name() string { return v.h.name }
func (v *VertexArrayObject) ID() uint32   { return v.h.id }

func (v *VertexArrayObject) Bind() error {
	if err := v.h.require("bind"); err != nil {
		return err
	}
	v.ctx.gl.BindVertexArray(v.h.id)
	return nil
}

func (v *VertexArrayObject) Unbind() {
	v.ctx.gl.BindVertexArray(0)
}

// VertexAttribute feeds the vertex input name of prog from buf, size
// components per vertex of the buffer's element type. An input the program
// does not have is skipped with a warning.
func (v *VertexArrayObject) VertexAttribute(prog *Shader, name string, buf *Buf, size int) error {
	if err := v.h.require("vertex attribute"); err != nil {
		return err
	}
	if err := buf.require("vertex attribute"); err != nil {
		return err
	}
	if size < 1 || size > 4 {
		return newError(v.h.name, "vertex attribute", ErrPrecondition, "attribute size %d outside [1, 4]", size)
	}
	loc, err := prog.AttribLocation(name)
	if err != nil {
		return err
	}
	if loc == -1 {
		return nil
	}
	v.ctx.gl.BindVertexArray(v.h.id)
	v.ctx.gl.BindBuffer(buf.Target(), buf.ID())
	v.ctx.gl.VertexAttribPointer(uint32(loc), int32(size), buf.Type(), false, 0, nil)
	v.ctx.gl.EnableVertexAttribArray(uint32(loc))
	return nil
}

// Indices records buf as the element array of the vertex array.
func (v *VertexArrayObject) Indices(buf *Buf) error {
	if err := v.h.require("indices"); err != nil {
		return err
	}
	if buf.Target() != gl.ElementArrayBuffer {
		return newError(v.h.name, "indices", ErrPrecondition, "buffer %s does not target GL_ELEMENT_ARRAY_BUFFER", buf.Name())
	}
	if err := buf.h.require("indices"); err != nil {
		return err
	}
	v.ctx.gl.BindVertexArray(v.h.id)
	v.ctx.gl.BindBuffer(gl.ElementArrayBuffer, buf.ID())
	return nil
}

func (v *VertexArrayObject) Destroy() {
	v.h.destroy()
}
