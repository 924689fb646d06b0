package glkit

import (
	"fmt"
	"math"

	"github.com/tinyrange/glkit/gl"
)

// InvalidID marks a handle that owns no native object. Zero is a valid
// "no object" name in GL, so the sentinel is the largest int32 instead.
const InvalidID = math.MaxInt32

// noCopy makes go vet flag copies of the struct that embeds it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type objectKind int

const (
	kindTexture objectKind = iota
	kindBuffer
	kindFramebuffer
	kindVertexArray
	kindProgram
)

func (k objectKind) String() string {
	switch k {
	case kindTexture:
		return "texture"
	case kindBuffer:
		return "buffer"
	case kindFramebuffer:
		return "framebuffer"
	case kindVertexArray:
		return "vertex array"
	case kindProgram:
		return "program"
	}
	return fmt.Sprintf("objectKind(%d)", int(k))
}

// handle owns exactly one native object. Resources hold it by pointer so a
// copied resource value never leads to a second delete.
type handle struct {
	noCopy noCopy

	gl   gl.OpenGL
	kind objectKind
	id   uint32
	name string
}

func newHandle(ctx *Context, kind objectKind, name string) *handle {
	h := &handle{gl: ctx.gl, kind: kind, id: InvalidID, name: name}
	switch kind {
	case kindTexture:
		ctx.gl.GenTextures(1, &h.id)
	case kindBuffer:
		ctx.gl.GenBuffers(1, &h.id)
	case kindFramebuffer:
		ctx.gl.GenFramebuffers(1, &h.id)
	case kindVertexArray:
		ctx.gl.GenVertexArrays(1, &h.id)
	case kindProgram:
		h.id = ctx.gl.CreateProgram()
	}
	return h
}

func (h *handle) valid() bool {
	return h != nil && h.id != InvalidID
}

func (h *handle) destroy() {
	if !h.valid() {
		return
	}
	switch h.kind {
	case kindTexture:
		h.gl.DeleteTextures(1, &h.id)
	case kindBuffer:
		h.gl.DeleteBuffers(1, &h.id)
	case kindFramebuffer:
		h.gl.DeleteFramebuffers(1, &h.id)
	case kindVertexArray:
		h.gl.DeleteVertexArrays(1, &h.id)
	case kindProgram:
		h.gl.DeleteProgram(h.id)
	}
	h.id = InvalidID
}

// move hands the native object to a new handle and leaves h invalid.
func (h *handle) move() *handle {
	out := &handle{gl: h.gl, kind: h.kind, id: h.id, name: h.name}
	h.id = InvalidID
	return out
}

func (h *handle) require(op string) error {
	if h == nil {
		return newError("", op, ErrPrecondition, "object was never created")
	}
	if h.id == InvalidID {
		return newError(h.name, op, ErrPrecondition, "%s has been destroyed or moved", h.kind)
	}
	return nil
}
