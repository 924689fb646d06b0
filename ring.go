package glkit

import (
	"fmt"
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// Ring rotates a fixed set of pixel buffers so the CPU never writes into, or
// maps, a buffer the GPU may still be using. A slot is reused only after
// every other slot has been used once; there are no fences.
type Ring struct {
	ctx    *Context
	target uint32
	usage  uint32
	slots  []*Buf
	cursor int
}

func newRing(ctx *Context, name string, n int, target, usage uint32) *Ring {
	r := &Ring{ctx: ctx, target: target, usage: usage, slots: make([]*Buf, n)}
	for i := range r.slots {
		slot := ctx.NewBuf(fmt.Sprintf("%s[%d]", name, i))
		slot.SetTarget(target)
		r.slots[i] = slot
	}
	return r
}

// Len is the number of slots.
func (r *Ring) Len() int { return len(r.slots) }

// Cursor is the index of the slot the next transfer uses. For downloads it is
// also the slot holding the oldest request.
func (r *Ring) Cursor() int { return r.cursor }

// Slot returns slot i.
func (r *Ring) Slot(i int) *Buf { return r.slots[i] }

// prepare binds the slot at the cursor, reallocating it only when the shape
// it was last allocated for differs.
func (r *Ring) prepare(w, h, size int) (*Buf, error) {
	slot := r.slots[r.cursor]
	if err := slot.Bind(); err != nil {
		return nil, err
	}
	if !slot.initialized || slot.width != w || slot.height != h || slot.size != size {
		r.ctx.gl.BufferData(r.target, size, nil, r.usage)
		slot.size, slot.usage, slot.initialized = size, r.usage, true
		slot.SetDims(w, h, 1)
	}
	return slot, nil
}

func (r *Ring) advance() {
	r.cursor = (r.cursor + 1) % len(r.slots)
}

// Stage writes data into the current slot and runs commit while the slot is
// bound, so commit reads its pixels from offset 0 of the slot.
func (r *Ring) Stage(data []byte, w, h int, commit func() error) error {
	slot, err := r.prepare(w, h, len(data))
	if err != nil {
		return err
	}
	defer slot.Unbind()

	if len(data) > 0 {
		r.ctx.gl.BufferSubData(r.target, 0, len(data), bytesPointer(data))
	}
	if err := commit(); err != nil {
		return err
	}
	r.advance()
	return r.ctx.check(slot.h.name, "stage")
}

// Request runs issue with the current slot bound so the GPU writes size
// bytes into it, then advances. The data is read later by ConsumeOldest.
func (r *Ring) Request(w, h, size int, issue func() error) error {
	slot, err := r.prepare(w, h, size)
	if err != nil {
		return err
	}
	defer slot.Unbind()

	if err := issue(); err != nil {
		return err
	}
	r.advance()
	return r.ctx.check(slot.h.name, "request")
}

// ConsumeOldest copies the slot at the cursor, the oldest outstanding
// request, into out. It reports false and leaves out untouched when that
// slot was never written.
func (r *Ring) ConsumeOldest(out []byte) (bool, error) {
	slot := r.slots[r.cursor]
	if !slot.initialized {
		return false, nil
	}
	if err := slot.Bind(); err != nil {
		return false, err
	}
	defer slot.Unbind()

	ptr := r.ctx.gl.MapBuffer(r.target, gl.ReadOnly)
	if ptr == nil {
		return false, newError(slot.h.name, "consume", ErrNative, "MapBuffer returned nil")
	}
	copy(out, unsafe.Slice((*byte)(ptr), slot.size))
	r.ctx.gl.UnmapBuffer(r.target)
	return true, nil
}

// Destroy deletes every slot.
func (r *Ring) Destroy() {
	for _, slot := range r.slots {
		slot.Destroy()
	}
}
