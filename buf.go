package glkit

import (
	"log/slog"
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// Buf owns one buffer object together with the target and usage it was last
// allocated for.
type Buf struct {
	noCopy noCopy

	ctx *Context
	h   *handle

	target uint32
	typ    uint32
	usage  uint32
	size   int

	initialized bool
	immutable   bool
	cpuDirty    bool
	gpuDirty    bool

	width, height, depth int
}

// NewBuf creates a buffer object. The target must be set before it is bound.
func (c *Context) NewBuf(name string) *Buf {
	return &Buf{
		ctx:    c,
		h:      newHandle(c, kindBuffer, name),
		target: InvalidID,
		typ:    gl.Float,
		usage:  InvalidID,
		size:   -1,
	}
}

func bytesPointer(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

func (b *Buf) Name() string   { return b.h.name }
func (b *Buf) ID() uint32     { return b.h.id }
func (b *Buf) Target() uint32 { return b.target }
func (b *Buf) Type() uint32   { return b.typ }
func (b *Buf) Usage() uint32  { return b.usage }

// Size is the byte size of the data store, -1 before the first allocation.
func (b *Buf) Size() int { return b.size }

func (b *Buf) IsInitialized() bool { return b.initialized }
func (b *Buf) IsImmutable() bool   { return b.immutable }

func (b *Buf) SetTarget(target uint32)      { b.target = target }
func (b *Buf) SetTargetArrayBuffer()        { b.target = gl.ArrayBuffer }
func (b *Buf) SetTargetElementArrayBuffer() { b.target = gl.ElementArrayBuffer }

// SetType records the element type vertex attributes read from the buffer.
func (b *Buf) SetType(typ uint32) { b.typ = typ }

// SetDims records the logical shape of the data, used by the staging rings
// and by tensor interop. It does not touch the data store.
func (b *Buf) SetDims(w, h, d int) {
	b.width, b.height, b.depth = w, h, d
}

func (b *Buf) Width() int  { return b.width }
func (b *Buf) Height() int { return b.height }
func (b *Buf) Depth() int  { return b.depth }

func (b *Buf) SetCPUDirty(v bool) { b.cpuDirty = v }
func (b *Buf) SetGPUDirty(v bool) { b.gpuDirty = v }
func (b *Buf) IsCPUDirty() bool   { return b.cpuDirty }
func (b *Buf) IsGPUDirty() bool   { return b.gpuDirty }

func (b *Buf) require(op string) error {
	if err := b.h.require(op); err != nil {
		return err
	}
	if b.target == InvalidID {
		return newError(b.h.name, op, ErrPrecondition, "buffer target was never set")
	}
	return nil
}

// Bind binds the buffer to its target.
func (b *Buf) Bind() error {
	if err := b.require("bind"); err != nil {
		return err
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	return nil
}

// Unbind binds zero to the buffer's target.
func (b *Buf) Unbind() {
	if b.target != InvalidID {
		b.ctx.gl.BindBuffer(b.target, 0)
	}
}

// AllocateStorage (re)creates an uninitialised data store of size bytes. A
// zero size is a no-op.
func (b *Buf) AllocateStorage(size int, usage uint32) error {
	if size == 0 {
		return nil
	}
	if err := b.require("allocate storage"); err != nil {
		return err
	}
	if b.immutable {
		return newError(b.h.name, "allocate storage", ErrImmutable, "buffer storage was allocated with AllocateImmutable")
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	b.ctx.gl.BufferData(b.target, size, nil, usage)
	b.size, b.usage, b.initialized = size, usage, true
	return b.ctx.check(b.h.name, "allocate storage")
}

// Orphan detaches the current data store so the driver can hand out fresh
// memory without waiting for pending reads.
func (b *Buf) Orphan() error {
	if err := b.require("orphan"); err != nil {
		return err
	}
	if !b.initialized {
		return newError(b.h.name, "orphan", ErrPrecondition, "buffer has no data store")
	}
	if b.immutable {
		return newError(b.h.name, "orphan", ErrImmutable, "immutable buffers cannot be orphaned")
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	b.ctx.gl.BufferData(b.target, b.size, nil, b.usage)
	return nil
}

// UploadData replaces the data store with a copy of data.
func (b *Buf) UploadData(data []byte, usage uint32) error {
	if err := b.require("upload data"); err != nil {
		return err
	}
	if b.immutable {
		return newError(b.h.name, "upload data", ErrImmutable, "use UploadSubData on immutable buffers")
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	b.ctx.gl.BufferData(b.target, len(data), bytesPointer(data), usage)
	b.size, b.usage, b.initialized = len(data), usage, true
	b.cpuDirty = false
	return b.ctx.check(b.h.name, "upload data")
}

// UploadDataTo sets the target and uploads.
func (b *Buf) UploadDataTo(target uint32, data []byte, usage uint32) error {
	b.target = target
	return b.UploadData(data, usage)
}

// UploadDataSameUsage uploads with the usage of the previous allocation.
func (b *Buf) UploadDataSameUsage(data []byte) error {
	if b.usage == InvalidID {
		return newError(b.h.name, "upload data", ErrPrecondition, "no previous usage to reuse")
	}
	return b.UploadData(data, b.usage)
}

// UploadSubData overwrites part of the data store starting at offset.
func (b *Buf) UploadSubData(offset int, data []byte) error {
	if err := b.require("upload sub data"); err != nil {
		return err
	}
	if !b.initialized {
		return newError(b.h.name, "upload sub data", ErrPrecondition, "buffer has no data store")
	}
	if offset < 0 || offset+len(data) > b.size {
		return newError(b.h.name, "upload sub data", ErrPrecondition, "range [%d, %d) exceeds size %d", offset, offset+len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	b.ctx.gl.BufferSubData(b.target, offset, len(data), bytesPointer(data))
	return b.ctx.check(b.h.name, "upload sub data")
}

// UploadSubDataTo sets the target and uploads a range.
func (b *Buf) UploadSubDataTo(target uint32, offset int, data []byte) error {
	b.target = target
	return b.UploadSubData(offset, data)
}

// UploadSlice uploads a slice of plain values as raw bytes.
func UploadSlice[T any](b *Buf, data []T, usage uint32) error {
	var raw []byte
	if len(data) > 0 {
		raw = unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(data[0])))
	}
	return b.UploadData(raw, usage)
}

// AllocateImmutable creates a fixed-size data store with BufferStorage.
func (b *Buf) AllocateImmutable(size int, flags uint32) error {
	if err := b.require("allocate immutable"); err != nil {
		return err
	}
	if b.immutable {
		return newError(b.h.name, "allocate immutable", ErrImmutable, "buffer storage was already allocated")
	}
	if size <= 0 {
		return newError(b.h.name, "allocate immutable", ErrPrecondition, "size must be positive, got %d", size)
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	b.ctx.gl.BufferStorage(b.target, size, nil, flags)
	b.size, b.initialized, b.immutable = size, true, true
	return b.ctx.check(b.h.name, "allocate immutable")
}

// AllocateImmutableTo sets the target and allocates immutable storage.
func (b *Buf) AllocateImmutableTo(target uint32, size int, flags uint32) error {
	b.target = target
	return b.AllocateImmutable(size, flags)
}

// BindForModify binds the buffer to a shader storage binding point. A
// binding of -1, what a missing block reports, is a warning.
func (b *Buf) BindForModify(binding int) error {
	if err := b.h.require("bind for modify"); err != nil {
		return err
	}
	if binding < 0 {
		slog.Warn("buf: storage binding not found", "buffer", b.h.name, "binding", binding)
		return nil
	}
	b.ctx.gl.BindBufferBase(gl.ShaderStorageBuffer, uint32(binding), b.h.id)
	b.gpuDirty = true
	return nil
}

// ClearToFloat fills the data store with v. Requires GL 4.5.
func (b *Buf) ClearToFloat(v float32) error {
	if err := b.h.require("clear"); err != nil {
		return err
	}
	if !b.initialized {
		return newError(b.h.name, "clear", ErrPrecondition, "buffer has no data store")
	}
	if !b.ctx.Supports(">= 4.5") {
		return newError(b.h.name, "clear", ErrPrecondition, "ClearNamedBufferSubData needs GL 4.5, context is %s", b.ctx.Version())
	}
	b.ctx.gl.ClearNamedBufferSubData(b.h.id, gl.R32F, 0, b.size, gl.Red, gl.Float, unsafe.Pointer(&v))
	return b.ctx.check(b.h.name, "clear")
}

// Download maps the data store and copies it into dst, returning the number
// of bytes copied. It blocks until pending GPU writes finish.
func (b *Buf) Download(dst []byte) (int, error) {
	if err := b.require("download"); err != nil {
		return 0, err
	}
	if !b.initialized || b.size <= 0 {
		return 0, newError(b.h.name, "download", ErrPrecondition, "buffer has no data store")
	}
	b.ctx.gl.BindBuffer(b.target, b.h.id)
	defer b.ctx.gl.BindBuffer(b.target, 0)

	ptr := b.ctx.gl.MapBuffer(b.target, gl.ReadOnly)
	if ptr == nil {
		return 0, newError(b.h.name, "download", ErrNative, "MapBuffer returned nil")
	}
	n := copy(dst, unsafe.Slice((*byte)(ptr), b.size))
	b.ctx.gl.UnmapBuffer(b.target)
	b.gpuDirty = false
	return n, nil
}

// Destroy deletes the buffer object. It is safe to call more than once.
func (b *Buf) Destroy() {
	b.h.destroy()
	b.initialized, b.immutable = false, false
	b.size = -1
}

// Move returns a Buf owning the buffer object and leaves b empty.
func (b *Buf) Move() *Buf {
	out := &Buf{
		ctx:         b.ctx,
		h:           b.h.move(),
		target:      b.target,
		typ:         b.typ,
		usage:       b.usage,
		size:        b.size,
		initialized: b.initialized,
		immutable:   b.immutable,
		cpuDirty:    b.cpuDirty,
		gpuDirty:    b.gpuDirty,
		width:       b.width,
		height:      b.height,
		depth:       b.depth,
	}
	b.initialized, b.immutable = false, false
	b.size = -1
	return out
}
