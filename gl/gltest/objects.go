package gltest

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

func (f *Fake) GenBuffers(n int32, buffers *uint32) {
	f.gen(n, buffers, func(id uint32) {
		f.buffers[id] = &buffer{}
	})
	f.record("GenBuffers", n)
}

func (f *Fake) DeleteBuffers(n int32, buffers *uint32) {
	for _, id := range unsafe.Slice(buffers, n) {
		delete(f.buffers, id)
		for k, v := range f.boundBuf {
			if v == id {
				delete(f.boundBuf, k)
			}
		}
	}
	f.record("DeleteBuffers", n)
}

func (f *Fake) BindBuffer(target, id uint32) {
	f.record("BindBuffer", target, id)
	if id != 0 {
		if _, ok := f.buffers[id]; !ok {
			f.fail(gl.InvalidValue)
			return
		}
	}
	f.boundBuf[target] = id
	if target == gl.ElementArrayBuffer && f.boundVAO != 0 {
		f.vertexArrays[f.boundVAO].element = id
	}
}

func (f *Fake) BindBufferBase(target, index, id uint32) {
	f.record("BindBufferBase", target, index, id)
	f.bufferBases[unitTarget{unit: index, target: target}] = id
	f.boundBuf[target] = id
}

func (f *Fake) boundBuffer(target uint32) *buffer {
	id := f.boundBuf[target]
	if id == 0 {
		f.fail(gl.InvalidOperation)
		return nil
	}
	return f.buffers[id]
}

func (f *Fake) BufferData(target uint32, size int, data unsafe.Pointer, usage uint32) {
	f.record("BufferData", target, size, data, usage)
	b := f.boundBuffer(target)
	if b == nil {
		return
	}
	if b.immutable {
		f.fail(gl.InvalidOperation)
		return
	}
	b.data = make([]byte, size)
	if data != nil {
		copy(b.data, unsafe.Slice((*byte)(data), size))
	}
	b.usage = usage
	b.mapped = false
}

func (f *Fake) BufferSubData(target uint32, offset, size int, data unsafe.Pointer) {
	f.record("BufferSubData", target, offset, size, data)
	b := f.boundBuffer(target)
	if b == nil {
		return
	}
	if offset < 0 || offset+size > len(b.data) || b.mapped {
		f.fail(gl.InvalidValue)
		return
	}
	copy(b.data[offset:], unsafe.Slice((*byte)(data), size))
}

func (f *Fake) BufferStorage(target uint32, size int, data unsafe.Pointer, flags uint32) {
	f.record("BufferStorage", target, size, data, flags)
	b := f.boundBuffer(target)
	if b == nil {
		return
	}
	if b.immutable || size <= 0 {
		f.fail(gl.InvalidOperation)
		return
	}
	b.data = make([]byte, size)
	if data != nil {
		copy(b.data, unsafe.Slice((*byte)(data), size))
	}
	b.immutable = true
}

func (f *Fake) ClearNamedBufferSubData(id, internalFormat uint32, offset, size int, format, xtype uint32, data unsafe.Pointer) {
	f.record("ClearNamedBufferSubData", id, internalFormat, offset, size, format, xtype, data)
	b, ok := f.buffers[id]
	if !ok || offset+size > len(b.data) {
		f.fail(gl.InvalidValue)
		return
	}
	if internalFormat != gl.R32F || format != gl.Red || xtype != gl.Float {
		f.fail(gl.InvalidEnum)
		return
	}
	v := *(*float32)(data)
	for i := offset; i+4 <= offset+size; i += 4 {
		binary.LittleEndian.PutUint32(b.data[i:], math.Float32bits(v))
	}
}

func (f *Fake) MapBuffer(target, access uint32) unsafe.Pointer {
	f.record("MapBuffer", target, access)
	b := f.boundBuffer(target)
	if b == nil || b.mapped || len(b.data) == 0 {
		f.fail(gl.InvalidOperation)
		return nil
	}
	b.mapped = true
	return unsafe.Pointer(&b.data[0])
}

func (f *Fake) UnmapBuffer(target uint32) bool {
	f.record("UnmapBuffer", target)
	b := f.boundBuffer(target)
	if b == nil || !b.mapped {
		f.fail(gl.InvalidOperation)
		return false
	}
	b.mapped = false
	return true
}

func (f *Fake) GenFramebuffers(n int32, framebuffers *uint32) {
	f.gen(n, framebuffers, func(id uint32) {
		f.framebuffers[id] = &framebuffer{
			color:       make(map[uint32]attachment),
			drawBuffers: []uint32{gl.ColorAttachment0},
			readBuffer:  gl.ColorAttachment0,
		}
	})
	f.record("GenFramebuffers", n)
}

func (f *Fake) DeleteFramebuffers(n int32, framebuffers *uint32) {
	for _, id := range unsafe.Slice(framebuffers, n) {
		delete(f.framebuffers, id)
		if f.drawFB == id {
			f.drawFB = 0
		}
		if f.readFB == id {
			f.readFB = 0
		}
	}
	f.record("DeleteFramebuffers", n)
}

func (f *Fake) BindFramebuffer(target, id uint32) {
	f.record("BindFramebuffer", target, id)
	if id != 0 {
		if _, ok := f.framebuffers[id]; !ok {
			f.fail(gl.InvalidOperation)
			return
		}
	}
	switch target {
	case gl.Framebuffer:
		f.drawFB, f.readFB = id, id
	case gl.DrawFramebuffer:
		f.drawFB = id
	case gl.ReadFramebuffer:
		f.readFB = id
	default:
		f.fail(gl.InvalidEnum)
	}
}

func (f *Fake) boundFramebuffer(target uint32) *framebuffer {
	id := f.drawFB
	if target == gl.ReadFramebuffer {
		id = f.readFB
	}
	fb, ok := f.framebuffers[id]
	if !ok {
		f.fail(gl.InvalidOperation)
		return nil
	}
	return fb
}

func (f *Fake) FramebufferTexture2D(target, point, textarget, id uint32, level int32) {
	f.record("FramebufferTexture2D", target, point, textarget, id, level)
	fb := f.boundFramebuffer(target)
	if fb == nil {
		return
	}
	if point == gl.DepthAttachment {
		if id == 0 {
			fb.depth = nil
			return
		}
		fb.depth = &attachment{texture: id, face: textarget, level: level}
		return
	}
	if point < gl.ColorAttachment0 || point >= gl.ColorAttachment0+uint32(f.MaxColorAttachments) {
		f.fail(gl.InvalidEnum)
		return
	}
	if id == 0 {
		delete(fb.color, point)
		return
	}
	fb.color[point] = attachment{texture: id, face: textarget, level: level}
}

func (f *Fake) FramebufferParameteri(target, pname uint32, param int32) {
	f.record("FramebufferParameteri", target, pname, param)
	fb := f.boundFramebuffer(target)
	if fb == nil {
		return
	}
	switch pname {
	case gl.FramebufferDefaultWidth:
		fb.defaultWidth = param
	case gl.FramebufferDefaultHeight:
		fb.defaultHeight = param
	default:
		f.fail(gl.InvalidEnum)
	}
}

// Status values returned by CheckFramebufferStatus besides gl.FramebufferComplete.
const (
	FramebufferIncompleteAttachment        = 0x8CD6
	FramebufferIncompleteMissingAttachment = 0x8CD7
)

func (f *Fake) CheckFramebufferStatus(target uint32) uint32 {
	f.record("CheckFramebufferStatus", target)
	fb := f.boundFramebuffer(target)
	if fb == nil {
		return 0
	}
	var images []*image
	for _, a := range fb.color {
		images = append(images, f.attachedImage(a))
	}
	if fb.depth != nil {
		images = append(images, f.attachedImage(*fb.depth))
	}
	if len(images) == 0 {
		if fb.defaultWidth > 0 && fb.defaultHeight > 0 {
			return gl.FramebufferComplete
		}
		return FramebufferIncompleteMissingAttachment
	}
	for _, img := range images {
		if img == nil || img.w == 0 || img.h == 0 {
			return FramebufferIncompleteAttachment
		}
	}
	return gl.FramebufferComplete
}

func (f *Fake) DrawBuffer(buf uint32) {
	f.record("DrawBuffer", buf)
	if fb := f.boundFramebuffer(gl.DrawFramebuffer); fb != nil {
		fb.drawBuffers = []uint32{buf}
	}
}

func (f *Fake) DrawBuffers(n int32, bufs *uint32) {
	list := append([]uint32(nil), unsafe.Slice(bufs, n)...)
	f.record("DrawBuffers", n, list)
	if fb := f.boundFramebuffer(gl.DrawFramebuffer); fb != nil {
		fb.drawBuffers = list
	}
}

func (f *Fake) ReadBuffer(src uint32) {
	f.record("ReadBuffer", src)
	if fb := f.boundFramebuffer(gl.ReadFramebuffer); fb != nil {
		fb.readBuffer = src
	}
}

func (f *Fake) GenVertexArrays(n int32, arrays *uint32) {
	f.gen(n, arrays, func(id uint32) {
		f.vertexArrays[id] = &vertexArray{attribs: make(map[uint32]*VertexAttrib)}
	})
	f.record("GenVertexArrays", n)
}

func (f *Fake) DeleteVertexArrays(n int32, arrays *uint32) {
	for _, id := range unsafe.Slice(arrays, n) {
		delete(f.vertexArrays, id)
		if f.boundVAO == id {
			f.boundVAO = 0
		}
	}
	f.record("DeleteVertexArrays", n)
}

func (f *Fake) BindVertexArray(id uint32) {
	f.record("BindVertexArray", id)
	if id != 0 {
		if _, ok := f.vertexArrays[id]; !ok {
			f.fail(gl.InvalidOperation)
			return
		}
	}
	f.boundVAO = id
}

func (f *Fake) vertexAttrib(index uint32) *VertexAttrib {
	va, ok := f.vertexArrays[f.boundVAO]
	if !ok {
		f.fail(gl.InvalidOperation)
		return nil
	}
	a, ok := va.attribs[index]
	if !ok {
		a = &VertexAttrib{}
		va.attribs[index] = a
	}
	return a
}

func (f *Fake) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset unsafe.Pointer) {
	f.record("VertexAttribPointer", index, size, xtype, normalized, stride, offset)
	if a := f.vertexAttrib(index); a != nil {
		a.Buffer = f.boundBuf[gl.ArrayBuffer]
		a.Size = size
		a.Type = xtype
	}
}

func (f *Fake) EnableVertexAttribArray(index uint32) {
	f.record("EnableVertexAttribArray", index)
	if a := f.vertexAttrib(index); a != nil {
		a.Enabled = true
	}
}

func (f *Fake) DispatchCompute(x, y, z uint32) {
	f.record("DispatchCompute", x, y, z)
	if p, ok := f.programs[f.current]; !ok || !p.compute {
		f.fail(gl.InvalidOperation)
	}
}

func (f *Fake) MemoryBarrier(barriers uint32) {
	f.record("MemoryBarrier", barriers)
}

func (f *Fake) DrawArrays(mode uint32, first int32, count int32) {
	f.record("DrawArrays", mode, first, count)
}
