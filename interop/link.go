package interop

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/glkit"
	"github.com/tinyrange/glkit/gl"
)

// registration tracks the storage a resource was registered for. A texture
// or buffer whose storage changes has to be registered again.
type registration struct {
	res    Resource
	id     uint32
	width  int
	height int
	format int32
	size   int
	valid  bool
}

func (r *registration) matches(o registration) bool {
	return r.valid && r.id == o.id && r.width == o.width && r.height == o.height && r.format == o.format && r.size == o.size
}

// TextureLink shares a Texture2D with a compute runtime.
type TextureLink struct {
	rt  Runtime
	tex *glkit.Texture2D
	reg registration
}

func NewTextureLink(rt Runtime, tex *glkit.Texture2D) *TextureLink {
	return &TextureLink{rt: rt, tex: tex}
}

// ensure registers the texture, or registers it again after its storage was
// reallocated.
func (l *TextureLink) ensure() error {
	want := registration{id: l.tex.ID(), width: l.tex.Width(), height: l.tex.Height(), format: l.tex.InternalFormat()}
	if l.reg.matches(want) {
		return nil
	}
	if err := l.release(); err != nil {
		return err
	}
	if err := l.tex.Bind(); err != nil {
		return err
	}
	res, err := l.rt.RegisterImage(l.tex.ID(), gl.Texture2D)
	if err != nil {
		return fmt.Errorf("%s: register: %w", l.tex.Name(), err)
	}
	want.res, want.valid = res, true
	l.reg = want
	slog.Debug("interop: registered texture", "texture", l.tex.Name(), "width", want.width, "height", want.height)
	return nil
}

func (l *TextureLink) release() error {
	if !l.reg.valid {
		return nil
	}
	l.reg.valid = false
	if err := l.rt.Unregister(l.reg.res); err != nil {
		return fmt.Errorf("%s: unregister: %w", l.tex.Name(), err)
	}
	return nil
}

// withArray maps the texture and runs fn with its level 0 array.
func (l *TextureLink) withArray(fn func(array uintptr) error) (err error) {
	if err := l.rt.Map(l.reg.res); err != nil {
		return fmt.Errorf("%s: map: %w", l.tex.Name(), err)
	}
	defer func() {
		if uerr := l.rt.Unmap(l.reg.res); uerr != nil && err == nil {
			err = fmt.Errorf("%s: unmap: %w", l.tex.Name(), uerr)
		}
	}()
	array, err := l.rt.MappedArray(l.reg.res)
	if err != nil {
		return fmt.Errorf("%s: mapped array: %w", l.tex.Name(), err)
	}
	return fn(array)
}

// Upload copies a 1xCxHxW tensor into level 0 of the texture, allocating or
// resizing it first. A texture that already has storage must have the
// format the tensor maps to.
func (l *TextureLink) Upload(t Tensor, flipRedBlue, normalized bool) error {
	c, h, w, err := t.imageDims()
	if err != nil {
		return fmt.Errorf("%s: upload tensor: %w", l.tex.Name(), err)
	}
	tr, err := TensorTriple(c, t.DType, flipRedBlue, normalized)
	if err != nil {
		return fmt.Errorf("%s: upload tensor: %w", l.tex.Name(), err)
	}
	if l.tex.IsInitialized() && l.tex.Triple() != tr {
		return fmt.Errorf("%s: upload tensor: %w: texture holds %v, tensor needs %v", l.tex.Name(), glkit.ErrPrecondition, l.tex.Triple(), tr)
	}
	if err := l.tex.AllocateOrResize(tr.InternalFormat, tr.Format, tr.Type, w, h); err != nil {
		return err
	}
	if err := l.ensure(); err != nil {
		return err
	}

	elem := t.DType.Size()
	rowBytes := c * w * elem
	src := t.Ptr
	if c > 1 {
		scratch, err := l.rt.Malloc(t.NumBytes())
		if err != nil {
			return fmt.Errorf("%s: upload tensor: %w", l.tex.Name(), err)
		}
		defer l.rt.Free(scratch)
		if err := planarToInterleaved(l.rt, scratch, t.Ptr, c, h, w, elem); err != nil {
			return fmt.Errorf("%s: upload tensor: %w", l.tex.Name(), err)
		}
		src = scratch
	}
	err = l.withArray(func(array uintptr) error {
		return l.rt.Memcpy2DToArray(array, src, rowBytes, rowBytes, h)
	})
	if err != nil {
		return fmt.Errorf("%s: upload tensor: %w", l.tex.Name(), err)
	}
	return l.rt.Synchronize()
}

// Download copies level 0 of the texture into a new 1xCxHxW tensor. The
// caller frees the tensor with the runtime.
func (l *TextureLink) Download() (Tensor, error) {
	if !l.tex.IsInitialized() {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w: texture storage was never allocated", l.tex.Name(), glkit.ErrPrecondition)
	}
	c, dtype, err := TextureTensor(l.tex.InternalFormat())
	if err != nil {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.tex.Name(), err)
	}
	if err := l.ensure(); err != nil {
		return Tensor{}, err
	}

	h, w, elem := l.tex.Height(), l.tex.Width(), dtype.Size()
	out := Tensor{Shape: []int{1, c, h, w}, DType: dtype}
	rowBytes := c * w * elem
	hwc, err := l.rt.Malloc(out.NumBytes())
	if err != nil {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.tex.Name(), err)
	}
	err = l.withArray(func(array uintptr) error {
		return l.rt.Memcpy2DFromArray(hwc, rowBytes, array, rowBytes, h)
	})
	if err != nil {
		l.rt.Free(hwc)
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.tex.Name(), err)
	}
	l.tex.Unbind()

	if c == 1 {
		out.Ptr = hwc
		return out, l.rt.Synchronize()
	}
	defer l.rt.Free(hwc)
	chw, err := l.rt.Malloc(out.NumBytes())
	if err != nil {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.tex.Name(), err)
	}
	if err := interleavedToPlanar(l.rt, chw, hwc, c, h, w, elem); err != nil {
		l.rt.Free(chw)
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.tex.Name(), err)
	}
	out.Ptr = chw
	return out, l.rt.Synchronize()
}

// Close unregisters the texture. The texture itself is left alone.
func (l *TextureLink) Close() error {
	return l.release()
}

// BufferLink shares a Buf with a compute runtime.
type BufferLink struct {
	rt  Runtime
	buf *glkit.Buf
	reg registration
}

func NewBufferLink(rt Runtime, buf *glkit.Buf) *BufferLink {
	return &BufferLink{rt: rt, buf: buf}
}

func (l *BufferLink) ensure() error {
	want := registration{id: l.buf.ID(), size: l.buf.Size()}
	if l.reg.matches(want) {
		return nil
	}
	if err := l.release(); err != nil {
		return err
	}
	res, err := l.rt.RegisterBuffer(l.buf.ID())
	if err != nil {
		return fmt.Errorf("%s: register: %w", l.buf.Name(), err)
	}
	want.res, want.valid = res, true
	l.reg = want
	slog.Debug("interop: registered buffer", "buffer", l.buf.Name(), "size", want.size)
	return nil
}

func (l *BufferLink) release() error {
	if !l.reg.valid {
		return nil
	}
	l.reg.valid = false
	if err := l.rt.Unregister(l.reg.res); err != nil {
		return fmt.Errorf("%s: unregister: %w", l.buf.Name(), err)
	}
	return nil
}

// withPointer maps the buffer and runs fn with its device pointer, checking
// the mapped size against want.
func (l *BufferLink) withPointer(want int, fn func(ptr uintptr) error) (err error) {
	if err := l.rt.Map(l.reg.res); err != nil {
		return fmt.Errorf("%s: map: %w", l.buf.Name(), err)
	}
	defer func() {
		if uerr := l.rt.Unmap(l.reg.res); uerr != nil && err == nil {
			err = fmt.Errorf("%s: unmap: %w", l.buf.Name(), uerr)
		}
	}()
	ptr, size, err := l.rt.MappedPointer(l.reg.res)
	if err != nil {
		return fmt.Errorf("%s: mapped pointer: %w", l.buf.Name(), err)
	}
	if size != want {
		return fmt.Errorf("%s: %w: mapped %d bytes, expected %d", l.buf.Name(), glkit.ErrNative, size, want)
	}
	if err := fn(ptr); err != nil {
		return err
	}
	return l.rt.Synchronize()
}

// Upload copies the tensor into the buffer, reallocating the data store with
// GL_DYNAMIC_DRAW when the sizes differ.
func (l *BufferLink) Upload(t Tensor) error {
	n := t.NumBytes()
	if n == 0 {
		return fmt.Errorf("%s: upload tensor: %w: empty tensor", l.buf.Name(), glkit.ErrPrecondition)
	}
	if !l.buf.IsInitialized() || l.buf.Size() != n {
		if err := l.buf.AllocateStorage(n, gl.DynamicDraw); err != nil {
			return err
		}
	}
	if err := l.ensure(); err != nil {
		return err
	}
	return l.withPointer(n, func(ptr uintptr) error {
		return l.rt.Memcpy(ptr, t.Ptr, n)
	})
}

// Download copies the whole buffer into a new one dimensional tensor of
// dtype elements. Trailing bytes that do not fill an element are dropped.
func (l *BufferLink) Download(dtype DType) (Tensor, error) {
	if !l.buf.IsInitialized() {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w: buffer storage was never allocated", l.buf.Name(), glkit.ErrPrecondition)
	}
	if dtype.Size() == 0 {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w: tensor type %s", l.buf.Name(), glkit.ErrInvalidEnum, dtype)
	}
	if err := l.ensure(); err != nil {
		return Tensor{}, err
	}
	out := Tensor{Shape: []int{l.buf.Size() / dtype.Size()}, DType: dtype}
	ptr, err := l.rt.Malloc(out.NumBytes())
	if err != nil {
		return Tensor{}, fmt.Errorf("%s: download tensor: %w", l.buf.Name(), err)
	}
	err = l.withPointer(l.buf.Size(), func(src uintptr) error {
		return l.rt.Memcpy(ptr, src, out.NumBytes())
	})
	if err != nil {
		l.rt.Free(ptr)
		return Tensor{}, err
	}
	out.Ptr = ptr
	return out, nil
}

func (l *BufferLink) Close() error {
	return l.release()
}
