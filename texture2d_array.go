package glkit

import (
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// Texture2DArray is a layered 2D texture. Depth is the layer count.
type Texture2DArray struct {
	storage

	upload *Ring
	sparse bool
}

func (c *Context) NewTexture2DArray(name string) *Texture2DArray {
	t := &Texture2DArray{storage: newStorage(c, name, gl.Texture2DArray)}
	t.setup()
	return t
}

// Depth is the number of layers.
func (t *Texture2DArray) Depth() int { return t.depth }

// NumBytes is the tightly packed size of level 0 of every layer.
func (t *Texture2DArray) NumBytes() int { return t.storage.NumBytes() * t.depth }

func (t *Texture2DArray) UploadRing() *Ring {
	if t.upload == nil {
		t.upload = newRing(t.ctx, t.h.name+".upload", t.ctx.opts.UploadSlots, gl.PixelUnpackBuffer, gl.StreamDraw)
	}
	return t.upload
}

// SetSparse marks the texture sparse. It must be called before storage is
// allocated.
func (t *Texture2DArray) SetSparse(sparse bool) error {
	if t.initialized {
		return newError(t.h.name, "set sparse", ErrPrecondition, "sparse flag must be set before allocation")
	}
	if err := t.parameter("set sparse", gl.TextureSparseARB, int32(boolInt(sparse))); err != nil {
		return err
	}
	t.sparse = sparse
	return nil
}

func (t *Texture2DArray) IsSparse() bool { return t.sparse }

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Allocate defines level 0 of d layers of w x h.
func (t *Texture2DArray) Allocate(internalFormat int32, format, typ uint32, w, h, d int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("allocate", tr); err != nil {
		return err
	}
	if t.immutable {
		return newError(t.h.name, "allocate", ErrImmutable, "texture was allocated with AllocateImmutable")
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexImage3D(t.target, 0, internalFormat, int32(w), int32(h), int32(d), 0, format, typ, nil)
	t.triple, t.width, t.height, t.depth = tr, w, h, d
	t.initialized = true
	if err := t.ctx.check(t.h.name, "allocate"); err != nil {
		return err
	}
	return t.regenerateMipmap()
}

// AllocateImmutable allocates a single immutable level with TexStorage3D.
func (t *Texture2DArray) AllocateImmutable(internalFormat int32, format, typ uint32, w, h, d int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("allocate immutable", tr); err != nil {
		return err
	}
	if t.immutable {
		return newError(t.h.name, "allocate immutable", ErrImmutable, "storage was already allocated")
	}
	if !t.ctx.Supports(">= 4.2") {
		return newError(t.h.name, "allocate immutable", ErrPrecondition, "TexStorage3D needs GL 4.2, context is %s", t.ctx.Version())
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexStorage3D(t.target, 1, uint32(internalFormat), int32(w), int32(h), int32(d))
	t.triple, t.width, t.height, t.depth = tr, w, h, d
	t.initialized, t.immutable = true, true
	t.maxMip = 0
	return t.ctx.check(t.h.name, "allocate immutable")
}

// Resize redefines level 0 with a new size and layer count.
func (t *Texture2DArray) Resize(w, h, d int) error {
	if err := t.resizable(w, h); err != nil {
		return err
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexImage3D(t.target, 0, t.triple.InternalFormat, int32(w), int32(h), int32(d), 0, t.triple.Format, t.triple.Type, nil)
	t.width, t.height, t.depth = w, h, d
	return t.regenerateMipmap()
}

func (t *Texture2DArray) AllocateOrResize(internalFormat int32, format, typ uint32, w, h, d int) error {
	if !t.initialized {
		return t.Allocate(internalFormat, format, typ, w, h, d)
	}
	if t.width != w || t.height != h || t.depth != d {
		return t.Resize(w, h, d)
	}
	return nil
}

// Upload writes every layer of level 0 through the upload ring, allocating
// or resizing first. data holds the layers back to back.
func (t *Texture2DArray) Upload(internalFormat int32, format, typ uint32, w, h, d int, data []byte) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("upload", tr); err != nil {
		return err
	}
	if t.initialized && t.triple.InternalFormat != internalFormat {
		return newError(t.h.name, "upload", ErrPrecondition, "texture holds 0x%X, data is 0x%X", t.triple.InternalFormat, internalFormat)
	}
	rowBytes := w * Channels(format) * BytesPerElement(typ)
	need := rowBytes * h * d
	if len(data) < need {
		return newError(t.h.name, "upload", ErrPrecondition, "%dx%dx%d needs %d bytes, got %d", w, h, d, need, len(data))
	}
	return t.alignedTransfer(gl.UnpackAlignment, rowBytes, func() error {
		if err := t.AllocateOrResize(internalFormat, format, typ, w, h, d); err != nil {
			return err
		}
		t.ctx.gl.BindTexture(t.target, t.h.id)
		return t.UploadRing().Stage(data[:need], w, h*d, func() error {
			t.ctx.gl.TexSubImage3D(t.target, 0, 0, 0, 0, int32(w), int32(h), int32(d), format, typ, nil)
			return nil
		})
	})
}

// UploadRegion writes a w x h x d box at (x, y, layer) directly from client
// memory, bypassing the ring.
func (t *Texture2DArray) UploadRegion(x, y, layer, w, h, d int, data []byte) error {
	if err := t.requireInitialized("upload region"); err != nil {
		return err
	}
	if x < 0 || y < 0 || layer < 0 || x+w > t.width || y+h > t.height || layer+d > t.depth {
		return newError(t.h.name, "upload region", ErrPrecondition, "box (%d,%d,%d)+(%d,%d,%d) outside %dx%dx%d", x, y, layer, w, h, d, t.width, t.height, t.depth)
	}
	rowBytes := w * t.Channels() * t.BytesPerElement()
	if len(data) < rowBytes*h*d || len(data) == 0 {
		return newError(t.h.name, "upload region", ErrPrecondition, "box needs %d bytes, got %d", rowBytes*h*d, len(data))
	}
	return t.alignedTransfer(gl.UnpackAlignment, rowBytes, func() error {
		t.ctx.gl.BindTexture(t.target, t.h.id)
		t.ctx.gl.TexSubImage3D(t.target, 0, int32(x), int32(y), int32(layer), int32(w), int32(h), int32(d), t.triple.Format, t.triple.Type, unsafe.Pointer(&data[0]))
		return t.ctx.check(t.h.name, "upload region")
	})
}

func (t *Texture2DArray) GenerateMipmap(level int) error {
	return t.generateMipmap(level)
}

func (t *Texture2DArray) Destroy() {
	if t.upload != nil {
		t.upload.Destroy()
		t.upload = nil
	}
	t.destroy()
}

func (t *Texture2DArray) Move() *Texture2DArray {
	out := &Texture2DArray{upload: t.upload, sparse: t.sparse}
	t.moveInto(&out.storage)
	t.upload = nil
	return out
}
