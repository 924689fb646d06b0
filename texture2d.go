package glkit

import (
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// Texture2D is a 2D texture with staged uploads and downloads.
type Texture2D struct {
	storage

	upload   *Ring
	download *Ring
}

// Size is the extent of one mip level.
type Size struct {
	Width  int
	Height int
}

// NewTexture2D creates a texture with a single level, clamped edges and
// linear filtering. Storage is allocated separately.
func (c *Context) NewTexture2D(name string) *Texture2D {
	t := &Texture2D{storage: newStorage(c, name, gl.Texture2D)}
	t.setup()
	return t
}

// UploadRing returns the staging ring used by Upload.
func (t *Texture2D) UploadRing() *Ring {
	if t.upload == nil {
		t.upload = newRing(t.ctx, t.h.name+".upload", t.ctx.opts.UploadSlots, gl.PixelUnpackBuffer, gl.StreamDraw)
	}
	return t.upload
}

// DownloadRing returns the staging ring used by DownloadToSlot.
func (t *Texture2D) DownloadRing() *Ring {
	if t.download == nil {
		t.download = newRing(t.ctx, t.h.name+".download", t.ctx.opts.DownloadSlots, gl.PixelPackBuffer, gl.StreamRead)
	}
	return t.download
}

// Allocate defines level 0 with undefined contents. Reallocating mutable
// storage redefines it; a generated mip chain is rebuilt.
func (t *Texture2D) Allocate(internalFormat int32, format, typ uint32, w, h int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("allocate", tr); err != nil {
		return err
	}
	if t.immutable {
		return newError(t.h.name, "allocate", ErrImmutable, "texture was allocated with AllocateImmutable")
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexImage2D(t.target, 0, internalFormat, int32(w), int32(h), 0, format, typ, nil)
	t.triple, t.width, t.height = tr, w, h
	t.initialized = true
	if err := t.ctx.check(t.h.name, "allocate"); err != nil {
		return err
	}
	return t.regenerateMipmap()
}

// AllocateImmutable allocates a single immutable level with TexStorage2D.
// Needs GL 4.2.
func (t *Texture2D) AllocateImmutable(internalFormat int32, format, typ uint32, w, h int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("allocate immutable", tr); err != nil {
		return err
	}
	if t.immutable {
		return newError(t.h.name, "allocate immutable", ErrImmutable, "storage was already allocated")
	}
	if !t.ctx.Supports(">= 4.2") {
		return newError(t.h.name, "allocate immutable", ErrPrecondition, "TexStorage2D needs GL 4.2, context is %s", t.ctx.Version())
	}
	if w < 1 || h < 1 {
		return newError(t.h.name, "allocate immutable", ErrPrecondition, "size %dx%d is empty", w, h)
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexStorage2D(t.target, 1, uint32(internalFormat), int32(w), int32(h))
	t.triple, t.width, t.height = tr, w, h
	t.initialized, t.immutable = true, true
	t.maxMip = 0
	return t.ctx.check(t.h.name, "allocate immutable")
}

// Resize redefines level 0 at a new size keeping the triple.
func (t *Texture2D) Resize(w, h int) error {
	if err := t.resizable(w, h); err != nil {
		return err
	}
	t.ctx.gl.BindTexture(t.target, t.h.id)
	t.ctx.gl.TexImage2D(t.target, 0, t.triple.InternalFormat, int32(w), int32(h), 0, t.triple.Format, t.triple.Type, nil)
	t.width, t.height = w, h
	if err := t.ctx.check(t.h.name, "resize"); err != nil {
		return err
	}
	return t.regenerateMipmap()
}

// AllocateOrResize allocates uninitialised storage and resizes storage whose
// size differs. Matching storage is left alone.
func (t *Texture2D) AllocateOrResize(internalFormat int32, format, typ uint32, w, h int) error {
	if !t.initialized {
		return t.Allocate(internalFormat, format, typ, w, h)
	}
	if t.width != w || t.height != h {
		return t.Resize(w, h)
	}
	return nil
}

// Upload writes a w x h image into level 0 through the upload ring,
// allocating or resizing the texture first.
func (t *Texture2D) Upload(internalFormat int32, format, typ uint32, w, h int, data []byte) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := t.validate("upload", tr); err != nil {
		return err
	}
	if t.initialized && t.triple.InternalFormat != internalFormat {
		return newError(t.h.name, "upload", ErrPrecondition, "texture holds 0x%X, data is 0x%X", t.triple.InternalFormat, internalFormat)
	}
	rowBytes := w * Channels(format) * BytesPerElement(typ)
	need := rowBytes * h
	if len(data) < need {
		return newError(t.h.name, "upload", ErrPrecondition, "%dx%d needs %d bytes, got %d", w, h, need, len(data))
	}

	err := t.alignedTransfer(gl.UnpackAlignment, rowBytes, func() error {
		if err := t.AllocateOrResize(internalFormat, format, typ, w, h); err != nil {
			return err
		}
		t.ctx.gl.BindTexture(t.target, t.h.id)
		return t.UploadRing().Stage(data[:need], w, h, func() error {
			t.ctx.gl.TexSubImage2D(t.target, 0, 0, 0, int32(w), int32(h), format, typ, nil)
			return nil
		})
	})
	if err != nil {
		return err
	}
	return t.generateMipmap(t.maxMip)
}

// UploadMat uploads a matrix using the triple MatTriple picks for it.
func (t *Texture2D) UploadMat(m *Mat, normalized bool) error {
	tr, err := MatTriple(m.Depth, m.Channels, false, normalized)
	if err != nil {
		return newError(t.h.name, "upload", ErrInvalidEnum, "%v", err)
	}
	return t.Upload(tr.InternalFormat, tr.Format, tr.Type, m.Cols, m.Rows, m.Data)
}

// DownloadToSlot queues a read of level 0 into the next download slot.
// The data is collected by a later DownloadFromOldestSlot.
func (t *Texture2D) DownloadToSlot() error {
	if err := t.requireInitialized("download"); err != nil {
		return err
	}
	rowBytes := t.width * t.Channels() * t.BytesPerElement()
	return t.alignedTransfer(gl.PackAlignment, rowBytes, func() error {
		return t.DownloadRing().Request(t.width, t.height, rowBytes*t.height, func() error {
			t.ctx.gl.BindTexture(t.target, t.h.id)
			t.ctx.gl.GetTexImage(t.target, 0, t.triple.Format, t.triple.Type, nil)
			return nil
		})
	})
}

// DownloadFromOldestSlot copies the oldest queued read into out. It reports
// false when no read was ever queued into that slot.
func (t *Texture2D) DownloadFromOldestSlot(out []byte) (bool, error) {
	if err := t.h.require("download"); err != nil {
		return false, err
	}
	return t.DownloadRing().ConsumeOldest(out)
}

// DownloadMat reads one level synchronously. Normalized byte formats come
// back as floats in [0,1], or [0,255] with denormalize.
func (t *Texture2D) DownloadMat(level int, denormalize bool) (*Mat, error) {
	return downloadMat(&t.storage, t.target, level, denormalize)
}

func downloadMat(s *storage, target uint32, level int, denormalize bool) (*Mat, error) {
	if err := s.requireInitialized("download"); err != nil {
		return nil, err
	}
	if level < 0 || level >= s.MipmapLevelsAllocated() {
		return nil, newError(s.h.name, "download", ErrPrecondition, "level %d not allocated, %d levels exist", level, s.MipmapLevelsAllocated())
	}
	rb, err := readbackFor(s.triple.InternalFormat)
	if err != nil {
		return nil, newError(s.h.name, "download", ErrInvalidEnum, "%v", err)
	}

	w, h := s.WidthForLevel(level), s.HeightForLevel(level)
	m := NewMat(h, w, rb.channels, rb.depth)
	if len(m.Data) == 0 {
		return m, nil
	}
	rowBytes := w * rb.channels * rb.depth.Size()
	err = s.alignedTransfer(gl.PackAlignment, rowBytes, func() error {
		s.ctx.gl.BindTexture(s.target, s.h.id)
		s.ctx.gl.GetTexImage(target, int32(level), rb.format, rb.typ, unsafe.Pointer(&m.Data[0]))
		return s.ctx.check(s.h.name, "download")
	})
	if err != nil {
		return nil, err
	}
	if denormalize && m.Depth == DepthF32 {
		m.Scale(255)
	}
	return m, nil
}

// GenerateMipmap builds levels 1..level. Level 0 is a no-op.
func (t *Texture2D) GenerateMipmap(level int) error {
	return t.generateMipmap(level)
}

// GenerateMipmapFull builds the full chain down to 1x1.
func (t *Texture2D) GenerateMipmapFull() error {
	return t.generateMipmap(t.MipmapHighestLevel())
}

// FBO returns the framebuffer rendering into one mip level.
func (t *Texture2D) FBO(mip int) (uint32, error) {
	return t.fbo(mip, gl.Texture2D)
}

// Clear sets every texel of level 0 to zero.
func (t *Texture2D) Clear() error { return t.SetValue(0, 0, 0, 0) }

// SetConstant sets every component of every texel of level 0 to v.
func (t *Texture2D) SetConstant(v float32) error { return t.SetValue(v, v, v, v) }

// SetConstantAlpha sets the colour components to v and alpha to a.
func (t *Texture2D) SetConstantAlpha(v, a float32) error { return t.SetValue(v, v, v, a) }

// SetValue clears level 0 to (r, g, b, a) through its framebuffer.
func (t *Texture2D) SetValue(r, g, b, a float32) error {
	return t.clearFaces(r, g, b, a, gl.Texture2D)
}

// CopyFrom copies one mip level of other into the same level of t.
func (t *Texture2D) CopyFrom(other *Texture2D, level int) error {
	if err := t.requireInitialized("copy"); err != nil {
		return err
	}
	if level >= t.MipmapLevelsAllocated() {
		return newError(t.h.name, "copy", ErrPrecondition, "level %d not allocated", level)
	}
	fbo, err := other.FBO(level)
	if err != nil {
		return err
	}
	w := min(t.WidthForLevel(level), other.WidthForLevel(level))
	h := min(t.HeightForLevel(level), other.HeightForLevel(level))

	g := t.ctx.gl
	g.BindFramebuffer(gl.Framebuffer, fbo)
	g.ReadBuffer(gl.ColorAttachment0)
	g.ActiveTexture(gl.Texture0)
	g.BindTexture(t.target, t.h.id)
	g.CopyTexSubImage2D(t.target, int32(level), 0, 0, 0, 0, int32(w), int32(h))
	g.BindFramebuffer(gl.Framebuffer, 0)
	return t.ctx.check(t.h.name, "copy")
}

// AllocatedLevelSizes asks GL for the size of every generated level.
func (t *Texture2D) AllocatedLevelSizes() ([]Size, error) {
	if err := t.requireInitialized("level sizes"); err != nil {
		return nil, err
	}
	g := t.ctx.gl
	g.BindTexture(t.target, t.h.id)
	sizes := make([]Size, t.MipmapLevelsAllocated())
	for level := range sizes {
		var w, h int32
		g.GetTexLevelParameteriv(t.target, int32(level), gl.TextureWidth, &w)
		g.GetTexLevelParameteriv(t.target, int32(level), gl.TextureHeight, &h)
		sizes[level] = Size{Width: int(w), Height: int(h)}
	}
	return sizes, nil
}

// Destroy deletes the texture, its framebuffers and its staging buffers.
func (t *Texture2D) Destroy() {
	if t.upload != nil {
		t.upload.Destroy()
		t.upload = nil
	}
	if t.download != nil {
		t.download.Destroy()
		t.download = nil
	}
	t.destroy()
}

// Move returns a Texture2D owning every native object of t and leaves t
// empty.
func (t *Texture2D) Move() *Texture2D {
	out := &Texture2D{upload: t.upload, download: t.download}
	t.moveInto(&out.storage)
	t.upload, t.download = nil, nil
	return out
}
