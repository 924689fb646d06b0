package glkit

import (
	"github.com/tinyrange/glkit/gl"
)

// GBuffer is a framebuffer with named colour textures on consecutive
// attachments and an optional depth texture. All members share one size.
type GBuffer struct {
	noCopy noCopy

	ctx *Context
	fb  *handle

	width, height int
	sized         bool

	names    []string
	index    map[string]int
	textures []*Texture2D

	depthName string
	depth     *Texture2D
}

func (c *Context) NewGBuffer(name string) *GBuffer {
	return &GBuffer{
		ctx:   c,
		fb:    newHandle(c, kindFramebuffer, name),
		index: make(map[string]int),
	}
}

func (b *GBuffer) Name() string        { return b.fb.name }
func (b *GBuffer) FBO() uint32         { return b.fb.id }
func (b *GBuffer) Width() int          { return b.width }
func (b *GBuffer) Height() int         { return b.height }
func (b *GBuffer) IsInitialized() bool { return b.sized }

// Names returns the colour texture names in attachment order.
func (b *GBuffer) Names() []string {
	return append([]string(nil), b.names...)
}

// AttachmentIndex returns i for a texture on COLOR_ATTACHMENT0+i.
func (b *GBuffer) AttachmentIndex(name string) (int, bool) {
	i, ok := b.index[name]
	return i, ok
}

// Texture returns a colour texture or the depth texture by name.
func (b *GBuffer) Texture(name string) *Texture2D {
	if i, ok := b.index[name]; ok {
		return b.textures[i]
	}
	if b.depth != nil && name == b.depthName {
		return b.depth
	}
	return nil
}

func (b *GBuffer) HasTexture(name string) bool {
	return b.Texture(name) != nil
}

// DepthTexture returns the depth texture, or nil.
func (b *GBuffer) DepthTexture() *Texture2D { return b.depth }

func (b *GBuffer) attach(op, name string) error {
	if err := b.fb.require(op); err != nil {
		return err
	}
	if !b.sized {
		return newError(b.fb.name, op, ErrPrecondition, "set a size with SetSize or MakeEmpty before adding %q", name)
	}
	if b.HasTexture(name) {
		return newError(b.fb.name, op, ErrPrecondition, "texture %q already exists", name)
	}
	return nil
}

// AddTexture allocates a colour texture at the current size and attaches it
// to the next colour attachment.
func (b *GBuffer) AddTexture(name string, internalFormat int32, format, typ uint32) error {
	if err := b.attach("add texture", name); err != nil {
		return err
	}
	i := len(b.textures)
	if i >= b.ctx.maxColorAttachments {
		return newError(b.fb.name, "add texture", ErrPrecondition, "all %d colour attachments are used", b.ctx.maxColorAttachments)
	}
	tex := b.ctx.NewTexture2D(b.fb.name + "." + name)
	if err := tex.Allocate(internalFormat, format, typ, b.width, b.height); err != nil {
		tex.Destroy()
		return err
	}

	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, b.fb.id)
	b.ctx.gl.FramebufferTexture2D(gl.DrawFramebuffer, gl.ColorAttachment0+uint32(i), gl.Texture2D, tex.ID(), 0)
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)

	b.names = append(b.names, name)
	b.textures = append(b.textures, tex)
	b.index[name] = i
	return nil
}

// AddDepth allocates a 32-bit depth texture and attaches it.
func (b *GBuffer) AddDepth(name string) error {
	if err := b.attach("add depth", name); err != nil {
		return err
	}
	if b.depth != nil {
		return newError(b.fb.name, "add depth", ErrPrecondition, "depth texture %q already exists", b.depthName)
	}
	tex := b.ctx.NewTexture2D(b.fb.name + "." + name)
	if err := tex.Allocate(gl.DepthComponent32, gl.DepthComponent, gl.Float, b.width, b.height); err != nil {
		tex.Destroy()
		return err
	}

	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, b.fb.id)
	b.ctx.gl.FramebufferTexture2D(gl.DrawFramebuffer, gl.DepthAttachment, gl.Texture2D, tex.ID(), 0)
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)

	b.depthName, b.depth = name, tex
	return nil
}

// SetSize resizes every member whose size differs.
func (b *GBuffer) SetSize(w, h int) error {
	if err := b.fb.require("set size"); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return newError(b.fb.name, "set size", ErrPrecondition, "size %dx%d is empty", w, h)
	}
	for _, tex := range b.textures {
		if tex.Width() != w || tex.Height() != h {
			if err := tex.Resize(w, h); err != nil {
				return err
			}
		}
	}
	if b.depth != nil && b.depth.IsInitialized() && (b.depth.Width() != w || b.depth.Height() != h) {
		if err := b.depth.Resize(w, h); err != nil {
			return err
		}
	}
	b.width, b.height, b.sized = w, h, true
	return nil
}

// MakeEmpty configures a framebuffer without attachments that rasterizes
// at w x h, for passes that only write images or buffers.
func (b *GBuffer) MakeEmpty(w, h int) error {
	if err := b.fb.require("make empty"); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return newError(b.fb.name, "make empty", ErrPrecondition, "size %dx%d is empty", w, h)
	}
	b.width, b.height, b.sized = w, h, true
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, b.fb.id)
	b.ctx.gl.FramebufferParameteri(gl.DrawFramebuffer, gl.FramebufferDefaultWidth, int32(w))
	b.ctx.gl.FramebufferParameteri(gl.DrawFramebuffer, gl.FramebufferDefaultHeight, int32(h))
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)
	return b.SanityCheck()
}

// SanityCheck reports an incomplete framebuffer as ErrNative.
func (b *GBuffer) SanityCheck() error {
	if err := b.fb.require("check"); err != nil {
		return err
	}
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, b.fb.id)
	status := b.ctx.gl.CheckFramebufferStatus(gl.DrawFramebuffer)
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)
	if status != gl.FramebufferComplete {
		return newError(b.fb.name, "check", ErrNative, "framebuffer incomplete: status 0x%X", status)
	}
	return nil
}

func (b *GBuffer) bind(target uint32) error {
	if err := b.fb.require("bind"); err != nil {
		return err
	}
	b.ctx.gl.BindFramebuffer(target, b.fb.id)
	return nil
}

func (b *GBuffer) Bind() error        { return b.bind(gl.Framebuffer) }
func (b *GBuffer) BindForDraw() error { return b.bind(gl.DrawFramebuffer) }
func (b *GBuffer) BindForRead() error { return b.bind(gl.ReadFramebuffer) }

func (b *GBuffer) Unbind() {
	b.ctx.gl.BindFramebuffer(gl.Framebuffer, 0)
}

func (b *GBuffer) drawBuffers() []uint32 {
	bufs := make([]uint32, len(b.textures))
	for i := range bufs {
		bufs[i] = gl.ColorAttachment0 + uint32(i)
	}
	return bufs
}

// Clear zeroes every colour texture and resets depth.
func (b *GBuffer) Clear() error { return b.SetConstant(0) }

// SetConstant sets every component of every colour texture to v and resets
// depth.
func (b *GBuffer) SetConstant(v float32) error {
	if err := b.BindForDraw(); err != nil {
		return err
	}
	if bufs := b.drawBuffers(); len(bufs) > 0 {
		b.ctx.gl.DrawBuffers(int32(len(bufs)), &bufs[0])
	}
	b.ctx.gl.ClearColor(v, v, v, v)
	b.ctx.gl.Clear(gl.ColorBufferBit | gl.DepthBufferBit)
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)
	return nil
}

// ClearDepth sets every texel of the depth texture to d.
func (b *GBuffer) ClearDepth(d float64) error {
	if b.depth == nil {
		return newError(b.fb.name, "clear depth", ErrPrecondition, "no depth texture")
	}
	if err := b.BindForDraw(); err != nil {
		return err
	}
	b.ctx.gl.ClearDepth(d)
	b.ctx.gl.Clear(gl.DepthBufferBit)
	b.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, 0)
	return nil
}

// Destroy deletes the framebuffer and every member texture.
func (b *GBuffer) Destroy() {
	for _, tex := range b.textures {
		tex.Destroy()
	}
	if b.depth != nil {
		b.depth.Destroy()
	}
	b.fb.destroy()
	b.textures, b.names, b.depth = nil, nil, nil
	b.index = make(map[string]int)
	b.sized = false
}
