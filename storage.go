package glkit

import (
	"github.com/tinyrange/glkit/gl"
)

// storage is the state shared by every texture kind: the triple it was
// allocated with, its size, mutability and the highest generated mip level.
type storage struct {
	noCopy noCopy

	ctx    *Context
	h      *handle
	target uint32

	width, height, depth int
	triple               Triple

	initialized bool
	immutable   bool
	maxMip      int

	// fbos[i] renders into mip level i, created on first use.
	fbos []*handle
}

func newStorage(ctx *Context, name string, target uint32) storage {
	return storage{
		ctx:    ctx,
		h:      newHandle(ctx, kindTexture, name),
		target: target,
		depth:  1,
		triple: unsetTriple,
	}
}

// setup binds the fresh texture and sets the sampling defaults: a single
// level, clamped edges and linear filtering.
func (s *storage) setup() {
	g := s.ctx.gl
	g.BindTexture(s.target, s.h.id)
	g.TexParameteri(s.target, gl.TextureBaseLevel, 0)
	g.TexParameteri(s.target, gl.TextureMaxLevel, 0)
	g.TexParameteri(s.target, gl.TextureWrapS, gl.ClampToEdge)
	g.TexParameteri(s.target, gl.TextureWrapT, gl.ClampToEdge)
	if s.target == gl.TextureCubeMap {
		g.TexParameteri(s.target, gl.TextureWrapR, gl.ClampToEdge)
	}
	g.TexParameteri(s.target, gl.TextureMinFilter, gl.Linear)
	g.TexParameteri(s.target, gl.TextureMagFilter, gl.Linear)
}

func (s *storage) Name() string   { return s.h.name }
func (s *storage) ID() uint32     { return s.h.id }
func (s *storage) Target() uint32 { return s.target }

func (s *storage) IsInitialized() bool { return s.initialized }
func (s *storage) IsImmutable() bool   { return s.immutable }

func (s *storage) Triple() Triple        { return s.triple }
func (s *storage) InternalFormat() int32 { return s.triple.InternalFormat }
func (s *storage) Format() uint32        { return s.triple.Format }
func (s *storage) Type() uint32          { return s.triple.Type }

func (s *storage) Width() int  { return s.width }
func (s *storage) Height() int { return s.height }

// Channels is the component count of the pixel format.
func (s *storage) Channels() int { return Channels(s.triple.Format) }

// BytesPerElement is the size of one component of the pixel type.
func (s *storage) BytesPerElement() int { return BytesPerElement(s.triple.Type) }

// NumBytes is the tightly packed size of level 0 of one layer.
func (s *storage) NumBytes() int {
	return s.width * s.height * s.Channels() * s.BytesPerElement()
}

// MipmapHighestLevel is the index of the smallest level of a full chain at
// the current size.
func (s *storage) MipmapHighestLevel() int { return MipmapHighestLevel(s.width, s.height) }

// MipmapLevels is the length of a full chain at the current size.
func (s *storage) MipmapLevels() int { return s.MipmapHighestLevel() + 1 }

// MipmapLevelsAllocated is the number of levels currently generated.
func (s *storage) MipmapLevelsAllocated() int { return s.maxMip + 1 }

func (s *storage) WidthForLevel(level int) int  { return LevelSize(s.width, level) }
func (s *storage) HeightForLevel(level int) int { return LevelSize(s.height, level) }

// Bind binds the texture to its target on the active unit.
func (s *storage) Bind() error {
	if err := s.h.require("bind"); err != nil {
		return err
	}
	s.ctx.gl.BindTexture(s.target, s.h.id)
	return nil
}

// Unbind binds zero to the texture's target on the active unit.
func (s *storage) Unbind() {
	s.ctx.gl.BindTexture(s.target, 0)
}

func (s *storage) parameter(op string, pname uint32, value int32) error {
	if err := s.h.require(op); err != nil {
		return err
	}
	s.ctx.gl.BindTexture(s.target, s.h.id)
	s.ctx.gl.TexParameteri(s.target, pname, value)
	return nil
}

// SetWrapMode sets the wrap mode of every coordinate.
func (s *storage) SetWrapMode(mode int32) error {
	switch mode {
	case gl.ClampToEdge, gl.Repeat, gl.MirroredRepeat:
	default:
		return newError(s.h.name, "set wrap mode", ErrInvalidEnum, "wrap mode 0x%X", mode)
	}
	if err := s.parameter("set wrap mode", gl.TextureWrapS, mode); err != nil {
		return err
	}
	s.ctx.gl.TexParameteri(s.target, gl.TextureWrapT, mode)
	if s.target == gl.TextureCubeMap || s.target == gl.Texture2DArray {
		s.ctx.gl.TexParameteri(s.target, gl.TextureWrapR, mode)
	}
	return nil
}

func (s *storage) SetFilterMinMag(minFilter, magFilter int32) error {
	if err := s.SetFilterMin(minFilter); err != nil {
		return err
	}
	return s.SetFilterMag(magFilter)
}

func (s *storage) SetFilterMin(filter int32) error {
	switch filter {
	case gl.Nearest, gl.Linear, gl.NearestMipmapNearest, gl.LinearMipmapNearest, gl.NearestMipmapLinear, gl.LinearMipmapLinear:
	default:
		return newError(s.h.name, "set min filter", ErrInvalidEnum, "filter 0x%X", filter)
	}
	return s.parameter("set min filter", gl.TextureMinFilter, filter)
}

func (s *storage) SetFilterMag(filter int32) error {
	if filter != gl.Nearest && filter != gl.Linear {
		return newError(s.h.name, "set mag filter", ErrInvalidEnum, "filter 0x%X", filter)
	}
	return s.parameter("set mag filter", gl.TextureMagFilter, filter)
}

func (s *storage) validate(op string, t Triple) error {
	if err := s.h.require(op); err != nil {
		return err
	}
	if msg := t.problem(); msg != "" {
		return newError(s.h.name, op, ErrInvalidEnum, "%s", msg)
	}
	return nil
}

func (s *storage) requireInitialized(op string) error {
	if err := s.h.require(op); err != nil {
		return err
	}
	if !s.initialized {
		return newError(s.h.name, op, ErrPrecondition, "texture storage was never allocated")
	}
	return nil
}

// resizable checks the preconditions shared by every Resize.
func (s *storage) resizable(w, h int) error {
	if err := s.requireInitialized("resize"); err != nil {
		return err
	}
	if s.immutable {
		return newError(s.h.name, "resize", ErrImmutable, "texture was allocated with AllocateImmutable")
	}
	if w == 0 && h == 0 {
		return newError(s.h.name, "resize", ErrPrecondition, "cannot resize to 0x0")
	}
	return nil
}

// generateMipmap builds levels 1..level from level 0. Level 0 leaves the
// texture as it is.
func (s *storage) generateMipmap(level int) error {
	if err := s.requireInitialized("generate mipmap"); err != nil {
		return err
	}
	if level == 0 {
		return nil
	}
	if level < 0 || level > s.MipmapHighestLevel() {
		return newError(s.h.name, "generate mipmap", ErrPrecondition, "level %d outside [0, %d]", level, s.MipmapHighestLevel())
	}
	if s.immutable {
		return newError(s.h.name, "generate mipmap", ErrImmutable, "immutable storage holds a single level")
	}
	g := s.ctx.gl
	g.BindTexture(s.target, s.h.id)
	g.TexParameteri(s.target, gl.TextureMinFilter, gl.LinearMipmapLinear)
	g.TexParameteri(s.target, gl.TextureMagFilter, gl.Linear)
	g.TexParameteri(s.target, gl.TextureMaxLevel, int32(level))
	g.GenerateMipmap(s.target)
	s.maxMip = level
	return s.ctx.check(s.h.name, "generate mipmap")
}

// regenerateMipmap rebuilds the chain after level 0 was redefined, clamped
// to what the new size allows.
func (s *storage) regenerateMipmap() error {
	if s.maxMip == 0 {
		return nil
	}
	level := min(s.maxMip, s.MipmapHighestLevel())
	s.maxMip = 0
	if level == 0 {
		s.ctx.gl.TexParameteri(s.target, gl.TextureMaxLevel, 0)
		return nil
	}
	return s.generateMipmap(level)
}

// fbo returns the framebuffer rendering into mip level mip of face,
// creating it on first use.
func (s *storage) fbo(mip int, face uint32) (uint32, error) {
	if err := s.requireInitialized("framebuffer"); err != nil {
		return 0, err
	}
	if mip < 0 || mip >= s.MipmapLevelsAllocated() {
		return 0, newError(s.h.name, "framebuffer", ErrPrecondition, "mip %d not allocated, %d levels exist", mip, s.MipmapLevelsAllocated())
	}
	for len(s.fbos) <= mip {
		s.fbos = append(s.fbos, nil)
	}
	if s.fbos[mip].valid() {
		return s.fbos[mip].id, nil
	}

	fb := newHandle(s.ctx, kindFramebuffer, s.h.name)
	g := s.ctx.gl
	g.BindFramebuffer(gl.Framebuffer, fb.id)
	g.FramebufferTexture2D(gl.Framebuffer, gl.ColorAttachment0, face, s.h.id, int32(mip))
	g.DrawBuffer(gl.ColorAttachment0)
	status := g.CheckFramebufferStatus(gl.Framebuffer)
	g.BindFramebuffer(gl.Framebuffer, 0)
	if status != gl.FramebufferComplete {
		fb.destroy()
		return 0, newError(s.h.name, "framebuffer", ErrNative, "framebuffer incomplete: status 0x%X", status)
	}
	s.fbos[mip] = fb
	return fb.id, nil
}

// clearFaces fills level 0 of each face through the level 0 framebuffer.
func (s *storage) clearFaces(r, g, b, a float32, faces ...uint32) error {
	fbo, err := s.fbo(0, faces[0])
	if err != nil {
		return err
	}
	native := s.ctx.gl
	native.BindFramebuffer(gl.DrawFramebuffer, fbo)
	attachments := []uint32{gl.ColorAttachment0}
	native.DrawBuffers(1, &attachments[0])
	native.ClearColor(r, g, b, a)
	for i, face := range faces {
		if i > 0 {
			native.FramebufferTexture2D(gl.DrawFramebuffer, gl.ColorAttachment0, face, s.h.id, 0)
		}
		native.Clear(gl.ColorBufferBit | gl.DepthBufferBit)
	}
	if len(faces) > 1 {
		native.FramebufferTexture2D(gl.DrawFramebuffer, gl.ColorAttachment0, faces[0], s.h.id, 0)
	}
	native.BindFramebuffer(gl.DrawFramebuffer, 0)

	return s.generateMipmap(s.maxMip)
}

// alignedTransfer runs fn with the pack or unpack alignment dropped to 1 when
// a row of rowBytes is not a multiple of 4, restoring 4 afterwards.
func (s *storage) alignedTransfer(pname uint32, rowBytes int, fn func() error) error {
	if rowBytes%4 == 0 {
		return fn()
	}
	s.ctx.gl.PixelStorei(pname, 1)
	defer s.ctx.gl.PixelStorei(pname, 4)
	return fn()
}

func (s *storage) destroyFBOs() {
	for _, fb := range s.fbos {
		fb.destroy()
	}
	s.fbos = nil
}

func (s *storage) destroy() {
	s.destroyFBOs()
	s.h.destroy()
	s.initialized, s.immutable = false, false
	s.maxMip = 0
	s.triple = unsetTriple
}

// moveInto transfers ownership of every native object to dst.
func (s *storage) moveInto(dst *storage) {
	dst.ctx = s.ctx
	dst.h = s.h.move()
	dst.target = s.target
	dst.width, dst.height, dst.depth = s.width, s.height, s.depth
	dst.triple = s.triple
	dst.initialized, dst.immutable = s.initialized, s.immutable
	dst.maxMip = s.maxMip
	for _, fb := range s.fbos {
		if fb.valid() {
			dst.fbos = append(dst.fbos, fb.move())
		} else {
			dst.fbos = append(dst.fbos, nil)
		}
	}
	s.fbos = nil
	s.initialized, s.immutable = false, false
	s.maxMip = 0
	s.triple = unsetTriple
}
