package glkit

import (
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// CubeFace indexes the six faces in GL order: +X, -X, +Y, -Y, +Z, -Z.
type CubeFace int

const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

// Target is the image target of the face.
func (f CubeFace) Target() uint32 {
	return gl.TextureCubeMapPositiveX + uint32(f)
}

func cubeFaces() []uint32 {
	faces := make([]uint32, 6)
	for i := range faces {
		faces[i] = CubeFace(i).Target()
	}
	return faces
}

// CubeMap is a cube map texture with square faces.
type CubeMap struct {
	storage
}

func (c *Context) NewCubeMap(name string) *CubeMap {
	m := &CubeMap{storage: newStorage(c, name, gl.TextureCubeMap)}
	m.setup()
	return m
}

func (m *CubeMap) validFace(op string, face CubeFace) error {
	if face < FacePositiveX || face > FaceNegativeZ {
		return newError(m.h.name, op, ErrInvalidEnum, "cube face %d", int(face))
	}
	return nil
}

// Allocate defines level 0 of all six faces.
func (m *CubeMap) Allocate(internalFormat int32, format, typ uint32, w, h int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := m.validate("allocate", tr); err != nil {
		return err
	}
	if m.immutable {
		return newError(m.h.name, "allocate", ErrImmutable, "cube map was allocated with AllocateImmutable")
	}
	m.ctx.gl.BindTexture(m.target, m.h.id)
	for _, face := range cubeFaces() {
		m.ctx.gl.TexImage2D(face, 0, internalFormat, int32(w), int32(h), 0, format, typ, nil)
	}
	m.triple, m.width, m.height = tr, w, h
	m.initialized = true
	if err := m.ctx.check(m.h.name, "allocate"); err != nil {
		return err
	}
	return m.regenerateMipmap()
}

// AllocateImmutable allocates every face with one TexStorage2D on the cube
// target. Needs GL 4.2.
func (m *CubeMap) AllocateImmutable(internalFormat int32, format, typ uint32, w, h int) error {
	tr := Triple{InternalFormat: internalFormat, Format: format, Type: typ}
	if err := m.validate("allocate immutable", tr); err != nil {
		return err
	}
	if m.immutable {
		return newError(m.h.name, "allocate immutable", ErrImmutable, "storage was already allocated")
	}
	if !m.ctx.Supports(">= 4.2") {
		return newError(m.h.name, "allocate immutable", ErrPrecondition, "TexStorage2D needs GL 4.2, context is %s", m.ctx.Version())
	}
	m.ctx.gl.BindTexture(m.target, m.h.id)
	m.ctx.gl.TexStorage2D(m.target, 1, uint32(internalFormat), int32(w), int32(h))
	m.triple, m.width, m.height = tr, w, h
	m.initialized, m.immutable = true, true
	m.maxMip = 0
	return m.ctx.check(m.h.name, "allocate immutable")
}

// Resize redefines level 0 of every face.
func (m *CubeMap) Resize(w, h int) error {
	if err := m.resizable(w, h); err != nil {
		return err
	}
	m.ctx.gl.BindTexture(m.target, m.h.id)
	for _, face := range cubeFaces() {
		m.ctx.gl.TexImage2D(face, 0, m.triple.InternalFormat, int32(w), int32(h), 0, m.triple.Format, m.triple.Type, nil)
	}
	m.width, m.height = w, h
	return m.regenerateMipmap()
}

func (m *CubeMap) AllocateOrResize(internalFormat int32, format, typ uint32, w, h int) error {
	if !m.initialized {
		return m.Allocate(internalFormat, format, typ, w, h)
	}
	if m.width != w || m.height != h {
		return m.Resize(w, h)
	}
	return nil
}

// UploadFace writes level 0 of one face directly from client memory.
func (m *CubeMap) UploadFace(face CubeFace, data []byte) error {
	if err := m.requireInitialized("upload"); err != nil {
		return err
	}
	if err := m.validFace("upload", face); err != nil {
		return err
	}
	rowBytes := m.width * m.Channels() * m.BytesPerElement()
	if len(data) < rowBytes*m.height || len(data) == 0 {
		return newError(m.h.name, "upload", ErrPrecondition, "face needs %d bytes, got %d", rowBytes*m.height, len(data))
	}
	return m.alignedTransfer(gl.UnpackAlignment, rowBytes, func() error {
		m.ctx.gl.BindTexture(m.target, m.h.id)
		m.ctx.gl.TexSubImage2D(face.Target(), 0, 0, 0, int32(m.width), int32(m.height), m.triple.Format, m.triple.Type, unsafe.Pointer(&data[0]))
		return m.ctx.check(m.h.name, "upload")
	})
}

// DownloadMat reads one level of one face.
func (m *CubeMap) DownloadMat(face CubeFace, level int, denormalize bool) (*Mat, error) {
	if err := m.validFace("download", face); err != nil {
		return nil, err
	}
	return downloadMat(&m.storage, face.Target(), level, denormalize)
}

// GenerateMipmap builds levels 1..level of every face.
func (m *CubeMap) GenerateMipmap(level int) error {
	m.ctx.gl.ActiveTexture(gl.Texture0)
	return m.generateMipmap(level)
}

func (m *CubeMap) GenerateMipmapFull() error {
	return m.GenerateMipmap(m.MipmapHighestLevel())
}

// FBO returns the framebuffer of one mip level, with +X attached.
func (m *CubeMap) FBO(mip int) (uint32, error) {
	return m.fbo(mip, gl.TextureCubeMapPositiveX)
}

func (m *CubeMap) Clear() error                        { return m.SetValue(0, 0, 0, 0) }
func (m *CubeMap) SetConstant(v float32) error         { return m.SetValue(v, v, v, v) }
func (m *CubeMap) SetConstantAlpha(v, a float32) error { return m.SetValue(v, v, v, a) }

// SetValue clears level 0 of every face.
func (m *CubeMap) SetValue(r, g, b, a float32) error {
	return m.clearFaces(r, g, b, a, cubeFaces()...)
}

func (m *CubeMap) Destroy() {
	m.destroy()
}

func (m *CubeMap) Move() *CubeMap {
	out := &CubeMap{}
	m.moveInto(&out.storage)
	return out
}
