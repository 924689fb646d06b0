// Package gltest provides a software implementation of gl.OpenGL for tests.
//
// Fake keeps real texel and buffer storage, honours pixel buffer objects and
// pack/unpack alignment, clears framebuffer attachments through the current
// draw buffers, generates box-filtered mipmaps and reflects shader sources for
// uniform, attribute and fragment output locations. Every call is appended to
// a log so tests can assert on ordering and counts.
package gltest

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

// Call is one recorded entry point invocation.
type Call struct {
	Name string
	Args []interface{}
}

// Arg returns the i-th argument of the call.
func (c Call) Arg(i int) interface{} {
	return c.Args[i]
}

type imageKey struct {
	face  uint32
	level int32
}

type image struct {
	w, h, d        int32
	internalFormat int32
	texels         []float32
}

type texture struct {
	target    uint32
	immutable bool
	levels    int32
	images    map[imageKey]*image
	params    map[uint32]int32
}

type buffer struct {
	data      []byte
	usage     uint32
	immutable bool
	mapped    bool
}

type attachment struct {
	texture uint32
	face    uint32
	level   int32
}

type framebuffer struct {
	color         map[uint32]attachment
	depth         *attachment
	drawBuffers   []uint32
	readBuffer    uint32
	defaultWidth  int32
	defaultHeight int32
}

type unitTarget struct {
	unit   uint32
	target uint32
}

// ImageBinding is the state of one image unit after BindImageTexture.
type ImageBinding struct {
	Texture uint32
	Level   int32
	Layered bool
	Layer   int32
	Access  uint32
	Format  uint32
}

// VertexAttrib is the state of one generic vertex attribute of a VAO.
type VertexAttrib struct {
	Buffer  uint32
	Size    int32
	Type    uint32
	Enabled bool
}

type vertexArray struct {
	attribs map[uint32]*VertexAttrib
	element uint32
}

// Fake is an in-memory OpenGL 4.6 implementation. The zero value is not
// usable; create one with New.
type Fake struct {
	// VersionString is returned for GetString(gl.Version).
	VersionString string
	// Limits answered by GetIntegerv.
	MaxColorAttachments  int32
	MaxTextureImageUnits int32
	MaxImageUnits        int32

	// Calls is the log of every entry point invocation, oldest first.
	Calls []Call

	nextID       uint32
	textures     map[uint32]*texture
	buffers      map[uint32]*buffer
	framebuffers map[uint32]*framebuffer
	vertexArrays map[uint32]*vertexArray
	shaders      map[uint32]*shader
	programs     map[uint32]*program

	activeUnit  uint32
	boundTex    map[unitTarget]uint32
	boundBuf    map[uint32]uint32
	drawFB      uint32
	readFB      uint32
	boundVAO    uint32
	current     uint32
	pixelStore  map[uint32]int32
	clearColor  [4]float32
	clearDepth  float64
	errors      []uint32
	imageUnits  map[uint32]ImageBinding
	bufferBases map[unitTarget]uint32
}

// New returns a Fake reporting OpenGL 4.6 with common desktop limits.
func New() *Fake {
	return &Fake{
		VersionString:        "4.6.0 gltest",
		MaxColorAttachments:  8,
		MaxTextureImageUnits: 16,
		MaxImageUnits:        8,
		textures:             make(map[uint32]*texture),
		buffers:              make(map[uint32]*buffer),
		framebuffers:         make(map[uint32]*framebuffer),
		vertexArrays:         make(map[uint32]*vertexArray),
		shaders:              make(map[uint32]*shader),
		programs:             make(map[uint32]*program),
		boundTex:             make(map[unitTarget]uint32),
		boundBuf:             make(map[uint32]uint32),
		pixelStore:           map[uint32]int32{gl.UnpackAlignment: 4, gl.PackAlignment: 4},
		clearDepth:           1,
		imageUnits:           make(map[uint32]ImageBinding),
		bufferBases:          make(map[unitTarget]uint32),
	}
}

var _ gl.OpenGL = (*Fake)(nil)

func (f *Fake) record(name string, args ...interface{}) {
	f.Calls = append(f.Calls, Call{Name: name, Args: args})
}

func (f *Fake) fail(code uint32) {
	f.errors = append(f.errors, code)
}

// Count returns how many times the named entry point was called.
func (f *Fake) Count(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Named returns the recorded calls of one entry point, oldest first.
func (f *Fake) Named(name string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the entry point names of the log, oldest first.
func (f *Fake) Names() []string {
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.Name
	}
	return out
}

// ResetCalls clears the call log. Object state is kept.
func (f *Fake) ResetCalls() {
	f.Calls = nil
}

// PendingErrors returns the error flags not yet consumed by GetError.
func (f *Fake) PendingErrors() []uint32 {
	return append([]uint32(nil), f.errors...)
}

// PixelStore returns the current value of a PixelStorei parameter.
func (f *Fake) PixelStore(pname uint32) int32 {
	return f.pixelStore[pname]
}

// BoundBuffer returns the buffer bound to target.
func (f *Fake) BoundBuffer(target uint32) uint32 {
	return f.boundBuf[target]
}

// BoundFramebuffers returns the draw and read framebuffer bindings.
func (f *Fake) BoundFramebuffers() (draw, read uint32) {
	return f.drawFB, f.readFB
}

// ImageUnit returns the binding of an image unit.
func (f *Fake) ImageUnit(unit uint32) ImageBinding {
	return f.imageUnits[unit]
}

// BufferBase returns the buffer bound to an indexed binding point.
func (f *Fake) BufferBase(target, index uint32) uint32 {
	return f.bufferBases[unitTarget{unit: index, target: target}]
}

// TextureAt returns the texture bound to target on a texture unit.
func (f *Fake) TextureAt(unit, target uint32) uint32 {
	return f.boundTex[unitTarget{unit: unit, target: target}]
}

// Live returns the number of live objects of each kind.
func (f *Fake) Live() (textures, buffers, framebuffers, vertexArrays, programs int) {
	return len(f.textures), len(f.buffers), len(f.framebuffers), len(f.vertexArrays), len(f.programs)
}

// BufferBytes returns a copy of a buffer's data store.
func (f *Fake) BufferBytes(id uint32) []byte {
	b, ok := f.buffers[id]
	if !ok {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// BufferUsage returns the usage hint of a mutable buffer.
func (f *Fake) BufferUsage(id uint32) uint32 {
	if b, ok := f.buffers[id]; ok {
		return b.usage
	}
	return 0
}

// Level returns the size and RGBA texels of one texture image. face is
// gl.Texture2D, gl.Texture2DArray or a cube face target.
func (f *Fake) Level(id uint32, face uint32, level int32) (w, h, d int32, texels []float32, ok bool) {
	t, exists := f.textures[id]
	if !exists {
		return 0, 0, 0, nil, false
	}
	img, exists := t.images[imageKey{face: face, level: level}]
	if !exists {
		return 0, 0, 0, nil, false
	}
	return img.w, img.h, img.d, append([]float32(nil), img.texels...), true
}

// TexParameter returns a parameter set with TexParameteri.
func (f *Fake) TexParameter(id uint32, pname uint32) (int32, bool) {
	t, ok := f.textures[id]
	if !ok {
		return 0, false
	}
	v, ok := t.params[pname]
	return v, ok
}

// DrawBuffersOf returns the draw buffer list of a framebuffer.
func (f *Fake) DrawBuffersOf(fbo uint32) []uint32 {
	if fb, ok := f.framebuffers[fbo]; ok {
		return append([]uint32(nil), fb.drawBuffers...)
	}
	return nil
}

// Attachment returns the texture attached to a framebuffer attachment point.
func (f *Fake) Attachment(fbo, point uint32) (texture uint32, face uint32, level int32, ok bool) {
	fb, exists := f.framebuffers[fbo]
	if !exists {
		return 0, 0, 0, false
	}
	if point == gl.DepthAttachment {
		if fb.depth == nil {
			return 0, 0, 0, false
		}
		return fb.depth.texture, fb.depth.face, fb.depth.level, true
	}
	a, exists := fb.color[point]
	return a.texture, a.face, a.level, exists
}

// VertexAttrib returns the state of an attribute of a vertex array object.
func (f *Fake) VertexAttrib(vao, index uint32) (VertexAttrib, bool) {
	va, ok := f.vertexArrays[vao]
	if !ok {
		return VertexAttrib{}, false
	}
	a, ok := va.attribs[index]
	if !ok {
		return VertexAttrib{}, false
	}
	return *a, true
}

// ElementBuffer returns the element array buffer recorded by a vertex array object.
func (f *Fake) ElementBuffer(vao uint32) uint32 {
	if va, ok := f.vertexArrays[vao]; ok {
		return va.element
	}
	return 0
}

func (f *Fake) gen(n int32, out *uint32, register func(id uint32)) {
	ids := unsafe.Slice(out, n)
	for i := range ids {
		f.nextID++
		ids[i] = f.nextID
		register(f.nextID)
	}
}

func (f *Fake) ClearColor(r, g, b, a float32) {
	f.record("ClearColor", r, g, b, a)
	f.clearColor = [4]float32{r, g, b, a}
}

func (f *Fake) ClearDepth(depth float64) {
	f.record("ClearDepth", depth)
	f.clearDepth = depth
}

func (f *Fake) Clear(mask uint32) {
	f.record("Clear", mask)
	fb, ok := f.framebuffers[f.drawFB]
	if !ok {
		return
	}
	if mask&gl.ColorBufferBit != 0 {
		for _, buf := range fb.drawBuffers {
			if buf == gl.None {
				continue
			}
			a, ok := fb.color[buf]
			if !ok {
				continue
			}
			if img := f.attachedImage(a); img != nil {
				info := infoFor(img.internalFormat)
				for i := 0; i < len(img.texels); i += 4 {
					for c := 0; c < 4; c++ {
						img.texels[i+c] = storeValue(info, c, f.clearColor[c])
					}
				}
			}
		}
	}
	if mask&gl.DepthBufferBit != 0 && fb.depth != nil {
		if img := f.attachedImage(*fb.depth); img != nil {
			info := infoFor(img.internalFormat)
			for i := 0; i < len(img.texels); i += 4 {
				img.texels[i] = storeValue(info, 0, float32(f.clearDepth))
			}
		}
	}
}

func (f *Fake) Viewport(x, y, width, height int32) {
	f.record("Viewport", x, y, width, height)
}

func (f *Fake) GetString(name uint32) string {
	f.record("GetString", name)
	switch name {
	case gl.Vendor:
		return "gltest"
	case gl.Renderer:
		return "software"
	case gl.Version:
		return f.VersionString
	case gl.ShadingLanguageVersion:
		return "4.60"
	}
	return ""
}

func (f *Fake) GetIntegerv(pname uint32, data *int32) {
	f.record("GetIntegerv", pname)
	switch pname {
	case gl.MaxColorAttachments, gl.MaxDrawBuffers:
		*data = f.MaxColorAttachments
	case gl.MaxTextureImageUnits:
		*data = f.MaxTextureImageUnits
	case gl.MaxImageUnits:
		*data = f.MaxImageUnits
	case gl.UnpackAlignment, gl.PackAlignment:
		*data = f.pixelStore[pname]
	default:
		f.fail(gl.InvalidEnum)
	}
}

func (f *Fake) GetError() uint32 {
	f.record("GetError")
	if len(f.errors) == 0 {
		return gl.NoError
	}
	code := f.errors[0]
	f.errors = f.errors[1:]
	return code
}

func (f *Fake) GenTextures(n int32, textures *uint32) {
	f.gen(n, textures, func(id uint32) {
		f.textures[id] = &texture{
			images: make(map[imageKey]*image),
			params: map[uint32]int32{gl.TextureMaxLevel: 1000},
		}
	})
	f.record("GenTextures", n)
}

func (f *Fake) DeleteTextures(n int32, textures *uint32) {
	for _, id := range unsafe.Slice(textures, n) {
		delete(f.textures, id)
		for k, v := range f.boundTex {
			if v == id {
				delete(f.boundTex, k)
			}
		}
	}
	f.record("DeleteTextures", n)
}

func (f *Fake) BindTexture(target, id uint32) {
	f.record("BindTexture", target, id)
	if id != 0 {
		t, ok := f.textures[id]
		if !ok {
			f.fail(gl.InvalidValue)
			return
		}
		if t.target != 0 && t.target != target {
			f.fail(gl.InvalidOperation)
			return
		}
		t.target = target
	}
	f.boundTex[unitTarget{unit: f.activeUnit, target: target}] = id
}

func (f *Fake) ActiveTexture(unit uint32) {
	f.record("ActiveTexture", unit)
	f.activeUnit = unit - gl.Texture0
}

func bindingTarget(target uint32) uint32 {
	if target >= gl.TextureCubeMapPositiveX && target < gl.TextureCubeMapPositiveX+6 {
		return gl.TextureCubeMap
	}
	return target
}

func (f *Fake) bound(target uint32) *texture {
	id := f.boundTex[unitTarget{unit: f.activeUnit, target: bindingTarget(target)}]
	if id == 0 {
		return nil
	}
	return f.textures[id]
}

func (f *Fake) TexParameteri(target, pname uint32, param int32) {
	f.record("TexParameteri", target, pname, param)
	t := f.bound(target)
	if t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	t.params[pname] = param
}

func newImage(w, h, d, internalFormat int32) *image {
	img := &image{w: w, h: h, d: d, internalFormat: internalFormat}
	img.texels = make([]float32, int(w)*int(h)*int(d)*4)
	for i := 3; i < len(img.texels); i += 4 {
		img.texels[i] = 1
	}
	return img
}

// faceTargets returns the image faces a TexImage/TexStorage target addresses.
func faceTargets(target uint32) []uint32 {
	if target == gl.TextureCubeMap {
		return []uint32{
			gl.TextureCubeMapPositiveX, gl.TextureCubeMapPositiveX + 1, gl.TextureCubeMapPositiveX + 2,
			gl.TextureCubeMapPositiveX + 3, gl.TextureCubeMapPositiveX + 4, gl.TextureCubeMapPositiveX + 5,
		}
	}
	return []uint32{target}
}

func (f *Fake) TexImage2D(target uint32, level, internalFormat, width, height, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	f.record("TexImage2D", target, level, internalFormat, width, height, border, format, xtype, pixels)
	f.texImage(target, level, internalFormat, width, height, 1, format, xtype, pixels)
}

func (f *Fake) TexImage3D(target uint32, level, internalFormat, width, height, depth, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	f.record("TexImage3D", target, level, internalFormat, width, height, depth, border, format, xtype, pixels)
	f.texImage(target, level, internalFormat, width, height, depth, format, xtype, pixels)
}

func (f *Fake) texImage(target uint32, level, internalFormat, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	t := f.bound(target)
	if t == nil || target == gl.TextureCubeMap {
		f.fail(gl.InvalidOperation)
		return
	}
	if t.immutable {
		f.fail(gl.InvalidOperation)
		return
	}
	if width < 0 || height < 0 || depth < 0 {
		f.fail(gl.InvalidValue)
		return
	}
	img := newImage(width, height, depth, internalFormat)
	t.images[imageKey{face: target, level: level}] = img
	if pixels != nil || f.boundBuf[gl.PixelUnpackBuffer] != 0 {
		f.writeRegion(img, 0, 0, 0, width, height, depth, format, xtype, pixels)
	}
}

func (f *Fake) TexSubImage2D(target uint32, level, xoffset, yoffset, width, height int32, format, xtype uint32, pixels unsafe.Pointer) {
	f.record("TexSubImage2D", target, level, xoffset, yoffset, width, height, format, xtype, pixels)
	f.texSubImage(target, level, xoffset, yoffset, 0, width, height, 1, format, xtype, pixels)
}

func (f *Fake) TexSubImage3D(target uint32, level, xoffset, yoffset, zoffset, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	f.record("TexSubImage3D", target, level, xoffset, yoffset, zoffset, width, height, depth, format, xtype, pixels)
	f.texSubImage(target, level, xoffset, yoffset, zoffset, width, height, depth, format, xtype, pixels)
}

func (f *Fake) texSubImage(target uint32, level, x, y, z, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	t := f.bound(target)
	if t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	img, ok := t.images[imageKey{face: target, level: level}]
	if !ok || x < 0 || y < 0 || z < 0 || x+width > img.w || y+height > img.h || z+depth > img.d {
		f.fail(gl.InvalidValue)
		return
	}
	f.writeRegion(img, x, y, z, width, height, depth, format, xtype, pixels)
}

// source returns the client bytes of an upload, reading from the bound
// unpack buffer when there is one.
func (f *Fake) source(pixels unsafe.Pointer, n int) ([]byte, bool) {
	if id := f.boundBuf[gl.PixelUnpackBuffer]; id != 0 {
		b := f.buffers[id]
		off := int(uintptr(pixels))
		if b.mapped || off+n > len(b.data) {
			f.fail(gl.InvalidOperation)
			return nil, false
		}
		return b.data[off : off+n], true
	}
	if pixels == nil {
		return nil, false
	}
	return unsafe.Slice((*byte)(pixels), n), true
}

// destination returns where a readback writes, honouring the bound pack buffer.
func (f *Fake) destination(pixels unsafe.Pointer, n int) ([]byte, bool) {
	if id := f.boundBuf[gl.PixelPackBuffer]; id != 0 {
		b := f.buffers[id]
		off := int(uintptr(pixels))
		if b.mapped || off+n > len(b.data) {
			f.fail(gl.InvalidOperation)
			return nil, false
		}
		return b.data[off : off+n], true
	}
	if pixels == nil {
		f.fail(gl.InvalidValue)
		return nil, false
	}
	return unsafe.Slice((*byte)(pixels), n), true
}

func transferSize(width, height, depth int32, comps, size, alignment int) (stride, total int) {
	stride = rowStride(int(width), comps, size, alignment)
	rows := int(height) * int(depth)
	if rows == 0 || width == 0 {
		return stride, 0
	}
	return stride, stride*(rows-1) + int(width)*comps*size
}

func (f *Fake) writeRegion(img *image, x, y, z, width, height, depth int32, format, xtype uint32, pixels unsafe.Pointer) {
	comps, ok := layout(format)
	size, ok2 := componentSize(xtype)
	if !ok || !ok2 {
		f.fail(gl.InvalidEnum)
		return
	}
	stride, total := transferSize(width, height, depth, len(comps), size, int(f.pixelStore[gl.UnpackAlignment]))
	src, ok := f.source(pixels, total)
	if !ok {
		return
	}
	info := infoFor(img.internalFormat)
	for k := int32(0); k < depth; k++ {
		for j := int32(0); j < height; j++ {
			row := src[int(k*height+j)*stride:]
			for i := int32(0); i < width; i++ {
				base := ((int(z+k)*int(img.h)+int(y+j))*int(img.w) + int(x+i)) * 4
				for c, dst := range comps {
					raw := decode(row[(int(i)*len(comps)+c)*size:], xtype)
					img.texels[base+dst] = storeValue(info, dst, unpackValue(info, xtype, raw))
				}
			}
		}
	}
}

func (f *Fake) TexStorage2D(target uint32, levels int32, internalFormat uint32, width, height int32) {
	f.record("TexStorage2D", target, levels, internalFormat, width, height)
	f.texStorage(target, levels, internalFormat, width, height, 1)
}

func (f *Fake) TexStorage3D(target uint32, levels int32, internalFormat uint32, width, height, depth int32) {
	f.record("TexStorage3D", target, levels, internalFormat, width, height, depth)
	f.texStorage(target, levels, internalFormat, width, height, depth)
}

func (f *Fake) texStorage(target uint32, levels int32, internalFormat uint32, width, height, depth int32) {
	if target != gl.Texture2D && target != gl.TextureCubeMap && target != gl.Texture2DArray {
		f.fail(gl.InvalidEnum)
		return
	}
	t := f.bound(target)
	if t == nil || t.immutable {
		f.fail(gl.InvalidOperation)
		return
	}
	if levels < 1 || width < 1 || height < 1 || depth < 1 {
		f.fail(gl.InvalidValue)
		return
	}
	t.immutable = true
	t.levels = levels
	for _, face := range faceTargets(target) {
		w, h := width, height
		for l := int32(0); l < levels; l++ {
			t.images[imageKey{face: face, level: l}] = newImage(w, h, depth, int32(internalFormat))
			w, h = max(1, w/2), max(1, h/2)
		}
	}
}

func (f *Fake) GenerateMipmap(target uint32) {
	f.record("GenerateMipmap", target)
	t := f.bound(target)
	if t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	for _, face := range faceTargets(target) {
		base, ok := t.images[imageKey{face: face, level: 0}]
		if !ok || base.w == 0 || base.h == 0 {
			f.fail(gl.InvalidOperation)
			return
		}
		top := int32(math.Floor(math.Log2(float64(max(base.w, base.h)))))
		top = min(top, t.params[gl.TextureMaxLevel])
		if t.immutable {
			top = min(top, t.levels-1)
		}
		prev := base
		for l := int32(1); l <= top; l++ {
			next := newImage(max(1, prev.w/2), max(1, prev.h/2), prev.d, base.internalFormat)
			boxFilter(prev, next)
			t.images[imageKey{face: face, level: l}] = next
			prev = next
		}
	}
}

func boxFilter(src, dst *image) {
	for z := 0; z < int(dst.d); z++ {
		for y := 0; y < int(dst.h); y++ {
			for x := 0; x < int(dst.w); x++ {
				var sum [4]float32
				for _, o := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
					sx := min(2*x+o[0], int(src.w)-1)
					sy := min(2*y+o[1], int(src.h)-1)
					i := ((z*int(src.h)+sy)*int(src.w) + sx) * 4
					for c := 0; c < 4; c++ {
						sum[c] += src.texels[i+c]
					}
				}
				i := ((z*int(dst.h)+y)*int(dst.w) + x) * 4
				for c := 0; c < 4; c++ {
					dst.texels[i+c] = sum[c] / 4
				}
			}
		}
	}
}

func (f *Fake) GetTexImage(target uint32, level int32, format, xtype uint32, pixels unsafe.Pointer) {
	f.record("GetTexImage", target, level, format, xtype, pixels)
	t := f.bound(target)
	if t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	img, ok := t.images[imageKey{face: target, level: level}]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	comps, ok := layout(format)
	size, ok2 := componentSize(xtype)
	if !ok || !ok2 {
		f.fail(gl.InvalidEnum)
		return
	}
	stride, total := transferSize(img.w, img.h, img.d, len(comps), size, int(f.pixelStore[gl.PackAlignment]))
	dst, ok := f.destination(pixels, total)
	if !ok {
		return
	}
	info := infoFor(img.internalFormat)
	for j := 0; j < int(img.h)*int(img.d); j++ {
		row := dst[j*stride:]
		for i := 0; i < int(img.w); i++ {
			base := (j*int(img.w) + i) * 4
			for c, src := range comps {
				encode(row[(i*len(comps)+c)*size:], xtype, packValue(info, xtype, img.texels[base+src]))
			}
		}
	}
}

func (f *Fake) GetTexLevelParameteriv(target uint32, level int32, pname uint32, params *int32) {
	f.record("GetTexLevelParameteriv", target, level, pname)
	*params = 0
	t := f.bound(target)
	if t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	img, ok := t.images[imageKey{face: target, level: level}]
	if !ok {
		return
	}
	switch pname {
	case gl.TextureWidth:
		*params = img.w
	case gl.TextureHeight:
		*params = img.h
	case gl.TextureDepth:
		*params = img.d
	case gl.TextureInternalFormat:
		*params = img.internalFormat
	default:
		f.fail(gl.InvalidEnum)
	}
}

func (f *Fake) CopyTexSubImage2D(target uint32, level, xoffset, yoffset, x, y, width, height int32) {
	f.record("CopyTexSubImage2D", target, level, xoffset, yoffset, x, y, width, height)
	fb, ok := f.framebuffers[f.readFB]
	if !ok {
		f.fail(gl.InvalidOperation)
		return
	}
	a, ok := fb.color[fb.readBuffer]
	if !ok {
		f.fail(gl.InvalidOperation)
		return
	}
	src := f.attachedImage(a)
	t := f.bound(target)
	if src == nil || t == nil {
		f.fail(gl.InvalidOperation)
		return
	}
	dst, ok := t.images[imageKey{face: target, level: level}]
	if !ok || x+width > src.w || y+height > src.h || xoffset+width > dst.w || yoffset+height > dst.h {
		f.fail(gl.InvalidValue)
		return
	}
	info := infoFor(dst.internalFormat)
	for j := int32(0); j < height; j++ {
		for i := int32(0); i < width; i++ {
			si := (int(y+j)*int(src.w) + int(x+i)) * 4
			di := (int(yoffset+j)*int(dst.w) + int(xoffset+i)) * 4
			for c := 0; c < 4; c++ {
				dst.texels[di+c] = storeValue(info, c, src.texels[si+c])
			}
		}
	}
}

func (f *Fake) PixelStorei(pname uint32, param int32) {
	f.record("PixelStorei", pname, param)
	if param != 1 && param != 2 && param != 4 && param != 8 {
		f.fail(gl.InvalidValue)
		return
	}
	f.pixelStore[pname] = param
}

func (f *Fake) BindImageTexture(unit, texture uint32, level int32, layered bool, layer int32, access, format uint32) {
	f.record("BindImageTexture", unit, texture, level, layered, layer, access, format)
	if int32(unit) >= f.MaxImageUnits {
		f.fail(gl.InvalidValue)
		return
	}
	f.imageUnits[unit] = ImageBinding{Texture: texture, Level: level, Layered: layered, Layer: layer, Access: access, Format: format}
}

func (f *Fake) attachedImage(a attachment) *image {
	t, ok := f.textures[a.texture]
	if !ok {
		return nil
	}
	return t.images[imageKey{face: a.face, level: a.level}]
}

// storeValue converts a value to what an image of the given format keeps for
// component c.
func storeValue(info internalInfo, c int, v float32) float32 {
	if c >= info.channels {
		if c == 3 {
			return 1
		}
		return 0
	}
	switch info.kind {
	case kindNorm, kindDepth:
		return clamp(v, 0, 1)
	case kindSNorm:
		return clamp(v, -1, 1)
	}
	return v
}

// unpackValue converts a client component to the internal representation.
func unpackValue(info internalInfo, xtype uint32, raw float64) float32 {
	if xtype == gl.Float || info.kind == kindInt {
		return float32(raw)
	}
	var scale float64
	switch xtype {
	case gl.UnsignedByte:
		scale = math.MaxUint8
	case gl.Byte:
		scale = math.MaxInt8
	case gl.UnsignedShort:
		scale = math.MaxUint16
	case gl.Short:
		scale = math.MaxInt16
	case gl.UnsignedInt:
		scale = math.MaxUint32
	case gl.Int:
		scale = math.MaxInt32
	}
	return float32(raw / scale)
}

// packValue converts an internal value to a client component.
func packValue(info internalInfo, xtype uint32, v float32) float64 {
	if xtype == gl.Float || info.kind == kindInt {
		return float64(v)
	}
	var scale float64
	lo := float32(0)
	switch xtype {
	case gl.UnsignedByte:
		scale = math.MaxUint8
	case gl.Byte:
		scale, lo = math.MaxInt8, -1
	case gl.UnsignedShort:
		scale = math.MaxUint16
	case gl.Short:
		scale, lo = math.MaxInt16, -1
	case gl.UnsignedInt:
		scale = math.MaxUint32
	case gl.Int:
		scale, lo = math.MaxInt32, -1
	}
	return math.Round(float64(clamp(v, lo, 1)) * scale)
}

func decode(b []byte, xtype uint32) float64 {
	switch xtype {
	case gl.UnsignedByte:
		return float64(b[0])
	case gl.Byte:
		return float64(int8(b[0]))
	case gl.UnsignedShort:
		return float64(binary.LittleEndian.Uint16(b))
	case gl.Short:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case gl.UnsignedInt:
		return float64(binary.LittleEndian.Uint32(b))
	case gl.Int:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case gl.Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	panic(fmt.Sprintf("gltest: unsupported type 0x%X", xtype))
}

func encode(b []byte, xtype uint32, v float64) {
	switch xtype {
	case gl.UnsignedByte:
		b[0] = uint8(clamp64(v, 0, math.MaxUint8))
	case gl.Byte:
		b[0] = uint8(int8(clamp64(v, math.MinInt8, math.MaxInt8)))
	case gl.UnsignedShort:
		binary.LittleEndian.PutUint16(b, uint16(clamp64(v, 0, math.MaxUint16)))
	case gl.Short:
		binary.LittleEndian.PutUint16(b, uint16(int16(clamp64(v, math.MinInt16, math.MaxInt16))))
	case gl.UnsignedInt:
		binary.LittleEndian.PutUint32(b, uint32(clamp64(v, 0, math.MaxUint32)))
	case gl.Int:
		binary.LittleEndian.PutUint32(b, uint32(int32(clamp64(v, math.MinInt32, math.MaxInt32))))
	case gl.Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		panic(fmt.Sprintf("gltest: unsupported type 0x%X", xtype))
	}
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

func clamp64(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
