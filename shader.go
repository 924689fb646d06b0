package glkit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/tinyrange/glkit/gl"
)

// Sources holds GLSL source per stage. Either Compute is set alone, or
// Vertex and Fragment are set with an optional Geometry stage.
type Sources struct {
	Vertex   string
	Fragment string
	Geometry string
	Compute  string
}

// Files holds the paths of the stage sources, laid out like Sources.
type Files Sources

// Sampler is a texture that can be bound to a texture unit. Texture2D,
// Texture2DArray and CubeMap implement it.
type Sampler interface {
	Name() string
	ID() uint32
	Target() uint32
	IsInitialized() bool
}

// Image is a texture that can be bound to an image unit.
type Image interface {
	Sampler
	InternalFormat() int32
}

// OutputBinding routes the fragment output Output into the GBuffer texture
// named Texture.
type OutputBinding struct {
	Output  string
	Texture string
}

// slotTable assigns units to names in first-use order and keeps them stable
// for the lifetime of the program.
type slotTable struct {
	order []string
	units map[string]int
}

func (t *slotTable) lookup(name string, limit int) (int, bool) {
	if unit, ok := t.units[name]; ok {
		return unit, true
	}
	if len(t.order) >= limit {
		return 0, false
	}
	if t.units == nil {
		t.units = make(map[string]int)
	}
	unit := len(t.order)
	t.order = append(t.order, name)
	t.units[name] = unit
	return unit, true
}

func (t *slotTable) reset() {
	t.order, t.units = nil, nil
}

// Shader is a linked program plus the texture and image unit assignments of
// its samplers.
type Shader struct {
	noCopy noCopy

	ctx     *Context
	name    string
	prog    *handle
	compute bool

	textures slotTable
	images   slotTable

	files   Files
	watcher *fsnotify.Watcher
	done    chan struct{}
	changed atomic.Bool
}

func (c *Context) NewShader(name string) *Shader {
	return &Shader{ctx: c, name: name}
}

func (s *Shader) Name() string { return s.name }

// ID is the program name, InvalidID before the first successful Compile.
func (s *Shader) ID() uint32 {
	if !s.prog.valid() {
		return InvalidID
	}
	return s.prog.id
}

func (s *Shader) IsCompiled() bool { return s.prog.valid() }
func (s *Shader) IsCompute() bool  { return s.compute }

type stage struct {
	kind   uint32
	label  string
	source string
}

// Compile compiles and links the sources. On failure the previously linked
// program, if any, stays in place.
func (s *Shader) Compile(src Sources) error {
	graphics := src.Vertex != "" || src.Fragment != "" || src.Geometry != ""
	switch {
	case src.Compute != "" && graphics:
		return newError(s.name, "compile", ErrPrecondition, "a compute shader cannot be combined with other stages")
	case src.Compute == "" && (src.Vertex == "" || src.Fragment == ""):
		return newError(s.name, "compile", ErrPrecondition, "vertex and fragment sources are required")
	}

	var stages []stage
	if src.Compute != "" {
		stages = []stage{{gl.ComputeShader, "compute", src.Compute}}
	} else {
		stages = []stage{{gl.VertexShader, "vertex", src.Vertex}, {gl.FragmentShader, "fragment", src.Fragment}}
		if src.Geometry != "" {
			stages = append(stages, stage{gl.GeometryShader, "geometry", src.Geometry})
		}
	}

	g := s.ctx.gl
	var shaders []uint32
	defer func() {
		for _, id := range shaders {
			g.DeleteShader(id)
		}
	}()
	for _, st := range stages {
		id := g.CreateShader(st.kind)
		shaders = append(shaders, id)
		g.ShaderSource(id, st.source)
		g.CompileShader(id)
		var ok int32
		g.GetShaderiv(id, gl.CompileStatus, &ok)
		if ok == 0 {
			return newError(s.name, "compile", ErrNative, "%s shader: %s", st.label, g.GetShaderInfoLog(id))
		}
	}

	prog := newHandle(s.ctx, kindProgram, s.name)
	for _, id := range shaders {
		g.AttachShader(prog.id, id)
	}
	g.LinkProgram(prog.id)
	var ok int32
	g.GetProgramiv(prog.id, gl.LinkStatus, &ok)
	if ok == 0 {
		log := g.GetProgramInfoLog(prog.id)
		prog.destroy()
		return newError(s.name, "link", ErrNative, "%s", log)
	}

	s.prog.destroy()
	s.prog = prog
	s.compute = src.Compute != ""
	s.textures.reset()
	s.images.reset()
	slog.Debug("shader: linked", "shader", s.name, "program", prog.id, "compute", s.compute)
	return nil
}

// CompileFiles reads the stage sources from disk and compiles them. The
// paths are remembered for Watch.
func (s *Shader) CompileFiles(files Files) error {
	read := func(path string) (string, error) {
		if path == "" {
			return "", nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%s: read shader: %w", s.name, err)
		}
		return string(data), nil
	}
	var src Sources
	var err error
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{files.Vertex, &src.Vertex},
		{files.Fragment, &src.Fragment},
		{files.Geometry, &src.Geometry},
		{files.Compute, &src.Compute},
	} {
		if *f.dst, err = read(f.path); err != nil {
			return err
		}
	}
	s.files = files
	return s.Compile(src)
}

func (s *Shader) require(op string) error {
	if !s.prog.valid() {
		return newError(s.name, op, ErrPrecondition, "program is not compiled")
	}
	return nil
}

// Use installs the program.
func (s *Shader) Use() error {
	if err := s.require("use"); err != nil {
		return err
	}
	s.ctx.gl.UseProgram(s.prog.id)
	return nil
}

// uniform installs the program and looks up a uniform, warning when the
// program has none by that name.
func (s *Shader) uniform(name string) int32 {
	s.ctx.gl.UseProgram(s.prog.id)
	loc := s.ctx.gl.GetUniformLocation(s.prog.id, name)
	if loc == -1 {
		slog.Warn("shader: uniform not found", "shader", s.name, "uniform", name)
	}
	return loc
}

// BindTexture binds tex to the texture unit reserved for the sampler
// uniform and points the uniform at it.
func (s *Shader) BindTexture(tex Sampler, uniform string) error {
	if err := s.require("bind texture"); err != nil {
		return err
	}
	if !tex.IsInitialized() {
		return newError(s.name, "bind texture", ErrPrecondition, "texture %s has no storage", tex.Name())
	}
	unit, ok := s.textures.lookup(uniform, s.ctx.maxTextureUnits)
	if !ok {
		return newError(s.name, "bind texture", ErrPrecondition, "all %d texture units are used", s.ctx.maxTextureUnits)
	}
	loc := s.uniform(uniform)
	if loc == -1 {
		return nil
	}
	s.ctx.gl.ActiveTexture(gl.Texture0 + uint32(unit))
	s.ctx.gl.BindTexture(tex.Target(), tex.ID())
	s.ctx.gl.Uniform1i(loc, int32(unit))
	return nil
}

// TextureUnit returns the unit reserved for a sampler uniform.
func (s *Shader) TextureUnit(uniform string) (int, bool) {
	unit, ok := s.textures.units[uniform]
	return unit, ok
}

// ImageUnit returns the unit reserved for an image uniform or buffer.
func (s *Shader) ImageUnit(uniform string) (int, bool) {
	unit, ok := s.images.units[uniform]
	return unit, ok
}

func validAccess(access uint32) bool {
	return access == gl.ReadOnly || access == gl.WriteOnly || access == gl.ReadWrite
}

// BindImage binds level 0 of tex for image load/store.
func (s *Shader) BindImage(tex Image, access uint32, uniform string) error {
	return s.bindImage("bind image", tex, access, uniform, false, 0)
}

// BindImageLayer binds a single layer of a layered texture.
func (s *Shader) BindImageLayer(tex Image, layer int, access uint32, uniform string) error {
	return s.bindImage("bind image layer", tex, access, uniform, false, layer)
}

func (s *Shader) bindImage(op string, tex Image, access uint32, uniform string, layered bool, layer int) error {
	if err := s.require(op); err != nil {
		return err
	}
	if !tex.IsInitialized() {
		return newError(s.name, op, ErrPrecondition, "texture %s has no storage", tex.Name())
	}
	if !ValidImageFormat(tex.InternalFormat()) {
		return newError(s.name, op, ErrInvalidEnum, "internal format 0x%X of %s cannot be bound as an image", tex.InternalFormat(), tex.Name())
	}
	if !validAccess(access) {
		return newError(s.name, op, ErrInvalidEnum, "access 0x%X", access)
	}
	unit, ok := s.images.lookup(uniform, s.ctx.MaxImageUnits())
	if !ok {
		return newError(s.name, op, ErrPrecondition, "all %d image units are used", s.ctx.MaxImageUnits())
	}
	if loc := s.uniform(uniform); loc != -1 {
		s.ctx.gl.Uniform1i(loc, int32(unit))
	}
	s.ctx.gl.BindImageTexture(uint32(unit), tex.ID(), 0, layered, int32(layer), access, uint32(tex.InternalFormat()))
	return nil
}

// BindBuffer binds buf to the indexed binding point of its target, sharing
// the image unit numbering.
func (s *Shader) BindBuffer(buf *Buf, uniform string) error {
	if err := s.require("bind buffer"); err != nil {
		return err
	}
	if err := buf.require("bind buffer"); err != nil {
		return err
	}
	unit, ok := s.images.lookup(uniform, s.ctx.MaxImageUnits())
	if !ok {
		return newError(s.name, "bind buffer", ErrPrecondition, "all %d image units are used", s.ctx.MaxImageUnits())
	}
	if loc := s.uniform(uniform); loc != -1 {
		s.ctx.gl.Uniform1i(loc, int32(unit))
	}
	s.ctx.gl.BindBufferBase(buf.Target(), uint32(unit), buf.ID())
	return nil
}

func (s *Shader) UniformBool(name string, v bool) error {
	return s.UniformInt(name, int32(boolInt(v)))
}

func (s *Shader) UniformInt(name string, v int32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.Uniform1i(loc, v)
	}
	return nil
}

func (s *Shader) UniformFloat(name string, v float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.Uniform1f(loc, v)
	}
	return nil
}

func (s *Shader) UniformVec2(name string, v [2]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.Uniform2fv(loc, 1, &v[0])
	}
	return nil
}

func (s *Shader) UniformVec3(name string, v [3]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.Uniform3fv(loc, 1, &v[0])
	}
	return nil
}

func (s *Shader) UniformVec4(name string, v [4]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.Uniform4fv(loc, 1, &v[0])
	}
	return nil
}

// UniformVec2Array sets name[0..len(v)) one element at a time.
func (s *Shader) UniformVec2Array(name string, v [][2]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	for i := range v {
		if loc := s.uniform(fmt.Sprintf("%s[%d]", name, i)); loc != -1 {
			s.ctx.gl.Uniform2fv(loc, 1, &v[i][0])
		}
	}
	return nil
}

// UniformVec3Array sets name[0..len(v)) one element at a time.
func (s *Shader) UniformVec3Array(name string, v [][3]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	for i := range v {
		if loc := s.uniform(fmt.Sprintf("%s[%d]", name, i)); loc != -1 {
			s.ctx.gl.Uniform3fv(loc, 1, &v[i][0])
		}
	}
	return nil
}

// UniformMat3 sets a mat3 from column-major values.
func (s *Shader) UniformMat3(name string, m [9]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.UniformMatrix3fv(loc, 1, false, &m[0])
	}
	return nil
}

// UniformMat4 sets a mat4 from column-major values.
func (s *Shader) UniformMat4(name string, m [16]float32) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if loc := s.uniform(name); loc != -1 {
		s.ctx.gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
	return nil
}

// UniformMat sets a mat3 or mat4 from a single channel 3x3 or 4x4 float
// matrix, which is row-major.
func (s *Shader) UniformMat(name string, m *Mat) error {
	if err := s.require("uniform"); err != nil {
		return err
	}
	if m.Depth != DepthF32 || m.Channels != 1 || m.Rows != m.Cols || (m.Rows != 3 && m.Rows != 4) {
		return newError(s.name, "uniform", ErrInvalidEnum, "matrix must be 3x3 or 4x4 single channel f32, got %dx%dx%d %s", m.Rows, m.Cols, m.Channels, m.Depth)
	}
	loc := s.uniform(name)
	if loc == -1 {
		return nil
	}
	if m.Rows == 3 {
		s.ctx.gl.UniformMatrix3fv(loc, 1, true, &m.Float32s()[0])
	} else {
		s.ctx.gl.UniformMatrix4fv(loc, 1, true, &m.Float32s()[0])
	}
	return nil
}

// AttribLocation returns the location of a vertex input, or -1 with a
// warning.
func (s *Shader) AttribLocation(name string) (int32, error) {
	if err := s.require("attribute"); err != nil {
		return -1, err
	}
	s.ctx.gl.UseProgram(s.prog.id)
	loc := s.ctx.gl.GetAttribLocation(s.prog.id, name)
	if loc == -1 {
		slog.Warn("shader: attribute not found", "shader", s.name, "attribute", name)
	}
	return loc, nil
}

// Dispatch runs a compute program over totalX x totalY invocations in
// groups of localX x localY and waits on every memory barrier.
func (s *Shader) Dispatch(totalX, totalY, localX, localY int) error {
	if err := s.require("dispatch"); err != nil {
		return err
	}
	if !s.compute {
		return newError(s.name, "dispatch", ErrPrecondition, "program is not a compute shader")
	}
	if localX < 1 || localY < 1 {
		return newError(s.name, "dispatch", ErrPrecondition, "local size %dx%d", localX, localY)
	}
	s.ctx.gl.UseProgram(s.prog.id)
	s.ctx.gl.DispatchCompute(uint32((totalX+localX-1)/localX), uint32((totalY+localY-1)/localY), 1)
	s.ctx.gl.MemoryBarrier(gl.AllBarrierBits)
	return nil
}

func (s *Shader) requireGraphics(op string) error {
	if err := s.require(op); err != nil {
		return err
	}
	if s.compute {
		return newError(s.name, op, ErrPrecondition, "compute programs cannot draw")
	}
	return nil
}

// outputLocation looks up a fragment output, warning when it is missing.
func (s *Shader) outputLocation(name string) int32 {
	loc := s.ctx.gl.GetFragDataLocation(s.prog.id, name)
	if loc == -1 {
		slog.Warn("shader: fragment output not found", "shader", s.name, "output", name)
	}
	return loc
}

// drawBuffers leaves fbo bound for drawing with outputs routed to the given
// attachments. Slots no output writes stay NONE, and with no routes at all
// every attachment is disabled.
func (s *Shader) drawBuffers(fbo uint32, routes map[int32]uint32) {
	n := int32(1)
	for loc := range routes {
		n = max(n, loc+1)
	}
	s.ctx.gl.BindFramebuffer(gl.DrawFramebuffer, fbo)
	bufs := make([]uint32, n)
	for i := range bufs {
		bufs[i] = gl.None
	}
	for loc, attachment := range routes {
		bufs[loc] = attachment
	}
	s.ctx.gl.DrawBuffers(n, &bufs[0])
}

// DrawInto binds gb for drawing and routes each output into its texture.
// The caller issues the draw.
func (s *Shader) DrawInto(gb *GBuffer, outputs []OutputBinding) error {
	if err := s.requireGraphics("draw into"); err != nil {
		return err
	}
	for _, o := range outputs {
		if _, ok := gb.AttachmentIndex(o.Texture); !ok {
			return newError(s.name, "draw into", ErrPrecondition, "gbuffer %s has no texture %q", gb.Name(), o.Texture)
		}
	}
	routes := make(map[int32]uint32)
	for _, o := range outputs {
		loc := s.outputLocation(o.Output)
		if loc == -1 {
			continue
		}
		i, _ := gb.AttachmentIndex(o.Texture)
		routes[loc] = gl.ColorAttachment0 + uint32(i)
	}
	s.ctx.gl.UseProgram(s.prog.id)
	s.drawBuffers(gb.FBO(), routes)
	return nil
}

// DrawIntoTexture binds the framebuffer of one mip level of tex and routes
// output into it.
func (s *Shader) DrawIntoTexture(tex *Texture2D, output string, mip int) error {
	if err := s.requireGraphics("draw into"); err != nil {
		return err
	}
	fbo, err := tex.FBO(mip)
	if err != nil {
		return err
	}
	routes := make(map[int32]uint32)
	if loc := s.outputLocation(output); loc != -1 {
		routes[loc] = gl.ColorAttachment0
	}
	s.ctx.gl.UseProgram(s.prog.id)
	s.drawBuffers(fbo, routes)
	s.ctx.gl.FramebufferTexture2D(gl.DrawFramebuffer, gl.ColorAttachment0, gl.Texture2D, tex.ID(), int32(mip))
	return nil
}

// DrawIntoCubeFace attaches one face of one mip level of cube and routes
// output into it.
func (s *Shader) DrawIntoCubeFace(cube *CubeMap, output string, face CubeFace, mip int) error {
	if err := s.requireGraphics("draw into"); err != nil {
		return err
	}
	if err := cube.validFace("draw into", face); err != nil {
		return err
	}
	fbo, err := cube.FBO(mip)
	if err != nil {
		return err
	}
	routes := make(map[int32]uint32)
	if loc := s.outputLocation(output); loc != -1 {
		routes[loc] = gl.ColorAttachment0
	}
	s.ctx.gl.UseProgram(s.prog.id)
	s.drawBuffers(fbo, routes)
	s.ctx.gl.FramebufferTexture2D(gl.DrawFramebuffer, gl.ColorAttachment0, face.Target(), cube.ID(), int32(mip))
	return nil
}

// Watch starts watching the files of the last CompileFiles. Changes are
// picked up by ReloadIfChanged on the GL thread.
func (s *Shader) Watch() error {
	if s.watcher != nil {
		return nil
	}
	paths := []string{s.files.Vertex, s.files.Fragment, s.files.Geometry, s.files.Compute}
	watched := make(map[string]bool)
	for _, p := range paths {
		if p != "" {
			watched[filepath.Clean(p)] = true
		}
	}
	if len(watched) == 0 {
		return newError(s.name, "watch", ErrPrecondition, "shader was not compiled from files")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: watch: %w", s.name, err)
	}
	dirs := make(map[string]bool)
	for p := range watched {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("%s: watch %s: %w", s.name, dir, err)
		}
	}

	s.watcher = w
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if watched[filepath.Clean(event.Name)] && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					s.changed.Store(true)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("shader: watch error", "shader", s.name, "error", err)
			}
		}
	}(s.done)
	return nil
}

// ReloadIfChanged recompiles when a watched file changed since the last
// call. A failed reload keeps the previous program.
func (s *Shader) ReloadIfChanged() (bool, error) {
	if !s.changed.Swap(false) {
		return false, nil
	}
	if err := s.CompileFiles(s.files); err != nil {
		return false, err
	}
	slog.Info("shader: reloaded", "shader", s.name)
	return true, nil
}

// StopWatching stops the file watcher.
func (s *Shader) StopWatching() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
	s.watcher, s.done = nil, nil
}

// Destroy stops watching and deletes the program.
func (s *Shader) Destroy() {
	s.StopWatching()
	if s.prog.valid() {
		s.ctx.gl.UseProgram(0)
	}
	s.prog.destroy()
	s.textures.reset()
	s.images.reset()
}
