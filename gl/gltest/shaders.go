package gltest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unsafe"

	"github.com/tinyrange/glkit/gl"
)

var (
	uniformDecl = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:(?:highp|mediump|lowp|readonly|writeonly|restrict|coherent)\s+)*\w+\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)
	inDecl      = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*)?in\s+\w+\s+(\w+)\s*;`)
	outDecl     = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*)?out\s+\w+\s+(\w+)\s*;`)
)

type shader struct {
	stage    uint32
	source   string
	compiled bool
	log      string
}

type program struct {
	shaders  []uint32
	linked   bool
	compute  bool
	log      string
	uniforms map[string]int32
	attribs  map[string]int32
	outputs  map[string]int32
	ints     map[int32]int32
	floats   map[int32][]float32
}

func (f *Fake) CreateShader(stage uint32) uint32 {
	f.record("CreateShader", stage)
	switch stage {
	case gl.VertexShader, gl.FragmentShader, gl.GeometryShader, gl.ComputeShader:
	default:
		f.fail(gl.InvalidEnum)
		return 0
	}
	f.nextID++
	f.shaders[f.nextID] = &shader{stage: stage}
	return f.nextID
}

func (f *Fake) ShaderSource(id uint32, source string) {
	f.record("ShaderSource", id, source)
	if s, ok := f.shaders[id]; ok {
		s.source = source
	}
}

// CompileShader accepts any source that declares a main function.
func (f *Fake) CompileShader(id uint32) {
	f.record("CompileShader", id)
	s, ok := f.shaders[id]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	s.compiled = strings.Contains(s.source, "void main")
	if !s.compiled {
		s.log = "0:1(1): error: main function not found"
	}
}

func (f *Fake) GetShaderiv(id uint32, pname uint32, params *int32) {
	f.record("GetShaderiv", id, pname)
	s, ok := f.shaders[id]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	switch pname {
	case gl.CompileStatus:
		*params = boolInt(s.compiled)
	case gl.InfoLogLength:
		*params = int32(len(s.log))
	default:
		f.fail(gl.InvalidEnum)
	}
}

func (f *Fake) GetShaderInfoLog(id uint32) string {
	f.record("GetShaderInfoLog", id)
	if s, ok := f.shaders[id]; ok {
		return s.log
	}
	return ""
}

func (f *Fake) DeleteShader(id uint32) {
	f.record("DeleteShader", id)
	delete(f.shaders, id)
}

func (f *Fake) CreateProgram() uint32 {
	f.record("CreateProgram")
	f.nextID++
	f.programs[f.nextID] = &program{}
	return f.nextID
}

func (f *Fake) AttachShader(prog uint32, id uint32) {
	f.record("AttachShader", prog, id)
	p, ok := f.programs[prog]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	p.shaders = append(p.shaders, id)
}

// LinkProgram reflects uniforms, vertex inputs and fragment outputs from the
// attached sources. Uniform locations are assigned in declaration order.
func (f *Fake) LinkProgram(prog uint32) {
	f.record("LinkProgram", prog)
	p, ok := f.programs[prog]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	p.linked = false
	p.uniforms = make(map[string]int32)
	p.attribs = make(map[string]int32)
	p.outputs = make(map[string]int32)
	p.ints = make(map[int32]int32)
	p.floats = make(map[int32][]float32)
	if len(p.shaders) == 0 {
		p.log = "error: no shaders attached"
		return
	}

	stages := map[uint32]bool{}
	next := int32(0)
	for _, id := range p.shaders {
		s, ok := f.shaders[id]
		if !ok || !s.compiled {
			p.log = fmt.Sprintf("error: shader %d is not compiled", id)
			return
		}
		stages[s.stage] = true
		for _, m := range uniformDecl.FindAllStringSubmatch(s.source, -1) {
			name := m[1]
			if _, seen := p.uniforms[name]; seen {
				continue
			}
			p.uniforms[name] = next
			count := int32(1)
			if m[2] != "" {
				n, _ := strconv.Atoi(m[2])
				count = int32(n)
				for i := int32(0); i < count; i++ {
					p.uniforms[fmt.Sprintf("%s[%d]", name, i)] = next + i
				}
			}
			next += count
		}
		switch s.stage {
		case gl.VertexShader:
			reflectLocations(s.source, inDecl, p.attribs)
		case gl.FragmentShader:
			reflectLocations(s.source, outDecl, p.outputs)
		}
	}
	if stages[gl.ComputeShader] && len(stages) > 1 {
		p.log = "error: compute shaders cannot be linked with other stages"
		return
	}
	p.compute = stages[gl.ComputeShader]
	p.linked = true
	p.log = ""
}

func reflectLocations(source string, decl *regexp.Regexp, into map[string]int32) {
	next := int32(0)
	for _, m := range decl.FindAllStringSubmatch(source, -1) {
		loc := next
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			loc = int32(n)
		}
		into[m[2]] = loc
		next = loc + 1
	}
}

func (f *Fake) GetProgramiv(prog uint32, pname uint32, params *int32) {
	f.record("GetProgramiv", prog, pname)
	p, ok := f.programs[prog]
	if !ok {
		f.fail(gl.InvalidValue)
		return
	}
	switch pname {
	case gl.LinkStatus:
		*params = boolInt(p.linked)
	case gl.InfoLogLength:
		*params = int32(len(p.log))
	default:
		f.fail(gl.InvalidEnum)
	}
}

func (f *Fake) GetProgramInfoLog(prog uint32) string {
	f.record("GetProgramInfoLog", prog)
	if p, ok := f.programs[prog]; ok {
		return p.log
	}
	return ""
}

func (f *Fake) UseProgram(prog uint32) {
	f.record("UseProgram", prog)
	if prog != 0 {
		if p, ok := f.programs[prog]; !ok || !p.linked {
			f.fail(gl.InvalidOperation)
			return
		}
	}
	f.current = prog
}

func (f *Fake) DeleteProgram(prog uint32) {
	f.record("DeleteProgram", prog)
	delete(f.programs, prog)
	if f.current == prog {
		f.current = 0
	}
}

func lookup(table map[string]int32, name string) int32 {
	if loc, ok := table[name]; ok {
		return loc
	}
	return -1
}

func (f *Fake) GetUniformLocation(prog uint32, name string) int32 {
	f.record("GetUniformLocation", prog, name)
	if p, ok := f.programs[prog]; ok && p.linked {
		return lookup(p.uniforms, name)
	}
	f.fail(gl.InvalidOperation)
	return -1
}

func (f *Fake) GetAttribLocation(prog uint32, name string) int32 {
	f.record("GetAttribLocation", prog, name)
	if p, ok := f.programs[prog]; ok && p.linked {
		return lookup(p.attribs, name)
	}
	f.fail(gl.InvalidOperation)
	return -1
}

func (f *Fake) GetFragDataLocation(prog uint32, name string) int32 {
	f.record("GetFragDataLocation", prog, name)
	if p, ok := f.programs[prog]; ok && p.linked {
		return lookup(p.outputs, name)
	}
	f.fail(gl.InvalidOperation)
	return -1
}

func (f *Fake) currentProgram(location int32) *program {
	if location == -1 {
		return nil
	}
	p, ok := f.programs[f.current]
	if !ok {
		f.fail(gl.InvalidOperation)
		return nil
	}
	return p
}

func (f *Fake) Uniform1i(location int32, v0 int32) {
	f.record("Uniform1i", location, v0)
	if p := f.currentProgram(location); p != nil {
		p.ints[location] = v0
	}
}

func (f *Fake) setFloats(location int32, values []float32) {
	if p := f.currentProgram(location); p != nil {
		p.floats[location] = append([]float32(nil), values...)
	}
}

func (f *Fake) Uniform1f(location int32, v0 float32) {
	f.record("Uniform1f", location, v0)
	f.setFloats(location, []float32{v0})
}

func (f *Fake) Uniform2fv(location int32, count int32, value *float32) {
	f.record("Uniform2fv", location, count)
	f.setFloats(location, floats(value, 2*count))
}

func (f *Fake) Uniform3fv(location int32, count int32, value *float32) {
	f.record("Uniform3fv", location, count)
	f.setFloats(location, floats(value, 3*count))
}

func (f *Fake) Uniform4fv(location int32, count int32, value *float32) {
	f.record("Uniform4fv", location, count)
	f.setFloats(location, floats(value, 4*count))
}

func (f *Fake) UniformMatrix3fv(location int32, count int32, transpose bool, value *float32) {
	f.record("UniformMatrix3fv", location, count, transpose)
	f.setFloats(location, floats(value, 9*count))
}

func (f *Fake) UniformMatrix4fv(location int32, count int32, transpose bool, value *float32) {
	f.record("UniformMatrix4fv", location, count, transpose)
	f.setFloats(location, floats(value, 16*count))
}

// UniformInt returns the value last set with Uniform1i.
func (f *Fake) UniformInt(prog uint32, name string) (int32, bool) {
	p, ok := f.programs[prog]
	if !ok {
		return 0, false
	}
	v, ok := p.ints[lookup(p.uniforms, name)]
	return v, ok
}

// UniformFloats returns the values last set with a float uniform setter.
func (f *Fake) UniformFloats(prog uint32, name string) []float32 {
	p, ok := f.programs[prog]
	if !ok {
		return nil
	}
	return p.floats[lookup(p.uniforms, name)]
}

// CurrentProgram returns the program installed by UseProgram.
func (f *Fake) CurrentProgram() uint32 {
	return f.current
}

func floats(p *float32, n int32) []float32 {
	if p == nil || n <= 0 {
		return nil
	}
	return append([]float32(nil), unsafe.Slice(p, n)...)
}

func boolInt(v bool) int32 {
	if v {
		return 1
	}
	return 0
}
