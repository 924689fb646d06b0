package interop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tinyrange/glkit/gl/gltest"
)

// fakeRuntime keeps device memory in Go slices. Texture arrays persist per
// registered resource; buffer memory is sized from the GL fake.
type fakeRuntime struct {
	gl *gltest.Fake

	next   uintptr
	mem    map[uintptr][]byte
	arrays map[Resource][]byte
	bufs   map[Resource]uintptr

	nextRes    Resource
	registered map[Resource]uint32
	mapped     map[Resource]bool

	events  []string
	mallocs int
}

func newFakeRuntime(f *gltest.Fake) *fakeRuntime {
	return &fakeRuntime{
		gl:         f,
		next:       0x10000,
		mem:        make(map[uintptr][]byte),
		arrays:     make(map[Resource][]byte),
		bufs:       make(map[Resource]uintptr),
		registered: make(map[Resource]uint32),
		mapped:     make(map[Resource]bool),
	}
}

func (r *fakeRuntime) record(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *fakeRuntime) register(id uint32) Resource {
	r.nextRes++
	r.registered[r.nextRes] = id
	return r.nextRes
}

func (r *fakeRuntime) RegisterImage(texture, target uint32) (Resource, error) {
	r.record("register image %d", texture)
	return r.register(texture), nil
}

func (r *fakeRuntime) RegisterBuffer(buffer uint32) (Resource, error) {
	r.record("register buffer %d", buffer)
	return r.register(buffer), nil
}

func (r *fakeRuntime) Unregister(res Resource) error {
	if _, ok := r.registered[res]; !ok {
		return fmt.Errorf("resource %d is not registered", res)
	}
	r.record("unregister")
	delete(r.registered, res)
	return nil
}

func (r *fakeRuntime) Map(res Resource) error {
	if _, ok := r.registered[res]; !ok || r.mapped[res] {
		return fmt.Errorf("cannot map resource %d", res)
	}
	r.record("map")
	r.mapped[res] = true
	return nil
}

func (r *fakeRuntime) Unmap(res Resource) error {
	if !r.mapped[res] {
		return fmt.Errorf("resource %d is not mapped", res)
	}
	r.record("unmap")
	r.mapped[res] = false
	return nil
}

// Arrays are addressed by their resource number.
func (r *fakeRuntime) MappedArray(res Resource) (uintptr, error) {
	if !r.mapped[res] {
		return 0, fmt.Errorf("resource %d is not mapped", res)
	}
	return uintptr(res), nil
}

func (r *fakeRuntime) MappedPointer(res Resource) (uintptr, int, error) {
	if !r.mapped[res] {
		return 0, 0, fmt.Errorf("resource %d is not mapped", res)
	}
	ptr, ok := r.bufs[res]
	if !ok {
		size := len(r.gl.BufferBytes(r.registered[res]))
		ptr, _ = r.Malloc(size)
		r.mallocs--
		r.bufs[res] = ptr
	}
	return ptr, len(r.mem[ptr]), nil
}

func (r *fakeRuntime) Malloc(size int) (uintptr, error) {
	ptr := r.next
	r.next += uintptr(size) + 0x1000
	r.mem[ptr] = make([]byte, size)
	r.mallocs++
	return ptr, nil
}

func (r *fakeRuntime) Free(ptr uintptr) error {
	if _, ok := r.mem[ptr]; !ok {
		return fmt.Errorf("free of unknown pointer 0x%x", ptr)
	}
	delete(r.mem, ptr)
	return nil
}

// resolve returns the memory from ptr to the end of its allocation.
func (r *fakeRuntime) resolve(ptr uintptr) ([]byte, error) {
	for base, b := range r.mem {
		if ptr >= base && ptr < base+uintptr(len(b)) {
			return b[ptr-base:], nil
		}
	}
	return nil, fmt.Errorf("pointer 0x%x is not allocated", ptr)
}

func copy2D(dst []byte, dpitch int, src []byte, spitch, width, height int) error {
	for row := 0; row < height; row++ {
		d, s := row*dpitch, row*spitch
		if d+width > len(dst) || s+width > len(src) {
			return fmt.Errorf("row %d out of range", row)
		}
		copy(dst[d:d+width], src[s:s+width])
	}
	return nil
}

func (r *fakeRuntime) Memcpy(dst, src uintptr, size int) error {
	return r.Memcpy2D(dst, size, src, size, size, 1)
}

func (r *fakeRuntime) Memcpy2D(dst uintptr, dpitch int, src uintptr, spitch int, width, height int) error {
	d, err := r.resolve(dst)
	if err != nil {
		return err
	}
	s, err := r.resolve(src)
	if err != nil {
		return err
	}
	return copy2D(d, dpitch, s, spitch, width, height)
}

func (r *fakeRuntime) Memcpy2DToArray(dst uintptr, src uintptr, spitch int, width, height int) error {
	res := Resource(dst)
	if !r.mapped[res] {
		return fmt.Errorf("array %d is not mapped", dst)
	}
	s, err := r.resolve(src)
	if err != nil {
		return err
	}
	if need := width * height; len(r.arrays[res]) < need {
		r.arrays[res] = append(r.arrays[res], make([]byte, need-len(r.arrays[res]))...)
	}
	return copy2D(r.arrays[res], width, s, spitch, width, height)
}

func (r *fakeRuntime) Memcpy2DFromArray(dst uintptr, dpitch int, src uintptr, width, height int) error {
	res := Resource(src)
	if !r.mapped[res] {
		return fmt.Errorf("array %d is not mapped", src)
	}
	d, err := r.resolve(dst)
	if err != nil {
		return err
	}
	array := r.arrays[res]
	if need := width * height; len(array) < need {
		array = append(array, make([]byte, need-len(array))...)
	}
	return copy2D(d, dpitch, array, width, width, height)
}

func (r *fakeRuntime) Synchronize() error { return nil }

// upload places host bytes in a new device allocation.
func (r *fakeRuntime) upload(data []byte) uintptr {
	ptr, _ := r.Malloc(len(data))
	copy(r.mem[ptr], data)
	return ptr
}

func (r *fakeRuntime) read(ptr uintptr) []byte {
	return append([]byte(nil), r.mem[ptr]...)
}

func (r *fakeRuntime) live() int { return len(r.mem) - len(r.bufs) }

func (r *fakeRuntime) count(prefix string) int {
	n := 0
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (r *fakeRuntime) registeredIDs() []uint32 {
	var ids []uint32
	for _, id := range r.registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
