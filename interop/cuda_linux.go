//go:build linux

package interop

import (
	"fmt"

	"github.com/ebitengine/purego"
)

const (
	cudaSuccess              = 0
	cudaMemcpyDeviceToDevice = 3
	cudaRegisterFlagsNone    = 0
)

var cudaLibraries = []string{"libcudart.so", "libcudart.so.12", "libcudart.so.11.0"}

// cuda forwards to the CUDA runtime API resolved with purego.
type cuda struct {
	registerImage     func(*uintptr, uint32, uint32, uint32) int32
	registerBuffer    func(*uintptr, uint32, uint32) int32
	unregister        func(uintptr) int32
	mapResources      func(int32, *uintptr, uintptr) int32
	unmapResources    func(int32, *uintptr, uintptr) int32
	mappedArray       func(*uintptr, uintptr, uint32, uint32) int32
	mappedPointer     func(*uintptr, *uintptr, uintptr) int32
	malloc            func(*uintptr, uintptr) int32
	free              func(uintptr) int32
	memcpy            func(uintptr, uintptr, uintptr, int32) int32
	memcpy2D          func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, int32) int32
	memcpy2DToArray   func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, int32) int32
	memcpy2DFromArray func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, int32) int32
	synchronize       func() int32
	errorString       func(int32) string
}

// LoadCUDA opens libcudart. The GL context the resources belong to must be
// current on the calling thread.
func LoadCUDA() (Runtime, error) {
	var handle uintptr
	var err error
	for _, name := range cudaLibraries {
		handle, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open libcudart: %v", ErrUnavailable, err)
	}

	c := &cuda{}
	for _, fn := range []struct {
		ptr  interface{}
		name string
	}{
		{&c.registerImage, "cudaGraphicsGLRegisterImage"},
		{&c.registerBuffer, "cudaGraphicsGLRegisterBuffer"},
		{&c.unregister, "cudaGraphicsUnregisterResource"},
		{&c.mapResources, "cudaGraphicsMapResources"},
		{&c.unmapResources, "cudaGraphicsUnmapResources"},
		{&c.mappedArray, "cudaGraphicsSubResourceGetMappedArray"},
		{&c.mappedPointer, "cudaGraphicsResourceGetMappedPointer"},
		{&c.malloc, "cudaMalloc"},
		{&c.free, "cudaFree"},
		{&c.memcpy, "cudaMemcpy"},
		{&c.memcpy2D, "cudaMemcpy2D"},
		{&c.memcpy2DToArray, "cudaMemcpy2DToArray"},
		{&c.memcpy2DFromArray, "cudaMemcpy2DFromArray"},
		{&c.synchronize, "cudaDeviceSynchronize"},
		{&c.errorString, "cudaGetErrorString"},
	} {
		if _, err := purego.Dlsym(handle, fn.name); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, fn.name, err)
		}
		purego.RegisterLibFunc(fn.ptr, handle, fn.name)
	}
	return c, nil
}

func (c *cuda) check(op string, code int32) error {
	if code == cudaSuccess {
		return nil
	}
	return fmt.Errorf("cuda: %s: %s (%d)", op, c.errorString(code), code)
}

func (c *cuda) RegisterImage(texture, target uint32) (Resource, error) {
	var r uintptr
	err := c.check("register image", c.registerImage(&r, texture, target, cudaRegisterFlagsNone))
	return Resource(r), err
}

func (c *cuda) RegisterBuffer(buffer uint32) (Resource, error) {
	var r uintptr
	err := c.check("register buffer", c.registerBuffer(&r, buffer, cudaRegisterFlagsNone))
	return Resource(r), err
}

func (c *cuda) Unregister(r Resource) error {
	return c.check("unregister", c.unregister(uintptr(r)))
}

func (c *cuda) Map(r Resource) error {
	res := uintptr(r)
	return c.check("map", c.mapResources(1, &res, 0))
}

func (c *cuda) Unmap(r Resource) error {
	res := uintptr(r)
	return c.check("unmap", c.unmapResources(1, &res, 0))
}

func (c *cuda) MappedArray(r Resource) (uintptr, error) {
	var array uintptr
	err := c.check("mapped array", c.mappedArray(&array, uintptr(r), 0, 0))
	return array, err
}

func (c *cuda) MappedPointer(r Resource) (uintptr, int, error) {
	var ptr, size uintptr
	err := c.check("mapped pointer", c.mappedPointer(&ptr, &size, uintptr(r)))
	return ptr, int(size), err
}

func (c *cuda) Malloc(size int) (uintptr, error) {
	var ptr uintptr
	err := c.check("malloc", c.malloc(&ptr, uintptr(size)))
	return ptr, err
}

func (c *cuda) Free(ptr uintptr) error {
	return c.check("free", c.free(ptr))
}

func (c *cuda) Memcpy(dst, src uintptr, size int) error {
	return c.check("memcpy", c.memcpy(dst, src, uintptr(size), cudaMemcpyDeviceToDevice))
}

func (c *cuda) Memcpy2D(dst uintptr, dpitch int, src uintptr, spitch int, width, height int) error {
	return c.check("memcpy 2d", c.memcpy2D(dst, uintptr(dpitch), src, uintptr(spitch), uintptr(width), uintptr(height), cudaMemcpyDeviceToDevice))
}

func (c *cuda) Memcpy2DToArray(dst uintptr, src uintptr, spitch int, width, height int) error {
	return c.check("memcpy to array", c.memcpy2DToArray(dst, 0, 0, src, uintptr(spitch), uintptr(width), uintptr(height), cudaMemcpyDeviceToDevice))
}

func (c *cuda) Memcpy2DFromArray(dst uintptr, dpitch int, src uintptr, width, height int) error {
	return c.check("memcpy from array", c.memcpy2DFromArray(dst, uintptr(dpitch), src, 0, 0, uintptr(width), uintptr(height), cudaMemcpyDeviceToDevice))
}

func (c *cuda) Synchronize() error {
	return c.check("synchronize", c.synchronize())
}
