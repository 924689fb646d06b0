//go:build linux

package gl

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Load opens libGL and resolves the entry points glkit needs. Symbols libGL
// does not export directly are looked up with glXGetProcAddressARB.
//
// A context must be current on the calling thread before any method of the
// returned table is used.
func Load() (OpenGL, error) {
	handle, err := purego.Dlopen("libGL.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("open libGL.so.1: %w", err)
	}

	var getProcAddress func(*byte) uintptr
	if _, err := purego.Dlsym(handle, "glXGetProcAddressARB"); err == nil {
		purego.RegisterLibFunc(&getProcAddress, handle, "glXGetProcAddressARB")
	}

	gl := &openGL{}
	gl.bind(func(name string) uintptr {
		if addr, err := purego.Dlsym(handle, name); err == nil {
			return addr
		}
		if getProcAddress != nil {
			return getProcAddress(cstring(name))
		}
		return 0
	})
	return gl, nil
}
