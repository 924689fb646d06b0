//go:build darwin

package gl

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Load opens the OpenGL framework and resolves the entry points glkit needs.
//
// macOS stops at OpenGL 4.1, so immutable storage, image load/store, compute
// dispatch and buffer clears are reported by Missing and gated by version in
// glkit.
func Load() (OpenGL, error) {
	handle, err := purego.Dlopen("/System/Library/Frameworks/OpenGL.framework/OpenGL", purego.RTLD_GLOBAL|purego.RTLD_LAZY)
	if err != nil {
		return nil, fmt.Errorf("open OpenGL.framework: %w", err)
	}

	gl := &openGL{}
	gl.bind(func(name string) uintptr {
		addr, err := purego.Dlsym(handle, name)
		if err != nil {
			return 0
		}
		return addr
	})
	return gl, nil
}
