package glkit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyrange/glkit/gl"
	"github.com/tinyrange/glkit/gl/gltest"
)

func newTestContext(t *testing.T, opts ...Option) (*gltest.Fake, *Context) {
	t.Helper()
	return newTestContextWith(t, gltest.New(), opts...)
}

func newTestContextWith(t *testing.T, f *gltest.Fake, opts ...Option) (*gltest.Fake, *Context) {
	t.Helper()
	ctx, err := NewContext(f, opts...)
	require.NoError(t, err)
	f.ResetCalls()
	return f, ctx
}

// solid returns w*h pixels of the given components.
func solid(w, h int, px ...byte) []byte {
	out := make([]byte, 0, w*h*len(px))
	for i := 0; i < w*h; i++ {
		out = append(out, px...)
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func lastIndexOf(names []string, name string) int {
	for i := len(names) - 1; i >= 0; i-- {
		if names[i] == name {
			return i
		}
	}
	return -1
}

// boundBuffers returns the non-zero buffers bound to target, in call order.
func boundBuffers(f *gltest.Fake, target uint32) []uint32 {
	var ids []uint32
	for _, c := range f.Named("BindBuffer") {
		if c.Arg(0).(uint32) == target && c.Arg(1).(uint32) != 0 {
			ids = append(ids, c.Arg(1).(uint32))
		}
	}
	return ids
}

func countBufferData(f *gltest.Fake, target uint32) int {
	n := 0
	for _, c := range f.Named("BufferData") {
		if c.Arg(0).(uint32) == target {
			n++
		}
	}
	return n
}

func newRGBA8(t *testing.T, ctx *Context, name string, w, h int) *Texture2D {
	t.Helper()
	tex := ctx.NewTexture2D(name)
	require.NoError(t, tex.Allocate(gl.RGBA8, gl.RGBA, gl.UnsignedByte, w, h))
	return tex
}
