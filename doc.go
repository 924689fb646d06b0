// Package glkit wraps native OpenGL objects in owning Go types.
//
// Every type owns one native object, or a small fixed set of them, and
// mirrors its lifecycle: allocate, upload or resize, bind, use, destroy.
// Format triples (internal format, pixel format, pixel type) are validated
// against fixed allow-lists before any native call is issued, and the
// width, height and format metadata the driver does not report cheaply is
// tracked alongside the object.
//
// Texture uploads and downloads go through a ring of pixel buffer objects
// (two slots for uploads, three for downloads by default) so the caller can
// issue a transfer every frame without waiting on the previous one.
//
// All glkit types must be used from the goroutine that owns the GL context,
// with that goroutine locked to its OS thread.
package glkit
