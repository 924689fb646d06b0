package glkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEnum reports a format, type or target outside the allow-lists.
	ErrInvalidEnum = errors.New("invalid enum")
	// ErrPrecondition reports an operation issued before the state it needs.
	ErrPrecondition = errors.New("precondition failed")
	// ErrImmutable reports a reallocation of immutable storage.
	ErrImmutable = fmt.Errorf("%w: storage is immutable", ErrPrecondition)
	// ErrNative reports a failure returned by the driver: compile and link
	// errors, incomplete framebuffers and glGetError codes.
	ErrNative = errors.New("native error")
)

// Error describes a failed operation on a named resource. Kind is one of
// the sentinel errors above and is matched by errors.Is.
type Error struct {
	Resource string
	Op       string
	Kind     error
	Msg      string
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Resource != "" {
		msg = e.Resource + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(resource, op string, kind error, format string, args ...interface{}) error {
	return &Error{
		Resource: resource,
		Op:       op,
		Kind:     kind,
		Msg:      fmt.Sprintf(format, args...),
	}
}
