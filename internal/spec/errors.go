package spec

import (
	"errors"
	"fmt"
)

// Load-time error classes. Compare with errors.Is.
var (
	ErrSpecUnavailable      = errors.New("spec unavailable")
	ErrSpecInvalid          = errors.New("spec invalid")
	ErrUnresolvedReference  = errors.New("unresolved reference")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// UnresolvedRefError records an operation dropped because a $ref it depends on
// is external or points nowhere inside the document.
type UnresolvedRefError struct {
	Method string
	Path   string
	Ref    string
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("%s %s: unresolved reference %q", e.Method, e.Path, e.Ref)
}

func (e *UnresolvedRefError) Unwrap() error { return ErrUnresolvedReference }

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSpecUnavailable, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSpecInvalid, fmt.Sprintf(format, args...))
}
