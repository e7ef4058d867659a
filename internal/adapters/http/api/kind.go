package api

import (
	"errors"
	"fmt"
)

// kindError tags an error with the operation that produced it so logs
// and API payloads can point at the failing handler.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return e.kind
}

func (e *kindError) Is(target error) bool {
	return errors.Is(e.kind, target) || errors.Is(e.err, target)
}

// NewKind returns an operation-tagged sentinel error.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind returns an operation-tagged sentinel error carrying a cause.
func WrapKind(op string, kind error, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// Wrap tags an arbitrary error with the operation that produced it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
