package serviceerr

import (
	"errors"
	"fmt"
)

// Error carries a stable machine-readable code of the form "<operation>.<reason>"
// alongside the underlying cause.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Code() string {
	return e.code
}

// New builds an Error for the operation and reason, wrapping cause.
func New(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &Error{code: code, err: cause}
}

// CodeOf returns the service code carried by err, or "" when err is not a service error.
func CodeOf(err error) string {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return ""
}
