package textonizer

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeSegmentation Code = "SEGMENTATION_FAILED"
	ErrCodeUnseedable   Code = "SYNTHESIS_UNSEEDABLE"
	ErrCodeNoTextons    Code = "NO_TEXTONS"
	ErrCodeIO           Code = "IO_ERROR"
)

var (
	// ErrUnseedable is returned when no placeable cluster survives filtering.
	ErrUnseedable = &Error{Code: ErrCodeUnseedable, Message: "no seed texton available"}
	// ErrNoTextons is returned when the cluster collection holds no texton at all.
	// It wraps ErrUnseedable: an empty collection cannot seed either.
	ErrNoTextons = &Error{Code: ErrCodeNoTextons, Message: "no texton in the cluster collection", Cause: ErrUnseedable}
)

// Error carries a Code, a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrUnseedable) works
// on errors built with NewError(ErrCodeUnseedable, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsCode reports whether the outermost *Error in err's chain has the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
