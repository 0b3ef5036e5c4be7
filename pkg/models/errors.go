package models

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of a localization run
type ErrorKind int

const (
	// ConfigError is a malformed coefficient range or other invalid setting
	ConfigError ErrorKind = iota + 1
	// InputError is a missing, corrupt or unusable source image
	InputError
	// RangeError is a quantization window outside the symmetric histogram range
	RangeError
	// ComputationError is a result that cannot be normalized
	ComputationError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case InputError:
		return "InputError"
	case RangeError:
		return "RangeError"
	case ComputationError:
		return "ComputationError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type returned by every adjpeg package
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the Err* sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons
var (
	ErrConfig      = &Error{Kind: ConfigError}
	ErrInput       = &Error{Kind: InputError}
	ErrRange       = &Error{Kind: RangeError}
	ErrComputation = &Error{Kind: ComputationError}
)

// NewError creates a new Error with a formatted message
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error. An error that already
// carries a kind keeps it.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
