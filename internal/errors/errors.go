// Package errors centralizes error wrapping for this module on top of
// github.com/pkg/errors, so every package attaches a stack trace at the
// point an error first occurs rather than at the point it is logged.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// New is a drop-in for errors.New that also attaches a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Errorf formats a new error and attaches a stack trace.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// WrapError wraps err with a contextual message, preserving the original
// error for Cause/As/Is. Returns nil if err is nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// WrapErrorf is WrapError with a formatted message.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, fmt.Sprintf(format, args...))
}

// Cause unwraps err to the deepest error in the chain, matching
// github.com/pkg/errors semantics.
func Cause(err error) error {
	return errors.Cause(err)
}
