// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is matched by every failure that occurs while reading the input or writing the output.
	ErrIO = errors.New("i/o failure")

	// ErrHeader is matched by failures to parse the tar header block.
	ErrHeader = errors.New("invalid tar header")

	// ErrMaxInputSizeExceeded indicates that the compressed input is larger than the configured maximum.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrMaxOutputSizeExceeded indicates that the decompressed output is larger than the configured maximum.
	ErrMaxOutputSizeExceeded = errors.New("maximum output size exceeded")
)

// IOError is returned when reading from the input or writing to the output fails.
type IOError struct {
	// Op is the operation that failed, e.g. "read", "write" or "open gzip stream"
	Op string

	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrIO].
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// HeaderError is returned when the tar header block is truncated or malformed.
type HeaderError struct {
	// Reason describes what is wrong with the header
	Reason string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *HeaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid tar header: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid tar header: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *HeaderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrHeader] or [ErrIO]. A header that cannot be
// parsed is an input failure as well.
func (e *HeaderError) Is(target error) bool {
	return target == ErrHeader || target == ErrIO
}

// ioError wraps err into an [*IOError], unless it already is one.
func ioError(op string, err error) error {
	var ioErr *IOError
	var hdrErr *HeaderError
	if errors.As(err, &ioErr) || errors.As(err, &hdrErr) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
