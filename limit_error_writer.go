// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"io"
	"math"
)

// limitErrorWriter is a wrapper around an io.Writer that returns
// [ErrMaxOutputSizeExceeded] when the limit is reached.
type limitErrorWriter struct {
	W io.Writer // underlying writer
	L int64     // limit
	N int64     // number of bytes written
}

// Write writes up to len(p) bytes from p to the underlying data stream. It returns
// the number of bytes written from p (0 <= n <= len(p)) and any error encountered
// that caused the write to stop early. Write returns a non-nil error when n < len(p).
// Bytes up to the limit are still written before the error is returned.
func (l *limitErrorWriter) Write(p []byte) (n int, err error) {
	// check if we reached the limit
	if l.N >= l.L {
		return 0, ErrMaxOutputSizeExceeded
	}

	// write until we reach the limit
	if int64(len(p)) > l.L-l.N {
		p = p[0 : l.L-l.N]
		n, err = l.W.Write(p)
		if err == nil {
			err = ErrMaxOutputSizeExceeded
		}
		l.N += int64(n)
		return n, err
	}

	// write normally
	n, err = l.W.Write(p)
	l.N += int64(n)
	return n, err
}

// WrittenBytes returns how many bytes have been passed to the underlying writer.
func (l *limitErrorWriter) WrittenBytes() int64 {
	return l.N
}

// newLimitErrorWriter returns a new limitErrorWriter that wraps the given writer
// and limit. A negative limit disables the check.
func newLimitErrorWriter(w io.Writer, maxSize int64) *limitErrorWriter {
	if maxSize < 0 {
		maxSize = math.MaxInt64
	}
	return &limitErrorWriter{W: w, L: maxSize}
}
