// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// TarBlockSize is the size of a tar header block.
const TarBlockSize = 512

// offsetTar is the offset where the magic bytes are located in the header block
const offsetTar = 257

// magicBytesTar are the magic bytes for tar files
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

// field offsets of the header block
const (
	nameStart     = 0
	nameEnd       = 100
	sizeStart     = 124
	sizeEnd       = 136
	chksumStart   = 148
	chksumEnd     = 156
	typeflagIndex = 156
	magicEnd      = 263
	versionEnd    = 265
	prefixStart   = 345
	prefixEnd     = 500
)

const (
	formatV7    = "v7"
	formatUSTAR = "ustar"
	formatGNU   = "gnu"
)

// TarHeader holds the fields of a tar header block that are relevant to
// copy the first entry.
type TarHeader struct {
	// Name of the entry, including the ustar prefix
	Name string

	// Size is the length of the entry content in bytes
	Size int64

	// Typeflag is the raw type of the entry, e.g. '0' for a regular file
	Typeflag byte

	// Format is one of "v7", "ustar" or "gnu"
	Format string
}

// IsTar checks if the header matches the magic bytes for tar files.
func IsTar(header []byte) bool {
	return matchesMagicBytes(header, offsetTar, magicBytesTar)
}

// ReadTarHeader consumes exactly one header block from r and parses it.
//
// A block shorter than [TarBlockSize] or a malformed block results in a [*HeaderError].
// Other read failures are returned as [*IOError].
func ReadTarHeader(r io.Reader) (*TarHeader, error) {
	var block [TarBlockSize]byte
	n, err := io.ReadFull(r, block[:])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &HeaderError{
			Reason: fmt.Sprintf("truncated block, got %d of %d bytes", n, TarBlockSize),
			Err:    io.ErrUnexpectedEOF,
		}
	}
	if err != nil {
		return nil, ioError("read tar header", err)
	}
	return ParseTarHeader(block[:])
}

// ParseTarHeader parses a single header block.
func ParseTarHeader(block []byte) (*TarHeader, error) {
	if len(block) != TarBlockSize {
		return nil, &HeaderError{Reason: fmt.Sprintf("block size is %d, expected %d", len(block), TarBlockSize)}
	}

	// an all zero block marks the end of the archive
	if isZeroBlock(block) {
		return nil, &HeaderError{Reason: "end of archive marker, no entry"}
	}

	// verify checksum
	want, err := parseOctal(block[chksumStart:chksumEnd])
	if err != nil {
		return nil, &HeaderError{Reason: "cannot parse checksum", Err: err}
	}
	unsigned, signed := checksums(block)
	if want != unsigned && want != signed {
		return nil, &HeaderError{Reason: fmt.Sprintf("checksum mismatch, header declares %d, computed %d", want, unsigned)}
	}

	// parse size
	size, err := parseNumeric(block[sizeStart:sizeEnd])
	if err != nil {
		return nil, &HeaderError{Reason: "cannot parse size", Err: err}
	}

	hdr := &TarHeader{
		Name:     cString(block[nameStart:nameEnd]),
		Size:     size,
		Typeflag: block[typeflagIndex],
		Format:   formatV7,
	}

	// ustar and gnu headers carry magic bytes, only ustar uses the prefix field
	switch string(block[offsetTar:versionEnd]) {
	case "ustar\x0000":
		hdr.Format = formatUSTAR
		if prefix := cString(block[prefixStart:prefixEnd]); len(prefix) > 0 {
			hdr.Name = prefix + "/" + hdr.Name
		}
	case "ustar  \x00":
		hdr.Format = formatGNU
	default:
		if string(block[offsetTar:magicEnd]) == "ustar\x00" {
			hdr.Format = formatUSTAR
		}
	}

	return hdr, nil
}

// isZeroBlock returns true if all bytes in b are zero.
func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// checksums computes the unsigned and the signed sum of the block, with the
// checksum field itself counted as spaces. Old tar implementations used the signed sum.
func checksums(block []byte) (unsigned int64, signed int64) {
	for i, c := range block {
		if i >= chksumStart && i < chksumEnd {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return unsigned, signed
}

// parseNumeric parses a numeric field that is either octal or, if the high bit
// of the first byte is set, a big-endian base-256 number (GNU extension).
func parseNumeric(b []byte) (int64, error) {
	if len(b) > 0 && b[0]&0x80 != 0 {
		// the second highest bit is the sign
		if b[0]&0x40 != 0 {
			return 0, fmt.Errorf("negative base-256 value")
		}
		var x uint64
		for i, c := range b {
			if i == 0 {
				c &= 0x7f
			}
			if x>>56 > 0 {
				return 0, fmt.Errorf("base-256 value overflows int64")
			}
			x = x<<8 | uint64(c)
		}
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("base-256 value overflows int64")
		}
		return int64(x), nil
	}
	return parseOctal(b)
}

// parseOctal parses a NUL or space padded octal number.
func parseOctal(b []byte) (int64, error) {
	s := strings.Trim(string(b), " \x00")
	if len(s) == 0 {
		return 0, nil
	}
	x, err := strconv.ParseUint(s, 8, 63)
	if err != nil {
		return 0, err
	}
	return int64(x), nil
}

// cString returns the bytes of b up to the first NUL byte as string.
func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
