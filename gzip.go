// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// fileExtensionGZip is the file extension for gzip files.
	fileExtensionGZip = "gz"

	// fileExtensionTarGZip is the file extension for tgz files, which are tar archives compressed with gzip.
	fileExtensionTarGZip = "tgz"

	// typeTarGZip is the telemetry type of a decompression with a skipped tar header.
	typeTarGZip = "tar.gz"
)

// magicBytesGZip are the magic bytes for gzip compressed files.
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// IsGZip checks if the header matches the magic bytes for gzip compressed files.
func IsGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// newGZipReader returns a reader that decompresses src. The gzip header is
// read and validated before it returns.
func newGZipReader(src io.Reader) (*gzip.Reader, error) {
	return gzip.NewReader(src)
}
