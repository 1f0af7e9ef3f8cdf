// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// maxConsecutiveEmptyReads is the number of reads in a row that may return
// neither data nor an error before the input is considered stuck.
const maxConsecutiveEmptyReads = 100

// Decompress reads the gzip compressed src and writes the decompressed content to dst.
//
// With [TarModeOff] the complete content is copied. With [TarModeOn] a tar header block
// is parsed from the start of the content and exactly the entry size declared by the header
// is copied; the rest of the stream is read and discarded. [TarModeAuto] chooses between
// both by looking for the ustar magic bytes.
//
// Reads that return no data are retried, only io.EOF ends the copy. No byte is written
// to dst if the gzip header or the tar header cannot be read. Decompress does not close
// src or dst.
func Decompress(ctx context.Context, dst io.Writer, src io.Reader, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	return decompress(ctx, src, cfg, func(*TarHeader) (io.Writer, error) {
		return dst, nil
	})
}

// outputFunc provides the output once the stream is prepared. hdr is nil if
// the content is copied without tar header.
type outputFunc func(hdr *TarHeader) (io.Writer, error)

// decompress prepares the gzip stream from src, requests the output and copies the content.
func decompress(ctx context.Context, src io.Reader, cfg *Config, output outputFunc) error {

	// prepare telemetry capturing
	td := &TelemetryData{DecompressedType: fileExtensionGZip}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureDuration(td, time.Now())

	// limit input size
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(td, limitedReader)

	// open gzip stream and skip tar header, if requested
	s, err := openStream(ctx, limitedReader, cfg, td)
	if err != nil {
		return handleError(cfg, td, "cannot open stream", err)
	}
	defer s.Close()

	// request output
	dst, err := output(s.header)
	if err != nil {
		return handleError(cfg, td, "cannot create output", ioError("create output", err))
	}

	// limit output size
	limitedWriter := newLimitErrorWriter(dst, cfg.MaxOutputSize())
	defer captureOutputSize(td, limitedWriter)

	// copy content
	cfg.Logger().Info("decompress", "type", td.DecompressedType)
	if err := s.copyTo(ctx, limitedWriter, cfg, td); err != nil {
		return handleError(cfg, td, "cannot decompress", err)
	}

	return nil
}

// handleError increases the error counter, sets the latest error and logs it.
func handleError(cfg *Config, td *TelemetryData, msg string, err error) error {
	td.DecompressionErrors++
	td.LastDecompressionError = fmt.Errorf("%s: %w", msg, err)
	cfg.Logger().Error(msg, "error", err)
	return td.LastDecompressionError
}

// stream is a gzip stream that is ready to be copied.
type stream struct {
	gz     *gzip.Reader
	r      io.Reader  // decompressed content, positioned after the tar header
	header *TarHeader // nil if the content is copied without tar header
}

// openStream starts the decompression of src. In tar mode the tar header is consumed
// and parsed, in auto mode the first block is inspected first.
func openStream(ctx context.Context, src io.Reader, cfg *Config, td *TelemetryData) (*stream, error) {
	gz, err := newGZipReader(src)
	if err != nil {
		return nil, ioError("open gzip stream", err)
	}
	s := &stream{gz: gz, r: gz}

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, ioError("open gzip stream", err)
	}

	mode := cfg.TarMode()
	if mode == TarModeAuto {
		hr, err := newHeaderReader(gz, TarBlockSize)
		if err != nil {
			s.Close()
			return nil, ioError("peek header", err)
		}
		s.r = hr
		mode = TarModeOff
		if IsTar(hr.PeekHeader()) {
			mode = TarModeOn
		}
		cfg.Logger().Debug("detected tar mode", "mode", mode)
	}

	if mode == TarModeOn {
		hdr, err := ReadTarHeader(s.r)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.header = hdr
		td.DecompressedType = typeTarGZip
		td.EntryName = hdr.Name
		td.EntrySize = hdr.Size
		cfg.Logger().Debug("parsed tar header", "name", hdr.Name, "size", hdr.Size, "format", hdr.Format)
	}

	return s, nil
}

// Close closes the gzip stream. The underlying reader is not closed.
func (s *stream) Close() error {
	return s.gz.Close()
}

// copyTo copies the decompressed content to dst.
func (s *stream) copyTo(ctx context.Context, dst io.Writer, cfg *Config, td *TelemetryData) error {
	if s.header == nil {
		return copyPlain(ctx, dst, s.r, make([]byte, cfg.BufferSize()), td)
	}
	return copyEntry(ctx, dst, s.r, s.header.Size, cfg, td)
}

// copyPlain copies src to dst through buf until src reports io.EOF.
func copyPlain(ctx context.Context, dst io.Writer, src io.Reader, buf []byte, td *TelemetryData) error {
	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			return ioError("read", err)
		}

		n, err := src.Read(buf)
		if n > 0 {
			empty = 0
			if werr := writeChunk(dst, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ioError("read", err)
		}
		if n == 0 {
			if err := emptyRead(td, &empty); err != nil {
				return err
			}
		}
	}
}

// copyEntry reads src into a staging buffer and drains it into dst in chunks of at most
// the transfer buffer size, until remaining bytes are written. The rest of src is read
// until io.EOF and discarded.
func copyEntry(ctx context.Context, dst io.Writer, src io.Reader, remaining int64, cfg *Config, td *TelemetryData) error {
	chunkSize := cfg.BufferSize()
	staging := make([]byte, chunkSize*cfg.StagingFactor())
	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			return ioError("read", err)
		}

		n, err := src.Read(staging)
		if n > 0 {
			empty = 0
		}

		// drain staging buffer
		for off := 0; off < n && remaining > 0; {
			m := min(n-off, chunkSize)
			if int64(m) > remaining {
				m = int(remaining)
			}
			if werr := writeChunk(dst, staging[off:off+m]); werr != nil {
				return werr
			}
			off += m
			remaining -= int64(m)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return ioError("read", err)
		}
		if n == 0 {
			if err := emptyRead(td, &empty); err != nil {
				return err
			}
		}
	}

	// stream ended before the declared size was reached
	if remaining > 0 {
		td.TruncatedEntry = true
		if cfg.StrictEntrySize() {
			return ioError("read", fmt.Errorf("entry is %d bytes shorter than declared: %w", remaining, io.ErrUnexpectedEOF))
		}
		cfg.Logger().Warn("stream ended before declared entry size", "missing", remaining)
	}

	return nil
}

// writeChunk writes p completely to dst.
func writeChunk(dst io.Writer, p []byte) error {
	n, err := dst.Write(p)
	if err != nil {
		return ioError("write", err)
	}
	if n != len(p) {
		return ioError("write", io.ErrShortWrite)
	}
	return nil
}

// emptyRead counts a read without data and fails if too many happen in a row.
func emptyRead(td *TelemetryData, consecutive *int) error {
	td.EmptyReads++
	*consecutive++
	if *consecutive >= maxConsecutiveEmptyReads {
		return ioError("read", io.ErrNoProgress)
	}
	return nil
}
