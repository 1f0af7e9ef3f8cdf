// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"
)

// TarMode selects the copy strategy of a decompression.
type TarMode int

const (
	// TarModeOff copies the complete decompressed content.
	TarModeOff TarMode = iota

	// TarModeOn parses the tar header at the start of the decompressed content and
	// copies only the content of the first entry.
	TarModeOn

	// TarModeAuto peeks at the decompressed content and uses [TarModeOn] if it starts
	// with a ustar header, [TarModeOff] otherwise.
	TarModeAuto
)

// String returns the name of the mode.
func (m TarMode) String() string {
	switch m {
	case TarModeOff:
		return "off"
	case TarModeOn:
		return "on"
	case TarModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("TarMode(%d)", int(m))
	}
}

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The default configuration copies the complete decompressed content with a transfer
// buffer of 8 KiB and limits input and output to 1 GiB each.
type Config struct {
	// bufferSize is the size of the transfer buffer in bytes
	bufferSize int

	// stagingFactor is the size of the staging buffer in tar mode, as multiple of bufferSize
	stagingFactor int

	// tarMode selects the copy strategy
	tarMode TarMode

	// strictEntrySize fails the decompression if the stream ends before the
	// declared tar entry size has been copied
	strictEntrySize bool

	// maxInputSize is the maximum size of the compressed input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// maxOutputSize is the maximum size of the decompressed output.
	// Set value to -1 to disable the check.
	maxOutputSize int64

	// logger stream for decompression
	logger Logger

	// telemetryHook is a function to consume telemetry data after finished decompression
	// Important: do not adjust this value after decompression started
	telemetryHook TelemetryHook

	// fs is the filesystem used by DecompressFile
	fs afero.Fs

	// overwrite existing output files
	overwrite bool

	// create destination directory if it does not exist
	createDestination bool

	// customCreateDirMode is the file mode for created directories (respecting umask)
	customCreateDirMode fs.FileMode

	// customDecompressFileMode is the file mode for a decompressed file (respecting umask)
	customDecompressFileMode fs.FileMode
}

// BufferSize returns the size of the transfer buffer in bytes.
func (c *Config) BufferSize() int {
	return c.bufferSize
}

// StagingFactor returns the size of the staging buffer used in tar mode as a
// multiple of [Config.BufferSize].
func (c *Config) StagingFactor() int {
	return c.stagingFactor
}

// TarMode returns the configured copy strategy.
func (c *Config) TarMode() TarMode {
	return c.tarMode
}

// StrictEntrySize returns true if a tar entry that is shorter than declared in
// its header should fail the decompression.
func (c *Config) StrictEntrySize() bool {
	return c.strictEntrySize
}

// MaxInputSize returns the maximum size of the compressed input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MaxOutputSize returns the maximum size of the decompressed output.
func (c *Config) MaxOutputSize() int64 {
	return c.maxOutputSize
}

// Logger returns the logger.
func (c *Config) Logger() Logger {
	return c.logger
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// Fs returns the filesystem that is used by [DecompressFile].
func (c *Config) Fs() afero.Fs {
	return c.fs
}

// Overwrite returns true if existing output files should be replaced.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// CreateDestination returns true if a missing destination directory should be created.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the file mode for created directories. (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// CustomDecompressFileMode returns the file mode for a decompressed file. (respecting umask)
func (c *Config) CustomDecompressFileMode() fs.FileMode {
	return c.customDecompressFileMode
}

// CheckOutputSize checks if size exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxOutputSizeExceeded] error is returned.
func (c *Config) CheckOutputSize(size int64) error {

	// check if disabled
	if c.MaxOutputSize() == -1 {
		return nil
	}

	// check value
	if size > c.MaxOutputSize() {
		return ErrMaxOutputSizeExceeded
	}
	return nil
}

const (
	defaultBufferSize               = 8192          // 8 KiB transfer buffer
	defaultStagingFactor            = 4             // 32 KiB staging buffer
	defaultTarMode                  = TarModeOff    // plain copy
	defaultStrictEntrySize          = false         // short tar entries are copied as they are
	defaultMaxInputSize             = 1 << (10 * 3) // 1 Gb
	defaultMaxOutputSize            = 1 << (10 * 3) // 1 Gb
	defaultOverwrite                = false         // don't overwrite existing files
	defaultCreateDestination        = false         // don't create destination directory
	defaultCustomCreateDirMode      = 0750          // default directory permissions rwxr-x---
	defaultCustomDecompressFileMode = 0640          // default decompression permissions rw-r-----
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		bufferSize:               defaultBufferSize,
		stagingFactor:            defaultStagingFactor,
		tarMode:                  defaultTarMode,
		strictEntrySize:          defaultStrictEntrySize,
		maxInputSize:             defaultMaxInputSize,
		maxOutputSize:            defaultMaxOutputSize,
		logger:                   defaultLogger,
		telemetryHook:            defaultTelemetryHook,
		fs:                       afero.NewOsFs(),
		overwrite:                defaultOverwrite,
		createDestination:        defaultCreateDestination,
		customCreateDirMode:      defaultCustomCreateDirMode,
		customDecompressFileMode: defaultCustomDecompressFileMode,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithBufferSize options pattern function to set the size of the transfer buffer.
// Values below 1 are ignored.
func WithBufferSize(size int) ConfigOption {
	return func(c *Config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// WithStagingFactor options pattern function to set the size of the staging buffer
// used in tar mode, as a multiple of the transfer buffer. Values below 1 are ignored.
func WithStagingFactor(factor int) ConfigOption {
	return func(c *Config) {
		if factor > 0 {
			c.stagingFactor = factor
		}
	}
}

// WithTarMode options pattern function to select the copy strategy.
func WithTarMode(mode TarMode) ConfigOption {
	return func(c *Config) {
		c.tarMode = mode
	}
}

// WithStrictEntrySize options pattern function to fail a tar mode decompression
// if the stream ends before the size declared in the tar header is copied.
func WithStrictEntrySize(strict bool) ConfigOption {
	return func(c *Config) {
		c.strictEntrySize = strict
	}
}

// WithMaxInputSize options pattern function to set the maximum size of the compressed input. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithMaxOutputSize options pattern function to set the maximum size of the decompressed output. (-1 to disable check)
func WithMaxOutputSize(maxOutputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxOutputSize = maxOutputSize
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger Logger) ConfigOption {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after decompression.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithFs options pattern function to set the filesystem that is used by [DecompressFile].
func WithFs(fsys afero.Fs) ConfigOption {
	return func(c *Config) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithOverwrite options pattern function specify if files should be overwritten in the destination.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithCreateDestination options pattern function to create
// destination directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the file mode
// for created directories. (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithCustomDecompressFileMode options pattern function to set the file mode for a
// decompressed file. (respecting umask)
func WithCustomDecompressFileMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customDecompressFileMode = mode
	}
}
