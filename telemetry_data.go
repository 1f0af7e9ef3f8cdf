// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data of a decompression.
type TelemetryData struct {
	// DecompressedType is "gz" for a plain copy and "tar.gz" if a tar header was skipped
	DecompressedType string `json:"decompressed_type"`

	// DecompressionDuration is the time it took to decompress the input
	DecompressionDuration time.Duration `json:"decompression_duration"`

	// DecompressionErrors is the number of errors during decompression
	DecompressionErrors int64 `json:"decompression_errors"`

	// EmptyReads is the number of reads that returned no data and were retried
	EmptyReads int64 `json:"empty_reads"`

	// EntryName is the name of the tar entry, if a tar header was parsed
	EntryName string `json:"entry_name"`

	// EntrySize is the content size declared by the tar header
	EntrySize int64 `json:"entry_size"`

	// InputSize is the number of compressed bytes read from the input
	InputSize int64 `json:"input_size"`

	// LastDecompressionError is the last error during decompression
	LastDecompressionError error `json:"last_decompression_error"`

	// OutputSize is the number of decompressed bytes written to the output
	OutputSize int64 `json:"output_size"`

	// TruncatedEntry is true if the stream ended before the declared entry size was copied
	TruncatedEntry bool `json:"truncated_entry"`
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if td.LastDecompressionError != nil {
		lastError = td.LastDecompressionError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastDecompressionError string `json:"last_decompression_error"`
		*Alias
	}{
		LastDecompressionError: lastError,
		Alias:                  (*Alias)(&td),
	})
}

// TelemetryHook is a function type that performs operations on [TelemetryData]
// after a decompression has finished which can be used to submit the [TelemetryData]
// to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)

// captureDuration sets the decompression duration, called with defer.
func captureDuration(td *TelemetryData, start time.Time) {
	td.DecompressionDuration = time.Since(start)
}

// captureInputSize sets the number of compressed bytes, called with defer.
func captureInputSize(td *TelemetryData, ler *limitErrorReader) {
	td.InputSize = ler.ReadBytes()
}

// captureOutputSize sets the number of decompressed bytes, called with defer.
func captureOutputSize(td *TelemetryData, lew *limitErrorWriter) {
	td.OutputSize = lew.WrittenBytes()
}
