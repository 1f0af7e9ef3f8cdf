// Package gunzip decompresses gzip streams into an output with bounded memory.
//
// Two copy strategies are supported. In plain mode the complete decompressed content
// is copied. In tar mode the first tar header block of the decompressed content is
// parsed and only the content of the first entry, as declared by the header, is copied.
// [TarModeAuto] peeks at the decompressed content and picks the strategy.
//
// Configuration is done using the [Config], which is created with [NewConfig] and
// adjusted with options such as [WithTarMode], [WithBufferSize] or [WithLogger].
// Telemetry data is captured during every decompression and handed to the
// [TelemetryHook] of the configuration.
//
// Failures are returned as [*IOError] or [*HeaderError]; both match [ErrIO] with
// [errors.Is], header failures additionally match [ErrHeader].
package gunzip
