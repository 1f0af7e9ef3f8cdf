package gunzip_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hashicorp/go-gunzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

// TestNewConfigDefaults checks the values of the default configuration
func TestNewConfigDefaults(t *testing.T) {
	cfg := gunzip.NewConfig()

	assert.Equal(t, 8192, cfg.BufferSize())
	assert.Equal(t, 4, cfg.StagingFactor())
	assert.Equal(t, gunzip.TarModeOff, cfg.TarMode())
	assert.False(t, cfg.StrictEntrySize())
	assert.Equal(t, int64(1<<30), cfg.MaxInputSize())
	assert.Equal(t, int64(1<<30), cfg.MaxOutputSize())
	assert.False(t, cfg.Overwrite())
	assert.False(t, cfg.CreateDestination())
	assert.Equal(t, "-rwxr-x---", cfg.CustomCreateDirMode().String())
	assert.Equal(t, "-rw-r-----", cfg.CustomDecompressFileMode().String())
	assert.NotNil(t, cfg.Logger())
	assert.NotNil(t, cfg.TelemetryHook())
	assert.IsType(t, &afero.OsFs{}, cfg.Fs())
}

func TestConfigOptions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hookCalled := false
	hook := func(ctx context.Context, td *gunzip.TelemetryData) {
		hookCalled = true
	}

	cfg := gunzip.NewConfig(
		gunzip.WithBufferSize(512),
		gunzip.WithStagingFactor(2),
		gunzip.WithTarMode(gunzip.TarModeAuto),
		gunzip.WithStrictEntrySize(true),
		gunzip.WithMaxInputSize(10),
		gunzip.WithMaxOutputSize(20),
		gunzip.WithLogger(logger),
		gunzip.WithTelemetryHook(hook),
		gunzip.WithFs(fsys),
		gunzip.WithOverwrite(true),
		gunzip.WithCreateDestination(true),
		gunzip.WithCustomCreateDirMode(0700),
		gunzip.WithCustomDecompressFileMode(0600),
	)

	assert.Equal(t, 512, cfg.BufferSize())
	assert.Equal(t, 2, cfg.StagingFactor())
	assert.Equal(t, gunzip.TarModeAuto, cfg.TarMode())
	assert.True(t, cfg.StrictEntrySize())
	assert.Equal(t, int64(10), cfg.MaxInputSize())
	assert.Equal(t, int64(20), cfg.MaxOutputSize())
	assert.Same(t, logger, cfg.Logger())
	assert.Same(t, fsys, cfg.Fs())
	assert.True(t, cfg.Overwrite())
	assert.True(t, cfg.CreateDestination())
	assert.Equal(t, "-rwx------", cfg.CustomCreateDirMode().String())
	assert.Equal(t, "-rw-------", cfg.CustomDecompressFileMode().String())

	cfg.TelemetryHook()(context.Background(), &gunzip.TelemetryData{})
	assert.True(t, hookCalled)
}

// TestConfigIgnoresInvalidOptions checks that invalid values keep the defaults
func TestConfigIgnoresInvalidOptions(t *testing.T) {
	cfg := gunzip.NewConfig(
		gunzip.WithBufferSize(0),
		gunzip.WithBufferSize(-1),
		gunzip.WithStagingFactor(0),
		gunzip.WithLogger(nil),
		gunzip.WithFs(nil),
		gunzip.WithTelemetryHook(nil),
	)

	assert.Equal(t, 8192, cfg.BufferSize())
	assert.Equal(t, 4, cfg.StagingFactor())
	assert.NotNil(t, cfg.Logger())
	assert.NotNil(t, cfg.Fs())
	assert.NotNil(t, cfg.TelemetryHook())
}

// TestCheckOutputSize implements test cases
func TestCheckOutputSize(t *testing.T) {
	cases := []struct {
		name        string
		input       int64
		config      *gunzip.Config
		expectError bool
	}{
		{
			name:        "less bytes than maximum",
			input:       5,
			config:      gunzip.NewConfig(gunzip.WithMaxOutputSize(10)),
			expectError: false,
		},
		{
			name:        "exactly the maximum",
			input:       10,
			config:      gunzip.NewConfig(gunzip.WithMaxOutputSize(10)),
			expectError: false,
		},
		{
			name:        "more bytes than maximum",
			input:       15,
			config:      gunzip.NewConfig(gunzip.WithMaxOutputSize(10)),
			expectError: true,
		},
		{
			name:        "disable output size check",
			input:       5000,
			config:      gunzip.NewConfig(gunzip.WithMaxOutputSize(-1)),
			expectError: false,
		},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("tc %d", i), func(t *testing.T) {
			want := tc.expectError
			got := tc.config.CheckOutputSize(tc.input) != nil
			if got != want {
				t.Errorf("test case %d failed: %s", i, tc.name)
			}
		})
	}
}

func TestTarModeString(t *testing.T) {
	tests := []struct {
		mode gunzip.TarMode
		want string
	}{
		{gunzip.TarModeOff, "off"},
		{gunzip.TarModeOn, "on"},
		{gunzip.TarModeAuto, "auto"},
		{gunzip.TarMode(42), "TarMode(42)"},
	}

	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			assert.Equal(t, test.want, test.mode.String())
		})
	}
}
