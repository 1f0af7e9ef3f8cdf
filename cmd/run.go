// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/docker/go-units"
	gunzip "github.com/hashicorp/go-gunzip"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// CLI are the cli parameters for the gunzip binary
type CLI struct {
	Inputs            []string         `arg:"" name:"input" help:"Path to gzip compressed input. (\"-\" for STDIN)"`
	Auto              bool             `short:"a" xor:"mode" help:"Detect a tar header and copy only the first entry."`
	BufferSize        int              `optional:"" default:"8192" help:"Size of the transfer buffer (in bytes)."`
	CreateDestination bool             `short:"c" help:"Create destination directory if it does not exist."`
	Jobs              int              `short:"j" optional:"" default:"1" help:"Number of inputs that are decompressed in parallel."`
	MaxInputSize      string           `optional:"" default:"1GiB" help:"Maximum size of a compressed input, e.g. 512MiB. (disable check: -1)"`
	MaxOutputSize     string           `optional:"" default:"1GiB" help:"Maximum size of a decompressed output, e.g. 4GiB. (disable check: -1)"`
	Metrics           bool             `short:"M" optional:"" default:"false" help:"Print metrics to log after decompression."`
	Output            string           `short:"o" optional:"" help:"Output file or directory. (\"-\" for STDOUT, default: directory of the input)"`
	Overwrite         bool             `short:"O" help:"Overwrite if exist."`
	Strict            bool             `help:"Fail if a tar entry is shorter than declared in its header."`
	Tar               bool             `short:"t" xor:"mode" help:"Skip the tar header and copy only the first entry."`
	Timeout           time.Duration    `optional:"" default:"60s" help:"Maximum time that all decompressions may take. (disable check: 0)"`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into go-gunzip as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Decompress gzip streams with bounded memory"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(context.Background(), &cli, logger, afero.NewOsFs(), bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		logger.Error("error during decompression", "error", err)
		os.Exit(-1)
	}
}

// run decompresses all inputs of cli.
func run(ctx context.Context, cli *CLI, logger *slog.Logger, fsys afero.Fs, stdin io.Reader, stdout io.Writer) error {
	cfg, err := newConfig(cli, logger, fsys)
	if err != nil {
		return err
	}

	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}

	// a single output file cannot take several inputs
	if len(cli.Inputs) > 1 && cli.Output != "" && cli.Output != "-" {
		if stat, err := fsys.Stat(cli.Output); err != nil || !stat.IsDir() {
			return errors.Errorf("output %q must be a directory for %d inputs", cli.Output, len(cli.Inputs))
		}
	}

	// inputs are independent, each decompression has its own buffers
	// outputs to stdout are written one after another
	jobs := cli.Jobs
	toStdout := cli.Output == "-" || (cli.Output == "" && slices.Contains(cli.Inputs, "-"))
	if jobs < 1 || toStdout {
		jobs = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, input := range cli.Inputs {
		input := input
		g.Go(func() error {
			return decompressInput(ctx, cli, cfg, input, stdin, stdout)
		})
	}
	return g.Wait()
}

// newConfig translates the cli parameters into a [gunzip.Config].
func newConfig(cli *CLI, logger *slog.Logger, fsys afero.Fs) (*gunzip.Config, error) {
	maxInputSize, err := parseSize(cli.MaxInputSize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid maximum input size")
	}
	maxOutputSize, err := parseSize(cli.MaxOutputSize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid maximum output size")
	}

	mode := gunzip.TarModeOff
	switch {
	case cli.Tar:
		mode = gunzip.TarModeOn
	case cli.Auto:
		mode = gunzip.TarModeAuto
	}

	// setup metrics hook
	metricsToLog := func(ctx context.Context, td *gunzip.TelemetryData) {
		if cli.Metrics {
			logger.Info("decompression finished", "metrics", td)
		}
	}

	return gunzip.NewConfig(
		gunzip.WithBufferSize(cli.BufferSize),
		gunzip.WithCreateDestination(cli.CreateDestination),
		gunzip.WithFs(fsys),
		gunzip.WithLogger(logger),
		gunzip.WithMaxInputSize(maxInputSize),
		gunzip.WithMaxOutputSize(maxOutputSize),
		gunzip.WithOverwrite(cli.Overwrite),
		gunzip.WithStrictEntrySize(cli.Strict),
		gunzip.WithTarMode(mode),
		gunzip.WithTelemetryHook(metricsToLog),
	), nil
}

// parseSize parses a human readable size like "512MiB". "-1" disables the limit.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "-1" {
		return -1, nil
	}
	return units.RAMInBytes(s)
}

// decompressInput decompresses a single input to the configured output.
func decompressInput(ctx context.Context, cli *CLI, cfg *gunzip.Config, input string, stdin io.Reader, stdout io.Writer) error {

	// read from stdin
	if input == "-" {
		if cli.Output == "" || cli.Output == "-" {
			return errors.Wrap(gunzip.Decompress(ctx, stdout, stdin, cfg), "decompress stdin")
		}
		return errors.Wrap(gunzip.DecompressToFile(ctx, stdin, cli.Output, cfg), "decompress stdin")
	}

	// write to stdout
	if cli.Output == "-" {
		f, err := cfg.Fs().Open(input)
		if err != nil {
			return errors.Wrapf(err, "open %s", input)
		}
		defer f.Close()
		return errors.Wrapf(gunzip.Decompress(ctx, stdout, f, cfg), "decompress %s", input)
	}

	// write next to the input by default
	dst := cli.Output
	if dst == "" {
		dst = filepath.Dir(input)
	}
	return errors.Wrapf(gunzip.DecompressFile(ctx, input, dst, cfg), "decompress %s", input)
}
