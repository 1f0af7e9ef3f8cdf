// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gunzip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const (
	// defaultDecompressionName is the default name for the decompressed content
	defaultDecompressionName = "gunzip-decompressed-content"

	// defaultDecompressedSuffix is the suffix for the decompressed content if
	// the input name does not end with a known file extension
	defaultDecompressedSuffix = "decompressed"
)

// nameRestriction is a struct that contains the name of the restriction and the regex to check for it
type nameRestriction struct {
	RestrictionName string
	Regex           *regexp.Regexp
}

// namingRestrictions is a list of restrictions for derived output names
var namingRestrictions = []nameRestriction{
	{"empty name", regexp.MustCompile(`^$`)},
	{"current directory", regexp.MustCompile(`^\.$`)},
	{"parent directory", regexp.MustCompile(`^\.\.$`)},
	{"maximum length 255", regexp.MustCompile(`^.{256,}$`)},
	{"exclude line break, feed and tab", regexp.MustCompile(`[\x0a\x0d\x09]`)},
	{"null byte, slash, backslash", regexp.MustCompile(`[\x00/\\]`)},
}

// DecompressFile decompresses the gzip file src into dst, both resolved on the
// filesystem of cfg. Input and output are closed on all paths.
//
// See [DecompressToFile] for the handling of dst.
func DecompressFile(ctx context.Context, src string, dst string, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}

	// open input
	in, err := cfg.Fs().Open(src)
	if err != nil {
		cfg.Logger().Error("cannot open input", "path", src, "error", err)
		return ioError("open input", err)
	}
	defer in.Close()

	return DecompressToFile(ctx, in, dst, cfg)
}

// DecompressToFile decompresses the gzip compressed src into the file dst on the
// filesystem of cfg.
//
// If dst is empty or an existing directory, the output name is derived from the tar
// entry name or, if src has a Name method like *os.File, from the input name. If dst
// does not exist, it is used as output file. The input is validated before the output
// is created, so an unreadable gzip or tar header leaves no output behind. If the
// decompression fails afterwards, the partial output is removed. The output is closed
// on all paths, src is not closed.
func DecompressToFile(ctx context.Context, src io.Reader, dst string, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	fsys := cfg.Fs()

	// determine input name
	inputName := ""
	if f, ok := src.(interface{ Name() string }); ok {
		inputName = filepath.Base(f.Name())
	}

	// the output is created after the input is validated
	var out afero.File
	var outPath string
	output := func(hdr *TarHeader) (io.Writer, error) {
		p, err := outputPath(cfg, dst, inputName, hdr)
		if err != nil {
			return nil, err
		}
		if hdr != nil {
			if err := cfg.CheckOutputSize(hdr.Size); err != nil {
				return nil, fmt.Errorf("entry %q with %d bytes: %w", hdr.Name, hdr.Size, err)
			}
		}
		f, err := createFile(cfg, p)
		if err != nil {
			return nil, err
		}
		cfg.Logger().Debug("created output", "path", p)
		out, outPath = f, p
		return f, nil
	}

	err := decompress(ctx, src, cfg, output)

	// close and clean up output
	if out != nil {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = ioError("close output", cerr)
		}
		if err != nil {
			if rerr := fsys.Remove(outPath); rerr != nil {
				cfg.Logger().Warn("cannot remove partial output", "path", outPath, "error", rerr)
			}
		}
	}

	return err
}

// outputPath determines the path of the output file.
func outputPath(cfg *Config, dst string, inputName string, hdr *TarHeader) (string, error) {
	fsys := cfg.Fs()

	// no destination, use working directory
	if dst == "" || dst == "." {
		return outputName(inputName, hdr), nil
	}

	stat, err := fsys.Stat(dst)
	switch {
	case err == nil && stat.IsDir():
		return filepath.Join(dst, outputName(inputName, hdr)), nil
	case err == nil:
		// existing file, overwrite is checked on creation
		return dst, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("invalid destination: %w", err)
	}

	// a missing destination with trailing separator is a directory
	if strings.HasSuffix(dst, "/") || strings.HasSuffix(dst, string(filepath.Separator)) {
		if err := ensureDir(cfg, dst); err != nil {
			return "", err
		}
		return filepath.Join(dst, outputName(inputName, hdr)), nil
	}

	// a missing destination is the output file
	if err := ensureDir(cfg, filepath.Dir(dst)); err != nil {
		return "", err
	}
	return dst, nil
}

// outputName derives the name of the output file from the tar entry or the input name.
func outputName(inputName string, hdr *TarHeader) string {

	// prefer the name of the tar entry
	if hdr != nil {
		if name := path.Base(hdr.Name); validName(name) {
			return name
		}
	}

	// is input a file?
	if len(inputName) == 0 || inputName == "-" || inputName == "." {
		return defaultDecompressionName
	}

	// remove file extension
	newName := inputName
	lower := strings.ToLower(inputName)
	switch {
	case hdr != nil && strings.HasSuffix(lower, ".tar."+fileExtensionGZip):
		newName = inputName[:len(inputName)-len(".tar."+fileExtensionGZip)]
	case hdr != nil && strings.HasSuffix(lower, "."+fileExtensionTarGZip):
		newName = inputName[:len(inputName)-len("."+fileExtensionTarGZip)]
	case strings.HasSuffix(lower, "."+fileExtensionTarGZip):
		newName = inputName[:len(inputName)-len("."+fileExtensionTarGZip)] + ".tar"
	case strings.HasSuffix(lower, "."+fileExtensionGZip):
		newName = inputName[:len(inputName)-len("."+fileExtensionGZip)]
	}

	// check if file extension has been removed, if not, add a suffix
	if newName == inputName {
		newName = fmt.Sprintf("%s.%s", inputName, defaultDecompressedSuffix)
	}

	if !validName(newName) {
		return defaultDecompressionName
	}
	return newName
}

// validName checks that name is valid utf8 and violates none of the naming restrictions.
func validName(name string) bool {
	if !utf8.ValidString(name) {
		return false
	}
	for _, restriction := range namingRestrictions {
		if restriction.Regex.MatchString(name) {
			return false
		}
	}
	return true
}

// ensureDir checks that dir exists and creates it if the configuration allows it.
func ensureDir(cfg *Config, dir string) error {
	if dir == "" || dir == "." {
		return nil
	}

	stat, err := cfg.Fs().Stat(dir)
	if err == nil {
		if !stat.IsDir() {
			return fmt.Errorf("destination is not a directory: %s", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invalid destination: %w", err)
	}

	if !cfg.CreateDestination() {
		return fmt.Errorf("destination does not exist: %s", dir)
	}
	if err := cfg.Fs().MkdirAll(dir, cfg.CustomCreateDirMode().Perm()); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	cfg.Logger().Info("created destination directory", "path", dir)
	return nil
}

// createFile creates the output file at path. An existing file is only replaced
// if overwrite is enabled.
func createFile(cfg *Config, path string) (afero.File, error) {
	fsys := cfg.Fs()

	// check for path validity and if file existence+overwrite
	if stat, err := fsys.Stat(path); err == nil {
		if stat.IsDir() {
			return nil, fmt.Errorf("output is a directory: %s", path)
		}
		if !cfg.Overwrite() {
			return nil, fmt.Errorf("file already exists: %s", path)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, cfg.CustomDecompressFileMode().Perm())
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return f, nil
}
