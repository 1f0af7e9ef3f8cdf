package gunzip_test

import (
	"archive/tar"
	"bytes"
	"testing"
	"time"

	"github.com/hashicorp/go-gunzip"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// compressGzip compresses data with gzip
func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// tarHeaderBlock returns a single ustar header block for a regular file
func tarHeaderBlock(t *testing.T, name string, size int64) []byte {
	t.Helper()
	return tarHeaderBlockWithFormat(t, name, size, tar.FormatUSTAR)
}

// tarHeaderBlockWithFormat returns a single header block in the given format
func tarHeaderBlockWithFormat(t *testing.T, name string, size int64, format tar.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0640,
		Size:     size,
		ModTime:  time.Unix(1700000000, 0),
		Typeflag: tar.TypeReg,
		Format:   format,
	})
	require.NoError(t, err)
	require.Equal(t, gunzip.TarBlockSize, buf.Len())
	return buf.Bytes()
}

// archiveContent is a file that is packed by packTar
type archiveContent struct {
	Name    string
	Content []byte
}

// packTar creates a complete tar archive with the given files
func packTar(t *testing.T, files []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		err := tw.WriteHeader(&tar.Header{
			Name:     f.Name,
			Mode:     0640,
			Size:     int64(len(f.Content)),
			ModTime:  time.Unix(1700000000, 0),
			Typeflag: tar.TypeReg,
		})
		require.NoError(t, err)
		_, err = tw.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// concat joins byte slices
func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// pattern returns n bytes of a repeating, non-trivial pattern
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}
