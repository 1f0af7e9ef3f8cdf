package gunzip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader returns the chunks one per read; a nil chunk is a read
// without data and without error.
type scriptedReader struct {
	chunks [][]byte
	err    error
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	c := s.chunks[0]
	n := copy(p, c)
	if n < len(c) {
		s.chunks[0] = c[n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

// recordingWriter records the size of every write
type recordingWriter struct {
	bytes.Buffer
	writes []int
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	r.writes = append(r.writes, len(p))
	return r.Buffer.Write(p)
}

func TestCopyPlainRetriesEmptyReads(t *testing.T) {
	src := &scriptedReader{chunks: [][]byte{[]byte("hello"), nil, nil, []byte(" "), nil, []byte("world")}}
	var dst bytes.Buffer
	td := &TelemetryData{}

	err := copyPlain(context.Background(), &dst, src, make([]byte, 4), td)
	require.NoError(t, err)
	assert.Equal(t, "hello world", dst.String())
	assert.Equal(t, int64(3), td.EmptyReads)
}

func TestCopyPlainNoProgress(t *testing.T) {
	chunks := make([][]byte, maxConsecutiveEmptyReads)
	src := &scriptedReader{chunks: append([][]byte{[]byte("data")}, chunks...)}
	var dst bytes.Buffer

	err := copyPlain(context.Background(), &dst, src, make([]byte, 8), &TelemetryData{})
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, "data", dst.String())
}

func TestCopyPlainReadError(t *testing.T) {
	errRead := errors.New("broken pipe")
	src := &scriptedReader{chunks: [][]byte{[]byte("partial")}, err: errRead}
	var dst bytes.Buffer

	err := copyPlain(context.Background(), &dst, src, make([]byte, 8), &TelemetryData{})
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.ErrorIs(t, err, errRead)
	assert.Equal(t, "partial", dst.String())
}

func TestCopyEntryChunks(t *testing.T) {
	tests := []struct {
		name       string
		chunks     [][]byte
		remaining  int64
		bufferSize int
		factor     int
		want       string
		wantWrites []int
	}{
		{
			name:       "drain staging in transfer sized chunks",
			chunks:     [][]byte{[]byte("abcdefghij")},
			remaining:  10,
			bufferSize: 4,
			factor:     4,
			want:       "abcdefghij",
			wantWrites: []int{4, 4, 2},
		},
		{
			name:       "chunk capped by remaining bytes",
			chunks:     [][]byte{[]byte("abcdefgh")},
			remaining:  5,
			bufferSize: 4,
			factor:     4,
			want:       "abcde",
			wantWrites: []int{4, 1},
		},
		{
			name:       "staging buffer smaller than content",
			chunks:     [][]byte{[]byte("abcdefghijklmnop")},
			remaining:  16,
			bufferSize: 3,
			factor:     2,
			want:       "abcdefghijklmnop",
			wantWrites: []int{3, 3, 3, 3, 3, 1},
		},
		{
			name:       "empty reads between data",
			chunks:     [][]byte{[]byte("ab"), nil, nil, []byte("cd"), nil, []byte("ef")},
			remaining:  5,
			bufferSize: 8,
			factor:     1,
			want:       "abcde",
			wantWrites: []int{2, 2, 1},
		},
		{
			name:       "nothing declared",
			chunks:     [][]byte{[]byte("abcdef")},
			remaining:  0,
			bufferSize: 8,
			factor:     4,
			want:       "",
			wantWrites: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := &scriptedReader{chunks: test.chunks}
			dst := &recordingWriter{}
			cfg := NewConfig(WithBufferSize(test.bufferSize), WithStagingFactor(test.factor))

			err := copyEntry(context.Background(), dst, src, test.remaining, cfg, &TelemetryData{})
			require.NoError(t, err)
			assert.Equal(t, test.want, dst.String())
			assert.Equal(t, test.wantWrites, dst.writes)

			// the rest of the stream is consumed
			assert.Empty(t, src.chunks)
		})
	}
}

func TestCopyEntryStrict(t *testing.T) {
	src := &scriptedReader{chunks: [][]byte{[]byte("abc")}}
	var dst bytes.Buffer
	td := &TelemetryData{}
	cfg := NewConfig(WithStrictEntrySize(true))

	err := copyEntry(context.Background(), &dst, src, 5, cfg, td)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrIO)
	assert.True(t, td.TruncatedEntry)
}

func TestCopyEntryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedReader{chunks: [][]byte{[]byte("abc")}}
	var dst bytes.Buffer
	err := copyEntry(ctx, &dst, src, 3, NewConfig(), &TelemetryData{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dst.Len())
}
