// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll drains a source through ReadChunk and returns the payload and
// the final chunk.
func readAll(t *testing.T, src Source) ([]byte, Chunk) {
	t.Helper()
	ctx := context.Background()
	var data []byte
	for {
		chunk, err := src.ReadChunk(ctx)
		require.NoError(t, err)
		data = append(data, chunk.Data...)
		if chunk.EOF {
			return data, chunk
		}
	}
}

func TestMemorySource(t *testing.T) {
	payload := []byte("not really a trace, but enough bytes to stream")
	src, err := NewMemory("mem", payload)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, CodecNone, src.Codec())
	assert.Equal(t, int64(len(payload)), src.BytesTotal())

	data, last := readAll(t, src)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), last.BytesRead)
	assert.Equal(t, int64(len(payload)), last.BytesTotal)

	// Reading past EOF keeps returning empty EOF chunks.
	chunk, err := src.ReadChunk(context.Background())
	require.NoError(t, err)
	assert.True(t, chunk.EOF)
	assert.Empty(t, chunk.Data)
	assert.Equal(t, int64(len(payload)), chunk.BytesRead)
}

func TestEmptySource(t *testing.T) {
	src, err := NewMemory("empty", nil)
	require.NoError(t, err)
	defer src.Close()

	chunk, err := src.ReadChunk(context.Background())
	require.NoError(t, err)
	assert.True(t, chunk.EOF)
	assert.Empty(t, chunk.Data)
	assert.Equal(t, int64(0), chunk.BytesRead)
}

func TestChunkBoundaries(t *testing.T) {
	tests := map[string]struct {
		size      int
		numChunks int
		lastEmpty bool
	}{
		"below chunk size": {size: ChunkSize - 1, numChunks: 1},
		"exact chunk size": {size: ChunkSize, numChunks: 2, lastEmpty: true},
		"above chunk size": {size: ChunkSize + 3, numChunks: 2},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0x42}, test.size)
			src, err := NewMemory("mem", payload)
			require.NoError(t, err)
			defer src.Close()

			ctx := context.Background()
			var chunks []Chunk
			var read int64
			for {
				chunk, err := src.ReadChunk(ctx)
				require.NoError(t, err)
				read += int64(len(chunk.Data))
				assert.Equal(t, read, chunk.BytesRead)
				chunks = append(chunks, chunk)
				if chunk.EOF {
					break
				}
			}

			require.Len(t, chunks, test.numChunks)
			assert.Equal(t, int64(test.size), read)
			if test.lastEmpty {
				assert.Empty(t, chunks[len(chunks)-1].Data)
			}
		})
	}
}

func TestSniffCodec(t *testing.T) {
	tests := map[string]struct {
		prefix []byte
		codec  Codec
	}{
		"empty":     {prefix: nil, codec: CodecNone},
		"plaintext": {prefix: []byte("# ftrace"), codec: CodecNone},
		"gzip":      {prefix: []byte{0x1f, 0x8b, 0x08}, codec: CodecGzip},
		"zstd":      {prefix: []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, codec: CodecZstd},
		"snappy": {prefix: []byte{0xff, 0x06, 0x00, 0x00,
			's', 'N', 'a', 'P', 'p', 'Y'}, codec: CodecSnappy},
		"short gzip-like": {prefix: []byte{0x1f}, codec: CodecNone},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.codec, sniffCodec(test.prefix))
		})
	}
}

func TestCompressedSources(t *testing.T) {
	payload := bytes.Repeat([]byte("sched_switch "), 10000)

	var gzipped bytes.Buffer
	gz := gzip.NewWriter(&gzipped)
	_, err := gz.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var zstded bytes.Buffer
	zw, err := zstd.NewWriter(&zstded)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var snappied bytes.Buffer
	sw := snappy.NewBufferedWriter(&snappied)
	_, err = sw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, sw.Close())

	tests := map[string]struct {
		raw   []byte
		codec Codec
	}{
		"gzip":   {raw: gzipped.Bytes(), codec: CodecGzip},
		"zstd":   {raw: zstded.Bytes(), codec: CodecZstd},
		"snappy": {raw: snappied.Bytes(), codec: CodecSnappy},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := NewMemory("mem", test.raw)
			require.NoError(t, err)
			defer src.Close()

			assert.Equal(t, test.codec, src.Codec())
			// Decompressed size is unknown up front.
			assert.Equal(t, int64(0), src.BytesTotal())

			data, last := readAll(t, src)
			assert.Equal(t, payload, data)
			assert.Equal(t, int64(len(payload)), last.BytesRead)
			assert.Equal(t, int64(0), last.BytesTotal)
		})
	}
}

func TestFingerprint(t *testing.T) {
	a1, err := NewMemory("a", []byte("trace a"))
	require.NoError(t, err)
	defer a1.Close()
	a2, err := NewMemory("a-again", []byte("trace a"))
	require.NoError(t, err)
	defer a2.Close()
	b, err := NewMemory("b", []byte("trace b"))
	require.NoError(t, err)
	defer b.Close()

	assert.Len(t, a1.Fingerprint(), 64)
	assert.Equal(t, a1.Fingerprint(), a2.Fingerprint())
	assert.NotEqual(t, a1.Fingerprint(), b.Fingerprint())
}

func TestFileSource(t *testing.T) {
	payload := []byte("file backed trace bytes")
	path := filepath.Join(t.TempDir(), "trace.bin")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(len(payload)), src.BytesTotal())
	data, _ := readAll(t, src)
	assert.Equal(t, payload, data)

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
}

func TestHTTPSource(t *testing.T) {
	payload := bytes.Repeat([]byte{0x07}, 4096)
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			_, _ = w.Write(payload)
		}))
	defer server.Close()

	src, err := OpenHTTP(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(len(payload)), src.BytesTotal())
	data, _ := readAll(t, src)
	assert.Equal(t, payload, data)
}

func TestHTTPSourceUnknownLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0x07}, 4096)
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			// Force chunked transfer encoding, hiding the length.
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			_, _ = w.Write(payload)
		}))
	defer server.Close()

	src, err := OpenHTTP(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(0), src.BytesTotal())
	data, last := readAll(t, src)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(0), last.BytesTotal)
	assert.Equal(t, int64(len(payload)), last.BytesRead)
}

func TestHTTPSourceBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
	defer server.Close()

	_, err := OpenHTTP(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, server.URL, se.Source)
}
