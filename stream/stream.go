// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream provides chunked access to raw trace bytes from local
// and remote sources. A Source hands out fixed-size chunks together with
// progress information; compressed streams are transparently decompressed
// based on their magic bytes.
package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// ChunkSize is the payload size of one ReadChunk call. The final chunk
	// of a stream may be shorter.
	ChunkSize = 1 << 20

	// fingerprintBytes bounds the stream prefix hashed into Fingerprint
	// and inspected for compression magic.
	fingerprintBytes = 64 * 1024
)

// Chunk is one slice of a trace byte stream.
type Chunk struct {
	// Data holds the chunk payload. It may be non-empty on the EOF chunk.
	Data []byte
	// BytesRead is the cumulative number of payload bytes delivered so
	// far, including this chunk. For compressed streams this counts
	// decompressed bytes.
	BytesRead int64
	// BytesTotal is the total payload size, or 0 when unknown (network
	// sources without a length, compressed streams).
	BytesTotal int64
	// EOF marks the last chunk of the stream.
	EOF bool
}

// Source is a readable trace byte stream. ReadChunk is called repeatedly
// until it returns a chunk with EOF set; reading past EOF returns further
// empty EOF chunks. Sources are not safe for concurrent use.
type Source interface {
	ReadChunk(ctx context.Context) (Chunk, error)
	Close() error
}

// StreamError reports an unreadable trace source. Any StreamError aborts
// the load pipeline; there is no retry.
type StreamError struct {
	Source string
	Err    error
}

func NewStreamError(source string, err error) *StreamError {
	return &StreamError{Source: source, Err: err}
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("trace source %s: %v", e.Source, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Reader is the Source implementation over an io.ReadCloser. It sniffs
// the compression codec from the stream's magic bytes, fingerprints the
// raw prefix and serves decompressed payload in ChunkSize slices.
type Reader struct {
	name        string
	codec       Codec
	fingerprint string

	r         io.Reader
	closers   []io.Closer
	total     int64
	bytesRead int64
	eof       bool
}

var _ Source = (*Reader)(nil)

// NewReader wraps a raw byte stream. name labels the source in errors and
// logs, bytesTotal is the raw stream size or 0 when unknown. When the
// stream turns out to be compressed, the reported total becomes 0 as the
// decompressed size is unknown up front.
func NewReader(name string, rc io.ReadCloser, bytesTotal int64) (*Reader, error) {
	br := bufio.NewReaderSize(rc, fingerprintBytes)
	prefix, err := br.Peek(fingerprintBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = rc.Close()
		return nil, NewStreamError(name, err)
	}

	r := &Reader{
		name:        name,
		codec:       sniffCodec(prefix),
		fingerprint: fingerprintHex(prefix),
		total:       bytesTotal,
		closers:     []io.Closer{rc},
	}

	payload, closer, err := decompress(br, r.codec)
	if err != nil {
		_ = rc.Close()
		return nil, NewStreamError(name, err)
	}
	r.r = payload
	if closer != nil {
		r.closers = append([]io.Closer{closer}, r.closers...)
	}
	if r.codec != CodecNone {
		// Decompressed size is unknown.
		r.total = 0
	}
	return r, nil
}

func (s *Reader) ReadChunk(ctx context.Context) (Chunk, error) {
	if s.eof {
		return Chunk{BytesRead: s.bytesRead, BytesTotal: s.total, EOF: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, NewStreamError(s.name, err)
	}

	buf := make([]byte, ChunkSize)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	default:
		return Chunk{}, NewStreamError(s.name, err)
	}
	s.bytesRead += int64(n)
	return Chunk{
		Data:       buf[:n],
		BytesRead:  s.bytesRead,
		BytesTotal: s.total,
		EOF:        s.eof,
	}, nil
}

func (s *Reader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Name returns the source label used in errors and logs.
func (s *Reader) Name() string {
	return s.name
}

// Codec returns the compression codec detected on the raw stream.
func (s *Reader) Codec() Codec {
	return s.codec
}

// Fingerprint identifies the stream contents across reloads. It is the
// hex SHA256 of the first 64 KiB of the raw (compressed) stream.
func (s *Reader) Fingerprint() string {
	return s.fingerprint
}

// BytesTotal returns the payload size reported in chunks, 0 if unknown.
func (s *Reader) BytesTotal() int64 {
	return s.total
}
