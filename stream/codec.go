// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies the compression framing of a raw trace stream.
type Codec uint8

const (
	// CodecNone marks an uncompressed stream.
	CodecNone Codec = iota
	// CodecGzip marks a gzip stream (RFC 1952).
	CodecGzip
	// CodecZstd marks a zstandard frame.
	CodecZstd
	// CodecSnappy marks a snappy framed stream.
	CodecSnappy
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("<invalid codec %d>", uint8(c))
	}
}

// Magic prefixes of the supported codecs.
var (
	gzipMagic   = []byte{0x1f, 0x8b}
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// sniffCodec inspects the leading bytes of a stream. Prefixes shorter than
// the longest magic are matched as far as they go, so truncated streams
// fall back to CodecNone.
func sniffCodec(prefix []byte) Codec {
	switch {
	case bytes.HasPrefix(prefix, gzipMagic):
		return CodecGzip
	case bytes.HasPrefix(prefix, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(prefix, snappyMagic):
		return CodecSnappy
	default:
		return CodecNone
	}
}

// decompress layers the matching decompressor over the raw stream. The
// returned closer is non-nil when the decompressor holds resources of its
// own and must be closed before the raw stream.
func decompress(raw io.Reader, codec Codec) (io.Reader, io.Closer, error) {
	switch codec {
	case CodecGzip:
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz, nil
	case CodecZstd:
		dec, err := zstd.NewReader(raw)
		if err != nil {
			return nil, nil, err
		}
		rc := dec.IOReadCloser()
		return rc, rc, nil
	case CodecSnappy:
		return snappy.NewReader(raw), nil, nil
	default:
		return raw, nil, nil
	}
}
