// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"bytes"
	"io"
)

// NewMemory serves an in-memory trace buffer as a Source. The buffer must
// not be mutated while the source is read.
func NewMemory(name string, data []byte) (*Reader, error) {
	return NewReader(name, io.NopCloser(bytes.NewReader(data)), int64(len(data)))
}
