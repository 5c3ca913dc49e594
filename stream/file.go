// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"os"
)

// OpenFile opens a trace file as a Source. The file size feeds percentage
// progress unless the file turns out to be compressed.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewStreamError(path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, NewStreamError(path, err)
	}
	return NewReader(path, f, info.Size())
}
