// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

// fingerprintHex hashes the raw stream prefix into a stable identifier.
// Traces are large and immutable, so the leading bytes are enough to tell
// sessions for the same trace apart from sessions for different ones.
func fingerprintHex(prefix []byte) string {
	h := sha256.New()
	_, _ = h.Write(prefix)
	return hex.EncodeToString(h.Sum(nil))
}
