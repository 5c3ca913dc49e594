// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package tracks // import "github.com/Falcon-OS/platform-external-perfetto/tracks"

import (
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
	sha256 "github.com/minio/sha256-simd"
)

// Fingerprint digests a synthesis result into a stable hex identifier:
// the sha256 of the RFC 8785 canonical JSON form of the model. Two passes
// over an unchanged engine produce the same fingerprint, making model
// drift cheap to detect in logs and tests.
func (r *Result) Fingerprint() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
