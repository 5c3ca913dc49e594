// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package enginemetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsume(t *testing.T) {
	tests := map[string]struct {
		prevHits   uint64
		prevMisses uint64
		hits       uint64
		misses     uint64

		issued      uint64
		deltaHits   uint64
		deltaMisses uint64
	}{
		"first poll": {
			hits: 3, misses: 7,
			issued: 10, deltaHits: 3, deltaMisses: 7,
		},
		"quiet interval": {
			prevHits: 3, prevMisses: 7, hits: 3, misses: 7,
			issued: 0, deltaHits: 0, deltaMisses: 0,
		},
		"hits only": {
			prevHits: 3, prevMisses: 7, hits: 13, misses: 7,
			issued: 10, deltaHits: 10, deltaMisses: 0,
		},
		"mixed": {
			prevHits: 13, prevMisses: 7, hits: 15, misses: 11,
			issued: 6, deltaHits: 2, deltaMisses: 4,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := &state{prevHits: tc.prevHits, prevMisses: tc.prevMisses}
			issued, deltaHits, deltaMisses := s.consume(tc.hits, tc.misses)
			assert.Equal(t, tc.issued, issued)
			assert.Equal(t, tc.deltaHits, deltaHits)
			assert.Equal(t, tc.deltaMisses, deltaMisses)
			assert.Equal(t, tc.hits, s.prevHits)
			assert.Equal(t, tc.misses, s.prevMisses)
		})
	}
}
