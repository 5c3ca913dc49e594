// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package libtv // import "github.com/Falcon-OS/platform-external-perfetto/libtv"

import (
	"encoding"
	"fmt"
)

// UTID is the trace-unique thread identifier assigned by the engine. It is
// distinct from the OS-level TID, which may be reused within one trace.
type UTID int64

// UPID is the trace-unique process identifier assigned by the engine. It is
// distinct from the OS-level PID, which may be reused within one trace.
type UPID int64

// SessionID identifies one open trace session.
type SessionID string

// TrackID identifies a single visualization lane. IDs are synthesized by
// hashing the track's stable identity key, so an unchanged engine state
// always yields the same ID for the same track.
type TrackID uint64

func (id TrackID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// TrackGroupID identifies a collapsible cluster of tracks.
type TrackGroupID uint64

// ScrollingGroupID is the sentinel group of tracks that are not bound to
// any process or thread and stay visible at the top level.
const ScrollingGroupID TrackGroupID = 0

func (id TrackGroupID) String() string {
	if id == ScrollingGroupID {
		return "scrolling"
	}
	return fmt.Sprintf("%016x", uint64(id))
}

// IDs serialize as their hex form, which keeps them exact in JSON; a
// 64-bit value rendered as a JSON number would lose precision.
func (id TrackID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id TrackGroupID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// Compile-time interface checks
var _ encoding.TextMarshaler = TrackID(0)
var _ encoding.TextMarshaler = TrackGroupID(0)
