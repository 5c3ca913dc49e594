// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package libtv provides the core identifier and time types shared by the
// trace-session packages.
package libtv // import "github.com/Falcon-OS/platform-external-perfetto/libtv"

import (
	"fmt"
	"time"
)

// TimeNanos is a trace timestamp or duration in nanoseconds. All engine
// tables report time on this clock; it is not related to wall-clock time.
type TimeNanos int64

// Millis returns the value converted to milliseconds.
func (t TimeNanos) Millis() int64 {
	return int64(t) / int64(time.Millisecond)
}

// TimeSpan is a half-open interval [Start, End) on the trace clock.
type TimeSpan struct {
	Start TimeNanos `json:"start"`
	End   TimeNanos `json:"end"`
}

// Duration returns the length of the span. A span with End before Start
// reports a zero duration rather than a negative one.
func (s TimeSpan) Duration() TimeNanos {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s TimeSpan) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// UnixTime32 represents seconds since epoch. The metric reporting path
// batches by this reduced-precision timestamp.
type UnixTime32 uint32

// NowAsUInt32 is a convenience function to avoid code repetition.
func NowAsUInt32() uint32 {
	return uint32(time.Now().Unix())
}

// Void allows to use maps as sets without memory allocation for the values.
type Void struct{}
