// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package overview computes the coarse load summary shown before any track
// has rendered. The trace is cut into a fixed number of equal buckets and
// each bucket aggregates the scheduled CPU time inside its window. Traces
// without scheduling data fall back to a single pass that buckets
// call-slice duration per process instead.
package overview // import "github.com/Falcon-OS/platform-external-perfetto/overview"

import (
	"fmt"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

// NumBuckets is the fixed partition width of the overview sweep.
const NumBuckets = 100

// Bucket is one quantized load sample: the fraction of the bucket's
// window spent executing.
type Bucket struct {
	Span libtv.TimeSpan `json:"span"`
	Load float64        `json:"load"`
}

// Batch carries the buckets of one publish step, keyed by the series they
// belong to. Exactly one of the two maps is populated: ByCPU for the
// schedule-based sweep, ByProcess for the slice fallback.
type Batch struct {
	ByCPU     map[uint32][]Bucket     `json:"byCpu,omitempty"`
	ByProcess map[libtv.UPID][]Bucket `json:"byProcess,omitempty"`
}

// Sink receives overview batches as they are computed. Schedule-based
// batches arrive one bucket at a time so rendering can start before the
// sweep finishes.
type Sink interface {
	SetStatus(status string)
	PublishOverview(batch Batch)
}

// SchedLoadQuery aggregates the scheduled duration per CPU inside one
// bucket window. The swapper thread does not count as load.
func SchedLoadQuery(window libtv.TimeSpan) string {
	return fmt.Sprintf("select cpu, sum(dur) as busy from sched "+
		"where ts >= %d and ts < %d and utid != 0 "+
		"group by cpu order by cpu", window.Start, window.End)
}

// SliceLoadQuery buckets the call-slice duration of every process over the
// whole trace in one query, using the same step width as the sweep.
func SliceLoadQuery(span libtv.TimeSpan, step libtv.TimeNanos) string {
	return fmt.Sprintf("select bucket, upid, sum(utid_sum) as busy from thread "+
		"inner join ("+
		"select cast((ts - %d)/%d as int) as bucket, sum(dur) as utid_sum, utid "+
		"from slice inner join thread_track on slice.track_id = thread_track.id "+
		"group by bucket, utid"+
		") using(utid) where upid is not null group by bucket, upid",
		span.Start, step)
}

// bucketStep returns the bucket width for the span, at least one
// nanosecond. The width is rounded up so NumBuckets buckets always cover
// the whole span.
func bucketStep(span libtv.TimeSpan) libtv.TimeNanos {
	step := (span.Duration() + NumBuckets - 1) / NumBuckets
	if step < 1 {
		step = 1
	}
	return step
}

// bucketWindow returns the window of bucket i, clamped to the span end.
func bucketWindow(span libtv.TimeSpan, i int, step libtv.TimeNanos) libtv.TimeSpan {
	start := span.Start + libtv.TimeNanos(i)*step
	end := start + step
	if end > span.End {
		end = span.End
	}
	return libtv.TimeSpan{Start: start, End: end}
}
