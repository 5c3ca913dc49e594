// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package overview // import "github.com/Falcon-OS/platform-external-perfetto/overview"

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/metrics"
)

// Sample sweeps the span bucket by bucket and publishes the load of every
// non-empty bucket as soon as it is known, so the load chart fills in
// progressively. When the whole sweep yields no scheduling data the slice
// fallback runs exactly once and publishes one consolidated batch keyed by
// process. The two strategies never mix.
func Sample(ctx context.Context, eng engine.Engine, sink Sink, span libtv.TimeSpan) error {
	if span.Duration() <= 0 {
		return nil
	}
	step := bucketStep(span)

	hasSched := false
	published := 0
	for i := 0; i < NumBuckets; i++ {
		window := bucketWindow(span, i, step)
		if window.Start >= span.End {
			break
		}
		res, err := eng.Query(ctx, SchedLoadQuery(window))
		if err != nil {
			return err
		}
		if batch := schedBatch(res, window, step); len(batch.ByCPU) > 0 {
			hasSched = true
			published += len(batch.ByCPU)
			sink.PublishOverview(batch)
		}
		if pct := (i + 1) * 100 / NumBuckets; pct%10 == 0 {
			sink.SetStatus(fmt.Sprintf("Loading overview %d%%", pct))
		}
	}
	if hasSched {
		metrics.Add(metrics.IDOverviewBuckets, metrics.MetricValue(published))
		return nil
	}
	log.Debug("No scheduling data, deriving overview from slices")
	return sampleSlices(ctx, eng, sink, span, step)
}

func schedBatch(res *engine.QueryResult, window libtv.TimeSpan, step libtv.TimeNanos) Batch {
	byCPU := make(map[uint32][]Bucket, res.NumRows())
	for i := range res.NumRows() {
		cpu, ok := res.Long("cpu", i)
		if !ok {
			continue
		}
		busy, ok := res.Double("busy", i)
		if !ok {
			continue
		}
		byCPU[uint32(cpu)] = append(byCPU[uint32(cpu)], Bucket{
			Span: window,
			Load: busy / float64(step),
		})
	}
	return Batch{ByCPU: byCPU}
}

func sampleSlices(ctx context.Context, eng engine.Engine, sink Sink,
	span libtv.TimeSpan, step libtv.TimeNanos) error {
	res, err := eng.Query(ctx, SliceLoadQuery(span, step))
	if err != nil {
		return err
	}
	byProcess := make(map[libtv.UPID][]Bucket)
	for i := range res.NumRows() {
		bucket, ok := res.Long("bucket", i)
		if !ok || bucket < 0 || bucket >= NumBuckets {
			continue
		}
		upid, ok := res.Long("upid", i)
		if !ok {
			continue
		}
		busy, ok := res.Double("busy", i)
		if !ok {
			continue
		}
		u := libtv.UPID(upid)
		byProcess[u] = append(byProcess[u], Bucket{
			Span: bucketWindow(span, int(bucket), step),
			Load: busy / float64(step),
		})
	}
	if len(byProcess) > 0 {
		buckets := 0
		for _, b := range byProcess {
			buckets += len(b)
		}
		metrics.Add(metrics.IDOverviewBuckets, metrics.MetricValue(buckets))
		sink.PublishOverview(Batch{ByProcess: byProcess})
	}
	return nil
}
