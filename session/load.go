// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package session // import "github.com/Falcon-OS/platform-external-perfetto/session"

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/metrics"
	"github.com/Falcon-OS/platform-external-perfetto/overview"
	"github.com/Falcon-OS/platform-external-perfetto/stream"
	"github.com/Falcon-OS/platform-external-perfetto/threads"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

// chunkQueueDepth bounds the chunks buffered between the stream reader
// and the engine feeder.
const chunkQueueDepth = 4

// runPipeline executes one load attempt and records its outcome. Apart
// from the stream prefetch goroutine every step runs sequentially: later
// steps consume results of earlier ones and the engine never sees
// concurrent calls from the pipeline.
func (s *Session) runPipeline(ctx context.Context, eng engine.Engine) {
	err := s.loadTrace(ctx, eng)
	if err != nil {
		metrics.Add(metrics.IDPipelineFailures, 1)
		log.Errorf("Session %s: loading trace failed: %v", s.id, err)
		s.cfg.Sink.SetStatus(fmt.Sprintf("Loading failed: %v", err))
	} else {
		log.Infof("Session %s ready", s.id)
		s.cfg.Sink.SetEngineReady(s.id, true)
	}
	s.finishLoad(err)
}

func (s *Session) loadTrace(ctx context.Context, eng engine.Engine) error {
	if err := s.ingest(ctx, eng); err != nil {
		return err
	}
	if err := eng.FinalizeIngest(ctx); err != nil {
		return err
	}
	bounds, err := eng.TimeBounds(ctx)
	if err != nil {
		return err
	}
	s.cfg.Sink.SetTraceTime(bounds)

	if s.cfg.Preloaded != nil {
		// The frontend already holds this model; re-emitting it would
		// duplicate every track.
		s.setModel(s.cfg.Preloaded)
	} else {
		start := time.Now()
		model, err := tracks.Synthesize(ctx, eng, s.cfg.Sink)
		if err != nil {
			return err
		}
		s.setModel(model)
		metrics.AddSlice([]metrics.Metric{
			{ID: metrics.IDTracksSynthesized, Value: metrics.MetricValue(len(model.Tracks))},
			{ID: metrics.IDGroupsSynthesized, Value: metrics.MetricValue(len(model.Groups))},
			{ID: metrics.IDSynthesisMillis, Value: metrics.MetricValue(time.Since(start).Milliseconds())},
		})
	}

	descs, err := threads.Load(ctx, eng)
	if err != nil {
		return err
	}
	s.cfg.Sink.PublishThreads(descs)
	metrics.Add(metrics.IDThreadsListed, metrics.MetricValue(len(descs)))

	return overview.Sample(ctx, eng, s.cfg.Sink, bounds)
}

// ingest streams all chunks into the engine. A prefetch goroutine reads
// ahead of the feeder so source latency overlaps engine work; only the
// feeder talks to the engine. Empty chunks are not ingested but still
// drive progress reporting.
func (s *Session) ingest(ctx context.Context, eng engine.Engine) error {
	chunks := make(chan stream.Chunk, chunkQueueDepth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := s.cfg.Source.ReadChunk(gctx)
			if err != nil {
				return err
			}
			select {
			case chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
			if chunk.EOF {
				return nil
			}
		}
	})

	var ingested, bytesRead int64
	g.Go(func() error {
		var lastStatus time.Time
		for chunk := range chunks {
			if len(chunk.Data) > 0 {
				if err := eng.Ingest(gctx, chunk.Data); err != nil {
					return err
				}
				ingested++
			}
			bytesRead = chunk.BytesRead
			if chunk.EOF || s.statusDue(lastStatus) {
				lastStatus = time.Now()
				s.cfg.Sink.SetStatus(progressStatus(chunk))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDIngestBytes, Value: metrics.MetricValue(bytesRead)},
		{ID: metrics.IDIngestChunks, Value: metrics.MetricValue(ingested)},
	})
	return nil
}

// statusDue rate-limits progress updates. The final update of the ingest
// phase bypasses it at the call site.
func (s *Session) statusDue(last time.Time) bool {
	if s.cfg.Times == nil {
		return true
	}
	return time.Since(last) >= s.cfg.Times.StatusInterval()
}

// progressStatus renders ingest progress: a percentage when the stream
// length is known, the absolute amount read otherwise.
func progressStatus(chunk stream.Chunk) string {
	if chunk.BytesTotal > 0 {
		return fmt.Sprintf("Loading trace %d%%", chunk.BytesRead*100/chunk.BytesTotal)
	}
	return fmt.Sprintf("Loading trace %d MB", chunk.BytesRead/1_000_000)
}
