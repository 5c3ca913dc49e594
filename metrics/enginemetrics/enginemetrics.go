// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package enginemetrics implements the fetching and reporting of query
// engine specific metrics.
package enginemetrics // import "github.com/Falcon-OS/platform-external-perfetto/metrics/enginemetrics"

import (
	"context"
	"time"

	"github.com/Falcon-OS/platform-external-perfetto/metrics"
	"github.com/Falcon-OS/platform-external-perfetto/periodiccaller"
)

// StatsProvider delivers cumulative query cache statistics.
// engine.CachedEngine implements it.
type StatsProvider interface {
	CacheStats() (hits, misses uint64)
}

// state holds the previously fetched cumulative values so report can
// turn them into per-interval deltas.
type state struct {
	prevHits   uint64
	prevMisses uint64
}

// consume updates the stored cumulative values and returns the deltas
// since the previous call.
func (s *state) consume(hits, misses uint64) (issued, deltaHits, deltaMisses uint64) {
	deltaHits = hits - s.prevHits
	deltaMisses = misses - s.prevMisses
	s.prevHits = hits
	s.prevMisses = misses
	return deltaHits + deltaMisses, deltaHits, deltaMisses
}

// report fetches the engine statistics and forwards them to the metrics
// package for processing.
func (s *state) report(provider StatsProvider) {
	issued, deltaHits, deltaMisses := s.consume(provider.CacheStats())
	metrics.AddSlice([]metrics.Metric{
		{
			ID:    metrics.IDQueriesIssued,
			Value: metrics.MetricValue(issued),
		},
		{
			ID:    metrics.IDQueryCacheHits,
			Value: metrics.MetricValue(deltaHits),
		},
		{
			ID:    metrics.IDQueryCacheMisses,
			Value: metrics.MetricValue(deltaMisses),
		},
	})
}

// Start starts the engine specific metric retrieval and reporting.
func Start(mainCtx context.Context, provider StatsProvider, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(mainCtx)
	s := &state{}
	stopReporting := periodiccaller.Start(ctx, interval, func() {
		s.report(provider)
	})

	return func() {
		cancel()
		stopReporting()
	}
}
