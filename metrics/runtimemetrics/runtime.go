// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package runtimemetrics implements the collection and reporting of
// process self metrics for the controller.
package runtimemetrics // import "github.com/Falcon-OS/platform-external-perfetto/metrics/runtimemetrics"

import (
	"context"
	"runtime"
	"time"

	"github.com/Falcon-OS/platform-external-perfetto/metrics"
	"github.com/Falcon-OS/platform-external-perfetto/periodiccaller"
)

// Start starts the periodic collection of process self metrics.
//
// The returned function can be used to stop the collection.
func Start(ctx context.Context, interval time.Duration) func() {
	return periodiccaller.Start(ctx, interval, report)
}

// collect gathers the current process self metrics.
func collect() []metrics.Metric {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return []metrics.Metric{
		{
			ID:    metrics.IDSessionGoRoutines,
			Value: metrics.MetricValue(runtime.NumGoroutine()),
		},
		{
			ID:    metrics.IDSessionHeapAlloc,
			Value: metrics.MetricValue(ms.HeapAlloc),
		},
	}
}

// report buffers the current process self metrics for reporting.
func report() {
	metrics.AddSlice(collect())
}
