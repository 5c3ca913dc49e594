// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics contains the code for gathering and reporting internal
counters and gauges of the trace controller.

Metric providers call Add() or AddSlice() with one or more (id, value)
pairs. The package buffers everything reported within the same
one-second window and flushes the batch when the window changes, both to
the optional Reporter and to the OTel instruments built from the
embedded metrics.json definitions. Start() adds a periodic flush so a
quiet session still reports its last batch.

The list of defined metrics lives in metrics.json. The ID constants in
ids.go are generated from it, see genids.
*/
package metrics // import "github.com/Falcon-OS/platform-external-perfetto/metrics"
