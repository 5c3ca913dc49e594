// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine defines the adapter contract between a session and the
// analytic query engine that ingests raw trace bytes and answers SQL-style
// queries over the ingested data. Engine internals (parsing, storage,
// query planning) live behind this interface; the session core only relies
// on the operations below and on the error taxonomy in errors.go.
package engine // import "github.com/Falcon-OS/platform-external-perfetto/engine"

import (
	"context"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

// Engine is implemented by every query engine backend.
//
// The handle is exclusively owned by one session. Ingest and FinalizeIngest
// form the ingestion phase: Ingest may be called any number of times,
// FinalizeIngest exactly once after the last chunk. Query is legal only
// after FinalizeIngest returned successfully. Implementations are not
// required to be safe for concurrent use during ingestion; after
// finalization, Query may be called from multiple goroutines.
type Engine interface {
	// Ingest feeds one chunk of raw trace bytes into the engine. It returns
	// an *IngestError if the chunk can not be parsed.
	Ingest(ctx context.Context, data []byte) error

	// FinalizeIngest signals end-of-stream. It must be called exactly once,
	// after the last Ingest call, and before the first Query.
	FinalizeIngest(ctx context.Context) error

	// Query runs a single query and returns its columnar result. A failed
	// query returns a *QueryError and is never retried by the caller.
	Query(ctx context.Context, query string) (*QueryResult, error)

	// TimeBounds returns the [start, end) time span covered by the
	// ingested trace.
	TimeBounds(ctx context.Context) (libtv.TimeSpan, error)

	// CPUs returns the identifiers of all CPUs that appear in the trace,
	// in ascending order.
	CPUs(ctx context.Context) ([]uint32, error)

	// NumGPUs returns the number of GPUs that appear in the trace.
	NumGPUs(ctx context.Context) (uint32, error)

	// Close releases the engine. No other method may be called afterwards.
	Close() error
}

// Factory creates a fresh Engine for a new session. Sessions own the
// returned handle and Close it when they are torn down.
type Factory func(ctx context.Context) (Engine, error)
