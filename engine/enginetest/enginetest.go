// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package enginetest provides a scriptable in-memory engine for tests.
// Queries are matched by exact text against scripted results; everything
// the session core does against a real engine can be replayed against it
// without a trace-processor backend.
package enginetest // import "github.com/Falcon-OS/platform-external-perfetto/engine/enginetest"

import (
	"context"
	"fmt"
	"sync"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

// Engine implements engine.Engine against scripted data. The zero value is
// not usable, construct instances with New. All methods are safe for
// concurrent use.
//
// Unscripted queries succeed with an empty result, so algorithms that probe
// many tables can run against a sparsely scripted engine. Tests that care
// about exact query traffic assert on Queries afterwards.
type Engine struct {
	mu sync.Mutex

	// Bounds, CPUList and GPUs parameterize the summary operations.
	Bounds  libtv.TimeSpan
	CPUList []uint32
	GPUs    uint32

	// FailIngestAt makes the Nth Ingest call (1-based) fail with an
	// IngestError. 0 disables the injection.
	FailIngestAt int

	// FinalizeErr is returned by FinalizeIngest when set.
	FinalizeErr error

	results map[string]*engine.QueryResult
	errors  map[string]error

	queries       []string
	ingestedBytes int64
	ingestedCalls int
	finalized     bool
	closed        bool
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		results: make(map[string]*engine.QueryResult),
		errors:  make(map[string]error),
	}
}

// ScriptResult registers the result returned for an exact query text.
func (e *Engine) ScriptResult(query string, res *engine.QueryResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[query] = res
}

// ScriptColumns registers a result built from the given columns. It panics
// on inconsistent columns, as that is a bug in the test itself.
func (e *Engine) ScriptColumns(query string, cols ...engine.Column) {
	res, err := engine.NewQueryResult(cols)
	if err != nil {
		panic(fmt.Sprintf("enginetest: bad scripted columns for %q: %v", query, err))
	}
	e.ScriptResult(query, res)
}

// ScriptError makes the given query fail with err, wrapped in a QueryError.
func (e *Engine) ScriptError(query string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors[query] = err
}

func (e *Engine) Ingest(_ context.Context, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return engine.NewIngestError(engine.ErrAlreadyFinalized)
	}
	e.ingestedCalls++
	if e.FailIngestAt != 0 && e.ingestedCalls == e.FailIngestAt {
		return engine.NewIngestError(fmt.Errorf("malformed chunk %d", e.ingestedCalls))
	}
	e.ingestedBytes += int64(len(data))
	return nil
}

func (e *Engine) FinalizeIngest(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return engine.ErrAlreadyFinalized
	}
	if e.FinalizeErr != nil {
		return e.FinalizeErr
	}
	e.finalized = true
	return nil
}

func (e *Engine) Query(_ context.Context, query string) (*engine.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.finalized {
		return nil, engine.NewQueryError(query, engine.ErrNotFinalized)
	}
	e.queries = append(e.queries, query)
	if err, exists := e.errors[query]; exists {
		return nil, engine.NewQueryError(query, err)
	}
	if res, exists := e.results[query]; exists {
		return res, nil
	}
	return engine.EmptyResult(), nil
}

func (e *Engine) TimeBounds(context.Context) (libtv.TimeSpan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Bounds, nil
}

func (e *Engine) CPUs(context.Context) ([]uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cpus := make([]uint32, len(e.CPUList))
	copy(cpus, e.CPUList)
	return cpus, nil
}

func (e *Engine) NumGPUs(context.Context) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.GPUs, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Queries returns a copy of all queries issued so far, in order.
func (e *Engine) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	queries := make([]string, len(e.queries))
	copy(queries, e.queries)
	return queries
}

// IngestedBytes returns the total payload bytes accepted by Ingest.
func (e *Engine) IngestedBytes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ingestedBytes
}

// IngestedChunks returns the number of Ingest calls, including a failed one.
func (e *Engine) IngestedChunks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ingestedCalls
}

// Finalized reports whether FinalizeIngest completed successfully.
func (e *Engine) Finalized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalized
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
