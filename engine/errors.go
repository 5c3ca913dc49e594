// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package engine // import "github.com/Falcon-OS/platform-external-perfetto/engine"

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFinalized is returned when Query is called before FinalizeIngest.
	ErrNotFinalized = errors.New("ingestion not finalized")

	// ErrAlreadyFinalized is returned when Ingest or FinalizeIngest is called
	// after ingestion has already been finalized.
	ErrAlreadyFinalized = errors.New("ingestion already finalized")
)

// IngestError reports a trace chunk the engine could not parse. It aborts
// the load pipeline; there is no recovery short of re-opening the session.
type IngestError struct {
	Err error
}

func NewIngestError(err error) *IngestError {
	return &IngestError{Err: err}
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed: %v", e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// QueryError reports a query the engine rejected. The failed query is never
// retried; the error carries the query text for diagnostics.
type QueryError struct {
	Query string
	Err   error
}

func NewQueryError(query string, err error) *QueryError {
	return &QueryError{Query: query, Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (query: %s)", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
