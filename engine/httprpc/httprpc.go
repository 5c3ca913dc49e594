// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package httprpc implements the engine adapter against an analysis
// sidecar that speaks JSON over HTTP.
//
// The sidecar exposes four endpoints: POST /ingest accepts one chunk of
// raw trace bytes, POST /finalize signals end-of-stream, POST /query runs
// one query and returns its columnar result, GET /status answers liveness
// probes. Failures carry a JSON body {"error": ...} with a non-2xx status.
package httprpc // import "github.com/Falcon-OS/platform-external-perfetto/engine/httprpc"

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/times"
)

const (
	statusPath   = "/status"
	ingestPath   = "/ingest"
	finalizePath = "/finalize"
	queryPath    = "/query"
)

// Canonical queries backing the summary operations.
const (
	traceBoundsQuery = `select start_ts, end_ts from trace_bounds`
	cpuListQuery     = `select distinct(cpu) from sched order by cpu`
	gpuCountQuery    = `select count(distinct(gpu_id)) as cnt from gpu_counter_track`
)

// Client talks to one sidecar instance. It implements engine.Engine; the
// session owns the handle and Closes it on teardown.
type Client struct {
	baseURL string
	client  *http.Client
	times   times.IntervalsAndTimers
}

var _ engine.Engine = (*Client)(nil)

// Connect probes the sidecar at baseURL and returns a client bound to it.
// A nil t falls back to the default engine timeouts.
func Connect(ctx context.Context, baseURL string,
	t times.IntervalsAndTimers) (*Client, error) {
	if t == nil {
		t = times.New(0, 0)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		times:   t,
	}

	ctx, cancel := context.WithTimeout(ctx, t.EngineConnectionTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+statusPath, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine at %s is not reachable: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine at %s: %w", baseURL, remoteError(resp))
	}
	return c, nil
}

// post sends one request and decodes the JSON response into out when out
// is non-nil. The body is always drained so connections get reused.
func (c *Client) post(ctx context.Context, path, contentType string,
	body io.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.times.EngineOperationTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// remoteError extracts the message from a sidecar JSON error body, falling
// back to the HTTP status line.
func remoteError(resp *http.Response) error {
	var remote struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil &&
		remote.Error != "" {
		return errors.New(remote.Error)
	}
	return errors.New(resp.Status)
}

// Ingest feeds one chunk of raw trace bytes to the sidecar.
func (c *Client) Ingest(ctx context.Context, data []byte) error {
	if err := c.post(ctx, ingestPath, "application/octet-stream",
		bytes.NewReader(data), nil); err != nil {
		return engine.NewIngestError(err)
	}
	return nil
}

// FinalizeIngest signals end-of-stream. The sidecar runs its end-of-file
// parsing on this call, so failures count as ingest failures.
func (c *Client) FinalizeIngest(ctx context.Context) error {
	if err := c.post(ctx, finalizePath, "", http.NoBody, nil); err != nil {
		return engine.NewIngestError(err)
	}
	return nil
}

type queryRequest struct {
	Query string `json:"query"`
}

type wireColumn struct {
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Longs   []int64   `json:"longs,omitempty"`
	Doubles []float64 `json:"doubles,omitempty"`
	Strs    []string  `json:"strs,omitempty"`
	Nulls   []bool    `json:"nulls,omitempty"`
}

type queryResponse struct {
	Columns []wireColumn `json:"columns"`
}

// Query runs a single query on the sidecar and decodes the columnar
// result. Transport, remote and decode failures all surface as QueryError.
func (c *Client) Query(ctx context.Context, query string) (*engine.QueryResult, error) {
	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, engine.NewQueryError(query, err)
	}
	var wire queryResponse
	if err := c.post(ctx, queryPath, "application/json",
		bytes.NewReader(body), &wire); err != nil {
		return nil, engine.NewQueryError(query, err)
	}
	res, err := decodeResult(wire)
	if err != nil {
		return nil, engine.NewQueryError(query, err)
	}
	return res, nil
}

// decodeResult converts wire columns into a validated QueryResult.
func decodeResult(wire queryResponse) (*engine.QueryResult, error) {
	cols := make([]engine.Column, 0, len(wire.Columns))
	for _, wc := range wire.Columns {
		var col engine.Column
		switch wc.Type {
		case "long":
			col = engine.LongColumn(wc.Name, wc.Longs)
		case "double":
			col = engine.DoubleColumn(wc.Name, wc.Doubles)
		case "string":
			col = engine.StrColumn(wc.Name, wc.Strs)
		default:
			return nil, fmt.Errorf("column '%s' has unknown type '%s'",
				wc.Name, wc.Type)
		}
		if wc.Nulls != nil {
			col = col.WithNulls(wc.Nulls)
		}
		cols = append(cols, col)
	}
	return engine.NewQueryResult(cols)
}

// TimeBounds returns the [start, end) span of the ingested trace.
func (c *Client) TimeBounds(ctx context.Context) (libtv.TimeSpan, error) {
	res, err := c.Query(ctx, traceBoundsQuery)
	if err != nil {
		return libtv.TimeSpan{}, err
	}
	start, okStart := res.Long("start_ts", 0)
	end, okEnd := res.Long("end_ts", 0)
	if !okStart || !okEnd {
		return libtv.TimeSpan{}, errors.New("engine returned no trace bounds")
	}
	return libtv.TimeSpan{
		Start: libtv.TimeNanos(start),
		End:   libtv.TimeNanos(end),
	}, nil
}

// CPUs returns the identifiers of all CPUs in the trace, ascending.
func (c *Client) CPUs(ctx context.Context) ([]uint32, error) {
	res, err := c.Query(ctx, cpuListQuery)
	if err != nil {
		return nil, err
	}
	cpus := make([]uint32, 0, res.NumRows())
	for i := range res.NumRows() {
		if cpu, ok := res.Long("cpu", i); ok {
			cpus = append(cpus, uint32(cpu))
		}
	}
	return cpus, nil
}

// NumGPUs returns the number of GPUs with counter tracks in the trace.
func (c *Client) NumGPUs(ctx context.Context) (uint32, error) {
	res, err := c.Query(ctx, gpuCountQuery)
	if err != nil {
		return 0, err
	}
	cnt, _ := res.Long("cnt", 0)
	return uint32(cnt), nil
}

// Close releases local resources. The sidecar lifecycle is owned by
// whoever started it.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
