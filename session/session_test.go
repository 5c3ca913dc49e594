// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/engine/enginetest"
	"github.com/Falcon-OS/platform-external-perfetto/frontend"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/overview"
	"github.com/Falcon-OS/platform-external-perfetto/stream"
	"github.com/Falcon-OS/platform-external-perfetto/threads"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

// recordingSink captures every action. Tests read its fields only after
// the pipeline signalled completion through OnLoadDone.
type recordingSink struct {
	statuses     []string
	traceTime    libtv.TimeSpan
	readyCalls   []bool
	groupBatches [][]tracks.Group
	trackBatches [][]tracks.Descriptor
	threadCalls  [][]threads.ThreadDesc
	overviews    []overview.Batch
}

var _ frontend.Sink = (*recordingSink)(nil)

func (r *recordingSink) SetStatus(status string) {
	r.statuses = append(r.statuses, status)
}

func (r *recordingSink) SetTraceTime(span libtv.TimeSpan) {
	r.traceTime = span
}

func (r *recordingSink) SetEngineReady(_ libtv.SessionID, ready bool) {
	r.readyCalls = append(r.readyCalls, ready)
}

func (r *recordingSink) AddTrackGroups(groups []tracks.Group) {
	r.groupBatches = append(r.groupBatches, groups)
}

func (r *recordingSink) AddTracks(descriptors []tracks.Descriptor) {
	r.trackBatches = append(r.trackBatches, descriptors)
}

func (r *recordingSink) PublishThreads(descs []threads.ThreadDesc) {
	r.threadCalls = append(r.threadCalls, descs)
}

func (r *recordingSink) PublishOverview(batch overview.Batch) {
	r.overviews = append(r.overviews, batch)
}

// gatedSource blocks every read until the gate closes, then streams a
// single empty EOF chunk.
type gatedSource struct {
	gate chan struct{}
}

func (g *gatedSource) ReadChunk(ctx context.Context) (stream.Chunk, error) {
	select {
	case <-g.gate:
		return stream.Chunk{EOF: true}, nil
	case <-ctx.Done():
		return stream.Chunk{}, ctx.Err()
	}
}

func (g *gatedSource) Close() error { return nil }

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("load pipeline did not finish")
		return nil
	}
}

func memorySource(t *testing.T, data []byte) stream.Source {
	t.Helper()
	src, err := stream.NewMemory("test", data)
	require.NoError(t, err)
	return src
}

func factoryFor(eng engine.Engine, calls *int) engine.Factory {
	return func(context.Context) (engine.Engine, error) {
		*calls = *calls + 1
		return eng, nil
	}
}

func TestSessionLifecycle(t *testing.T) {
	eng := enginetest.New()
	eng.Bounds = libtv.TimeSpan{Start: 100, End: 900}
	eng.CPUList = []uint32{0, 1}

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("trace payload bytes")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)
	assert.Equal(t, StateInit, sess.State())

	workers, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workers)
	assert.Equal(t, StateLoading, sess.State())

	require.NoError(t, waitDone(t, done))

	workers, err = sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, sess.State())

	// Two CPU schedule tracks plus the fixed search and logs workers.
	require.Len(t, workers, 4)
	assert.Equal(t, WorkerTrack, workers[0].Kind)
	assert.Equal(t, WorkerTrack, workers[1].Kind)
	assert.Equal(t, Worker{Kind: WorkerSearch, Key: "search"}, workers[2])
	assert.Equal(t, Worker{Kind: WorkerLogs, Key: "logs"}, workers[3])

	assert.Equal(t, 1, factoryCalls)
	assert.True(t, eng.Finalized())
	assert.Equal(t, int64(19), eng.IngestedBytes())

	assert.Equal(t, libtv.TimeSpan{Start: 100, End: 900}, sink.traceTime)
	assert.Equal(t, []bool{false, true}, sink.readyCalls)
	require.NotEmpty(t, sink.statuses)
	assert.Equal(t, "Loading trace", sink.statuses[0])
	assert.Contains(t, sink.statuses, "Loading trace 100%")
	require.Len(t, sink.trackBatches, 1)
	assert.Len(t, sink.trackBatches[0], 2)
	require.Len(t, sink.threadCalls, 1)
}

// First chunk already carries EOF and the stream length is unknown:
// progress must report absolute bytes, never a percentage.
func TestProgressUnknownLength(t *testing.T) {
	eng := enginetest.New()

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, nil),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, []string{"Loading trace", "Loading trace 0 MB"}, sink.statuses)
	assert.Zero(t, eng.IngestedChunks())
	assert.True(t, eng.Finalized())
}

func TestIngestFailureRevertsToInit(t *testing.T) {
	eng := enginetest.New()
	eng.FailIngestAt = 1

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("broken")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)

	loadErr := waitDone(t, done)
	require.Error(t, loadErr)
	var ie *engine.IngestError
	assert.ErrorAs(t, loadErr, &ie)

	workers, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workers)
	assert.Equal(t, StateInit, sess.State())

	// Readiness was never signalled and the terminal status replaced the
	// progress line.
	assert.Equal(t, []bool{false}, sink.readyCalls)
	assert.Contains(t, sink.statuses[len(sink.statuses)-1], "Loading failed")
	assert.Empty(t, sink.trackBatches)
	assert.Empty(t, sink.groupBatches)

	// A failed session never relaunches by itself.
	for range 3 {
		workers, err = sess.Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, workers)
	}
	assert.Equal(t, 1, factoryCalls)
	assert.Equal(t, StateInit, sess.State())
}

// A query failure inside synthesis must leave no tracks or groups behind
// even though ingestion already succeeded.
func TestSynthesisFailureEmitsNothing(t *testing.T) {
	eng := enginetest.New()
	eng.Bounds = libtv.TimeSpan{Start: 0, End: 1000}
	eng.CPUList = []uint32{0}
	eng.ScriptError(tracks.AnnotationTracksQuery, errors.New("no annotation table"))

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("payload")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)

	loadErr := waitDone(t, done)
	var qe *engine.QueryError
	require.ErrorAs(t, loadErr, &qe)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateInit, sess.State())

	// Time bounds were already published, but no model leaked out.
	assert.Equal(t, libtv.TimeSpan{Start: 0, End: 1000}, sink.traceTime)
	assert.Empty(t, sink.trackBatches)
	assert.Empty(t, sink.groupBatches)
	assert.Empty(t, sink.threadCalls)
	assert.Empty(t, sink.overviews)
}

func TestLoadingTicksAreNoops(t *testing.T) {
	eng := enginetest.New()
	src := &gatedSource{gate: make(chan struct{})}

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        src,
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLoading, sess.State())

	// Ticks while the pipeline is stuck must not launch anything.
	for range 5 {
		workers, err := sess.Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, workers)
		assert.Equal(t, StateLoading, sess.State())
	}
	assert.Equal(t, 1, factoryCalls)

	close(src.gate)
	require.NoError(t, waitDone(t, done))

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, sess.State())
}

func TestPreloadedModelSkipsSynthesis(t *testing.T) {
	eng := enginetest.New()
	eng.CPUList = []uint32{0, 1}

	preloaded := &tracks.Result{
		Groups: []tracks.Group{{ID: 1, Name: "app [7]"}},
		Tracks: []tracks.Descriptor{
			tracks.NewDescriptor("Cpu 0", libtv.ScrollingGroupID,
				tracks.CPUSlicesConfig{CPU: 0}),
		},
	}

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("payload")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		Preloaded:     preloaded,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, done))

	workers, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, sess.State())

	// One preloaded track, not the two the engine would synthesize.
	require.Len(t, workers, 3)
	assert.Equal(t, preloaded.Tracks[0].ID.String(), workers[0].Key)

	assert.Empty(t, sink.trackBatches)
	assert.Empty(t, sink.groupBatches)
	assert.NotContains(t, eng.Queries(), tracks.AnnotationTracksQuery)
	assert.Contains(t, eng.Queries(), threads.RegistryQuery)
}

func TestRegisteredQueryWorkers(t *testing.T) {
	eng := enginetest.New()

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("payload")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	sess.RegisterQuery("slice-histogram")
	sess.RegisterQuery("slice-histogram") // duplicate is a no-op
	sess.RegisterQuery("top-processes")

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, done))

	workers, err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 4)
	assert.Equal(t, Worker{Kind: WorkerQuery, Key: "slice-histogram"}, workers[0])
	assert.Equal(t, Worker{Kind: WorkerQuery, Key: "top-processes"}, workers[1])

	sess.UnregisterQuery("slice-histogram")
	workers, err = sess.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 3)
	assert.Equal(t, Worker{Kind: WorkerQuery, Key: "top-processes"}, workers[0])
}

type closeCountingEngine struct {
	*enginetest.Engine
	closes int
}

func (c *closeCountingEngine) Close() error {
	c.closes++
	return c.Engine.Close()
}

func TestCloseReleasesEngineOnce(t *testing.T) {
	eng := &closeCountingEngine{Engine: enginetest.New()}

	sink := &recordingSink{}
	done := make(chan error, 1)
	var factoryCalls int
	sess, err := New(Config{
		Source:        memorySource(t, []byte("payload")),
		EngineFactory: factoryFor(eng, &factoryCalls),
		Sink:          sink,
		OnLoadDone:    func(err error) { done <- err },
	})
	require.NoError(t, err)

	_, err = sess.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, done))

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, eng.closes)

	_, err = sess.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewValidation(t *testing.T) {
	eng := enginetest.New()
	src, err := stream.NewMemory("test", nil)
	require.NoError(t, err)
	factory := func(context.Context) (engine.Engine, error) { return eng, nil }
	sink := frontend.NewLogSink()

	tests := map[string]Config{
		"missing source":  {EngineFactory: factory, Sink: sink},
		"missing factory": {Source: src, Sink: sink},
		"missing sink":    {Source: src, EngineFactory: factory},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	sess, err := New(Config{Source: src, EngineFactory: factory, Sink: sink})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Contains(t, State(9).String(), "invalid")
}
