// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/overview"
	"github.com/Falcon-OS/platform-external-perfetto/threads"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

func TestLogSinkAccumulates(t *testing.T) {
	sink := NewLogSink()

	sink.SetStatus("Loading trace 10%")
	sink.SetStatus("Loading trace 90%")
	sink.SetTraceTime(libtv.TimeSpan{Start: 100, End: 900})
	sink.AddTrackGroups([]tracks.Group{{ID: 7, Name: "app [42]"}})
	sink.AddTracks([]tracks.Descriptor{
		tracks.NewDescriptor("Cpu 0", libtv.ScrollingGroupID, tracks.CPUSlicesConfig{CPU: 0}),
	})
	sink.AddTracks([]tracks.Descriptor{
		tracks.NewDescriptor("Cpu 1", libtv.ScrollingGroupID, tracks.CPUSlicesConfig{CPU: 1}),
	})
	sink.PublishThreads([]threads.ThreadDesc{{UTID: 1, TID: 42, ThreadName: "main"}})
	sink.PublishOverview(overview.Batch{ByCPU: map[uint32][]overview.Bucket{0: {{Load: 0.5}}}})
	sink.SetEngineReady("session-1", true)

	model := sink.Model()
	assert.Equal(t, "Loading trace 90%", model.Status)
	assert.Equal(t, libtv.TimeSpan{Start: 100, End: 900}, model.TraceTime)
	assert.Equal(t, libtv.SessionID("session-1"), model.Session)
	assert.True(t, model.Ready)
	require.Len(t, model.Groups, 1)
	require.Len(t, model.Tracks, 2)
	assert.Equal(t, "Cpu 0", model.Tracks[0].Name)
	assert.Equal(t, "Cpu 1", model.Tracks[1].Name)
	require.Len(t, model.Threads, 1)
	require.Len(t, model.Overview, 1)
}

func TestLogSinkThreadsSnapshotReplaced(t *testing.T) {
	sink := NewLogSink()
	sink.PublishThreads([]threads.ThreadDesc{{UTID: 1}, {UTID: 2}})
	sink.PublishThreads([]threads.ThreadDesc{{UTID: 3}})

	model := sink.Model()
	require.Len(t, model.Threads, 1)
	assert.Equal(t, libtv.UTID(3), model.Threads[0].UTID)
}

func TestLogSinkModelIsolation(t *testing.T) {
	sink := NewLogSink()
	sink.AddTracks([]tracks.Descriptor{
		tracks.NewDescriptor("Cpu 0", libtv.ScrollingGroupID, tracks.CPUSlicesConfig{CPU: 0}),
	})

	model := sink.Model()
	model.Tracks[0].Name = "mutated"
	model.Status = "mutated"

	fresh := sink.Model()
	assert.Equal(t, "Cpu 0", fresh.Tracks[0].Name)
	assert.Empty(t, fresh.Status)
}

func TestLogSinkReset(t *testing.T) {
	sink := NewLogSink()
	sink.SetStatus("busy")
	sink.AddTrackGroups([]tracks.Group{{ID: 1}})

	sink.Reset()

	model := sink.Model()
	assert.Empty(t, model.Status)
	assert.Empty(t, model.Groups)
	assert.False(t, model.Ready)
}
