// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package frontend defines the boundary between the session pipeline and
// whatever renders its results. The pipeline pushes one-way actions into a
// Sink; implementations decide what to do with them.
package frontend // import "github.com/Falcon-OS/platform-external-perfetto/frontend"

import (
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/overview"
	"github.com/Falcon-OS/platform-external-perfetto/threads"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

// Sink receives fire-and-forget actions from a session. Calls carry no
// return value and the sender continues regardless of what the sink does
// with them, so implementations must not block for long. All calls for one
// session arrive from a single goroutine.
type Sink interface {
	// SetStatus replaces the human-readable progress line.
	SetStatus(status string)
	// SetTraceTime announces the trace's time bounds.
	SetTraceTime(span libtv.TimeSpan)
	// SetEngineReady flags the session's engine as accepting queries.
	SetEngineReady(id libtv.SessionID, ready bool)
	// AddTrackGroups appends newly synthesized groups.
	AddTrackGroups(groups []tracks.Group)
	// AddTracks appends newly synthesized tracks.
	AddTracks(descriptors []tracks.Descriptor)
	// PublishThreads replaces the thread registry snapshot.
	PublishThreads(descs []threads.ThreadDesc)
	// PublishOverview delivers one batch of overview buckets.
	PublishOverview(batch overview.Batch)
}

// The derivation packages each declare the subset of actions they need;
// a full Sink satisfies all of them.
var (
	_ tracks.Sink   = Sink(nil)
	_ overview.Sink = Sink(nil)
)
