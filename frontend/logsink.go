// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package frontend // import "github.com/Falcon-OS/platform-external-perfetto/frontend"

import (
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/overview"
	"github.com/Falcon-OS/platform-external-perfetto/threads"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

// Model is the render state a LogSink accumulates: everything a frontend
// would need for a first paint of the trace.
type Model struct {
	Session   libtv.SessionID      `json:"session"`
	Status    string               `json:"status"`
	TraceTime libtv.TimeSpan       `json:"traceTime"`
	Ready     bool                 `json:"ready"`
	Groups    []tracks.Group       `json:"groups"`
	Tracks    []tracks.Descriptor  `json:"tracks"`
	Threads   []threads.ThreadDesc `json:"threads"`
	Overview  []overview.Batch     `json:"overview"`
}

// LogSink is the reference Sink: it logs every action at debug level and
// accumulates the model so it can be inspected or exported afterwards.
// Safe for concurrent use.
type LogSink struct {
	mu    sync.Mutex
	model Model
}

func NewLogSink() *LogSink {
	return &LogSink{}
}

var _ Sink = (*LogSink)(nil)

func (s *LogSink) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Status = status
	log.Debugf("Status: %s", status)
}

func (s *LogSink) SetTraceTime(span libtv.TimeSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.TraceTime = span
	log.Debugf("Trace time %v", span)
}

func (s *LogSink) SetEngineReady(id libtv.SessionID, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Session = id
	s.model.Ready = ready
	log.Debugf("Engine for session %s ready: %t", id, ready)
}

func (s *LogSink) AddTrackGroups(groups []tracks.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Groups = append(s.model.Groups, groups...)
	log.Debugf("Added %d track groups", len(groups))
}

func (s *LogSink) AddTracks(descriptors []tracks.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Tracks = append(s.model.Tracks, descriptors...)
	log.Debugf("Added %d tracks", len(descriptors))
}

func (s *LogSink) PublishThreads(descs []threads.ThreadDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Threads = slices.Clone(descs)
	log.Debugf("Published %d threads", len(descs))
}

func (s *LogSink) PublishOverview(batch overview.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Overview = append(s.model.Overview, batch)
}

// Model returns a snapshot of the accumulated state. The snapshot's
// slices are copies and stay valid while the sink keeps receiving.
func (s *LogSink) Model() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.model
	m.Groups = slices.Clone(m.Groups)
	m.Tracks = slices.Clone(m.Tracks)
	m.Threads = slices.Clone(m.Threads)
	m.Overview = slices.Clone(m.Overview)
	return m
}

// Reset drops the accumulated model, keeping the sink usable for a fresh
// session.
func (s *LogSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = Model{}
}
