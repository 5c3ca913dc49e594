// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the lifecycle of one open trace: it creates the
// engine, drives the load pipeline and reports which workers should run
// once the trace is ready. An external scheduler calls Run periodically;
// all state transitions happen inside those calls, while the pipeline
// itself runs on a single background goroutine.
package session // import "github.com/Falcon-OS/platform-external-perfetto/session"

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/frontend"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/stream"
	"github.com/Falcon-OS/platform-external-perfetto/times"
	"github.com/Falcon-OS/platform-external-perfetto/tracks"
)

// State is the lifecycle phase of a session.
type State uint8

const (
	// StateInit holds no engine and no tracks. Sessions start here and
	// return here when a load attempt fails.
	StateInit State = iota
	// StateLoading covers the whole load pipeline, from the first chunk
	// read until readiness or failure.
	StateLoading
	// StateReady means the engine accepts queries and the derived model
	// has been published.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("<invalid state %d>", uint8(s))
	}
}

// WorkerKind enumerates the families of supervised workers a ready
// session asks its scheduler to keep running.
type WorkerKind uint8

const (
	// WorkerTrack keeps the data of one track fresh.
	WorkerTrack WorkerKind = iota
	// WorkerQuery owns one registered interactive query.
	WorkerQuery
	// WorkerSearch serves the search index of the trace.
	WorkerSearch
	// WorkerLogs follows the platform log records.
	WorkerLogs
)

func (k WorkerKind) String() string {
	switch k {
	case WorkerTrack:
		return "track"
	case WorkerQuery:
		return "query"
	case WorkerSearch:
		return "search"
	case WorkerLogs:
		return "logs"
	default:
		return fmt.Sprintf("<invalid worker kind %d>", uint8(k))
	}
}

// Worker identifies one supervised worker. The scheduler diffs the set
// between ticks, starting new entries and stopping vanished ones.
type Worker struct {
	Kind WorkerKind
	Key  string
}

// Config assembles the collaborators of a session.
type Config struct {
	// Source streams the raw trace bytes. The session does not close it;
	// whoever opened the source remains its owner.
	Source stream.Source
	// EngineFactory allocates the engine when loading starts.
	EngineFactory engine.Factory
	// Sink receives all derived state.
	Sink frontend.Sink
	// Times throttles status updates. A nil value disables throttling.
	Times times.IntervalsAndTimers
	// Preloaded, when set, is adopted as the session's track model and
	// synthesis is skipped. Used when reloading a trace whose model the
	// frontend already holds.
	Preloaded *tracks.Result
	// OnLoadDone, when set, is invoked once per load attempt with its
	// outcome, after all sink updates for the attempt.
	OnLoadDone func(err error)
}

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("session closed")

// Session drives one open trace. Run and Close must be called from the
// same goroutine; the other methods are safe for concurrent use.
type Session struct {
	id  libtv.SessionID
	cfg Config

	mu        sync.Mutex
	state     State
	attempted bool
	closed    bool
	eng       engine.Engine
	model     *tracks.Result
	loadDone  bool
	loadErr   error
	queries   []string
	queried   map[string]libtv.Void
}

// New validates the configuration and creates a session in StateInit.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("session needs a trace source")
	}
	if cfg.EngineFactory == nil {
		return nil, errors.New("session needs an engine factory")
	}
	if cfg.Sink == nil {
		return nil, errors.New("session needs a sink")
	}
	return &Session{
		id:      libtv.SessionID(uuid.New().String()),
		cfg:     cfg,
		queried: make(map[string]libtv.Void),
	}, nil
}

// ID returns the unique identifier of this session.
func (s *Session) ID() libtv.SessionID {
	return s.id
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run is the scheduler-invoked decision function. In StateInit it launches
// the load pipeline exactly once and moves to StateLoading; in
// StateLoading it waits for the pipeline outcome without re-launching
// anything; in StateReady it returns the workers derived from the current
// model. The context of the launching call is retained by the pipeline, so
// callers pass their long-lived context.
func (s *Session) Run(ctx context.Context) ([]Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	switch s.state {
	case StateInit:
		if s.attempted {
			// A failed attempt stays in init until the caller opens a
			// fresh session.
			return nil, nil
		}
		return nil, s.startLoading(ctx)
	case StateLoading:
		if !s.loadDone {
			return nil, nil
		}
		if s.loadErr != nil {
			log.Debugf("Session %s reverting to init: %v", s.id, s.loadErr)
			s.state = StateInit
			return nil, nil
		}
		s.state = StateReady
		return s.workersLocked(), nil
	case StateReady:
		return s.workersLocked(), nil
	default:
		return nil, fmt.Errorf("session %s in invalid state %d", s.id, uint8(s.state))
	}
}

// startLoading allocates the engine and launches the pipeline goroutine.
// Called with s.mu held.
func (s *Session) startLoading(ctx context.Context) error {
	s.attempted = true

	eng, err := s.cfg.EngineFactory(ctx)
	if err != nil {
		err = fmt.Errorf("creating engine: %w", err)
		log.Errorf("Session %s: %v", s.id, err)
		s.cfg.Sink.SetStatus(fmt.Sprintf("Loading failed: %v", err))
		return err
	}
	s.eng = eng
	s.state = StateLoading
	s.cfg.Sink.SetEngineReady(s.id, false)
	s.cfg.Sink.SetStatus("Loading trace")
	log.Infof("Session %s loading", s.id)

	go s.runPipeline(ctx, eng)
	return nil
}

// finishLoad records the pipeline outcome for the next Run tick.
func (s *Session) finishLoad(err error) {
	s.mu.Lock()
	s.loadDone = true
	s.loadErr = err
	s.mu.Unlock()

	if s.cfg.OnLoadDone != nil {
		s.cfg.OnLoadDone(err)
	}
}

func (s *Session) setModel(model *tracks.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// RegisterQuery adds one interactive query to the supervised set. The
// corresponding worker appears once the session is ready.
func (s *Session) RegisterQuery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queried[id]; ok {
		return
	}
	s.queried[id] = libtv.Void{}
	s.queries = append(s.queries, id)
}

// UnregisterQuery removes a previously registered query.
func (s *Session) UnregisterQuery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queried[id]; !ok {
		return
	}
	delete(s.queried, id)
	for i, q := range s.queries {
		if q == id {
			s.queries = append(s.queries[:i], s.queries[i+1:]...)
			break
		}
	}
}

// workersLocked derives the supervised worker set from the current model.
// Called with s.mu held.
func (s *Session) workersLocked() []Worker {
	var numTracks int
	if s.model != nil {
		numTracks = len(s.model.Tracks)
	}
	workers := make([]Worker, 0, numTracks+len(s.queries)+2)
	if s.model != nil {
		for _, d := range s.model.Tracks {
			workers = append(workers, Worker{Kind: WorkerTrack, Key: d.ID.String()})
		}
	}
	for _, q := range s.queries {
		workers = append(workers, Worker{Kind: WorkerQuery, Key: q})
	}
	workers = append(workers,
		Worker{Kind: WorkerSearch, Key: "search"},
		Worker{Kind: WorkerLogs, Key: "logs"})
	return workers
}

// Close releases the engine. It is idempotent; only the first call closes.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.eng == nil {
		return nil
	}
	err := s.eng.Close()
	s.eng = nil
	return err
}
