// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracks derives the visual track model of an ingested trace: one
// descriptor per track plus the process groups that contain them. The
// derivation queries the engine in a fixed sequence, accumulates the model
// in memory and emits it in one batch at the end, so a failed pass leaves
// no partially-visible tracks.
package tracks // import "github.com/Falcon-OS/platform-external-perfetto/tracks"

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

type synthesizer struct {
	eng engine.Engine

	groups []Group
	tracks []Descriptor

	// Buffered per-identity tracks. They are built while scanning the
	// counter and annotation tables and attached once the identity's
	// group is created by the thread scan.
	annotationsByUPID map[libtv.UPID][]Descriptor
	heapTrackByUPID   map[libtv.UPID]Descriptor
	heapUPIDs         libtv.Set[libtv.UPID]
	countersByUPID    map[libtv.UPID][]Descriptor
	countersByUTID    map[libtv.UTID][]Descriptor
	maxDepthByUTID    map[libtv.UTID]int64

	groupByUPID map[libtv.UPID]libtv.TrackGroupID
	groupByUTID map[libtv.UTID]libtv.TrackGroupID
}

// Synthesize derives all tracks and groups from a finalized engine and
// emits them to the sink as two batches, groups first. The queries run in
// a fixed sequence because later passes consume identity mappings built
// from earlier results. On error nothing is emitted; a nil sink skips
// emission altogether.
func Synthesize(ctx context.Context, eng engine.Engine, sink Sink) (*Result, error) {
	s := &synthesizer{
		eng:               eng,
		annotationsByUPID: make(map[libtv.UPID][]Descriptor),
		heapTrackByUPID:   make(map[libtv.UPID]Descriptor),
		heapUPIDs:         make(libtv.Set[libtv.UPID]),
		countersByUPID:    make(map[libtv.UPID][]Descriptor),
		countersByUTID:    make(map[libtv.UTID][]Descriptor),
		maxDepthByUTID:    make(map[libtv.UTID]int64),
		groupByUPID:       make(map[libtv.UPID]libtv.TrackGroupID),
		groupByUTID:       make(map[libtv.UTID]libtv.TrackGroupID),
	}

	cpus, err := s.eng.CPUs(ctx)
	if err != nil {
		return nil, err
	}
	s.addCPUScheduleTracks(cpus)
	if err := s.addCPUFrequencyTracks(ctx, cpus); err != nil {
		return nil, err
	}
	if err := s.collectAnnotationTracks(ctx); err != nil {
		return nil, err
	}
	if err := s.collectHeapProfiles(ctx); err != nil {
		return nil, err
	}
	if err := s.addGPUFrequencyTracks(ctx); err != nil {
		return nil, err
	}
	if err := s.collectCounterTracks(ctx); err != nil {
		return nil, err
	}
	if err := s.collectSliceDepths(ctx); err != nil {
		return nil, err
	}
	if err := s.addThreadTracks(ctx); err != nil {
		return nil, err
	}
	if err := s.addLogTrack(ctx); err != nil {
		return nil, err
	}

	res := &Result{Groups: s.groups, Tracks: s.tracks}
	log.Debugf("Synthesized %d tracks in %d groups", len(res.Tracks), len(res.Groups))
	if sink != nil {
		sink.AddTrackGroups(res.Groups)
		sink.AddTracks(res.Tracks)
	}
	return res, nil
}

func (s *synthesizer) addCPUScheduleTracks(cpus []uint32) {
	for _, cpu := range cpus {
		s.tracks = append(s.tracks, NewDescriptor(fmt.Sprintf("Cpu %d", cpu),
			libtv.ScrollingGroupID, CPUSlicesConfig{CPU: cpu}))
	}
}

// A frequency track only exists for CPUs that have at least one sample;
// an empty track is never emitted.
func (s *synthesizer) addCPUFrequencyTracks(ctx context.Context, cpus []uint32) error {
	for _, cpu := range cpus {
		res, err := s.eng.Query(ctx, CPUFrequencyCountQuery(cpu))
		if err != nil {
			return err
		}
		if cnt, ok := res.Long("cnt", 0); !ok || cnt == 0 {
			continue
		}
		s.tracks = append(s.tracks, NewDescriptor(fmt.Sprintf("Cpu %d Frequency", cpu),
			libtv.ScrollingGroupID, CPUFrequencyConfig{CPU: cpu}))
	}
	return nil
}

func (s *synthesizer) collectAnnotationTracks(ctx context.Context) error {
	res, err := s.eng.Query(ctx, AnnotationTracksQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		id, ok := res.Long("id", i)
		if !ok {
			return fmt.Errorf("annotation track row %d carries no id", i)
		}
		name, _ := res.Str("name", i)
		d := NewDescriptor(name, libtv.ScrollingGroupID, AnnotationConfig{TrackID: id})
		if upid, ok := res.Long("upid", i); ok {
			s.annotationsByUPID[libtv.UPID(upid)] =
				append(s.annotationsByUPID[libtv.UPID(upid)], d)
		} else {
			s.tracks = append(s.tracks, d)
		}
	}
	return nil
}

func (s *synthesizer) collectHeapProfiles(ctx context.Context) error {
	res, err := s.eng.Query(ctx, HeapProfiledProcessesQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		upid, ok := res.Long("upid", i)
		if !ok {
			continue
		}
		u := libtv.UPID(upid)
		s.heapUPIDs.Add(u)
		s.heapTrackByUPID[u] = NewDescriptor("Heap Profile",
			libtv.ScrollingGroupID, HeapProfileConfig{UPID: u})
	}
	return nil
}

func (s *synthesizer) addGPUFrequencyTracks(ctx context.Context) error {
	numGPUs, err := s.eng.NumGPUs(ctx)
	if err != nil {
		return err
	}
	for gpu := uint32(0); gpu < numGPUs; gpu++ {
		res, err := s.eng.Query(ctx, GPUFrequencyCountQuery(gpu))
		if err != nil {
			return err
		}
		if cnt, ok := res.Long("cnt", 0); !ok || cnt == 0 {
			continue
		}
		s.tracks = append(s.tracks, NewDescriptor(fmt.Sprintf("Gpu %d Frequency", gpu),
			libtv.ScrollingGroupID, GPUFrequencyConfig{GPU: gpu}))
	}
	return nil
}

func (s *synthesizer) collectCounterTracks(ctx context.Context) error {
	// Counters bound to no process or thread become standalone scrolling
	// tracks right away.
	for _, query := range []string{GlobalCounterTracksQuery, GPUCounterTracksQuery} {
		res, err := s.eng.Query(ctx, query)
		if err != nil {
			return err
		}
		for i := range res.NumRows() {
			id, ok := res.Long("id", i)
			if !ok {
				return fmt.Errorf("counter track row %d carries no id", i)
			}
			name, _ := res.Str("name", i)
			s.tracks = append(s.tracks, NewDescriptor(name,
				libtv.ScrollingGroupID, CounterConfig{TrackID: id}))
		}
	}

	// Process and thread scoped counters wait for their group.
	res, err := s.eng.Query(ctx, ProcessCounterTracksQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		id, ok := res.Long("id", i)
		if !ok {
			return fmt.Errorf("process counter track row %d carries no id", i)
		}
		upid, ok := res.Long("upid", i)
		if !ok {
			continue
		}
		name, _ := res.Str("name", i)
		u := libtv.UPID(upid)
		s.countersByUPID[u] = append(s.countersByUPID[u],
			NewDescriptor(name, libtv.ScrollingGroupID, CounterConfig{TrackID: id}))
	}

	res, err = s.eng.Query(ctx, ThreadCounterTracksQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		id, ok := res.Long("id", i)
		if !ok {
			return fmt.Errorf("thread counter track row %d carries no id", i)
		}
		utid, ok := res.Long("utid", i)
		if !ok {
			continue
		}
		name, _ := res.Str("name", i)
		u := libtv.UTID(utid)
		s.countersByUTID[u] = append(s.countersByUTID[u],
			NewDescriptor(name, libtv.ScrollingGroupID, CounterConfig{TrackID: id}))
	}
	return nil
}

func (s *synthesizer) collectSliceDepths(ctx context.Context) error {
	res, err := s.eng.Query(ctx, MaxSliceDepthQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		utid, ok := res.Long("utid", i)
		if !ok {
			continue
		}
		depth, ok := res.Long("maxDepth", i)
		if !ok {
			continue
		}
		s.maxDepthByUTID[libtv.UTID(utid)] = depth
	}
	return nil
}

// threadRow is one row of the thread enumeration.
type threadRow struct {
	utid        libtv.UTID
	tid         int64
	upid        *libtv.UPID
	pid         int64
	threadName  string
	processName string
	// hasSched is the thread's own schedule activity; processHasSched
	// aggregates over the whole process.
	hasSched        bool
	processHasSched bool
}

func decodeThreadRow(res *engine.QueryResult, i int) (threadRow, error) {
	utid, ok := res.Long("utid", i)
	if !ok {
		return threadRow{}, fmt.Errorf("thread row %d carries no utid", i)
	}
	row := threadRow{utid: libtv.UTID(utid)}
	row.tid, _ = res.Long("tid", i)
	if upid, ok := res.Long("upid", i); ok {
		u := libtv.UPID(upid)
		row.upid = &u
	}
	row.pid, _ = res.Long("pid", i)
	row.threadName, _ = res.Str("threadName", i)
	row.processName, _ = res.Str("processName", i)
	if hasSched, ok := res.Long("hasSched", i); ok && hasSched != 0 {
		row.hasSched = true
	}
	if totalDur, ok := res.Long("totalDur", i); ok && totalDur > 0 {
		row.processHasSched = true
	}
	if row.upid == nil {
		// Without a process, the thread's own activity decides.
		row.processHasSched = row.hasSched
	}
	return row, nil
}

// shouldDisplay decides whether a thread gets any representation. A
// thread is displayed when at least one of the following holds: it has
// call-slice data, it has bound counters (its own or its process's), it
// has schedule activity, or its process captured heap allocations. A
// thread without a process can only match through the first three.
func (s *synthesizer) shouldDisplay(row threadRow) bool {
	if _, ok := s.maxDepthByUTID[row.utid]; ok {
		return true
	}
	if len(s.countersByUTID[row.utid]) > 0 {
		return true
	}
	if row.upid != nil && len(s.countersByUPID[*row.upid]) > 0 {
		return true
	}
	if row.hasSched {
		return true
	}
	return row.upid != nil && s.heapUPIDs.Contains(*row.upid)
}

func (s *synthesizer) addThreadTracks(ctx context.Context) error {
	res, err := s.eng.Query(ctx, ThreadEnumerationQuery)
	if err != nil {
		return err
	}
	for i := range res.NumRows() {
		row, err := decodeThreadRow(res, i)
		if err != nil {
			return err
		}
		if !s.shouldDisplay(row) {
			continue
		}
		groupID := s.resolveGroup(row)

		for _, d := range s.countersByUTID[row.utid] {
			d.Group = groupID
			s.tracks = append(s.tracks, d)
		}
		if row.hasSched {
			s.tracks = append(s.tracks, NewDescriptor(threadTrackName(row), groupID,
				ThreadStateConfig{UTID: row.utid, TID: row.tid}))
		}
		if depth, ok := s.maxDepthByUTID[row.utid]; ok {
			s.tracks = append(s.tracks, NewDescriptor(threadTrackName(row), groupID,
				SlicesConfig{UTID: row.utid, MaxDepth: depth}))
		}
	}
	return nil
}

// resolveGroup returns the group for the thread's identity, creating it
// the first time any thread of that identity is displayed. Creation
// appends the group's summary track and everything buffered for the
// process: heap profile, annotations, process counters.
func (s *synthesizer) resolveGroup(row threadRow) libtv.TrackGroupID {
	if row.upid != nil {
		if gid, ok := s.groupByUPID[*row.upid]; ok {
			return gid
		}
	} else if gid, ok := s.groupByUTID[row.utid]; ok {
		return gid
	}

	heapProfiled := row.upid != nil && s.heapUPIDs.Contains(*row.upid)
	var gid libtv.TrackGroupID
	if row.upid != nil {
		gid = deriveGroupID(fmt.Sprintf("upid:%d", *row.upid))
	} else {
		gid = deriveGroupID(fmt.Sprintf("utid:%d", row.utid))
	}
	name := groupDisplayName(row, heapProfiled)

	var cfg Config
	if row.processHasSched {
		cfg = ProcessSchedulingConfig{UPID: row.upid, UTID: row.utid,
			PIDForColor: pidForColor(row)}
	} else {
		cfg = ProcessSummaryConfig{UPID: row.upid, UTID: row.utid,
			PIDForColor: pidForColor(row)}
	}
	summary := NewDescriptor(name, gid, cfg)
	s.tracks = append(s.tracks, summary)

	s.groups = append(s.groups, Group{
		ID:   gid,
		Name: name,
		// Heap-profiled processes default open.
		Collapsed:      !heapProfiled,
		SummaryTrackID: summary.ID,
	})

	if row.upid != nil {
		upid := *row.upid
		if heap, ok := s.heapTrackByUPID[upid]; ok {
			heap.Group = gid
			s.tracks = append(s.tracks, heap)
		}
		for _, d := range s.annotationsByUPID[upid] {
			d.Group = gid
			s.tracks = append(s.tracks, d)
		}
		for _, d := range s.countersByUPID[upid] {
			d.Group = gid
			s.tracks = append(s.tracks, d)
		}
		s.groupByUPID[upid] = gid
	} else {
		s.groupByUTID[row.utid] = gid
	}
	return gid
}

// groupDisplayName derives a group's label. Processes show their name,
// anonymous heap-profiled processes get the heap fallback, and groups
// keyed by thread use the thread name.
func groupDisplayName(row threadRow, heapProfiled bool) string {
	if row.upid != nil {
		if row.processName != "" {
			return fmt.Sprintf("%s [%d]", row.processName, row.pid)
		}
		if heapProfiled {
			return fmt.Sprintf("Heap Profile for %d", row.pid)
		}
		return fmt.Sprintf("%s [%d]", row.threadName, row.pid)
	}
	return fmt.Sprintf("%s [%d]", row.threadName, row.tid)
}

// threadTrackName labels a thread-scoped track.
func threadTrackName(row threadRow) string {
	return fmt.Sprintf("%s [%d]", row.threadName, row.tid)
}

// pidForColor picks the first useful identifier to seed the track color.
func pidForColor(row threadRow) int64 {
	if row.pid != 0 {
		return row.pid
	}
	if row.tid != 0 {
		return row.tid
	}
	if row.upid != nil && *row.upid != 0 {
		return int64(*row.upid)
	}
	return int64(row.utid)
}

func (s *synthesizer) addLogTrack(ctx context.Context) error {
	res, err := s.eng.Query(ctx, AndroidLogCountQuery)
	if err != nil {
		return err
	}
	if cnt, ok := res.Long("cnt", 0); ok && cnt > 0 {
		s.tracks = append(s.tracks, NewDescriptor("Android logs",
			libtv.ScrollingGroupID, AndroidLogsConfig{}))
	}
	return nil
}
