// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package tracks // import "github.com/Falcon-OS/platform-external-perfetto/tracks"

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

// Config carries the kind-specific parameters of a track. The
// implementations below are the closed set of variants; the unexported
// identity method seals the interface. A descriptor's Kind is derived from
// its config, so kind and parameters can not disagree.
type Config interface {
	// Kind returns the track kind this config parameterizes.
	Kind() Kind

	// identity returns the stable identity key of the track. Descriptor
	// IDs are hashes of this key, which makes synthesis deterministic:
	// the same engine state always yields the same IDs.
	identity() string
}

// CPUSlicesConfig parameterizes the raw schedule track of one CPU.
type CPUSlicesConfig struct {
	CPU uint32 `json:"cpu"`
}

func (CPUSlicesConfig) Kind() Kind { return KindCPUSlices }
func (c CPUSlicesConfig) identity() string {
	return fmt.Sprintf("cpu_slices/cpu:%d", c.CPU)
}

// CPUFrequencyConfig parameterizes the frequency track of one CPU.
type CPUFrequencyConfig struct {
	CPU uint32 `json:"cpu"`
}

func (CPUFrequencyConfig) Kind() Kind { return KindCPUFrequency }
func (c CPUFrequencyConfig) identity() string {
	return fmt.Sprintf("cpu_frequency/cpu:%d", c.CPU)
}

// GPUFrequencyConfig parameterizes the frequency track of one GPU.
type GPUFrequencyConfig struct {
	GPU uint32 `json:"gpu"`
}

func (GPUFrequencyConfig) Kind() Kind { return KindGPUFrequency }
func (c GPUFrequencyConfig) identity() string {
	return fmt.Sprintf("gpu_frequency/gpu:%d", c.GPU)
}

// CounterConfig parameterizes a counter track. TrackID is the engine-side
// counter track id, which is unique across global, GPU, process and thread
// scoped counters.
type CounterConfig struct {
	TrackID int64 `json:"trackId"`
}

func (CounterConfig) Kind() Kind { return KindCounter }
func (c CounterConfig) identity() string {
	return fmt.Sprintf("counter/track:%d", c.TrackID)
}

// AnnotationConfig parameterizes an annotation track. TrackID is the
// engine-side annotation track id.
type AnnotationConfig struct {
	TrackID int64 `json:"trackId"`
}

func (AnnotationConfig) Kind() Kind { return KindAnnotation }
func (c AnnotationConfig) identity() string {
	return fmt.Sprintf("annotation/track:%d", c.TrackID)
}

// ThreadStateConfig parameterizes the scheduling-state track of a thread.
type ThreadStateConfig struct {
	UTID libtv.UTID `json:"utid"`
	TID  int64      `json:"tid"`
}

func (ThreadStateConfig) Kind() Kind { return KindThreadState }
func (c ThreadStateConfig) identity() string {
	return fmt.Sprintf("thread_state/utid:%d", c.UTID)
}

// SlicesConfig parameterizes the call-slice track of a thread. MaxDepth is
// the maximum nesting depth of the thread's slices and hints the track's
// vertical extent.
type SlicesConfig struct {
	UTID     libtv.UTID `json:"utid"`
	MaxDepth int64      `json:"maxDepth"`
}

func (SlicesConfig) Kind() Kind { return KindSlices }
func (c SlicesConfig) identity() string {
	return fmt.Sprintf("slices/utid:%d", c.UTID)
}

// ProcessSchedulingConfig parameterizes the summary track of a process
// with schedule activity. UPID is nil when the group is keyed by thread.
// PIDForColor seeds the track's color derivation.
type ProcessSchedulingConfig struct {
	UPID        *libtv.UPID `json:"upid"`
	UTID        libtv.UTID  `json:"utid"`
	PIDForColor int64       `json:"pidForColor"`
}

func (ProcessSchedulingConfig) Kind() Kind { return KindProcessScheduling }
func (c ProcessSchedulingConfig) identity() string {
	if c.UPID != nil {
		return fmt.Sprintf("process_scheduling/upid:%d", *c.UPID)
	}
	return fmt.Sprintf("process_scheduling/utid:%d", c.UTID)
}

// ProcessSummaryConfig parameterizes the summary track of a process
// without schedule activity. Fields as in ProcessSchedulingConfig.
type ProcessSummaryConfig struct {
	UPID        *libtv.UPID `json:"upid"`
	UTID        libtv.UTID  `json:"utid"`
	PIDForColor int64       `json:"pidForColor"`
}

func (ProcessSummaryConfig) Kind() Kind { return KindProcessSummary }
func (c ProcessSummaryConfig) identity() string {
	if c.UPID != nil {
		return fmt.Sprintf("process_summary/upid:%d", *c.UPID)
	}
	return fmt.Sprintf("process_summary/utid:%d", c.UTID)
}

// HeapProfileConfig parameterizes the heap allocation track of a process.
type HeapProfileConfig struct {
	UPID libtv.UPID `json:"upid"`
}

func (HeapProfileConfig) Kind() Kind { return KindHeapProfile }
func (c HeapProfileConfig) identity() string {
	return fmt.Sprintf("heap_profile/upid:%d", c.UPID)
}

// AndroidLogsConfig parameterizes the platform log track. The trace has at
// most one.
type AndroidLogsConfig struct{}

func (AndroidLogsConfig) Kind() Kind { return KindAndroidLogs }
func (AndroidLogsConfig) identity() string {
	return "android_logs"
}

// Descriptor describes one track to create. Descriptors are plain values;
// the data behind a track is queried by its renderer later, through the
// parameters in Config.
type Descriptor struct {
	ID   libtv.TrackID `json:"id"`
	Kind Kind          `json:"kind"`
	Name string        `json:"name"`
	// Group places the track, ScrollingGroupID meaning the top-level
	// scrolling area.
	Group  libtv.TrackGroupID `json:"trackGroup"`
	Config Config             `json:"config"`
}

// NewDescriptor builds a descriptor from a config, deriving Kind and the
// deterministic ID from it.
func NewDescriptor(name string, group libtv.TrackGroupID, cfg Config) Descriptor {
	return Descriptor{
		ID:     libtv.TrackID(xxh3.HashString(cfg.identity())),
		Kind:   cfg.Kind(),
		Name:   name,
		Group:  group,
		Config: cfg,
	}
}

// Group describes one collapsible cluster of tracks, usually a process.
type Group struct {
	ID        libtv.TrackGroupID `json:"id"`
	Name      string             `json:"name"`
	Collapsed bool               `json:"collapsed"`
	// SummaryTrackID names the track rendered as the group's header while
	// it is collapsed. The track itself is part of the tracks batch.
	SummaryTrackID libtv.TrackID `json:"summaryTrackId"`
}

// deriveGroupID hashes a group's stable identity key.
func deriveGroupID(identity string) libtv.TrackGroupID {
	return libtv.TrackGroupID(xxh3.HashString("group/" + identity))
}

// Result is the complete outcome of one synthesis pass.
type Result struct {
	Groups []Group      `json:"groups"`
	Tracks []Descriptor `json:"tracks"`
}

// Sink receives the batched output of a synthesis pass: all groups in one
// call, then all tracks in one call. Both are fire-and-forget.
type Sink interface {
	AddTrackGroups(groups []Group)
	AddTracks(tracks []Descriptor)
}
