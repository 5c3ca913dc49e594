// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package tracks // import "github.com/Falcon-OS/platform-external-perfetto/tracks"

import (
	"encoding"
	"fmt"
)

// Kind enumerates the closed set of track kinds this package synthesizes.
// The renderer-facing identifier of a kind is its String form; the numeric
// values are internal and carry no meaning across versions.
type Kind uint8

const (
	// KindCPUSlices shows the raw per-CPU schedule.
	KindCPUSlices Kind = iota
	// KindCPUFrequency shows the clock frequency of one CPU.
	KindCPUFrequency
	// KindGPUFrequency shows the clock frequency of one GPU.
	KindGPUFrequency
	// KindCounter shows one counter series.
	KindCounter
	// KindAnnotation shows user-provided annotation slices.
	KindAnnotation
	// KindThreadState shows the scheduling states of one thread.
	KindThreadState
	// KindSlices shows the nested call slices of one thread.
	KindSlices
	// KindProcessScheduling summarizes a process by its schedule activity.
	KindProcessScheduling
	// KindProcessSummary summarizes a process without schedule activity.
	KindProcessSummary
	// KindHeapProfile shows the heap allocations of one process.
	KindHeapProfile
	// KindAndroidLogs shows the platform log records of the trace.
	KindAndroidLogs

	// kindCount bounds the enum; keep it last.
	kindCount
)

var kindToString = map[Kind]string{
	KindCPUSlices:         "cpu_slices",
	KindCPUFrequency:      "cpu_frequency",
	KindGPUFrequency:      "gpu_frequency",
	KindCounter:           "counter",
	KindAnnotation:        "annotation",
	KindThreadState:       "thread_state",
	KindSlices:            "slices",
	KindProcessScheduling: "process_scheduling",
	KindProcessSummary:    "process_summary",
	KindHeapProfile:       "heap_profile",
	KindAndroidLogs:       "android_logs",
}

var stringToKind = make(map[string]Kind, len(kindToString))

func init() {
	for k, v := range kindToString {
		stringToKind[v] = k
	}
}

// KindFromString maps a kind identifier back to its Kind. ok is false for
// identifiers no kind carries.
func KindFromString(name string) (Kind, bool) {
	k, ok := stringToKind[name]
	return k, ok
}

// String implements the Stringer interface.
func (k Kind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return fmt.Sprintf("<invalid track kind %d>", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindToString[k]
	if !ok {
		return nil, fmt.Errorf("invalid track kind %d", uint8(k))
	}
	return []byte(s), nil
}

// Compile-time interface checks
var _ encoding.TextMarshaler = Kind(0)
