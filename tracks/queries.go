// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package tracks // import "github.com/Falcon-OS/platform-external-perfetto/tracks"

import "fmt"

// The queries behind synthesis. They are exported so tests and tooling can
// script an engine by exact text.
const (
	// AnnotationTracksQuery lists user-provided annotation tracks. upid is
	// null for annotations not bound to a process.
	AnnotationTracksQuery = `select id, name, upid from annotation_slice_track order by id`

	// HeapProfiledProcessesQuery lists the processes with captured heap
	// allocation data.
	HeapProfiledProcessesQuery = `select distinct(upid) as upid from heap_profile_allocation order by upid`

	// GlobalCounterTracksQuery lists counter tracks bound to no CPU, GPU,
	// process or thread.
	GlobalCounterTracksQuery = `select id, name from counter_track where type = 'counter_track' order by id`

	// GPUCounterTracksQuery lists GPU-scoped counter tracks. gpufreq is
	// carried by the dedicated frequency tracks and excluded here.
	GPUCounterTracksQuery = `select id, name from gpu_counter_track where name != 'gpufreq' order by id`

	// ProcessCounterTracksQuery lists process-scoped counter tracks.
	ProcessCounterTracksQuery = `select id, name, upid from process_counter_track order by id`

	// ThreadCounterTracksQuery lists thread-scoped counter tracks.
	ThreadCounterTracksQuery = `select id, name, utid from thread_counter_track order by id`

	// MaxSliceDepthQuery computes, per thread, the maximum nesting depth
	// of its call slices, in one pass over the slice table.
	MaxSliceDepthQuery = `select utid, max(depth) as maxDepth from slice
join thread_track on slice.track_id = thread_track.id
group by utid`

	// ThreadEnumerationQuery lists all threads except the swapper, ordered
	// by the total scheduled duration of their process (descending), then
	// process id, then thread id. This order fixes the default
	// top-to-bottom track order: busiest processes first.
	ThreadEnumerationQuery = `select
utid,
tid,
upid,
pid,
thread.name as threadName,
process.name as processName,
total_dur as totalDur,
ifnull(has_sched, false) as hasSched
from
thread
left join (select utid, count(1), true as has_sched
    from sched group by utid
  ) using(utid)
left join process using(upid)
left join (select upid, sum(dur) as total_dur
    from sched join thread using(utid)
    group by upid
  ) using(upid)
where utid != 0
order by total_dur desc, upid, utid`

	// AndroidLogCountQuery counts platform log records.
	AndroidLogCountQuery = `select count(1) as cnt from android_logs`
)

// CPUFrequencyCountQuery counts frequency samples for one CPU.
func CPUFrequencyCountQuery(cpu uint32) string {
	return fmt.Sprintf(
		`select count(1) as cnt from cpu_counter_track where name = 'cpufreq' and cpu = %d`,
		cpu)
}

// GPUFrequencyCountQuery counts frequency samples for one GPU.
func GPUFrequencyCountQuery(gpu uint32) string {
	return fmt.Sprintf(
		`select count(1) as cnt from gpu_counter_track where name = 'gpufreq' and gpu_id = %d`,
		gpu)
}
