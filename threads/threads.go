// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

// Package threads loads the thread registry of an ingested trace: the flat
// list of all threads with their display names resolved. The registry is
// derived once per load and published as an immutable snapshot.
package threads // import "github.com/Falcon-OS/platform-external-perfetto/threads"

import (
	"context"
	"fmt"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/libtv"
)

// RegistryQuery produces one row per thread. procName resolves to the
// process name when it is non-empty and falls back to the thread name, so
// the column is directly usable as a display name.
const RegistryQuery = `select utid, tid, pid, thread.name as threadName,
ifnull(
case when length(process.name) > 0 then process.name else null end,
thread.name) as procName,
process.cmdline as cmdline
from (select * from thread order by upid) left join process using(upid)`

// ThreadDesc describes one thread of the trace.
type ThreadDesc struct {
	UTID libtv.UTID
	// TID and PID are the OS-level identifiers. PID is 0 for threads
	// without a resolved process.
	TID int64
	PID int64
	// ThreadName may be empty for anonymous threads.
	ThreadName string
	// ProcName is the resolved display name, see RegistryQuery.
	ProcName string
	// Cmdline is the process command line, if known.
	Cmdline string
}

// Load queries the thread registry. The engine must be finalized.
func Load(ctx context.Context, eng engine.Engine) ([]ThreadDesc, error) {
	res, err := eng.Query(ctx, RegistryQuery)
	if err != nil {
		return nil, err
	}

	descs := make([]ThreadDesc, 0, res.NumRows())
	for i := range res.NumRows() {
		utid, ok := res.Long("utid", i)
		if !ok {
			return nil, fmt.Errorf("thread registry row %d carries no utid", i)
		}
		desc := ThreadDesc{UTID: libtv.UTID(utid)}
		desc.TID, _ = res.Long("tid", i)
		desc.PID, _ = res.Long("pid", i)
		desc.ThreadName, _ = res.Str("threadName", i)
		desc.ProcName, _ = res.Str("procName", i)
		desc.Cmdline, _ = res.Str("cmdline", i)
		descs = append(descs, desc)
	}
	return descs, nil
}
