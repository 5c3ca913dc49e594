// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package times // import "github.com/Falcon-OS/platform-external-perfetto/times"

import (
	"time"
)

const (
	// EngineConnectionTimeout defines the timeout for establishing a
	// connection to an engine sidecar.
	EngineConnectionTimeout = 3 * time.Second
	// EngineOperationTimeout defines the timeout for a single engine RPC.
	// Queries against large traces routinely take tens of seconds.
	EngineOperationTimeout = 60 * time.Second
	// MetricsInterval defines the interval at which buffered metrics are
	// flushed to the reporting backend.
	MetricsInterval = 1 * time.Second
)

// Compile time check for interface adherence
var _ IntervalsAndTimers = (*Times)(nil)

// Times holds all the intervals and timeouts that are used across the
// session core in a central place and comes with Getters to read them.
type Times struct {
	tickInterval            time.Duration
	statusInterval          time.Duration
	engineConnectionTimeout time.Duration
	engineOperationTimeout  time.Duration
	metricsInterval         time.Duration
}

// IntervalsAndTimers is a meta-interface that exists purely to document its
// functionality.
type IntervalsAndTimers interface {
	// TickInterval defines the interval at which the external scheduler
	// invokes the session decision function.
	TickInterval() time.Duration
	// StatusInterval defines the minimum gap between two status updates
	// published to the frontend. Terminal messages bypass it.
	StatusInterval() time.Duration
	// EngineConnectionTimeout defines the timeout for establishing a
	// connection to an engine sidecar.
	EngineConnectionTimeout() time.Duration
	// EngineOperationTimeout defines the timeout for a single engine RPC.
	EngineOperationTimeout() time.Duration
	// MetricsInterval defines the interval at which buffered metrics are
	// flushed to the reporting backend.
	MetricsInterval() time.Duration
}

func (t *Times) TickInterval() time.Duration { return t.tickInterval }

func (t *Times) StatusInterval() time.Duration { return t.statusInterval }

func (t *Times) EngineConnectionTimeout() time.Duration { return t.engineConnectionTimeout }

func (t *Times) EngineOperationTimeout() time.Duration { return t.engineOperationTimeout }

func (t *Times) MetricsInterval() time.Duration { return t.metricsInterval }

// New returns a new Times instance.
func New(tickInterval, statusInterval time.Duration) *Times {
	return &Times{
		tickInterval:            tickInterval,
		statusInterval:          statusInterval,
		engineConnectionTimeout: EngineConnectionTimeout,
		engineOperationTimeout:  EngineOperationTimeout,
		metricsInterval:         MetricsInterval,
	}
}
