// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package metrics // import "github.com/Falcon-OS/platform-external-perfetto/metrics"

import "fmt"

// Create ids.go from metrics.json
//go:generate go run genids/main.go metrics.json ids.go

// MetricID is the type for metric IDs.
type MetricID uint16

// MetricValue is the type for metric values.
type MetricValue int64

// Metric is the type for a metric id/value pair.
type Metric struct {
	ID    MetricID
	Value MetricValue
}

// Summary helps summarizing metrics of the same ID from different sources
// before processing it further.
type Summary map[MetricID]MetricValue

// MetricType classifies how values of a metric combine over time.
type MetricType uint8

const (
	// MetricTypeCounter accumulates: reported values are deltas that sum up.
	MetricTypeCounter MetricType = iota + 1
	// MetricTypeGauge is an absolute observation: the last value wins.
	MetricTypeGauge
)

func (t *MetricType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "counter":
		*t = MetricTypeCounter
	case "gauge":
		*t = MetricTypeGauge
	default:
		return fmt.Errorf("unknown metric type %q", string(text))
	}
	return nil
}

func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	default:
		return fmt.Sprintf("<invalid metric type %d>", uint8(t))
	}
}

// MetricDefinition is one entry of the embedded metrics.json registry.
type MetricDefinition struct {
	Description string     `json:"description"`
	Type        MetricType `json:"type"`
	Name        string     `json:"name"`
	FieldName   string     `json:"field"`
	Unit        string     `json:"unit,omitempty"`
	ID          MetricID   `json:"id"`
	Obsolete    bool       `json:"obsolete,omitempty"`
}

// Reporter receives every flushed metrics batch in addition to the OTel
// export. Implementations must not block.
type Reporter interface {
	ReportMetrics(timestamp uint32, ids []uint32, values []int64)
}
