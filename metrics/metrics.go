// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package metrics // import "github.com/Falcon-OS/platform-external-perfetto/metrics"

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/periodiccaller"
	"github.com/Falcon-OS/platform-external-perfetto/times"
	"github.com/Falcon-OS/platform-external-perfetto/vc"
)

var (
	// prevTimestamp holds the timestamp of the buffered metrics
	prevTimestamp libtv.UnixTime32

	// metricsBuffer buffers the metrics for the timestamp assigned to
	// prevTimestamp
	metricsBuffer = make([]Metric, IDMax)

	// metricIDSet is a bitvector used for fast membership operations, to
	// avoid reporting the same metric ID multiple times in the same batch
	metricIDSet = make([]uint64, 1+(IDMax/64))

	// nMetrics is the number of the current entries in metricsBuffer
	nMetrics int

	// mutex serializes the concurrent calls to AddSlice()
	mutex sync.RWMutex

	//go:embed metrics.json
	metricsJSON []byte

	// Used in fallback checks, e.g. to avoid sending "counters" with 0 values
	metricTypes map[MetricID]MetricType

	// OTel metric instrumentation
	meter = otel.Meter("github.com/Falcon-OS/platform-external-perfetto",
		metric.WithInstrumentationVersion(vc.Version()))
	counters = map[MetricID]metric.Int64Counter{}
	gauges   = map[MetricID]metric.Int64Gauge{}

	reporterImpl Reporter
)

// SetReporter installs an additional consumer for flushed batches.
func SetReporter(r Reporter) {
	reporterImpl = r
}

func init() {
	defs, err := GetDefinitions()
	if err != nil {
		panic(err)
	}
	metricTypes = make(map[MetricID]MetricType, len(defs))
	for _, md := range defs {
		if md.Obsolete {
			continue
		}
		metricTypes[md.ID] = md.Type
		switch typ := md.Type; typ {
		case MetricTypeCounter:
			counter, err := meter.Int64Counter(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Counter: %v", err)
				continue
			}
			counters[md.ID] = counter
		case MetricTypeGauge:
			gauge, err := meter.Int64Gauge(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Gauge: %v", err)
				continue
			}
			gauges[md.ID] = gauge
		default:
			panic(fmt.Sprintf("Unknown metric type: %v", typ))
		}
	}
}

// report converts and reports collected metrics via OTel metrics.
// Allow for report to be overridden in the test.
var report = func() {
	ctx := context.Background()
	if reporterImpl != nil {
		ids := make([]uint32, nMetrics)
		values := make([]int64, nMetrics)

		for i := 0; i < nMetrics; i++ {
			ids[i] = uint32(metricsBuffer[i].ID)
			values[i] = int64(metricsBuffer[i].Value)
		}
		reporterImpl.ReportMetrics(uint32(prevTimestamp), ids, values)
	}
	for i := range nMetrics {
		m := metricsBuffer[i]
		switch typ := metricTypes[m.ID]; typ {
		case MetricTypeCounter:
			if counter, ok := counters[m.ID]; ok {
				counter.Add(ctx, int64(m.Value))
			}
		case MetricTypeGauge:
			if gauge, ok := gauges[m.ID]; ok {
				gauge.Record(ctx, int64(m.Value))
			}
		}
	}
	nMetrics = 0
	for idx := range metricIDSet {
		metricIDSet[idx] = 0
	}
}

// AddSlice takes a slice of metrics from a metric provider.
// The function buffers the metrics and returns immediately.
//
// Here we collect all metrics until the timestamp changes.
// We then call report() to report all metrics from the previous timestamp.
//
//	|----------------- 1s period -------------|
//	|--+--------------------------+-----------|--+--......
//	|                          |              |
//	report(),AddSlice(ID1)     |              |
//	                           AddSlice(ID2)  |
//	                                          |
//	                                          report(),AddSlice(ID1)
//
// This ensures that the buffered metrics from the previous timestamp are
// sent with the correctly assigned timestamp.
func AddSlice(newMetrics []Metric) {
	now := libtv.UnixTime32(libtv.NowAsUInt32())

	mutex.Lock()
	defer mutex.Unlock()

	if prevTimestamp != now && nMetrics > 0 {
		report()
	}
	prevTimestamp = now

	if newMetrics == nil {
		return
	}

	for _, m := range newMetrics {
		if m.ID <= IDInvalid || m.ID >= IDMax {
			log.Errorf("Metric value %d out of range [%d,%d] - needs investigation",
				m.ID, IDInvalid+1, IDMax-1)
			continue
		}

		if _, ok := metricTypes[m.ID]; !ok {
			log.Warnf("Invalid metric id %d, skipping", m.ID)
			continue
		}

		if m.Value == 0 && metricTypes[m.ID] == MetricTypeCounter {
			continue
		}

		idx := m.ID / 64
		mask := uint64(1) << (m.ID % 64)
		if metricIDSet[idx]&mask > 0 {
			// The runtime self-metrics are collected on a fixed cadence
			// and may legitimately land twice in one batch.
			if m.ID < IDSessionGoRoutines {
				log.Warnf("Metric ID %d:%v reported multiple times", m.ID, m.Value)
			}
			continue
		}

		if nMetrics >= len(metricsBuffer) {
			// Should not happen
			log.Errorf("AddSlice capped reporting to %d metrics - needs investigation",
				len(metricsBuffer))
			continue
		}

		metricIDSet[idx] |= mask
		metricsBuffer[nMetrics].ID = m.ID
		metricsBuffer[nMetrics].Value = m.Value
		nMetrics++
	}
}

// Add takes a single metric (id and value) from a metric provider.
// The function buffers the metric and returns immediately.
func Add(id MetricID, value MetricValue) {
	AddSlice([]Metric{{id, value}})
}

// AddSummary takes a Summary and buffers its entries.
func AddSummary(summary Summary) {
	batch := make([]Metric, 0, len(summary))
	for id, value := range summary {
		batch = append(batch, Metric{ID: id, Value: value})
	}
	AddSlice(batch)
}

// flushTrigger carries Flush requests to the goroutine behind Start.
var flushTrigger = make(chan bool, 1)

// Flush requests an immediate report of the buffered metrics, without
// waiting for the current one-second window to close. It only has an
// effect while Start is running. Callers about to exit use it so the
// final window is not lost.
func Flush() {
	select {
	case flushTrigger <- true:
	default:
	}
}

// Start begins the periodic flush of buffered metrics. Without it,
// buffered metrics only leave the buffer when a later AddSlice crosses a
// timestamp boundary. The returned function stops the flushing.
func Start(ctx context.Context) func() {
	return periodiccaller.StartWithManualTrigger(ctx, times.MetricsInterval,
		flushTrigger, func(manualTrigger bool) {
			if manualTrigger {
				flushNow()
				return
			}
			AddSlice(nil)
		})
}

// flushNow reports the buffered metrics right away, even when their
// window has not closed yet.
func flushNow() {
	mutex.Lock()
	defer mutex.Unlock()
	if nMetrics > 0 {
		report()
	}
}

// GetDefinitions returns the metric definitions from the embedded
// metrics.json file.
func GetDefinitions() ([]MetricDefinition, error) {
	var defs []MetricDefinition

	dec := json.NewDecoder(bytes.NewReader(metricsJSON))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("extracting definitions from metrics.json: %w", err)
	}
	return defs, nil
}
