// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry exports the engine's own self-observability metrics —
// queue depths, drop counters, completed serializations — as Prometheus
// instruments. These describe the health of the engine, not the domain
// metrics it emits; the Flush Data Model's payload is out of scope for
// this package. Modeled directly on the teacher's telemetry/churn package:
// module-level prometheus vars registered in init(), Enabled-gated
// recording so the hot path costs nothing when metrics are off.
package telemetry

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	flushQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostcap_flush_queue_depth",
		Help: "Current number of items buffered in the flush queue.",
	})
	flushDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostcap_flush_drops_total",
		Help: "Total flush items dropped because the flush queue was full.",
	})
	outputQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostcap_output_queue_depth",
		Help: "Current number of items buffered across all output queue lanes.",
	})
	outputDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostcap_output_drops_total",
		Help: "Total output items dropped because their lane was full.",
	})
	serializationsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostcap_serializations_completed_total",
		Help: "Total flush items successfully serialized.",
	})
	conntableSaturatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostcap_conntable_saturated_total",
		Help: "Total connection-table add attempts rejected due to capacity.",
	})
	threadTableEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostcap_thread_table_evictions_total",
		Help: "Total connection records evicted at a flush-boundary sweep.",
	})
)

func init() {
	prometheus.MustRegister(
		flushQueueDepth,
		flushDropsTotal,
		outputQueueDepth,
		outputDropsTotal,
		serializationsCompletedTotal,
		conntableSaturatedTotal,
		threadTableEvictionsTotal,
	)
}

var enabled atomic.Bool

// Enable turns metric recording on or off. Disabled by default, mirroring
// the teacher's churn.Enable/Enabled gate; every recording function below
// is a no-op while disabled.
func Enable(on bool) { enabled.Store(on) }

// Enabled reports whether metric recording is currently active.
func Enabled() bool { return enabled.Load() }

// SetFlushQueueDepth records the flush queue's current length.
func SetFlushQueueDepth(n int) {
	if !enabled.Load() {
		return
	}
	flushQueueDepth.Set(float64(n))
}

// AddFlushDrops increments the flush-queue drop counter by n.
func AddFlushDrops(n int64) {
	if !enabled.Load() || n <= 0 {
		return
	}
	flushDropsTotal.Add(float64(n))
}

// SetOutputQueueDepth records the output queue's current total length.
func SetOutputQueueDepth(n int) {
	if !enabled.Load() {
		return
	}
	outputQueueDepth.Set(float64(n))
}

// AddOutputDrops increments the output-queue drop counter by n.
func AddOutputDrops(n int64) {
	if !enabled.Load() || n <= 0 {
		return
	}
	outputDropsTotal.Add(float64(n))
}

// IncSerializationsCompleted increments the completed-serializations
// counter by one.
func IncSerializationsCompleted() {
	if !enabled.Load() {
		return
	}
	serializationsCompletedTotal.Inc()
}

// IncConntableSaturated increments the conntable-saturation counter by
// one, called whenever Table.Add rejects an insert for lack of capacity.
func IncConntableSaturated() {
	if !enabled.Load() {
		return
	}
	conntableSaturatedTotal.Inc()
}

// AddThreadTableEvictions increments the eviction counter by n, called
// after each SweepPending.
func AddThreadTableEvictions(n int64) {
	if !enabled.Load() || n <= 0 {
		return
	}
	threadTableEvictionsTotal.Add(float64(n))
}
