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

package serializer

import (
	"sync/atomic"
	"time"

	"hostcap/internal/flush"
	"hostcap/internal/logging"
	"hostcap/internal/ports"
	"hostcap/internal/queue"
	"hostcap/internal/telemetry"
)

// DefaultReadTimeout matches spec.md §4.5's
// DEFAULT_MQUEUE_READ_TIMEOUT_MS: how long the worker blocks on the flush
// queue before looping to re-check the stop flag and re-send its
// heartbeat.
const DefaultReadTimeout = 100 * time.Millisecond

// FileDumper optionally persists a sample to disk, gated by
// emit_metrics_to_file (spec.md §4.5 step 4's "optionally persist the
// sample to disk"). hostcap/internal/sinks.FileSink satisfies this.
type FileDumper interface {
	Write(data *flush.Data)
}

// Worker is the single-consumer Serializer Worker of spec.md §4.5:
// dequeues flush-data items, publishes them to the last-sample slot,
// serializes them, and forwards the result to the output queue. Modeled
// on the teacher's tfd.SService run loop (ticker-free here since the
// cadence is driven by blocking queue reads rather than a timer) and on
// core.Worker's Start/Stop/WaitGroup shape.
type Worker struct {
	in       *queue.Queue[*flush.Data]
	out      *queue.PriorityQueue[[]byte]
	handler  SampleHandler
	last     *LastSample
	dumper   FileDumper
	observer ports.SampleHandler
	heartbeat   func()
	readTimeout time.Duration
	log         logging.SLogger

	completed atomic.Int64

	stopChan chan struct{}
	doneChan chan struct{}
	started  atomic.Bool
	stopped  atomic.Bool
}

// Options configures a Worker. All fields are optional; zero values fall
// back to sensible defaults.
type Options struct {
	ReadTimeout time.Duration
	Heartbeat   func()
	Dumper      FileDumper
	// Observer, if set, is notified with each serialized sample
	// (spec.md §1's "uncompressed-sample handler" side channel for
	// in-process inspection tools, distinct from the durable output
	// queue delivery path).
	Observer ports.SampleHandler
	Log      logging.SLogger
}

// New builds a Worker draining in and forwarding serialized buffers to
// out, using handler to serialize and last as the published last-sample
// slot.
func New(in *queue.Queue[*flush.Data], out *queue.PriorityQueue[[]byte], handler SampleHandler, last *LastSample, opts Options) *Worker {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Heartbeat == nil {
		opts.Heartbeat = func() {}
	}
	if opts.Log == nil {
		opts.Log = logging.Default()
	}
	return &Worker{
		in:          in,
		out:         out,
		handler:     handler,
		last:        last,
		dumper:      opts.Dumper,
		observer:    opts.Observer,
		heartbeat:   opts.Heartbeat,
		readTimeout: opts.ReadTimeout,
		log:         opts.Log,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start launches the worker's background goroutine. Calling Start more
// than once is a no-op.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
}

// Stop sets the stop flag and clears the input queue (spec.md §4.5's
// shutdown contract), then waits for the worker to exit. An in-flight
// do_serialization completes before the worker observes stop.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	close(w.stopChan)
	for {
		if _, ok := w.in.TryGet(); !ok {
			break
		}
	}
	if w.started.Load() {
		<-w.doneChan
	}
	w.last.Clear()
}

// Drain polls with 1ms sleeps until the input queue is empty, matching
// spec.md §5's "drain() polls with 1 ms sleeps up to the worker draining
// the queue". Intended for tests and admin tooling, not the hot path.
func (w *Worker) Drain() {
	for w.in.Len() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// NumSerializationsCompleted is the admin-surface accessor of spec.md §6
// ("num_serializations_completed").
func (w *Worker) NumSerializationsCompleted() int64 {
	return w.completed.Load()
}

func (w *Worker) run() {
	defer close(w.doneChan)
	for {
		w.heartbeat()

		data, ok := w.in.Get(w.readTimeout)
		telemetry.SetFlushQueueDepth(w.in.Len())
		if !ok {
			select {
			case <-w.stopChan:
				return
			default:
				continue
			}
		}

		select {
		case <-w.stopChan:
			return
		default:
		}

		w.doSerialization(data)
	}
}

func (w *Worker) doSerialization(data *flush.Data) {
	w.last.Store(data)
	data.MarkSent()

	if w.dumper != nil {
		w.dumper.Write(data)
	}

	buf, err := w.handler.Serialize(data.TsNs, data)
	if err != nil {
		w.log.Error("serialization failed, dropping flush item", "err", err, "ts_ns", data.TsNs)
		return
	}
	if w.observer != nil {
		w.observer.OnSample(data.TsNs, buf)
	}

	if !w.out.TryPut(queue.PriorityMedium, buf) {
		telemetry.AddOutputDrops(1)
		w.log.Warn("output queue full, dropping serialized sample", "ts_ns", data.TsNs)
	}
	telemetry.SetOutputQueueDepth(w.out.Len())

	w.completed.Add(1)
	telemetry.IncSerializationsCompleted()
}
