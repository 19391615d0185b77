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

// Package engine wires the FD Listener, connection tables, flush
// producer, serializer worker, watchdog, and optional sample notifier
// into the running system spec.md §1 describes, and drives the event
// thread that pulls from a ports.Source. Grounded on the teacher's
// top-level vsa.VSA constructor shape (one struct owning its Store,
// Worker, and Persister, with Start/Stop/Stats on top) generalized to
// this engine's larger component set.
package engine

import (
	"context"
	"errors"
	"time"

	"hostcap/internal/config"
	"hostcap/internal/conntable"
	"hostcap/internal/fdlistener"
	"hostcap/internal/flush"
	"hostcap/internal/logging"
	"hostcap/internal/notify"
	"hostcap/internal/ports"
	"hostcap/internal/queue"
	"hostcap/internal/serializer"
	"hostcap/internal/sinks"
	"hostcap/internal/watchdog"
)

// Stats is the admin surface of spec.md §6: "start, stop, drain,
// num_serializations_completed", extended with the queue depths and drop
// counters an operator needs to judge backpressure at a glance
// (SPEC_FULL.md's supplemented command-line-admin feature).
type Stats struct {
	SerializationsCompleted int64
	FlushQueueLen           int
	FlushQueueDrops         int64
	OutputQueueLen          int
	OutputQueueDrops        int64
	WatchdogAlive           bool
}

// Engine is the assembled system: one event thread consuming a
// ports.Source and driving the FD Listener, one flush-tick producer, and
// one serializer worker, connected by the bounded flush and output
// queues.
type Engine struct {
	cfg config.EngineConfig
	log logging.SLogger

	tables   *conntable.Tables
	listener *fdlistener.Listener
	source   ports.Source

	flushQueue  *queue.Queue[*flush.Data]
	outputQueue *queue.PriorityQueue[[]byte]

	producer   *flush.Producer
	serializer *serializer.Worker
	watchdog   *watchdog.Watchdog
	publisher  *notify.Publisher

	containerOf flush.ContainerIDFunc

	cancelEventThread context.CancelFunc
	eventThreadDone   chan struct{}

	maxConsecutiveTimeouts int
}

// New assembles an Engine from cfg. source is the decoded-event stream the
// event thread drains; local resolves patch_network_role's local-address
// checks; containerOf and notifyClient are optional (nil skips the
// corresponding feature), and a nil handler falls back to noopSerialize.
func New(
	cfg config.EngineConfig,
	source ports.Source,
	local ports.LocalAddressChecker,
	containerOf flush.ContainerIDFunc,
	notifyClient notify.Evaler,
	handler serializer.SampleHandler,
	log logging.SLogger,
) *Engine {
	if log == nil {
		log = logging.Default()
	}

	tables := conntable.NewTables(cfg.ConnTableShardCount, int64(cfg.MaxThreadTableSize))
	listener := fdlistener.New(tables, local, log)

	flushQueue := queue.New[*flush.Data](cfg.FlushQueueCapacity)
	outputQueue := queue.NewPriorityQueue[[]byte](cfg.OutputQueueCapacity)

	producer := flush.NewProducer(tables, flushQueue, listener.FileStatsByName, containerOf, flush.DefaultInterval, log)

	var dumper serializer.FileDumper
	if cfg.EmitMetricsToFile {
		dumper = sinks.NewFileSink(cfg.MetricsRootDir, cfg.EmitProtobufJSON, log)
	}

	wd := watchdog.New(5 * time.Second)

	if handler == nil {
		handler = serializer.SampleHandlerFunc(noopSerialize)
	}

	var observer ports.SampleHandler
	if cfg.OutputLogPath != "" {
		if logSink, err := sinks.NewOutputLogSink(cfg.OutputLogPath); err != nil {
			log.Error("failed to open output log, continuing without it", "err", err, "path", cfg.OutputLogPath)
		} else {
			observer = logSink
		}
	}

	worker := serializer.New(flushQueue, outputQueue, handler, serializer.NewLastSample(), serializer.Options{
		Heartbeat: wd.Heartbeat,
		Dumper:    dumper,
		Observer:  observer,
		Log:       log,
	})

	var publisher *notify.Publisher
	if cfg.Notify.Enabled {
		publisher = notify.NewPublisher(notifyClient, cfg.Notify.Channel, cfg.Notify.MarkerTTL, log)
	}

	maxTimeouts := cfg.MaxTimeouts
	if maxTimeouts <= 0 {
		maxTimeouts = 3
	}

	return &Engine{
		cfg:                    cfg,
		log:                    log,
		tables:                 tables,
		listener:               listener,
		source:                 source,
		flushQueue:             flushQueue,
		outputQueue:            outputQueue,
		producer:               producer,
		serializer:             worker,
		watchdog:               wd,
		publisher:              publisher,
		containerOf:            containerOf,
		eventThreadDone:        make(chan struct{}),
		maxConsecutiveTimeouts: maxTimeouts,
	}
}

// noopSerialize is the fallback uncompressed-sample handler used when a
// caller doesn't provide one: it confirms the pipeline end to end without
// depending on a concrete wire format.
func noopSerialize(tsNs int64, data *flush.Data) ([]byte, error) {
	return nil, nil
}

// Start launches the flush producer, the serializer worker, and the event
// thread that drains source. Per spec.md §5, the event thread is the sole
// writer of every structure the FD Listener touches. Start derives its own
// cancelable context from ctx so Stop can unblock a source.Next call that
// is blocked waiting for the next event.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelEventThread = cancel
	e.producer.Start()
	e.serializer.Start()
	go e.runEventThread(runCtx)
}

// Stop halts the event thread, the flush producer, and the serializer
// worker, in that order so no further flush items are produced once the
// serializer stops draining them.
func (e *Engine) Stop() {
	if e.cancelEventThread != nil {
		e.cancelEventThread()
	}
	<-e.eventThreadDone
	e.producer.Stop()
	e.serializer.Stop()
}

// FlushNow requests an out-of-cadence flush tick, mirroring the teacher's
// SService.Flush best-effort immediate-flush admin hook (SPEC_FULL.md's
// supplemented command-line-admin feature).
func (e *Engine) FlushNow(nowNs int64) {
	e.producer.Tick(nowNs)
	if e.publisher != nil {
		e.publisher.Publish(context.Background(), nowNs)
	}
}

// Drain blocks until the flush queue has been fully consumed by the
// serializer (spec.md §5's drain() admin operation).
func (e *Engine) Drain() {
	e.serializer.Drain()
}

// CurrentStats reports the admin-surface snapshot of spec.md §6.
func (e *Engine) CurrentStats() Stats {
	return Stats{
		SerializationsCompleted: e.serializer.NumSerializationsCompleted(),
		FlushQueueLen:           e.flushQueue.Len(),
		FlushQueueDrops:         e.flushQueue.Drops(),
		OutputQueueLen:          e.outputQueue.Len(),
		OutputQueueDrops:        e.outputQueue.Drops(),
		WatchdogAlive:           e.watchdog.Alive(),
	}
}

// runEventThread is the sole goroutine driving the FD Listener, draining
// source and dispatching each decoded event to the matching On*
// method (spec.md §4.4's operation table).
func (e *Engine) runEventThread(ctx context.Context) {
	defer close(e.eventThreadDone)

	consecutiveTimeouts := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, err := e.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			consecutiveTimeouts++
			e.log.Warn("event source error", "err", err, "consecutive", consecutiveTimeouts)
			if consecutiveTimeouts >= e.maxConsecutiveTimeouts {
				e.log.Error("event source exceeded max consecutive timeouts, stopping event thread", "max", e.maxConsecutiveTimeouts)
				return
			}
			continue
		}
		consecutiveTimeouts = 0
		e.dispatch(ev)
	}
}

func (e *Engine) dispatch(ev ports.Event) {
	switch ev.Kind {
	case ports.EventRead:
		e.listener.OnRead(ev)
	case ports.EventWrite:
		e.listener.OnWrite(ev)
	case ports.EventConnect:
		e.listener.OnConnect(ev)
	case ports.EventAccept:
		e.listener.OnAccept(ev)
	case ports.EventSocketShutdown:
		e.listener.OnSocketShutdown(ev)
	case ports.EventEraseFD:
		e.listener.OnEraseFD(ev)
	case ports.EventFileCreate:
		e.listener.OnFileCreate(ev)
	case ports.EventError:
		e.listener.OnError(ev)
	}
}
