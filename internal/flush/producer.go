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

package flush

import (
	"sync"
	"sync/atomic"
	"time"

	"hostcap/internal/conntable"
	"hostcap/internal/logging"
	"hostcap/internal/model"
	"hostcap/internal/queue"
	"hostcap/internal/telemetry"
)

// DefaultInterval matches spec.md §4.5's "typically once per second" flush
// cadence.
const DefaultInterval = time.Second

// Producer drives the flush tick on its own cadence goroutine: snapshot the
// aggregate metrics tree, wrap it in a Data item, and put it on the bounded
// flush queue (spec.md §4.5). Modeled on the teacher's core.Worker
// ticker/stopChan/WaitGroup loop shape.
type Producer struct {
	tables      *conntable.Tables
	out         *queue.Queue[*Data]
	fileStats   func() map[string]*model.FileStat
	containerOf ContainerIDFunc
	interval    time.Duration
	log         logging.SLogger

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewProducer builds a flush-tick producer. fileStats, if non-nil, is
// called once per tick to snapshot the current file-stat table;
// containerOf may be nil to skip the per-container rollup.
func NewProducer(tables *conntable.Tables, out *queue.Queue[*Data], fileStats func() map[string]*model.FileStat, containerOf ContainerIDFunc, interval time.Duration, log logging.SLogger) *Producer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logging.Default()
	}
	return &Producer{
		tables:      tables,
		out:         out,
		fileStats:   fileStats,
		containerOf: containerOf,
		interval:    interval,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the producer's background goroutine.
func (p *Producer) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop signals the producer to exit and waits for it to do so.
func (p *Producer) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
}

// Tick runs one flush cycle synchronously; exposed so Engine.FlushNow can
// request an immediate out-of-cadence flush without waiting for the
// ticker.
func (p *Producer) Tick(now int64) {
	var fs map[string]*model.FileStat
	if p.fileStats != nil {
		fs = p.fileStats()
	}
	data := Snapshot(now, p.tables, fs, p.containerOf)
	if !p.out.TryPut(data) {
		telemetry.AddFlushDrops(1)
		p.log.Warn("flush queue full, dropping sample", "ts_ns", now)
	}
	telemetry.SetFlushQueueDepth(p.out.Len())

	p.sweepPending()
}

// sweepPending evicts PENDING_REMOVAL records that became eligible
// (refcount == 0 and CLOSED) across all three connection tables, per
// spec.md §3's "eligible for eviction at the next flush boundary" and
// §4.1's remove(key, immediate=false) deferral contract.
func (p *Producer) sweepPending() {
	evicted := p.tables.IPv4.SweepPending()
	evicted += p.tables.Unix.SweepPending()
	evicted += p.tables.Pipe.SweepPending()
	telemetry.AddThreadTableEvictions(evicted)
}

func (p *Producer) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			p.Tick(t.UnixNano())
		case <-p.stopChan:
			return
		}
	}
}
