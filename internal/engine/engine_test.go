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

package engine

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"hostcap/internal/config"
	"hostcap/internal/flush"
	"hostcap/internal/model"
	"hostcap/internal/ports"
	"hostcap/internal/ports/fakesource"
	"hostcap/internal/serializer"
)

type fixedLocal struct{ locals map[[4]byte]bool }

func (f fixedLocal) IsLocal(addr [4]byte) bool { return f.locals[addr] }

func testConfig() config.EngineConfig {
	cfg := config.Defaults()
	cfg.FlushQueueCapacity = 16
	cfg.OutputQueueCapacity = 16
	cfg.ConnTableShardCount = 2
	return cfg
}

// TestAcceptReadsCloseEndToEnd drives spec.md §8 scenario 1's events through
// the assembled Engine: accept, two reads, and a socket shutdown, then a
// manual flush tick that the serializer must complete exactly once.
func TestAcceptReadsCloseEndToEnd(t *testing.T) {
	src := fakesource.New(8)
	local := fixedLocal{locals: map[[4]byte]bool{}}
	e := New(testConfig(), src, local, nil, nil, nil, nil)

	key := model.IPv4Key(
		netip.MustParseAddr("10.0.0.1"), 5432,
		netip.MustParseAddr("10.0.0.2"), 50000,
		model.ProtoTCP,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	src.Push(ports.Event{Kind: ports.EventAccept, TID: 100, NewFD: 7, PID: 100, Key: key, Family: ports.FamilyINET, Comm: "postgres", Now: 1})
	src.Push(ports.Event{Kind: ports.EventRead, TID: 100, FD: 7, Payload: make([]byte, 128), Now: 2, RemotePort: 50000})
	src.Push(ports.Event{Kind: ports.EventRead, TID: 100, FD: 7, Payload: make([]byte, 256), Now: 3, RemotePort: 50000})
	src.Push(ports.Event{Kind: ports.EventSocketShutdown, TID: 100, FD: 7, Now: 4, RemotePort: 50000})

	waitForQueueEmpty(t, src)

	e.FlushNow(5)
	e.Drain()

	stats := e.CurrentStats()
	if stats.SerializationsCompleted != 1 {
		t.Fatalf("expected exactly 1 completed serialization, got %d", stats.SerializationsCompleted)
	}

	sample := e.serializer.NumSerializationsCompleted()
	if sample != 1 {
		t.Fatalf("expected 1 sample serialized, got %d", sample)
	}
}

// TestFlushQueueBackpressureThroughEngine exercises spec.md §8 scenario 5
// using the assembled engine's own queues and serializer.
func TestFlushQueueBackpressureThroughEngine(t *testing.T) {
	cfg := testConfig()
	cfg.FlushQueueCapacity = 1000
	cfg.OutputQueueCapacity = 2000

	src := fakesource.New(8)
	e := New(cfg, src, fixedLocal{}, nil, nil, nil, nil)

	for i := 0; i < 1001; i++ {
		e.producer.Tick(int64(i))
	}
	if got := e.flushQueue.Drops(); got != 1 {
		t.Fatalf("expected exactly one overflow drop, got %d", got)
	}
	if e.CurrentStats().SerializationsCompleted != 0 {
		t.Fatal("expected zero completions before the serializer starts")
	}

	e.serializer.Start()
	e.Drain()

	if e.flushQueue.Len() != 0 {
		t.Fatalf("expected flush queue to drain to 0, got %d", e.flushQueue.Len())
	}
	if got := e.CurrentStats().SerializationsCompleted; got != 1000 {
		t.Fatalf("expected 1000 completions, got %d", got)
	}
	e.serializer.Stop()
}

// TestContainerRollupWiredThroughEngine confirms the optional
// containerOf hook reaches the flush snapshot via the producer.
func TestContainerRollupWiredThroughEngine(t *testing.T) {
	src := fakesource.New(4)
	containerOf := func(pid int64) string {
		if pid == 100 {
			return "container-a"
		}
		return ""
	}
	e := New(testConfig(), src, fixedLocal{}, containerOf, nil, nil, nil)

	key := model.IPv4Key(
		netip.MustParseAddr("10.0.0.1"), 5432,
		netip.MustParseAddr("10.0.0.2"), 50000,
		model.ProtoTCP,
	)
	isServer := false
	rec, _ := e.tables.IPv4.Add(key, "postgres", 100, 100, 7, &isServer, 0)
	rec.Server.Credit(model.DirIn, 50)

	data := flush.Snapshot(0, e.tables, nil, e.containerOf)
	cm, ok := data.Containers["container-a"]
	if !ok {
		t.Fatal("expected container-a in rollup")
	}
	if cm.InBytes != 50 {
		t.Fatalf("expected 50 bytes rolled up, got %d", cm.InBytes)
	}
}

// TestFlushNowInvokesCustomSerializer confirms a caller-supplied
// SampleHandler is exercised by an immediate flush.
func TestFlushNowInvokesCustomSerializer(t *testing.T) {
	src := fakesource.New(4)
	var gotTs int64
	handler := serializer.SampleHandlerFunc(func(tsNs int64, data *flush.Data) ([]byte, error) {
		gotTs = tsNs
		return []byte("ok"), nil
	})
	e := New(testConfig(), src, fixedLocal{}, nil, nil, handler, nil)

	e.serializer.Start()
	defer e.serializer.Stop()

	e.FlushNow(999)
	e.Drain()

	if gotTs != 999 {
		t.Fatalf("expected custom handler invoked with ts 999, got %d", gotTs)
	}
}

// waitForQueueEmpty gives the event thread a moment to drain src's queued
// events before the test moves on to its own flush/drain synchronization.
// fakesource exposes no "fully drained" signal of its own, so this is a
// short fixed sleep rather than a poll loop.
func waitForQueueEmpty(t *testing.T, src *fakesource.Source) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
}
