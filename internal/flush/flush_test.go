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
	"net/netip"
	"testing"
	"time"

	"hostcap/internal/conntable"
	"hostcap/internal/model"
	"hostcap/internal/queue"
)

func TestSnapshotCollectsAllConnections(t *testing.T) {
	tables := conntable.NewTables(4, 0)
	isClient := true
	for i := 0; i < 5; i++ {
		key := model.IPv4Key(netip.MustParseAddr("10.0.0.1"), uint16(1000+i), netip.MustParseAddr("10.0.0.2"), 80, model.ProtoTCP)
		tables.IPv4.Add(key, "curl", int64(i), int64(i), int64(i), &isClient, int64(i))
	}

	data := Snapshot(999, tables, nil, nil)
	if len(data.Connections) != 5 {
		t.Fatalf("expected 5 connections snapshotted, got %d", len(data.Connections))
	}
	if data.TsNs != 999 {
		t.Fatalf("expected ts 999, got %d", data.TsNs)
	}
}

func TestContainerRollupSumsPerContainer(t *testing.T) {
	tables := conntable.NewTables(4, 0)
	isServer := false
	key := model.IPv4Key(netip.MustParseAddr("10.0.0.1"), 80, netip.MustParseAddr("10.0.0.2"), 51000, model.ProtoTCP)
	rec, _ := tables.IPv4.Add(key, "nginx", 42, 42, 5, &isServer, 0)
	rec.Server.Credit(model.DirIn, 100)

	containerOf := func(pid int64) string {
		if pid == 42 {
			return "container-a"
		}
		return ""
	}

	data := Snapshot(0, tables, nil, containerOf)
	cm, ok := data.Containers["container-a"]
	if !ok {
		t.Fatal("expected container-a to be present in rollup")
	}
	if cm.InBytes != 100 {
		t.Fatalf("expected 100 bytes rolled up, got %d", cm.InBytes)
	}
}

func TestMarkSentIsObservable(t *testing.T) {
	d := &Data{}
	if d.Sent() {
		t.Fatal("expected fresh Data to be unsent")
	}
	d.MarkSent()
	if !d.Sent() {
		t.Fatal("expected Data to report sent after MarkSent")
	}
}

func TestProducerTickPutsOneItemPerCall(t *testing.T) {
	tables := conntable.NewTables(2, 0)
	out := queue.New[*Data](4)
	p := NewProducer(tables, out, nil, nil, time.Hour, nil)

	p.Tick(100)
	p.Tick(200)

	if out.Len() != 2 {
		t.Fatalf("expected 2 items queued, got %d", out.Len())
	}
}

func TestTickSweepsPendingRemovalOnEligibleRecords(t *testing.T) {
	tables := conntable.NewTables(2, 0)
	out := queue.New[*Data](4)
	p := NewProducer(tables, out, nil, nil, time.Hour, nil)

	isClient := true
	key := model.IPv4Key(netip.MustParseAddr("10.0.0.1"), 51000, netip.MustParseAddr("10.0.0.2"), 80, model.ProtoTCP)
	rec, _ := tables.IPv4.Add(key, "curl", 1, 1, 3, &isClient, 0)
	tables.IPv4.Release(key, 0)
	if rec.Refcount != 0 {
		t.Fatalf("expected refcount 0 after release, got %d", rec.Refcount)
	}
	rec.MarkClosed()
	tables.IPv4.Remove(key, false)

	p.Tick(100)

	if _, ok := tables.IPv4.Get(key); ok {
		t.Fatal("expected pending-removal record to be swept at the flush boundary")
	}
}

func TestGroupChildPathsNestWithoutParentPointer(t *testing.T) {
	root := NewRootGroup()
	web := root.Child("prod").Child("web")
	if web.Path() != "/prod/web/" {
		t.Fatalf("expected nested path, got %q", web.Path())
	}
}
