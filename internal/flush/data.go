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

// Package flush implements the Flush Data Model and its producer
// (spec.md §4.5): a time-bucketed snapshot of the aggregate metrics tree,
// wrapped with its timestamp and handed to the bounded flush queue on a
// fixed cadence.
package flush

import (
	"sync/atomic"

	"hostcap/internal/conntable"
	"hostcap/internal/model"
)

// ConnSnapshot is one connection record's metrics as captured at flush
// time, detached from the live *model.Record so the serializer can read it
// after the event thread has moved on.
type ConnSnapshot struct {
	Key    model.ConnKey
	Comm   string
	Server model.Side
	Client model.Side
	Flags  model.AnalysisFlags
}

// FileSnapshot is one file's accounting as captured at flush time.
type FileSnapshot struct {
	Name      string
	Bytes     uint64
	TimeNs    uint64
	OpenCount uint64
	Errors    uint64
}

// ContainerMetrics is the per-container rollup supplemented from
// original_source's analyzer_fd.cpp/custom_container.*: per-process
// connection metrics summed up to the container they run in.
type ContainerMetrics struct {
	ContainerID string
	InBytes     uint64
	OutBytes    uint64
	InOps       uint64
	OutOps      uint64
}

func (c *ContainerMetrics) add(s model.Side) {
	c.InBytes += s.InBytes
	c.OutBytes += s.OutBytes
	c.InOps += s.InOps
	c.OutOps += s.OutOps
}

// Data is one flush-data item: the aggregate metrics tree captured at one
// flush tick, plus the metrics_sent flag the serializer sets once it has
// handed the sample off (spec.md §4.5 step 4).
type Data struct {
	TsNs int64

	Connections []ConnSnapshot
	Files       []FileSnapshot
	Containers  map[string]*ContainerMetrics

	metricsSent atomic.Bool
}

// MarkSent atomically sets metrics_sent (spec.md §4.5: "Atomically set
// data.metrics_sent = true").
func (d *Data) MarkSent() { d.metricsSent.Store(true) }

// Sent reports whether MarkSent has been called.
func (d *Data) Sent() bool { return d.metricsSent.Load() }

// ContainerIDFunc resolves a connection's owning process to a container id
// (empty string if none), matching ports.ContainerResolver's shape without
// this package importing ports and creating a cycle with fdlistener's
// consumers.
type ContainerIDFunc func(pid int64) string

// Snapshot walks every shard of every sibling table via IterForFlush and
// builds one Data item. fileStats is optional (nil is fine; the file
// snapshot list is just left empty). containerOf may be nil to skip the
// per-container rollup.
func Snapshot(now int64, tables *conntable.Tables, fileStats map[string]*model.FileStat, containerOf ContainerIDFunc) *Data {
	d := &Data{TsNs: now}
	if containerOf != nil {
		d.Containers = make(map[string]*ContainerMetrics)
	}

	visit := func(_ model.ConnKey, rec *model.Record) {
		d.Connections = append(d.Connections, ConnSnapshot{
			Key:    rec.Key,
			Comm:   rec.Comm,
			Server: rec.Server,
			Client: rec.Client,
			Flags:  rec.Flags,
		})
		if containerOf == nil {
			return
		}
		d.rollupContainer(rec, containerOf)
	}
	tables.IPv4.IterForFlush(visit)
	tables.Unix.IterForFlush(visit)
	tables.Pipe.IterForFlush(visit)

	for name, fs := range fileStats {
		d.Files = append(d.Files, FileSnapshot{
			Name:      name,
			Bytes:     fs.Bytes,
			TimeNs:    fs.TimeNs,
			OpenCount: fs.OpenCount,
			Errors:    fs.Errors,
		})
	}

	return d
}

func (d *Data) rollupContainer(rec *model.Record, containerOf ContainerIDFunc) {
	for i, pid := range [...]int64{rec.ServerPID, rec.ClientPID} {
		if pid < 0 {
			continue
		}
		id := containerOf(pid)
		if id == "" {
			continue
		}
		cm, ok := d.Containers[id]
		if !ok {
			cm = &ContainerMetrics{ContainerID: id}
			d.Containers[id] = cm
		}
		if i == 0 {
			cm.add(rec.Server)
		} else {
			cm.add(rec.Client)
		}
	}
}
