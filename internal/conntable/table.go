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

// Package conntable implements the three sibling connection tables of
// spec.md §4.1 (IPv4, UNIX, Pipe): keyed stores of connection records with
// reuse/close semantics and role tie-break rules.
//
// The implementation generalizes the teacher pack's core.Store — a single
// sync.Map keyed store wrapping each value in a small lifecycle record — to
// a sharded store. Each Table is split into a fixed number of shards and a
// key's shard is chosen with rendezvous hashing over xxhash, so the
// flush-tick producer can walk one shard's records (IterForFlush) without a
// table-wide lock while the event thread keeps mutating other shards.
package conntable

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"hostcap/internal/model"
)

const defaultShardCount = 16

// Table is one of the three sibling connection tables. kind restricts which
// ConnKey.Kind this table accepts; passing a mismatched key is a caller bug
// and panics, the same way the teacher's typed wrappers around core.Store
// would if misused.
type Table struct {
	kind model.KeyKind

	capacity  int64 // 0 means unbounded
	size      atomic.Int64
	drops     atomic.Int64

	shardNames []string
	rv         *rendezvous.Rendezvous
	shards     []*shard
}

type shard struct {
	mu   sync.Mutex
	data sync.Map // model.ConnKey -> *model.Record
}

// NewTable builds a table for the given key kind with shardCount shards
// (defaultShardCount if <= 0) and an optional capacity (0 = unbounded; an
// Add beyond capacity fails and increments the drop counter per spec.md
// §4.1 "on capacity overflow returns nothing and increments a drop
// counter").
func NewTable(kind model.KeyKind, shardCount int, capacity int64) *Table {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	names := make([]string, shardCount)
	shards := make([]*shard, shardCount)
	for i := range names {
		names[i] = strconv.Itoa(i)
		shards[i] = &shard{}
	}
	return &Table{
		kind:       kind,
		capacity:   capacity,
		shardNames: names,
		rv:         rendezvous.New(names, xxhash.Sum64String),
		shards:     shards,
	}
}

func (t *Table) checkKind(key model.ConnKey) {
	if key.Kind != t.kind {
		panic(fmt.Sprintf("conntable: key kind %d does not match table kind %d", key.Kind, t.kind))
	}
}

func (t *Table) shardFor(key model.ConnKey) *shard {
	name := t.rv.Lookup(key.String())
	idx, err := strconv.Atoi(name)
	if err != nil {
		// Unreachable: names are generated by us as "0".."N-1".
		idx = 0
	}
	return t.shards[idx]
}

// Get returns the record for key and refreshes nothing (spec.md §4.1: "O(1)
// average", a pure lookup). The bool is false if absent.
func (t *Table) Get(key model.ConnKey) (*model.Record, bool) {
	t.checkKind(key)
	v, ok := t.shardFor(key).data.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*model.Record), true
}

// Drops returns the number of Add calls rejected for capacity overflow.
func (t *Table) Drops() int64 { return t.drops.Load() }

// Size returns the current number of live records across all shards.
func (t *Table) Size() int64 { return t.size.Load() }

// IterForFlush calls fn once per live record. fn must not retain the
// pointer past the call if it will mutate the record further — it is the
// same *model.Record the event thread may still be mutating on other
// shards, but the shard currently being walked is locked against
// concurrent Add/Remove for the duration of this call (spec.md §4.1
// "iter_for_flush() → lazy sequence of records").
func (t *Table) IterForFlush(fn func(model.ConnKey, *model.Record)) {
	for _, sh := range t.shards {
		sh.mu.Lock()
		sh.data.Range(func(k, v any) bool {
			fn(k.(model.ConnKey), v.(*model.Record))
			return true
		})
		sh.mu.Unlock()
	}
}
