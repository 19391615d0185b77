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

package conntable

import "hostcap/internal/model"

// NewIPv4Table, NewUnixTable, and NewPipeTable construct the three sibling
// tables spec.md §4.1 describes. They share one implementation (Table);
// only the accepted ConnKey.Kind differs.
func NewIPv4Table(shardCount int, capacity int64) *Table {
	return NewTable(model.KeyIPv4, shardCount, capacity)
}

func NewUnixTable(shardCount int, capacity int64) *Table {
	return NewTable(model.KeyUnix, shardCount, capacity)
}

func NewPipeTable(shardCount int, capacity int64) *Table {
	return NewTable(model.KeyPipe, shardCount, capacity)
}

// Tables bundles the three sibling tables the FD listener dispatches into,
// mirroring spec.md §2's "Connection Tables (IPv4, UNIX, Pipe)" row.
type Tables struct {
	IPv4 *Table
	Unix *Table
	Pipe *Table
}

// NewTables builds all three sibling tables with the same shard count and
// per-table capacity.
func NewTables(shardCount int, capacity int64) *Tables {
	return &Tables{
		IPv4: NewIPv4Table(shardCount, capacity),
		Unix: NewUnixTable(shardCount, capacity),
		Pipe: NewPipeTable(shardCount, capacity),
	}
}

// For returns the sibling table matching key's kind.
func (t *Tables) For(key model.ConnKey) *Table {
	switch key.Kind {
	case model.KeyIPv4:
		return t.IPv4
	case model.KeyUnix:
		return t.Unix
	default:
		return t.Pipe
	}
}
