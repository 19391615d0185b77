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

// Add inserts or returns the existing record for key, attaching one more
// live FD reference to it (spec.md §3 refcount: "number of live FDs
// referencing this record"). isClient is nil when the caller has not yet
// determined a role for this observer ("role-less"); true/false otherwise.
//
// On capacity overflow, Add returns (nil, false) and increments the drop
// counter (spec.md §4.1).
func (t *Table) Add(key model.ConnKey, comm string, pid, tid, fd int64, isClient *bool, now int64) (*model.Record, bool) {
	t.checkKind(key)
	if key.ZeroDest() {
		// Tolerated per spec.md §3; flagged below once the record exists.
	}
	sh := t.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if v, ok := sh.data.Load(key); ok {
		rec := v.(*model.Record)
		t.addExisting(rec, comm, pid, tid, fd, isClient, now)
		if key.ZeroDest() {
			rec.Flags |= model.FlagZeroDest
		}
		return rec, true
	}

	if t.capacity > 0 && t.size.Load() >= t.capacity {
		t.drops.Add(1)
		return nil, false
	}
	rec := model.NewRecord(key, now)
	rec.Comm = comm
	applyRole(rec, pid, tid, fd, isClient)
	rec.Refcount = 1
	if key.ZeroDest() {
		rec.Flags |= model.FlagZeroDest
	}
	sh.data.Store(key, rec)
	t.size.Add(1)
	return rec, true
}

// addExisting applies spec.md §4.1's reuse and tie-break rules to an
// already-present, non-nil record found by Add.
func (t *Table) addExisting(rec *model.Record, comm string, pid, tid, fd int64, isClient *bool, now int64) {
	rec.Comm = comm
	rec.Touch(now)

	switch {
	case rec.Flags.Has(model.FlagClosed):
		// Reuse semantics: counters/roles reset, REUSED set, refcount 1.
		rec.MarkReused(now)
		rec.Comm = comm
		applyRole(rec, pid, tid, fd, isClient)

	case rec.IsFull():
		// Both full collision: reset in the role the new observer claims.
		rec.ClearRoles()
		rec.ResetCounters()
		rec.Refcount = 0
		rec.Flags &^= model.FlagClosed
		rec.Flags |= model.FlagReused
		rec.FirstSeenNs = now
		applyRole(rec, pid, tid, fd, isClient)
		rec.Refcount = 1

	case rec.IsServerOnly():
		if isClient == nil || *isClient {
			// Role-less (or explicitly client) observer completes the pair.
			rec.SetClient(pid, tid, fd)
			rec.Refcount++
		} else {
			// Another server-side observer: last writer wins the slot,
			// refcount already accounts for the prior attach.
			rec.SetServer(pid, tid, fd)
		}

	case rec.IsClientOnly():
		if isClient == nil || !*isClient {
			rec.SetServer(pid, tid, fd)
			rec.Refcount++
		} else {
			rec.SetClient(pid, tid, fd)
		}

	default:
		// Role-less record (created via Add with isClient == nil and never
		// patched): attach the first role we now have an opinion on.
		applyRole(rec, pid, tid, fd, isClient)
		rec.Refcount++
	}
}

func applyRole(rec *model.Record, pid, tid, fd int64, isClient *bool) {
	if isClient == nil {
		return
	}
	if *isClient {
		rec.SetClient(pid, tid, fd)
	} else {
		rec.SetServer(pid, tid, fd)
	}
}

// Release drops one live FD reference from key's record (spec.md §3
// refcount semantics). It does not remove the record; callers decide
// closure/removal policy (see Remove) once refcount reaches zero.
func (t *Table) Release(key model.ConnKey, now int64) {
	t.checkKind(key)
	sh := t.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.data.Load(key)
	if !ok {
		return
	}
	rec := v.(*model.Record)
	if rec.Refcount > 0 {
		rec.Refcount--
	}
	rec.Touch(now)
}

// Remove implements spec.md §4.1's remove(key, immediate). If immediate,
// the record is dropped from the table right away; otherwise it is marked
// PENDING_REMOVAL and left for the next flush-time sweep (SweepPending).
func (t *Table) Remove(key model.ConnKey, immediate bool) {
	t.checkKind(key)
	sh := t.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.data.Load(key)
	if !ok {
		return
	}
	if immediate {
		sh.data.Delete(key)
		t.size.Add(-1)
		return
	}
	v.(*model.Record).Flags |= model.FlagPendingRemoval
}

// SweepPending deletes every record flagged PENDING_REMOVAL and eligible
// for eviction (spec.md §3: refcount == 0 and CLOSED). Called at the flush
// boundary.
func (t *Table) SweepPending() (evicted int64) {
	for _, sh := range t.shards {
		sh.mu.Lock()
		sh.data.Range(func(k, v any) bool {
			rec := v.(*model.Record)
			if rec.Flags.Has(model.FlagPendingRemoval) && rec.EvictionEligible() {
				sh.data.Delete(k)
				evicted++
			}
			return true
		})
		sh.mu.Unlock()
	}
	if evicted > 0 {
		t.size.Add(-evicted)
	}
	return evicted
}
