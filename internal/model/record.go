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

package model

// AnalysisFlags is the bitset described by spec.md §3: NEW, REUSED, CLOSED,
// PENDING_REMOVAL, plus the ZeroDest flag decided in SPEC_FULL.md's open
// question #1.
type AnalysisFlags uint8

const (
	FlagNew AnalysisFlags = 1 << iota
	FlagReused
	FlagClosed
	FlagPendingRemoval
	FlagZeroDest
)

func (f AnalysisFlags) Has(bit AnalysisFlags) bool { return f&bit != 0 }

// Side holds the four counters spec.md §3 assigns to one role
// (server or client) of a connection record.
type Side struct {
	InBytes  uint64
	InOps    uint64
	OutBytes uint64
	OutOps   uint64
}

// Credit attributes a single I/O event to this side.
func (s *Side) Credit(dir Direction, n int) {
	if n < 0 {
		return
	}
	switch dir {
	case DirIn:
		s.InBytes += uint64(n)
		s.InOps++
	case DirOut:
		s.OutBytes += uint64(n)
		s.OutOps++
	}
}

// unsetID marks an unset pid/tid/fd field, per spec.md §3 ("-1 if only one
// end was observed").
const unsetID int64 = -1

// Record is one connection-table entry (spec.md §3 "Connection Record").
// It carries no lock of its own: the table that owns it serializes access
// to it per spec.md §5 (the event thread is the sole writer; readers that
// run concurrently with the writer — the flush tick, if it runs on a
// separate goroutine — only ever read the Metrics snapshot the table hands
// them, never a live *Record).
type Record struct {
	Key ConnKey

	ServerPID, ServerTID, ServerFD int64
	ClientPID, ClientTID, ClientFD int64

	Comm string

	FirstSeenNs    int64
	LastActivityNs int64

	Refcount int32
	Flags    AnalysisFlags

	Server Side
	Client Side
}

// NewRecord returns a freshly-initialized, role-less record for key.
func NewRecord(key ConnKey, now int64) *Record {
	return &Record{
		Key:            key,
		ServerPID:      unsetID,
		ServerTID:      unsetID,
		ServerFD:       unsetID,
		ClientPID:      unsetID,
		ClientTID:      unsetID,
		ClientFD:       unsetID,
		FirstSeenNs:    now,
		LastActivityNs: now,
		Flags:          FlagNew,
	}
}

// HasServer reports whether the server role has been observed.
func (r *Record) HasServer() bool { return r.ServerPID != unsetID }

// HasClient reports whether the client role has been observed.
func (r *Record) HasClient() bool { return r.ClientPID != unsetID }

// IsServerOnly, IsClientOnly, IsFull implement spec.md §3's role
// classification invariant: exactly one of {server-only, client-only,
// full} holds for any record with at least one role populated.
func (r *Record) IsServerOnly() bool { return r.HasServer() && !r.HasClient() }
func (r *Record) IsClientOnly() bool { return r.HasClient() && !r.HasServer() }
func (r *Record) IsFull() bool       { return r.HasServer() && r.HasClient() }

// SetServer populates the server role fields.
func (r *Record) SetServer(pid, tid, fd int64) {
	r.ServerPID, r.ServerTID, r.ServerFD = pid, tid, fd
}

// SetClient populates the client role fields.
func (r *Record) SetClient(pid, tid, fd int64) {
	r.ClientPID, r.ClientTID, r.ClientFD = pid, tid, fd
}

// ClearRoles resets both role pairs to unset, used when a record is reused
// under new ownership (spec.md §4.1 "Reuse semantics").
func (r *Record) ClearRoles() {
	r.ServerPID, r.ServerTID, r.ServerFD = unsetID, unsetID, unsetID
	r.ClientPID, r.ClientTID, r.ClientFD = unsetID, unsetID, unsetID
}

// ResetCounters zeroes both sides' metrics, used on reuse.
func (r *Record) ResetCounters() {
	r.Server = Side{}
	r.Client = Side{}
}

// MarkReused clears CLOSED, sets REUSED, resets counters/roles and
// refcount, and refreshes FirstSeenNs — the full transition spec.md §8
// requires ("Adding a connection, marking it CLOSED, then adding the same
// key again yields a record with REUSED set and all counters zero").
func (r *Record) MarkReused(now int64) {
	r.Flags &^= FlagClosed | FlagPendingRemoval
	r.Flags |= FlagReused
	r.ClearRoles()
	r.ResetCounters()
	r.Refcount = 1
	r.FirstSeenNs = now
	r.LastActivityNs = now
}

// MarkClosed sets CLOSED and clears REUSED — spec.md §3 requires the two to
// be mutually exclusive at any instant.
func (r *Record) MarkClosed() {
	r.Flags &^= FlagReused
	r.Flags |= FlagClosed
}

// EvictionEligible reports whether the record may be dropped at the next
// flush boundary (spec.md §3: refcount == 0 and CLOSED set).
func (r *Record) EvictionEligible() bool {
	return r.Refcount == 0 && r.Flags.Has(FlagClosed)
}

// Touch bumps LastActivityNs, called on every mutation.
func (r *Record) Touch(now int64) { r.LastActivityNs = now }
