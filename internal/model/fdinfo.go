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

// Direction is the data-flow direction of an I/O event, used both for
// connection-side crediting and for the partial transaction's
// direction-switch accounting.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
	DirClose
)

// FDKind is the kernel object type a thread's file descriptor refers to.
type FDKind uint8

const (
	FDRegularFile FDKind = iota
	FDIPv4Socket
	FDUnixSocket
	FDPipe
	FDOther
)

// RoleBits are the FD Info role flags of spec.md §3. CLIENT and SERVER are
// never both set (spec.md §8 quantified invariant); TRANSACTION implies a
// non-nil transaction pointer.
type RoleBits uint8

const (
	RoleNone RoleBits = 0
	RoleClient RoleBits = 1 << iota
	RoleServer
	RoleTransaction
	RoleSocketPipe
	RoleCloseInProgress
	RoleCloseCanceled
)

func (r RoleBits) Has(bit RoleBits) bool { return r&bit != 0 }

// ValidRoles reports the spec.md §8 invariant that CLIENT and SERVER are
// never simultaneously set.
func (r RoleBits) ValidRoles() bool {
	return !(r.Has(RoleClient) && r.Has(RoleServer))
}

// FDInfo is the per-thread file-descriptor handle the FD listener
// decorates (spec.md §3). It stores only the connection Key (a value),
// never a pointer into a connection table — spec.md §9's "arena + index"
// redesign: the table is the sole owner of Records, and an FDInfo looks
// the record up on demand instead of holding a shared/back pointer into
// it. This removes the cyclic FDInfo<->Record references the original
// source held via shared/raw pointers.
type FDInfo struct {
	Kind  FDKind
	Key   ConnKey
	Roles RoleBits

	// hasTx reports whether a transaction is attached. Transactions are
	// owned exclusively by the FDInfo that created them (spec.md §3
	// ownership), but are kept in the listener's side table keyed by
	// (tid, fd) rather than embedded here so that FDInfo stays a small
	// value type.
	hasTx bool
}

// AttachTransaction marks this FD as transaction-bearing.
func (f *FDInfo) AttachTransaction() {
	f.Roles |= RoleTransaction
	f.hasTx = true
}

// DetachTransaction clears the transaction-bearing role. FD erase does not
// call it; the listener drops the whole FDInfo instead.
func (f *FDInfo) DetachTransaction() {
	f.Roles &^= RoleTransaction
	f.hasTx = false
}

// HasTransaction reports whether a Partial Transaction is attached.
func (f *FDInfo) HasTransaction() bool { return f.hasTx }
