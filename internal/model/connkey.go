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

// Package model holds the value types shared by the connection tables, the
// FD listener, and the partial-transaction state machine: connection keys,
// connection records, FD handles, and file-stat entries. Nothing in this
// package owns a goroutine or a lock; it is pure data plus small invariant
// helpers, so every other package can import it without a dependency cycle.
package model

import (
	"fmt"
	"net/netip"
)

// L4Proto is the layer-4 protocol of an IPv4 tuple.
type L4Proto uint8

const (
	ProtoTCP L4Proto = iota
	ProtoUDP
)

func (p L4Proto) String() string {
	if p == ProtoUDP {
		return "udp"
	}
	return "tcp"
}

// KeyKind discriminates the three disjoint ConnKey variants. A ConnKey is a
// tagged union rather than an interface hierarchy: spec.md's design notes
// ask for tagged variants in place of the original's polymorphic hierarchy,
// and a fixed three-way union is cheaper to hash and compare than a boxed
// interface value would be on the hot path.
type KeyKind uint8

const (
	KeyIPv4 KeyKind = iota
	KeyUnix
	KeyPipe
)

// ConnKey identifies one network or IPC flow. Exactly one of the three
// shapes is meaningful, selected by Kind. Zero value is not a valid key.
type ConnKey struct {
	Kind KeyKind

	// IPv4 tuple fields (Kind == KeyIPv4).
	SrcIP   netip.Addr
	SrcPort uint16
	DstIP   netip.Addr
	DstPort uint16
	Proto   L4Proto

	// UNIX tuple fields (Kind == KeyUnix). A zero Dest is tolerated (see
	// ZeroDest) rather than rejected.
	Src  uint64
	Dest uint64

	// Pipe key (Kind == KeyPipe).
	Inode uint64
}

// IPv4Key builds an IPv4/IPv6-mapped tuple key.
func IPv4Key(srcIP netip.Addr, srcPort uint16, dstIP netip.Addr, dstPort uint16, proto L4Proto) ConnKey {
	return ConnKey{Kind: KeyIPv4, SrcIP: srcIP, SrcPort: srcPort, DstIP: dstIP, DstPort: dstPort, Proto: proto}
}

// UnixKey builds a UNIX-domain tuple key. dest may legitimately be zero
// (spec.md §3: "A zero dst is tolerated but flagged"); callers that observe
// a zero dest should set the ZERO_DEST analysis flag on the resulting
// record rather than reject the key.
func UnixKey(src, dest uint64) ConnKey {
	return ConnKey{Kind: KeyUnix, Src: src, Dest: dest}
}

// PipeKey builds a pipe key from its inode number.
func PipeKey(inode uint64) ConnKey {
	return ConnKey{Kind: KeyPipe, Inode: inode}
}

// ZeroDest reports whether a UNIX key has an unobserved (zero) destination.
func (k ConnKey) ZeroDest() bool {
	return k.Kind == KeyUnix && k.Dest == 0
}

// String renders a stable, human-readable form used for hashing (via
// xxhash) and for log lines. It is not meant to be parsed back.
func (k ConnKey) String() string {
	switch k.Kind {
	case KeyIPv4:
		return fmt.Sprintf("ipv4:%s:%d>%s:%d/%s", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Proto)
	case KeyUnix:
		return fmt.Sprintf("unix:%d>%d", k.Src, k.Dest)
	case KeyPipe:
		return fmt.Sprintf("pipe:%d", k.Inode)
	default:
		return "invalid"
	}
}
