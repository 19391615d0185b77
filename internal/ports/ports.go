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

// Package ports declares the narrow, consumer-defined interfaces the
// engine depends on for everything spec.md §1 and §6 treat as an opaque,
// out-of-scope subsystem: the decoded-event source, local-address
// resolution, and the container resolver. Nothing in this package knows
// about kernel ring buffers, netlink, or cgroups; production
// implementations live outside this module, and internal/ports/fakesource
// provides a stand-in for tests and for cmd/hostcapd (capture_mode
// NODRIVER).
package ports

import (
	"context"

	"hostcap/internal/model"
)

// EventKind discriminates the decoded events a Source can produce, one per
// FD Listener operation in spec.md §4.4.
type EventKind uint8

const (
	EventRead EventKind = iota
	EventWrite
	EventConnect
	EventAccept
	EventSocketShutdown
	EventEraseFD
	EventFileCreate
	EventError
)

// Event is one decoded kernel event, already stripped of any kernel-specific
// encoding. Not every field is meaningful for every Kind; see EventKind's
// doc and the FD Listener operation table.
type Event struct {
	Kind EventKind
	Now  int64

	PID, TID, FD int64
	NewFD        int64

	Payload     []byte
	OriginalLen int
	Len         int

	Key    model.ConnKey
	Family Family

	Comm     string
	FullPath string

	ErrorCode int

	RemotePort uint16
}

// Family is the socket address family an on_connect/on_accept event
// carries (spec.md §4.4: "family ∈ {INET, INET6, UNIX}").
type Family uint8

const (
	FamilyINET Family = iota
	FamilyINET6
	FamilyUNIX
	FamilyOther
)

// Source is the decoded-event producer the engine's event thread drains.
// Implementations are expected to block until an event is available or ctx
// is done.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// LocalAddressChecker reports whether an IPv4 address belongs to this host,
// used by patch_network_role (spec.md §4.4 rule 1). Production
// implementations typically consult the host's interface list; tests can
// use a fixed set.
type LocalAddressChecker interface {
	IsLocal(addr [4]byte) bool
}

// ContainerResolver maps a (pid) to the id of the container it runs in, or
// "" if the process is not containerized. It is consumed as an opaque
// handle per spec.md §1; the per-container rollup in internal/flush is the
// only thing that calls it.
type ContainerResolver interface {
	ContainerIDFor(pid int64) string
}

// SampleHandler receives each uncompressed sample as it is serialized,
// mirroring spec.md §4.5 step 4's "invoke uncompressed-sample handler"
// side effect (e.g. for in-process inspection tools, not part of the
// durable delivery path).
type SampleHandler interface {
	OnSample(tsNs int64, payload []byte)
}
