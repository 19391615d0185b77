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

// Package transaction implements the Partial Transaction state machine of
// spec.md §4: a small state machine attached to one side of a connection
// that tracks whether it is idle or actively discovering/running a
// protocol, independent of the connection record it reports into.
package transaction

import (
	"hostcap/internal/model"
	"hostcap/internal/protocol"
)

// State is the Partial Transaction's own lifecycle state, distinct from the
// protocol.Type it may have discovered.
type State uint8

const (
	Idle State = iota
	Active
)

// maxDirectionSwitches bounds re-detection eligibility (spec.md §4.2:
// "while active, and direction_switches < 2, and current type <= IP").
const maxDirectionSwitches = 2

// Transaction is one Partial Transaction. It owns a reassembly buffer and,
// once a protocol is discovered, a Parser; it never holds a pointer back
// into the connection record it updates (spec.md §9 arena+index redesign).
// Callers pass the *model.Side to credit and the *model.Record to touch on
// every call, rather than the transaction holding either.
type Transaction struct {
	state State

	Type   protocol.Type
	Parser *protocol.Parser

	buf *protocol.ReassemblyBuffer

	lastDir           model.Direction
	haveLastDir       bool
	directionSwitches int

	StartedNs int64
	EndedNs   int64
}

// New returns an idle transaction with a fresh reassembly buffer.
func New() *Transaction {
	return &Transaction{
		state: Idle,
		Type:  protocol.Unknown,
		buf:   protocol.NewReassemblyBuffer(protocol.DefaultReassemblyCap),
	}
}

// Active reports whether the transaction is currently discovering/running a
// protocol (as opposed to idle between transactions).
func (t *Transaction) Active() bool { return t.state == Active }

// reDetectEligible implements spec.md §4.2's re-run condition.
func (t *Transaction) reDetectEligible() bool {
	return t.state == Active &&
		t.directionSwitches < maxDirectionSwitches &&
		t.Type.LessOrEqualIP()
}

// Update advances the transaction by one I/O event of payload bytes in
// direction dir, observed at time now against remotePort. side is the
// connection-record side (conn.Server or conn.Client) this event's bytes
// should credit; conn is touched for LastActivityNs bookkeeping. Both may
// be nil — spec.md §8's shutdown/race scenario requires the transaction
// state to keep advancing even after the owning connection record has
// already been torn down.
func (t *Transaction) Update(now int64, dir model.Direction, payload []byte, remotePort uint16, side *model.Side, conn *model.Record) {
	if dir == model.DirClose || len(payload) == 0 {
		t.markInactive(now)
		return
	}

	if t.state == Idle {
		t.state = Active
		t.StartedNs = now
		t.directionSwitches = 0
		t.haveLastDir = false
		t.buf.Reset()
		t.Type = protocol.Unknown
		t.Parser = nil
	}

	if t.haveLastDir && dir != t.lastDir {
		t.directionSwitches++
	}
	t.lastDir = dir
	t.haveLastDir = true

	if t.reDetectEligible() {
		t.buf.Append(payload)
		newType, parser := protocol.Detect(t.buf, remotePort)
		if newType > t.Type {
			t.Type = newType
			t.Parser = parser
		}
	}
	if t.Parser != nil {
		t.Parser.Feed(payload)
	}

	if side != nil {
		side.Credit(dir, len(payload))
	}
	if conn != nil {
		conn.Touch(now)
	}
}

// markInactive transitions the transaction back to idle (spec.md §4.2
// mark_inactive), e.g. on socket shutdown or a zero-length recv.
func (t *Transaction) markInactive(now int64) {
	if t.state == Idle {
		return
	}
	t.state = Idle
	t.EndedNs = now
}

// DirectionSwitches reports the number of direction flips observed during
// the current (or most recently completed) active span.
func (t *Transaction) DirectionSwitches() int { return t.directionSwitches }
