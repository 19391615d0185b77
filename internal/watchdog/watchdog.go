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

// Package watchdog implements the liveness heartbeat the Serializer
// Worker calls on every loop iteration (spec.md §4.5 step 1). The
// original advertises liveness over a POSIX message queue to an external
// supervisor; that transport has no idiomatic Go analogue in this
// repo's dependency stack, so it is supplemented here (per SPEC_FULL.md's
// "POSIX message queue heartbeat" feature) as an in-process atomic timestamp a
// supervisor goroutine or HTTP handler can poll, grounded on the
// teacher's atomic-counter style (sync/atomic fields read without locks).
package watchdog

import (
	"sync/atomic"
	"time"
)

// Watchdog tracks the last time Heartbeat was called and reports whether
// that happened recently enough to be considered alive.
type Watchdog struct {
	lastBeatNs atomic.Int64
	timeout    time.Duration
}

// New returns a Watchdog that considers the monitored worker dead if
// Heartbeat hasn't been called within timeout (default 5s if timeout <= 0).
func New(timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &Watchdog{timeout: timeout}
	w.lastBeatNs.Store(time.Now().UnixNano())
	return w
}

// Heartbeat records that the monitored worker is alive right now.
func (w *Watchdog) Heartbeat() {
	w.lastBeatNs.Store(time.Now().UnixNano())
}

// Alive reports whether the most recent heartbeat is within the
// configured timeout of now.
func (w *Watchdog) Alive() bool {
	last := w.lastBeatNs.Load()
	return time.Since(time.Unix(0, last)) <= w.timeout
}

// LastBeat returns the timestamp (ns since epoch) of the most recent
// heartbeat.
func (w *Watchdog) LastBeat() int64 {
	return w.lastBeatNs.Load()
}
