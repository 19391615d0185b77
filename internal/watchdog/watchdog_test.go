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

package watchdog

import (
	"testing"
	"time"
)

func TestFreshWatchdogIsAlive(t *testing.T) {
	w := New(time.Second)
	if !w.Alive() {
		t.Fatal("expected a freshly-created watchdog to be alive")
	}
}

func TestWatchdogGoesStaleAfterTimeout(t *testing.T) {
	w := New(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if w.Alive() {
		t.Fatal("expected watchdog to be stale after exceeding its timeout")
	}
}

func TestHeartbeatResetsStaleness(t *testing.T) {
	w := New(20 * time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	w.Heartbeat()
	time.Sleep(15 * time.Millisecond)
	if !w.Alive() {
		t.Fatal("expected heartbeat to keep the watchdog alive past the original deadline")
	}
}
