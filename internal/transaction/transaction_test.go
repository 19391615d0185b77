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

package transaction

import (
	"testing"

	"hostcap/internal/model"
	"hostcap/internal/protocol"
)

func TestUpdateGoesActiveAndDetectsHTTP(t *testing.T) {
	tx := New()
	rec := model.NewRecord(model.ConnKey{}, 0)

	tx.Update(1000, model.DirIn, []byte("GET "), 80, &rec.Server, rec)

	if !tx.Active() {
		t.Fatal("expected transaction to be active")
	}
	if tx.Type != protocol.HTTP {
		t.Fatalf("expected HTTP detection, got %s", tx.Type)
	}
	if rec.Server.InBytes != 4 || rec.Server.InOps != 1 {
		t.Fatalf("expected server side credited, got %+v", rec.Server)
	}
}

func TestMarkInactiveOnZeroLengthRecv(t *testing.T) {
	tx := New()
	tx.Update(1000, model.DirIn, []byte("x"), 80, nil, nil)
	if !tx.Active() {
		t.Fatal("expected active after first byte")
	}
	tx.Update(1001, model.DirIn, nil, 80, nil, nil)
	if tx.Active() {
		t.Fatal("expected idle after zero-length recv")
	}
}

func TestMarkInactiveOnClose(t *testing.T) {
	tx := New()
	tx.Update(1000, model.DirIn, []byte("x"), 80, nil, nil)
	tx.Update(1001, model.DirClose, nil, 80, nil, nil)
	if tx.Active() {
		t.Fatal("expected idle after DirClose")
	}
}

func TestAdvancesWithNilConnection(t *testing.T) {
	tx := New()
	// spec.md §8's shutdown/race scenario: the connection record may already
	// be gone, but the transaction state machine must still advance.
	tx.Update(1000, model.DirIn, []byte("GET "), 80, nil, nil)
	if !tx.Active() || tx.Type != protocol.HTTP {
		t.Fatalf("expected transaction to still progress without a connection, got active=%v type=%s", tx.Active(), tx.Type)
	}
}

func TestReDetectionStopsAfterTwoDirectionSwitches(t *testing.T) {
	tx := New()
	tx.Update(1000, model.DirIn, []byte("x"), 5432, nil, nil)
	tx.Update(1001, model.DirOut, []byte("y"), 5432, nil, nil)
	tx.Update(1002, model.DirIn, []byte("z"), 5432, nil, nil)
	if tx.DirectionSwitches() != 2 {
		t.Fatalf("expected 2 direction switches, got %d", tx.DirectionSwitches())
	}
	if tx.reDetectEligible() {
		t.Fatal("expected re-detection to stop once direction_switches reaches 2")
	}
}

func TestReDetectionStopsOnceTypeAboveIP(t *testing.T) {
	tx := New()
	tx.Update(1000, model.DirIn, []byte("GET "), 80, nil, nil)
	if tx.Type != protocol.HTTP {
		t.Fatalf("expected HTTP, got %s", tx.Type)
	}
	if tx.reDetectEligible() {
		t.Fatal("expected re-detection ineligible once type is above IP")
	}
}

func TestNewTransactionAfterIdleResetsState(t *testing.T) {
	tx := New()
	tx.Update(1000, model.DirIn, []byte("GET "), 80, nil, nil)
	tx.Update(1001, model.DirClose, nil, 80, nil, nil)

	tx.Update(2000, model.DirIn, []byte{0x01, 0x00, 0x00, 0x00, 0xAA}, 3306, nil, nil)
	if tx.Type != protocol.MySQL {
		t.Fatalf("expected fresh detection on next active span, got %s", tx.Type)
	}
	if tx.DirectionSwitches() != 0 {
		t.Fatalf("expected direction switches reset, got %d", tx.DirectionSwitches())
	}
}
