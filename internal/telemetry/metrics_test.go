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

package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordingIsNoOpWhileDisabled(t *testing.T) {
	Enable(false)
	before := testutil.ToFloat64(flushDropsTotal)
	AddFlushDrops(5)
	after := testutil.ToFloat64(flushDropsTotal)
	if before != after {
		t.Fatalf("expected no change while disabled, got %v -> %v", before, after)
	}
}

func TestRecordingAppliesWhileEnabled(t *testing.T) {
	Enable(true)
	defer Enable(false)
	before := testutil.ToFloat64(serializationsCompletedTotal)
	IncSerializationsCompleted()
	after := testutil.ToFloat64(serializationsCompletedTotal)
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}
