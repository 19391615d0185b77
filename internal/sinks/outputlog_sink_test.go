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

package sinks

import (
	"path/filepath"
	"testing"
)

func TestOutputLogSinkAppendsAndReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")
	s, err := NewOutputLogSink(path)
	if err != nil {
		t.Fatalf("NewOutputLogSink: %v", err)
	}

	s.OnSample(1, []byte("first"))
	s.OnSample(2, []byte("second"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := ReadAllOutputLog(path)
	if err != nil {
		t.Fatalf("ReadAllOutputLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].TsNs != 1 || string(entries[0].Payload) != "first" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].TsNs != 2 || string(entries[1].Payload) != "second" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestOutputLogSinkFlushIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")
	s, err := NewOutputLogSink(path)
	if err != nil {
		t.Fatalf("NewOutputLogSink: %v", err)
	}
	defer s.Close()

	s.OnSample(1, []byte("x"))
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
}
