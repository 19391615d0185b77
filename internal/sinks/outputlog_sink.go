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
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// outputLogEntry is one line of an OutputLogSink's JSONL file: the
// serialized sample buffer alongside the timestamp it was produced for,
// since the raw bytes alone carry no header a replay tool could key on.
type outputLogEntry struct {
	TsNs    int64  `json:"ts_ns"`
	Payload []byte `json:"payload"`
}

// OutputLogSink is a buffered, append-only JSONL log of every sample the
// serializer worker emits, kept for replay/audit independent of whatever
// downstream consumer drains the output queue. It is safe for concurrent
// use and satisfies ports.SampleHandler so it can be handed to
// serializer.Options.Observer directly.
type OutputLogSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewOutputLogSink opens (or creates) the file at path in append mode with
// a buffered writer. Call Close when done.
func NewOutputLogSink(path string) (*OutputLogSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &OutputLogSink{f: f, w: bufio.NewWriterSize(f, 1<<20 /*1MiB*/), path: path, lastFlush: time.Now()}, nil
}

// OnSample appends payload as a JSON line, flushing at most every 100ms to
// bound data loss on crash without flushing on every single sample.
func (s *OutputLogSink) OnSample(tsNs int64, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	if err := enc.Encode(&outputLogEntry{TsNs: tsNs, Payload: payload}); err != nil {
		_ = s.w.Flush()
		_ = enc.Encode(&outputLogEntry{TsNs: tsNs, Payload: payload})
	}
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
	}
}

// Flush forces buffered data to be written to disk.
func (s *OutputLogSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *OutputLogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadAllOutputLog reads an entire output log file back for replay or
// audit tooling.
func ReadAllOutputLog(path string) ([]outputLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []outputLogEntry
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var e outputLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, scanner.Err()
}
