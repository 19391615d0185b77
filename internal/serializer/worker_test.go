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

package serializer

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hostcap/internal/flush"
	"hostcap/internal/queue"
)

func nopHandler() SampleHandler {
	return SampleHandlerFunc(func(tsNs int64, data *flush.Data) ([]byte, error) {
		return []byte("serialized"), nil
	})
}

func TestFlushQueueBackpressureThenDrainCompletesAll(t *testing.T) {
	in := queue.New[*flush.Data](1000)
	out := queue.NewPriorityQueue[[]byte](2000)
	last := NewLastSample()

	var drops int
	for i := 0; i < 1001; i++ {
		if !in.TryPut(&flush.Data{TsNs: int64(i)}) {
			drops++
		}
	}
	if drops != 1 {
		t.Fatalf("expected exactly one overflow drop, got %d", drops)
	}

	w := New(in, out, nopHandler(), last, Options{ReadTimeout: 10 * time.Millisecond})
	if w.NumSerializationsCompleted() != 0 {
		t.Fatalf("expected 0 completions before the serializer runs, got %d", w.NumSerializationsCompleted())
	}

	w.Start()
	w.Drain()

	if in.Len() != 0 {
		t.Fatalf("expected queue to drain to 0, got %d", in.Len())
	}
	if got := w.NumSerializationsCompleted(); got != 1000 {
		t.Fatalf("expected 1000 completions, got %d", got)
	}
	w.Stop()
}

func TestDoSerializationPublishesLastSampleAndMarksSent(t *testing.T) {
	in := queue.New[*flush.Data](4)
	out := queue.NewPriorityQueue[[]byte](4)
	last := NewLastSample()
	w := New(in, out, nopHandler(), last, Options{ReadTimeout: 10 * time.Millisecond})

	data := &flush.Data{TsNs: 42}
	w.Start()
	defer w.Stop()
	in.Put(data)
	w.Drain()

	time.Sleep(20 * time.Millisecond) // let the single in-flight iteration finish publishing
	if last.Load() != data {
		t.Fatal("expected last-sample slot to hold the published data")
	}
	if !data.Sent() {
		t.Fatal("expected metrics_sent to be set")
	}
}

func TestSerializationFailureDropsItemWithoutCrashing(t *testing.T) {
	in := queue.New[*flush.Data](4)
	out := queue.NewPriorityQueue[[]byte](4)
	last := NewLastSample()
	handler := SampleHandlerFunc(func(tsNs int64, data *flush.Data) ([]byte, error) {
		return nil, errors.New("boom")
	})
	w := New(in, out, handler, last, Options{ReadTimeout: 10 * time.Millisecond})

	w.Start()
	defer w.Stop()
	in.Put(&flush.Data{TsNs: 1})
	w.Drain()
	time.Sleep(20 * time.Millisecond)

	if w.NumSerializationsCompleted() != 0 {
		t.Fatalf("expected no completions on serialization failure, got %d", w.NumSerializationsCompleted())
	}
}

func TestHeartbeatCalledOnEveryLoopIteration(t *testing.T) {
	in := queue.New[*flush.Data](4)
	out := queue.NewPriorityQueue[[]byte](4)
	last := NewLastSample()

	var beats atomic.Int64
	w := New(in, out, nopHandler(), last, Options{
		ReadTimeout: 5 * time.Millisecond,
		Heartbeat:   func() { beats.Add(1) },
	})

	w.Start()
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	if beats.Load() == 0 {
		t.Fatal("expected heartbeat to be called at least once")
	}
}

func TestStopClearsQueueAndNullsLastSample(t *testing.T) {
	in := queue.New[*flush.Data](4)
	out := queue.NewPriorityQueue[[]byte](4)
	last := NewLastSample()
	last.Store(&flush.Data{TsNs: 7})

	w := New(in, out, nopHandler(), last, Options{ReadTimeout: 5 * time.Millisecond})
	w.Start()
	w.Stop()

	if last.Load() != nil {
		t.Fatal("expected last-sample slot to be nulled after Stop")
	}
}
