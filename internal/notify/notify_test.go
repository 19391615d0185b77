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

package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeEvaler is an in-memory stand-in for a Redis client, mirroring the
// marker semantics the Lua script expects: SETNX then PUBLISH-on-first-set.
type fakeEvaler struct {
	markers   map[string]bool
	published []string
	failNext  bool
}

func newFakeEvaler() *fakeEvaler {
	return &fakeEvaler{markers: make(map[string]bool)}
}

func (f *fakeEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if f.failNext {
		f.failNext = false
		return nil, errors.New("eval failed")
	}
	markerKey, channel := keys[0], keys[1]
	if f.markers[markerKey] {
		return int64(0), nil
	}
	f.markers[markerKey] = true
	f.published = append(f.published, channel)
	return int64(1), nil
}

func TestPublishIsNoOpWithNilClient(t *testing.T) {
	p := NewPublisher(nil, "hostcap:samples", time.Hour, nil)
	p.Publish(context.Background(), 100) // must not panic
}

func TestPublishSkipsSecondPublishForSameTimestamp(t *testing.T) {
	ev := newFakeEvaler()
	p := NewPublisher(ev, "hostcap:samples", time.Hour, nil)

	p.Publish(context.Background(), 100)
	p.Publish(context.Background(), 100)

	if len(ev.published) != 1 {
		t.Fatalf("expected exactly one publish for a repeated timestamp, got %d", len(ev.published))
	}
}

func TestPublishDistinctTimestampsEachPublishOnce(t *testing.T) {
	ev := newFakeEvaler()
	p := NewPublisher(ev, "hostcap:samples", time.Hour, nil)

	p.Publish(context.Background(), 100)
	p.Publish(context.Background(), 200)

	if len(ev.published) != 2 {
		t.Fatalf("expected two distinct publishes, got %d", len(ev.published))
	}
}

func TestPublishErrorDoesNotPanic(t *testing.T) {
	ev := newFakeEvaler()
	ev.failNext = true
	p := NewPublisher(ev, "hostcap:samples", time.Hour, nil)
	p.Publish(context.Background(), 100) // logs and returns, never panics
}

func TestMarkerKeyFormat(t *testing.T) {
	if got, want := MarkerKey(42), "notified:42"; got != want {
		t.Fatalf("expected marker key %q, got %q", want, got)
	}
}
