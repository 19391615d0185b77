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

// Package queue provides the bounded flush queue and output queue of
// spec.md §4.5, generalized from the teacher's tfd.SService ingress
// channel: a fixed-capacity buffered channel, a non-blocking TryPut that
// increments a drop counter on overflow, and a blocking Put for producers
// that are allowed to wait.
package queue

import (
	"sync/atomic"
	"time"
)

// DefaultCapacity matches spec.md §4.5's flush queue default.
const DefaultCapacity = 1000

// Queue is a bounded SPSC-style queue of T. Multiple producers may call
// TryPut/Put concurrently (the underlying channel send is safe for that);
// it is Get that assumes a single consumer, matching the serializer
// worker's single-goroutine drain loop.
type Queue[T any] struct {
	ch    chan T
	drops atomic.Int64
}

// New returns a queue with the given capacity (DefaultCapacity if <= 0).
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPut attempts to enqueue v without blocking. Returns false and
// increments the drop counter by exactly one if the queue is full
// (spec.md §8: "put returns false and drop count increments by exactly
// 1").
func (q *Queue[T]) TryPut(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		q.drops.Add(1)
		return false
	}
}

// Put enqueues v, blocking until there is room.
func (q *Queue[T]) Put(v T) {
	q.ch <- v
}

// Get blocks for up to timeout waiting for an item. ok is false on timeout.
func (q *Queue[T]) Get(timeout time.Duration) (v T, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v = <-q.ch:
		return v, true
	case <-timer.C:
		return v, false
	}
}

// TryGet is Get's non-blocking counterpart, used to drain remaining items
// during shutdown without waiting out a full timeout per item.
func (q *Queue[T]) TryGet() (v T, ok bool) {
	select {
	case v = <-q.ch:
		return v, true
	default:
		return v, false
	}
}

// Len reports the number of items currently buffered.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Drops reports the cumulative number of TryPut calls that found the queue
// full.
func (q *Queue[T]) Drops() int64 { return q.drops.Load() }
