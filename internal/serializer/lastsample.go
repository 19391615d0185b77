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
	"sync/atomic"

	"hostcap/internal/flush"
)

// LastSample is the process-wide last-sample slot of spec.md §5/§6: an
// atomic shared pointer published by the serializer, read by out-of-band
// inspectors that take a snapshot reference. Re-expressed (per
// SPEC_FULL.md's Open Question decision on global state) as an explicit
// handle passed to the worker at construction, not a package-level
// singleton, so multiple engines in one process don't collide.
type LastSample struct {
	ptr atomic.Pointer[flush.Data]
}

// NewLastSample returns an empty slot.
func NewLastSample() *LastSample {
	return &LastSample{}
}

// Store publishes data as the current sample.
func (l *LastSample) Store(data *flush.Data) {
	l.ptr.Store(data)
}

// Load returns the most recently published sample, or nil if none has
// been published (or after Clear).
func (l *LastSample) Load() *flush.Data {
	return l.ptr.Load()
}

// Clear nulls the slot, matching spec.md §4.5's "the destructor ... nulls
// the last-sample slot" on worker shutdown.
func (l *LastSample) Clear() {
	l.ptr.Store(nil)
}
