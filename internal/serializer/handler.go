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

// Package serializer implements the Serializer Worker of spec.md §4.5: the
// single consumer thread draining the flush queue, publishing each sample
// to a process-wide last-sample slot, and handing a serialized buffer off
// to the bounded, priority-laned output queue.
package serializer

import (
	"hostcap/internal/flush"
)

// SampleHandler is the "uncompressed sample handler" of spec.md §6:
// (ts, metrics) → serialized_buffer. Consumers outside this repo own the
// wire format; this package only calls it.
type SampleHandler interface {
	Serialize(tsNs int64, data *flush.Data) ([]byte, error)
}

// SampleHandlerFunc adapts a plain function to SampleHandler.
type SampleHandlerFunc func(tsNs int64, data *flush.Data) ([]byte, error)

func (f SampleHandlerFunc) Serialize(tsNs int64, data *flush.Data) ([]byte, error) {
	return f(tsNs, data)
}
