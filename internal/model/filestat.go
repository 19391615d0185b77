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

package model

// FileStat is the per-absolute-path accounting entry of spec.md §3.
type FileStat struct {
	Name       string
	Bytes      uint64
	TimeNs     uint64
	OpenCount  uint64
	Errors     uint64
}

// Credit attributes n bytes of I/O time-cost timeNs to this file.
func (s *FileStat) Credit(n int, timeNs uint64) {
	if n > 0 {
		s.Bytes += uint64(n)
	}
	s.TimeNs += timeNs
}

// Opened bumps the open counter.
func (s *FileStat) Opened() { s.OpenCount++ }

// Errored bumps the error counter.
func (s *FileStat) Errored() { s.Errors++ }
