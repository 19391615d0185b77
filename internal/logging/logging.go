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

// Package logging declares the SLogger abstraction the rest of the engine
// is built against. Adapted from the teacher pack's nop.SLogger
// (Debug/Info only, *slog.Logger-shaped) and extended with Warn/Error:
// spec.md §7 distinguishes ERROR (serialization failures) from WARNING
// (queue overflow) from not-fatal informational logging, so two levels
// are not enough here.
package logging

import "log/slog"

// SLogger abstracts the *slog.Logger behavior the engine needs. A
// *slog.Logger satisfies this interface directly.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Default returns the default logger: discards everything, following the
// library convention of staying silent unless a caller wires in a real
// *slog.Logger.
func Default() SLogger {
	return discard{}
}

type discard struct{}

var _ SLogger = discard{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}

var _ SLogger = (*slog.Logger)(nil)
