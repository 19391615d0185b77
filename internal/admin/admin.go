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

// Package admin exposes part of the admin surface of spec.md §6 over HTTP:
// /admin/stats (which includes serializations_completed), /admin/flush,
// and /admin/drain. Start and stop are not exposed. Supplemented per
// SPEC_FULL.md's decision to give operators a remote equivalent of the
// original's CLI tool. Grounded directly on the
// teacher's api.Server: a small struct holding the thing it fronts,
// RegisterRoutes attaching handlers to a caller-owned *http.ServeMux.
package admin

import (
	"encoding/json"
	"net/http"
)

// Stats is the subset of engine.Stats this package renders; defined
// locally (rather than importing hostcap/internal/engine) so admin has no
// dependency on the engine's wiring, only on the admin.Engine interface
// below.
type Stats struct {
	SerializationsCompleted int64 `json:"serializations_completed"`
	FlushQueueLen           int   `json:"flush_queue_len"`
	FlushQueueDrops         int64 `json:"flush_queue_drops"`
	OutputQueueLen          int   `json:"output_queue_len"`
	OutputQueueDrops        int64 `json:"output_queue_drops"`
	WatchdogAlive           bool  `json:"watchdog_alive"`
}

// Engine is the narrow admin surface a *engine.Engine satisfies.
type Engine interface {
	CurrentStats() Stats
	FlushNow(nowNs int64)
	Drain()
}

// Server fronts an Engine's admin surface over HTTP.
type Server struct {
	engine Engine
	nowNs  func() int64
}

// NewServer returns an admin Server. nowNs supplies the timestamp used by
// the /admin/flush handler's FlushNow call.
func NewServer(engine Engine, nowNs func() int64) *Server {
	return &Server{engine: engine, nowNs: nowNs}
}

// RegisterRoutes attaches the admin handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/stats", s.handleStats)
	mux.HandleFunc("/admin/flush", s.handleFlush)
	mux.HandleFunc("/admin/drain", s.handleDrain)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.CurrentStats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.engine.FlushNow(s.nowNs())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	s.engine.Drain()
	w.WriteHeader(http.StatusNoContent)
}
