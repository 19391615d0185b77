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

// Package sinks writes the optional sample dump spec.md §6 describes:
// one file per flush tick under {root_dir}/metrics/, named by its
// timestamp, as either wire-format protobuf or pretty-printed JSON
// (SPEC_FULL.md open question #3's decision). Grounded on the teacher's
// SBatchFileSink: a buffered writer, best-effort flush, non-fatal on
// error (spec.md §7: "I/O errors during optional file dump: logged; not
// fatal").
package sinks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"hostcap/internal/flush"
	"hostcap/internal/logging"
	"hostcap/internal/model"
)

// FileSink writes one file per flush tick to rootDir/metrics/. Unlike the
// teacher's single long-lived append-mode file, each flush is its own
// file, so there is no persistent *os.File or buffered writer to keep
// open between calls.
type FileSink struct {
	rootDir string
	asJSON  bool
	log     logging.SLogger
}

// NewFileSink returns a sink writing under rootDir/metrics/. When asJSON
// is true, samples are written as pretty-printed JSON (.json); otherwise
// as wire-format protobuf (.pb) — spec.md §6's emit_protobuf_json switch.
func NewFileSink(rootDir string, asJSON bool, log logging.SLogger) *FileSink {
	if log == nil {
		log = logging.Default()
	}
	return &FileSink{rootDir: rootDir, asJSON: asJSON, log: log}
}

// Write dumps data to its own file. Errors are logged, never returned as
// fatal, matching spec.md §7's "I/O errors during optional file dump:
// logged; not fatal".
func (s *FileSink) Write(data *flush.Data) {
	dir := filepath.Join(s.rootDir, "metrics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("sample dump: create metrics dir failed", "err", err, "dir", dir)
		return
	}

	ext := "pb"
	if s.asJSON {
		ext = "json"
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.%s", data.TsNs, ext))

	f, err := os.Create(path)
	if err != nil {
		s.log.Error("sample dump: create file failed", "err", err, "path", path)
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if s.asJSON {
		if err := s.writeJSON(w, data); err != nil {
			s.log.Error("sample dump: encode JSON failed", "err", err, "path", path)
		}
		return
	}
	if err := s.writeProtobuf(w, data); err != nil {
		s.log.Error("sample dump: encode protobuf failed", "err", err, "path", path)
	}
}

func (s *FileSink) writeJSON(w *bufio.Writer, data *flush.Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toStruct(data))
}

func (s *FileSink) writeProtobuf(w *bufio.Writer, data *flush.Data) error {
	st, err := structpb.NewStruct(toStruct(data))
	if err != nil {
		return err
	}
	b, err := proto.Marshal(st)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// toStruct flattens a flush.Data into a plain map so it can be fed either
// to encoding/json or to structpb.NewStruct without maintaining two
// parallel encodings. Opaque sample payloads like this are exactly the
// structpb.Struct use case: a domain-agnostic dynamic document, not a
// fixed generated message.
func toStruct(data *flush.Data) map[string]any {
	conns := make([]any, 0, len(data.Connections))
	for _, c := range data.Connections {
		conns = append(conns, map[string]any{
			"key":    c.Key.String(),
			"comm":   c.Comm,
			"flags":  uint8(c.Flags),
			"server": sideMap(c.Server),
			"client": sideMap(c.Client),
		})
	}

	files := make([]any, 0, len(data.Files))
	for _, f := range data.Files {
		files = append(files, map[string]any{
			"name":       f.Name,
			"bytes":      f.Bytes,
			"time_ns":    f.TimeNs,
			"open_count": f.OpenCount,
			"errors":     f.Errors,
		})
	}

	containers := make(map[string]any, len(data.Containers))
	for id, cm := range data.Containers {
		containers[id] = map[string]any{
			"in_bytes":  cm.InBytes,
			"out_bytes": cm.OutBytes,
			"in_ops":    cm.InOps,
			"out_ops":   cm.OutOps,
		}
	}

	return map[string]any{
		"ts_ns":       data.TsNs,
		"connections": conns,
		"files":       files,
		"containers":  containers,
	}
}

func sideMap(s model.Side) map[string]any {
	return map[string]any{
		"in_bytes": s.InBytes, "in_ops": s.InOps, "out_bytes": s.OutBytes, "out_ops": s.OutOps,
	}
}
