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

// Package fdlistener implements the FD Listener of spec.md §4.4: the
// synchronous, single-goroutine dispatcher that turns decoded events into
// connection-table mutations and transaction updates. Every On* method
// is meant to be called from one "event thread" goroutine, mirroring the
// teacher's tfd.Pipeline.Handle façade that routes an already-classified
// envelope to the right lane without spawning goroutines of its own.
package fdlistener

import (
	"hostcap/internal/conntable"
	"hostcap/internal/logging"
	"hostcap/internal/model"
	"hostcap/internal/ports"
	"hostcap/internal/transaction"
)

// fdKey identifies one thread's file descriptor; the FD Listener keeps its
// FDInfo and transaction side tables keyed by this pair rather than
// embedding them in the event itself (spec.md §9 arena+index redesign).
type fdKey struct {
	TID, FD int64
}

// Listener is the FD Listener. It owns no goroutine; callers drive it
// synchronously from their own event-dispatch loop.
type Listener struct {
	tables *conntable.Tables
	local  ports.LocalAddressChecker
	log    logging.SLogger

	fdinfos      map[fdKey]*model.FDInfo
	transactions map[fdKey]*transaction.Transaction
	fileStats    map[fdKey]*model.FileStat
}

// New returns a Listener dispatching into tables, using local to resolve
// patch_network_role's local-address checks.
func New(tables *conntable.Tables, local ports.LocalAddressChecker, log logging.SLogger) *Listener {
	if log == nil {
		log = logging.Default()
	}
	return &Listener{
		tables:       tables,
		local:        local,
		log:          log,
		fdinfos:      make(map[fdKey]*model.FDInfo),
		transactions: make(map[fdKey]*transaction.Transaction),
		fileStats:    make(map[fdKey]*model.FileStat),
	}
}

func (l *Listener) fdInfo(k fdKey) (*model.FDInfo, bool) {
	fi, ok := l.fdinfos[k]
	return fi, ok
}

func (l *Listener) transactionFor(k fdKey) *transaction.Transaction {
	tx, ok := l.transactions[k]
	if !ok {
		tx = transaction.New()
		l.transactions[k] = tx
	}
	return tx
}

// recordFor looks up the connection record for an FD's key, or nil if the
// FD carries no connection (e.g. a plain file).
func (l *Listener) recordFor(fi *model.FDInfo) *model.Record {
	if fi == nil || fi.Kind == model.FDRegularFile || fi.Kind == model.FDOther {
		return nil
	}
	tbl := l.tables.For(fi.Key)
	rec, _ := tbl.Get(fi.Key)
	return rec
}

// sideFor returns the Side of rec this fdKey's role should credit.
func sideFor(fi *model.FDInfo, rec *model.Record) *model.Side {
	if fi == nil || rec == nil {
		return nil
	}
	if fi.Roles.Has(model.RoleClient) {
		return &rec.Client
	}
	return &rec.Server
}

// FileStatsByName returns a snapshot of the live file-stat table keyed by
// path, the shape flush.Snapshot expects. The FD Listener itself keys
// file-stats by fdKey (one entry per open FD, per spec.md §9's arena+index
// redesign); this collapses that into the name-keyed view the flush
// pipeline consumes, merging stats for any path still open on more than
// one FD.
func (l *Listener) FileStatsByName() map[string]*model.FileStat {
	out := make(map[string]*model.FileStat, len(l.fileStats))
	for _, fs := range l.fileStats {
		if fs.Name == "" {
			continue
		}
		existing, ok := out[fs.Name]
		if !ok {
			merged := *fs
			out[fs.Name] = &merged
			continue
		}
		existing.Bytes += fs.Bytes
		existing.TimeNs += fs.TimeNs
		existing.OpenCount += fs.OpenCount
		existing.Errors += fs.Errors
	}
	return out
}
