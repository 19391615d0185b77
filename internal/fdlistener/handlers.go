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

package fdlistener

import (
	"hostcap/internal/model"
	"hostcap/internal/ports"
	"hostcap/internal/telemetry"
)

// OnRead implements spec.md §4.4's on_read: updates file-stat if the FD is
// a plain file, else looks up/creates the connection, credits the in
// side, and advances the transaction.
func (l *Listener) OnRead(ev ports.Event) {
	l.onIO(ev, model.DirIn)
}

// OnWrite is OnRead's symmetric counterpart for the out side.
func (l *Listener) OnWrite(ev ports.Event) {
	l.onIO(ev, model.DirOut)
}

func (l *Listener) onIO(ev ports.Event, dir model.Direction) {
	k := fdKey{TID: ev.TID, FD: ev.FD}
	fi, ok := l.fdInfo(k)
	if !ok {
		// A first-ever read/write on an FD this listener never saw an
		// accept/connect/file_create for: build its FDInfo from the event
		// itself, the same construction OnConnect/OnAccept use, so
		// ensureConnection/patch_network_role can still run (spec.md §4.4's
		// "looks up/creates the connection" for on_read/on_write).
		fi = &model.FDInfo{Kind: kindForFamily(ev.Family), Key: ev.Key}
		l.fdinfos[k] = fi
	}

	if fi.Kind == model.FDRegularFile {
		fs, ok := l.fileStats[k]
		if !ok {
			fs = &model.FileStat{}
			l.fileStats[k] = fs
		}
		fs.Credit(len(ev.Payload), uint64(ev.Now))
		return
	}

	rec := l.ensureConnection(k, fi, ev)
	tx := l.transactionFor(k)
	var side *model.Side
	if rec != nil {
		side = sideFor(fi, rec)
	}
	tx.Update(ev.Now, dir, ev.Payload, ev.RemotePort, side, rec)
}

// ensureConnection implements patch_network_role (spec.md §4.4): when a
// connection record had to be created without having observed an
// accept/connect for this FD, infer its role from the tuple and thread
// context, per spec.md's three-rule cascade.
func (l *Listener) ensureConnection(k fdKey, fi *model.FDInfo, ev ports.Event) *model.Record {
	tbl := l.tables.For(fi.Key)
	rec, ok := tbl.Get(fi.Key)
	if ok {
		return rec
	}

	isClient := l.patchNetworkRole(fi, ev)
	rec, added := tbl.Add(fi.Key, ev.Comm, ev.PID, ev.TID, ev.FD, &isClient, ev.Now)
	if !added {
		telemetry.IncConntableSaturated()
		// spec.md §4.4: "If the connection table is full at add time, the
		// event is credited to nothing; the transaction still advances."
		return nil
	}
	if isClient {
		fi.Roles |= model.RoleClient
	} else {
		fi.Roles |= model.RoleServer
	}
	return rec
}

// patchNetworkRole implements spec.md §4.4's three-rule role-inference
// cascade for a connection discovered from its first read/write.
func (l *Listener) patchNetworkRole(fi *model.FDInfo, ev ports.Event) bool {
	key := fi.Key
	if key.Kind == model.KeyIPv4 && l.local != nil {
		srcLocal := l.local.IsLocal(key.SrcIP.As4())
		dstLocal := l.local.IsLocal(key.DstIP.As4())

		switch {
		case srcLocal && !dstLocal:
			return true // local-src => CLIENT
		case dstLocal && !srcLocal:
			return false // local-dst => SERVER
		case srcLocal && dstLocal:
			// Rule 2: both local. Without a bound-port registry we fall
			// through to the last-resort heuristic below, which the spec
			// allows as the final rule in the cascade.
		}
	}

	// Rule 3: last-resort heuristic.
	if ev.Kind == ports.EventWrite {
		return true // on write => CLIENT
	}
	return false // on read => SERVER
}

// OnConnect implements spec.md §4.4's on_connect: attaches a transaction
// and replaces any prior connection with the same tuple (or reuses a
// CLOSED one), including the UDP "repeated connect supersedes" edge case.
func (l *Listener) OnConnect(ev ports.Event) {
	k := fdKey{TID: ev.TID, FD: ev.FD}
	fi := &model.FDInfo{Kind: kindForFamily(ev.Family), Key: ev.Key}
	l.fdinfos[k] = fi

	tbl := l.tables.For(ev.Key)
	if ev.Key.Kind == model.KeyIPv4 && ev.Key.Proto == model.ProtoUDP {
		// Each connect on a UDP socket supersedes the previous record for
		// the same tuple (spec.md §4.4 edge case): an immediate remove
		// followed by a fresh add achieves that without special-casing
		// Add/addExisting for UDP.
		tbl.Remove(ev.Key, true)
	}

	isClient := true
	rec, added := tbl.Add(ev.Key, ev.Comm, ev.PID, ev.TID, ev.FD, &isClient, ev.Now)
	if !added {
		telemetry.IncConntableSaturated()
		fi.AttachTransaction()
		l.transactionFor(k)
		return
	}
	_ = rec
	fi.Roles |= model.RoleClient
	fi.AttachTransaction()
	l.transactionFor(k)
}

// OnAccept implements spec.md §4.4's on_accept: inserts a server-role
// connection for the newly accepted FD and attaches its transaction.
func (l *Listener) OnAccept(ev ports.Event) {
	k := fdKey{TID: ev.TID, FD: ev.NewFD}
	fi := &model.FDInfo{Kind: kindForFamily(ev.Family), Key: ev.Key}
	l.fdinfos[k] = fi

	tbl := l.tables.For(ev.Key)
	isClient := false
	rec, added := tbl.Add(ev.Key, ev.Comm, ev.PID, ev.TID, ev.NewFD, &isClient, ev.Now)
	if !added {
		telemetry.IncConntableSaturated()
		fi.AttachTransaction()
		l.transactionFor(k)
		return
	}
	_ = rec
	fi.Roles |= model.RoleServer
	fi.AttachTransaction()
	l.transactionFor(k)
}

// OnSocketShutdown implements spec.md §4.4's on_socket_shutdown: issues
// DIR_CLOSE to the transaction and marks it inactive, only when the FD is
// transaction-bearing and active.
func (l *Listener) OnSocketShutdown(ev ports.Event) {
	k := fdKey{TID: ev.TID, FD: ev.FD}
	fi, ok := l.fdInfo(k)
	if !ok || !fi.HasTransaction() {
		return
	}
	tx, ok := l.transactions[k]
	if !ok || !tx.Active() {
		return
	}
	rec := l.recordFor(fi)
	var side *model.Side
	if rec != nil {
		side = sideFor(fi, rec)
	}
	tx.Update(ev.Now, model.DirClose, nil, ev.RemotePort, side, rec)
}

// OnEraseFD implements spec.md §4.4's on_erase_fd: issues DIR_CLOSE if the
// FD's transaction is active, and schedules the connection for deferred
// removal if the FD is a socket.
func (l *Listener) OnEraseFD(ev ports.Event) {
	k := fdKey{TID: ev.TID, FD: ev.FD}
	fi, ok := l.fdInfo(k)
	if !ok {
		return
	}

	if tx, ok := l.transactions[k]; ok && tx.Active() {
		rec := l.recordFor(fi)
		var side *model.Side
		if rec != nil {
			side = sideFor(fi, rec)
		}
		tx.Update(ev.Now, model.DirClose, nil, ev.RemotePort, side, rec)
	}

	isSocket := fi.Kind == model.FDIPv4Socket || fi.Kind == model.FDUnixSocket
	if isSocket {
		tbl := l.tables.For(fi.Key)
		if rec, ok := tbl.Get(fi.Key); ok {
			tbl.Release(fi.Key, ev.Now)
			if rec.Refcount == 0 {
				rec.MarkClosed()
			}
			tbl.Remove(fi.Key, false)
		}
	}

	delete(l.fdinfos, k)
	delete(l.transactions, k)
	delete(l.fileStats, k)
}

// OnFileCreate implements spec.md §4.4's on_file_create: bumps open_count
// or errors on the file's file-stat.
func (l *Listener) OnFileCreate(ev ports.Event) {
	k := fdKey{TID: ev.TID, FD: ev.FD}
	l.fdinfos[k] = &model.FDInfo{Kind: model.FDRegularFile}
	fs, ok := l.fileStats[k]
	if !ok {
		fs = &model.FileStat{Name: ev.FullPath}
		l.fileStats[k] = fs
	}
	if ev.ErrorCode != 0 {
		fs.Errored()
		return
	}
	fs.Opened()
}

// OnError implements spec.md §4.4's on_error: bumps errors on the file-stat
// when errorcode != 0.
func (l *Listener) OnError(ev ports.Event) {
	if ev.ErrorCode == 0 {
		return
	}
	k := fdKey{TID: ev.TID, FD: ev.FD}
	fs, ok := l.fileStats[k]
	if !ok {
		fs = &model.FileStat{}
		l.fileStats[k] = fs
	}
	fs.Errored()
}

func kindForFamily(f ports.Family) model.FDKind {
	switch f {
	case ports.FamilyINET, ports.FamilyINET6:
		return model.FDIPv4Socket
	case ports.FamilyUNIX:
		return model.FDUnixSocket
	default:
		return model.FDOther
	}
}
