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

// Package main is the hostcapd daemon entry point: it wires an
// internal/engine.Engine to a decoded-event source, an admin HTTP surface,
// and an optional Prometheus /metrics endpoint, then runs until signaled.
//
// There is no real kernel-event source in this repo — spec.md §1 scopes
// driver capture out entirely — so this binary always runs against
// ports/fakesource.Source whatever capture_mode says (NODRIVER is the
// default). That source produces no events of its own, and neither this
// binary nor the admin surface pushes events into it, so flush ticks
// carry no connection data.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostcap/internal/admin"
	"hostcap/internal/config"
	"hostcap/internal/engine"
	"hostcap/internal/logging"
	"hostcap/internal/notify"
	"hostcap/internal/ports/fakesource"
	"hostcap/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; HOSTCAP_* env vars and defaults still apply)")
	adminAddr := flag.String("admin_addr", ":8090", "HTTP listen address for the /admin and /metrics surface")
	metricsEnabled := flag.Bool("metrics", true, "Enable Prometheus self-observability metrics")
	eventQueueCapacity := flag.Int("event_queue_capacity", 4096, "Capacity of the fake decoded-event source's internal buffer")
	flag.Parse()

	log := logging.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	telemetry.Enable(*metricsEnabled)

	src := fakesource.New(*eventQueueCapacity)

	var notifyClient notify.Evaler
	if cfg.Notify.Enabled && cfg.Notify.Addr != "" {
		redisEvaler := notify.NewGoRedisEvaler(cfg.Notify.Addr)
		defer redisEvaler.Close()
		notifyClient = redisEvaler
	}

	e := engine.New(*cfg, src, noLocalAddresses{}, nil, notifyClient, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)

	mux := http.NewServeMux()
	adminServer := admin.NewServer(engineAdapter{e}, func() int64 { return time.Now().UnixNano() })
	adminServer.RegisterRoutes(mux)
	if telemetry.Enabled() {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:         *adminAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Printf("hostcapd admin surface listening on %s\n", *adminAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin http server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down hostcapd...")

	cancel()
	e.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin http server shutdown failed", "err", err)
	}

	fmt.Println("hostcapd stopped.")
}

// noLocalAddresses is the zero-config LocalAddressChecker: every address is
// treated as remote, the conservative default for patch_network_role's
// last-resort heuristic when no host-address table has been supplied.
type noLocalAddresses struct{}

func (noLocalAddresses) IsLocal(addr [4]byte) bool { return false }

// engineAdapter narrows *engine.Engine to admin.Engine so the admin package
// doesn't need to import hostcap/internal/engine.
type engineAdapter struct{ e *engine.Engine }

func (a engineAdapter) CurrentStats() admin.Stats {
	s := a.e.CurrentStats()
	return admin.Stats{
		SerializationsCompleted: s.SerializationsCompleted,
		FlushQueueLen:           s.FlushQueueLen,
		FlushQueueDrops:         s.FlushQueueDrops,
		OutputQueueLen:          s.OutputQueueLen,
		OutputQueueDrops:        s.OutputQueueDrops,
		WatchdogAlive:           s.WatchdogAlive,
	}
}

func (a engineAdapter) FlushNow(nowNs int64) { a.e.FlushNow(nowNs) }
func (a engineAdapter) Drain()               { a.e.Drain() }
