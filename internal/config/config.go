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

// Package config loads the EngineConfig recognized by spec.md §6, in
// precedence order env vars (HOSTCAP_ prefix) > YAML file > defaults,
// using the mapstructure-tag convention of the teacher pack's
// dittofs/pkg/config.Config. Command-line flags are not bound here.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CaptureMode selects where decoded events come from (spec.md §6).
type CaptureMode string

const (
	CaptureLive      CaptureMode = "LIVE"
	CaptureNoDriver  CaptureMode = "NODRIVER"
	CaptureTraceFile CaptureMode = "TRACE_FILE"
)

// EngineConfig is the full set of options spec.md §6 recognizes, plus the
// queue-capacity and shard-count knobs this expansion adds so its wired
// dependencies (the conntable shards, the bounded queues) are actually
// configurable rather than hardcoded.
type EngineConfig struct {
	EmitMetricsToFile bool `mapstructure:"emit_metrics_to_file"`
	EmitProtobufJSON  bool `mapstructure:"emit_protobuf_json"`

	MaxThreadTableSize       int           `mapstructure:"max_thread_table_size"`
	ThreadTimeout            time.Duration `mapstructure:"thread_timeout_ns"`
	InactiveThreadScanTime   time.Duration `mapstructure:"inactive_thread_scan_time_ns"`
	CaptureMode              CaptureMode   `mapstructure:"capture_mode"`
	MaxTimeouts              int           `mapstructure:"max_timeouts"`

	FlushQueueCapacity  int `mapstructure:"flush_queue_capacity"`
	OutputQueueCapacity int `mapstructure:"output_queue_capacity"`
	ConnTableShardCount int `mapstructure:"conntable_shard_count"`

	MetricsRootDir string `mapstructure:"metrics_root_dir"`

	OutputLogPath string `mapstructure:"output_log_path"`

	Notify NotifyConfig `mapstructure:"notify"`
}

// NotifyConfig controls the optional Redis sample notifier.
type NotifyConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Channel   string        `mapstructure:"channel"`
	MarkerTTL time.Duration `mapstructure:"marker_ttl"`
}

// Defaults returns the spec.md §6 default values.
func Defaults() EngineConfig {
	return EngineConfig{
		EmitMetricsToFile:      false,
		EmitProtobufJSON:       false,
		MaxThreadTableSize:     131072,
		ThreadTimeout:          60 * time.Second,
		InactiveThreadScanTime: 60 * time.Second,
		CaptureMode:            CaptureNoDriver,
		MaxTimeouts:            3,
		FlushQueueCapacity:     1000,
		OutputQueueCapacity:    1000,
		ConnTableShardCount:    16,
		MetricsRootDir:         "/var/lib/hostcap",
		Notify: NotifyConfig{
			Enabled:   false,
			Channel:   "hostcap:samples",
			MarkerTTL: 24 * time.Hour,
		},
	}
}

// Load reads configuration from an optional YAML file plus HOSTCAP_*
// environment variables, falling back to Defaults() for anything unset.
// configPath may be empty, in which case only env vars and defaults apply.
func Load(configPath string) (*EngineConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("HOSTCAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows about, so every option
	// is bound to its HOSTCAP_* variable explicitly.
	for _, key := range []string{
		"emit_metrics_to_file", "emit_protobuf_json", "max_thread_table_size",
		"thread_timeout_ns", "inactive_thread_scan_time_ns", "capture_mode",
		"max_timeouts", "flush_queue_capacity", "output_queue_capacity",
		"conntable_shard_count", "metrics_root_dir", "output_log_path",
		"notify.enabled", "notify.addr", "notify.channel", "notify.marker_ttl",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// durationDecodeHook lets duration-valued fields be set from human-readable
// strings ("60s") in addition to raw nanosecond integers, matching the
// teacher pack's dittofs config decode hooks.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
