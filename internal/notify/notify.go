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

// Package notify publishes an out-of-band "sample ready" marker for
// external readers of the last-sample slot, supplemented from
// SPEC_FULL.md's domain-stack wiring decision to exercise the teacher's
// Redis dependency beyond the rate limiter's own commit bookkeeping.
// Disabled by default (config.NotifyConfig.Enabled); publishing is
// idempotent per timestamp via the same SETNX-marker idiom the teacher's
// persistence.RedisPersister uses for commit dedup, so a flush tick that
// gets retried or double-delivered never double-notifies.
package notify

import (
	"context"
	"fmt"
	"time"

	"hostcap/internal/logging"
)

// Evaler abstracts the minimal Redis surface this package needs, mirroring
// the teacher's persistence.RedisEvaler so either a real
// github.com/redis/go-redis/v9 client or a test double satisfies it
// without this package importing go-redis directly.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// markerScript SETNXs a per-timestamp marker and, only on first set,
// publishes to the notification channel — the same "marker guards the
// side effect" shape as the teacher's commit script, adapted from
// HINCRBY-on-the-ledger to PUBLISH-to-subscribers.
const markerScript = `
local markerKey = KEYS[1]
local channel = KEYS[2]
local ttlSeconds = tonumber(ARGV[1])
local payload = ARGV[2]
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  redis.call('PUBLISH', channel, payload)
  return 1
else
  return 0
end
`

// MarkerKey returns the idempotency marker key for a sample timestamp.
func MarkerKey(tsNs int64) string {
	return fmt.Sprintf("notified:%d", tsNs)
}

// Publisher announces that a new sample is available in the last-sample
// slot. Disabled instances (nil client) are harmless no-ops so callers can
// wire a Publisher unconditionally and let config decide.
type Publisher struct {
	client    Evaler
	channel   string
	markerTTL time.Duration
	log       logging.SLogger
}

// NewPublisher returns a Publisher. A nil client makes Publish a no-op,
// matching config.NotifyConfig.Enabled == false.
func NewPublisher(client Evaler, channel string, markerTTL time.Duration, log logging.SLogger) *Publisher {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	if log == nil {
		log = logging.Default()
	}
	return &Publisher{client: client, channel: channel, markerTTL: markerTTL, log: log}
}

// Publish announces tsNs's sample is ready, skipping the PUBLISH if this
// timestamp was already announced (e.g. a replayed flush tick). Errors are
// logged, not returned: a failed notification must never block or fail
// the serializer's own do_serialization.
func (p *Publisher) Publish(ctx context.Context, tsNs int64) {
	if p.client == nil {
		return
	}
	keys := []string{MarkerKey(tsNs), p.channel}
	args := []interface{}{int(p.markerTTL.Seconds()), fmt.Sprintf("%d", tsNs)}
	if _, err := p.client.Eval(ctx, markerScript, keys, args...); err != nil {
		p.log.Error("notify: publish failed", "err", err, "ts_ns", tsNs)
	}
}
