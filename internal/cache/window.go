// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const windowPrefix = "ratelimit:"

// takeScript trims the sorted set to the window, then either records the
// hit or reports how long until the oldest hit expires. Scores are unix
// milliseconds.
var takeScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  return {0, tonumber(oldest[2]) - cutoff}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, 0}
`)

// Window is a sliding-window hit counter kept in a Valkey sorted set per
// key, shared by every instance pointed at the same server.
type Window struct {
	client *redis.Client
}

// NewWindow returns a Window on client.
func NewWindow(client *redis.Client) *Window {
	return &Window{client: client}
}

// Take records a hit for key at now unless limit hits already fall inside
// window. When refused, retry is the time until the oldest hit expires.
func (w *Window) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	res, err := takeScript.Run(ctx, w.client, []string{windowPrefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate window %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate window %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}
