// Package ratelimit throttles admin callers per key over a sliding window.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "modelplan:rl:"

// Window is a request budget over a period.
type Window struct {
	Limit  int64
	Period time.Duration
}

// PerMinute returns a window of rpm requests per minute.
func PerMinute(rpm int) Window {
	return Window{Limit: int64(rpm), Period: time.Minute}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter keeps one Redis sorted set per subject. Without Redis every
// check is admitted.
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// admitScript trims the set to the window, admits the call when there is
// room and reports the count plus the oldest score still in the window.
// KEYS[1] subject set; ARGV: window start, now (unix micro), limit, ttl seconds.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local floor = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', floor)
local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
    redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
    count = count + 1
    admitted = 1
end
redis.call('EXPIRE', key, tonumber(ARGV[4]))

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
    first = tonumber(oldest[2])
end
return {count, admitted, first}
`)

// Allow records a call by subject against w.
func (l *Limiter) Allow(ctx context.Context, subject string, w Window) (Decision, error) {
	now := l.now()
	if l.rdb == nil {
		return Decision{Allowed: true, Remaining: max(w.Limit-1, 0), ResetAt: now.Add(w.Period)}, nil
	}

	res, err := admitScript.Run(ctx, l.rdb, []string{keyPrefix + subject},
		now.Add(-w.Period).UnixMicro(), now.UnixMicro(), w.Limit, int64(w.Period.Seconds())+1,
	).Int64Slice()
	if err != nil || len(res) != 3 {
		slog.Warn("rate limit check failed, admitting", "subject", subject, "error", err)
		return Decision{Allowed: true, Remaining: w.Limit, ResetAt: now.Add(w.Period)}, nil
	}

	return decide(now, w, res[0], res[1] == 1, time.UnixMicro(res[2])), nil
}

// decide turns the window state into a Decision. The window frees a slot
// when its oldest entry ages out.
func decide(now time.Time, w Window, count int64, admitted bool, oldest time.Time) Decision {
	d := Decision{
		Allowed:   admitted,
		Remaining: max(w.Limit-count, 0),
		ResetAt:   oldest.Add(w.Period),
	}
	if !admitted {
		d.RetryAfter = max(d.ResetAt.Sub(now), time.Second)
	}
	return d
}
