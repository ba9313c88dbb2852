// Package redisstore implements kvstore.Store against a standard Redis server
// using a server-side Lua script for the atomic read-refill-consume-write
// sequence the rate limiter needs.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/marlonfan/mfnav/internal/kvstore"
)

const bucketTTL = 2 * 60 * 60 // 2 hours, refreshed on every touch, per spec

// consumeScript performs the entire read-refill-consume-write sequence as one
// atomic Redis operation. Redis serializes script execution, so this is immune
// to the overshoot hazard concurrent workers would otherwise cause.
//
// KEYS[1] = bucket key
// ARGV[1] = capacity
// ARGV[2] = refill rate (tokens per interval)
// ARGV[3] = interval, milliseconds
// ARGV[4] = now, epoch milliseconds
//
// Returns {tokens_after, last_refill_after, consumed(0/1)}.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local intervalMs = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local tokens = capacity
local lastRefill = now

local existing = redis.call('HMGET', key, 'tokens', 'last_refill')
if existing[1] then
	tokens = tonumber(existing[1])
	lastRefill = tonumber(existing[2])
end

local elapsed = now - lastRefill
if elapsed > 0 then
	local toAdd = math.floor((elapsed / intervalMs) * refillRate)
	if toAdd > 0 then
		tokens = tokens + toAdd
		if tokens > capacity then
			tokens = capacity
		end
		lastRefill = now
	end
end

local consumed = 0
if tokens >= 1 then
	tokens = tokens - 1
	consumed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(lastRefill))
redis.call('EXPIRE', key, ARGV[5])

return {tostring(tokens), tostring(lastRefill), consumed}
`)

// peekScript mirrors consumeScript's refill math but never writes back and
// never decrements — used by the health/status endpoint.
var peekScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local intervalMs = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local tokens = capacity
local lastRefill = now

local existing = redis.call('HMGET', key, 'tokens', 'last_refill')
if existing[1] then
	tokens = tonumber(existing[1])
	lastRefill = tonumber(existing[2])
end

local elapsed = now - lastRefill
if elapsed > 0 then
	local toAdd = math.floor((elapsed / intervalMs) * refillRate)
	if toAdd > 0 then
		tokens = tokens + toAdd
		if tokens > capacity then
			tokens = capacity
		end
		lastRefill = now
	end
end

return {tostring(tokens), tostring(lastRefill)}
`)

// Store implements kvstore.Store against a *redis.Client.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client. Callers own the client's lifecycle.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Consume runs consumeScript. redis.Script.Run issues EVALSHA first and falls
// back to EVAL (repopulating the script cache) on a NOSCRIPT miss, which is
// exactly the "cache-miss of the script SHA must be recovered by reloading and
// retrying once" requirement — go-redis does this transparently per call.
func (s *Store) Consume(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, bool, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{key}, capacity, refillRate, intervalMS, nowMS, bucketTTL).Result()
	if err != nil {
		return kvstore.BucketState{}, false, fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return kvstore.BucketState{}, false, fmt.Errorf("redisstore: unexpected script result %#v", res)
	}
	tokens := parseFloat(vals[0])
	lastRefill := int64(parseFloat(vals[1]))
	consumed := parseFloat(vals[2]) == 1
	return kvstore.BucketState{Tokens: tokens, LastRefill: lastRefill}, consumed, nil
}

// Peek runs peekScript, which never mutates state.
func (s *Store) Peek(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, error) {
	res, err := peekScript.Run(ctx, s.rdb, []string{key}, capacity, refillRate, intervalMS, nowMS).Result()
	if err != nil {
		return kvstore.BucketState{}, fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return kvstore.BucketState{}, fmt.Errorf("redisstore: unexpected script result %#v", res)
	}
	return kvstore.BucketState{
		Tokens:     parseFloat(vals[0]),
		LastRefill: int64(parseFloat(vals[1])),
	}, nil
}

func parseFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		var f float64
		fmt.Sscanf(t, "%f", &f)
		return f
	case int64:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}
