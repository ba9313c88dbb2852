// Package kvstore defines the shared key-value store contract the rate limiter
// consumes, and the atomic bucket state it exchanges with it. Two backends
// implement Store: a standard Redis backend (internal/kvstore/redisstore, atomic
// via a server-side Lua script) and an Upstash REST backend
// (internal/kvstore/upstashstore, atomic via a compare-and-swap retry loop) — the
// "polymorphism over key-value backend" design note.
package kvstore

import (
	"context"
	"errors"
)

// BucketState is the durable per-bucket record: real-valued tokens and the
// epoch-millisecond timestamp of the last refill.
type BucketState struct {
	Tokens     float64
	LastRefill int64
}

// ErrUnavailable indicates the store could not be reached. Callers (the rate
// limiter) may choose to fail open on this error per the documented failure
// policy.
var ErrUnavailable = errors.New("kvstore: unavailable")

// Store is the capability set the limiter needs: atomic refill-and-consume, and
// a non-consuming peek for the health/status endpoint. TTL refresh (2 hours,
// per spec) is the implementation's responsibility on every touch.
type Store interface {
	// Consume atomically loads the bucket named by key (initializing it at
	// {tokens: capacity, last_refill: nowMS} if absent), refills it per the
	// elapsed time since last_refill, and if the refilled token count is >= 1,
	// decrements by one and persists the result. It always persists the
	// refilled (not necessarily decremented) state. consumed reports whether a
	// token was taken.
	Consume(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (state BucketState, consumed bool, err error)

	// Peek returns the bucket's state as of nowMS, refilled but not persisted
	// and not consumed. Used for observability only.
	Peek(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (BucketState, error)
}

// Refill applies the spec's refill rule and returns the new token count and
// whether any refill actually occurred (which determines whether last_refill
// should advance). Shared by the Go-side Store implementations (memstore,
// upstashstore); redisstore repeats the same math inside its Lua script.
func Refill(current BucketState, capacity, refillRate float64, intervalMS, nowMS int64) (newTokens float64, refilled bool) {
	elapsed := nowMS - current.LastRefill
	if elapsed <= 0 {
		return current.Tokens, false
	}
	tokensToAdd := float64(elapsed) / float64(intervalMS) * refillRate
	// floor, per spec's refill rule
	tokensToAdd = float64(int64(tokensToAdd))
	if tokensToAdd <= 0 {
		return current.Tokens, false
	}
	newTokens = current.Tokens + tokensToAdd
	if newTokens > capacity {
		newTokens = capacity
	}
	return newTokens, true
}

// WaitMillis computes the ceiling wait, in milliseconds, until at least one
// token would be available given refillRate tokens per intervalMS.
func WaitMillis(tokens, refillRate float64, intervalMS int64) int64 {
	if tokens >= 1 {
		return 0
	}
	deficit := 1 - tokens
	ms := deficit / refillRate * float64(intervalMS)
	whole := int64(ms)
	if float64(whole) < ms {
		whole++
	}
	return whole
}
