// Package ratelimiter implements the three-bucket token bucket rate limiter
// (per_second, per_minute, per_hour) described in the design: atomic
// consume/refill against a shared kvstore.Store, sequential bucket checks with
// an accepted partial-consumption hazard, and a fail-open policy on store
// unavailability.
package ratelimiter

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/marlonfan/mfnav/internal/config"
	"github.com/marlonfan/mfnav/internal/kvstore"
)

// bucketName identifies one of the three quota windows.
type bucketName string

const (
	perSecond bucketName = "per_second"
	perMinute bucketName = "per_minute"
	perHour   bucketName = "per_hour"

	// jitterMaxMS is added to each wait in WaitForToken to avoid a thundering
	// herd of workers retrying in lockstep.
	jitterMaxMS = 50
)

// KeyPrefix namespaces every bucket key this limiter touches in the shared
// store, so multiple deployments can share one Redis/Upstash instance safely.
const KeyPrefix = "ratelimit:mfapi:"

// bucketSpec pairs a bucket's name with its configured capacity/refill.
type bucketSpec struct {
	name       bucketName
	capacity   float64
	refillRate float64
	intervalMS int64
}

// BucketStatus is the read-only snapshot returned by Status.
type BucketStatus struct {
	Name       string  `json:"name"`
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"last_refill_ms"`
}

// Limiter coordinates the three buckets against a shared kvstore.Store. Checks
// run most-restrictive-first (per_second, then per_minute, then per_hour) so
// the partial-consumption hazard is amortized against the bucket callers will
// exhaust first anyway.
type Limiter struct {
	store   kvstore.Store
	buckets []bucketSpec

	failOpenCount atomic.Int64
}

// New builds a Limiter from the rate-limit section of the service config.
func New(store kvstore.Store, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		store: store,
		buckets: []bucketSpec{
			{perSecond, cfg.PerSecond.Capacity, cfg.PerSecond.RefillRate, cfg.PerSecond.IntervalMS},
			{perMinute, cfg.PerMinute.Capacity, cfg.PerMinute.RefillRate, cfg.PerMinute.IntervalMS},
			{perHour, cfg.PerHour.Capacity, cfg.PerHour.RefillRate, cfg.PerHour.IntervalMS},
		},
	}
}

// FailOpenCount reports how many times Acquire has fail-opened because the
// store was unreachable — the observability signal the design requires.
func (l *Limiter) FailOpenCount() int64 {
	return l.failOpenCount.Load()
}

// Acquire attempts to consume one token from every bucket. It returns
// allowed=true only if all three buckets yielded a token; otherwise waitMS is
// the maximum of the individual buckets' wait times. On a transient store
// error the limiter fails open (allowed=true) and increments the fail-open
// counter rather than blocking ingestion on a limiter outage.
func (l *Limiter) Acquire(ctx context.Context) (allowed bool, waitMS int64, err error) {
	nowMS := time.Now().UnixMilli()
	allowed = true
	var maxWait int64

	for _, b := range l.buckets {
		key := KeyPrefix + string(b.name)
		state, consumed, cerr := l.store.Consume(ctx, key, b.capacity, b.refillRate, b.intervalMS, nowMS)
		if cerr != nil {
			l.failOpenCount.Add(1)
			log.Printf("[RateLimiter] store unavailable for bucket %s, failing open: %v", b.name, cerr)
			return true, 0, nil
		}
		if !consumed {
			allowed = false
			w := kvstore.WaitMillis(state.Tokens, b.refillRate, b.intervalMS)
			if w > maxWait {
				maxWait = w
			}
		}
	}

	if !allowed {
		return false, maxWait, nil
	}
	return true, 0, nil
}

// WaitForToken loops Acquire, sleeping the returned wait plus jitter, until it
// succeeds or deadline elapses. deadline <= 0 uses the spec's 300s default.
func (l *Limiter) WaitForToken(ctx context.Context, deadline time.Duration) error {
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for {
		allowed, waitMS, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		sleep := time.Duration(waitMS)*time.Millisecond + time.Duration(rand.Intn(jitterMaxMS))*time.Millisecond
		select {
		case <-ctx.Done():
			return fmt.Errorf("ratelimiter: WaitForToken deadline exceeded after %s: %w", deadline, ctx.Err())
		case <-time.After(sleep):
		}
	}
}

// Status returns a non-consuming snapshot of every bucket, for the health
// endpoint.
func (l *Limiter) Status(ctx context.Context) ([]BucketStatus, error) {
	nowMS := time.Now().UnixMilli()
	out := make([]BucketStatus, 0, len(l.buckets))
	for _, b := range l.buckets {
		key := KeyPrefix + string(b.name)
		state, err := l.store.Peek(ctx, key, b.capacity, b.refillRate, b.intervalMS, nowMS)
		if err != nil {
			return nil, err
		}
		out = append(out, BucketStatus{Name: string(b.name), Tokens: state.Tokens, LastRefill: state.LastRefill})
	}
	return out, nil
}
