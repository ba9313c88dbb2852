// Package memstore is an in-process kvstore.Store used by tests in place of a
// real Redis or Upstash backend. It implements the same refill math as the two
// production backends via kvstore.Refill, guarded by a mutex instead of a
// server-side script or CAS loop, since a single test process has no
// cross-worker concurrency to defend against.
package memstore

import (
	"context"
	"sync"

	"github.com/marlonfan/mfnav/internal/kvstore"
)

// Store is a mutex-guarded map of bucket key to state.
type Store struct {
	mu      sync.Mutex
	buckets map[string]kvstore.BucketState
	// Unavailable, if set, makes every call return kvstore.ErrUnavailable, to
	// exercise the limiter's fail-open path.
	Unavailable bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]kvstore.BucketState)}
}

func (s *Store) Consume(_ context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Unavailable {
		return kvstore.BucketState{}, false, kvstore.ErrUnavailable
	}

	current, ok := s.buckets[key]
	if !ok {
		current = kvstore.BucketState{Tokens: capacity, LastRefill: nowMS}
	}
	newTokens, refilled := kvstore.Refill(current, capacity, refillRate, intervalMS, nowMS)
	lastRefill := current.LastRefill
	if refilled {
		lastRefill = nowMS
	}

	consumed := false
	if newTokens >= 1 {
		newTokens -= 1
		consumed = true
	}

	state := kvstore.BucketState{Tokens: newTokens, LastRefill: lastRefill}
	s.buckets[key] = state
	return state, consumed, nil
}

func (s *Store) Peek(_ context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Unavailable {
		return kvstore.BucketState{}, kvstore.ErrUnavailable
	}

	current, ok := s.buckets[key]
	if !ok {
		current = kvstore.BucketState{Tokens: capacity, LastRefill: nowMS}
	}
	newTokens, refilled := kvstore.Refill(current, capacity, refillRate, intervalMS, nowMS)
	lastRefill := current.LastRefill
	if refilled {
		lastRefill = nowMS
	}
	return kvstore.BucketState{Tokens: newTokens, LastRefill: lastRefill}, nil
}
