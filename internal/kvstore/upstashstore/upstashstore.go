// Package upstashstore implements kvstore.Store against the Upstash Redis REST
// API using github.com/go-resty/resty/v2 (the same HTTP client library the
// upstream mfapi client uses) — the HTTP-based key-value backend variant.
//
// Upstash's REST surface has no WATCH/MULTI/EXEC, so true server-side atomicity
// isn't available the way the Lua script gives the standard Redis backend.
// Instead this backend uses Redis's atomic "SET key value GET" (set-and-return-
// previous-value in a single round trip) as a swap primitive and layers an
// optimistic compare-and-swap retry loop on top of it: if the value SET...GET
// hands back as "previous" doesn't match what this call originally read, another
// worker raced it, and the whole refill-consume computation is redone against
// the fresher state.
package upstashstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/marlonfan/mfnav/internal/kvstore"
)

const (
	bucketTTLSeconds = 2 * 60 * 60
	maxCASRetries    = 8
)

// Store implements kvstore.Store against the Upstash REST API.
type Store struct {
	client *resty.Client
	url    string
	token  string
}

// New builds an Upstash-backed store. restURL and restToken come from the
// UPSTASH_REDIS_REST_URL / UPSTASH_REDIS_REST_TOKEN environment variables.
func New(restURL, restToken string) *Store {
	client := resty.New().SetTimeout(5 * time.Second)
	return &Store{client: client, url: restURL, token: restToken}
}

type restResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (s *Store) command(ctx context.Context, args ...interface{}) (json.RawMessage, error) {
	var out restResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		SetBody(args).
		SetResult(&out).
		Post(s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kvstore.ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: upstash status %d", kvstore.ErrUnavailable, resp.StatusCode())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", kvstore.ErrUnavailable, out.Error)
	}
	return out.Result, nil
}

type record struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"last_refill"`
}

func decodeRecord(raw json.RawMessage) (rec record, present bool) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return record{}, false
	}
	if err := json.Unmarshal([]byte(*s), &rec); err != nil {
		return record{}, false
	}
	return rec, true
}

// Consume performs the optimistic-CAS refill-and-consume loop described in the
// package doc.
func (s *Store) Consume(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, bool, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		getRaw, err := s.command(ctx, "GET", key)
		if err != nil {
			return kvstore.BucketState{}, false, err
		}
		before, existed := decodeRecord(getRaw)
		current := kvstore.BucketState{Tokens: capacity, LastRefill: nowMS}
		if existed {
			current = kvstore.BucketState{Tokens: before.Tokens, LastRefill: before.LastRefill}
		}

		newTokens, refilled := kvstore.Refill(current, capacity, refillRate, intervalMS, nowMS)
		newState := kvstore.BucketState{Tokens: newTokens, LastRefill: current.LastRefill}
		if refilled {
			newState.LastRefill = nowMS
		}
		consumed := false
		if newTokens >= 1 {
			newState.Tokens = newTokens - 1
			consumed = true
		}

		payload, _ := json.Marshal(record{Tokens: newState.Tokens, LastRefill: newState.LastRefill})
		setRaw, err := s.command(ctx, "SET", key, string(payload), "GET")
		if err != nil {
			return kvstore.BucketState{}, false, err
		}
		prevSeenBySwap, swapExisted := decodeRecord(setRaw)

		raced := existed != swapExisted ||
			(existed && (prevSeenBySwap.Tokens != before.Tokens || prevSeenBySwap.LastRefill != before.LastRefill))
		if raced {
			continue // someone else touched the bucket between our GET and SET; retry
		}

		if _, err := s.command(ctx, "EXPIRE", key, bucketTTLSeconds); err != nil {
			return kvstore.BucketState{}, false, err
		}
		return newState, consumed, nil
	}
	return kvstore.BucketState{}, false, fmt.Errorf("upstashstore: exhausted %d CAS retries for %s", maxCASRetries, key)
}

// Peek reads the bucket and applies the refill math without writing anything
// back.
func (s *Store) Peek(ctx context.Context, key string, capacity, refillRate float64, intervalMS, nowMS int64) (kvstore.BucketState, error) {
	getRaw, err := s.command(ctx, "GET", key)
	if err != nil {
		return kvstore.BucketState{}, err
	}
	before, existed := decodeRecord(getRaw)
	current := kvstore.BucketState{Tokens: capacity, LastRefill: nowMS}
	if existed {
		current = kvstore.BucketState{Tokens: before.Tokens, LastRefill: before.LastRefill}
	}
	newTokens, refilled := kvstore.Refill(current, capacity, refillRate, intervalMS, nowMS)
	lastRefill := current.LastRefill
	if refilled {
		lastRefill = nowMS
	}
	return kvstore.BucketState{Tokens: newTokens, LastRefill: lastRefill}, nil
}
