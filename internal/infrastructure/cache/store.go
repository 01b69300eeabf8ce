// Package cache provides the key/value store behind report caching,
// checkout idempotency and lookups shared across requests.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a string key/value store with per-key expiration
type Store interface {
	// Get returns the value of key; ok is false when the key is missing or expired
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets key only when it does not exist and reports whether it did
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON decodes the JSON value of key into dest
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value encoded as JSON
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw), ttl)
}
