package cache

import (
	"context"
	"errors"
	"time"
)

// ErrRequestInProgress is returned while the first request with a key is still running
var ErrRequestInProgress = errors.New("a request with this idempotency key is in progress")

const inFlight = "\x00pending"

// Idempotency remembers the result of requests carrying an idempotency key
type Idempotency struct {
	store Store
	ttl   time.Duration
}

// NewIdempotency creates an Idempotency that keeps results for ttl
func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{store: store, ttl: ttl}
}

// Begin claims key. When the key was already completed it returns the stored
// result and started=false; when another request holds it, ErrRequestInProgress.
func (i *Idempotency) Begin(ctx context.Context, key string) (result string, started bool, err error) {
	ok, err := i.store.SetNX(ctx, key, inFlight, i.ttl)
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	value, found, err := i.store.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !found {
		// expired between the two calls
		return i.Begin(ctx, key)
	}
	if value == inFlight {
		return "", false, ErrRequestInProgress
	}
	return value, false, nil
}

// Finish stores the result of a claimed key
func (i *Idempotency) Finish(ctx context.Context, key, result string) error {
	return i.store.Set(ctx, key, result, i.ttl)
}

// Abort releases a claimed key so the request can be retried
func (i *Idempotency) Abort(ctx context.Context, key string) error {
	return i.store.Delete(ctx, key)
}
