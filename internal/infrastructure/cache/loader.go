package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader reads through a Store. Concurrent misses of the same key share a
// single call to the load function.
type Loader struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger
}

// NewLoader creates a Loader over store
func NewLoader(store Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// Invalidate removes cached keys
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	return l.store.Delete(ctx, keys...)
}

// Fetch returns the cached value of key or loads, caches and returns it.
// Cache failures are logged and never fail the call.
func Fetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if ok, err := GetJSON(ctx, l.store, key, &cached); err != nil {
		l.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := SetJSON(ctx, l.store, key, value, ttl); err != nil {
			l.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected type %T for %s", v, key)
	}
	return value, nil
}
