// Package event provides the in-process domain event bus. Handlers run either
// inline with the publisher or on a small worker pool for slow side effects
// such as issuing an NFCe.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrBusStopped is returned when an async event is published after Stop
var ErrBusStopped = errors.New("event bus stopped")

type subscription struct {
	handler shared.EventHandler
	async   bool
}

type job struct {
	ctx     context.Context
	handler shared.EventHandler
	event   shared.DomainEvent
}

// InMemoryEventBus implements shared.EventBus with in-memory pub/sub
type InMemoryEventBus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	byType   map[string][]subscription
	wildcard []subscription

	workers  int
	queue    chan job
	running  atomic.Bool
	stopped  bool
	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

// Option configures the bus
type Option func(*InMemoryEventBus)

// WithWorkers sets the number of goroutines running async handlers
func WithWorkers(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets the async buffer size
func WithQueueSize(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queue = make(chan job, n)
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	b := &InMemoryEventBus{
		logger:  logger,
		byType:  make(map[string][]subscription),
		workers: 4,
		queue:   make(chan job, 256),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler that runs inline with Publish.
// Without event types the handler's own EventTypes are used; if those are
// empty too, it receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	b.subscribe(subscription{handler: handler}, eventTypes)
}

// SubscribeAsync registers a handler that runs on the worker pool once the
// bus is started. Before Start it behaves like Subscribe.
func (b *InMemoryEventBus) SubscribeAsync(handler shared.EventHandler, eventTypes ...string) {
	b.subscribe(subscription{handler: handler, async: true}, eventTypes)
}

func (b *InMemoryEventBus) subscribe(sub subscription, eventTypes []string) {
	if len(eventTypes) == 0 {
		eventTypes = sub.handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, sub)
	}
	for _, t := range eventTypes {
		b.byType[t] = append(b.byType[t], sub)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes), zap.Bool("async", sub.async))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wildcard = without(b.wildcard, handler)
	for t, subs := range b.byType {
		if rest := without(subs, handler); len(rest) > 0 {
			b.byType[t] = rest
		} else {
			delete(b.byType, t)
		}
	}
}

func without(subs []subscription, handler shared.EventHandler) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.handler != handler {
			out = append(out, s)
		}
	}
	return out
}

func (b *InMemoryEventBus) subscriptions(eventType string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := make([]subscription, 0, len(b.byType[eventType])+len(b.wildcard))
	subs = append(subs, b.byType[eventType]...)
	return append(subs, b.wildcard...)
}

// Publish delivers events to their handlers. Inline handler errors are
// logged and never stop the remaining handlers.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		for _, sub := range b.subscriptions(ev.EventType()) {
			if sub.async && b.running.Load() {
				if err := b.enqueue(ctx, job{ctx: context.WithoutCancel(ctx), handler: sub.handler, event: ev}); err != nil {
					return err
				}
				continue
			}
			b.dispatch(ctx, sub.handler, ev)
		}
	}
	return nil
}

func (b *InMemoryEventBus) enqueue(ctx context.Context, j job) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}
	b.inflight.Add(1)
	select {
	case b.queue <- j:
		return nil
	case <-ctx.Done():
		b.inflight.Done()
		return ctx.Err()
	}
}

// Start launches the async workers
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

func (b *InMemoryEventBus) work() {
	defer b.wg.Done()
	for j := range b.queue {
		b.dispatch(j.ctx, j.handler, j.event)
		b.inflight.Done()
	}
}

// Stop waits for queued async handlers to finish or ctx to expire
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	b.running.Store(false)
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Drain blocks until every queued async handler has run. Used by tests and
// by the CLI before exiting.
func (b *InMemoryEventBus) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, ev shared.DomainEvent) {
	log := logger.Enrich(ctx, b.logger).With(
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("event handler panicked", zap.Any("panic", r))
		}
	}()

	if err := handler.Handle(ctx, ev); err != nil {
		log.Error("event handler failed", zap.Error(err))
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
