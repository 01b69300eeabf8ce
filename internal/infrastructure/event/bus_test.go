package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, companyID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), companyID),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panics     bool
	block      chan struct{}
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.handled = append(h.handled, event)
	err, panics := h.err, h.panics
	h.mu.Unlock()
	if panics {
		panic("boom")
	}
	return err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("SaleCompleted")
	bus.Subscribe(handler)

	ev := newTestEvent("SaleCompleted", uuid.New())
	require.NoError(t, bus.Publish(context.Background(), ev, newTestEvent("SaleCompleted", uuid.New())))

	assert.Equal(t, 2, handler.count())
	assert.Equal(t, ev, handler.handled[0])
}

func TestInMemoryEventBus_Routing(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	sales := newTestHandler("SaleCompleted")
	other := newTestHandler("BillPaid")
	all := newTestHandler()
	bus.Subscribe(sales)
	bus.Subscribe(other)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCompleted", uuid.New())))

	assert.Equal(t, 1, sales.count())
	assert.Equal(t, 0, other.count())
	assert.Equal(t, 1, all.count(), "handler without types receives every event")
}

func TestInMemoryEventBus_FailingHandlersDoNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("SaleCompleted")
	failing.err = errors.New("handler error")
	panicking := newTestHandler("SaleCompleted")
	panicking.panics = true
	ok := newTestHandler("SaleCompleted")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(ok)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCompleted", uuid.New())))
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, ok.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("SaleCompleted")
	bus.Subscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent("SaleCompleted", uuid.New()))

	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent("SaleCompleted", uuid.New()))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_AsyncHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithWorkers(2), WithQueueSize(4))
	require.NoError(t, bus.Start(context.Background()))

	handler := newTestHandler("SaleCompleted")
	handler.block = make(chan struct{})
	bus.SubscribeAsync(handler)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newTestEvent("SaleCompleted", uuid.New())))
	// the request context going away must not cancel the async handler
	cancel()

	assert.Equal(t, 0, handler.count(), "publisher does not wait for async handlers")
	close(handler.block)
	require.True(t, bus.Drain(time.Second))
	assert.Equal(t, 1, handler.count())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	err := bus.enqueue(context.Background(), job{})
	assert.ErrorIs(t, err, ErrBusStopped)
}

func TestInMemoryEventBus_AsyncBeforeStartRunsInline(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("SaleCompleted")
	bus.SubscribeAsync(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCompleted", uuid.New())))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StopIsIdempotent(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Stop(ctx))
}
