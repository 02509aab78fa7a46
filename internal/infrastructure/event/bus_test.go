package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func openedEvent(t *testing.T) *landedcost.TradeOperationOpenedEvent {
	t.Helper()
	op, err := landedcost.NewTradeOperation("TO-1", valueobject.USD, landedcost.OperationMetadata{})
	require.NoError(t, err)
	return landedcost.NewTradeOperationOpenedEvent(op)
}

func startedBus(t *testing.T, logger *zap.Logger) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := startedBus(t, zap.NewNop())

	handler := newTestHandler(landedcost.EventTypeTradeOperationOpened)
	bus.Subscribe(handler)
	other := newTestHandler(landedcost.EventTypeChargeRecorded)
	bus.Subscribe(other)

	event := openedEvent(t)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
	assert.Empty(t, other.getHandled())

	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := startedBus(t, zap.NewNop())

	handler := newTestHandler(landedcost.EventTypeChargeRecorded)
	bus.Subscribe(handler, landedcost.EventTypeTradeOperationOpened)

	require.NoError(t, bus.Publish(context.Background(), openedEvent(t)))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_HandlerFailuresDoNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := startedBus(t, zap.New(core))

	failing := newTestHandler()
	failing.err = errors.New("metrics backend down")
	panicking := newTestHandler()
	panicking.panicWith = "boom"
	healthy := newTestHandler()

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), openedEvent(t), openedEvent(t))
	require.NoError(t, err)

	assert.Len(t, healthy.getHandled(), 2)
	delivered, failed := bus.Stats()
	assert.Equal(t, int64(2), delivered)
	assert.Equal(t, int64(4), failed)
	assert.Equal(t, 4, logs.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_DropsEventsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newTestHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), openedEvent(t)))
	assert.Empty(t, handler.getHandled())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), openedEvent(t)))
	assert.Len(t, handler.getHandled(), 1)

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), openedEvent(t)))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), openedEvent(t)))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), landedcost.NewTradeOperationCancelledEvent(&landedcost.TradeOperation{
				BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: uuid.New()}},
			}))
		}()
	}
	wg.Wait()

	assert.Len(t, handler.getHandled(), 10)
}
