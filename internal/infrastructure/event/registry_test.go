package event

import (
	"context"
	"testing"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler, landedcost.EventTypeChargeRecorded, landedcost.EventTypeChargeAllocated)

	handlers := registry.GetHandlers(landedcost.EventTypeChargeRecorded)
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	assert.Len(t, registry.GetHandlers(landedcost.EventTypeChargeAllocated), 1)
	assert.Empty(t, registry.GetHandlers(landedcost.EventTypeTradeOperationClosed))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(landedcost.EventTypeTradeOperationOpened), 1)
	assert.Len(t, registry.GetHandlers("AnyEventType"), 1)
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := newMockHandler()
	wildcard := newMockHandler()

	registry.Register(specific, landedcost.EventTypeChargeRecorded)
	registry.Register(wildcard)

	assert.Len(t, registry.GetHandlers(landedcost.EventTypeChargeRecorded), 2)

	handlers := registry.GetHandlers(landedcost.EventTypeShipmentLineAdded)
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcard, handlers[0])
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := newMockHandler()
	second := newMockHandler()
	wildcard := newMockHandler()

	registry.Register(first, landedcost.EventTypeChargeRecorded)
	registry.Register(second, landedcost.EventTypeChargeRecorded)
	registry.Register(wildcard)

	registry.Unregister(first)
	registry.Unregister(wildcard)

	handlers := registry.GetHandlers(landedcost.EventTypeChargeRecorded)
	assert.Len(t, handlers, 1)
	assert.Equal(t, second, handlers[0])
	assert.Empty(t, registry.GetHandlers("AnyEvent"))
}

func TestHandlerRegistry_Len(t *testing.T) {
	registry := NewHandlerRegistry()
	assert.Zero(t, registry.Len())

	multi := newMockHandler()
	registry.Register(multi, landedcost.EventTypeChargeRecorded, landedcost.EventTypeChargeAllocated)
	registry.Register(newMockHandler())

	assert.Equal(t, 2, registry.Len())
}

func TestHandlerRegistry_DeliversOnce(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler, landedcost.EventTypeChargeRecorded)
	registry.Register(handler, landedcost.EventTypeChargeRecorded)
	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(landedcost.EventTypeChargeRecorded), 1)
	assert.Len(t, registry.GetHandlers(landedcost.EventTypeTradeOperationClosed), 1)
	assert.Equal(t, 1, registry.Len())
}
