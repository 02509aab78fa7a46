package event

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
)

// Record is the self-describing form of a domain event written to the audit trail
type Record struct {
	EventType     string          `json:"event_type"`
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSerializer encodes domain events and rebuilds them from their event type
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		factories: make(map[string]func() shared.DomainEvent),
	}
}

// Register binds eventType to a constructor for its concrete event
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

// RegisterType registers *T as the concrete type of eventType
func RegisterType[T any, PT interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.Register(eventType, func() shared.DomainEvent { return PT(new(T)) })
}

// Serialize marshals the event payload
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Encode wraps a registered event into a Record
func (s *EventSerializer) Encode(event shared.DomainEvent) (Record, error) {
	if !s.IsRegistered(event.EventType()) {
		return Record{}, fmt.Errorf("unregistered event type: %s", event.EventType())
	}
	payload, err := s.Serialize(event)
	if err != nil {
		return Record{}, fmt.Errorf("serialize %s: %w", event.EventType(), err)
	}
	return Record{
		EventType:     event.EventType(),
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	}, nil
}

// Deserialize rebuilds the concrete event registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.EventType() != eventType {
		return nil, fmt.Errorf("payload carries event type %q, expected %q", event.EventType(), eventType)
	}
	return event, nil
}

// Decode rebuilds the event held by a Record
func (s *EventSerializer) Decode(rec Record) (shared.DomainEvent, error) {
	return s.Deserialize(rec.EventType, rec.Payload)
}

// IsRegistered reports whether eventType has a constructor
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.factories))
}
