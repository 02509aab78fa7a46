package event

import (
	"testing"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLandedCostSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLandedCostEvents(s)
	return s
}

func TestRegisterLandedCostEvents(t *testing.T) {
	serializer := newLandedCostSerializer()

	assert.ElementsMatch(t, []string{
		landedcost.EventTypeTradeOperationOpened,
		landedcost.EventTypeShipmentLineAdded,
		landedcost.EventTypeShipmentLineCorrected,
		landedcost.EventTypeChargeRecorded,
		landedcost.EventTypeChargeAllocated,
		landedcost.EventTypeChargeReconciled,
		landedcost.EventTypeTradeOperationClosed,
		landedcost.EventTypeTradeOperationCancelled,
	}, serializer.RegisteredTypes())
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := newLandedCostSerializer()
	event := &landedcost.ChargeAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(landedcost.EventTypeChargeAllocated, landedcost.AggregateTypeTradeOperation, uuid.New()),
		ChargeID:        uuid.New(),
		Amount:          decimal.RequireFromString("1000.00"),
		LineCount:       2,
	}

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":"1000"`)
	assert.Contains(t, string(data), `"line_count":2`)
	assert.Contains(t, string(data), `"aggregate_type":"TradeOperation"`)
}

func TestEventSerializer_RoundTrip_PreservesAllFields(t *testing.T) {
	serializer := newLandedCostSerializer()

	original := &landedcost.ChargeReconciledEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        uuid.New(),
			Type:      landedcost.EventTypeChargeReconciled,
			Timestamp: time.Now().UTC().Truncate(time.Second),
			AggID:     uuid.New(),
			AggType:   landedcost.AggregateTypeTradeOperation,
		},
		ChargeID:          uuid.New(),
		SupersededCharges: []uuid.UUID{uuid.New(), uuid.New()},
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize(landedcost.EventTypeChargeReconciled, data)
	require.NoError(t, err)

	event, ok := deserialized.(*landedcost.ChargeReconciledEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.True(t, original.OccurredAt().Equal(event.OccurredAt()))
	assert.Equal(t, original.ChargeID, event.ChargeID)
	assert.Equal(t, original.SupersededCharges, event.SupersededCharges)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	serializer := newLandedCostSerializer()

	_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = serializer.Deserialize(landedcost.EventTypeChargeRecorded, []byte(`invalid json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}

func TestEventSerializer_EncodeDecode(t *testing.T) {
	serializer := newLandedCostSerializer()
	opID := uuid.New()
	event := &landedcost.TradeOperationClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(landedcost.EventTypeTradeOperationClosed, landedcost.AggregateTypeTradeOperation, opID),
	}

	rec, err := serializer.Encode(event)
	require.NoError(t, err)
	assert.Equal(t, landedcost.EventTypeTradeOperationClosed, rec.EventType)
	assert.Equal(t, opID, rec.AggregateID)
	assert.Equal(t, event.EventID(), rec.EventID)

	decoded, err := serializer.Decode(rec)
	require.NoError(t, err)
	_, ok := decoded.(*landedcost.TradeOperationClosedEvent)
	assert.True(t, ok)
}

func TestEventSerializer_Encode_Unregistered(t *testing.T) {
	base := shared.NewBaseDomainEvent("Mystery", landedcost.AggregateTypeTradeOperation, uuid.New())
	_, err := NewEventSerializer().Encode(&base)
	assert.ErrorContains(t, err, "unregistered event type: Mystery")
}

func TestEventSerializer_Deserialize_TypeMismatch(t *testing.T) {
	serializer := newLandedCostSerializer()
	event := &landedcost.ChargeRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(landedcost.EventTypeChargeRecorded, landedcost.AggregateTypeTradeOperation, uuid.New()),
	}
	data, err := serializer.Serialize(event)
	require.NoError(t, err)

	_, err = serializer.Deserialize(landedcost.EventTypeTradeOperationClosed, data)
	assert.ErrorContains(t, err, "expected")
}
