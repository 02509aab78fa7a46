package event

import "github.com/erp/landedcost/internal/domain/landedcost"

// RegisterLandedCostEvents registers the landed cost event types with the serializer
func RegisterLandedCostEvents(s *EventSerializer) {
	RegisterType[landedcost.TradeOperationOpenedEvent](s, landedcost.EventTypeTradeOperationOpened)
	RegisterType[landedcost.ShipmentLineAddedEvent](s, landedcost.EventTypeShipmentLineAdded)
	RegisterType[landedcost.ShipmentLineCorrectedEvent](s, landedcost.EventTypeShipmentLineCorrected)
	RegisterType[landedcost.ChargeRecordedEvent](s, landedcost.EventTypeChargeRecorded)
	RegisterType[landedcost.ChargeAllocatedEvent](s, landedcost.EventTypeChargeAllocated)
	RegisterType[landedcost.ChargeReconciledEvent](s, landedcost.EventTypeChargeReconciled)
	RegisterType[landedcost.TradeOperationClosedEvent](s, landedcost.EventTypeTradeOperationClosed)
	RegisterType[landedcost.TradeOperationCancelledEvent](s, landedcost.EventTypeTradeOperationCancelled)
}
