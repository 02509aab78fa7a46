package landedcost

import (
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeTradeOperation = "TradeOperation"

// Event type constants
const (
	EventTypeTradeOperationOpened    = "TradeOperationOpened"
	EventTypeShipmentLineAdded       = "ShipmentLineAdded"
	EventTypeShipmentLineCorrected   = "ShipmentLineCorrected"
	EventTypeChargeRecorded          = "ChargeRecorded"
	EventTypeChargeAllocated         = "ChargeAllocated"
	EventTypeChargeReconciled        = "ChargeReconciled"
	EventTypeTradeOperationClosed    = "TradeOperationClosed"
	EventTypeTradeOperationCancelled = "TradeOperationCancelled"
)

// TradeOperationOpenedEvent is raised when a trade operation is opened
type TradeOperationOpenedEvent struct {
	shared.BaseDomainEvent
	OperationNumber string               `json:"operation_number"`
	Currency        valueobject.Currency `json:"currency"`
}

// NewTradeOperationOpenedEvent creates a TradeOperationOpenedEvent
func NewTradeOperationOpenedEvent(op *TradeOperation) *TradeOperationOpenedEvent {
	return &TradeOperationOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTradeOperationOpened, AggregateTypeTradeOperation, op.ID),
		OperationNumber: op.OperationNumber,
		Currency:        op.Currency,
	}
}

// ShipmentLineAddedEvent is raised when goods are received against an operation
type ShipmentLineAddedEvent struct {
	shared.BaseDomainEvent
	LineID              uuid.UUID       `json:"line_id"`
	PurchaseOrderLineID uuid.UUID       `json:"purchase_order_line_id"`
	LineNo              int             `json:"line_no"`
	Quantity            decimal.Decimal `json:"quantity"`
}

// NewShipmentLineAddedEvent creates a ShipmentLineAddedEvent
func NewShipmentLineAddedEvent(op *TradeOperation, line *ShipmentLine) *ShipmentLineAddedEvent {
	return &ShipmentLineAddedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeShipmentLineAdded, AggregateTypeTradeOperation, op.ID),
		LineID:              line.ID,
		PurchaseOrderLineID: line.PurchaseOrderLineID,
		LineNo:              line.LineNo,
		Quantity:            line.Quantity,
	}
}

// ShipmentLineCorrectedEvent is raised when a line is replaced by a new snapshot
type ShipmentLineCorrectedEvent struct {
	shared.BaseDomainEvent
	OriginalLineID    uuid.UUID `json:"original_line_id"`
	ReplacementLineID uuid.UUID `json:"replacement_line_id"`
}

// NewShipmentLineCorrectedEvent creates a ShipmentLineCorrectedEvent
func NewShipmentLineCorrectedEvent(op *TradeOperation, original, replacement *ShipmentLine) *ShipmentLineCorrectedEvent {
	return &ShipmentLineCorrectedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeShipmentLineCorrected, AggregateTypeTradeOperation, op.ID),
		OriginalLineID:    original.ID,
		ReplacementLineID: replacement.ID,
	}
}

// ChargeRecordedEvent is raised when a charge is created
type ChargeRecordedEvent struct {
	shared.BaseDomainEvent
	ChargeID        uuid.UUID            `json:"charge_id"`
	CostComponentID uuid.UUID            `json:"cost_component_id"`
	ComponentType   ComponentType        `json:"component_type"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        valueobject.Currency `json:"currency"`
	IsActual        bool                 `json:"is_actual"`
}

// NewChargeRecordedEvent creates a ChargeRecordedEvent
func NewChargeRecordedEvent(op *TradeOperation, charge *Charge, component *CostComponent) *ChargeRecordedEvent {
	return &ChargeRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeRecorded, AggregateTypeTradeOperation, op.ID),
		ChargeID:        charge.ID,
		CostComponentID: component.ID,
		ComponentType:   component.ComponentType,
		Amount:          charge.Amount,
		Currency:        charge.Currency,
		IsActual:        charge.IsActual,
	}
}

// ChargeAllocatedEvent is raised when an allocation set is written for a charge
type ChargeAllocatedEvent struct {
	shared.BaseDomainEvent
	ChargeID  uuid.UUID       `json:"charge_id"`
	Amount    decimal.Decimal `json:"amount"`
	LineCount int             `json:"line_count"`
}

// NewChargeAllocatedEvent creates a ChargeAllocatedEvent
func NewChargeAllocatedEvent(op *TradeOperation, charge *Charge, allocations []Allocation) *ChargeAllocatedEvent {
	return &ChargeAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeAllocated, AggregateTypeTradeOperation, op.ID),
		ChargeID:        charge.ID,
		Amount:          SumAllocations(allocations),
		LineCount:       len(allocations),
	}
}

// ChargeReconciledEvent is raised when a charge supersedes earlier charges
type ChargeReconciledEvent struct {
	shared.BaseDomainEvent
	ChargeID          uuid.UUID   `json:"charge_id"`
	SupersededCharges []uuid.UUID `json:"superseded_charges"`
}

// NewChargeReconciledEvent creates a ChargeReconciledEvent
func NewChargeReconciledEvent(op *TradeOperation, charge *Charge, superseded []uuid.UUID) *ChargeReconciledEvent {
	return &ChargeReconciledEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeChargeReconciled, AggregateTypeTradeOperation, op.ID),
		ChargeID:          charge.ID,
		SupersededCharges: superseded,
	}
}

// TradeOperationClosedEvent is raised when an operation is closed
type TradeOperationClosedEvent struct {
	shared.BaseDomainEvent
	OperationNumber string `json:"operation_number"`
	ChargeCount     int    `json:"charge_count"`
}

// NewTradeOperationClosedEvent creates a TradeOperationClosedEvent
func NewTradeOperationClosedEvent(op *TradeOperation, chargeCount int) *TradeOperationClosedEvent {
	return &TradeOperationClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTradeOperationClosed, AggregateTypeTradeOperation, op.ID),
		OperationNumber: op.OperationNumber,
		ChargeCount:     chargeCount,
	}
}

// TradeOperationCancelledEvent is raised when an operation is cancelled
type TradeOperationCancelledEvent struct {
	shared.BaseDomainEvent
	OperationNumber string `json:"operation_number"`
	Reason          string `json:"reason"`
}

// NewTradeOperationCancelledEvent creates a TradeOperationCancelledEvent
func NewTradeOperationCancelledEvent(op *TradeOperation) *TradeOperationCancelledEvent {
	return &TradeOperationCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTradeOperationCancelled, AggregateTypeTradeOperation, op.ID),
		OperationNumber: op.OperationNumber,
		Reason:          op.CancelReason,
	}
}
