package landedcost

import (
	"strings"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// OperationStatus represents the lifecycle state of a trade operation
type OperationStatus string

const (
	OperationStatusOpen      OperationStatus = "OPEN"
	OperationStatusClosed    OperationStatus = "CLOSED"
	OperationStatusCancelled OperationStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OperationStatus
func (s OperationStatus) IsValid() bool {
	switch s {
	case OperationStatusOpen, OperationStatusClosed, OperationStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OperationStatus
func (s OperationStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OperationStatus) CanTransitionTo(target OperationStatus) bool {
	switch s {
	case OperationStatusOpen:
		return target == OperationStatusClosed || target == OperationStatusCancelled
	case OperationStatusClosed, OperationStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true for CLOSED and CANCELLED
func (s OperationStatus) IsTerminal() bool {
	return s == OperationStatusClosed || s == OperationStatusCancelled
}

// OperationMetadata is descriptive shipment data with no effect on allocation
type OperationMetadata struct {
	Carrier      string
	Vessel       string
	BillOfLading string
	Remark       string
}

// TradeOperation is the aggregate root for one shipment or voyage. It owns the
// shipment lines and charges recorded against it and gates every mutation on
// its status.
type TradeOperation struct {
	shared.BaseAggregateRoot
	OperationNumber string
	Status          OperationStatus
	Currency        valueobject.Currency
	OperationMetadata
	LineCount    int
	ClosedAt     *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewTradeOperation creates an OPEN trade operation
func NewTradeOperation(operationNumber string, currency valueobject.Currency, meta OperationMetadata) (*TradeOperation, error) {
	operationNumber = strings.TrimSpace(operationNumber)
	if operationNumber == "" {
		return nil, NewValidationError("operation_number", "operation number is required")
	}
	if len(operationNumber) > 50 {
		return nil, NewValidationError("operation_number", "operation number cannot exceed 50 characters")
	}
	if !currency.Valid() {
		return nil, NewValidationError("currency", "currency must be a 3-letter ISO 4217 code")
	}
	if len(meta.Carrier) > 100 || len(meta.Vessel) > 100 || len(meta.BillOfLading) > 100 {
		return nil, NewValidationError("metadata", "carrier, vessel and bill of lading cannot exceed 100 characters")
	}
	if len(meta.Remark) > 500 {
		return nil, NewValidationError("remark", "remark cannot exceed 500 characters")
	}

	op := &TradeOperation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OperationNumber:   operationNumber,
		Status:            OperationStatusOpen,
		Currency:          currency,
		OperationMetadata: meta,
	}
	op.AddDomainEvent(NewTradeOperationOpenedEvent(op))
	return op, nil
}

// IsOpen returns true if the operation accepts new lines and charges
func (o *TradeOperation) IsOpen() bool {
	return o.Status == OperationStatusOpen
}

// EnsureOpen returns a StateError naming the action when the operation is not OPEN
func (o *TradeOperation) EnsureOpen(action string) error {
	if o.IsOpen() {
		return nil
	}
	return NewStateError("trade operation", o.Status.String(), action, "")
}

// AddShipmentLine records a received purchase-order line against the operation
func (o *TradeOperation) AddShipmentLine(poLineID uuid.UUID, measures LineMeasures) (*ShipmentLine, error) {
	if err := o.EnsureOpen("add shipment line to"); err != nil {
		return nil, err
	}
	line, err := newShipmentLine(o.ID, poLineID, o.LineCount+1, measures)
	if err != nil {
		return nil, err
	}
	o.LineCount++
	o.IncrementVersion()
	o.AddDomainEvent(NewShipmentLineAddedEvent(o, line))
	return line, nil
}

// CorrectShipmentLine replaces a line with a new snapshot. The original keeps
// its id and allocations for audit and is flagged superseded.
func (o *TradeOperation) CorrectShipmentLine(original *ShipmentLine, measures LineMeasures) (*ShipmentLine, error) {
	if err := o.EnsureOpen("correct shipment line of"); err != nil {
		return nil, err
	}
	if original.TradeOperationID != o.ID {
		return nil, NewValidationError("shipment_line_id", "line belongs to another trade operation")
	}
	if !original.IsCurrent() {
		return nil, NewStateError("shipment line", "SUPERSEDED", "correct", "line was already corrected")
	}
	replacement, err := newShipmentLine(o.ID, original.PurchaseOrderLineID, o.LineCount+1, measures)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	original.SupersededAt = &now
	original.SupersededBy = &replacement.ID

	o.LineCount++
	o.IncrementVersion()
	o.AddDomainEvent(NewShipmentLineCorrectedEvent(o, original, replacement))
	return replacement, nil
}

// RecordCharge validates and creates a new charge for the component. FX
// conversion, when requested, happens here so the stored amount is always in
// the operation currency.
func (o *TradeOperation) RecordCharge(component *CostComponent, input ChargeInput) (*Charge, error) {
	if err := o.EnsureOpen("record charge on"); err != nil {
		return nil, err
	}
	if !component.Active {
		return nil, NewValidationError("cost_component_id", "cost component "+component.Name+" is inactive")
	}
	if err := validateChargeInput(input); err != nil {
		return nil, err
	}
	amount, fx, err := resolveChargeAmount(input, o.Currency)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("amount", "converted amount rounds to zero")
	}
	if !amount.Equal(amount.Truncate(o.Currency.MinorUnits())) {
		return nil, NewValidationError("amount", "amount has more decimals than "+string(o.Currency)+" allows")
	}

	charge := &Charge{
		BaseEntity:       shared.NewBaseEntity(),
		TradeOperationID: o.ID,
		CostComponentID:  component.ID,
		Amount:           amount,
		Currency:         o.Currency,
		VendorID:         input.VendorID,
		ReferenceNumber:  strings.TrimSpace(input.ReferenceNumber),
		IsActual:         input.IsActual,
		FX:               fx,
	}
	o.IncrementVersion()
	o.AddDomainEvent(NewChargeRecordedEvent(o, charge, component))
	return charge, nil
}

// ChargeAllocationState pairs a current charge with its active allocations
type ChargeAllocationState struct {
	Charge      Charge
	Allocations []Allocation
}

// Close moves the operation to CLOSED. Every current charge must be actual
// and fully allocated over the current lines.
func (o *TradeOperation) Close(charges []ChargeAllocationState, currentLines []ShipmentLine) error {
	if !o.Status.CanTransitionTo(OperationStatusClosed) {
		return NewStateError("trade operation", o.Status.String(), "close", "")
	}
	for i := range charges {
		c := &charges[i].Charge
		if !c.IsCurrent() {
			continue
		}
		if !c.IsActual {
			return NewStateError("trade operation", o.Status.String(), "close",
				"charge "+c.ID.String()+" is still an estimate")
		}
		if !IsFullyAllocated(c, charges[i].Allocations, currentLines) {
			return NewStateError("trade operation", o.Status.String(), "close",
				"charge "+c.ID.String()+" is not fully allocated over the current shipment lines")
		}
	}

	now := time.Now().UTC()
	o.Status = OperationStatusClosed
	o.ClosedAt = &now
	o.IncrementVersion()
	o.AddDomainEvent(NewTradeOperationClosedEvent(o, len(charges)))
	return nil
}

// Cancel moves the operation to CANCELLED. The caller voids the active
// allocations in the same transaction.
func (o *TradeOperation) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OperationStatusCancelled) {
		return NewStateError("trade operation", o.Status.String(), "cancel", "")
	}
	if len(reason) > 500 {
		return NewValidationError("reason", "cancel reason cannot exceed 500 characters")
	}
	now := time.Now().UTC()
	o.Status = OperationStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.IncrementVersion()
	o.AddDomainEvent(NewTradeOperationCancelledEvent(o))
	return nil
}

// RecordAllocation registers a freshly computed allocation set for a charge.
// superseded lists the charges the new one replaced, if any.
func (o *TradeOperation) RecordAllocation(charge *Charge, allocations []Allocation, superseded []uuid.UUID) error {
	if err := o.EnsureOpen("allocate charge on"); err != nil {
		return err
	}
	if charge.TradeOperationID != o.ID {
		return NewValidationError("charge_id", "charge belongs to another trade operation")
	}
	if len(superseded) > 0 {
		o.AddDomainEvent(NewChargeReconciledEvent(o, charge, superseded))
	}
	o.AddDomainEvent(NewChargeAllocatedEvent(o, charge, allocations))
	return nil
}
