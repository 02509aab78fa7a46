package landedcost

import (
	"fmt"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stored precision of the line measures: quantity, net weight and volume are
// DECIMAL(18,4), the snapshot unit cost is DECIMAL(18,6).
const (
	measurePrecision int32 = 18
	measureScale     int32 = 4
	unitCostScale    int32 = 6
)

// LineMeasures are the receipt facts of a shipment line
type LineMeasures struct {
	Quantity         decimal.Decimal
	NetWeight        decimal.Decimal
	Volume           decimal.Decimal
	SnapshotUnitCost decimal.Decimal
}

// Validate checks the measures are usable for allocation and can be stored
// without rounding
func (m LineMeasures) Validate() error {
	if !m.Quantity.IsPositive() {
		return NewValidationError("quantity", "quantity must be positive")
	}
	if m.NetWeight.IsNegative() {
		return NewValidationError("net_weight", "net weight cannot be negative")
	}
	if m.Volume.IsNegative() {
		return NewValidationError("volume", "volume cannot be negative")
	}
	if m.SnapshotUnitCost.IsNegative() {
		return NewValidationError("snapshot_unit_cost", "unit cost cannot be negative")
	}
	for _, f := range []struct {
		field string
		value decimal.Decimal
		scale int32
	}{
		{"quantity", m.Quantity, measureScale},
		{"net_weight", m.NetWeight, measureScale},
		{"volume", m.Volume, measureScale},
		{"snapshot_unit_cost", m.SnapshotUnitCost, unitCostScale},
	} {
		if err := checkDecimalFits(f.field, f.value, f.scale); err != nil {
			return err
		}
	}
	return nil
}

func checkDecimalFits(field string, value decimal.Decimal, scale int32) error {
	if !value.Equal(value.Truncate(scale)) {
		return NewValidationError(field, fmt.Sprintf("%s allows at most %d decimal places", field, scale))
	}
	if value.Abs().GreaterThanOrEqual(decimal.New(1, measurePrecision-scale)) {
		return NewValidationError(field, fmt.Sprintf("%s exceeds %d integer digits", field, measurePrecision-scale))
	}
	return nil
}

// ShipmentLine links a purchase-order line to a trade operation with the
// quantities relevant for allocation. Lines are immutable; a correction
// creates a new line and points the old one at it.
type ShipmentLine struct {
	shared.BaseEntity
	TradeOperationID    uuid.UUID
	PurchaseOrderLineID uuid.UUID
	LineNo              int
	LineMeasures
	SupersededAt *time.Time
	SupersededBy *uuid.UUID
}

// IsCurrent reports whether the line has not been replaced by a correction
func (l *ShipmentLine) IsCurrent() bool {
	return l.SupersededAt == nil
}

// ExtendedCost is quantity times the snapshot unit cost
func (l *ShipmentLine) ExtendedCost() decimal.Decimal {
	return l.Quantity.Mul(l.SnapshotUnitCost)
}

// BasisValue resolves the line's measure for the given allocation basis
func (l *ShipmentLine) BasisValue(basis AllocationBasis) decimal.Decimal {
	switch basis {
	case BasisValue:
		return l.ExtendedCost()
	case BasisQuantity:
		return l.Quantity
	case BasisWeight:
		return l.NetWeight
	case BasisVolume:
		return l.Volume
	}
	return decimal.Zero
}

func newShipmentLine(operationID, poLineID uuid.UUID, lineNo int, measures LineMeasures) (*ShipmentLine, error) {
	if poLineID == uuid.Nil {
		return nil, NewValidationError("purchase_order_line_id", "purchase order line is required")
	}
	if err := measures.Validate(); err != nil {
		return nil, err
	}
	return &ShipmentLine{
		BaseEntity:          shared.NewBaseEntity(),
		TradeOperationID:    operationID,
		PurchaseOrderLineID: poLineID,
		LineNo:              lineNo,
		LineMeasures:        measures,
	}, nil
}
