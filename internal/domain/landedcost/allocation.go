package landedcost

import (
	"errors"
	"sort"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation is one line's share of a charge. Allocations are produced as a
// set per charge and never edited; a newer set marks the older rows superseded.
type Allocation struct {
	shared.BaseEntity
	ChargeID         uuid.UUID
	TradeOperationID uuid.UUID
	ShipmentLineID   uuid.UUID
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	BasisValue       decimal.Decimal
	SupersededAt     *time.Time
}

// IsActive reports whether the allocation still counts toward landed cost
func (a *Allocation) IsActive() bool {
	return a.SupersededAt == nil
}

// Allocate distributes the charge over the lines by the given basis.
//
// Lines are processed in LineNo order. Each line's share is computed on
// integer minor units and the leftover units are handed out by largest
// remainder, so the returned amounts always sum to the charge amount. Every
// line receives a row, including lines whose share is zero.
func Allocate(charge *Charge, basis AllocationBasis, opCurrency valueobject.Currency, lines []ShipmentLine) ([]Allocation, error) {
	if !basis.IsValid() {
		return nil, NewValidationError("allocation_basis", "unknown allocation basis "+string(basis))
	}
	if charge.Currency != opCurrency {
		return nil, &CurrencyMismatchError{Expected: opCurrency, Actual: charge.Currency}
	}
	if !charge.Amount.IsPositive() {
		return nil, NewValidationError("amount", "amount must be positive")
	}

	ordered := make([]ShipmentLine, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LineNo < ordered[j].LineNo
	})

	weights := make([]decimal.Decimal, len(ordered))
	total := decimal.Zero
	for i := range ordered {
		line := &ordered[i]
		if line.TradeOperationID != charge.TradeOperationID {
			return nil, NewValidationError("shipment_line_id", "line "+line.ID.String()+" belongs to another trade operation")
		}
		if !line.IsCurrent() {
			return nil, NewValidationError("shipment_line_id", "line "+line.ID.String()+" has been superseded")
		}
		w := line.BasisValue(basis)
		if w.IsNegative() {
			return nil, NewValidationError("basis", "negative basis on line "+line.ID.String())
		}
		weights[i] = w
		total = total.Add(w)
	}
	if !total.IsPositive() {
		return nil, NewValidationError("basis", "zero or negative total basis")
	}

	shares, err := charge.Money().AllocateProportional(weights)
	if err != nil {
		if errors.Is(err, valueobject.ErrSubMinorUnit) {
			return nil, NewValidationError("amount", err.Error())
		}
		return nil, err
	}

	now := time.Now().UTC()
	result := make([]Allocation, len(ordered))
	for i := range ordered {
		result[i] = Allocation{
			BaseEntity:       shared.BaseEntity{ID: uuid.New(), CreatedAt: now},
			ChargeID:         charge.ID,
			TradeOperationID: charge.TradeOperationID,
			ShipmentLineID:   ordered[i].ID,
			Amount:           shares[i].Amount(),
			Currency:         charge.Currency,
			BasisValue:       weights[i],
		}
	}
	return result, nil
}

// IsFullyAllocated reports whether the active allocations of a charge sum to
// its amount and cover exactly the current lines of the operation.
func IsFullyAllocated(charge *Charge, active []Allocation, currentLines []ShipmentLine) bool {
	if len(active) != len(currentLines) {
		return false
	}
	want := make(map[uuid.UUID]bool, len(currentLines))
	for i := range currentLines {
		want[currentLines[i].ID] = true
	}
	total := decimal.Zero
	for i := range active {
		a := &active[i]
		if a.ChargeID != charge.ID || !a.IsActive() || !want[a.ShipmentLineID] {
			return false
		}
		delete(want, a.ShipmentLineID)
		total = total.Add(a.Amount)
	}
	return len(want) == 0 && total.Equal(charge.Amount)
}

// SumAllocations adds up allocation amounts
func SumAllocations(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for i := range allocs {
		total = total.Add(allocs[i].Amount)
	}
	return total
}
