package landedcost

import (
	"sort"

	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitCostPlaces is the precision landed unit costs are reported at
const UnitCostPlaces = 6

// ComponentShare is the allocated total of one cost component on a line
type ComponentShare struct {
	CostComponentID uuid.UUID
	Name            string
	ComponentType   ComponentType
	Amount          decimal.Decimal
}

// LandedCostBreakdown explains how a line's landed unit cost is made up
type LandedCostBreakdown struct {
	ShipmentLineID   uuid.UUID
	Currency         valueobject.Currency
	Quantity         decimal.Decimal
	SnapshotUnitCost decimal.Decimal
	BaseCost         decimal.Decimal
	AllocatedCost    decimal.Decimal
	TotalLandedCost  decimal.Decimal
	LandedUnitCost   decimal.Decimal
	Components       []ComponentShare
}

// LandedUnitCost computes (snapshotUnitCost * quantity + active allocations) / quantity.
// Superseded allocations and allocations of other lines are ignored.
func LandedUnitCost(line *ShipmentLine, allocations []Allocation) decimal.Decimal {
	total := line.ExtendedCost()
	for i := range allocations {
		a := &allocations[i]
		if a.ShipmentLineID == line.ID && a.IsActive() {
			total = total.Add(a.Amount)
		}
	}
	return total.DivRound(line.Quantity, UnitCostPlaces)
}

// BuildBreakdown groups the active allocations of a line per cost component.
// chargeComponents maps charge id to its component.
func BuildBreakdown(line *ShipmentLine, currency valueobject.Currency, allocations []Allocation, chargeComponents map[uuid.UUID]*CostComponent) *LandedCostBreakdown {
	byComponent := make(map[uuid.UUID]*ComponentShare)
	allocated := decimal.Zero
	for i := range allocations {
		a := &allocations[i]
		if a.ShipmentLineID != line.ID || !a.IsActive() {
			continue
		}
		allocated = allocated.Add(a.Amount)
		comp := chargeComponents[a.ChargeID]
		if comp == nil {
			continue
		}
		share, ok := byComponent[comp.ID]
		if !ok {
			share = &ComponentShare{
				CostComponentID: comp.ID,
				Name:            comp.Name,
				ComponentType:   comp.ComponentType,
				Amount:          decimal.Zero,
			}
			byComponent[comp.ID] = share
		}
		share.Amount = share.Amount.Add(a.Amount)
	}

	components := make([]ComponentShare, 0, len(byComponent))
	for _, s := range byComponent {
		components = append(components, *s)
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i].Name < components[j].Name
	})

	base := line.ExtendedCost()
	total := base.Add(allocated)
	return &LandedCostBreakdown{
		ShipmentLineID:   line.ID,
		Currency:         currency,
		Quantity:         line.Quantity,
		SnapshotUnitCost: line.SnapshotUnitCost,
		BaseCost:         base,
		AllocatedCost:    allocated,
		TotalLandedCost:  total,
		LandedUnitCost:   total.DivRound(line.Quantity, UnitCostPlaces),
		Components:       components,
	}
}
