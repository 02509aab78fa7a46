package landedcost

import (
	"testing"

	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestOperation(t *testing.T) *TradeOperation {
	t.Helper()
	op, err := NewTradeOperation("TO-2024-001", valueobject.USD, OperationMetadata{Carrier: "Maersk", Vessel: "Emma", BillOfLading: "BL-1"})
	require.NoError(t, err)
	return op
}

func addTestLine(t *testing.T, op *TradeOperation, qty, weight, volume, unitCost string) *ShipmentLine {
	t.Helper()
	line, err := op.AddShipmentLine(uuid.New(), LineMeasures{
		Quantity:         d(qty),
		NetWeight:        d(weight),
		Volume:           d(volume),
		SnapshotUnitCost: d(unitCost),
	})
	require.NoError(t, err)
	return line
}

func newTestComponent(t *testing.T, basis AllocationBasis) *CostComponent {
	t.Helper()
	c, err := NewCostComponent("Ocean freight", ComponentTypeFreight, basis)
	require.NoError(t, err)
	return c
}

func recordTestCharge(t *testing.T, op *TradeOperation, comp *CostComponent, amount string, actual bool) *Charge {
	t.Helper()
	c, err := op.RecordCharge(comp, ChargeInput{Amount: d(amount), Currency: op.Currency, IsActual: actual})
	require.NoError(t, err)
	return c
}

func lineValues(lines ...*ShipmentLine) []ShipmentLine {
	out := make([]ShipmentLine, len(lines))
	for i, l := range lines {
		out[i] = *l
	}
	return out
}

func allocationAmounts(allocs []Allocation) []string {
	out := make([]string, len(allocs))
	for i := range allocs {
		out[i] = allocs[i].Amount.StringFixed(2)
	}
	return out
}
