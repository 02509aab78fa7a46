package landedcost

import (
	"errors"
	"strings"
	"testing"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OperationStatus
		to       OperationStatus
		canTrans bool
	}{
		{OperationStatusOpen, OperationStatusClosed, true},
		{OperationStatusOpen, OperationStatusCancelled, true},
		{OperationStatusOpen, OperationStatusOpen, false},
		{OperationStatusClosed, OperationStatusOpen, false},
		{OperationStatusClosed, OperationStatusCancelled, false},
		{OperationStatusCancelled, OperationStatusOpen, false},
		{OperationStatusCancelled, OperationStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOperationStatus_IsValid(t *testing.T) {
	assert.True(t, OperationStatusOpen.IsValid())
	assert.True(t, OperationStatusClosed.IsTerminal())
	assert.True(t, OperationStatusCancelled.IsTerminal())
	assert.False(t, OperationStatusOpen.IsTerminal())
	assert.False(t, OperationStatus("ARCHIVED").IsValid())
}

func TestNewTradeOperation(t *testing.T) {
	t.Run("creates an open operation", func(t *testing.T) {
		op := newTestOperation(t)
		assert.Equal(t, OperationStatusOpen, op.Status)
		assert.Equal(t, "TO-2024-001", op.OperationNumber)
		assert.Equal(t, valueobject.USD, op.Currency)
		assert.Equal(t, "Maersk", op.Carrier)
		assert.Equal(t, 1, op.GetVersion())
		require.Len(t, op.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeTradeOperationOpened, op.GetDomainEvents()[0].EventType())
	})

	t.Run("validates input", func(t *testing.T) {
		_, err := NewTradeOperation("  ", valueobject.USD, OperationMetadata{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewTradeOperation("TO-1", "usd", OperationMetadata{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewTradeOperation("TO-1", valueobject.USD, OperationMetadata{Remark: strings.Repeat("x", 501)})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestTradeOperation_AddShipmentLine(t *testing.T) {
	op := newTestOperation(t)
	first := addTestLine(t, op, "10", "100", "2", "12.50")
	second := addTestLine(t, op, "5", "40", "1", "8")

	assert.Equal(t, 1, first.LineNo)
	assert.Equal(t, 2, second.LineNo)
	assert.Equal(t, op.ID, first.TradeOperationID)
	assert.Equal(t, 2, op.LineCount)
	assert.Equal(t, 3, op.GetVersion())
	assert.True(t, first.ExtendedCost().Equal(d("125")))

	t.Run("rejects invalid measures", func(t *testing.T) {
		cases := []LineMeasures{
			{Quantity: d("0"), NetWeight: d("1"), Volume: d("1"), SnapshotUnitCost: d("1")},
			{Quantity: d("1"), NetWeight: d("-1"), Volume: d("1"), SnapshotUnitCost: d("1")},
			{Quantity: d("1"), NetWeight: d("1"), Volume: d("-1"), SnapshotUnitCost: d("1")},
			{Quantity: d("1"), NetWeight: d("1"), Volume: d("1"), SnapshotUnitCost: d("-1")},
		}
		for _, m := range cases {
			_, err := op.AddShipmentLine(uuid.New(), m)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		}
		_, err := op.AddShipmentLine(uuid.Nil, LineMeasures{Quantity: d("1"), NetWeight: d("1"), Volume: d("1"), SnapshotUnitCost: d("1")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, 2, op.LineCount, "failed adds do not consume line numbers")
	})

	t.Run("rejects measures the columns cannot hold", func(t *testing.T) {
		cases := []struct {
			name     string
			measures LineMeasures
			field    string
		}{
			{"quantity scale", LineMeasures{Quantity: d("1.00001"), SnapshotUnitCost: d("1")}, "quantity"},
			{"net weight scale", LineMeasures{Quantity: d("1"), NetWeight: d("0.12345"), SnapshotUnitCost: d("1")}, "net_weight"},
			{"volume scale", LineMeasures{Quantity: d("1"), Volume: d("2.00001"), SnapshotUnitCost: d("1")}, "volume"},
			{"unit cost scale", LineMeasures{Quantity: d("1"), SnapshotUnitCost: d("12.1234567")}, "snapshot_unit_cost"},
			{"quantity integer digits", LineMeasures{Quantity: d("100000000000000"), SnapshotUnitCost: d("1")}, "quantity"},
			{"unit cost integer digits", LineMeasures{Quantity: d("1"), SnapshotUnitCost: d("1000000000000")}, "snapshot_unit_cost"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := op.AddShipmentLine(uuid.New(), tc.measures)
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tc.field, ve.Field)
			})
		}
		assert.Equal(t, 2, op.LineCount)
	})

	t.Run("accepts measures at the column limits", func(t *testing.T) {
		line, err := op.AddShipmentLine(uuid.New(), LineMeasures{
			Quantity:         d("99999999999999.9999"),
			NetWeight:        d("0.0001"),
			Volume:           d("1.2500"),
			SnapshotUnitCost: d("999999999999.999999"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, line.LineNo)
	})
}

func TestTradeOperation_CorrectShipmentLine(t *testing.T) {
	op := newTestOperation(t)
	original := addTestLine(t, op, "10", "100", "2", "12.50")

	replacement, err := op.CorrectShipmentLine(original, LineMeasures{Quantity: d("8"), NetWeight: d("80"), Volume: d("2"), SnapshotUnitCost: d("12.50")})
	require.NoError(t, err)

	assert.Equal(t, original.PurchaseOrderLineID, replacement.PurchaseOrderLineID)
	assert.Equal(t, 2, replacement.LineNo)
	assert.False(t, original.IsCurrent())
	require.NotNil(t, original.SupersededBy)
	assert.Equal(t, replacement.ID, *original.SupersededBy)
	assert.True(t, replacement.IsCurrent())

	_, err = op.CorrectShipmentLine(original, LineMeasures{Quantity: d("1"), SnapshotUnitCost: d("1")})
	var se *StateError
	assert.True(t, errors.As(err, &se), "cannot correct a superseded line twice")
}

func TestTradeOperation_RecordCharge(t *testing.T) {
	op := newTestOperation(t)
	comp := newTestComponent(t, BasisWeight)

	t.Run("records a charge in operation currency", func(t *testing.T) {
		vendor := uuid.New()
		c, err := op.RecordCharge(comp, ChargeInput{Amount: d("1000.00"), Currency: valueobject.USD, VendorID: &vendor, ReferenceNumber: " INV-1 ", IsActual: true})
		require.NoError(t, err)
		assert.Equal(t, op.ID, c.TradeOperationID)
		assert.Equal(t, comp.ID, c.CostComponentID)
		assert.Equal(t, "INV-1", c.ReferenceNumber)
		assert.Equal(t, "ACTUAL", c.Kind())
		assert.True(t, c.IsCurrent())
		assert.Nil(t, c.FX)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		for _, amount := range []string{"0", "-5"} {
			_, err := op.RecordCharge(comp, ChargeInput{Amount: d(amount), Currency: valueobject.USD})
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		}
	})

	t.Run("rejects sub-cent amounts", func(t *testing.T) {
		_, err := op.RecordCharge(comp, ChargeInput{Amount: d("10.001"), Currency: valueobject.USD})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects foreign currency without rate", func(t *testing.T) {
		_, err := op.RecordCharge(comp, ChargeInput{Amount: d("10"), Currency: valueobject.EUR})
		var ce *CurrencyMismatchError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("converts foreign currency with an explicit rate", func(t *testing.T) {
		c, err := op.RecordCharge(comp, ChargeInput{
			Amount:   d("100.00"),
			Currency: valueobject.EUR,
			FX:       &FXSnapshot{Rate: d("1.08345")},
		})
		require.NoError(t, err)
		assert.Equal(t, valueobject.USD, c.Currency)
		assert.Equal(t, "108.35", c.Amount.StringFixed(2))
		require.NotNil(t, c.FX)
		assert.Equal(t, valueobject.EUR, c.FX.OriginalCurrency)
		assert.True(t, c.FX.OriginalAmount.Equal(d("100")))
	})

	t.Run("rejects inactive components", func(t *testing.T) {
		inactive := newTestComponent(t, BasisWeight)
		inactive.Deactivate()
		_, err := op.RecordCharge(inactive, ChargeInput{Amount: d("1"), Currency: valueobject.USD})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestTradeOperation_TerminalStatesRejectMutations(t *testing.T) {
	closed := newTestOperation(t)
	require.NoError(t, closed.Close(nil, nil))
	cancelled := newTestOperation(t)
	require.NoError(t, cancelled.Cancel("shipment lost"))

	for _, op := range []*TradeOperation{closed, cancelled} {
		t.Run(op.Status.String(), func(t *testing.T) {
			_, err := op.AddShipmentLine(uuid.New(), LineMeasures{Quantity: d("1"), SnapshotUnitCost: d("1")})
			var se *StateError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, op.Status.String(), se.Current)
			assert.ErrorIs(t, err, shared.ErrInvalidState)

			_, err = op.RecordCharge(newTestComponent(t, BasisWeight), ChargeInput{Amount: d("1"), Currency: valueobject.USD, IsActual: true})
			assert.ErrorIs(t, err, shared.ErrInvalidState)

			err = op.RecordAllocation(&Charge{TradeOperationID: op.ID}, nil, nil)
			assert.ErrorIs(t, err, shared.ErrInvalidState)

			assert.ErrorIs(t, op.Close(nil, nil), shared.ErrInvalidState)
			assert.ErrorIs(t, op.Cancel(""), shared.ErrInvalidState)
		})
	}
}

func TestTradeOperation_Close(t *testing.T) {
	setup := func(t *testing.T, actual bool) (*TradeOperation, *Charge, []ShipmentLine, []Allocation) {
		op := newTestOperation(t)
		a := addTestLine(t, op, "1", "50", "0", "0")
		b := addTestLine(t, op, "1", "150", "0", "0")
		charge := recordTestCharge(t, op, newTestComponent(t, BasisWeight), "1000.00", actual)
		lines := lineValues(a, b)
		allocs, err := Allocate(charge, BasisWeight, op.Currency, lines)
		require.NoError(t, err)
		return op, charge, lines, allocs
	}

	t.Run("closes when every charge is actual and fully allocated", func(t *testing.T) {
		op, charge, lines, allocs := setup(t, true)
		err := op.Close([]ChargeAllocationState{{Charge: *charge, Allocations: allocs}}, lines)
		require.NoError(t, err)
		assert.Equal(t, OperationStatusClosed, op.Status)
		assert.NotNil(t, op.ClosedAt)
	})

	t.Run("outstanding estimate blocks close", func(t *testing.T) {
		op, charge, lines, allocs := setup(t, false)
		err := op.Close([]ChargeAllocationState{{Charge: *charge, Allocations: allocs}}, lines)
		var se *StateError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "OPEN", se.Current)
		assert.Contains(t, se.Reason, "estimate")
		assert.Equal(t, OperationStatusOpen, op.Status)
	})

	t.Run("incomplete allocation blocks close", func(t *testing.T) {
		op, charge, lines, allocs := setup(t, true)
		err := op.Close([]ChargeAllocationState{{Charge: *charge, Allocations: allocs[:1]}}, lines)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, OperationStatusOpen, op.Status)
	})

	t.Run("superseded charges are ignored", func(t *testing.T) {
		op, charge, lines, allocs := setup(t, true)
		old := &Charge{TradeOperationID: op.ID, Amount: d("5"), Currency: valueobject.USD}
		require.NoError(t, old.Supersede(charge, charge.CreatedAt))
		err := op.Close([]ChargeAllocationState{{Charge: *old}, {Charge: *charge, Allocations: allocs}}, lines)
		assert.NoError(t, err)
	})
}

func TestTradeOperation_Cancel(t *testing.T) {
	op := newTestOperation(t)
	require.NoError(t, op.Cancel(" vessel diverted "))
	assert.Equal(t, OperationStatusCancelled, op.Status)
	assert.Equal(t, "vessel diverted", op.CancelReason)
	assert.NotNil(t, op.CancelledAt)

	events := op.GetDomainEvents()
	assert.Equal(t, EventTypeTradeOperationCancelled, events[len(events)-1].EventType())
}

func TestCharge_Supersession(t *testing.T) {
	op := newTestOperation(t)
	comp := newTestComponent(t, BasisWeight)
	estimate := recordTestCharge(t, op, comp, "1000.00", false)
	actual := recordTestCharge(t, op, comp, "1100.00", true)

	assert.NoError(t, CheckSupersedes(actual, []Charge{*estimate}))
	require.NoError(t, estimate.Supersede(actual, actual.CreatedAt))
	assert.False(t, estimate.IsCurrent())
	assert.Equal(t, actual.ID, *estimate.SupersededBy)

	err := estimate.Supersede(actual, actual.CreatedAt)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "double supersede")

	lateEstimate := recordTestCharge(t, op, comp, "900.00", false)
	err = CheckSupersedes(lateEstimate, []Charge{*actual})
	var se *StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "ACTUAL", se.Current)

	assert.NoError(t, CheckSupersedes(lateEstimate, []Charge{*estimate}), "estimate may replace an estimate")
}
