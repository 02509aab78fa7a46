package landedcost

import (
	"strings"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FXSnapshot records the conversion applied to a foreign-currency charge
// before it was allocated in the operation's currency.
type FXSnapshot struct {
	OriginalAmount   decimal.Decimal
	OriginalCurrency valueobject.Currency
	Rate             decimal.Decimal
}

// ChargeInput carries the caller-supplied fields of a new charge
type ChargeInput struct {
	Amount          decimal.Decimal
	Currency        valueobject.Currency
	VendorID        *uuid.UUID
	ReferenceNumber string
	IsActual        bool
	// FX, when set, means Amount/Currency are in a foreign currency and
	// must be converted with FX.Rate into the operation currency.
	FX *FXSnapshot
}

// Charge is an estimated or actual cost entry. Charges are append-only:
// they are created, optionally superseded, never edited or deleted.
type Charge struct {
	shared.BaseEntity
	TradeOperationID uuid.UUID
	CostComponentID  uuid.UUID
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	VendorID         *uuid.UUID
	ReferenceNumber  string
	IsActual         bool
	SupersededBy     *uuid.UUID
	SupersededAt     *time.Time
	FX               *FXSnapshot
}

// Money returns the charge amount as Money
func (c *Charge) Money() valueobject.Money {
	m, _ := valueobject.NewMoney(c.Amount, c.Currency)
	return m
}

// IsCurrent reports whether the charge is the current truth for its component
func (c *Charge) IsCurrent() bool {
	return c.SupersededBy == nil
}

// Kind returns ACTUAL or ESTIMATE
func (c *Charge) Kind() string {
	if c.IsActual {
		return "ACTUAL"
	}
	return "ESTIMATE"
}

// Supersede marks the charge as replaced by next
func (c *Charge) Supersede(next *Charge, at time.Time) error {
	if !c.IsCurrent() {
		return NewStateError("charge", "SUPERSEDED", "supersede", "charge "+c.ID.String()+" was already superseded")
	}
	id := next.ID
	c.SupersededBy = &id
	c.SupersededAt = &at
	return nil
}

// CheckSupersedes validates that next may replace the given current charges of
// the same component. An actual replaces anything; an estimate may only
// replace another estimate.
func CheckSupersedes(next *Charge, current []Charge) error {
	if next.IsActual {
		return nil
	}
	for i := range current {
		if current[i].IsActual {
			return NewStateError("charge", "ACTUAL", "record estimate",
				"component already has actual charge "+current[i].ID.String())
		}
	}
	return nil
}

func resolveChargeAmount(input ChargeInput, opCurrency valueobject.Currency) (decimal.Decimal, *FXSnapshot, error) {
	if input.FX == nil {
		if input.Currency != opCurrency {
			return decimal.Zero, nil, &CurrencyMismatchError{Expected: opCurrency, Actual: input.Currency}
		}
		return input.Amount, nil, nil
	}

	if input.Currency == opCurrency {
		return decimal.Zero, nil, NewValidationError("fx", "exchange rate given for a charge already in the operation currency")
	}
	original, err := valueobject.NewMoney(input.Amount, input.Currency)
	if err != nil {
		return decimal.Zero, nil, NewValidationError("currency", err.Error())
	}
	if !original.IsMinorUnitExact() {
		return decimal.Zero, nil, NewValidationError("amount", "amount has more decimals than "+string(input.Currency)+" allows")
	}
	converted, err := original.Convert(input.FX.Rate, opCurrency)
	if err != nil {
		return decimal.Zero, nil, NewValidationError("fx_rate", err.Error())
	}
	snapshot := &FXSnapshot{
		OriginalAmount:   input.Amount,
		OriginalCurrency: input.Currency,
		Rate:             input.FX.Rate,
	}
	return converted.Amount(), snapshot, nil
}

func validateChargeInput(input ChargeInput) error {
	if !input.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive")
	}
	if !input.Currency.Valid() {
		return NewValidationError("currency", "currency must be a 3-letter ISO 4217 code")
	}
	if len(strings.TrimSpace(input.ReferenceNumber)) > 100 {
		return NewValidationError("reference_number", "reference number cannot exceed 100 characters")
	}
	if input.VendorID != nil && *input.VendorID == uuid.Nil {
		return NewValidationError("vendor_id", "vendor id cannot be the nil uuid")
	}
	return nil
}
