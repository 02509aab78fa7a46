package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CNY Currency = "CNY" // Chinese Yuan
	HKD Currency = "HKD" // Hong Kong Dollar
	JPY Currency = "JPY" // Japanese Yen
	KRW Currency = "KRW" // South Korean Won
	KWD Currency = "KWD" // Kuwaiti Dinar
)

// currencies whose minor unit differs from the usual two decimals
var minorUnitOverrides = map[Currency]int32{
	"JPY": 0, "KRW": 0, "VND": 0, "CLP": 0, "ISK": 0,
	"BHD": 3, "KWD": 3, "OMR": 3, "JOD": 3, "TND": 3,
}

// Errors returned by money operations
var (
	ErrInvalidCurrency  = errors.New("currency must be a 3-letter ISO 4217 code")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrSubMinorUnit     = errors.New("amount has more decimals than the currency's minor unit")
	ErrNegativeWeight   = errors.New("allocation weight cannot be negative")
	ErrZeroTotalWeight  = errors.New("allocation weights sum to zero")
	ErrNegativeAmount   = errors.New("cannot allocate a negative amount")
)

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// Valid reports whether the code has the ISO 4217 shape
func (c Currency) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// MinorUnits returns the number of decimal places of the currency's minor unit
func (c Currency) MinorUnits() int32 {
	if places, ok := minorUnitOverrides[c]; ok {
		return places
	}
	return 2
}

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// MustMoney parses amount and panics on failure. Intended for tests and constants.
func MustMoney(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromMinor builds Money from an integer count of minor units (cents for USD)
func NewMoneyFromMinor(minor *big.Int, currency Currency) Money {
	return Money{
		amount:   decimal.NewFromBigInt(minor, -currency.MinorUnits()),
		currency: currency,
	}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsMinorUnitExact reports whether the amount fits the currency's minor unit
func (m Money) IsMinorUnitExact() bool {
	places := m.currency.MinorUnits()
	return m.amount.Equal(m.amount.Truncate(places))
}

// MinorUnits returns the amount as an integer count of minor units.
// It fails with ErrSubMinorUnit when the amount cannot be represented exactly.
func (m Money) MinorUnits() (*big.Int, error) {
	if !m.IsMinorUnitExact() {
		return nil, fmt.Errorf("%w: %s %s", ErrSubMinorUnit, m.amount.String(), m.currency)
	}
	return m.amount.Shift(m.currency.MinorUnits()).BigInt(), nil
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot add %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, other.currency, m.currency)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// Multiply returns a new Money multiplied by the given factor (unrounded)
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(factor),
		currency: m.currency,
	}
}

// RoundToMinor rounds half away from zero to the currency's minor unit
func (m Money) RoundToMinor() Money {
	return Money{
		amount:   m.amount.Round(m.currency.MinorUnits()),
		currency: m.currency,
	}
}

// Convert applies an exchange rate and rounds the result to the target currency's minor unit
func (m Money) Convert(rate decimal.Decimal, target Currency) (Money, error) {
	if !target.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, target)
	}
	if !rate.IsPositive() {
		return Money{}, errors.New("exchange rate must be positive")
	}
	return Money{amount: m.amount.Mul(rate), currency: target}.RoundToMinor(), nil
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
// Returns error if currencies don't match
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: cannot compare %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.LessThan(other.amount), nil
}

// String returns the amount at the currency's precision followed by the code
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.MinorUnits()), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(m.currency.MinorUnits()),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Allocate divides money into n equal parts, handling remainders.
// The first parts receive the leftover minor units.
func (m Money) Allocate(parts int) ([]Money, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	weights := make([]decimal.Decimal, parts)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return m.AllocateProportional(weights)
}

// AllocateProportional splits m across the given weights using the largest
// remainder method. The result has one entry per weight and sums to m exactly.
//
// Shares are computed on integer minor units: each weight is rescaled to a
// common decimal exponent so that share_i = floor(minor * w_i / W) and the
// remainder minor * w_i mod W are exact. Leftover minor units go one at a
// time to the largest remainders; equal remainders are resolved by position,
// so callers control tie-breaks through the order of weights.
func (m Money) AllocateProportional(weights []decimal.Decimal) ([]Money, error) {
	if len(weights) == 0 {
		return nil, errors.New("at least one weight is required")
	}
	if m.amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	minor, err := m.MinorUnits()
	if err != nil {
		return nil, err
	}

	scaled, total, err := scaleWeights(weights)
	if err != nil {
		return nil, err
	}

	shares := make([]*big.Int, len(weights))
	remainders := make([]*big.Int, len(weights))
	distributed := new(big.Int)
	for i, w := range scaled {
		numerator := new(big.Int).Mul(minor, w)
		q, r := new(big.Int).QuoRem(numerator, total, new(big.Int))
		shares[i] = q
		remainders[i] = r
		distributed.Add(distributed, q)
	}

	// leftover < len(weights) because every remainder is below total
	leftover := new(big.Int).Sub(minor, distributed).Int64()
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].Cmp(remainders[order[b]]) > 0
	})
	for k := int64(0); k < leftover; k++ {
		idx := order[k]
		shares[idx].Add(shares[idx], big.NewInt(1))
	}

	result := make([]Money, len(weights))
	for i, s := range shares {
		result[i] = NewMoneyFromMinor(s, m.currency)
	}
	return result, nil
}

// scaleWeights rescales decimal weights to integers sharing one exponent
func scaleWeights(weights []decimal.Decimal) ([]*big.Int, *big.Int, error) {
	minExp := weights[0].Exponent()
	for _, w := range weights {
		if w.IsNegative() {
			return nil, nil, ErrNegativeWeight
		}
		if w.Exponent() < minExp {
			minExp = w.Exponent()
		}
	}

	scaled := make([]*big.Int, len(weights))
	total := new(big.Int)
	ten := big.NewInt(10)
	for i, w := range weights {
		coef := w.Coefficient()
		if shift := int64(w.Exponent() - minExp); shift > 0 {
			coef.Mul(coef, new(big.Int).Exp(ten, big.NewInt(shift), nil))
		}
		scaled[i] = coef
		total.Add(total, coef)
	}
	if total.Sign() == 0 {
		return nil, nil, ErrZeroTotalWeight
	}
	return scaled, total, nil
}
