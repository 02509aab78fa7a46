package valueobject

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amounts(ms []Money) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Amount().StringFixed(m.Currency().MinorUnits())
	}
	return out
}

func sum(t *testing.T, ms []Money) Money {
	t.Helper()
	total := Zero(ms[0].Currency())
	for _, m := range ms {
		var err error
		total, err = total.Add(m)
		require.NoError(t, err)
	}
	return total
}

func TestParseCurrency(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		c, err := ParseCurrency(" usd ")
		require.NoError(t, err)
		assert.Equal(t, USD, c)
	})

	t.Run("rejects malformed codes", func(t *testing.T) {
		for _, code := range []string{"", "US", "USDT", "U5D"} {
			_, err := ParseCurrency(code)
			assert.ErrorIs(t, err, ErrInvalidCurrency, code)
		}
	})
}

func TestCurrencyMinorUnits(t *testing.T) {
	assert.Equal(t, int32(2), USD.MinorUnits())
	assert.Equal(t, int32(2), EUR.MinorUnits())
	assert.Equal(t, int32(0), JPY.MinorUnits())
	assert.Equal(t, int32(3), KWD.MinorUnits())
}

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(dec("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(dec("100.5")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(dec("100"), "")
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", USD)
		assert.Error(t, err)
	})
}

func TestMoneyMinorUnits(t *testing.T) {
	minor, err := MustMoney("1000.25", USD).MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(100025), minor.Int64())

	minor, err = MustMoney("1500", JPY).MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(1500), minor.Int64())

	_, err = MustMoney("10.005", USD).MinorUnits()
	assert.ErrorIs(t, err, ErrSubMinorUnit)

	assert.Equal(t, "12.34 USD", NewMoneyFromMinor(big.NewInt(1234), USD).String())
}

func TestMoneyAddSubtract(t *testing.T) {
	a := MustMoney("10.10", USD)
	b := MustMoney("0.90", USD)

	s, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, s.Equals(MustMoney("11", USD)))

	d, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, d.Equals(MustMoney("9.20", USD)))

	_, err = a.Add(MustMoney("1", EUR))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoneyConvert(t *testing.T) {
	eur := MustMoney("100.00", EUR)

	usd, err := eur.Convert(dec("1.08345"), USD)
	require.NoError(t, err)
	assert.Equal(t, "108.35 USD", usd.String())

	jpy, err := MustMoney("10.00", USD).Convert(dec("151.237"), JPY)
	require.NoError(t, err)
	assert.Equal(t, "1512 JPY", jpy.String())

	_, err = eur.Convert(decimal.Zero, USD)
	assert.Error(t, err)
}

func TestMoneyJSON(t *testing.T) {
	m := MustMoney("99.9", USD)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.90","currency":"USD"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equals(m))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1","currency":""}`), &back))
}

func TestMoneyAllocate(t *testing.T) {
	t.Run("equal split of 10.00 in three", func(t *testing.T) {
		parts, err := MustMoney("10.00", USD).Allocate(3)
		require.NoError(t, err)
		assert.Equal(t, []string{"3.34", "3.33", "3.33"}, amounts(parts))
	})

	t.Run("rejects non-positive part counts", func(t *testing.T) {
		_, err := MustMoney("10.00", USD).Allocate(0)
		assert.Error(t, err)
	})
}

func TestMoneyAllocateProportional(t *testing.T) {
	t.Run("exact split by weight", func(t *testing.T) {
		parts, err := MustMoney("1000.00", USD).AllocateProportional([]decimal.Decimal{dec("50"), dec("150")})
		require.NoError(t, err)
		assert.Equal(t, []string{"250.00", "750.00"}, amounts(parts))
	})

	t.Run("largest remainder receives the leftover cent", func(t *testing.T) {
		// 10.00 * 0.3333 -> 333.3..., 10.00 * 0.3334 -> 333.4 minor units
		parts, err := MustMoney("10.00", USD).AllocateProportional([]decimal.Decimal{dec("0.3333"), dec("0.3333"), dec("0.3334")})
		require.NoError(t, err)
		assert.Equal(t, []string{"3.33", "3.33", "3.34"}, amounts(parts))
	})

	t.Run("ties go to the earliest position", func(t *testing.T) {
		parts, err := MustMoney("0.05", USD).AllocateProportional([]decimal.Decimal{dec("1"), dec("1"), dec("1")})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.02", "0.02", "0.01"}, amounts(parts))
	})

	t.Run("mixed exponents are rescaled", func(t *testing.T) {
		parts, err := MustMoney("100.00", USD).AllocateProportional([]decimal.Decimal{dec("1.5"), dec("0.25"), decimal.New(2, 1)})
		require.NoError(t, err)
		assert.True(t, sum(t, parts).Equals(MustMoney("100.00", USD)))
		assert.Equal(t, []string{"6.90", "1.15", "91.95"}, amounts(parts))
	})

	t.Run("zero-decimal currency", func(t *testing.T) {
		parts, err := MustMoney("1000", JPY).AllocateProportional([]decimal.Decimal{dec("1"), dec("1"), dec("1")})
		require.NoError(t, err)
		assert.Equal(t, []string{"334", "333", "333"}, amounts(parts))
	})

	t.Run("zero weights keep zero shares", func(t *testing.T) {
		parts, err := MustMoney("7.00", USD).AllocateProportional([]decimal.Decimal{dec("0"), dec("2"), dec("0")})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.00", "7.00", "0.00"}, amounts(parts))
	})

	t.Run("sum holds for skewed weights", func(t *testing.T) {
		weights := []decimal.Decimal{dec("0.000001"), dec("999999.999999"), dec("3.14159"), dec("2.71828"), dec("1")}
		total := MustMoney("12345.67", USD)
		parts, err := total.AllocateProportional(weights)
		require.NoError(t, err)
		assert.True(t, sum(t, parts).Equals(total))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := MustMoney("1.00", USD).AllocateProportional([]decimal.Decimal{dec("0"), dec("0")})
		assert.ErrorIs(t, err, ErrZeroTotalWeight)

		_, err = MustMoney("1.00", USD).AllocateProportional([]decimal.Decimal{dec("-1"), dec("2")})
		assert.ErrorIs(t, err, ErrNegativeWeight)

		_, err = MustMoney("-1.00", USD).AllocateProportional([]decimal.Decimal{dec("1")})
		assert.ErrorIs(t, err, ErrNegativeAmount)

		_, err = MustMoney("1.001", USD).AllocateProportional([]decimal.Decimal{dec("1")})
		assert.ErrorIs(t, err, ErrSubMinorUnit)

		_, err = MustMoney("1.00", USD).AllocateProportional(nil)
		assert.Error(t, err)
	})
}
