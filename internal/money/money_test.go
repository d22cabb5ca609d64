package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		code  string
		want  string
	}{
		{name: "zero", cents: 0, code: "USD", want: "$0.00"},
		{name: "grouping", cents: 123450, code: "USD", want: "$1,234.50"},
		{name: "millions", cents: 123456789, code: "USD", want: "$1,234,567.89"},
		{name: "single cent", cents: 7, code: "USD", want: "$0.07"},
		{name: "negative", cents: -2165, code: "USD", want: "-$21.65"},
		{name: "lowercase code", cents: 100, code: "usd", want: "$1.00"},
		{name: "euro symbol", cents: 999, code: "EUR", want: "€9.99"},
		{name: "invalid code falls back", cents: 2165, code: "NOPE", want: "$21.65"},
		{name: "empty code falls back", cents: 2165, code: "", want: "$21.65"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCents(tt.cents, tt.code))
		})
	}
}

func TestCentsFromAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "$1,234.50", want: 123450},
		{in: "", want: 0},
		{in: "   ", want: 0},
		{in: "abc", want: 0},
		{in: "12", want: 1200},
		{in: "0.005", want: 1},
		{in: "0.004", want: 0},
		{in: " € 9.99 ", want: 999},
		{in: "-3.50", want: -350},
		{in: "1.2.3", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CentsFromAmount(tt.in))
		})
	}
}

func TestParseCents_Strict(t *testing.T) {
	cents, err := ParseCents("$1,234.50")
	require.NoError(t, err)
	assert.Equal(t, int64(123450), cents)

	_, err = ParseCents("")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseCents("twelve")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseCents("999999999999999999999")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMulCents(t *testing.T) {
	assert.Equal(t, int64(2000), MulCents(2, 1000))
	assert.Equal(t, int64(0), MulCents(0, 1000))
	assert.Equal(t, int64(3), MulCents(0.25, 10)) // 2.5 rounds up
	assert.Equal(t, int64(333), MulCents(1.0/3, 1000))
	assert.Equal(t, int64(9375), MulCents(7.5, 1250))
	assert.Equal(t, int64(268), MulCents(2.675, 100)) // exact decimal, no binary drift
}

func TestMulCents_Saturates(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), MulCents(1e20, 1000))
	assert.Equal(t, int64(math.MinInt64), MulCents(-1e20, 1000))
	assert.Equal(t, int64(0), MulCents(math.NaN(), 1000))
}

func TestCheckedMulCents(t *testing.T) {
	v, err := CheckedMulCents(7.5, 1250)
	require.NoError(t, err)
	assert.Equal(t, int64(9375), v)

	_, err = CheckedMulCents(1e20, 1000)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMulCents(math.Inf(1), 1000)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCheckedCents(t *testing.T) {
	v, err := CheckedCents(decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), v)

	_, err = CheckedCents(decimal.RequireFromString("9223372036854775808"))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAddCents(t *testing.T) {
	assert.Equal(t, int64(5), AddCents(2, 3))
	assert.Equal(t, int64(math.MaxInt64), AddCents(9e18, 9e18))
	assert.Equal(t, int64(math.MinInt64), AddCents(-9e18, -9e18))
	assert.Equal(t, int64(-1), AddCents(math.MaxInt64, math.MinInt64))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "2", FormatQuantity(2))
	assert.Equal(t, "1.50", FormatQuantity(1.5))
	assert.Equal(t, "0.33", FormatQuantity(1.0/3))
	assert.Equal(t, "0", FormatQuantity(math.Copysign(0, -1)))
	assert.Equal(t, "100000000000000000000", FormatQuantity(1e20))
	assert.Equal(t, "-9223372036854775808", FormatQuantity(-9223372036854775808))
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("USD"))
	assert.True(t, ValidCurrency("cad"))
	assert.False(t, ValidCurrency("US"))
	assert.False(t, ValidCurrency("QQQ"))
}
