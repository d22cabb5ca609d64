// Package money formats and parses integer minor-unit amounts.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "USD"

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrOverflow      = errors.New("amount_overflow")
)

var (
	printer  = message.NewPrinter(language.AmericanEnglish)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// FormatCents renders cents as an en-US currency string with two decimals,
// e.g. FormatCents(123450, "USD") == "$1,234.50". An unknown code falls back
// to USD.
func FormatCents(cents int64, code string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		unit = currency.USD
	}
	symbol := printer.Sprint(currency.Symbol(unit))

	sign := ""
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = uint64(-(cents + 1)) + 1
	}

	whole := printer.Sprintf("%d", abs/100)
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, whole, abs%100)
}

// CentsFromAmount parses free text such as "$1,234.50" into cents.
// Input that does not parse yields 0.
func CentsFromAmount(text string) int64 {
	cents, err := ParseCents(text)
	if err != nil {
		return 0
	}
	return cents
}

// ParseCents is the strict form of CentsFromAmount.
func ParseCents(text string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Shift(2).Round(0)
	if d.GreaterThan(maxCents) || d.LessThan(minCents) {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// MulCents returns round(quantity * cents), rounding half away from zero.
// A product outside int64 saturates at the nearest bound.
func MulCents(quantity float64, cents int64) int64 {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0
	}
	return SaturateCents(mulDecimal(quantity, cents))
}

// CheckedMulCents is MulCents for write paths: it refuses to saturate.
func CheckedMulCents(quantity float64, cents int64) (int64, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0, ErrInvalidAmount
	}
	return CheckedCents(mulDecimal(quantity, cents))
}

func mulDecimal(quantity float64, cents int64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromInt(cents)).
		Round(0)
}

// SaturateCents rounds d to whole cents and clamps it to the int64 range.
func SaturateCents(d decimal.Decimal) int64 {
	d = d.Round(0)
	switch {
	case d.GreaterThan(maxCents):
		return math.MaxInt64
	case d.LessThan(minCents):
		return math.MinInt64
	}
	return d.IntPart()
}

// CheckedCents rounds d to whole cents and fails when it does not fit int64.
func CheckedCents(d decimal.Decimal) (int64, error) {
	d = d.Round(0)
	if d.GreaterThan(maxCents) || d.LessThan(minCents) {
		return 0, ErrOverflow
	}
	return d.IntPart(), nil
}

// AddCents is a + b without wrap-around.
func AddCents(a, b int64) int64 {
	sum := a + b
	switch {
	case a > 0 && b > 0 && sum < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && sum >= 0:
		return math.MinInt64
	}
	return sum
}

// FormatQuantity prints whole quantities without decimals and anything else
// with two.
func FormatQuantity(q float64) string {
	if q == 0 {
		return "0"
	}
	if q == math.Trunc(q) && !math.IsInf(q, 0) {
		return strconv.FormatFloat(q, 'f', 0, 64)
	}
	return fmt.Sprintf("%.2f", q)
}

// ValidCurrency reports whether code is a known ISO 4217 code.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.TrimSpace(code))
	return err == nil
}
