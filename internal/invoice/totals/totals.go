// Package totals derives invoice figures from rows. Everything here is pure:
// no I/O, no clock, no mutation of the inputs.
package totals

import (
	"sort"
	"time"

	"github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/shopspring/decimal"
)

// Basis points carry four decimal places.
const bpsShift = -4

// LineTotal is round(quantity * unitPriceCents). Negative inputs count as 0
// and a product past int64 saturates.
func LineTotal(line domain.InvoiceLine) int64 {
	if line.Quantity <= 0 || line.UnitPriceCents <= 0 {
		return 0
	}
	return money.MulCents(line.Quantity, line.UnitPriceCents)
}

// Tax is round(taxable * bps / 10000), half up.
func Tax(taxableCents, bps int64) int64 {
	if taxableCents <= 0 || bps <= 0 {
		return 0
	}
	return money.SaturateCents(decimal.NewFromInt(taxableCents).
		Mul(decimal.NewFromInt(bps)).
		Shift(bpsShift))
}

// SortLines orders lines by sortOrder, then createdAt, then id.
func SortLines(lines []domain.InvoiceLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortPayments orders payments newest first by date, then createdAt.
func SortPayments(payments []domain.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		ad, bd := time.Time(a.Date), time.Time(b.Date)
		if !ad.Equal(bd) {
			return ad.After(bd)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Compute aggregates an invoice header with its lines and payments.
// The slices are copied before sorting.
func Compute(inv domain.Invoice, lines []domain.InvoiceLine, payments []domain.Payment) domain.Snapshot {
	sortedLines := append([]domain.InvoiceLine(nil), lines...)
	SortLines(sortedLines)
	sortedPayments := append([]domain.Payment(nil), payments...)
	SortPayments(sortedPayments)

	var subtotal, taxable int64
	for _, line := range sortedLines {
		lt := LineTotal(line)
		subtotal = money.AddCents(subtotal, lt)
		if line.Taxable {
			taxable = money.AddCents(taxable, lt)
		}
	}

	tax := Tax(taxable, inv.TaxRateBps)
	discount := nonNegative(inv.DiscountCents)
	total := nonNegative(money.AddCents(subtotal, tax) - discount)

	var paid int64
	for _, p := range sortedPayments {
		paid = money.AddCents(paid, nonNegative(p.AmountCents))
	}

	if sortedLines == nil {
		sortedLines = []domain.InvoiceLine{}
	}
	if sortedPayments == nil {
		sortedPayments = []domain.Payment{}
	}

	return domain.Snapshot{
		Invoice:       inv,
		Lines:         sortedLines,
		Payments:      sortedPayments,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		DiscountCents: discount,
		TotalCents:    total,
		PaidCents:     paid,
		BalanceCents:  nonNegative(total - paid),
	}
}

// NextStatus applies the reconciliation rule to a snapshot. First match wins:
// VOID stays VOID, a fully paid non-zero invoice is PAID, any payment makes it
// PARTIAL, otherwise the current status is kept.
func NextStatus(s domain.Snapshot) domain.InvoiceStatus {
	current := s.Invoice.Status
	switch {
	case current == domain.InvoiceStatusVoid:
		return current
	case s.BalanceCents == 0 && s.TotalCents > 0:
		return domain.InvoiceStatusPaid
	case s.PaidCents > 0:
		return domain.InvoiceStatusPartial
	default:
		return current
	}
}

// IsOpen reports whether an invoice still expects money.
func IsOpen(status domain.InvoiceStatus) bool {
	return status != domain.InvoiceStatusPaid && status != domain.InvoiceStatusVoid
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
