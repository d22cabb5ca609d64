package totals

import (
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func day(y int, m time.Month, d int) datatypes.Date {
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func sampleInvoice() (domain.Invoice, []domain.InvoiceLine) {
	inv := domain.Invoice{
		ID:         1,
		Status:     domain.InvoiceStatusDraft,
		TaxRateBps: 825,
	}
	lines := []domain.InvoiceLine{
		{ID: 10, InvoiceID: 1, Description: "Panel swap", Quantity: 2, UnitPriceCents: 1000, Taxable: true},
	}
	return inv, lines
}

func TestCompute_TaxedSingleLine(t *testing.T) {
	inv, lines := sampleInvoice()

	snap := Compute(inv, lines, nil)

	assert.Equal(t, int64(2000), snap.SubtotalCents)
	assert.Equal(t, int64(165), snap.TaxCents)
	assert.Equal(t, int64(0), snap.DiscountCents)
	assert.Equal(t, int64(2165), snap.TotalCents)
	assert.Equal(t, int64(0), snap.PaidCents)
	assert.Equal(t, int64(2165), snap.BalanceCents)
	assert.Equal(t, domain.InvoiceStatusDraft, NextStatus(snap))
	assert.NotNil(t, snap.Payments)
}

func TestCompute_FullPaymentMarksPaid(t *testing.T) {
	inv, lines := sampleInvoice()
	payments := []domain.Payment{{ID: 20, InvoiceID: 1, AmountCents: 2165, Date: day(2024, 5, 1)}}

	snap := Compute(inv, lines, payments)

	assert.Equal(t, int64(2165), snap.PaidCents)
	assert.Equal(t, int64(0), snap.BalanceCents)
	assert.Equal(t, domain.InvoiceStatusPaid, NextStatus(snap))
}

func TestCompute_PartialPayment(t *testing.T) {
	inv, lines := sampleInvoice()
	payments := []domain.Payment{{ID: 20, InvoiceID: 1, AmountCents: 1000, Date: day(2024, 5, 1)}}

	snap := Compute(inv, lines, payments)

	assert.Equal(t, int64(1000), snap.PaidCents)
	assert.Equal(t, int64(1165), snap.BalanceCents)
	assert.Equal(t, domain.InvoiceStatusPartial, NextStatus(snap))
}

func TestNextStatus_VoidIsSticky(t *testing.T) {
	inv, lines := sampleInvoice()
	inv.Status = domain.InvoiceStatusVoid
	payments := []domain.Payment{{ID: 20, InvoiceID: 1, AmountCents: 2165, Date: day(2024, 5, 1)}}

	snap := Compute(inv, lines, payments)

	assert.Equal(t, domain.InvoiceStatusVoid, NextStatus(snap))
}

func TestNextStatus_Idempotent(t *testing.T) {
	inv, lines := sampleInvoice()
	payments := []domain.Payment{{ID: 20, InvoiceID: 1, AmountCents: 500, Date: day(2024, 5, 1)}}

	first := NextStatus(Compute(inv, lines, payments))
	inv.Status = first
	second := NextStatus(Compute(inv, lines, payments))

	assert.Equal(t, domain.InvoiceStatusPartial, first)
	assert.Equal(t, first, second)
}

func TestNextStatus_ZeroTotalUnpaidKeepsStatus(t *testing.T) {
	inv := domain.Invoice{Status: domain.InvoiceStatusSent}

	assert.Equal(t, domain.InvoiceStatusSent, NextStatus(Compute(inv, nil, nil)))
}

func TestCompute_NoTaxableLinesHasNoTax(t *testing.T) {
	for _, bps := range []int64{0, 1, 825, 10000, 250000} {
		inv := domain.Invoice{TaxRateBps: bps}
		lines := []domain.InvoiceLine{
			{ID: 1, Quantity: 3, UnitPriceCents: 999, Taxable: false},
			{ID: 2, Quantity: 1.5, UnitPriceCents: 2000, Taxable: false},
		}

		snap := Compute(inv, lines, nil)

		assert.Equal(t, int64(0), snap.TaxCents, "bps=%d", bps)
		assert.Equal(t, int64(5997), snap.SubtotalCents)
	}
}

func TestCompute_BalanceNeverNegative(t *testing.T) {
	cases := []struct {
		discount int64
		paid     []int64
	}{
		{discount: 0, paid: []int64{5000}},
		{discount: 3000, paid: nil},
		{discount: 100, paid: []int64{1000, 1000}},
		{discount: 0, paid: []int64{2165}},
	}

	for _, tc := range cases {
		inv, lines := sampleInvoice()
		inv.DiscountCents = tc.discount
		var payments []domain.Payment
		for i, amount := range tc.paid {
			payments = append(payments, domain.Payment{ID: snowflake.ID(i + 1), AmountCents: amount})
		}

		snap := Compute(inv, lines, payments)

		want := snap.TotalCents - snap.PaidCents
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, snap.BalanceCents)
		assert.GreaterOrEqual(t, snap.TotalCents, int64(0))
	}
}

func TestCompute_DiscountLargerThanSubtotalClampsTotal(t *testing.T) {
	inv, lines := sampleInvoice()
	inv.DiscountCents = 10000

	snap := Compute(inv, lines, nil)

	assert.Equal(t, int64(0), snap.TotalCents)
	assert.Equal(t, int64(0), snap.BalanceCents)
	assert.Equal(t, domain.InvoiceStatusDraft, NextStatus(snap))
}

func TestCompute_NegativeInputsClampToZero(t *testing.T) {
	inv := domain.Invoice{TaxRateBps: -500, DiscountCents: -100}
	lines := []domain.InvoiceLine{
		{ID: 1, Quantity: -2, UnitPriceCents: 1000, Taxable: true},
		{ID: 2, Quantity: 1, UnitPriceCents: -1000, Taxable: true},
		{ID: 3, Quantity: 1, UnitPriceCents: 400, Taxable: true},
	}
	payments := []domain.Payment{{ID: 1, AmountCents: -50}}

	snap := Compute(inv, lines, payments)

	assert.Equal(t, int64(400), snap.SubtotalCents)
	assert.Equal(t, int64(0), snap.TaxCents)
	assert.Equal(t, int64(0), snap.DiscountCents)
	assert.Equal(t, int64(400), snap.TotalCents)
	assert.Equal(t, int64(0), snap.PaidCents)
}

func TestCompute_LineTotalRoundsHalfUp(t *testing.T) {
	inv := domain.Invoice{}
	lines := []domain.InvoiceLine{{ID: 1, Quantity: 0.5, UnitPriceCents: 333}}

	snap := Compute(inv, lines, nil)

	assert.Equal(t, int64(167), snap.SubtotalCents)
}

func TestTax_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(1), Tax(2, 2500)) // 0.5
	assert.Equal(t, int64(0), Tax(1, 4900)) // 0.49
	assert.Equal(t, int64(165), Tax(2000, 825))
}

func TestTax_LargeTaxableDoesNotWrap(t *testing.T) {
	assert.Equal(t, int64(2e15), Tax(2e15, 10000))
	assert.Equal(t, int64(math.MaxInt64), Tax(math.MaxInt64, 20000))
}

func TestCompute_HugeAmountsSaturate(t *testing.T) {
	inv := domain.Invoice{TaxRateBps: 1000}
	lines := []domain.InvoiceLine{
		{ID: 1, Quantity: 1, UnitPriceCents: 9e18, Taxable: true},
		{ID: 2, Quantity: 1, UnitPriceCents: 9e18, Taxable: true},
		{ID: 3, Quantity: 1e20, UnitPriceCents: 1000},
	}
	payments := []domain.Payment{{ID: 1, AmountCents: 9e18}, {ID: 2, AmountCents: 9e18}}

	snap := Compute(inv, lines, payments)

	assert.Equal(t, int64(math.MaxInt64), LineTotal(lines[2]))
	assert.Equal(t, int64(math.MaxInt64), snap.SubtotalCents)
	assert.Equal(t, int64(922337203685477581), snap.TaxCents)
	assert.Equal(t, int64(math.MaxInt64), snap.TotalCents)
	assert.Equal(t, int64(math.MaxInt64), snap.PaidCents)
	assert.Equal(t, int64(0), snap.BalanceCents)
}

func TestCompute_OrdersLinesAndPayments(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	lines := []domain.InvoiceLine{
		{ID: 3, SortOrder: 1, CreatedAt: base},
		{ID: 2, SortOrder: 0, CreatedAt: base.Add(time.Minute)},
		{ID: 1, SortOrder: 0, CreatedAt: base},
	}
	payments := []domain.Payment{
		{ID: 1, Date: day(2024, 1, 1), CreatedAt: base},
		{ID: 2, Date: day(2024, 2, 1), CreatedAt: base},
		{ID: 3, Date: day(2024, 2, 1), CreatedAt: base.Add(time.Hour)},
	}

	snap := Compute(domain.Invoice{}, lines, payments)

	assert.Equal(t, []int64{1, 2, 3}, lineIDs(snap.Lines))
	assert.Equal(t, []int64{3, 2, 1}, paymentIDs(snap.Payments))
	// inputs are untouched
	assert.Equal(t, int64(3), int64(lines[0].ID))
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(domain.InvoiceStatusDraft))
	assert.True(t, IsOpen(domain.InvoiceStatusSent))
	assert.True(t, IsOpen(domain.InvoiceStatusPartial))
	assert.False(t, IsOpen(domain.InvoiceStatusPaid))
	assert.False(t, IsOpen(domain.InvoiceStatusVoid))
}

func lineIDs(lines []domain.InvoiceLine) []int64 {
	out := make([]int64, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.ID.Int64())
	}
	return out
}

func paymentIDs(payments []domain.Payment) []int64 {
	out := make([]int64, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.ID.Int64())
	}
	return out
}
