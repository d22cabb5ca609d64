package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/johnfercher/maroto/v2/pkg/props"
	appconfig "github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func snapshot() invoicedomain.Snapshot {
	due := datatypes.Date(time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC))
	inv := invoicedomain.Invoice{
		InvoiceNumber: "INV-20240305-Q7K2ZD",
		Status:        invoicedomain.InvoiceStatusPartial,
		IssueDate:     datatypes.Date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		DueDate:       &due,
		BillToPhone:   "305-555-0199",
		TaxRateBps:    825,
		Notes:         "Thank you for your business.",
	}
	lines := []invoicedomain.InvoiceLine{
		{ID: 1, Description: "Replace 200A main panel with new breakers and surge protection", Quantity: 2, UnitLabel: "each", UnitPriceCents: 1000, Taxable: true},
		{ID: 2, Description: "Permit", Quantity: 1.5, UnitLabel: "inspection", UnitPriceCents: 5000},
	}
	payments := []invoicedomain.Payment{{ID: 1, AmountCents: 1000}}
	return totals.Compute(inv, lines, payments)
}

func TestNewInvoiceData(t *testing.T) {
	settings := appconfig.DefaultSettings()
	settings.Branding.CompanyEmail = "office@example.com"

	data := NewInvoiceData(snapshot(), settings)

	assert.Equal(t, "Lightning Shop LLC", data.CompanyName)
	assert.Equal(t, "office@example.com", data.CompanyContact)
	assert.Equal(t, "Mar 5, 2024", data.IssueDate)
	assert.Equal(t, "Apr 4, 2024", data.DueDate)
	assert.Equal(t, "—", data.BillToName)
	assert.Equal(t, "305-555-0199", data.BillToContact)
	require.Len(t, data.Items, 2)
	assert.Equal(t, "Replace 200A main panel with new breakers an…", data.Items[0].Description)
	assert.Equal(t, "2", data.Items[0].Qty)
	assert.Equal(t, "$20.00", data.Items[0].Amount)
	assert.Equal(t, "1.50", data.Items[1].Qty)
	assert.Equal(t, "inspect…", data.Items[1].Unit)
	assert.Equal(t, "$95.00", data.Subtotal)
	assert.Equal(t, "$1.65", data.Tax)
	assert.Empty(t, data.Discount)
	assert.Equal(t, "$96.65", data.Total)
	assert.Equal(t, "-$10.00", data.Paid)
	assert.Equal(t, "$86.65", data.Balance)
}

func TestGenerateInvoice(t *testing.T) {
	doc, err := New().GenerateInvoice(context.Background(), NewInvoiceData(snapshot(), appconfig.DefaultSettings()))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateInvoice_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().GenerateInvoice(ctx, InvoiceData{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"aaa bbb", "ccc"}, wrap("aaa  bbb\nccc", 7))
	assert.Nil(t, wrap("   ", 10))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, &props.Color{Red: 0x5B, Green: 0xB6, Blue: 0xFF}, parseColor("#5BB6FF"))
	assert.Nil(t, parseColor("blue"))
	assert.Nil(t, parseColor("#12345"))
}
