package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
	appconfig "github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"github.com/lightningshop/jobtrack/internal/money"
)

const (
	maxDescription = 45
	maxUnitLabel   = 8
	notesWidth     = 80
)

// InvoiceData is a fully formatted invoice, ready for layout.
type InvoiceData struct {
	CompanyName    string
	CompanyAddress string
	CompanyContact string
	Accent         string

	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string

	BillToName    string
	BillToAddress string
	BillToContact string

	Items []InvoiceItem

	Subtotal string
	Tax      string
	Discount string
	Total    string
	Paid     string
	Balance  string
	Notes    string
}

type InvoiceItem struct {
	Description string
	Qty         string
	Unit        string
	Amount      string
}

// NewInvoiceData formats a snapshot with the configured branding and
// currency. Zero tax, discount and paid amounts are left blank so the layout
// skips their rows.
func NewInvoiceData(snapshot invoicedomain.Snapshot, settings appconfig.Settings) InvoiceData {
	currency := settings.Currency
	inv := snapshot.Invoice
	branding := settings.Branding

	data := InvoiceData{
		CompanyName:    branding.CompanyName,
		CompanyAddress: branding.CompanyAddress,
		CompanyContact: joinNonBlank(" • ", branding.CompanyPhone, branding.CompanyEmail),
		Accent:         branding.AccentColor,
		InvoiceNumber:  inv.InvoiceNumber,
		Status:         string(inv.Status),
		IssueDate:      formatDate(time.Time(inv.IssueDate)),
		DueDate:        "—",
		BillToName:     inv.BillToName,
		BillToAddress:  inv.BillToAddress,
		BillToContact:  joinNonBlank(" • ", inv.BillToPhone, inv.BillToEmail),
		Subtotal:       money.FormatCents(snapshot.SubtotalCents, currency),
		Total:          money.FormatCents(snapshot.TotalCents, currency),
		Balance:        money.FormatCents(snapshot.BalanceCents, currency),
		Notes:          strings.TrimSpace(inv.Notes),
	}
	if strings.TrimSpace(data.BillToName) == "" {
		data.BillToName = "—"
	}
	if inv.DueDate != nil {
		data.DueDate = formatDate(time.Time(*inv.DueDate))
	}
	if snapshot.TaxCents > 0 {
		data.Tax = money.FormatCents(snapshot.TaxCents, currency)
	}
	if snapshot.DiscountCents > 0 {
		data.Discount = "-" + money.FormatCents(snapshot.DiscountCents, currency)
	}
	if snapshot.PaidCents > 0 {
		data.Paid = "-" + money.FormatCents(snapshot.PaidCents, currency)
	}

	data.Items = make([]InvoiceItem, 0, len(snapshot.Lines))
	for _, l := range snapshot.Lines {
		data.Items = append(data.Items, InvoiceItem{
			Description: trimTo(l.Description, maxDescription),
			Qty:         money.FormatQuantity(l.Quantity),
			Unit:        trimTo(l.UnitLabel, maxUnitLabel),
			Amount:      money.FormatCents(totals.LineTotal(l), currency),
		})
	}
	return data
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	accent := parseColor(invoice.Accent)

	m.AddRow(10, text.NewCol(12, invoice.CompanyName, props.Text{Size: 18, Style: fontstyle.Bold, Color: accent}))
	if invoice.CompanyAddress != "" {
		m.AddRow(5, text.NewCol(12, invoice.CompanyAddress, props.Text{Size: 9}))
	}
	if invoice.CompanyContact != "" {
		m.AddRow(5, text.NewCol(12, invoice.CompanyContact, props.Text{Size: 9}))
	}

	m.AddRow(20,
		text.NewCol(6, "INVOICE", props.Text{Size: 15, Style: fontstyle.Bold, Top: 6}),
		col.New(6).Add(
			text.New(invoice.InvoiceNumber, props.Text{Size: 11, Align: align.Right, Top: 6}),
			text.New("Issue: "+invoice.IssueDate, props.Text{Size: 9, Align: align.Right, Top: 11}),
			text.New("Due: "+invoice.DueDate, props.Text{Size: 9, Align: align.Right, Top: 15}),
		),
	)

	billTo := col.New(12).Add(
		text.New("Bill To", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.New(invoice.BillToName, props.Text{Size: 9, Top: 5}),
	)
	if invoice.BillToAddress != "" {
		billTo.Add(text.New(invoice.BillToAddress, props.Text{Size: 9, Top: 9}))
	}
	if invoice.BillToContact != "" {
		billTo.Add(text.New(invoice.BillToContact, props.Text{Size: 9, Top: 13}))
	}
	m.AddRow(22, billTo)

	header := props.Text{Size: 9, Style: fontstyle.Bold}
	m.AddRow(7,
		text.NewCol(7, "Description", header),
		text.NewCol(1, "Qty", header),
		text.NewCol(2, "Unit", header),
		text.NewCol(2, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range invoice.Items {
		m.AddRow(6,
			text.NewCol(7, item.Description, props.Text{Size: 9}),
			text.NewCol(1, item.Qty, props.Text{Size: 9}),
			text.NewCol(2, item.Unit, props.Text{Size: 9}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12))

	totalRow := func(label, value string, style fontstyle.Type) {
		m.AddRow(6,
			col.New(8),
			text.NewCol(2, label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}
	totalRow("Subtotal", invoice.Subtotal, fontstyle.Normal)
	if invoice.Tax != "" {
		totalRow("Tax", invoice.Tax, fontstyle.Normal)
	}
	if invoice.Discount != "" {
		totalRow("Discount", invoice.Discount, fontstyle.Normal)
	}
	totalRow("Total", invoice.Total, fontstyle.Bold)
	if invoice.Paid != "" {
		totalRow("Paid", invoice.Paid, fontstyle.Normal)
	}
	totalRow("Balance", invoice.Balance, fontstyle.Bold)

	if invoice.Notes != "" {
		m.AddRow(10, text.NewCol(12, "Notes", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}))
		for _, l := range wrap(invoice.Notes, notesWidth) {
			m.AddRow(5, text.NewCol(12, l, props.Text{Size: 9}))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("Jan 2, 2006")
}

func joinNonBlank(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func trimTo(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func wrap(s string, width int) []string {
	var out []string
	cur := ""
	for _, w := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) <= width:
			cur += " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// parseColor reads #RRGGBB. Anything else yields nil, the default black.
func parseColor(hex string) *props.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return nil
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil
	}
	return &props.Color{Red: int(v >> 16 & 0xff), Green: int(v >> 8 & 0xff), Blue: int(v & 0xff)}
}
