// Package render produces the HTML preview of an invoice snapshot.
package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"github.com/lightningshop/jobtrack/internal/money"
	"gorm.io/datatypes"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Snapshot.Invoice.InvoiceNumber}}</title>
  <style>
    :root { --accent: {{.Accent}}; }
    * { box-sizing: border-box; }
    body { margin: 0; padding: 32px; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; color: #1a1f36; background: #f7f9fc; }
    .sheet { background: #fff; max-width: 760px; margin: 0 auto; padding: 48px; border-top: 6px solid var(--accent); }
    .header { display: flex; justify-content: space-between; margin-bottom: 32px; }
    .company h2 { margin: 0 0 4px; font-size: 20px; }
    .company div, .muted { color: #697386; font-size: 13px; line-height: 1.5; }
    .title { text-align: right; }
    .title h1 { margin: 0; font-size: 28px; letter-spacing: 2px; color: var(--accent); }
    .label { font-size: 11px; text-transform: uppercase; color: #8792a2; font-weight: 600; margin-bottom: 4px; }
    .billto { margin-bottom: 32px; font-size: 14px; line-height: 1.5; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    th { text-align: left; font-size: 11px; text-transform: uppercase; color: #8792a2; border-bottom: 1px solid #e3e8ee; padding: 8px 0; }
    td { padding: 12px 0; border-bottom: 1px solid #e3e8ee; font-size: 14px; }
    .num { text-align: right; }
    .totals { margin-left: auto; width: 280px; font-size: 14px; }
    .row { display: flex; justify-content: space-between; padding: 4px 0; }
    .strong { font-weight: 700; border-top: 1px solid #e3e8ee; margin-top: 6px; padding-top: 8px; }
    .status { display: inline-block; padding: 2px 8px; border-radius: 10px; background: var(--accent); color: #fff; font-size: 11px; font-weight: 600; }
    .notes { margin-top: 40px; font-size: 13px; color: #697386; white-space: pre-line; }
  </style>
</head>
<body>
  <div class="sheet">
    <div class="header">
      <div class="company">
        <h2>{{.Branding.CompanyName}}</h2>
        {{if .Branding.CompanyAddress}}<div>{{.Branding.CompanyAddress}}</div>{{end}}
        {{if .Contact}}<div>{{.Contact}}</div>{{end}}
      </div>
      <div class="title">
        <h1>INVOICE</h1>
        <div class="muted">{{.Snapshot.Invoice.InvoiceNumber}}</div>
        <div class="muted">Issued {{date .Snapshot.Invoice.IssueDate}}</div>
        {{if .Snapshot.Invoice.DueDate}}<div class="muted">Due {{date .Snapshot.Invoice.DueDate}}</div>{{end}}
        <div class="status">{{.Snapshot.Invoice.Status}}</div>
      </div>
    </div>

    <div class="billto">
      <div class="label">Bill to</div>
      {{if .Snapshot.Invoice.BillToName}}<strong>{{.Snapshot.Invoice.BillToName}}</strong><br>{{end}}
      {{if .Snapshot.Invoice.BillToAddress}}{{.Snapshot.Invoice.BillToAddress}}<br>{{end}}
      {{if .Snapshot.Invoice.BillToEmail}}{{.Snapshot.Invoice.BillToEmail}}<br>{{end}}
      {{if .Snapshot.Invoice.BillToPhone}}{{.Snapshot.Invoice.BillToPhone}}{{end}}
    </div>

    <table>
      <thead>
        <tr>
          <th style="width: 55%;">Description</th>
          <th class="num">Qty</th>
          <th>Unit</th>
          <th class="num">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Snapshot.Lines}}
        <tr>
          <td>{{.Description}}</td>
          <td class="num">{{quantity .Quantity}}</td>
          <td>{{.UnitLabel}}</td>
          <td class="num">{{lineTotal .}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="row"><span>Subtotal</span><span>{{cents .Snapshot.SubtotalCents}}</span></div>
      {{if gt .Snapshot.TaxCents 0}}<div class="row"><span>Tax</span><span>{{cents .Snapshot.TaxCents}}</span></div>{{end}}
      {{if gt .Snapshot.DiscountCents 0}}<div class="row"><span>Discount</span><span>-{{cents .Snapshot.DiscountCents}}</span></div>{{end}}
      <div class="row strong"><span>Total</span><span>{{cents .Snapshot.TotalCents}}</span></div>
      {{if gt .Snapshot.PaidCents 0}}<div class="row"><span>Paid</span><span>{{cents .Snapshot.PaidCents}}</span></div>{{end}}
      <div class="row strong"><span>Balance</span><span>{{cents .Snapshot.BalanceCents}}</span></div>
    </div>

    {{if .Snapshot.Invoice.Notes}}<div class="notes">{{.Snapshot.Invoice.Notes}}</div>{{end}}
  </div>
</body>
</html>
`

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const defaultAccent = "#111827"

type Renderer interface {
	RenderHTML(snapshot domain.Snapshot, settings config.Settings) (string, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

type view struct {
	Snapshot domain.Snapshot
	Branding config.Branding
	Accent   template.CSS
	Contact  string
}

func NewRenderer() Renderer {
	return &HTMLRenderer{tpl: template.Must(template.New("invoice").Funcs(template.FuncMap{
		"quantity":  money.FormatQuantity,
		"date":      formatDate,
		"cents":     func(int64) string { return "" },
		"lineTotal": func(domain.InvoiceLine) string { return "" },
	}).Parse(invoiceHTMLTemplate))}
}

func (r *HTMLRenderer) RenderHTML(snapshot domain.Snapshot, settings config.Settings) (string, error) {
	currency := settings.Currency
	tpl, err := r.tpl.Clone()
	if err != nil {
		return "", err
	}
	tpl.Funcs(template.FuncMap{
		"cents": func(c int64) string { return money.FormatCents(c, currency) },
		"lineTotal": func(line domain.InvoiceLine) string {
			return money.FormatCents(totals.LineTotal(line), currency)
		},
	})

	branding := settings.Branding
	if strings.TrimSpace(branding.CompanyName) == "" {
		branding.CompanyName = "Invoice"
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, view{
		Snapshot: snapshot,
		Branding: branding,
		Accent:   template.CSS(sanitizeColor(branding.AccentColor)),
		Contact:  ContactLine(branding),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ContactLine joins phone and email with a separator, skipping blanks.
func ContactLine(b config.Branding) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{b.CompanyPhone, b.CompanyEmail} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

// FormatDate renders a calendar date as "Jan 2, 2006".
func FormatDate(d datatypes.Date) string {
	t := time.Time(d)
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func formatDate(value any) string {
	switch d := value.(type) {
	case datatypes.Date:
		return FormatDate(d)
	case *datatypes.Date:
		if d == nil {
			return "-"
		}
		return FormatDate(*d)
	default:
		return "-"
	}
}

func sanitizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return defaultAccent
}
