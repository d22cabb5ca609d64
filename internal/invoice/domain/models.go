// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusPartial, InvoiceStatusVoid:
		return true
	default:
		return false
	}
}

// PaymentMethod is how a payment was received.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodCheck PaymentMethod = "CHECK"
	PaymentMethodZelle PaymentMethod = "ZELLE"
	PaymentMethodCard  PaymentMethod = "CARD"
	PaymentMethodACH   PaymentMethod = "ACH"
	PaymentMethodOther PaymentMethod = "OTHER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodZelle, PaymentMethodCard, PaymentMethodACH, PaymentMethodOther:
		return true
	default:
		return false
	}
}

// Invoice is the invoice header.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	JobID         *snowflake.ID   `gorm:"index" json:"job_id,omitempty"`
	Status        InvoiceStatus   `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	BillToName    string          `gorm:"type:text;not null;default:''" json:"bill_to_name"`
	BillToAddress string          `gorm:"type:text;not null;default:''" json:"bill_to_address"`
	BillToEmail   string          `gorm:"type:text;not null;default:''" json:"bill_to_email"`
	BillToPhone   string          `gorm:"type:text;not null;default:''" json:"bill_to_phone"`
	IssueDate     datatypes.Date  `gorm:"not null" json:"issue_date"`
	DueDate       *datatypes.Date `json:"due_date,omitempty"`
	Notes         string          `gorm:"type:text;not null;default:''" json:"notes"`
	TaxRateBps    int64           `gorm:"not null;default:0" json:"tax_rate_bps"`
	DiscountCents int64           `gorm:"not null;default:0" json:"discount_cents"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is a billable line on an invoice.
type InvoiceLine struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Description    string       `gorm:"type:text;not null;default:''" json:"description"`
	Quantity       float64      `gorm:"not null;default:1" json:"quantity"`
	UnitLabel      string       `gorm:"type:text;not null;default:'each'" json:"unit_label"`
	UnitPriceCents int64        `gorm:"not null;default:0" json:"unit_price_cents"`
	Taxable        bool         `gorm:"not null;default:true" json:"taxable"`
	SortOrder      int          `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

// Payment is money received against an invoice.
type Payment struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID   `gorm:"not null;index" json:"invoice_id"`
	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	Method      PaymentMethod  `gorm:"type:text;not null;default:'OTHER'" json:"method"`
	Date        datatypes.Date `gorm:"not null" json:"date"`
	Note        string         `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Snapshot is the derived financial view of one invoice. It is never stored.
type Snapshot struct {
	Invoice       Invoice       `json:"invoice"`
	Lines         []InvoiceLine `json:"lines"`
	Payments      []Payment     `json:"payments"`
	SubtotalCents int64         `json:"subtotal_cents"`
	TaxCents      int64         `json:"tax_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TotalCents    int64         `json:"total_cents"`
	PaidCents     int64         `json:"paid_cents"`
	BalanceCents  int64         `json:"balance_cents"`
}
