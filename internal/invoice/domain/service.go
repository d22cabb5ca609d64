package domain

import (
	"context"
	"errors"
	"time"

	"github.com/lightningshop/jobtrack/pkg/db/pagination"
)

type ListInvoiceRequest struct {
	Status    string
	JobID     string
	PageToken string
	PageSize  int
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// UpsertInvoiceRequest creates an invoice when ID is empty and replaces the
// header of an existing one otherwise.
type UpsertInvoiceRequest struct {
	ID            string
	InvoiceNumber string
	JobID         string
	Status        InvoiceStatus
	BillToName    string
	BillToAddress string
	BillToEmail   string
	BillToPhone   string
	IssueDate     *time.Time
	DueDate       *time.Time
	Notes         string
	TaxRateBps    int64
	DiscountCents int64
}

type UpsertLineRequest struct {
	ID             string
	InvoiceID      string
	Description    string
	Quantity       *float64
	UnitLabel      string
	UnitPriceCents int64
	Taxable        *bool
	SortOrder      *int
}

type UpsertPaymentRequest struct {
	ID          string
	InvoiceID   string
	AmountCents int64
	Method      PaymentMethod
	Date        *time.Time
	Note        string
}

type Service interface {
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Upsert(context.Context, UpsertInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error

	ListLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error)
	UpsertLine(context.Context, UpsertLineRequest) (InvoiceLine, error)
	DeleteLine(ctx context.Context, invoiceID, lineID string) error

	ListPayments(ctx context.Context, invoiceID string) ([]Payment, error)
	UpsertPayment(context.Context, UpsertPaymentRequest) (Payment, error)
	DeletePayment(ctx context.Context, invoiceID, paymentID string) error

	// Snapshot returns nil without error when the invoice does not exist.
	Snapshot(ctx context.Context, id string) (*Snapshot, error)
	// ObserveSnapshot emits the current snapshot and a fresh one after every
	// change to the invoice, its lines or its payments. A nil value means the
	// invoice was deleted; the channel closes right after it and when ctx ends.
	ObserveSnapshot(ctx context.Context, id string) (<-chan *Snapshot, error)
	// Snapshots computes every invoice, newest first.
	Snapshots(ctx context.Context) ([]Snapshot, error)
	SyncStatus(ctx context.Context, id string) (InvoiceStatus, error)
	// CreateDraftForJob creates a DRAFT invoice seeded with one labor line.
	// An empty jobID creates an unlinked draft.
	CreateDraftForJob(ctx context.Context, jobID string) (Invoice, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("invoice_not_found")
	ErrLineNotFound         = errors.New("invoice_line_not_found")
	ErrPaymentNotFound      = errors.New("payment_not_found")
	ErrJobNotFound          = errors.New("job_not_found")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidNumber        = errors.New("invalid_invoice_number")
	ErrDuplicateNumber      = errors.New("duplicate_invoice_number")
	ErrInvalidTaxRate       = errors.New("invalid_tax_rate")
	ErrInvalidDiscount      = errors.New("invalid_discount")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrLineTotalTooLarge    = errors.New("invalid_line_total")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidDueDate       = errors.New("invalid_due_date")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
