package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	Status *InvoiceStatus
	JobID  *snowflake.ID
}

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus, updatedAt time.Time) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindInvoiceByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	NumberTaken(ctx context.Context, db *gorm.DB, number string, exceptID snowflake.ID) (bool, error)
	CountInvoices(ctx context.Context, db *gorm.DB) (int64, error)
	ListInvoices(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	ListAllInvoices(ctx context.Context, db *gorm.DB) ([]Invoice, error)
	DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertLine(ctx context.Context, db *gorm.DB, line *InvoiceLine) error
	UpdateLine(ctx context.Context, db *gorm.DB, line *InvoiceLine) error
	FindLineByID(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) (*InvoiceLine, error)
	ListLines(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]InvoiceLine, error)
	NextLineSortOrder(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error)
	DeleteLine(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) error

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	UpdatePayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindPaymentByID(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) (*Payment, error)
	ListPayments(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]Payment, error)
	DeletePayment(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) error
}
