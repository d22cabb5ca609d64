package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/pkg/db/option"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceColumns = `id, invoice_number, job_id, status, bill_to_name, bill_to_address, bill_to_email, bill_to_phone,
	issue_date, due_date, notes, tax_rate_bps, discount_cents, created_at, updated_at`

const lineColumns = `id, invoice_id, description, quantity, unit_label, unit_price_cents, taxable, sort_order, created_at`

const paymentColumns = `id, invoice_id, amount_cents, method, date, note, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.InvoiceNumber,
		inv.JobID,
		inv.Status,
		inv.BillToName,
		inv.BillToAddress,
		inv.BillToEmail,
		inv.BillToPhone,
		inv.IssueDate,
		inv.DueDate,
		inv.Notes,
		inv.TaxRateBps,
		inv.DiscountCents,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) UpdateInvoice(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET invoice_number = ?, job_id = ?, status = ?, bill_to_name = ?, bill_to_address = ?, bill_to_email = ?,
		     bill_to_phone = ?, issue_date = ?, due_date = ?, notes = ?, tax_rate_bps = ?, discount_cents = ?, updated_at = ?
		 WHERE id = ?`,
		inv.InvoiceNumber,
		inv.JobID,
		inv.Status,
		inv.BillToName,
		inv.BillToAddress,
		inv.BillToEmail,
		inv.BillToPhone,
		inv.IssueDate,
		inv.DueDate,
		inv.Notes,
		inv.TaxRateBps,
		inv.DiscountCents,
		inv.UpdatedAt,
		inv.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.InvoiceStatus, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`,
		id,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

// FindInvoiceByIDForUpdate row-locks the invoice where the dialect supports it.
func (r *repo) FindInvoiceByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).Where("id = ?", id)
	if name := db.Dialector.Name(); name == "postgres" || name == "mysql" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoices []domain.Invoice
	if err := stmt.Limit(1).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) NumberTaken(ctx context.Context, db *gorm.DB, number string, exceptID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices WHERE invoice_number = ? AND id <> ?`,
		number,
		exceptID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM invoices`).Scan(&count).Error
	return count, err
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.JobID != nil {
		stmt = stmt.Where("job_id = ?", *filter.JobID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("issue_date desc, updated_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListAllInvoices(ctx context.Context, db *gorm.DB) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Order("issue_date desc, updated_at desc, id desc").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM invoice_lines WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM payments WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
	})
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.InvoiceLine) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_lines (`+lineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.InvoiceID,
		line.Description,
		line.Quantity,
		line.UnitLabel,
		line.UnitPriceCents,
		line.Taxable,
		line.SortOrder,
		line.CreatedAt,
	).Error
}

func (r *repo) UpdateLine(ctx context.Context, db *gorm.DB, line *domain.InvoiceLine) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoice_lines
		 SET description = ?, quantity = ?, unit_label = ?, unit_price_cents = ?, taxable = ?, sort_order = ?
		 WHERE invoice_id = ? AND id = ?`,
		line.Description,
		line.Quantity,
		line.UnitLabel,
		line.UnitPriceCents,
		line.Taxable,
		line.SortOrder,
		line.InvoiceID,
		line.ID,
	).Error
}

func (r *repo) FindLineByID(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) (*domain.InvoiceLine, error) {
	var line domain.InvoiceLine
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id = ? AND id = ?`,
		invoiceID,
		id,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]domain.InvoiceLine, error) {
	if len(invoiceIDs) == 0 {
		return []domain.InvoiceLine{}, nil
	}
	var lines []domain.InvoiceLine
	err := db.WithContext(ctx).
		Model(&domain.InvoiceLine{}).
		Where("invoice_id IN ?", invoiceIDs).
		Order("sort_order asc, created_at asc, id asc").
		Find(&lines).Error
	return lines, err
}

func (r *repo) NextLineSortOrder(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error) {
	var next int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM invoice_lines WHERE invoice_id = ?`,
		invoiceID,
	).Scan(&next).Error
	return next, err
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM invoice_lines WHERE invoice_id = ? AND id = ?`,
		invoiceID,
		id,
	).Error
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.InvoiceID,
		p.AmountCents,
		p.Method,
		p.Date,
		p.Note,
		p.CreatedAt,
	).Error
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET amount_cents = ?, method = ?, date = ?, note = ? WHERE invoice_id = ? AND id = ?`,
		p.AmountCents,
		p.Method,
		p.Date,
		p.Note,
		p.InvoiceID,
		p.ID,
	).Error
}

func (r *repo) FindPaymentByID(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id = ? AND id = ?`,
		invoiceID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]domain.Payment, error) {
	if len(invoiceIDs) == 0 {
		return []domain.Payment{}, nil
	}
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("invoice_id IN ?", invoiceIDs).
		Order("date desc, created_at desc, id desc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) DeletePayment(ctx context.Context, db *gorm.DB, invoiceID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE invoice_id = ? AND id = ?`,
		invoiceID,
		id,
	).Error
}
