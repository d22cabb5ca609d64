package service

import (
	"context"
	"strings"
	"time"

	"github.com/lightningshop/jobtrack/internal/changefeed"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/format"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const numberAttempts = 5

func (s *Service) CreateDraftForJob(ctx context.Context, jobID string) (invoicedomain.Invoice, error) {
	settings := s.settings.Get()
	now := s.clock.Now()
	issue := dateOf(now)

	inv := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		Status:        invoicedomain.InvoiceStatusDraft,
		IssueDate:     issue,
		Notes:         settings.Branding.DefaultNotes,
		TaxRateBps:    settings.Branding.DefaultTaxBps,
		DiscountCents: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if settings.Invoice.DueDays > 0 {
		due := dateOf(now.AddDate(0, 0, settings.Invoice.DueDays))
		inv.DueDate = &due
	}

	if strings.TrimSpace(jobID) != "" {
		id, err := parseID(jobID)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		job, err := s.jobRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		if job == nil {
			return invoicedomain.Invoice{}, invoicedomain.ErrJobNotFound
		}
		inv.JobID = &id
		inv.BillToName = job.Customer
		inv.BillToAddress = job.Address
	}

	seed := invoicedomain.InvoiceLine{
		ID:             s.genID.Generate(),
		InvoiceID:      inv.ID,
		Description:    "Labor",
		Quantity:       1,
		UnitLabel:      "job",
		UnitPriceCents: 0,
		Taxable:        true,
		SortOrder:      0,
		CreatedAt:      now,
	}

	created, err := s.insertWithGeneratedNumber(ctx, inv, []invoicedomain.InvoiceLine{seed})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.notify(changefeed.OpUpsert, created.ID)
	return created, nil
}

// insertWithGeneratedNumber numbers the invoice from the configured template
// and inserts it with its lines, retrying when the number is already taken.
func (s *Service) insertWithGeneratedNumber(ctx context.Context, inv invoicedomain.Invoice, lines []invoicedomain.InvoiceLine) (invoicedomain.Invoice, error) {
	template := s.settings.Get().Invoice.NumberTemplate

	count, err := s.repo.CountInvoices(ctx, s.db)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := format.FormatInvoiceNumber(template, format.NewTokens(timeOf(inv.IssueDate), count+1+int64(attempt)))
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		inv.InvoiceNumber = number

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			taken, err := s.repo.NumberTaken(ctx, tx, number, 0)
			if err != nil {
				return err
			}
			if taken {
				return invoicedomain.ErrDuplicateNumber
			}
			if err := s.repo.InsertInvoice(ctx, tx, &inv); err != nil {
				return mapWriteError(err)
			}
			for i := range lines {
				lines[i].InvoiceID = inv.ID
				if err := s.repo.InsertLine(ctx, tx, &lines[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			s.log.Info("invoice created",
				zap.String("invoice_id", inv.ID.String()),
				zap.String("invoice_number", number),
				zap.Int("attempt", attempt+1),
			)
			return inv, nil
		}
		if !isDuplicate(err) {
			return invoicedomain.Invoice{}, err
		}
		s.log.Warn("invoice number collision, retrying", zap.String("invoice_number", number))
	}

	return invoicedomain.Invoice{}, invoicedomain.ErrDuplicateNumber
}

func timeOf(d datatypes.Date) time.Time {
	return time.Time(d)
}
