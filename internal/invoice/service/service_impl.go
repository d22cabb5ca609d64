package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/clock"
	"github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/lightningshop/jobtrack/pkg/db"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Hub      *changefeed.Hub
	Guard    *lock.Guard
	Settings *config.SettingsHolder
	Repo     invoicedomain.Repository
	JobRepo  jobdomain.Repository
	Recorder StatusRecorder `optional:"true"`
}

// StatusRecorder observes status transitions made by the reconciler.
type StatusRecorder interface {
	RecordStatusTransition(ctx context.Context, from, to invoicedomain.InvoiceStatus)
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	hub   *changefeed.Hub
	guard *lock.Guard

	settings *config.SettingsHolder
	repo     invoicedomain.Repository
	jobRepo  jobdomain.Repository
	recorder StatusRecorder
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		hub:   p.Hub,
		guard: p.Guard,

		settings: p.Settings,
		repo:     p.Repo,
		jobRepo:  p.JobRepo,
		recorder: p.Recorder,
	}
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListInvoiceFilter{}
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status := invoicedomain.InvoiceStatus(raw)
		if !status.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if strings.TrimSpace(req.JobID) != "" {
		jobID, err := parseID(req.JobID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.JobID = &jobID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	if _, err := pagination.DecodeOffset(page.PageToken); err != nil {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
	}

	items, err := s.repo.ListInvoices(ctx, s.db, filter, page)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, page)

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	item, err := s.repo.FindInvoiceByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Upsert(ctx context.Context, req invoicedomain.UpsertInvoiceRequest) (invoicedomain.Invoice, error) {
	header, err := s.validateHeader(ctx, req)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if strings.TrimSpace(req.ID) == "" {
		return s.create(ctx, header)
	}

	invoiceID, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	inv, err := s.mutate(ctx, invoiceID, func(tx *gorm.DB, inv *invoicedomain.Invoice) error {
		number := header.InvoiceNumber
		if number == "" {
			number = inv.InvoiceNumber
		}
		taken, err := s.repo.NumberTaken(ctx, tx, number, inv.ID)
		if err != nil {
			return err
		}
		if taken {
			return invoicedomain.ErrDuplicateNumber
		}

		header.ID = inv.ID
		header.InvoiceNumber = number
		header.CreatedAt = inv.CreatedAt
		header.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateInvoice(ctx, tx, &header); err != nil {
			return mapWriteError(err)
		}
		*inv = header
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) create(ctx context.Context, header invoicedomain.Invoice) (invoicedomain.Invoice, error) {
	now := s.clock.Now()
	header.ID = s.genID.Generate()
	header.CreatedAt = now
	header.UpdatedAt = now

	if header.InvoiceNumber == "" {
		inv, err := s.insertWithGeneratedNumber(ctx, header, nil)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		s.notify(changefeed.OpUpsert, inv.ID)
		return inv, nil
	}

	taken, err := s.repo.NumberTaken(ctx, s.db, header.InvoiceNumber, 0)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if taken {
		return invoicedomain.Invoice{}, invoicedomain.ErrDuplicateNumber
	}
	if err := s.repo.InsertInvoice(ctx, s.db, &header); err != nil {
		return invoicedomain.Invoice{}, mapWriteError(err)
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", header.ID.String()),
		zap.String("invoice_number", header.InvoiceNumber),
	)
	s.notify(changefeed.OpUpsert, header.ID)
	return header, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.guard.Do(ctx, changefeed.InvoiceTopic(invoiceID), func(ctx context.Context) error {
		inv, err := s.repo.FindInvoiceByID(ctx, s.db, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return invoicedomain.ErrNotFound
		}
		return s.repo.DeleteInvoice(ctx, s.db, invoiceID)
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice deleted", zap.String("invoice_id", invoiceID.String()))
	s.notify(changefeed.OpDelete, invoiceID)
	return nil
}

// validateHeader checks a header request and resolves it into an Invoice
// without identity or timestamps.
func (s *Service) validateHeader(ctx context.Context, req invoicedomain.UpsertInvoiceRequest) (invoicedomain.Invoice, error) {
	status := invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if status == "" {
		status = invoicedomain.InvoiceStatusDraft
	}
	if !status.Valid() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
	}
	if req.TaxRateBps < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTaxRate
	}
	if req.DiscountCents < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDiscount
	}

	number := strings.TrimSpace(req.InvoiceNumber)
	if len(number) > 64 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidNumber
	}

	issue := dateOf(s.clock.Now())
	if req.IssueDate != nil && !req.IssueDate.IsZero() {
		issue = dateOf(*req.IssueDate)
	}
	var due *datatypes.Date
	if req.DueDate != nil && !req.DueDate.IsZero() {
		d := dateOf(*req.DueDate)
		if time.Time(d).Before(time.Time(issue)) {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDueDate
		}
		due = &d
	}

	var jobID *snowflake.ID
	if strings.TrimSpace(req.JobID) != "" {
		id, err := parseID(req.JobID)
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
		jobID = &id
	}

	return invoicedomain.Invoice{
		InvoiceNumber: number,
		JobID:         jobID,
		Status:        status,
		BillToName:    strings.TrimSpace(req.BillToName),
		BillToAddress: strings.TrimSpace(req.BillToAddress),
		BillToEmail:   strings.TrimSpace(req.BillToEmail),
		BillToPhone:   strings.TrimSpace(req.BillToPhone),
		IssueDate:     issue,
		DueDate:       due,
		Notes:         strings.TrimSpace(req.Notes),
		TaxRateBps:    req.TaxRateBps,
		DiscountCents: req.DiscountCents,
	}, nil
}

func (s *Service) notify(op changefeed.Op, invoiceID snowflake.ID) {
	s.hub.Notify(op, invoiceID.String(), changefeed.InvoiceTopic(invoiceID), changefeed.TopicInvoices)
}

func mapWriteError(err error) error {
	if db.IsDuplicateKeyErr(err) {
		return invoicedomain.ErrDuplicateNumber
	}
	return err
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

func dateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func isDuplicate(err error) bool {
	return errors.Is(err, invoicedomain.ErrDuplicateNumber)
}
