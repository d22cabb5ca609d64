package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/clock"
	"github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"github.com/lightningshop/jobtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Hub   *changefeed.Hub
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	hub   *changefeed.Hub
	repo  domain.Repository

	expenses repository.Repository[domain.Expense]
	worklogs repository.Repository[domain.WorkLog]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("job.service"),
		genID: p.GenID,
		clock: p.Clock,
		hub:   p.Hub,
		repo:  p.Repo,

		expenses: repository.ProvideStore[domain.Expense](p.DB),
		worklogs: repository.ProvideStore[domain.WorkLog](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) (domain.ListJobResponse, error) {
	filter := domain.ListJobFilter{}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch status {
		case "ACTIVE":
			filter.Statuses = []domain.JobStatus{domain.JobStatusPlanned, domain.JobStatusInProgress, domain.JobStatusOnHold}
		default:
			st := domain.JobStatus(status)
			if !st.Valid() {
				return domain.ListJobResponse{}, domain.ErrInvalidStatus
			}
			filter.Statuses = []domain.JobStatus{st}
		}
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	if _, err := pagination.DecodeOffset(page.PageToken); err != nil {
		return domain.ListJobResponse{}, domain.ErrInvalidPageToken
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListJobResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, page)

	jobs := make([]domain.Job, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		jobs = append(jobs, *item)
	}

	return domain.ListJobResponse{PageInfo: pageInfo, Jobs: jobs}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Job, error) {
	jobID, err := parseID(id)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.mustFind(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertJobRequest) (domain.Job, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Job{}, domain.ErrInvalidTitle
	}

	status := req.Status
	if status == "" {
		status = domain.JobStatusPlanned
	}
	if !status.Valid() {
		return domain.Job{}, domain.ErrInvalidStatus
	}

	startDate := optionalDate(req.StartDate)
	dueDate := optionalDate(req.DueDate)
	if startDate != nil && dueDate != nil && time.Time(*dueDate).Before(time.Time(*startDate)) {
		return domain.Job{}, domain.ErrInvalidDueDate
	}

	now := s.clock.Now()
	job := domain.Job{
		Title:      title,
		Contractor: strings.TrimSpace(req.Contractor),
		Customer:   strings.TrimSpace(req.Customer),
		Address:    strings.TrimSpace(req.Address),
		Status:     status,
		StartDate:  startDate,
		DueDate:    dueDate,
		Notes:      strings.TrimSpace(req.Notes),
		UpdatedAt:  now,
	}

	if strings.TrimSpace(req.ID) == "" {
		job.ID = s.genID.Generate()
		job.CreatedAt = now
		if err := s.repo.Insert(ctx, s.db, &job); err != nil {
			return domain.Job{}, err
		}
		s.log.Info("job created", zap.String("job_id", job.ID.String()))
	} else {
		jobID, err := parseID(req.ID)
		if err != nil {
			return domain.Job{}, err
		}
		existing, err := s.mustFind(ctx, jobID)
		if err != nil {
			return domain.Job{}, err
		}
		job.ID = existing.ID
		job.CreatedAt = existing.CreatedAt
		if err := s.repo.Update(ctx, s.db, &job); err != nil {
			return domain.Job{}, err
		}
	}

	s.notify(changefeed.OpUpsert, job.ID)
	return job, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	jobID, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := s.mustFind(ctx, jobID); err != nil {
		return err
	}

	invoiceIDs, err := s.repo.InvoiceIDs(ctx, s.db, jobID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, jobID); err != nil {
		return err
	}

	s.log.Info("job deleted",
		zap.String("job_id", jobID.String()),
		zap.Int("detached_invoices", len(invoiceIDs)),
	)
	s.notify(changefeed.OpDelete, jobID)
	for _, invoiceID := range invoiceIDs {
		s.hub.Notify(changefeed.OpUpsert, invoiceID.String(), changefeed.InvoiceTopic(invoiceID), changefeed.TopicInvoices)
	}
	return nil
}

func (s *Service) Counts(ctx context.Context) (domain.Counts, error) {
	byStatus, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return domain.Counts{}, err
	}

	var counts domain.Counts
	for status, n := range byStatus {
		counts.Total += n
		if status.Active() {
			counts.Active += n
		}
		if status == domain.JobStatusDone {
			counts.Done += n
		}
	}
	return counts, nil
}

func (s *Service) Summary(ctx context.Context, id string) (*domain.Summary, error) {
	jobID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, jobID)
}

func (s *Service) ObserveSummary(ctx context.Context, id string) (<-chan *domain.Summary, error) {
	jobID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return changefeed.Follow(ctx, s.hub, changefeed.JobTopic(jobID), s.log, func(ctx context.Context) (*domain.Summary, error) {
		return s.summary(ctx, jobID)
	})
}

func (s *Service) summary(ctx context.Context, jobID snowflake.ID) (*domain.Summary, error) {
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil || job == nil {
		return nil, err
	}

	expenses, err := s.expenses.Find(ctx, &domain.Expense{JobID: jobID})
	if err != nil {
		return nil, err
	}
	worklogs, err := s.worklogs.Find(ctx, &domain.WorkLog{JobID: jobID})
	if err != nil {
		return nil, err
	}

	return computeSummary(*job, expenses, worklogs), nil
}

func computeSummary(job domain.Job, expenses []*domain.Expense, worklogs []*domain.WorkLog) *domain.Summary {
	summary := &domain.Summary{Job: job}
	for _, e := range expenses {
		if e.AmountCents > 0 {
			summary.ExpensesCents = money.AddCents(summary.ExpensesCents, e.AmountCents)
		}
	}
	for _, w := range worklogs {
		if w.Hours > 0 && w.RateCentsPerHour > 0 {
			summary.LaborCents = money.AddCents(summary.LaborCents, money.MulCents(w.Hours, w.RateCentsPerHour))
		}
	}
	summary.TotalCents = money.AddCents(summary.ExpensesCents, summary.LaborCents)
	return summary
}

func (s *Service) mustFind(ctx context.Context, id snowflake.ID) (*domain.Job, error) {
	job, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (s *Service) notify(op changefeed.Op, jobID snowflake.ID) {
	s.hub.Notify(op, jobID.String(), changefeed.JobTopic(jobID), changefeed.TopicJobs)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func optionalDate(t *time.Time) *datatypes.Date {
	if t == nil || t.IsZero() {
		return nil
	}
	d := dateOf(*t)
	return &d
}

func dateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
