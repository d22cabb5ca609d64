package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/pkg/db/option"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const costOrder = "date desc, created_at desc, id desc"

func (s *Service) ListExpenses(ctx context.Context, jobID string) ([]domain.Expense, error) {
	id, err := parseID(jobID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustFind(ctx, id); err != nil {
		return nil, err
	}

	items, err := s.expenses.Find(ctx, &domain.Expense{JobID: id}, option.OrderBy(costOrder))
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) UpsertExpense(ctx context.Context, req domain.UpsertExpenseRequest) (domain.Expense, error) {
	jobID, err := parseID(req.JobID)
	if err != nil {
		return domain.Expense{}, err
	}
	if req.AmountCents < 0 {
		return domain.Expense{}, domain.ErrInvalidAmount
	}
	kind := req.Type
	if kind == "" {
		kind = domain.ExpenseTypeOther
	}
	if !kind.Valid() {
		return domain.Expense{}, domain.ErrInvalidType
	}
	if _, err := s.mustFind(ctx, jobID); err != nil {
		return domain.Expense{}, err
	}

	expense := domain.Expense{
		JobID:       jobID,
		Type:        kind,
		Vendor:      strings.TrimSpace(req.Vendor),
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		Date:        s.dateOrToday(req.Date),
		Category:    strings.TrimSpace(req.Category),
		ReceiptRef:  strings.TrimSpace(req.ReceiptRef),
	}

	if strings.TrimSpace(req.ID) == "" {
		expense.ID = s.genID.Generate()
		expense.CreatedAt = s.clock.Now()
		if err := s.expenses.Create(ctx, &expense); err != nil {
			return domain.Expense{}, err
		}
	} else {
		id, err := parseID(req.ID)
		if err != nil {
			return domain.Expense{}, err
		}
		existing, err := s.expenses.FindOne(ctx, &domain.Expense{ID: id, JobID: jobID})
		if err != nil {
			return domain.Expense{}, err
		}
		if existing == nil {
			return domain.Expense{}, domain.ErrExpenseNotFound
		}
		expense.ID = existing.ID
		expense.CreatedAt = existing.CreatedAt
		if err := s.expenses.Save(ctx, &expense); err != nil {
			return domain.Expense{}, err
		}
	}

	s.log.Debug("expense saved", zap.String("job_id", jobID.String()), zap.String("expense_id", expense.ID.String()))
	s.touch(ctx, jobID)
	return expense, nil
}

func (s *Service) DeleteExpense(ctx context.Context, jobID, expenseID string) error {
	jid, err := parseID(jobID)
	if err != nil {
		return err
	}
	id, err := parseID(expenseID)
	if err != nil {
		return err
	}
	existing, err := s.expenses.FindOne(ctx, &domain.Expense{ID: id, JobID: jid})
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrExpenseNotFound
	}
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.touch(ctx, jid)
	return nil
}

func (s *Service) ListWorkLogs(ctx context.Context, jobID string) ([]domain.WorkLog, error) {
	id, err := parseID(jobID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustFind(ctx, id); err != nil {
		return nil, err
	}

	items, err := s.worklogs.Find(ctx, &domain.WorkLog{JobID: id}, option.OrderBy(costOrder))
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) UpsertWorkLog(ctx context.Context, req domain.UpsertWorkLogRequest) (domain.WorkLog, error) {
	jobID, err := parseID(req.JobID)
	if err != nil {
		return domain.WorkLog{}, err
	}
	if req.Hours < 0 {
		return domain.WorkLog{}, domain.ErrInvalidHours
	}
	if req.RateCentsPerHour < 0 {
		return domain.WorkLog{}, domain.ErrInvalidRate
	}
	if _, err := s.mustFind(ctx, jobID); err != nil {
		return domain.WorkLog{}, err
	}

	worklog := domain.WorkLog{
		JobID:            jobID,
		WorkerName:       strings.TrimSpace(req.WorkerName),
		Hours:            req.Hours,
		RateCentsPerHour: req.RateCentsPerHour,
		Date:             s.dateOrToday(req.Date),
		Note:             strings.TrimSpace(req.Note),
	}

	if strings.TrimSpace(req.ID) == "" {
		worklog.ID = s.genID.Generate()
		worklog.CreatedAt = s.clock.Now()
		if err := s.worklogs.Create(ctx, &worklog); err != nil {
			return domain.WorkLog{}, err
		}
	} else {
		id, err := parseID(req.ID)
		if err != nil {
			return domain.WorkLog{}, err
		}
		existing, err := s.worklogs.FindOne(ctx, &domain.WorkLog{ID: id, JobID: jobID})
		if err != nil {
			return domain.WorkLog{}, err
		}
		if existing == nil {
			return domain.WorkLog{}, domain.ErrWorkLogNotFound
		}
		worklog.ID = existing.ID
		worklog.CreatedAt = existing.CreatedAt
		if err := s.worklogs.Save(ctx, &worklog); err != nil {
			return domain.WorkLog{}, err
		}
	}

	s.touch(ctx, jobID)
	return worklog, nil
}

func (s *Service) DeleteWorkLog(ctx context.Context, jobID, workLogID string) error {
	jid, err := parseID(jobID)
	if err != nil {
		return err
	}
	id, err := parseID(workLogID)
	if err != nil {
		return err
	}
	existing, err := s.worklogs.FindOne(ctx, &domain.WorkLog{ID: id, JobID: jid})
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrWorkLogNotFound
	}
	if err := s.worklogs.Delete(ctx, id); err != nil {
		return err
	}
	s.touch(ctx, jid)
	return nil
}

// touch bumps the job's updated_at so it sorts as recently active.
func (s *Service) touch(ctx context.Context, jobID snowflake.ID) {
	if err := s.repo.Touch(ctx, s.db, jobID, s.clock.Now()); err != nil {
		s.log.Warn("touch job failed", zap.String("job_id", jobID.String()), zap.Error(err))
	}
	s.notify(changefeed.OpUpsert, jobID)
}

func (s *Service) dateOrToday(t *time.Time) datatypes.Date {
	if t == nil || t.IsZero() {
		return dateOf(s.clock.Now())
	}
	return dateOf(*t)
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
