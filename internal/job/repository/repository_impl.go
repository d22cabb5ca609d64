package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/pkg/db/option"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, title, contractor, customer, address, status, start_date, due_date, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Title,
		job.Contractor,
		job.Customer,
		job.Address,
		job.Status,
		job.StartDate,
		job.DueDate,
		job.Notes,
		job.CreatedAt,
		job.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Exec(
		`UPDATE jobs
		 SET title = ?, contractor = ?, customer = ?, address = ?, status = ?, start_date = ?, due_date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		job.Title,
		job.Contractor,
		job.Customer,
		job.Address,
		job.Status,
		job.StartDate,
		job.DueDate,
		job.Notes,
		job.UpdatedAt,
		job.ID,
	).Error
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(`UPDATE jobs SET updated_at = ? WHERE id = ?`, at, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, contractor, customer, address, status, start_date, due_date, notes, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListJobFilter, page pagination.Pagination) ([]*domain.Job, error) {
	var jobs []*domain.Job
	stmt := db.WithContext(ctx).Model(&domain.Job{})
	if len(filter.Statuses) > 0 {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "status",
			Operator: option.IN,
			Value:    filter.Statuses,
		}).Apply(stmt)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("updated_at desc, id desc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.JobStatus]int64, error) {
	var rows []struct {
		Status domain.JobStatus
		Total  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM jobs GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repo) InvoiceIDs(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM invoices WHERE job_id = ? ORDER BY id`,
		id,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE invoices SET job_id = NULL WHERE job_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM expenses WHERE job_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM work_logs WHERE job_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM jobs WHERE id = ?`, id).Error
	})
}
