package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListJobFilter struct {
	Statuses []JobStatus
}

// Repository persists jobs. Expenses and work logs go through the generic
// store.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	Update(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	List(ctx context.Context, db *gorm.DB, filter ListJobFilter, page pagination.Pagination) ([]*Job, error)
	Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	CountByStatus(ctx context.Context, db *gorm.DB) (map[JobStatus]int64, error)
	// InvoiceIDs lists invoices that reference the job.
	InvoiceIDs(ctx context.Context, db *gorm.DB, id snowflake.ID) ([]snowflake.ID, error)
	// Delete removes the job with its expenses and work logs and detaches
	// its invoices.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
