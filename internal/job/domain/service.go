package domain

import (
	"context"
	"errors"
	"time"

	"github.com/lightningshop/jobtrack/pkg/db/pagination"
)

type ListJobRequest struct {
	Status    string
	PageToken string
	PageSize  int
}

type ListJobResponse struct {
	pagination.PageInfo
	Jobs []Job `json:"jobs"`
}

// UpsertJobRequest creates a job when ID is empty.
type UpsertJobRequest struct {
	ID         string
	Title      string
	Contractor string
	Customer   string
	Address    string
	Status     JobStatus
	StartDate  *time.Time
	DueDate    *time.Time
	Notes      string
}

type UpsertExpenseRequest struct {
	ID          string
	JobID       string
	Type        ExpenseType
	Vendor      string
	Description string
	AmountCents int64
	Date        *time.Time
	Category    string
	ReceiptRef  string
}

type UpsertWorkLogRequest struct {
	ID               string
	JobID            string
	WorkerName       string
	Hours            float64
	RateCentsPerHour int64
	Date             *time.Time
	Note             string
}

// Counts groups jobs for reporting.
type Counts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
	Done   int64 `json:"done"`
}

type Service interface {
	List(context.Context, ListJobRequest) (ListJobResponse, error)
	GetByID(ctx context.Context, id string) (Job, error)
	Upsert(context.Context, UpsertJobRequest) (Job, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (Counts, error)

	ListExpenses(ctx context.Context, jobID string) ([]Expense, error)
	UpsertExpense(context.Context, UpsertExpenseRequest) (Expense, error)
	DeleteExpense(ctx context.Context, jobID, expenseID string) error

	ListWorkLogs(ctx context.Context, jobID string) ([]WorkLog, error)
	UpsertWorkLog(context.Context, UpsertWorkLogRequest) (WorkLog, error)
	DeleteWorkLog(ctx context.Context, jobID, workLogID string) error

	// Summary returns nil without error when the job does not exist.
	Summary(ctx context.Context, id string) (*Summary, error)
	// ObserveSummary follows the same contract as invoice snapshot
	// observation: initial value, a recomputation per change, nil on delete.
	ObserveSummary(ctx context.Context, id string) (<-chan *Summary, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("job_not_found")
	ErrExpenseNotFound  = errors.New("expense_not_found")
	ErrWorkLogNotFound  = errors.New("work_log_not_found")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidType      = errors.New("invalid_expense_type")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidHours     = errors.New("invalid_hours")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrInvalidDueDate   = errors.New("invalid_due_date")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
