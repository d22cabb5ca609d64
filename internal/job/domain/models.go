// Package domain contains persistence models for jobs and their costs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPlanned    JobStatus = "PLANNED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusOnHold     JobStatus = "ON_HOLD"
	JobStatusDone       JobStatus = "DONE"
	JobStatusCanceled   JobStatus = "CANCELED"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPlanned, JobStatusInProgress, JobStatusOnHold, JobStatusDone, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Active reports whether work on the job is still expected.
func (s JobStatus) Active() bool {
	return s == JobStatusPlanned || s == JobStatusInProgress || s == JobStatusOnHold
}

type ExpenseType string

const (
	ExpenseTypeMaterial      ExpenseType = "MATERIAL"
	ExpenseTypeLabor         ExpenseType = "LABOR"
	ExpenseTypePermit        ExpenseType = "PERMIT"
	ExpenseTypeFuel          ExpenseType = "FUEL"
	ExpenseTypeSubcontractor ExpenseType = "SUBCONTRACTOR"
	ExpenseTypeOther         ExpenseType = "OTHER"
)

func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseTypeMaterial, ExpenseTypeLabor, ExpenseTypePermit, ExpenseTypeFuel, ExpenseTypeSubcontractor, ExpenseTypeOther:
		return true
	default:
		return false
	}
}

type Job struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Title      string          `gorm:"type:text;not null" json:"title"`
	Contractor string          `gorm:"type:text;not null;default:''" json:"contractor"`
	Customer   string          `gorm:"type:text;not null;default:''" json:"customer"`
	Address    string          `gorm:"type:text;not null;default:''" json:"address"`
	Status     JobStatus       `gorm:"type:text;not null;default:'PLANNED';index" json:"status"`
	StartDate  *datatypes.Date `json:"start_date,omitempty"`
	DueDate    *datatypes.Date `json:"due_date,omitempty"`
	Notes      string          `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

type Expense struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	JobID       snowflake.ID   `gorm:"not null;index" json:"job_id"`
	Type        ExpenseType    `gorm:"type:text;not null;default:'OTHER'" json:"type"`
	Vendor      string         `gorm:"type:text;not null;default:''" json:"vendor"`
	Description string         `gorm:"type:text;not null;default:''" json:"description"`
	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	Date        datatypes.Date `gorm:"not null" json:"date"`
	Category    string         `gorm:"type:text;not null;default:''" json:"category"`
	ReceiptRef  string         `gorm:"type:text;not null;default:''" json:"receipt_ref"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Expense) TableName() string { return "expenses" }

type WorkLog struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	JobID            snowflake.ID   `gorm:"not null;index" json:"job_id"`
	WorkerName       string         `gorm:"type:text;not null;default:''" json:"worker_name"`
	Hours            float64        `gorm:"not null" json:"hours"`
	RateCentsPerHour int64          `gorm:"not null" json:"rate_cents_per_hour"`
	Date             datatypes.Date `gorm:"not null" json:"date"`
	Note             string         `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (WorkLog) TableName() string { return "work_logs" }

// Summary is the derived cost view of a job.
type Summary struct {
	Job           Job   `json:"job"`
	ExpensesCents int64 `json:"expenses_cents"`
	LaborCents    int64 `json:"labor_cents"`
	TotalCents    int64 `json:"total_cents"`
}
