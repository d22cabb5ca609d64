package domain

import "context"

type JobCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
	Done   int64 `json:"done"`
}

type InvoiceCounts struct {
	Total int64 `json:"total"`
	Open  int64 `json:"open"`
	Paid  int64 `json:"paid"`
}

// Overview is the dashboard summary across all jobs and invoices.
type Overview struct {
	Currency         string        `json:"currency"`
	Jobs             JobCounts     `json:"jobs"`
	Invoices         InvoiceCounts `json:"invoices"`
	OutstandingCents int64         `json:"outstanding_cents"`
	PaidCents        int64         `json:"paid_cents"`
}

type Service interface {
	Overview(ctx context.Context) (Overview, error)
}
