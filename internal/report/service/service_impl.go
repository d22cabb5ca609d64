package service

import (
	"context"

	"github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	reportdomain "github.com/lightningshop/jobtrack/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Jobs     jobdomain.Service
	Invoices invoicedomain.Service
	Settings *config.SettingsHolder
}

type Service struct {
	log      *zap.Logger
	jobs     jobdomain.Service
	invoices invoicedomain.Service
	settings *config.SettingsHolder
}

func NewService(p Params) reportdomain.Service {
	return &Service{
		log:      p.Log.Named("report.service"),
		jobs:     p.Jobs,
		invoices: p.Invoices,
		settings: p.Settings,
	}
}

func (s *Service) Overview(ctx context.Context) (reportdomain.Overview, error) {
	jobCounts, err := s.jobs.Counts(ctx)
	if err != nil {
		return reportdomain.Overview{}, err
	}

	snapshots, err := s.invoices.Snapshots(ctx)
	if err != nil {
		return reportdomain.Overview{}, err
	}

	out := reportdomain.Overview{
		Currency: s.settings.Get().Currency,
		Jobs: reportdomain.JobCounts{
			Total:  jobCounts.Total,
			Active: jobCounts.Active,
			Done:   jobCounts.Done,
		},
	}
	for _, snap := range snapshots {
		out.Invoices.Total++
		out.PaidCents += snap.PaidCents

		status := snap.Invoice.Status
		switch {
		case status == invoicedomain.InvoiceStatusPaid:
			out.Invoices.Paid++
		case totals.IsOpen(status):
			out.Invoices.Open++
			out.OutstandingCents += snap.BalanceCents
		}
	}

	s.log.Debug("report overview computed",
		zap.Int64("invoices", out.Invoices.Total),
		zap.Int64("jobs", out.Jobs.Total),
	)
	return out, nil
}
