package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type jobsStub struct {
	jobdomain.Service
	counts jobdomain.Counts
	err    error
}

func (s jobsStub) Counts(context.Context) (jobdomain.Counts, error) {
	return s.counts, s.err
}

type invoicesStub struct {
	invoicedomain.Service
	snapshots []invoicedomain.Snapshot
	err       error
}

func (s invoicesStub) Snapshots(context.Context) ([]invoicedomain.Snapshot, error) {
	return s.snapshots, s.err
}

func snap(status invoicedomain.InvoiceStatus, paid, balance int64) invoicedomain.Snapshot {
	return invoicedomain.Snapshot{
		Invoice:      invoicedomain.Invoice{Status: status},
		PaidCents:    paid,
		BalanceCents: balance,
	}
}

func newTestService(jobs jobdomain.Service, invoices invoicedomain.Service) *Service {
	return NewService(Params{
		Log:      zap.NewNop(),
		Jobs:     jobs,
		Invoices: invoices,
		Settings: config.NewStaticSettings(config.DefaultSettings()),
	}).(*Service)
}

func TestOverview(t *testing.T) {
	svc := newTestService(
		jobsStub{counts: jobdomain.Counts{Total: 5, Active: 3, Done: 1}},
		invoicesStub{snapshots: []invoicedomain.Snapshot{
			snap(invoicedomain.InvoiceStatusDraft, 0, 2165),
			snap(invoicedomain.InvoiceStatusPartial, 1000, 1165),
			snap(invoicedomain.InvoiceStatusPaid, 5000, 0),
			snap(invoicedomain.InvoiceStatusVoid, 300, 700),
		}},
	)

	got, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, int64(5), got.Jobs.Total)
	assert.Equal(t, int64(3), got.Jobs.Active)
	assert.Equal(t, int64(1), got.Jobs.Done)
	assert.Equal(t, int64(4), got.Invoices.Total)
	assert.Equal(t, int64(2), got.Invoices.Open)
	assert.Equal(t, int64(1), got.Invoices.Paid)
	assert.Equal(t, int64(3330), got.OutstandingCents)
	assert.Equal(t, int64(6300), got.PaidCents)
}

func TestOverview_Empty(t *testing.T) {
	svc := newTestService(jobsStub{}, invoicesStub{})

	got, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.Invoices.Total)
	assert.Zero(t, got.OutstandingCents)
}

func TestOverview_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := newTestService(jobsStub{err: boom}, invoicesStub{}).Overview(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = newTestService(jobsStub{}, invoicesStub{err: boom}).Overview(context.Background())
	assert.ErrorIs(t, err, boom)
}
