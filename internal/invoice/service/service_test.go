package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/clock"
	"github.com/lightningshop/jobtrack/internal/config"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/repository"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	jobrepository "github.com/lightningshop/jobtrack/internal/job/repository"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/lightningshop/jobtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

type transition struct {
	from, to invoicedomain.InvoiceStatus
}

type recorder struct {
	mu   sync.Mutex
	seen []transition
}

func (r *recorder) RecordStatusTransition(_ context.Context, from, to invoicedomain.InvoiceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, transition{from: from, to: to})
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.seen...)
}

type fixture struct {
	svc      invoicedomain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	hub      *changefeed.Hub
	settings config.Settings
	recorder *recorder
	jobRepo  jobdomain.Repository
}

func setup(t *testing.T, mutate ...func(*config.Settings)) fixture {
	t.Helper()
	return setupWithDB(t, testutil.NewDB(t), mutate...)
}

func setupWithDB(t *testing.T, db *gorm.DB, mutate ...func(*config.Settings)) fixture {
	t.Helper()
	fc := clock.NewFakeClock(start)
	hub := changefeed.NewHub()
	settings := config.DefaultSettings()
	for _, fn := range mutate {
		fn(&settings)
	}
	rec := &recorder{}
	jobRepo := jobrepository.Provide()

	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testutil.NewNode(t),
		Clock:    fc,
		Hub:      hub,
		Guard:    lock.NewLocalGuard(),
		Settings: config.NewStaticSettings(settings),
		Repo:     repository.Provide(),
		JobRepo:  jobRepo,
		Recorder: rec,
	})
	return fixture{svc: svc, db: db, clock: fc, hub: hub, settings: settings, recorder: rec, jobRepo: jobRepo}
}

func createInvoice(t *testing.T, f fixture, number string) invoicedomain.Invoice {
	t.Helper()
	inv, err := f.svc.Upsert(context.Background(), invoicedomain.UpsertInvoiceRequest{
		InvoiceNumber: number,
		BillToName:    "Dana Reyes",
		TaxRateBps:    825,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return inv
}

func addLine(t *testing.T, f fixture, invoiceID string, qty float64, price int64, taxable bool) invoicedomain.InvoiceLine {
	t.Helper()
	line, err := f.svc.UpsertLine(context.Background(), invoicedomain.UpsertLineRequest{
		InvoiceID:      invoiceID,
		Description:    "Panel swap",
		Quantity:       &qty,
		UnitPriceCents: price,
		Taxable:        &taxable,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return line
}

func pay(t *testing.T, f fixture, invoiceID string, cents int64) invoicedomain.Payment {
	t.Helper()
	p, err := f.svc.UpsertPayment(context.Background(), invoicedomain.UpsertPaymentRequest{
		InvoiceID:   invoiceID,
		AmountCents: cents,
		Method:      "zelle",
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return p
}

func insertJob(t *testing.T, f fixture) jobdomain.Job {
	t.Helper()
	job := jobdomain.Job{
		ID:        testutil.NewNode(t).Generate(),
		Title:     "Kitchen rewire",
		Customer:  "Sam Ortiz",
		Address:   "40 Bay Rd, Homestead, FL",
		Status:    jobdomain.JobStatusInProgress,
		CreatedAt: start,
		UpdatedAt: start,
	}
	require.NoError(t, f.jobRepo.Insert(context.Background(), f.db, &job))
	return job
}

func TestSnapshot_TaxedLine(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 2, 1000, true)

	snap, err := f.svc.Snapshot(ctx, inv.ID.String())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, int64(2000), snap.SubtotalCents)
	assert.Equal(t, int64(165), snap.TaxCents)
	assert.Equal(t, int64(2165), snap.TotalCents)
	assert.Equal(t, int64(2165), snap.BalanceCents)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, snap.Invoice.Status)
}

func TestSnapshot_UnknownInvoiceIsAbsent(t *testing.T) {
	f := setup(t)

	snap, err := f.svc.Snapshot(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, err = f.svc.Snapshot(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidID)
}

func TestUpsertPayment_FullPaymentMarksPaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 2, 1000, true)

	p := pay(t, f, inv.ID.String(), 2165)
	assert.Equal(t, invoicedomain.PaymentMethodZelle, p.Method)

	snap, err := f.svc.Snapshot(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2165), snap.PaidCents)
	assert.Equal(t, int64(0), snap.BalanceCents)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, snap.Invoice.Status)
	assert.Equal(t, []transition{{from: invoicedomain.InvoiceStatusDraft, to: invoicedomain.InvoiceStatusPaid}}, f.recorder.transitions())
}

func TestUpsertPayment_PartialThenPaid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 2, 1000, true)

	first := pay(t, f, inv.ID.String(), 1000)
	snap, err := f.svc.Snapshot(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1165), snap.BalanceCents)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, snap.Invoice.Status)

	_, err = f.svc.UpsertPayment(ctx, invoicedomain.UpsertPaymentRequest{
		ID:          first.ID.String(),
		InvoiceID:   inv.ID.String(),
		AmountCents: 2165,
	})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)

	payments, err := f.svc.ListPayments(ctx, inv.ID.String())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, invoicedomain.PaymentMethodOther, payments[0].Method)
}

func TestVoidIsSticky(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 2, 1000, true)

	_, err := f.svc.Upsert(ctx, invoicedomain.UpsertInvoiceRequest{
		ID:         inv.ID.String(),
		Status:     invoicedomain.InvoiceStatusVoid,
		TaxRateBps: 825,
	})
	require.NoError(t, err)

	pay(t, f, inv.ID.String(), 2165)

	got, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusVoid, got.Status)
	assert.Equal(t, "INV-1", got.InvoiceNumber)
}

func TestSyncStatus_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 2, 1000, true)
	pay(t, f, inv.ID.String(), 500)

	before, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)

	sub, err := f.hub.Subscribe(changefeed.InvoiceTopic(inv.ID))
	require.NoError(t, err)
	defer sub.Close()

	f.clock.Advance(time.Hour)
	for i := 0; i < 3; i++ {
		status, err := f.svc.SyncStatus(ctx, inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.InvoiceStatusPartial, status)
	}

	after, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.Len(t, f.recorder.transitions(), 1)

	select {
	case c := <-sub.Changes():
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestSyncStatus_UnknownInvoice(t *testing.T) {
	f := setup(t)

	_, err := f.svc.SyncStatus(context.Background(), "42")
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestDeletePayment_KeepsPaidStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 1, 5000, false)
	p := pay(t, f, inv.ID.String(), 5000)

	require.NoError(t, f.svc.DeletePayment(ctx, inv.ID.String(), p.ID.String()))

	snap, err := f.svc.Snapshot(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), snap.BalanceCents)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, snap.Invoice.Status)

	err = f.svc.DeletePayment(ctx, inv.ID.String(), p.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrPaymentNotFound)
}

func TestUpsertLine_DefaultsAndOrdering(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")

	first, err := f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{InvoiceID: inv.ID.String(), Description: "Service call"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Quantity)
	assert.Equal(t, "each", first.UnitLabel)
	assert.True(t, first.Taxable)
	assert.Equal(t, 0, first.SortOrder)

	f.clock.Advance(time.Second)
	second := addLine(t, f, inv.ID.String(), 3, 250, false)
	assert.Equal(t, 1, second.SortOrder)

	top := -1
	_, err = f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{
		ID:             second.ID.String(),
		InvoiceID:      inv.ID.String(),
		Description:    "Breaker",
		Quantity:       &second.Quantity,
		UnitPriceCents: 300,
		SortOrder:      &top,
	})
	require.NoError(t, err)

	lines, err := f.svc.ListLines(ctx, inv.ID.String())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Breaker", lines[0].Description)
	assert.Equal(t, int64(300), lines[0].UnitPriceCents)
	assert.Equal(t, "Service call", lines[1].Description)
}

func TestUpsertLine_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")

	negative := -1.0
	_, err := f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{InvoiceID: inv.ID.String(), Quantity: &negative})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidQuantity)

	_, err = f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{InvoiceID: inv.ID.String(), UnitPriceCents: -5})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidUnitPrice)

	huge := 1e20
	_, err = f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{InvoiceID: inv.ID.String(), Quantity: &huge, UnitPriceCents: 1000})
	assert.ErrorIs(t, err, invoicedomain.ErrLineTotalTooLarge)

	_, err = f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{InvoiceID: "77"})
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	_, err = f.svc.UpsertLine(ctx, invoicedomain.UpsertLineRequest{ID: "99", InvoiceID: inv.ID.String()})
	assert.ErrorIs(t, err, invoicedomain.ErrLineNotFound)
}

func TestDeleteLine_ReconcilesStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 1, 1000, false)
	extra := addLine(t, f, inv.ID.String(), 1, 1000, false)
	pay(t, f, inv.ID.String(), 1000)

	require.NoError(t, f.svc.DeleteLine(ctx, inv.ID.String(), extra.ID.String()))

	got, err := f.svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)
}

func TestUpsertPayment_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")

	_, err := f.svc.UpsertPayment(ctx, invoicedomain.UpsertPaymentRequest{InvoiceID: inv.ID.String(), AmountCents: -1})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	_, err = f.svc.UpsertPayment(ctx, invoicedomain.UpsertPaymentRequest{InvoiceID: inv.ID.String(), AmountCents: 1, Method: "BITCOIN"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPaymentMethod)
}

func TestUpsert_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	issue := start
	due := start.AddDate(0, 0, -1)

	cases := []struct {
		name string
		req  invoicedomain.UpsertInvoiceRequest
		want error
	}{
		{"status", invoicedomain.UpsertInvoiceRequest{Status: "OPEN"}, invoicedomain.ErrInvalidStatus},
		{"tax", invoicedomain.UpsertInvoiceRequest{TaxRateBps: -1}, invoicedomain.ErrInvalidTaxRate},
		{"discount", invoicedomain.UpsertInvoiceRequest{DiscountCents: -1}, invoicedomain.ErrInvalidDiscount},
		{"due", invoicedomain.UpsertInvoiceRequest{IssueDate: &issue, DueDate: &due}, invoicedomain.ErrInvalidDueDate},
		{"job", invoicedomain.UpsertInvoiceRequest{JobID: "55"}, invoicedomain.ErrJobNotFound},
		{"id", invoicedomain.UpsertInvoiceRequest{ID: "x"}, invoicedomain.ErrInvalidID},
		{"missing", invoicedomain.UpsertInvoiceRequest{ID: "55"}, invoicedomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upsert(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpsert_DuplicateNumber(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	createInvoice(t, f, "INV-1")
	other := createInvoice(t, f, "INV-2")

	_, err := f.svc.Upsert(ctx, invoicedomain.UpsertInvoiceRequest{InvoiceNumber: "INV-1"})
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber)

	_, err = f.svc.Upsert(ctx, invoicedomain.UpsertInvoiceRequest{ID: other.ID.String(), InvoiceNumber: "INV-1"})
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber)

	kept, err := f.svc.Upsert(ctx, invoicedomain.UpsertInvoiceRequest{ID: other.ID.String(), Notes: "same number"})
	require.NoError(t, err)
	assert.Equal(t, "INV-2", kept.InvoiceNumber)
}

func TestUpsert_GeneratesNumber(t *testing.T) {
	f := setup(t)

	inv := createInvoice(t, f, "")
	assert.Regexp(t, `^INV-20240305-[0-9A-Z]{6}$`, inv.InvoiceNumber)
}

func TestCreateDraftForJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t, func(s *config.Settings) {
		s.Branding.DefaultTaxBps = 700
		s.Branding.DefaultNotes = "Net 15"
		s.Invoice.DueDays = 15
	})
	job := insertJob(t, f)

	inv, err := f.svc.CreateDraftForJob(ctx, job.ID.String())
	require.NoError(t, err)

	assert.Regexp(t, `^INV-20240305-[0-9A-Z]{6}$`, inv.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, inv.Status)
	require.NotNil(t, inv.JobID)
	assert.Equal(t, job.ID, *inv.JobID)
	assert.Equal(t, "Sam Ortiz", inv.BillToName)
	assert.Equal(t, "40 Bay Rd, Homestead, FL", inv.BillToAddress)
	assert.Equal(t, int64(700), inv.TaxRateBps)
	assert.Equal(t, "Net 15", inv.Notes)
	require.NotNil(t, inv.DueDate)
	assert.True(t, time.Time(*inv.DueDate).Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)))

	lines, err := f.svc.ListLines(ctx, inv.ID.String())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Labor", lines[0].Description)
	assert.Equal(t, 1.0, lines[0].Quantity)
	assert.Equal(t, "job", lines[0].UnitLabel)
	assert.Equal(t, int64(0), lines[0].UnitPriceCents)
	assert.True(t, lines[0].Taxable)
	assert.Equal(t, 0, lines[0].SortOrder)

	byJob, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{JobID: job.ID.String()})
	require.NoError(t, err)
	require.Len(t, byJob.Invoices, 1)
}

func TestCreateDraftForJob_WithoutJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	inv, err := f.svc.CreateDraftForJob(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, inv.JobID)
	assert.Empty(t, inv.BillToName)
	assert.Nil(t, inv.DueDate)
	assert.Equal(t, "Thank you for your business.", inv.Notes)

	_, err = f.svc.CreateDraftForJob(ctx, "31337")
	assert.ErrorIs(t, err, invoicedomain.ErrJobNotFound)
}

func TestCreateDraftForJob_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	f := setup(t, func(s *config.Settings) {
		s.Invoice.NumberTemplate = "JT-{SEQ4}"
	})
	createInvoice(t, f, "JT-0002")

	inv, err := f.svc.CreateDraftForJob(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "JT-0003", inv.InvoiceNumber)
}

func TestList_FilterAndPaging(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, n := range []string{"A", "B", "C"} {
		createInvoice(t, f, n)
	}
	paid := createInvoice(t, f, "D")
	addLine(t, f, paid.ID.String(), 1, 100, false)
	pay(t, f, paid.ID.String(), 100)

	page, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 3)
	assert.True(t, page.PageInfo.HasMore)
	assert.Equal(t, "D", page.Invoices[0].InvoiceNumber)

	rest, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageSize: 3, PageToken: page.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest.Invoices, 1)
	assert.False(t, rest.PageInfo.HasMore)
	assert.Equal(t, "A", rest.Invoices[0].InvoiceNumber)

	onlyPaid, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, onlyPaid.Invoices, 1)
	assert.Equal(t, "D", onlyPaid.Invoices[0].InvoiceNumber)

	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)
}

func TestSnapshots_Batch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := createInvoice(t, f, "A")
	b := createInvoice(t, f, "B")
	addLine(t, f, a.ID.String(), 2, 1000, true)
	addLine(t, f, b.ID.String(), 1, 500, false)
	pay(t, f, b.ID.String(), 200)

	snaps, err := f.svc.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	byNumber := map[string]invoicedomain.Snapshot{}
	for _, s := range snaps {
		byNumber[s.Invoice.InvoiceNumber] = s
	}
	assert.Equal(t, int64(2165), byNumber["A"].TotalCents)
	assert.Equal(t, int64(300), byNumber["B"].BalanceCents)
}

func TestDelete_CascadesAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")
	addLine(t, f, inv.ID.String(), 1, 100, true)
	pay(t, f, inv.ID.String(), 50)

	sub, err := f.hub.Subscribe(changefeed.TopicInvoices)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.svc.Delete(ctx, inv.ID.String()))

	select {
	case c := <-sub.Changes():
		assert.Equal(t, changefeed.OpDelete, c.Op)
		assert.Equal(t, inv.ID.String(), c.EntityID)
	case <-time.After(time.Second):
		t.Fatal("no delete notification")
	}

	var lines, payments int64
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceLine{}).Where("invoice_id = ?", inv.ID).Count(&lines).Error)
	require.NoError(t, f.db.Model(&invoicedomain.Payment{}).Where("invoice_id = ?", inv.ID).Count(&payments).Error)
	assert.Zero(t, lines)
	assert.Zero(t, payments)

	assert.ErrorIs(t, f.svc.Delete(ctx, inv.ID.String()), invoicedomain.ErrNotFound)
}

func TestObserveSnapshot_RecomputesAndEndsOnDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")

	ch, err := f.svc.ObserveSnapshot(ctx, inv.ID.String())
	require.NoError(t, err)

	first := <-ch
	require.NotNil(t, first)
	assert.Zero(t, first.TotalCents)

	addLine(t, f, inv.ID.String(), 2, 1000, true)
	select {
	case next := <-ch:
		require.NotNil(t, next)
		assert.Equal(t, int64(2165), next.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("no recomputation after line write")
	}

	require.NoError(t, f.svc.Delete(ctx, inv.ID.String()))
	select {
	case gone, ok := <-ch:
		assert.True(t, ok)
		assert.Nil(t, gone)
	case <-time.After(2 * time.Second):
		t.Fatal("no final value after delete")
	}
}

func TestObserveSnapshot_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := setup(t)
	inv := createInvoice(t, f, "INV-1")

	ch, err := f.svc.ObserveSnapshot(ctx, inv.ID.String())
	require.NoError(t, err)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}
