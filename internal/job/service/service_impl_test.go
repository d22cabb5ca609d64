package service

import (
	"context"
	"testing"
	"time"

	"github.com/lightningshop/jobtrack/internal/changefeed"
	"github.com/lightningshop/jobtrack/internal/clock"
	"github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/internal/job/repository"
	"github.com/lightningshop/jobtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	hub   *changefeed.Hub
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	fc := clock.NewFakeClock(start)
	hub := changefeed.NewHub()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: fc,
		Hub:   hub,
		Repo:  repository.Provide(),
	})
	return fixture{svc: svc, db: db, clock: fc, hub: hub}
}

func createJob(t *testing.T, f fixture, title string, status domain.JobStatus) domain.Job {
	t.Helper()
	job, err := f.svc.Upsert(context.Background(), domain.UpsertJobRequest{
		Title:    title,
		Customer: "Dana Reyes",
		Address:  "12 Palm Ct, Homestead, FL",
		Status:   status,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return job
}

func TestUpsert_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	job := createJob(t, f, "  Roof repair ", "")
	assert.Equal(t, "Roof repair", job.Title)
	assert.Equal(t, domain.JobStatusPlanned, job.Status)

	updated, err := f.svc.Upsert(ctx, domain.UpsertJobRequest{
		ID:     job.ID.String(),
		Title:  "Roof repair phase 2",
		Status: domain.JobStatusInProgress,
	})
	require.NoError(t, err)
	assert.True(t, job.CreatedAt.Equal(updated.CreatedAt))

	got, err := f.svc.GetByID(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Roof repair phase 2", got.Title)
	assert.Equal(t, domain.JobStatusInProgress, got.Status)
}

func TestUpsert_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Upsert(ctx, domain.UpsertJobRequest{Title: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = f.svc.Upsert(ctx, domain.UpsertJobRequest{Title: "x", Status: "FINISHED"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	startDate := start
	dueDate := start.AddDate(0, 0, -1)
	_, err = f.svc.Upsert(ctx, domain.UpsertJobRequest{Title: "x", StartDate: &startDate, DueDate: &dueDate})
	assert.ErrorIs(t, err, domain.ErrInvalidDueDate)

	_, err = f.svc.Upsert(ctx, domain.UpsertJobRequest{ID: "12345", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestList_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first := createJob(t, f, "Fence", domain.JobStatusPlanned)
	second := createJob(t, f, "Deck", domain.JobStatusDone)
	third := createJob(t, f, "Shed", domain.JobStatusOnHold)

	all, err := f.svc.List(ctx, domain.ListJobRequest{})
	require.NoError(t, err)
	require.Len(t, all.Jobs, 3)
	assert.Equal(t, third.ID, all.Jobs[0].ID)
	assert.Equal(t, first.ID, all.Jobs[2].ID)

	active, err := f.svc.List(ctx, domain.ListJobRequest{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, active.Jobs, 2)

	done, err := f.svc.List(ctx, domain.ListJobRequest{Status: "DONE"})
	require.NoError(t, err)
	require.Len(t, done.Jobs, 1)
	assert.Equal(t, second.ID, done.Jobs[0].ID)

	page, err := f.svc.List(ctx, domain.ListJobRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 2)
	require.True(t, page.HasMore)

	next, err := f.svc.List(ctx, domain.ListJobRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Jobs, 1)
	assert.Equal(t, first.ID, next.Jobs[0].ID)
	assert.False(t, next.HasMore)

	_, err = f.svc.List(ctx, domain.ListJobRequest{Status: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.svc.List(ctx, domain.ListJobRequest{PageToken: "!!"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestSummary_AddsExpensesAndLabor(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	job := createJob(t, f, "Kitchen", domain.JobStatusInProgress)

	_, err := f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{
		JobID:       job.ID.String(),
		Type:        domain.ExpenseTypeMaterial,
		Vendor:      "Home Depot",
		AmountCents: 12050,
	})
	require.NoError(t, err)
	_, err = f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{
		JobID:            job.ID.String(),
		WorkerName:       "Luis",
		Hours:            2.5,
		RateCentsPerHour: 3333,
	})
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, job.ID.String())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(12050), summary.ExpensesCents)
	assert.Equal(t, int64(8333), summary.LaborCents) // 8332.5 rounds up
	assert.Equal(t, int64(20383), summary.TotalCents)

	missing, err := f.svc.Summary(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExpenses_ZeroAmountAndOrdering(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	job := createJob(t, f, "Paint", domain.JobStatusPlanned)

	older := start.AddDate(0, 0, -3)
	first, err := f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), AmountCents: 0, Date: &older})
	require.NoError(t, err)
	second, err := f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), AmountCents: 500})
	require.NoError(t, err)

	items, err := f.svc.ListExpenses(ctx, job.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
	assert.Equal(t, int64(0), items[1].AmountCents)
	assert.Equal(t, domain.ExpenseTypeOther, items[1].Type)

	_, err = f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), AmountCents: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), Type: "SNACKS"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	edited, err := f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{
		ID:          second.ID.String(),
		JobID:       job.ID.String(),
		AmountCents: 750,
	})
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.Equal(edited.CreatedAt))

	require.NoError(t, f.svc.DeleteExpense(ctx, job.ID.String(), first.ID.String()))
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, job.ID.String(), first.ID.String()), domain.ErrExpenseNotFound)

	summary, err := f.svc.Summary(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(750), summary.ExpensesCents)
}

func TestWorkLogs_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	job := createJob(t, f, "Drywall", domain.JobStatusPlanned)

	_, err := f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{JobID: job.ID.String(), Hours: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidHours)
	_, err = f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{JobID: job.ID.String(), RateCentsPerHour: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
	_, err = f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{JobID: "777", Hours: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	log, err := f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{JobID: job.ID.String(), Hours: 1, RateCentsPerHour: 4000})
	require.NoError(t, err)

	items, err := f.svc.ListWorkLogs(ctx, job.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, log.ID, items[0].ID)

	require.NoError(t, f.svc.DeleteWorkLog(ctx, job.ID.String(), log.ID.String()))
	assert.ErrorIs(t, f.svc.DeleteWorkLog(ctx, job.ID.String(), log.ID.String()), domain.ErrWorkLogNotFound)
}

func TestDelete_CascadesAndDetachesInvoices(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	job := createJob(t, f, "Garage", domain.JobStatusDone)

	_, err := f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), AmountCents: 100})
	require.NoError(t, err)
	_, err = f.svc.UpsertWorkLog(ctx, domain.UpsertWorkLogRequest{JobID: job.ID.String(), Hours: 1, RateCentsPerHour: 100})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		`INSERT INTO invoices (id, invoice_number, job_id, status, issue_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		42, "INV-1", job.ID, "DRAFT", start, start, start,
	).Error)

	sub, err := f.hub.Subscribe("invoice:42")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.svc.Delete(ctx, job.ID.String()))

	var counts struct {
		Expenses int64
		Logs     int64
		Linked   int64
	}
	require.NoError(t, f.db.Raw(`SELECT
		(SELECT COUNT(*) FROM expenses) AS expenses,
		(SELECT COUNT(*) FROM work_logs) AS logs,
		(SELECT COUNT(*) FROM invoices WHERE job_id IS NOT NULL) AS linked`).Scan(&counts).Error)
	assert.Zero(t, counts.Expenses)
	assert.Zero(t, counts.Logs)
	assert.Zero(t, counts.Linked)

	select {
	case <-sub.Changes():
	default:
		t.Fatal("detached invoice observers were not notified")
	}

	_, err = f.svc.GetByID(ctx, job.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCounts(t *testing.T) {
	f := setup(t)
	createJob(t, f, "a", domain.JobStatusPlanned)
	createJob(t, f, "b", domain.JobStatusInProgress)
	createJob(t, f, "c", domain.JobStatusDone)
	createJob(t, f, "d", domain.JobStatusCanceled)

	counts, err := f.svc.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Total: 4, Active: 2, Done: 1}, counts)
}

func TestObserveSummary_RecomputesAndEndsOnDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := setup(t)
	job := createJob(t, f, "Pool", domain.JobStatusInProgress)

	ch, err := f.svc.ObserveSummary(ctx, job.ID.String())
	require.NoError(t, err)

	first := <-ch
	require.NotNil(t, first)
	assert.Zero(t, first.TotalCents)

	_, err = f.svc.UpsertExpense(ctx, domain.UpsertExpenseRequest{JobID: job.ID.String(), AmountCents: 2500})
	require.NoError(t, err)

	select {
	case next := <-ch:
		require.NotNil(t, next)
		assert.Equal(t, int64(2500), next.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("no recomputation after expense")
	}

	require.NoError(t, f.svc.Delete(ctx, job.ID.String()))
	select {
	case gone, ok := <-ch:
		assert.True(t, ok)
		assert.Nil(t, gone)
	case <-time.After(2 * time.Second):
		t.Fatal("no final value after delete")
	}
}
