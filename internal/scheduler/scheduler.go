package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightningshop/jobtrack/internal/clock"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/totals"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/lightningshop/jobtrack/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sweepJob     = "status_sweep"
	sweepLockKey = "scheduler:" + sweepJob
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	Guard      *lock.Guard
	Clock      clock.Clock
	Config     Config   `optional:"true"`
	Recorder   Recorder `optional:"true"`
}

// Recorder receives per-run sweep metrics.
type Recorder interface {
	ObserveRun(job, outcome string, duration time.Duration)
	AddItems(job, result string, n int)
	IncError(job string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, string, time.Duration) {}
func (nopRecorder) AddItems(string, string, int) {}
func (nopRecorder) IncError(string, error) {}

// Scheduler periodically reconciles stored invoice statuses with their
// line items and payments. Writes made through the service already do this;
// the sweep repairs rows edited behind its back.
type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	guard      *lock.Guard
	invoiceSvc invoicedomain.Service
	recorder   Recorder
}

type SweepResult struct {
	Checked  int
	Repaired int
	Failed   int
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.InvoiceSvc == nil || p.Guard == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		guard:      p.Guard,
		invoiceSvc: p.InvoiceSvc,
		recorder:   recorder,
	}, nil
}

// RunOnce performs one sweep. Only one instance sweeps at a time when a
// shared lock is configured.
func (s *Scheduler) RunOnce(parent context.Context) (SweepResult, error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	var (
		result  SweepResult
		entered bool
	)
	err := s.guard.Do(ctx, sweepLockKey, func(ctx context.Context) error {
		entered = true
		var err error
		result, err = s.sweep(ctx)
		return err
	})

	elapsed := s.clock.Now().Sub(start)
	s.recorder.AddItems(sweepJob, "checked", result.Checked)
	s.recorder.AddItems(sweepJob, "repaired", result.Repaired)
	s.recorder.AddItems(sweepJob, "failed", result.Failed)

	log := s.log.With(
		zap.String("job", sweepJob),
		zap.Int("checked", result.Checked),
		zap.Int("repaired", result.Repaired),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", elapsed),
	)
	switch {
	case err == nil:
		s.recorder.ObserveRun(sweepJob, metrics.RunOutcomeOK, elapsed)
		log.Info("status sweep finished")
		return result, nil
	case !entered && errors.Is(err, lock.ErrLockTimeout):
		s.recorder.ObserveRun(sweepJob, metrics.RunOutcomeSkipped, elapsed)
		log.Info("status sweep skipped, another instance holds the lock")
		return result, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.recorder.ObserveRun(sweepJob, metrics.RunOutcomeTimeout, elapsed)
		log.Warn("status sweep timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return result, nil
	default:
		s.recorder.ObserveRun(sweepJob, metrics.RunOutcomeError, elapsed)
		return result, fmt.Errorf("status_sweep: %w", err)
	}
}

func (s *Scheduler) sweep(ctx context.Context) (SweepResult, error) {
	snapshots, err := s.invoiceSvc.Snapshots(ctx)
	if err != nil {
		s.recorder.IncError(sweepJob, err)
		return SweepResult{}, err
	}

	var (
		result SweepResult
		errs   error
	)
	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(errs, err)
		}
		result.Checked++

		want := totals.NextStatus(snap)
		if want == snap.Invoice.Status {
			continue
		}
		got, err := s.invoiceSvc.SyncStatus(ctx, snap.Invoice.ID.String())
		if err != nil {
			result.Failed++
			errs = errors.Join(errs, err)
			s.recorder.IncError(sweepJob, err)
			s.log.Warn("status sync failed",
				zap.String("invoice_id", snap.Invoice.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Repaired++
		s.log.Debug("status repaired",
			zap.String("invoice_id", snap.Invoice.ID.String()),
			zap.String("from", string(snap.Invoice.Status)),
			zap.String("to", string(got)),
		)
	}
	return result, errs
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
