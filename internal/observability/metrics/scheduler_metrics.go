package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Run outcomes.
const (
	RunOutcomeOK      = "ok"
	RunOutcomeSkipped = "skipped"
	RunOutcomeTimeout = "timeout"
	RunOutcomeError   = "error"
)

// Low-cardinality error reasons.
const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonLockTimeout          = "lock_timeout"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// Postgres SQLSTATE codes.
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
)

// SchedulerMetrics tracks background job runs on the /metrics registry.
type SchedulerMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func NewSchedulerMetrics(cfg Config, http *HTTPMetrics) *SchedulerMetrics {
	return newSchedulerMetrics(http.Registry(), cfg)
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "jobtrack"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	m := &SchedulerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobtrack_scheduler_job_runs_total",
			Help:        "Scheduler job runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "jobtrack_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"job"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobtrack_scheduler_items_total",
			Help:        "Rows visited by scheduler jobs by result.",
			ConstLabels: constLabels,
		}, []string{"job", "result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobtrack_scheduler_job_errors_total",
			Help:        "Scheduler job errors by reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.items, m.errors)
	return m
}

func (m *SchedulerMetrics) ObserveRun(job, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, outcome).Inc()
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SchedulerMetrics) AddItems(job, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(job, result).Add(float64(n))
}

func (m *SchedulerMetrics) IncError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(job, ClassifyError(err)).Inc()
}

// ClassifyError maps a job error to one of the Reason constants.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case errors.Is(err, lock.ErrLockTimeout):
		return ReasonLockTimeout
	case hasPGCode(err, pgLockNotAvailable):
		return ReasonDBLockTimeout
	case hasPGCode(err, pgSerializationFailure):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, pgUniqueViolation):
		return ReasonUniqueViolation
	case isDBError(err):
		return ReasonDB
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrInvalidValue)
}
