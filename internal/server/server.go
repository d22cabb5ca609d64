package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/estimate"
	"github.com/lightningshop/jobtrack/internal/export"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/invoice/render"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/internal/observability"
	obslogger "github.com/lightningshop/jobtrack/internal/observability/logger"
	obsmetrics "github.com/lightningshop/jobtrack/internal/observability/metrics"
	obstracing "github.com/lightningshop/jobtrack/internal/observability/tracing"
	"github.com/lightningshop/jobtrack/internal/providers/storage"
	"github.com/lightningshop/jobtrack/internal/ratelimit"
	reportdomain "github.com/lightningshop/jobtrack/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// invoiceExporter is the part of the export service the handlers use.
type invoiceExporter interface {
	RenderPDF(ctx context.Context, invoiceID string) (export.Document, error)
	ExportPDF(ctx context.Context, invoiceID string) (storage.Artifact, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if httpMetrics != nil {
		r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))
	}

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	settings    *config.SettingsHolder
	jobSvc      jobdomain.Service
	invoiceSvc  invoicedomain.Service
	exporter    invoiceExporter
	renderer    render.Renderer
	reportSvc   reportdomain.Service
	estimateSvc *estimate.Service
	limiter     *ratelimit.APILimiter

	heartbeat time.Duration
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Settings    *config.SettingsHolder
	JobSvc      jobdomain.Service
	InvoiceSvc  invoicedomain.Service
	Exporter    *export.Service
	Renderer    render.Renderer
	ReportSvc   reportdomain.Service
	EstimateSvc *estimate.Service
	Limiter     *ratelimit.APILimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		settings:    p.Settings,
		jobSvc:      p.JobSvc,
		invoiceSvc:  p.InvoiceSvc,
		exporter:    p.Exporter,
		renderer:    p.Renderer,
		reportSvc:   p.ReportSvc,
		estimateSvc: p.EstimateSvc,
		limiter:     p.Limiter,
		heartbeat:   15 * time.Second,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.APIRateLimit())

	// -------- Jobs --------
	api.GET("/jobs", s.ListJobs)
	api.POST("/jobs", s.CreateJob)
	api.GET("/jobs/:id", s.GetJobByID)
	api.PUT("/jobs/:id", s.UpdateJob)
	api.DELETE("/jobs/:id", s.DeleteJob)
	api.GET("/jobs/:id/summary", s.GetJobSummary)
	api.GET("/jobs/:id/summary/stream", s.StreamJobSummary)
	api.POST("/jobs/:id/invoices", s.CreateDraftForJob)

	api.GET("/jobs/:id/expenses", s.ListExpenses)
	api.POST("/jobs/:id/expenses", s.CreateExpense)
	api.PUT("/jobs/:id/expenses/:expenseId", s.UpdateExpense)
	api.DELETE("/jobs/:id/expenses/:expenseId", s.DeleteExpense)

	api.GET("/jobs/:id/work-logs", s.ListWorkLogs)
	api.POST("/jobs/:id/work-logs", s.CreateWorkLog)
	api.PUT("/jobs/:id/work-logs/:workLogId", s.UpdateWorkLog)
	api.DELETE("/jobs/:id/work-logs/:workLogId", s.DeleteWorkLog)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.POST("/invoices/draft", s.CreateDraftInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.GET("/invoices/:id/snapshot", s.GetInvoiceSnapshot)
	api.GET("/invoices/:id/snapshot/stream", s.StreamInvoiceSnapshot)
	api.POST("/invoices/:id/sync-status", s.SyncInvoiceStatus)
	api.POST("/invoices/:id/export", s.ExportInvoice)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)
	api.GET("/invoices/:id/preview", s.PreviewInvoice)

	api.GET("/invoices/:id/lines", s.ListInvoiceLines)
	api.POST("/invoices/:id/lines", s.CreateInvoiceLine)
	api.PUT("/invoices/:id/lines/:lineId", s.UpdateInvoiceLine)
	api.DELETE("/invoices/:id/lines/:lineId", s.DeleteInvoiceLine)

	api.GET("/invoices/:id/payments", s.ListPayments)
	api.POST("/invoices/:id/payments", s.CreatePayment)
	api.PUT("/invoices/:id/payments/:paymentId", s.UpdatePayment)
	api.DELETE("/invoices/:id/payments/:paymentId", s.DeletePayment)

	// -------- Reports & tools --------
	api.GET("/reports", s.GetReportOverview)
	api.GET("/estimate", s.GetEstimate)
	api.GET("/settings", s.GetSettings)
}
