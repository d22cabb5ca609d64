package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
)

type jobRequest struct {
	Title      string  `json:"title"`
	Contractor string  `json:"contractor"`
	Customer   string  `json:"customer"`
	Address    string  `json:"address"`
	Status     string  `json:"status"`
	StartDate  *string `json:"start_date"`
	DueDate    *string `json:"due_date"`
	Notes      string  `json:"notes"`
}

func (s *Server) ListJobs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.jobSvc.List(c.Request.Context(), jobdomain.ListJobRequest{
		Status:    strings.TrimSpace(query.Status),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Jobs, "page_info": resp.PageInfo})
}

func (s *Server) CreateJob(c *gin.Context) {
	s.upsertJob(c, "")
}

func (s *Server) UpdateJob(c *gin.Context) {
	s.upsertJob(c, strings.TrimSpace(c.Param("id")))
}

func (s *Server) upsertJob(c *gin.Context, id string) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.jobSvc.Upsert(c.Request.Context(), jobdomain.UpsertJobRequest{
		ID:         id,
		Title:      strings.TrimSpace(req.Title),
		Contractor: strings.TrimSpace(req.Contractor),
		Customer:   strings.TrimSpace(req.Customer),
		Address:    strings.TrimSpace(req.Address),
		Status:     jobdomain.JobStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		StartDate:  startDate,
		DueDate:    dueDate,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) GetJobByID(c *gin.Context) {
	resp, err := s.jobSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteJob(c *gin.Context) {
	if err := s.jobSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetJobSummary(c *gin.Context) {
	resp, err := s.jobSvc.Summary(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		AbortWithError(c, jobdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StreamJobSummary(c *gin.Context) {
	values, err := s.jobSvc.ObserveSummary(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	streamValues(c, s.heartbeat, values)
}

// -------- Expenses --------

type expenseRequest struct {
	Type        string  `json:"type"`
	Vendor      string  `json:"vendor"`
	Description string  `json:"description"`
	AmountCents *int64  `json:"amount_cents"`
	Amount      string  `json:"amount"`
	Date        *string `json:"date"`
	Category    string  `json:"category"`
	ReceiptRef  string  `json:"receipt_ref"`
}

func (s *Server) ListExpenses(c *gin.Context) {
	resp, err := s.jobSvc.ListExpenses(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateExpense(c *gin.Context) {
	s.upsertExpense(c, "")
}

func (s *Server) UpdateExpense(c *gin.Context) {
	s.upsertExpense(c, strings.TrimSpace(c.Param("expenseId")))
}

func (s *Server) upsertExpense(c *gin.Context, id string) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := amountCents("amount", req.AmountCents, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.jobSvc.UpsertExpense(c.Request.Context(), jobdomain.UpsertExpenseRequest{
		ID:          id,
		JobID:       strings.TrimSpace(c.Param("id")),
		Type:        jobdomain.ExpenseType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Vendor:      strings.TrimSpace(req.Vendor),
		Description: strings.TrimSpace(req.Description),
		AmountCents: amount,
		Date:        date,
		Category:    strings.TrimSpace(req.Category),
		ReceiptRef:  strings.TrimSpace(req.ReceiptRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) DeleteExpense(c *gin.Context) {
	err := s.jobSvc.DeleteExpense(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("expenseId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// -------- Work logs --------

type workLogRequest struct {
	WorkerName       string  `json:"worker_name"`
	Hours            float64 `json:"hours"`
	RateCentsPerHour *int64  `json:"rate_cents_per_hour"`
	Rate             string  `json:"rate"`
	Date             *string `json:"date"`
	Note             string  `json:"note"`
}

func (s *Server) ListWorkLogs(c *gin.Context) {
	resp, err := s.jobSvc.ListWorkLogs(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateWorkLog(c *gin.Context) {
	s.upsertWorkLog(c, "")
}

func (s *Server) UpdateWorkLog(c *gin.Context) {
	s.upsertWorkLog(c, strings.TrimSpace(c.Param("workLogId")))
}

func (s *Server) upsertWorkLog(c *gin.Context, id string) {
	var req workLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rate, err := amountCents("rate", req.RateCentsPerHour, req.Rate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.jobSvc.UpsertWorkLog(c.Request.Context(), jobdomain.UpsertWorkLogRequest{
		ID:               id,
		JobID:            strings.TrimSpace(c.Param("id")),
		WorkerName:       strings.TrimSpace(req.WorkerName),
		Hours:            req.Hours,
		RateCentsPerHour: rate,
		Date:             date,
		Note:             req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) DeleteWorkLog(c *gin.Context) {
	err := s.jobSvc.DeleteWorkLog(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("workLogId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
