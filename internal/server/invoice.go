package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"github.com/lightningshop/jobtrack/internal/providers/pdf"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
)

type invoiceRequest struct {
	InvoiceNumber string  `json:"invoice_number"`
	JobID         string  `json:"job_id"`
	Status        string  `json:"status"`
	BillToName    string  `json:"bill_to_name"`
	BillToAddress string  `json:"bill_to_address"`
	BillToEmail   string  `json:"bill_to_email"`
	BillToPhone   string  `json:"bill_to_phone"`
	IssueDate     *string `json:"issue_date"`
	DueDate       *string `json:"due_date"`
	Notes         string  `json:"notes"`
	TaxRateBps    int64   `json:"tax_rate_bps"`
	DiscountCents *int64  `json:"discount_cents"`
	Discount      string  `json:"discount"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		JobID  string `form:"job_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Status:    strings.TrimSpace(query.Status),
		JobID:     strings.TrimSpace(query.JobID),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	s.upsertInvoice(c, "")
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	s.upsertInvoice(c, strings.TrimSpace(c.Param("id")))
}

func (s *Server) upsertInvoice(c *gin.Context, id string) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	discount, err := amountCents("discount", req.DiscountCents, req.Discount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.invoiceSvc.Upsert(c.Request.Context(), invoicedomain.UpsertInvoiceRequest{
		ID:            id,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		JobID:         strings.TrimSpace(req.JobID),
		Status:        invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		BillToName:    strings.TrimSpace(req.BillToName),
		BillToAddress: strings.TrimSpace(req.BillToAddress),
		BillToEmail:   strings.TrimSpace(req.BillToEmail),
		BillToPhone:   strings.TrimSpace(req.BillToPhone),
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Notes:         req.Notes,
		TaxRateBps:    req.TaxRateBps,
		DiscountCents: discount,
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

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateDraftInvoice(c *gin.Context) {
	var req struct {
		JobID string `json:"job_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	s.createDraft(c, strings.TrimSpace(req.JobID))
}

func (s *Server) CreateDraftForJob(c *gin.Context) {
	s.createDraft(c, strings.TrimSpace(c.Param("id")))
}

func (s *Server) createDraft(c *gin.Context, jobID string) {
	resp, err := s.invoiceSvc.CreateDraftForJob(c.Request.Context(), jobID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// GetInvoiceSnapshot answers 404 with a null body when the invoice is gone.
func (s *Server) GetInvoiceSnapshot(c *gin.Context) {
	snap, err := s.invoiceSvc.Snapshot(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snap})
}

func (s *Server) StreamInvoiceSnapshot(c *gin.Context) {
	values, err := s.invoiceSvc.ObserveSnapshot(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	streamValues(c, s.heartbeat, values)
}

func (s *Server) SyncInvoiceStatus(c *gin.Context) {
	status, err := s.invoiceSvc.SyncStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": status}})
}

func (s *Server) ExportInvoice(c *gin.Context) {
	artifact, err := s.exporter.ExportPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": artifact})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	doc, err := s.exporter.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, pdf.ContentType, doc.Body)
}

func (s *Server) PreviewInvoice(c *gin.Context) {
	snap, err := s.invoiceSvc.Snapshot(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snap == nil {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}

	html, err := s.renderer.RenderHTML(*snap, s.settings.Get())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// -------- Lines --------

type lineRequest struct {
	Description    string   `json:"description"`
	Quantity       *float64 `json:"quantity"`
	UnitLabel      string   `json:"unit_label"`
	UnitPriceCents *int64   `json:"unit_price_cents"`
	UnitPrice      string   `json:"unit_price"`
	Taxable        *bool    `json:"taxable"`
	SortOrder      *int     `json:"sort_order"`
}

func (s *Server) ListInvoiceLines(c *gin.Context) {
	resp, err := s.invoiceSvc.ListLines(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateInvoiceLine(c *gin.Context) {
	s.upsertInvoiceLine(c, "")
}

func (s *Server) UpdateInvoiceLine(c *gin.Context) {
	s.upsertInvoiceLine(c, strings.TrimSpace(c.Param("lineId")))
}

func (s *Server) upsertInvoiceLine(c *gin.Context, id string) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unitPrice, err := amountCents("unit_price", req.UnitPriceCents, req.UnitPrice)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.UpsertLine(c.Request.Context(), invoicedomain.UpsertLineRequest{
		ID:             id,
		InvoiceID:      strings.TrimSpace(c.Param("id")),
		Description:    strings.TrimSpace(req.Description),
		Quantity:       req.Quantity,
		UnitLabel:      strings.TrimSpace(req.UnitLabel),
		UnitPriceCents: unitPrice,
		Taxable:        req.Taxable,
		SortOrder:      req.SortOrder,
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

func (s *Server) DeleteInvoiceLine(c *gin.Context) {
	err := s.invoiceSvc.DeleteLine(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("lineId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// -------- Payments --------

type paymentRequest struct {
	AmountCents *int64  `json:"amount_cents"`
	Amount      string  `json:"amount"`
	Method      string  `json:"method"`
	Date        *string `json:"date"`
	Note        string  `json:"note"`
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.invoiceSvc.ListPayments(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePayment(c *gin.Context) {
	s.upsertPayment(c, "")
}

func (s *Server) UpdatePayment(c *gin.Context) {
	s.upsertPayment(c, strings.TrimSpace(c.Param("paymentId")))
}

func (s *Server) upsertPayment(c *gin.Context, id string) {
	var req paymentRequest
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

	resp, err := s.invoiceSvc.UpsertPayment(c.Request.Context(), invoicedomain.UpsertPaymentRequest{
		ID:          id,
		InvoiceID:   strings.TrimSpace(c.Param("id")),
		AmountCents: amount,
		Method:      invoicedomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		Date:        date,
		Note:        req.Note,
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

func (s *Server) DeletePayment(c *gin.Context) {
	err := s.invoiceSvc.DeletePayment(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("paymentId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
