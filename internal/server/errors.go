package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lightningshop/jobtrack/internal/estimate"
	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	jobdomain "github.com/lightningshop/jobtrack/internal/job/domain"
	"github.com/lightningshop/jobtrack/internal/lock"
	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/lightningshop/jobtrack/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with the same buckets the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		code := "validation_error"
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	_, payload := mapError(err)
	switch payload.Type {
	case "validation_error":
		return payload.Type, validationErrorCode(err)
	case "internal_error":
		return payload.Type, "internal_error"
	default:
		return payload.Type, err.Error()
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	case isInvoiceValidationError(err),
		isJobValidationError(err),
		isEstimateValidationError(err):
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	for _, target := range []error{
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidNumber,
		invoicedomain.ErrInvalidTaxRate,
		invoicedomain.ErrInvalidDiscount,
		invoicedomain.ErrInvalidQuantity,
		invoicedomain.ErrInvalidUnitPrice,
		invoicedomain.ErrLineTotalTooLarge,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidPaymentMethod,
		invoicedomain.ErrInvalidDueDate,
		invoicedomain.ErrInvalidPageToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isJobValidationError(err error) bool {
	for _, target := range []error{
		jobdomain.ErrInvalidID,
		jobdomain.ErrInvalidTitle,
		jobdomain.ErrInvalidStatus,
		jobdomain.ErrInvalidType,
		jobdomain.ErrInvalidAmount,
		jobdomain.ErrInvalidHours,
		jobdomain.ErrInvalidRate,
		jobdomain.ErrInvalidDueDate,
		jobdomain.ErrInvalidPageToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isEstimateValidationError(err error) bool {
	return errors.Is(err, estimate.ErrInvalidArea) ||
		errors.Is(err, estimate.ErrInvalidRate) ||
		errors.Is(err, estimate.ErrInvalidMultiplier) ||
		errors.Is(err, estimate.ErrTooLarge)
}

func isConflictError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, invoicedomain.ErrDuplicateNumber) ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}

func conflictMessage(err error) string {
	if errors.Is(err, invoicedomain.ErrDuplicateNumber) {
		return "invoice number already in use"
	}
	return "conflict"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrLineNotFound),
		errors.Is(err, invoicedomain.ErrPaymentNotFound),
		errors.Is(err, invoicedomain.ErrJobNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, jobdomain.ErrExpenseNotFound),
		errors.Is(err, jobdomain.ErrWorkLogNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "invalid_page_token"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
