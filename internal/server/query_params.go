package server

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lightningshop/jobtrack/internal/money"
)

const dateOnlyLayout = "2006-01-02"

var (
	errInvalidTime = errors.New("invalid_time")
	errNotFinite   = errors.New("not_finite")
)

func parseOptionalFloat(value string) (*float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil, errNotFinite
	}
	return &parsed, nil
}

// parseOptionalDate accepts YYYY-MM-DD or RFC3339 and keeps only the
// calendar day in UTC.
func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &day, nil
	}
	return nil, errInvalidTime
}

// amountCents resolves a money field sent either as integer cents or as
// free text such as "$1,234.50". Text is parsed strictly.
func amountCents(field string, cents *int64, text string) (int64, error) {
	if cents != nil {
		return *cents, nil
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	parsed, err := money.ParseCents(text)
	if err != nil {
		return 0, newValidationError(field, "invalid_"+field, "invalid amount")
	}
	return parsed, nil
}
