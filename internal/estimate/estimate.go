// Package estimate prices a job by floor area.
package estimate

import (
	"errors"
	"math"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/lightningshop/jobtrack/internal/money"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

var (
	ErrInvalidArea       = errors.New("invalid_area")
	ErrInvalidRate       = errors.New("invalid_rate")
	ErrInvalidMultiplier = errors.New("invalid_multiplier")
	ErrTooLarge          = errors.New("invalid_estimate")
)

var hundred = decimal.NewFromInt(100)

type Request struct {
	SquareFeet float64
	// RatePerSqft and Multiplier fall back to the calculator settings.
	RatePerSqft *float64
	Multiplier  *float64
}

type Result struct {
	SquareFeet  float64 `json:"square_feet"`
	RatePerSqft float64 `json:"rate_per_sqft"`
	Multiplier  float64 `json:"multiplier"`
	Cents       int64   `json:"cents"`
	Formatted   string  `json:"formatted"`
}

type Service struct {
	settings *config.SettingsHolder
}

func New(settings *config.SettingsHolder) *Service {
	return &Service{settings: settings}
}

var Module = fx.Module("estimate",
	fx.Provide(New),
)

func (s *Service) Estimate(req Request) (Result, error) {
	current := s.settings.Get()

	rate := current.Calculator.RatePerSqft
	if req.RatePerSqft != nil {
		rate = *req.RatePerSqft
	}
	mult := current.Calculator.Multiplier
	if req.Multiplier != nil {
		mult = *req.Multiplier
	}

	switch {
	case !usable(req.SquareFeet):
		return Result{}, ErrInvalidArea
	case !usable(rate):
		return Result{}, ErrInvalidRate
	case !usable(mult):
		return Result{}, ErrInvalidMultiplier
	}

	cents, err := money.CheckedCents(product(req.SquareFeet, rate, mult))
	if err != nil {
		return Result{}, ErrTooLarge
	}
	return Result{
		SquareFeet:  req.SquareFeet,
		RatePerSqft: rate,
		Multiplier:  mult,
		Cents:       cents,
		Formatted:   money.FormatCents(cents, current.Currency),
	}, nil
}

// Cents is round(sqft * rate * multiplier * 100), half away from zero,
// saturating at the int64 bounds. A non-finite input yields 0.
func Cents(sqft, rate, multiplier float64) int64 {
	for _, v := range []float64{sqft, rate, multiplier} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	return money.SaturateCents(product(sqft, rate, multiplier))
}

func product(sqft, rate, multiplier float64) decimal.Decimal {
	return decimal.NewFromFloat(sqft).
		Mul(decimal.NewFromFloat(rate)).
		Mul(decimal.NewFromFloat(multiplier)).
		Mul(hundred)
}

func usable(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
