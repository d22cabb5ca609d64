package estimate

import (
	"math"
	"testing"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestEstimate_UsesSettingsDefaults(t *testing.T) {
	svc := New(config.NewStaticSettings(config.DefaultSettings()))

	got, err := svc.Estimate(Request{SquareFeet: 1600})
	require.NoError(t, err)

	assert.Equal(t, 0.22, got.RatePerSqft)
	assert.Equal(t, 1.0, got.Multiplier)
	assert.Equal(t, int64(35200), got.Cents)
	assert.Equal(t, "$352.00", got.Formatted)
}

func TestEstimate_Overrides(t *testing.T) {
	svc := New(config.NewStaticSettings(config.DefaultSettings()))

	got, err := svc.Estimate(Request{SquareFeet: 1234.5, RatePerSqft: ptr(0.22), Multiplier: ptr(1.15)})
	require.NoError(t, err)
	assert.Equal(t, int64(31233), got.Cents)

	got, err = svc.Estimate(Request{SquareFeet: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Cents)
}

func TestEstimate_RejectsNegatives(t *testing.T) {
	svc := New(config.NewStaticSettings(config.DefaultSettings()))

	_, err := svc.Estimate(Request{SquareFeet: -1})
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = svc.Estimate(Request{SquareFeet: 10, RatePerSqft: ptr(-0.1)})
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = svc.Estimate(Request{SquareFeet: 10, Multiplier: ptr(-2)})
	assert.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestCents_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(1), Cents(1, 0.005, 1))
	assert.Equal(t, int64(50), Cents(100, 0.005, 1))
}

func TestEstimate_RejectsNonFinite(t *testing.T) {
	svc := New(config.NewStaticSettings(config.DefaultSettings()))

	_, err := svc.Estimate(Request{SquareFeet: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = svc.Estimate(Request{SquareFeet: math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = svc.Estimate(Request{SquareFeet: 10, RatePerSqft: ptr(math.NaN())})
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = svc.Estimate(Request{SquareFeet: 10, Multiplier: ptr(math.Inf(1))})
	assert.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestEstimate_RejectsOverflow(t *testing.T) {
	svc := New(config.NewStaticSettings(config.DefaultSettings()))

	_, err := svc.Estimate(Request{SquareFeet: 1e300, RatePerSqft: ptr(1e10)})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCents_NonFiniteAndHuge(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, int64(0), Cents(math.NaN(), 0.22, 1))
		assert.Equal(t, int64(0), Cents(math.Inf(1), 0.22, 1))
	})
	assert.Equal(t, int64(math.MaxInt64), Cents(1e300, 1, 1))
}
