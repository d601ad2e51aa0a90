// Package weight implements the pure weight-mode computation rules.
//
// Two modes exist. Normal mode trusts the entered weight. L mode treats the
// entered weight as already reduced by the configured reduction factor r:
// the scale under-reports, the customer is billed on the displayed weight,
// and the true weight is reconstructed for the records as displayed/(1-r).
package weight

import (
	"fmt"
	"math"

	"github.com/famscrap/scrapbill/internal/models"
)

// Line is the derived state for one weight line.
type Line struct {
	OriginalWeight float64
	LWeight        float64
	ReducedWeight  float64
	FinalWeight    float64
	Amount         float64
}

// Round2 rounds to 2 decimals, half away from zero. Used for money.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to 3 decimals, half away from zero. Used for weights.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ComputeWeightLine derives the stored weights and amount for one weight
// line from the entered weight. In L mode the entered value is the displayed
// (already reduced) weight. Rounding is applied once here, at the point of
// derivation: weights to 3 decimals, money to 2.
func ComputeWeightLine(entered float64, mode models.WeightMode, reduction, pricePerKg float64) (Line, error) {
	if reduction < 0 || reduction >= 1 {
		return Line{}, fmt.Errorf("%w: reduction factor %v outside [0, 1)", models.ErrConfiguration, reduction)
	}
	if entered < 0 {
		return Line{}, fmt.Errorf("%w: entered weight %v is negative", models.ErrValidation, entered)
	}
	if pricePerKg < 0 {
		return Line{}, fmt.Errorf("%w: price per kg %v is negative", models.ErrValidation, pricePerKg)
	}
	if !mode.Valid() {
		return Line{}, fmt.Errorf("%w: unknown weight mode %q", models.ErrValidation, mode)
	}

	if mode == models.ModeL {
		l := Round3(entered)
		original := Round3(l / (1 - reduction))
		return Line{
			OriginalWeight: original,
			LWeight:        l,
			ReducedWeight:  Round3(original - l),
			FinalWeight:    original,
			Amount:         Round2(entered * pricePerKg),
		}, nil
	}

	w := Round3(entered)
	return Line{
		OriginalWeight: w,
		FinalWeight:    w,
		Amount:         Round2(entered * pricePerKg),
	}, nil
}

// ComputeCountLine derives the amount for one count line.
func ComputeCountLine(quantity int, pricePerUnit float64) (float64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity %d must be positive", models.ErrValidation, quantity)
	}
	if pricePerUnit < 0 {
		return 0, fmt.Errorf("%w: price per unit %v is negative", models.ErrValidation, pricePerUnit)
	}
	return Round2(float64(quantity) * pricePerUnit), nil
}

// SumEntries totals the individual scale readings for one line before the
// mode conversion is applied. All entries on a line share the line's single
// mode; per-entry modes are not supported.
func SumEntries(entries []float64) float64 {
	var total float64
	for _, e := range entries {
		total += e
	}
	return total
}
