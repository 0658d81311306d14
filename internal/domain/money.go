package domain

import "math"

// ToCents converts a currency amount to integer cents, rounding half away from zero.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a currency amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// RoundCents rounds an amount to two decimals.
func RoundCents(amount float64) float64 {
	return FromCents(ToCents(amount))
}
