package odds

import (
	"fmt"
	"math"
)

// Method selects the vig-removal algorithm.
type Method string

const (
	// Multiplicative divides each implied probability by their sum.
	Multiplicative Method = "multiplicative"
	// Power finds k such that pA^k + pB^k = 1, deflating longshots more
	// than favorites (favorite-longshot bias correction).
	Power Method = "power"
)

// RemoveVig strips the book's margin from a two-way market using the
// proportional method: each side is divided by the combined book
// probability, so the fair pair sums to exactly 1.
func RemoveVig(impliedA, impliedB float64) (float64, float64, error) {
	if impliedA <= 0 || impliedA >= 1 || impliedB <= 0 || impliedB >= 1 {
		return 0, 0, fmt.Errorf("%w: implied pair (%.4f, %.4f) outside (0,1)", ErrMalformedOdds, impliedA, impliedB)
	}

	total := impliedA + impliedB
	return impliedA / total, impliedB / total, nil
}

// RemoveVigPower strips the margin with the power method: it solves for k
// such that impliedA^k + impliedB^k = 1 and returns the powered pair.
func RemoveVigPower(impliedA, impliedB float64) (float64, float64, error) {
	if impliedA <= 0 || impliedA >= 1 || impliedB <= 0 || impliedB >= 1 {
		return 0, 0, fmt.Errorf("%w: implied pair (%.4f, %.4f) outside (0,1)", ErrMalformedOdds, impliedA, impliedB)
	}

	if math.Abs(impliedA+impliedB-1.0) < 1e-9 {
		return impliedA, impliedB, nil
	}

	k := findPowerExponent(impliedA, impliedB)
	return math.Pow(impliedA, k), math.Pow(impliedB, k), nil
}

// Devig dispatches to the configured vig-removal method.
func Devig(method Method, impliedA, impliedB float64) (float64, float64, error) {
	switch method {
	case Power:
		return RemoveVigPower(impliedA, impliedB)
	case Multiplicative, "":
		return RemoveVig(impliedA, impliedB)
	default:
		return 0, 0, fmt.Errorf("%w: unknown devig method %q", ErrMalformedOdds, method)
	}
}

// findPowerExponent bisects for k with pA^k + pB^k = 1. For probabilities in
// (0,1), raising k lowers the sum, so an overround market (sum > 1) needs
// k > 1 and an underround market needs k < 1.
func findPowerExponent(pA, pB float64) float64 {
	const (
		tolerance = 1e-9
		maxIters  = 100
	)

	low, high := 0.01, 10.0

	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		sum := math.Pow(pA, mid) + math.Pow(pB, mid)

		if math.Abs(sum-1.0) < tolerance {
			return mid
		}

		if sum > 1 {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2
}
