package analysis

import "math"

// SizeConfig carries the per-run bankroll snapshot and sizing limits.
// Immutable for the duration of a run so overlapping runs cannot
// split-brain the sizing decisions.
type SizeConfig struct {
	Bankroll      float64
	KellyFraction float64 // e.g. 0.25 for quarter Kelly
	SingleBetCap  float64 // max fraction of bankroll on one bet
	MinBetSize    float64 // stakes under this report zero
}

// Stake is the sizing decision for one evaluated edge.
type Stake struct {
	Amount     float64 // currency units to stake; 0 means no bet
	Fraction   float64 // bankroll fraction after fractional Kelly and cap
	Multiplier float64 // the Kelly fraction multiplier that was applied
}

// CalculateKelly computes the full Kelly fraction of bankroll.
// f* = (p*b - q) / b
// where p = win probability, q = 1-p, b = net odds (payout minus 1).
// Returns 0 when the edge is non-positive or inputs are out of range.
func CalculateKelly(p, b float64) float64 {
	if b <= 0 || p <= 0 || p >= 1 {
		return 0
	}
	kelly := (p*b - (1 - p)) / b
	return math.Max(0, kelly)
}

// CalculateStake sizes a bet with fractional Kelly. The full Kelly
// fraction is scaled by cfg.KellyFraction, clamped to cfg.SingleBetCap,
// then multiplied by the bankroll. A non-positive edge always sizes to
// zero, whatever the multiplier or bankroll. A stake under cfg.MinBetSize
// also reports zero; it is never rounded up to the minimum.
func CalculateStake(e Evaluation, cfg SizeConfig) Stake {
	full := CalculateKelly(e.FairProb, e.Payout-1)
	if full <= 0 {
		return Stake{Multiplier: cfg.KellyFraction}
	}

	fraction := full * cfg.KellyFraction
	if cfg.SingleBetCap > 0 {
		fraction = math.Min(fraction, cfg.SingleBetCap)
	}

	amount := fraction * cfg.Bankroll
	if amount < cfg.MinBetSize {
		return Stake{Multiplier: cfg.KellyFraction}
	}
	return Stake{Amount: amount, Fraction: fraction, Multiplier: cfg.KellyFraction}
}
