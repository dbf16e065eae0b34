package analysis

import (
	"errors"
	"fmt"

	"value-betting-bot/internal/match"
	"value-betting-bot/internal/odds"
)

// ErrInvalidProbability flags a fair probability outside (0,1).
var ErrInvalidProbability = errors.New("invalid probability")

// Evaluation prices one matched pair: the consensus fair probability
// from the reference side against the exchange's implied probability.
type Evaluation struct {
	match.Pair
	ExchangeImplied float64 // naive implied probability from the exchange price
	Payout          float64 // gross decimal payout multiplier, 1/ExchangeImplied
	EV              float64 // FairProb × Payout − 1, as a fraction of stake
}

// Evaluate computes the edge on a matched pair.
// EV = p × payout − 1, where payout is the gross decimal multiplier
// implied by the exchange price. EV is only meaningful for pairs that
// already passed the freshness gate.
func Evaluate(p match.Pair) (Evaluation, error) {
	if p.FairProb <= 0 || p.FairProb >= 1 {
		return Evaluation{}, fmt.Errorf("%w: fair probability %v for %q", ErrInvalidProbability, p.FairProb, p.RefOutcome)
	}
	implied, err := odds.ImpliedProbability(p.Exchange.Format, p.Exchange.Price)
	if err != nil {
		return Evaluation{}, err
	}
	payout := 1.0 / implied
	return Evaluation{
		Pair:            p,
		ExchangeImplied: implied,
		Payout:          payout,
		EV:              p.FairProb*payout - 1,
	}, nil
}

// ExpectedProfit is the mean profit of staking at this edge: a win pays
// stake×(payout−1) with probability p, a loss costs the stake.
func (e Evaluation) ExpectedProfit(stake float64) float64 {
	return stake*(e.Payout-1)*e.FairProb - stake*(1-e.FairProb)
}
