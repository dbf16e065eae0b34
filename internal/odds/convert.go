package odds

import (
	"errors"
	"fmt"
	"math"

	"value-betting-bot/internal/market"
)

// ErrMalformedOdds marks a price that cannot represent a real probability:
// non-positive, out of range for its format, or an unknown format.
var ErrMalformedOdds = errors.New("malformed odds")

// ImpliedProbability converts a raw price to its naive implied probability
// (vig included). The result is always inside (0,1) or an error.
func ImpliedProbability(format market.PriceFormat, price float64) (float64, error) {
	switch format {
	case market.FormatDecimal:
		if price <= 1.0 {
			return 0, fmt.Errorf("%w: decimal odds %.4f must exceed 1.0", ErrMalformedOdds, price)
		}
		return 1.0 / price, nil

	case market.FormatAmerican:
		if math.Abs(price) < 100 {
			return 0, fmt.Errorf("%w: american odds %.0f must be at least +/-100", ErrMalformedOdds, price)
		}
		return americanToImplied(price), nil

	case market.FormatProbability:
		if price <= 0 || price >= 1 {
			return 0, fmt.Errorf("%w: probability price %.4f outside (0,1)", ErrMalformedOdds, price)
		}
		return price, nil

	default:
		return 0, fmt.Errorf("%w: unknown price format %q", ErrMalformedOdds, format)
	}
}

// PayoutMultiplier converts a raw price to its gross decimal payout per unit
// staked (stake included), i.e. the reciprocal of the implied probability.
func PayoutMultiplier(format market.PriceFormat, price float64) (float64, error) {
	implied, err := ImpliedProbability(format, price)
	if err != nil {
		return 0, err
	}
	return 1.0 / implied, nil
}

// americanToImplied converts American odds to implied probability.
// -150 → 0.6, +150 → 0.4.
func americanToImplied(odds float64) float64 {
	if odds > 0 {
		return 100.0 / (odds + 100.0)
	}
	return -odds / (-odds + 100.0)
}
