package analysis

import (
	"time"

	"value-betting-bot/internal/match"
)

// Gate drops pairs whose reference quote is too old to trust. Edge decays
// as the sharp line moves, so freshness keys off the reference capture
// time alone; the exchange side refreshes continuously and is not the
// ground truth for staleness.
type Gate struct {
	MaxAge time.Duration
	Now    func() time.Time // nil means time.Now
}

// Fresh reports whether a quote captured at capturedAt is still inside
// the staleness window. The boundary is inclusive on the fresh side: a
// quote aged exactly MaxAge passes, anything older is stale.
func (g Gate) Fresh(capturedAt time.Time) bool {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	return now.Sub(capturedAt) <= g.MaxAge
}

// Accept applies the gate to a matched pair using the reference side's
// capture time.
func (g Gate) Accept(p match.Pair) bool {
	return g.Fresh(p.RefCapturedAt)
}
