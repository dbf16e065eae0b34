package odds

import (
	"fmt"
	"time"

	"value-betting-bot/internal/market"
)

// Fair holds the consensus de-vigged probabilities for one two-outcome
// event. Probs always sums to 1 and is index-aligned with Outcomes.
type Fair struct {
	Outcomes   [2]string
	Probs      [2]float64
	BookCount  int       // books that contributed a usable two-sided price
	CapturedAt time.Time // oldest contributing capture time
}

// ConsensusFair computes fair probabilities for a reference event. Each
// book's two-sided prices are de-vigged independently and the fair pairs
// are averaged using the per-book weights (missing books weigh 1.0). Books
// missing either side, or with unconvertible prices, are skipped. With a
// single book this degenerates to a plain de-vig of that book's pair.
//
// CapturedAt is the oldest capture time among contributing quotes: a
// consensus is only as fresh as its stalest input.
func ConsensusFair(ev market.Event, method Method, weights map[string]float64) (Fair, error) {
	outcomes := ev.Outcomes()
	if len(outcomes) != 2 {
		return Fair{}, fmt.Errorf("%w: event %q has %d outcomes, need 2", ErrMalformedOdds, ev.Name, len(outcomes))
	}

	// Latest quote per (book, outcome).
	byBook := make(map[string]map[string]market.Quote)
	for _, q := range ev.Quotes {
		m, ok := byBook[q.Source]
		if !ok {
			m = make(map[string]market.Quote, 2)
			byBook[q.Source] = m
		}
		if prev, ok := m[q.Outcome]; !ok || q.CapturedAt.After(prev.CapturedAt) {
			m[q.Outcome] = q
		}
	}

	fair := Fair{Outcomes: [2]string{outcomes[0], outcomes[1]}}
	var sumA, sumB, sumW float64

	for _, book := range ev.Sources() {
		qa, okA := byBook[book][outcomes[0]]
		qb, okB := byBook[book][outcomes[1]]
		if !okA || !okB {
			continue // one-sided book, unusable for de-vigging
		}

		impliedA, err := ImpliedProbability(qa.Format, qa.Price)
		if err != nil {
			continue
		}
		impliedB, err := ImpliedProbability(qb.Format, qb.Price)
		if err != nil {
			continue
		}

		fairA, fairB, err := Devig(method, impliedA, impliedB)
		if err != nil {
			continue
		}

		w := 1.0
		if bw, ok := weights[book]; ok && bw > 0 {
			w = bw
		}

		sumA += fairA * w
		sumB += fairB * w
		sumW += w
		fair.BookCount++

		for _, q := range []market.Quote{qa, qb} {
			if fair.CapturedAt.IsZero() || q.CapturedAt.Before(fair.CapturedAt) {
				fair.CapturedAt = q.CapturedAt
			}
		}
	}

	if fair.BookCount == 0 {
		return Fair{}, fmt.Errorf("%w: event %q has no usable two-sided book", ErrMalformedOdds, ev.Name)
	}

	fair.Probs = [2]float64{sumA / sumW, sumB / sumW}
	return fair, nil
}
