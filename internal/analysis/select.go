package analysis

import "sort"

// Thresholds gate which sized evaluations qualify for recommendation.
type Thresholds struct {
	MinProbability float64 // fair probability floor
	MinEV          float64 // EV floor, fraction of stake
	MinPayout      float64 // decimal payout floor, 0 disables
	MaxBets        int     // keep at most this many, 0 means no limit
}

// Recommendation is a sized, ranked betting opportunity ready for
// notification and persistence. Read-only once ranked.
type Recommendation struct {
	Evaluation
	Stake Stake
	Rank  int // 1-based, assigned by Select
}

// Select filters sized evaluations against the thresholds, orders them
// by EV descending with fair probability as tie-break, truncates to
// MaxBets and assigns ranks. The sort is stable, so identical inputs
// always produce identical output order. An empty result is a normal
// outcome, not an error.
func Select(candidates []Recommendation, t Thresholds) []Recommendation {
	picks := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		if c.FairProb < t.MinProbability {
			continue
		}
		if c.EV < t.MinEV {
			continue
		}
		if t.MinPayout > 0 && c.Payout < t.MinPayout {
			continue
		}
		if c.Stake.Amount <= 0 {
			continue
		}
		picks = append(picks, c)
	}

	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].EV != picks[j].EV {
			return picks[i].EV > picks[j].EV
		}
		return picks[i].FairProb > picks[j].FairProb
	})

	if t.MaxBets > 0 && len(picks) > t.MaxBets {
		picks = picks[:t.MaxBets]
	}
	for i := range picks {
		picks[i].Rank = i + 1
	}
	return picks
}
