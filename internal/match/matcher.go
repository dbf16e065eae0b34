package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"value-betting-bot/internal/market"
	"value-betting-bot/internal/odds"
)

var (
	// ErrNoMatch means no candidate scored at or above the threshold.
	// Expected and common; callers drop the event and keep scanning.
	ErrNoMatch = errors.New("no matching event")

	// ErrAmbiguousMatch means two or more candidates, or two outcome
	// alignments, were indistinguishable at the top score. Dropped
	// rather than guessed.
	ErrAmbiguousMatch = errors.New("ambiguous match")
)

const (
	DefaultScoreThreshold = 90
	DefaultTimeWindow     = 24 * time.Hour
)

// ScoreFunc scores the similarity of two strings in [0,100]. It must be
// commutative and must score identical token sets 100.
type ScoreFunc func(a, b string) int

// DefaultScore is an order-independent token-set ratio.
func DefaultScore(a, b string) int {
	return fuzzy.TokenSetRatio(a, b)
}

// Config controls event matching.
type Config struct {
	ScoreThreshold int           // minimum similarity in [0,100]
	TimeWindow     time.Duration // maximum start-time gap between the two sides
	FirstWins      bool          // legacy tie policy: keep the first top-scoring candidate
	Score          ScoreFunc     // nil selects DefaultScore
}

func (c Config) withDefaults() Config {
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.TimeWindow <= 0 {
		c.TimeWindow = DefaultTimeWindow
	}
	if c.Score == nil {
		c.Score = DefaultScore
	}
	return c
}

// Pair joins one reference outcome with the exchange quote judged to price
// the same real-world outcome. A wrong pair corrupts every number computed
// downstream, so the similarity score that produced it travels along for
// audit.
type Pair struct {
	Sport         string
	Event         string // reference event name
	RefOutcome    string
	FairProb      float64 // consensus fair probability for RefOutcome
	RefCapturedAt time.Time
	Exchange      market.Quote // exchange side, polarity-aligned
	Confidence    int          // event similarity score in [0,100]
}

// Generic outcome labels mark totals and yes/no style markets, which
// cannot be polarity-aligned against team names.
var genericLabels = map[string]struct{}{
	"over": {}, "under": {}, "yes": {}, "no": {},
}

// Find returns the candidate event best matching ref, with its similarity
// score. Candidates from another sport, outside the start-time window, or
// quoting generic outcome labels are never considered. A tie at the top
// score breaks toward the candidate starting closest to the reference
// event; an unresolved tie is ErrAmbiguousMatch unless cfg.FirstWins.
func Find(ref market.Event, candidates []market.Event, cfg Config) (market.Event, int, error) {
	cfg = cfg.withDefaults()

	refNames := strings.Join(ref.Outcomes(), " ")
	var (
		best      []market.Event
		bestScore = -1
	)
	for _, cand := range candidates {
		if cand.Sport != ref.Sport {
			continue
		}
		if !withinWindow(ref.StartTime, cand.StartTime, cfg.TimeWindow) {
			continue
		}
		names := cand.Outcomes()
		if len(names) != 2 || hasGenericLabel(names) {
			continue
		}
		score := cfg.Score(refNames, strings.Join(names, " "))
		switch {
		case score > bestScore:
			bestScore = score
			best = append(best[:0], cand)
		case score == bestScore:
			best = append(best, cand)
		}
	}

	if bestScore < cfg.ScoreThreshold || len(best) == 0 {
		return market.Event{}, 0, fmt.Errorf("%w: event %q", ErrNoMatch, ref.Name)
	}
	if len(best) == 1 || cfg.FirstWins {
		return best[0], bestScore, nil
	}

	closest := closestByStart(ref.StartTime, best)
	if len(closest) > 1 {
		return market.Event{}, 0, fmt.Errorf("%w: %d candidates scored %d for event %q",
			ErrAmbiguousMatch, len(closest), bestScore, ref.Name)
	}
	return closest[0], bestScore, nil
}

// Match finds the exchange event for ref and aligns outcome polarity,
// returning one Pair per reference outcome that aligned confidently. The
// two reference outcomes must map to two distinct exchange outcomes; a
// collision means the alignment would be a guess, so the whole event is
// rejected.
func Match(ref market.Event, fair odds.Fair, candidates []market.Event, cfg Config) ([]Pair, error) {
	cfg = cfg.withDefaults()

	exch, score, err := Find(ref, candidates, cfg)
	if err != nil {
		return nil, err
	}

	exchNames := exch.Outcomes()
	taken := make(map[string]string, 2) // exchange outcome -> reference outcome
	var pairs []Pair
	for i, refOutcome := range fair.Outcomes {
		name, ok := bestOutcome(refOutcome, exchNames, cfg)
		if !ok {
			continue // no confident alignment for this side; the other may still pair
		}
		if prev, dup := taken[name]; dup {
			return nil, fmt.Errorf("%w: outcomes %q and %q both align to exchange outcome %q",
				ErrAmbiguousMatch, prev, refOutcome, name)
		}
		taken[name] = refOutcome

		q, ok := latestQuote(exch, name)
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{
			Sport:         ref.Sport,
			Event:         ref.Name,
			RefOutcome:    refOutcome,
			FairProb:      fair.Probs[i],
			RefCapturedAt: fair.CapturedAt,
			Exchange:      q,
			Confidence:    score,
		})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no outcome of %q aligned", ErrNoMatch, ref.Name)
	}
	return pairs, nil
}

// bestOutcome returns the exchange outcome most similar to refOutcome,
// if any scores at or above the threshold.
func bestOutcome(refOutcome string, exchNames []string, cfg Config) (string, bool) {
	bestName, bestScore := "", -1
	for _, name := range exchNames {
		if s := cfg.Score(refOutcome, name); s > bestScore {
			bestName, bestScore = name, s
		}
	}
	if bestScore < cfg.ScoreThreshold {
		return "", false
	}
	return bestName, true
}

func latestQuote(ev market.Event, outcome string) (market.Quote, bool) {
	var (
		q     market.Quote
		found bool
	)
	for _, cand := range ev.Quotes {
		if cand.Outcome != outcome {
			continue
		}
		if !found || cand.CapturedAt.After(q.CapturedAt) {
			q = cand
			found = true
		}
	}
	return q, found
}

// withinWindow applies only when both sides carry a start time.
func withinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return absDuration(a.Sub(b)) <= window
}

// closestByStart returns the events whose start time is nearest the
// reference start. Events without a start time cannot win a closeness
// tie-break.
func closestByStart(refStart time.Time, events []market.Event) []market.Event {
	if refStart.IsZero() {
		return events
	}
	var (
		out     []market.Event
		minDist = time.Duration(-1)
	)
	for _, ev := range events {
		if ev.StartTime.IsZero() {
			continue
		}
		d := absDuration(refStart.Sub(ev.StartTime))
		switch {
		case minDist < 0 || d < minDist:
			minDist = d
			out = append(out[:0], ev)
		case d == minDist:
			out = append(out, ev)
		}
	}
	if len(out) == 0 {
		return events
	}
	return out
}

func hasGenericLabel(names []string) bool {
	for _, n := range names {
		if _, ok := genericLabels[strings.ToLower(strings.TrimSpace(n))]; ok {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
