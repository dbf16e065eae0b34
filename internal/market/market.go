package market

import (
	"errors"
	"fmt"
	"time"
)

// PriceFormat identifies how a Quote's Price is encoded.
type PriceFormat string

const (
	FormatDecimal     PriceFormat = "decimal"     // European decimal odds, e.g. 1.85
	FormatAmerican    PriceFormat = "american"    // American moneyline, e.g. -150 or +120
	FormatProbability PriceFormat = "probability" // exchange share price in (0,1)
)

// ErrMissingField marks a quote that arrived without a required field.
// Such quotes are rejected individually; the rest of the batch continues.
var ErrMissingField = errors.New("quote missing required field")

// Quote is one side's price for one outcome of one event, as captured from
// a single source. Quotes are immutable once fetched and live only for the
// duration of a scan.
type Quote struct {
	Source     string  // book or venue that priced it, e.g. "pinnacle"
	Sport      string  // feed-level sport key, e.g. "basketball_nba"
	Event      string  // raw event name, e.g. "Boston Celtics vs Miami Heat"
	Outcome    string  // outcome label, e.g. "Boston Celtics"
	Price      float64 // raw price in Format units
	Format     PriceFormat
	StartTime  time.Time // scheduled event start
	CapturedAt time.Time // when the source captured this price
	Link       string    // audit link/identifier, optional
}

// Validate reports whether the quote carries every field the pipeline needs.
// Price sanity is the normalizer's job; this only checks presence.
func (q Quote) Validate() error {
	switch {
	case q.Source == "":
		return fmt.Errorf("%w: source", ErrMissingField)
	case q.Sport == "":
		return fmt.Errorf("%w: sport", ErrMissingField)
	case q.Event == "":
		return fmt.Errorf("%w: event", ErrMissingField)
	case q.Outcome == "":
		return fmt.Errorf("%w: outcome", ErrMissingField)
	case q.Format == "":
		return fmt.Errorf("%w: format", ErrMissingField)
	case q.StartTime.IsZero():
		return fmt.Errorf("%w: start time", ErrMissingField)
	case q.CapturedAt.IsZero():
		return fmt.Errorf("%w: captured at", ErrMissingField)
	}
	return nil
}

// Event groups all quotes for one real-world event within a single feed
// batch. For the reference feed an event may hold quotes from several books;
// for the exchange feed it holds one quote per outcome.
type Event struct {
	Sport     string
	Name      string
	StartTime time.Time
	Link      string
	Quotes    []Quote
}

// Outcomes returns the distinct outcome labels in first-seen order.
func (e Event) Outcomes() []string {
	seen := make(map[string]bool, 2)
	var out []string
	for _, q := range e.Quotes {
		if !seen[q.Outcome] {
			seen[q.Outcome] = true
			out = append(out, q.Outcome)
		}
	}
	return out
}

// Sources returns the distinct quote sources in first-seen order.
func (e Event) Sources() []string {
	seen := make(map[string]bool, 2)
	var out []string
	for _, q := range e.Quotes {
		if !seen[q.Source] {
			seen[q.Source] = true
			out = append(out, q.Source)
		}
	}
	return out
}

// GroupEvents folds a flat quote batch into events keyed by sport, event
// name and start time. Quotes failing Validate are dropped and counted;
// a bad record never aborts the batch. Output order follows first
// appearance in the input, so identical input yields identical grouping.
func GroupEvents(quotes []Quote) (events []Event, rejected int) {
	index := make(map[string]int)

	for _, q := range quotes {
		if err := q.Validate(); err != nil {
			rejected++
			continue
		}

		key := fmt.Sprintf("%s|%s|%d", q.Sport, q.Event, q.StartTime.Unix())
		i, ok := index[key]
		if !ok {
			events = append(events, Event{
				Sport:     q.Sport,
				Name:      q.Event,
				StartTime: q.StartTime,
				Link:      q.Link,
			})
			i = len(events) - 1
			index[key] = i
		}

		events[i].Quotes = append(events[i].Quotes, q)
		if events[i].Link == "" && q.Link != "" {
			events[i].Link = q.Link
		}
	}

	return events, rejected
}
