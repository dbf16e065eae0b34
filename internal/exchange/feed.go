package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"value-betting-bot/internal/market"
)

// Source is the quote source label attached to every exchange quote.
const Source = "polymarket"

const eventLinkBase = "https://polymarket.com/event/"

// streamStaleAfter bounds how old a streamed price may be before the REST
// snapshot wins again.
const streamStaleAfter = 5 * time.Minute

// Feed turns exchange events into match candidates. With a Stream attached,
// REST prices are overlaid with fresher streamed prices and newly seen
// tokens are subscribed for the scans that follow.
type Feed struct {
	client *Client
	stream *Stream
	logger *slog.Logger
	now    func() time.Time
}

// NewFeed creates a feed over the given REST client. stream may be nil when
// live price streaming is disabled.
func NewFeed(client *Client, stream *Stream, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		client: client,
		stream: stream,
		logger: logger,
		now:    time.Now,
	}
}

// FetchEvents returns one candidate per open two-outcome market in the
// series, tagged with the reference feed's sport key so downstream matching
// compares like with like. Structurally bad markets are skipped and
// counted, never fatal.
func (f *Feed) FetchEvents(ctx context.Context, seriesID, sport string) ([]market.Event, error) {
	events, err := f.client.Events(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange events: %w", err)
	}

	fetchedAt := f.now()
	var out []market.Event
	var tokens []string
	skipped := 0

	for _, ev := range events {
		for i := range ev.Markets {
			m := ev.Markets[i]
			if m.Closed {
				continue
			}

			cand, ids, err := candidateEvent(ev, m, sport, fetchedAt)
			if err != nil {
				skipped++
				f.logger.Debug("skipping exchange market",
					"market", m.Slug,
					"error", err)
				continue
			}

			if f.stream != nil {
				for j := range cand.Quotes {
					id := ids[j]
					if id == "" {
						continue
					}
					tokens = append(tokens, id)
					if price, at, ok := f.stream.Price(id); ok && fetchedAt.Sub(at) <= streamStaleAfter {
						cand.Quotes[j].Price = price
						cand.Quotes[j].CapturedAt = at
					}
				}
			}

			out = append(out, cand)
		}
	}

	if f.stream != nil && len(tokens) > 0 {
		if err := f.stream.Track(tokens); err != nil {
			f.logger.Warn("exchange stream subscribe failed", "error", err)
		}
	}
	if skipped > 0 {
		f.logger.Debug("skipped exchange markets", "sport", sport, "count", skipped)
	}

	f.logger.Debug("fetched exchange events",
		"series", seriesID,
		"events", len(events),
		"candidates", len(out))

	return out, nil
}

// candidateEvent builds one match candidate from a single exchange market.
// The returned token IDs parallel the candidate's quotes; an ID is empty
// when the market carries no usable token list.
func candidateEvent(ev Event, m Market, sport string, capturedAt time.Time) (market.Event, []string, error) {
	outcomes, err := m.ParseOutcomes()
	if err != nil {
		return market.Event{}, nil, fmt.Errorf("outcomes: %w", err)
	}
	prices, err := m.ParseOutcomePrices()
	if err != nil {
		return market.Event{}, nil, fmt.Errorf("outcome prices: %w", err)
	}
	if len(outcomes) != 2 || len(prices) != 2 {
		return market.Event{}, nil, fmt.Errorf("want a two-way market, got %d outcomes and %d prices",
			len(outcomes), len(prices))
	}

	link := eventLinkBase + ev.Slug
	start := ev.GameStart()
	cand := market.Event{
		Sport:     sport,
		Name:      ev.Title,
		StartTime: start,
		Link:      link,
	}

	for i := range outcomes {
		price, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return market.Event{}, nil, fmt.Errorf("price %q: %w", prices[i], err)
		}
		cand.Quotes = append(cand.Quotes, market.Quote{
			Source:     Source,
			Sport:      sport,
			Event:      ev.Title,
			Outcome:    outcomes[i],
			Price:      price,
			Format:     market.FormatProbability,
			StartTime:  start,
			CapturedAt: capturedAt,
			Link:       link,
		})
	}

	ids, err := m.ParseTokenIDs()
	if err != nil || len(ids) != 2 {
		ids = []string{"", ""}
	}

	return cand, ids, nil
}
