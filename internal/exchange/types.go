package exchange

import (
	"encoding/json"
	"time"
)

// Event is a prediction-market event as returned by the exchange's events
// endpoint. A sports event carries one or more markets; the moneyline
// market lists the two team outcomes.
type Event struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	Closed    bool      `json:"closed"`
	StartDate time.Time `json:"startDate,omitempty"`
	StartTime time.Time `json:"startTime,omitempty"`
	EndDate   time.Time `json:"endDate,omitempty"`
	Markets   []Market  `json:"markets,omitempty"`
}

// GameStart returns the scheduled start of the underlying event. The feed
// reports the fixture time in startDate; startTime is when trading opens
// and only stands in when startDate is absent.
func (e Event) GameStart() time.Time {
	if !e.StartDate.IsZero() {
		return e.StartDate
	}
	return e.StartTime
}

// Market is a single tradeable market within an event.
//
// Outcomes, OutcomePrices and ClobTokenIds arrive as JSON arrays encoded
// inside JSON strings and need a second decode step.
type Market struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`
	Active   bool   `json:"active"`
	Closed   bool   `json:"closed"`

	ClobTokenIds  string `json:"clobTokenIds"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
}

// ParseOutcomes decodes the Outcomes field into outcome labels.
func (m *Market) ParseOutcomes() ([]string, error) {
	if m.Outcomes == "" {
		return nil, nil
	}
	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// ParseOutcomePrices decodes the OutcomePrices field. Prices stay strings
// at this layer; the feed converts them when it builds quotes.
func (m *Market) ParseOutcomePrices() ([]string, error) {
	if m.OutcomePrices == "" {
		return nil, nil
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// ParseTokenIDs decodes the ClobTokenIds field into CLOB token IDs, in the
// same order as the market's outcomes.
func (m *Market) ParseTokenIDs() ([]string, error) {
	if m.ClobTokenIds == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIds), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
