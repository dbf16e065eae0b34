package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"value-betting-bot/internal/market"
)

// Defaults for the reference feed client.
const (
	DefaultFeedBaseURL = "https://api.the-odds-api.com/v4"
	defaultFeedRegion  = "eu"
	defaultRateLimit   = 30
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
)

// SharpFeedConfig configures the reference (sharp book) odds feed client.
type SharpFeedConfig struct {
	BaseURL    string
	APIKey     string
	Region     string
	Bookmakers []string // empty requests every book in the region
	RateLimit  int      // requests per minute
	Timeout    time.Duration
	MaxRetries int
}

// SharpFeedClient fetches two-sided moneyline prices from the reference
// odds feed and normalizes them into market quotes.
type SharpFeedClient struct {
	cfg    SharpFeedConfig
	client *RateLimitedClient
	now    func() time.Time
}

// NewSharpFeedClient creates a feed client. Zero config fields fall back
// to the stock defaults.
func NewSharpFeedClient(cfg SharpFeedConfig) *SharpFeedClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFeedBaseURL
	}
	if cfg.Region == "" {
		cfg.Region = defaultFeedRegion
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &SharpFeedClient{
		cfg:    cfg,
		client: NewRateLimitedClient(cfg.RateLimit, cfg.Timeout, cfg.MaxRetries),
		now:    time.Now,
	}
}

// Feed response types, head-to-head markets only.

type feedOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type feedMarket struct {
	Key        string        `json:"key"`
	LastUpdate time.Time     `json:"last_update"`
	Outcomes   []feedOutcome `json:"outcomes"`
}

type feedBookmaker struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Markets []feedMarket `json:"markets"`
}

type feedEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []feedBookmaker `json:"bookmakers"`
}

// FetchOdds returns one quote per bookmaker and outcome for every
// upcoming two-sided moneyline market of the sport.
func (c *SharpFeedClient) FetchOdds(ctx context.Context, sportKey string) ([]market.Quote, error) {
	endpoint := fmt.Sprintf("%s/sports/%s/odds", c.cfg.BaseURL, url.PathEscape(sportKey))
	params := url.Values{}
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("regions", c.cfg.Region)
	params.Set("markets", "h2h")
	params.Set("oddsFormat", "decimal")
	if len(c.cfg.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(c.cfg.Bookmakers, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating odds request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching odds: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading odds response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("odds feed status %d: %s", resp.StatusCode, string(body))
	}

	if remaining := resp.Header.Get("X-Requests-Remaining"); remaining != "" {
		slog.Debug("odds feed quota", "sport", sportKey, "requests_remaining", remaining)
	}

	return parseFeedQuotes(body, sportKey, c.now())
}

// parseFeedQuotes converts a feed response into quotes. CapturedAt is the
// market's last_update when the feed provides one, else fetchedAt.
func parseFeedQuotes(body []byte, sportKey string, fetchedAt time.Time) ([]market.Quote, error) {
	var events []feedEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("parsing odds response: %w", err)
	}

	var quotes []market.Quote
	for _, ev := range events {
		sport := ev.SportKey
		if sport == "" {
			sport = sportKey
		}
		name := ev.HomeTeam + " vs " + ev.AwayTeam

		for _, bm := range ev.Bookmakers {
			for _, m := range bm.Markets {
				if m.Key != "h2h" {
					continue
				}
				capturedAt := m.LastUpdate
				if capturedAt.IsZero() {
					capturedAt = fetchedAt
				}
				for _, o := range m.Outcomes {
					quotes = append(quotes, market.Quote{
						Source:     bm.Key,
						Sport:      sport,
						Event:      name,
						Outcome:    o.Name,
						Price:      o.Price,
						Format:     market.FormatDecimal,
						StartTime:  ev.CommenceTime,
						CapturedAt: capturedAt,
					})
				}
			}
		}
	}
	return quotes, nil
}
