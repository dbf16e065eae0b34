// Package exchange fetches prediction-market prices from the exchange's
// Gamma REST API and, optionally, keeps them current over its CLOB
// websocket feed.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultHost is the base URL for the Gamma API.
const DefaultHost = "https://gamma-api.polymarket.com"

// eventsPageLimit bounds one events request. Series are small enough that
// a single page covers every open fixture.
const eventsPageLimit = 50

// Client is an HTTP client for the exchange's Gamma API.
type Client struct {
	httpClient *http.Client
	host       string
}

// NewClient creates a Gamma API client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		host:       DefaultHost,
	}
}

// WithHost sets a custom API host.
func (c *Client) WithHost(host string) *Client {
	c.host = host
	return c
}

// Events fetches the open events for one series, soonest start first.
func (c *Client) Events(ctx context.Context, seriesID string) ([]Event, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(eventsPageLimit))
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("series_id", seriesID)
	q.Set("order", "startTime")
	q.Set("ascending", "true")
	u := c.host + "/events?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return events, nil
}
