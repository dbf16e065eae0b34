package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRateLimitedClient(600, 5*time.Second, 3)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2 (one retry)", got)
	}
}

func TestDoMaxRetriesExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRateLimitedClient(600, 5*time.Second, 2)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if _, err := client.Do(req); err == nil {
		t.Fatal("expected an error after exhausting retries")
	} else if !strings.Contains(err.Error(), "max retries") {
		t.Errorf("error = %v, want it to mention max retries", err)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewRateLimitedClient(600, 5*time.Second, 3)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if _, err := client.Do(req); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestFetchOddsRequestShape(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedFixture))
	}))
	defer srv.Close()

	client := NewSharpFeedClient(SharpFeedConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Region:     "eu",
		Bookmakers: []string{"pinnacle", "circa"},
		RateLimit:  600,
		Timeout:    5 * time.Second,
	})

	quotes, err := client.FetchOdds(context.Background(), "basketball_nba")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 4 {
		t.Errorf("got %d quotes, want 4", len(quotes))
	}

	if gotPath != "/sports/basketball_nba/odds" {
		t.Errorf("path = %q, want /sports/basketball_nba/odds", gotPath)
	}
	for _, want := range []string{
		"apiKey=test-key",
		"regions=eu",
		"markets=h2h",
		"oddsFormat=decimal",
		"bookmakers=pinnacle%2Ccirca",
	} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestFetchOddsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	client := NewSharpFeedClient(SharpFeedConfig{
		BaseURL:   srv.URL,
		APIKey:    "bad-key",
		RateLimit: 600,
		Timeout:   5 * time.Second,
	})

	if _, err := client.FetchOdds(context.Background(), "basketball_nba"); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}
