// Command validate_matching fetches both live feeds and reports how the
// event matcher pairs them, without evaluating or alerting anything. Use
// it after changing the score threshold or when a league's naming
// conventions look off.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"value-betting-bot/internal/api"
	"value-betting-bot/internal/config"
	"value-betting-bot/internal/exchange"
	"value-betting-bot/internal/market"
	"value-betting-bot/internal/match"
	"value-betting-bot/internal/odds"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Feed.APIKey == "" {
		fmt.Fprintln(os.Stderr, "ODDS_API_KEY is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	reference := api.NewSharpFeedClient(api.SharpFeedConfig{
		BaseURL:    cfg.Feed.BaseURL,
		APIKey:     cfg.Feed.APIKey,
		Region:     cfg.Feed.Region,
		Bookmakers: cfg.Feed.Bookmakers,
		RateLimit:  cfg.Feed.RateLimit,
		Timeout:    cfg.Feed.Timeout.Duration,
	})
	gamma := exchange.NewClient(&http.Client{Timeout: cfg.Exchange.Timeout.Duration}).
		WithHost(cfg.Exchange.GammaHost)
	feed := exchange.NewFeed(gamma, nil, logger)

	matching := match.Config{
		ScoreThreshold: cfg.Matching.ScoreThreshold,
		TimeWindow:     cfg.Matching.TimeWindow.Duration,
		FirstWins:      cfg.Matching.FirstWins,
	}
	method := odds.Method(cfg.Scan.DevigMethod)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("MATCH VALIDATION (threshold %d, window %s)\n", cfg.Matching.ScoreThreshold, cfg.Matching.TimeWindow.Duration)
	fmt.Println(strings.Repeat("=", 80))

	var total, matched, ambiguous int
	for _, sport := range cfg.Sports {
		quotes, err := reference.FetchOdds(ctx, sport.FeedKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reference feed %s: %v\n", sport.FeedKey, err)
			os.Exit(1)
		}
		candidates, err := feed.FetchEvents(ctx, sport.SeriesID, sport.FeedKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "exchange feed series %s: %v\n", sport.SeriesID, err)
			os.Exit(1)
		}

		events, rejected := market.GroupEvents(quotes)
		fmt.Printf("\n%s: %d reference events (%d quotes rejected), %d exchange candidates\n\n",
			sport.Name, len(events), rejected, len(candidates))

		for _, ev := range events {
			total++
			fair, err := odds.ConsensusFair(ev, method, cfg.Feed.BookWeights)
			if err != nil {
				fmt.Printf("  ✗ %-40s no consensus: %v\n", ev.Name, err)
				continue
			}

			exch, score, err := match.Find(ev, candidates, matching)
			switch {
			case err == nil:
				matched++
				gap := exch.StartTime.Sub(ev.StartTime)
				fmt.Printf("  ✓ %-40s -> %-40s score=%d Δstart=%s\n", ev.Name, exch.Name, score, gap)
				for i, outcome := range fair.Outcomes {
					fmt.Printf("      fair %-30s %.4f (%d books)\n", outcome, fair.Probs[i], fair.BookCount)
				}
			case errors.Is(err, match.ErrAmbiguousMatch):
				ambiguous++
				fmt.Printf("  ‼ %-40s %v\n", ev.Name, err)
			default:
				fmt.Printf("  ✗ %-40s no match\n", ev.Name)
			}
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	if total == 0 {
		fmt.Println("no reference events right now, try again on a game day")
		return
	}
	fmt.Printf("matched %d/%d (%.0f%%), %d ambiguous\n", matched, total, float64(matched)/float64(total)*100, ambiguous)
}
