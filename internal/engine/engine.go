// Package engine runs the scan loop: fetch both feeds, build consensus
// fair lines, match them to exchange markets, evaluate the edges, size
// the survivors and hand the ranked picks to notification and the ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"value-betting-bot/internal/analysis"
	"value-betting-bot/internal/config"
	"value-betting-bot/internal/ledger"
	"value-betting-bot/internal/market"
	"value-betting-bot/internal/match"
	"value-betting-bot/internal/odds"
)

// cleanupInterval is how often the polling loop prunes expired alert
// cooldown entries.
const cleanupInterval = 10 * time.Minute

// ReferenceFeed supplies sharp-book quotes for one sport.
type ReferenceFeed interface {
	FetchOdds(ctx context.Context, sportKey string) ([]market.Quote, error)
}

// ExchangeFeed supplies candidate exchange events for one series. The
// sport string is stamped onto the returned quotes so the matcher can
// hold both sides to the same league.
type ExchangeFeed interface {
	FetchEvents(ctx context.Context, seriesID, sport string) ([]market.Event, error)
}

// Notifier delivers a ranked pick to the configured channels.
type Notifier interface {
	AlertRecommendation(ctx context.Context, rec analysis.Recommendation) error
	Cleanup()
}

// Store persists picks and answers the recent-duplicate guard.
type Store interface {
	Add(rec ledger.Record) error
	HasRecentRecommendation(event, pick string, since time.Time) (bool, error)
}

// CSVLog mirrors picks into the append-only spreadsheet log.
type CSVLog interface {
	Append(records []ledger.Record) error
}

// Counts tallies record dispositions over one scan.
type Counts struct {
	Scanned     int `json:"scanned"`     // reference events that entered the pipeline
	Matched     int `json:"matched"`     // events matched to an exchange market
	Stale       int `json:"stale"`       // matched events dropped by the freshness gate
	Malformed   int `json:"malformed"`   // records rejected at intake or evaluation
	Ambiguous   int `json:"ambiguous"`   // events dropped on an unresolved match tie
	Recommended int `json:"recommended"` // picks that cleared selection
}

// Status describes the most recent scan, served by the health endpoint.
type Status struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Counts    Counts        `json:"counts"`
	Err       string        `json:"error,omitempty"` // last scan-level failure, empty when healthy
}

// Engine orchestrates one scan per tick. Bankroll and thresholds are
// snapshotted from the config at each scan, so a scan in flight never
// sees two different sizing regimes. The only cross-run state is the
// alert cooldown (owned by the notifier) and the last-scan status.
type Engine struct {
	reference ReferenceFeed
	exchange  ExchangeFeed
	notifier  Notifier
	store     Store
	csv       CSVLog
	cfg       config.Config
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastScan Status
}

// New creates an Engine. The notifier, store and csv log may be nil; the
// scan then runs log-only, which keeps the scanner useful without any
// credentials configured.
func New(reference ReferenceFeed, exchange ExchangeFeed, notifier Notifier, store Store, csv CSVLog, cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		reference: reference,
		exchange:  exchange,
		notifier:  notifier,
		store:     store,
		csv:       csv,
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		now:       time.Now,
	}
}

// Run scans once immediately, then on every poll tick until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("scan loop starting",
		"poll_interval", e.cfg.Scan.PollInterval.Duration,
		"sports", len(e.cfg.Sports),
	)

	ticker := time.NewTicker(e.cfg.Scan.PollInterval.Duration)
	defer ticker.Stop()

	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	e.Scan(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("scan loop stopped")
			return

		case <-cleanup.C:
			if e.notifier != nil {
				e.notifier.Cleanup()
			}

		case <-ticker.C:
			e.Scan(ctx)
		}
	}
}

// LastScan returns the status of the most recent scan.
func (e *Engine) LastScan() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastScan
}

// Scan runs one full cycle over every configured sport and returns its
// status. A failure in one sport or one record never aborts the rest;
// everything that goes wrong is counted and logged instead.
func (e *Engine) Scan(ctx context.Context) Status {
	started := e.now()
	status := Status{RunID: uuid.NewString(), StartedAt: started}

	gate := analysis.Gate{MaxAge: e.cfg.Scan.MaxOddsAge.Duration, Now: e.now}
	sizing := analysis.SizeConfig{
		Bankroll:      e.cfg.Bankroll,
		KellyFraction: e.cfg.Sizing.KellyFraction,
		SingleBetCap:  e.cfg.Sizing.SingleBetCap,
		MinBetSize:    e.cfg.Sizing.MinBetSize,
	}
	matching := match.Config{
		ScoreThreshold: e.cfg.Matching.ScoreThreshold,
		TimeWindow:     e.cfg.Matching.TimeWindow.Duration,
		FirstWins:      e.cfg.Matching.FirstWins,
	}
	method := odds.Method(e.cfg.Scan.DevigMethod)

	var candidates []analysis.Recommendation
	for _, sport := range e.cfg.Sports {
		quotes, exchEvents, err := e.fetchBoth(ctx, sport)
		if err != nil {
			e.logger.Warn("feed fetch failed", "sport", sport.Name, "error", err)
			status.Err = err.Error()
			continue
		}

		events, rejected := market.GroupEvents(quotes)
		status.Counts.Scanned += len(events)
		status.Counts.Malformed += rejected
		if rejected > 0 {
			e.logger.Debug("rejected malformed quotes at intake", "sport", sport.Name, "count", rejected)
		}

		sized := e.scanSport(sport, events, exchEvents, gate, sizing, matching, method, &status.Counts)
		candidates = append(candidates, sized...)
	}

	picks := analysis.Select(candidates, analysis.Thresholds{
		MinProbability: e.cfg.Scan.MinProbability,
		MinEV:          e.cfg.Scan.MinEV,
		MinPayout:      e.cfg.Scan.MinDecimalOdds,
		MaxBets:        e.cfg.Scan.MaxBets,
	})
	status.Counts.Recommended = len(picks)

	e.deliver(ctx, status.RunID, picks)

	status.Duration = e.now().Sub(started)
	e.logger.Info("scan complete",
		"run_id", status.RunID,
		"scanned", status.Counts.Scanned,
		"matched", status.Counts.Matched,
		"stale", status.Counts.Stale,
		"malformed", status.Counts.Malformed,
		"ambiguous", status.Counts.Ambiguous,
		"recommended", status.Counts.Recommended,
		"duration", status.Duration,
	)

	e.mu.Lock()
	e.lastScan = status
	e.mu.Unlock()
	return status
}

// fetchBoth pulls the reference and exchange batches concurrently, each
// under its own timeout. Either side failing fails the sport: an edge
// needs both halves of the comparison.
func (e *Engine) fetchBoth(ctx context.Context, sport config.Sport) ([]market.Quote, []market.Event, error) {
	var (
		quotes     []market.Quote
		exchEvents []market.Event
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, e.cfg.Feed.Timeout.Duration)
		defer cancel()
		var err error
		quotes, err = e.reference.FetchOdds(fctx, sport.FeedKey)
		if err != nil {
			return fmt.Errorf("reference feed %q: %w", sport.FeedKey, err)
		}
		return nil
	})

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, e.cfg.Exchange.Timeout.Duration)
		defer cancel()
		var err error
		exchEvents, err = e.exchange.FetchEvents(fctx, sport.SeriesID, sport.FeedKey)
		if err != nil {
			return fmt.Errorf("exchange feed series %q: %w", sport.SeriesID, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return quotes, exchEvents, nil
}

// scanSport walks one sport's reference events through consensus,
// matching, the freshness gate, evaluation and sizing. Both sides of a
// matched event share one reference capture time, so staleness is
// counted per event, not per outcome.
func (e *Engine) scanSport(
	sport config.Sport,
	events []market.Event,
	exchEvents []market.Event,
	gate analysis.Gate,
	sizing analysis.SizeConfig,
	matching match.Config,
	method odds.Method,
	counts *Counts,
) []analysis.Recommendation {
	var sized []analysis.Recommendation

	for _, ev := range events {
		fair, err := odds.ConsensusFair(ev, method, e.cfg.Feed.BookWeights)
		if err != nil {
			counts.Malformed++
			e.logger.Debug("no usable consensus", "sport", sport.Name, "event", ev.Name, "error", err)
			continue
		}

		pairs, err := match.Match(ev, fair, exchEvents, matching)
		switch {
		case err == nil:
		case errors.Is(err, match.ErrAmbiguousMatch):
			counts.Ambiguous++
			e.logger.Warn("ambiguous exchange match, skipping", "sport", sport.Name, "event", ev.Name, "error", err)
			continue
		case errors.Is(err, match.ErrNoMatch):
			e.logger.Debug("no exchange match", "sport", sport.Name, "event", ev.Name)
			continue
		default:
			counts.Malformed++
			e.logger.Debug("match failed", "sport", sport.Name, "event", ev.Name, "error", err)
			continue
		}
		counts.Matched++

		if !gate.Accept(pairs[0]) {
			counts.Stale++
			e.logger.Debug("reference odds too old",
				"sport", sport.Name,
				"event", ev.Name,
				"captured_at", pairs[0].RefCapturedAt,
			)
			continue
		}

		for _, p := range pairs {
			eval, err := analysis.Evaluate(p)
			if err != nil {
				counts.Malformed++
				e.logger.Debug("evaluation failed", "sport", sport.Name, "event", ev.Name, "outcome", p.RefOutcome, "error", err)
				continue
			}
			sized = append(sized, analysis.Recommendation{
				Evaluation: eval,
				Stake:      analysis.CalculateStake(eval, sizing),
			})
		}
	}

	return sized
}

// deliver persists and alerts the ranked picks. The ledger's recent-pick
// guard suppresses re-recommending the same side across restarts, which
// the notifier's in-memory cooldown cannot survive. Guard errors fail
// open: a broken database must not silence a live edge.
func (e *Engine) deliver(ctx context.Context, runID string, picks []analysis.Recommendation) {
	if len(picks) == 0 {
		e.logger.Info("no value found this scan")
		return
	}

	at := e.now()
	var records []ledger.Record

	for _, pick := range picks {
		rec := ledger.NewRecord(runID, pick, at)

		if e.store != nil {
			seen, err := e.store.HasRecentRecommendation(rec.Event, rec.Pick, at.Add(-e.cfg.Alerts.Cooldown.Duration))
			if err != nil {
				e.logger.Warn("duplicate guard failed", "event", rec.Event, "pick", rec.Pick, "error", err)
			} else if seen {
				e.logger.Debug("pick already recommended recently", "event", rec.Event, "pick", rec.Pick)
				continue
			}
			if err := e.store.Add(rec); err != nil {
				e.logger.Error("ledger insert failed", "event", rec.Event, "pick", rec.Pick, "error", err)
			}
		}
		records = append(records, rec)

		if e.notifier != nil {
			if err := e.notifier.AlertRecommendation(ctx, pick); err != nil {
				e.logger.Warn("alert delivery failed", "event", rec.Event, "pick", rec.Pick, "error", err)
			}
		}

		e.logger.Info("recommendation",
			"rank", pick.Rank,
			"sport", pick.Sport,
			"event", pick.Event,
			"pick", pick.RefOutcome,
			"fair_prob", pick.FairProb,
			"payout", pick.Payout,
			"ev", pick.EV,
			"stake", pick.Stake.Amount,
			"confidence", pick.Confidence,
		)
	}

	if e.csv != nil && len(records) > 0 {
		if err := e.csv.Append(records); err != nil {
			e.logger.Error("csv append failed", "count", len(records), "error", err)
		}
	}
}
