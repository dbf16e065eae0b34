// Package alerts delivers value-bet recommendations to operator channels.
// Alerts fan out to every configured sender; a per-pick dedup window keeps
// repeat scans from re-alerting the same opportunity.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"value-betting-bot/internal/analysis"
)

// Sender is one delivery channel for alerts.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel, e.g. "discord".
	Name() string
}

// Notifier dispatches recommendation alerts to one or more Senders. Every
// alert passes the Deduper first, so the same pick alerts at most once per
// window even when consecutive scans keep finding it.
type Notifier struct {
	senders []Sender
	dedup   Deduper
	window  time.Duration
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. A nil dedup disables suppression; a nil
// logger falls back to slog.Default.
func NewNotifier(senders []Sender, dedup Deduper, window time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		senders: senders,
		dedup:   dedup,
		window:  window,
		logger:  logger.With("component", "notifier"),
	}
}

// AlertRecommendation sends one staked pick to every channel. Dedup errors
// fail open so a broken Redis never silences alerts.
func (n *Notifier) AlertRecommendation(ctx context.Context, rec analysis.Recommendation) error {
	key := alertKey(rec)

	if n.dedup != nil {
		seen, err := n.dedup.Seen(ctx, key, n.window)
		if err != nil {
			n.logger.Warn("alert dedup check failed", "key", key, "error", err)
		} else if seen {
			n.logger.Debug("alert suppressed, already sent", "key", key)
			return nil
		}
	}

	title, message := formatRecommendation(rec)
	return n.dispatch(ctx, title, message)
}

// AlertQuiet reports a scan that produced no qualifying picks. Meant for
// one-shot runs; the polling loop just logs instead.
func (n *Notifier) AlertQuiet(ctx context.Context) error {
	return n.dispatch(ctx, "No value today", "No opportunity cleared the thresholds. Sitting this one out.")
}

// Cleanup drops expired cooldown entries. Only the in-memory deduper
// accumulates state; Redis keys expire on their own.
func (n *Notifier) Cleanup() {
	if m, ok := n.dedup.(*MemoryDeduper); ok {
		m.Cleanup(n.window)
	}
}

// dispatch sends to every sender. A sender failure is logged and collected;
// it never blocks delivery to the remaining channels.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed", "sender", s.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.Debug("alert sent", "sender", s.Name(), "title", title)
	}

	if len(errs) > 0 {
		return fmt.Errorf("alerts: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// alertKey identifies a pick for dedup purposes. Price and stake stay out
// of the key so a small line move does not re-alert the same bet.
func alertKey(rec analysis.Recommendation) string {
	return fmt.Sprintf("%s|%s|%s", rec.Sport, rec.Event, rec.RefOutcome)
}

// Rating returns the display tier for an edge: three stars from +50% EV,
// two from +30%, one below.
func Rating(ev float64) string {
	switch {
	case ev >= 0.50:
		return "⭐⭐⭐"
	case ev >= 0.30:
		return "⭐⭐"
	default:
		return "⭐"
	}
}

// formatRecommendation renders one pick as an alert title and body.
func formatRecommendation(rec analysis.Recommendation) (title, message string) {
	title = fmt.Sprintf("🎯 #%d %s: %s %s", rec.Rank, rec.Sport, rec.RefOutcome, Rating(rec.EV))

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rec.Event)
	fmt.Fprintf(&b, "win prob %.1f%% | price %.3f | payout %.2f\n",
		rec.FairProb*100, rec.Exchange.Price, rec.Payout)
	fmt.Fprintf(&b, "EV +%.2f%% | stake $%.2f (%.1f%% of bankroll) | expected +$%.2f\n",
		rec.EV*100, rec.Stake.Amount, rec.Stake.Fraction*100,
		rec.ExpectedProfit(rec.Stake.Amount))
	fmt.Fprintf(&b, "match confidence %d", rec.Confidence)
	if !rec.Exchange.StartTime.IsZero() {
		fmt.Fprintf(&b, " | starts %s", rec.Exchange.StartTime.UTC().Format("2006-01-02 15:04 MST"))
	}
	if rec.Exchange.Link != "" {
		fmt.Fprintf(&b, "\n%s", rec.Exchange.Link)
	}

	return title, b.String()
}
