package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"value-betting-bot/internal/analysis"
	"value-betting-bot/internal/market"
	"value-betting-bot/internal/match"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func testRec(event, pick string, ev float64) analysis.Recommendation {
	return analysis.Recommendation{
		Evaluation: analysis.Evaluation{
			Pair: match.Pair{
				Sport:      "basketball_nba",
				Event:      event,
				RefOutcome: pick,
				FairProb:   0.615,
				Confidence: 95,
				Exchange: market.Quote{
					Source:    "polymarket",
					Outcome:   pick,
					Price:     0.40,
					Format:    market.FormatProbability,
					StartTime: time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC),
					Link:      "https://polymarket.com/event/nba-bos-mia",
				},
			},
			ExchangeImplied: 0.40,
			Payout:          2.5,
			EV:              ev,
		},
		Stake: analysis.Stake{Amount: 1.00, Fraction: 0.05, Multiplier: 0.25},
		Rank:  1,
	}
}

func TestNotifierFanOut(t *testing.T) {
	a := &fakeSender{name: "discord"}
	b := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{a, b}, nil, time.Hour, testLogger())

	if err := n.AlertRecommendation(context.Background(), testRec("Celtics vs. Heat", "Celtics", 0.25)); err != nil {
		t.Fatalf("AlertRecommendation() error = %v", err)
	}

	if len(a.titles) != 1 || len(b.titles) != 1 {
		t.Errorf("sends = %d, %d, want 1 each", len(a.titles), len(b.titles))
	}
}

func TestNotifierDedupSuppresses(t *testing.T) {
	s := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{s}, NewMemoryDeduper(), time.Hour, testLogger())
	ctx := context.Background()

	rec := testRec("Celtics vs. Heat", "Celtics", 0.25)
	if err := n.AlertRecommendation(ctx, rec); err != nil {
		t.Fatalf("first alert error = %v", err)
	}
	if err := n.AlertRecommendation(ctx, rec); err != nil {
		t.Fatalf("repeat alert error = %v", err)
	}
	if len(s.titles) != 1 {
		t.Errorf("sends after repeat = %d, want 1", len(s.titles))
	}

	other := testRec("Celtics vs. Heat", "Heat", 0.25)
	if err := n.AlertRecommendation(ctx, other); err != nil {
		t.Fatalf("other pick alert error = %v", err)
	}
	if len(s.titles) != 2 {
		t.Errorf("sends after other pick = %d, want 2", len(s.titles))
	}
}

func TestNotifierSenderFailureIsolated(t *testing.T) {
	broken := &fakeSender{name: "discord", err: errors.New("webhook gone")}
	ok := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{broken, ok}, nil, time.Hour, testLogger())

	err := n.AlertRecommendation(context.Background(), testRec("Celtics vs. Heat", "Celtics", 0.25))
	if err == nil {
		t.Fatal("expected combined error when a sender fails")
	}
	if !strings.Contains(err.Error(), "discord") {
		t.Errorf("error = %v, want failing sender named", err)
	}
	if len(ok.titles) != 1 {
		t.Errorf("healthy sender sends = %d, want 1", len(ok.titles))
	}
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, NewMemoryDeduper(), time.Hour, testLogger())
	if err := n.AlertRecommendation(context.Background(), testRec("Celtics vs. Heat", "Celtics", 0.25)); err != nil {
		t.Errorf("AlertRecommendation() with no senders error = %v", err)
	}
}

func TestMemoryDeduperWindow(t *testing.T) {
	d := NewMemoryDeduper()
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	now := base
	d.now = func() time.Time { return now }
	ctx := context.Background()

	seen, err := d.Seen(ctx, "k", time.Hour)
	if err != nil || seen {
		t.Fatalf("first Seen() = %v, %v, want false, nil", seen, err)
	}

	now = base.Add(30 * time.Minute)
	if seen, _ = d.Seen(ctx, "k", time.Hour); !seen {
		t.Error("Seen() inside window = false, want true")
	}

	now = base.Add(91 * time.Minute)
	if seen, _ = d.Seen(ctx, "k", time.Hour); seen {
		t.Error("Seen() after window = true, want false")
	}
}

func TestMemoryDeduperCleanup(t *testing.T) {
	d := NewMemoryDeduper()
	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.seen["old"] = base.Add(-2 * time.Hour)
	d.seen["fresh"] = base.Add(-5 * time.Minute)

	d.Cleanup(time.Hour)

	if _, ok := d.seen["old"]; ok {
		t.Error("old entry survived cleanup")
	}
	if _, ok := d.seen["fresh"]; !ok {
		t.Error("fresh entry removed by cleanup")
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		ev   float64
		want string
	}{
		{0.80, "⭐⭐⭐"},
		{0.50, "⭐⭐⭐"},
		{0.30, "⭐⭐"},
		{0.29, "⭐"},
		{0.02, "⭐"},
	}

	for _, tt := range tests {
		if got := Rating(tt.ev); got != tt.want {
			t.Errorf("Rating(%v) = %s, want %s", tt.ev, got, tt.want)
		}
	}
}

func TestFormatRecommendation(t *testing.T) {
	title, message := formatRecommendation(testRec("Celtics vs. Heat", "Celtics", 0.25))

	if !strings.Contains(title, "#1") || !strings.Contains(title, "Celtics") {
		t.Errorf("title = %q, want rank and pick", title)
	}
	for _, want := range []string{
		"Celtics vs. Heat",
		"win prob 61.5%",
		"price 0.400",
		"payout 2.50",
		"EV +25.00%",
		"stake $1.00 (5.0% of bankroll)",
		"match confidence 95",
		"https://polymarket.com/event/nba-bos-mia",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("message missing %q:\n%s", want, message)
		}
	}
}
