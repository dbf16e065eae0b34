package backtest

import (
	"math"
	"testing"

	"value-betting-bot/internal/ledger"
)

func bet(prob, odds, stake float64) ledger.Record {
	return ledger.Record{
		Event:       "Celtics vs. Heat",
		Pick:        "Celtics",
		FairProb:    prob,
		DecimalOdds: odds,
		Stake:       stake,
	}
}

func TestRunDeterministicUnderFixedSeed(t *testing.T) {
	records := []ledger.Record{
		bet(0.60, 2.50, 1.00),
		bet(0.55, 1.90, 0.80),
		bet(0.70, 1.60, 1.20),
	}
	cfg := Config{Bankroll: 20, Runs: 500, Seed: 42}

	a, err := Run(records, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b, err := Run(records, cfg)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if a != b {
		t.Errorf("same seed produced different results:\n%+v\n%+v", a, b)
	}

	c, err := Run(records, Config{Bankroll: 20, Runs: 500, Seed: 43})
	if err != nil {
		t.Fatalf("Run() with other seed error = %v", err)
	}
	if a.MeanFinal == c.MeanFinal && a.MedianFinal == c.MedianFinal {
		t.Error("different seeds produced identical distributions")
	}
}

func TestRunNearCertainWins(t *testing.T) {
	p := 1 - 1e-12
	records := []ledger.Record{
		bet(p, 2.0, 1.0),
		bet(p, 2.0, 1.0),
		bet(p, 2.0, 1.0),
		bet(p, 2.0, 1.0),
		bet(p, 2.0, 1.0),
	}

	got, err := Run(records, Config{Bankroll: 20, Runs: 50, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if math.Abs(got.MeanFinal-25) > 1e-9 {
		t.Errorf("MeanFinal = %v, want 25 (five $1 wins at 2.0)", got.MeanFinal)
	}
	if got.MeanWinRate != 1 {
		t.Errorf("MeanWinRate = %v, want 1", got.MeanWinRate)
	}
	if got.MeanMaxDrawdown != 0 {
		t.Errorf("MeanMaxDrawdown = %v, want 0", got.MeanMaxDrawdown)
	}
	if got.RuinRate != 0 {
		t.Errorf("RuinRate = %v, want 0", got.RuinRate)
	}
	if got.Bets != 5 {
		t.Errorf("Bets = %d, want 5", got.Bets)
	}
}

func TestRunNearCertainLossesRuin(t *testing.T) {
	p := 1e-12
	records := []ledger.Record{
		bet(p, 2.0, 5.0),
		bet(p, 2.0, 5.0),
		bet(p, 2.0, 5.0),
		bet(p, 2.0, 5.0),
		bet(p, 2.0, 5.0),
	}

	got, err := Run(records, Config{Bankroll: 20, Runs: 50, Seed: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.MedianFinal != 0 {
		t.Errorf("MedianFinal = %v, want 0", got.MedianFinal)
	}
	if got.RuinRate != 1 {
		t.Errorf("RuinRate = %v, want 1", got.RuinRate)
	}
	if got.MeanWinRate != 0 {
		t.Errorf("MeanWinRate = %v, want 0", got.MeanWinRate)
	}
	if got.MeanMaxDrawdown != 1 {
		t.Errorf("MeanMaxDrawdown = %v, want 1", got.MeanMaxDrawdown)
	}
}

func TestRunStakeCappedAtBalance(t *testing.T) {
	// A $5 stake with only $2 left can lose at most $2.
	records := []ledger.Record{bet(1e-12, 2.0, 5.0)}

	got, err := Run(records, Config{Bankroll: 2, Runs: 20, Seed: 9})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Percentile5 < 0 || got.MedianFinal != 0 {
		t.Errorf("final bankroll went negative: p5=%v median=%v", got.Percentile5, got.MedianFinal)
	}
}

func TestRunConfidenceIntervalBracketsMean(t *testing.T) {
	records := []ledger.Record{
		bet(0.60, 2.50, 1.00),
		bet(0.55, 1.90, 0.80),
	}

	got, err := Run(records, Config{Bankroll: 20, Runs: 300, Seed: 7})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.CILow > got.MeanFinal || got.MeanFinal > got.CIHigh {
		t.Errorf("CI [%v, %v] does not bracket mean %v", got.CILow, got.CIHigh, got.MeanFinal)
	}
}

func TestUsableRecordsFilter(t *testing.T) {
	records := []ledger.Record{
		bet(0.60, 2.50, 1.00),  // kept
		bet(0.60, 2.50, 0),     // zero stake
		bet(0.60, 1.00, 1.00),  // no payout edge
		bet(0, 2.50, 1.00),     // impossible probability
		bet(1, 2.50, 1.00),     // certain probability
		bet(0.60, 2.50, -1.00), // negative stake
	}

	got := usableRecords(records)
	if len(got) != 1 {
		t.Fatalf("usableRecords kept %d, want 1", len(got))
	}
	if got[0].Stake != 1.00 || got[0].DecimalOdds != 2.50 {
		t.Errorf("kept wrong record: %+v", got[0])
	}
}

func TestRunErrors(t *testing.T) {
	valid := []ledger.Record{bet(0.60, 2.50, 1.00)}

	tests := []struct {
		name    string
		records []ledger.Record
		cfg     Config
	}{
		{"zero runs", valid, Config{Bankroll: 20, Runs: 0, Seed: 1}},
		{"zero bankroll", valid, Config{Bankroll: 0, Runs: 10, Seed: 1}},
		{"no records", nil, Config{Bankroll: 20, Runs: 10, Seed: 1}},
		{"only unusable records", []ledger.Record{bet(0.60, 2.50, 0)}, Config{Bankroll: 20, Runs: 10, Seed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(tt.records, tt.cfg); err == nil {
				t.Error("Run() expected error")
			}
		})
	}
}
