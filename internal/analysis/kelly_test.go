package analysis

import (
	"math"
	"testing"
)

func TestCalculateKelly(t *testing.T) {
	tests := []struct {
		name     string
		p        float64
		b        float64
		expected float64
		delta    float64
	}{
		{
			name:     "even odds with edge",
			p:        0.60,
			b:        1.0, // decimal payout 2.0
			expected: 0.20,
			delta:    1e-9,
		},
		{
			name:     "even odds no edge",
			p:        0.50,
			b:        1.0,
			expected: 0.0,
			delta:    1e-9,
		},
		{
			name:     "negative edge floors at zero",
			p:        0.40,
			b:        1.0,
			expected: 0.0,
			delta:    1e-9,
		},
		{
			name:     "short odds favorite",
			p:        0.70,
			b:        0.55, // decimal payout 1.55
			expected: (0.70*0.55 - 0.30) / 0.55,
			delta:    1e-9,
		},
		{
			name:     "longshot with edge",
			p:        0.30,
			b:        4.0, // decimal payout 5.0
			expected: (0.30*4.0 - 0.70) / 4.0,
			delta:    1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateKelly(tt.p, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CalculateKelly(%v, %v) = %v, want %v", tt.p, tt.b, got, tt.expected)
			}
		})
	}
}

func TestCalculateKellyBadInputs(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		b    float64
	}{
		{"zero net odds", 0.60, 0},
		{"negative net odds", 0.60, -0.5},
		{"zero probability", 0, 1.0},
		{"probability of one", 1.0, 1.0},
		{"probability above one", 1.2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateKelly(tt.p, tt.b); got != 0 {
				t.Errorf("CalculateKelly(%v, %v) = %v, want 0", tt.p, tt.b, got)
			}
		})
	}
}

func TestCalculateStakeEndToEnd(t *testing.T) {
	// Worked example: fair prob 0.60 at exchange price 0.50 (payout 2.0,
	// net odds 1.0). Full Kelly = 0.20, quarter Kelly = 0.05, under the
	// 10% cap, stake = 0.05 x 20 = 1.00.
	e, err := Evaluate(testPair(0.60, 0.50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(e.EV-0.20) > 1e-9 {
		t.Fatalf("EV = %v, want 0.20", e.EV)
	}

	cfg := SizeConfig{
		Bankroll:      20.0,
		KellyFraction: 0.25,
		SingleBetCap:  0.10,
		MinBetSize:    1.0,
	}
	stake := CalculateStake(e, cfg)

	if math.Abs(stake.Amount-1.00) > 1e-9 {
		t.Errorf("Amount = %v, want 1.00", stake.Amount)
	}
	if math.Abs(stake.Fraction-0.05) > 1e-9 {
		t.Errorf("Fraction = %v, want 0.05", stake.Fraction)
	}
	if stake.Multiplier != 0.25 {
		t.Errorf("Multiplier = %v, want 0.25", stake.Multiplier)
	}
}

func TestCalculateStakeNonPositiveEdge(t *testing.T) {
	// A non-positive full Kelly must size to zero regardless of the
	// multiplier or bankroll.
	e, err := Evaluate(testPair(0.40, 0.50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, cfg := range []SizeConfig{
		{Bankroll: 20, KellyFraction: 0.25, SingleBetCap: 0.10, MinBetSize: 0.5},
		{Bankroll: 1e6, KellyFraction: 1.0, SingleBetCap: 1.0, MinBetSize: 0},
		{Bankroll: 100, KellyFraction: 0.5, SingleBetCap: 0, MinBetSize: 0},
	} {
		if stake := CalculateStake(e, cfg); stake.Amount != 0 {
			t.Errorf("cfg %+v: Amount = %v, want 0", cfg, stake.Amount)
		}
	}
}

func TestCalculateStakeCapEnforced(t *testing.T) {
	// Heavy favorite at half Kelly wants 40% of bankroll; the cap holds
	// it to 10%.
	e, err := Evaluate(testPair(0.90, 0.50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := SizeConfig{
		Bankroll:      20.0,
		KellyFraction: 0.50,
		SingleBetCap:  0.10,
		MinBetSize:    0.50,
	}
	stake := CalculateStake(e, cfg)

	if math.Abs(stake.Amount-2.00) > 1e-9 {
		t.Errorf("Amount = %v, want 2.00 (cap x bankroll)", stake.Amount)
	}
	if math.Abs(stake.Fraction-0.10) > 1e-9 {
		t.Errorf("Fraction = %v, want 0.10", stake.Fraction)
	}

	// Cap holds across a sweep of edges and multipliers.
	for _, fairProb := range []float64{0.60, 0.75, 0.90, 0.97} {
		for _, kf := range []float64{0.25, 0.50, 1.0} {
			e, err := Evaluate(testPair(fairProb, 0.50))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			cfg := SizeConfig{Bankroll: 20.0, KellyFraction: kf, SingleBetCap: 0.10, MinBetSize: 0}
			if stake := CalculateStake(e, cfg); stake.Amount > 0.10*20.0+1e-12 {
				t.Errorf("p=%v kf=%v: Amount = %v exceeds cap", fairProb, kf, stake.Amount)
			}
		}
	}
}

func TestCalculateStakeMinBetSize(t *testing.T) {
	// Quarter Kelly on a thin edge yields 0.50; a 1.00 floor zeroes it
	// out instead of rounding up.
	e, err := Evaluate(testPair(0.55, 0.50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := SizeConfig{
		Bankroll:      20.0,
		KellyFraction: 0.25,
		SingleBetCap:  0.10,
		MinBetSize:    1.00,
	}
	if stake := CalculateStake(e, cfg); stake.Amount != 0 {
		t.Errorf("Amount = %v, want 0 (below minimum is never rounded up)", stake.Amount)
	}

	// A stake exactly at the minimum passes.
	cfg.MinBetSize = 0.50
	stake := CalculateStake(e, cfg)
	if math.Abs(stake.Amount-0.50) > 1e-9 {
		t.Errorf("Amount = %v, want 0.50 (at the minimum)", stake.Amount)
	}
}
