// Package backtest replays stored recommendations as bankroll simulations.
// Every figure it reports is simulation-derived: outcomes are drawn from
// the fair probabilities the bot recorded at bet time, never from settled
// results. It answers "how would this strategy distribute" and nothing
// about how the bets actually went.
package backtest

import (
	"fmt"
	"math"
	"math/rand"

	"value-betting-bot/internal/ledger"
	"value-betting-bot/internal/mathutil"
)

// Config controls a simulation.
type Config struct {
	Bankroll float64 // starting bankroll for every path
	Runs     int     // number of simulated paths
	Seed     int64   // RNG seed, a fixed seed reproduces identical paths
}

// Result summarizes the simulated bankroll paths.
type Result struct {
	Runs          int
	Bets          int
	StartBankroll float64

	MeanFinal    float64
	MedianFinal  float64
	Percentile5  float64
	Percentile95 float64

	// 95% confidence interval on the mean final bankroll.
	CILow  float64
	CIHigh float64

	MeanWinRate     float64
	MeanMaxDrawdown float64
	RuinRate        float64
}

// Run replays the records under cfg.
func Run(records []ledger.Record, cfg Config) (Result, error) {
	if cfg.Runs <= 0 {
		return Result{}, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	if cfg.Bankroll <= 0 {
		return Result{}, fmt.Errorf("bankroll must be positive, got %v", cfg.Bankroll)
	}

	bets := usableRecords(records)
	if len(bets) == 0 {
		return Result{}, fmt.Errorf("no usable records to replay")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	finals := make([]float64, cfg.Runs)
	winRates := make([]float64, cfg.Runs)
	drawdowns := make([]float64, cfg.Runs)
	ruins := 0

	for i := 0; i < cfg.Runs; i++ {
		p := simulatePath(bets, cfg.Bankroll, rng)
		finals[i] = p.final
		winRates[i] = p.winRate
		drawdowns[i] = p.maxDrawdown
		if p.ruined {
			ruins++
		}
	}

	mean := mathutil.Mean(finals)
	sd := mathutil.StdDev(finals)
	margin := mathutil.NormalInvCDF(0.975) * sd / math.Sqrt(float64(cfg.Runs))

	return Result{
		Runs:            cfg.Runs,
		Bets:            len(bets),
		StartBankroll:   cfg.Bankroll,
		MeanFinal:       mean,
		MedianFinal:     mathutil.Percentile(finals, 50),
		Percentile5:     mathutil.Percentile(finals, 5),
		Percentile95:    mathutil.Percentile(finals, 95),
		CILow:           mean - margin,
		CIHigh:          mean + margin,
		MeanWinRate:     mathutil.Mean(winRates),
		MeanMaxDrawdown: mathutil.Mean(drawdowns),
		RuinRate:        float64(ruins) / float64(cfg.Runs),
	}, nil
}

type path struct {
	final       float64
	winRate     float64
	maxDrawdown float64
	ruined      bool
}

// simulatePath replays every bet once, drawing each outcome from its fair
// probability. Stakes are capped at the remaining bankroll; a path that
// reaches zero stays there.
func simulatePath(bets []ledger.Record, bankroll float64, rng *rand.Rand) path {
	balance := bankroll
	peak := bankroll
	maxDD := 0.0
	wins, placed := 0, 0

	for _, rec := range bets {
		if balance <= 0 {
			balance = 0
			break
		}

		stake := math.Min(rec.Stake, balance)
		placed++
		if rng.Float64() < rec.FairProb {
			wins++
			balance += stake * (rec.DecimalOdds - 1)
		} else {
			balance -= stake
		}

		if balance > peak {
			peak = balance
		}
		if dd := (peak - balance) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	winRate := 0.0
	if placed > 0 {
		winRate = float64(wins) / float64(placed)
	}

	return path{
		final:       balance,
		winRate:     winRate,
		maxDrawdown: maxDD,
		ruined:      balance <= 0,
	}
}

// usableRecords keeps bets a simulation can price: a positive stake, a
// payout above 1 and a fair probability strictly inside (0, 1).
func usableRecords(records []ledger.Record) []ledger.Record {
	out := make([]ledger.Record, 0, len(records))
	for _, rec := range records {
		if rec.Stake <= 0 || rec.DecimalOdds <= 1 || rec.FairProb <= 0 || rec.FairProb >= 1 {
			continue
		}
		out = append(out, rec)
	}
	return out
}
