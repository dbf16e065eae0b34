// Package ledger persists recommendations for audit and reconciliation.
// Every staked pick lands in sqlite and, when configured, in an append-only
// CSV log. Result and actual-profit fields stay empty until an operator or
// a reconciliation job fills them in; the bot never settles its own bets.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"value-betting-bot/internal/analysis"
)

// Record is one persisted recommendation.
type Record struct {
	ID               string
	RunID            string
	CreatedAt        time.Time
	Sport            string
	Event            string
	Pick             string
	ExchangePrice    float64
	DecimalOdds      float64
	FairProb         float64
	EV               float64
	ExpectedProfit   float64
	Stake            float64
	BankrollFraction float64
	KellyMultiplier  float64
	MatchScore       int
	Rank             int
	Link             string
	Result           string
	ActualProfit     *float64
}

// NewRecord snapshots a staked recommendation for persistence.
func NewRecord(runID string, rec analysis.Recommendation, at time.Time) Record {
	return Record{
		ID:               uuid.NewString(),
		RunID:            runID,
		CreatedAt:        at,
		Sport:            rec.Sport,
		Event:            rec.Event,
		Pick:             rec.RefOutcome,
		ExchangePrice:    rec.Exchange.Price,
		DecimalOdds:      rec.Payout,
		FairProb:         rec.FairProb,
		EV:               rec.EV,
		ExpectedProfit:   rec.ExpectedProfit(rec.Stake.Amount),
		Stake:            rec.Stake.Amount,
		BankrollFraction: rec.Stake.Fraction,
		KellyMultiplier:  rec.Stake.Multiplier,
		MatchScore:       rec.Confidence,
		Rank:             rec.Rank,
		Link:             rec.Exchange.Link,
	}
}

// DB stores recommendations in sqlite.
type DB struct {
	db *sql.DB
}

// NewDB opens (creating if needed) the recommendation database.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		sport TEXT NOT NULL,
		event TEXT NOT NULL,
		pick TEXT NOT NULL,
		exchange_price REAL NOT NULL,
		decimal_odds REAL NOT NULL,
		fair_prob REAL NOT NULL,
		ev REAL NOT NULL,
		expected_profit REAL NOT NULL,
		stake REAL NOT NULL,
		bankroll_fraction REAL NOT NULL,
		kelly_multiplier REAL NOT NULL,
		match_score INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL DEFAULT '',
		actual_profit REAL
	);

	CREATE INDEX IF NOT EXISTS idx_recommendations_pick ON recommendations(event, pick, created_at);
	CREATE INDEX IF NOT EXISTS idx_recommendations_run ON recommendations(run_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Add stores one record.
func (d *DB) Add(rec Record) error {
	_, err := d.db.Exec(`
		INSERT INTO recommendations (
			id, run_id, created_at, sport, event, pick,
			exchange_price, decimal_odds, fair_prob, ev, expected_profit,
			stake, bankroll_fraction, kelly_multiplier, match_score, rank,
			link, result, actual_profit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.CreatedAt, rec.Sport, rec.Event, rec.Pick,
		rec.ExchangePrice, rec.DecimalOdds, rec.FairProb, rec.EV, rec.ExpectedProfit,
		rec.Stake, rec.BankrollFraction, rec.KellyMultiplier, rec.MatchScore, rec.Rank,
		rec.Link, rec.Result, nullableFloat(rec.ActualProfit))
	if err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// HasRecentRecommendation reports whether the same pick was already stored
// at or after since. Guards against double-logging when scans overlap or
// the dedup window was lost on restart.
func (d *DB) HasRecentRecommendation(event, pick string, since time.Time) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM recommendations
		WHERE event = ? AND pick = ? AND created_at >= ?
	`, event, pick, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("querying recent recommendations: %w", err)
	}
	return count > 0, nil
}

// MarkResult records a settled outcome for one recommendation.
func (d *DB) MarkResult(id, result string, actualProfit float64) error {
	res, err := d.db.Exec(`
		UPDATE recommendations SET result = ?, actual_profit = ? WHERE id = ?
	`, result, actualProfit, id)
	if err != nil {
		return fmt.Errorf("updating result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no recommendation with id %s", id)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (d *DB) Recent(limit int) ([]Record, error) {
	rows, err := d.db.Query(selectColumns+`
		ORDER BY created_at DESC, rank ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// All returns every stored record, oldest first.
func (d *DB) All() ([]Record, error) {
	rows, err := d.db.Query(selectColumns + `
		ORDER BY created_at ASC, rank ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

const selectColumns = `
	SELECT id, run_id, created_at, sport, event, pick,
		exchange_price, decimal_odds, fair_prob, ev, expected_profit,
		stake, bankroll_fraction, kelly_multiplier, match_score, rank,
		link, result, actual_profit
	FROM recommendations
`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var profit sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.CreatedAt, &rec.Sport, &rec.Event, &rec.Pick,
			&rec.ExchangePrice, &rec.DecimalOdds, &rec.FairProb, &rec.EV, &rec.ExpectedProfit,
			&rec.Stake, &rec.BankrollFraction, &rec.KellyMultiplier, &rec.MatchScore, &rec.Rank,
			&rec.Link, &rec.Result, &profit); err != nil {
			return nil, fmt.Errorf("scanning recommendation row: %w", err)
		}
		if profit.Valid {
			rec.ActualProfit = &profit.Float64
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
