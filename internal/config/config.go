// Package config defines the scanner configuration and its validation.
// Values come from built-in defaults, then an optional TOML file, then
// environment variable overrides. Secrets are env-only.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	LogLevel string  `toml:"log_level"`
	Bankroll float64 `toml:"bankroll"`

	Sports []Sport `toml:"sports"`

	Scan     ScanConfig     `toml:"scan"`
	Sizing   SizingConfig   `toml:"sizing"`
	Matching MatchingConfig `toml:"matching"`
	Feed     FeedConfig     `toml:"feed"`
	Exchange ExchangeConfig `toml:"exchange"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Server   ServerConfig   `toml:"server"`
}

// Sport names one league to scan and how each feed identifies it.
type Sport struct {
	Name     string `toml:"name"`      // display name, e.g. "NBA"
	FeedKey  string `toml:"feed_key"`  // reference feed sport key, e.g. "basketball_nba"
	SeriesID string `toml:"series_id"` // exchange series identifier
}

// ScanConfig holds the per-run thresholds and cadence.
type ScanConfig struct {
	PollInterval   duration `toml:"poll_interval"`
	MaxOddsAge     duration `toml:"max_odds_age"`
	MinProbability float64  `toml:"min_win_probability"`
	MinEV          float64  `toml:"min_ev"`
	MinDecimalOdds float64  `toml:"min_decimal_odds"` // 0 disables the payout floor
	MaxBets        int      `toml:"max_bets"`
	DevigMethod    string   `toml:"devig_method"` // multiplicative or power
}

// SizingConfig holds the Kelly staking parameters.
type SizingConfig struct {
	KellyFraction float64 `toml:"kelly_fraction"`
	SingleBetCap  float64 `toml:"single_bet_cap"` // max bankroll fraction per bet
	MinBetSize    float64 `toml:"min_bet_size"`   // stakes under this are skipped
}

// MatchingConfig holds the event matcher parameters.
type MatchingConfig struct {
	ScoreThreshold int      `toml:"score_threshold"`
	TimeWindow     duration `toml:"time_window"`
	FirstWins      bool     `toml:"ambiguous_first_wins"` // legacy tie policy
}

// FeedConfig holds the reference (sharp book) odds feed settings.
// APIKey comes from the ODDS_API_KEY environment variable only.
type FeedConfig struct {
	BaseURL     string             `toml:"base_url"`
	Region      string             `toml:"region"`
	Bookmakers  []string           `toml:"bookmakers"`
	BookWeights map[string]float64 `toml:"book_weights"` // consensus weights, default 1.0
	RateLimit   int                `toml:"rate_limit"`   // requests per minute
	Timeout     duration           `toml:"timeout"`
	APIKey      string             `toml:"-"`
}

// ExchangeConfig holds the exchange feed settings.
type ExchangeConfig struct {
	GammaHost string   `toml:"gamma_host"`
	WsHost    string   `toml:"ws_host"`
	Stream    bool     `toml:"stream"` // overlay live websocket prices between polls
	Timeout   duration `toml:"timeout"`
}

// AlertsConfig holds notification settings. Webhook URLs and bot tokens
// come from the environment only.
type AlertsConfig struct {
	Cooldown       duration `toml:"cooldown"`
	RedisAddr      string   `toml:"redis_addr"` // empty selects in-memory dedup
	DiscordWebhook string   `toml:"-"`
	TelegramToken  string   `toml:"-"`
	TelegramChatID string   `toml:"-"`
}

// LedgerConfig holds persistence paths.
type LedgerConfig struct {
	DBPath  string `toml:"db_path"`
	CSVPath string `toml:"csv_path"`
}

// ServerConfig holds the health endpoint settings.
type ServerConfig struct {
	Port string `toml:"port"`
}

// Defaults returns a Config populated with the stock scanner settings.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Bankroll: 20.0,
		Sports: []Sport{
			{Name: "NBA", FeedKey: "basketball_nba", SeriesID: "10345"},
		},
		Scan: ScanConfig{
			PollInterval:   duration{5 * time.Minute},
			MaxOddsAge:     duration{15 * time.Minute},
			MinProbability: 0.55,
			MinEV:          0.02,
			MinDecimalOdds: 1.55,
			MaxBets:        3,
			DevigMethod:    "multiplicative",
		},
		Sizing: SizingConfig{
			KellyFraction: 0.25,
			SingleBetCap:  0.10,
			MinBetSize:    0.50,
		},
		Matching: MatchingConfig{
			ScoreThreshold: 90,
			TimeWindow:     duration{24 * time.Hour},
		},
		Feed: FeedConfig{
			BaseURL:    "https://api.the-odds-api.com/v4",
			Region:     "eu",
			Bookmakers: []string{"pinnacle"},
			RateLimit:  30,
			Timeout:    duration{10 * time.Second},
		},
		Exchange: ExchangeConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com",
			Timeout:   duration{10 * time.Second},
		},
		Alerts: AlertsConfig{
			Cooldown: duration{1 * time.Hour},
		},
		Ledger: LedgerConfig{
			DBPath:  "./data/recommendations.db",
			CSVPath: "./data/trade_log.csv",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validDevigMethods = map[string]bool{
	"multiplicative": true,
	"power":          true,
}

// Validate checks the Config for invalid or missing values and returns a
// combined error describing every problem found. A non-nil error is fatal
// at startup; nothing is scanned on a bad configuration.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.Bankroll <= 0 {
		errs = append(errs, fmt.Sprintf("bankroll must be > 0, got %v", c.Bankroll))
	}

	if len(c.Sports) == 0 {
		errs = append(errs, "sports: at least one sport must be configured")
	}
	for i, s := range c.Sports {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("sports[%d]: name must not be empty", i))
		}
		if s.FeedKey == "" {
			errs = append(errs, fmt.Sprintf("sports[%d]: feed_key must not be empty", i))
		}
		if s.SeriesID == "" {
			errs = append(errs, fmt.Sprintf("sports[%d]: series_id must not be empty", i))
		}
	}

	if c.Scan.PollInterval.Duration < time.Second {
		errs = append(errs, fmt.Sprintf("scan: poll_interval must be at least 1s, got %v", c.Scan.PollInterval.Duration))
	}
	if c.Scan.MaxOddsAge.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("scan: max_odds_age must be > 0, got %v", c.Scan.MaxOddsAge.Duration))
	}
	if c.Scan.MinProbability < 0 || c.Scan.MinProbability > 1 {
		errs = append(errs, fmt.Sprintf("scan: min_win_probability must be between 0 and 1, got %v", c.Scan.MinProbability))
	}
	if c.Scan.MinEV < 0 || c.Scan.MinEV > 1 {
		errs = append(errs, fmt.Sprintf("scan: min_ev must be between 0 and 1, got %v", c.Scan.MinEV))
	}
	if c.Scan.MinDecimalOdds != 0 && c.Scan.MinDecimalOdds <= 1 {
		errs = append(errs, fmt.Sprintf("scan: min_decimal_odds must be > 1 (or 0 to disable), got %v", c.Scan.MinDecimalOdds))
	}
	if c.Scan.MaxBets < 1 {
		errs = append(errs, fmt.Sprintf("scan: max_bets must be >= 1, got %d", c.Scan.MaxBets))
	}
	if !validDevigMethods[strings.ToLower(c.Scan.DevigMethod)] {
		errs = append(errs, fmt.Sprintf("scan: unknown devig_method %q (valid: multiplicative, power)", c.Scan.DevigMethod))
	}

	if c.Sizing.KellyFraction <= 0 || c.Sizing.KellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("sizing: kelly_fraction must be in (0, 1], got %v", c.Sizing.KellyFraction))
	}
	if c.Sizing.SingleBetCap <= 0 || c.Sizing.SingleBetCap > 1 {
		errs = append(errs, fmt.Sprintf("sizing: single_bet_cap must be in (0, 1], got %v", c.Sizing.SingleBetCap))
	}
	if c.Sizing.MinBetSize < 0 {
		errs = append(errs, fmt.Sprintf("sizing: min_bet_size must be >= 0, got %v", c.Sizing.MinBetSize))
	}

	if c.Matching.ScoreThreshold < 1 || c.Matching.ScoreThreshold > 100 {
		errs = append(errs, fmt.Sprintf("matching: score_threshold must be 1-100, got %d", c.Matching.ScoreThreshold))
	}
	if c.Matching.TimeWindow.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("matching: time_window must be > 0, got %v", c.Matching.TimeWindow.Duration))
	}

	if c.Feed.APIKey == "" {
		errs = append(errs, "feed: ODDS_API_KEY is required")
	}
	if c.Feed.BaseURL == "" {
		errs = append(errs, "feed: base_url must not be empty")
	}
	if len(c.Feed.Bookmakers) == 0 {
		errs = append(errs, "feed: at least one bookmaker must be configured")
	}
	if c.Feed.RateLimit < 1 {
		errs = append(errs, fmt.Sprintf("feed: rate_limit must be >= 1, got %d", c.Feed.RateLimit))
	}
	if c.Feed.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("feed: timeout must be > 0, got %v", c.Feed.Timeout.Duration))
	}

	if c.Exchange.GammaHost == "" {
		errs = append(errs, "exchange: gamma_host must not be empty")
	}
	if c.Exchange.Stream && c.Exchange.WsHost == "" {
		errs = append(errs, "exchange: ws_host must not be empty when stream is enabled")
	}
	if c.Exchange.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("exchange: timeout must be > 0, got %v", c.Exchange.Timeout.Duration))
	}

	if c.Alerts.Cooldown.Duration < 0 {
		errs = append(errs, fmt.Sprintf("alerts: cooldown must be >= 0, got %v", c.Alerts.Cooldown.Duration))
	}

	if c.Ledger.DBPath == "" {
		errs = append(errs, "ledger: db_path must not be empty")
	}
	if c.Ledger.CSVPath == "" {
		errs = append(errs, "ledger: csv_path must not be empty")
	}

	if c.Server.Port == "" {
		errs = append(errs, "server: port must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// duration wraps time.Duration so the TOML decoder can parse strings
// like "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
