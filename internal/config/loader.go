package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration: defaults, then the TOML file at path if
// one exists there, then environment variable overrides. A .env file in
// the working directory is loaded first if present. A missing TOML file
// is not an error; an env-only deployment is a supported setup. The
// returned Config has not been validated; callers must invoke Validate
// before use.
func Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // ignore error when .env is absent

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from well-known environment
// variables when set. Secrets only exist here; they are never read from
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setFloat64(&cfg.Bankroll, "BANKROLL")

	setDuration(&cfg.Scan.PollInterval, "POLL_INTERVAL")
	setDuration(&cfg.Scan.MaxOddsAge, "MAX_ODDS_AGE")
	setFloat64(&cfg.Scan.MinProbability, "MIN_WIN_PROBABILITY")
	setFloat64(&cfg.Scan.MinEV, "MIN_EV")
	setFloat64(&cfg.Scan.MinDecimalOdds, "MIN_DECIMAL_ODDS")
	setInt(&cfg.Scan.MaxBets, "MAX_BETS")
	setStr(&cfg.Scan.DevigMethod, "DEVIG_METHOD")

	setFloat64(&cfg.Sizing.KellyFraction, "KELLY_FRACTION")
	setFloat64(&cfg.Sizing.SingleBetCap, "SINGLE_BET_CAP")
	setFloat64(&cfg.Sizing.MinBetSize, "MIN_BET_SIZE")

	setInt(&cfg.Matching.ScoreThreshold, "MATCH_SCORE_THRESHOLD")
	setDuration(&cfg.Matching.TimeWindow, "MATCH_TIME_WINDOW")
	setBool(&cfg.Matching.FirstWins, "AMBIGUOUS_FIRST_WINS")

	setStr(&cfg.Feed.BaseURL, "ODDS_API_BASE_URL")
	setStr(&cfg.Feed.Region, "ODDS_API_REGION")
	setStringSlice(&cfg.Feed.Bookmakers, "ODDS_API_BOOKMAKERS")
	setInt(&cfg.Feed.RateLimit, "ODDS_API_RATE_LIMIT")
	setStr(&cfg.Feed.APIKey, "ODDS_API_KEY")

	setStr(&cfg.Exchange.GammaHost, "GAMMA_HOST")
	setStr(&cfg.Exchange.WsHost, "WS_HOST")
	setBool(&cfg.Exchange.Stream, "EXCHANGE_STREAM")

	setDuration(&cfg.Alerts.Cooldown, "ALERT_COOLDOWN")
	setStr(&cfg.Alerts.RedisAddr, "REDIS_ADDR")
	setStr(&cfg.Alerts.DiscordWebhook, "DISCORD_WEBHOOK_URL")
	setStr(&cfg.Alerts.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Alerts.TelegramChatID, "TELEGRAM_CHAT_ID")

	setStr(&cfg.Ledger.DBPath, "DB_PATH")
	setStr(&cfg.Ledger.CSVPath, "CSV_PATH")

	setStr(&cfg.Server.Port, "PORT")
}

// Typed env-var helpers. Each only mutates the target when the variable
// is present and parses cleanly.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
