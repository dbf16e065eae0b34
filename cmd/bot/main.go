// Command bot is the value scanner entry point. It loads configuration,
// wires the feeds, notifier, ledger and engine, and runs the scan loop
// until interrupted. With -once it performs a single scan and exits,
// which suits cron-style scheduling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"value-betting-bot/internal/alerts"
	"value-betting-bot/internal/api"
	"value-betting-bot/internal/config"
	"value-betting-bot/internal/engine"
	"value-betting-bot/internal/exchange"
	"value-betting-bot/internal/ledger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	once := flag.Bool("once", false, "scan once and exit instead of polling")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("value scanner starting",
		"config", *configPath,
		"sports", len(cfg.Sports),
		"bankroll", cfg.Bankroll,
		"poll_interval", cfg.Scan.PollInterval.Duration,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	var stream *exchange.Stream
	if cfg.Exchange.Stream {
		stream = exchange.NewStream(logger).WithURL(cfg.Exchange.WsHost + "/ws/market")
		go func() {
			if err := stream.Connect(ctx); err != nil {
				logger.Warn("exchange stream unavailable, using polled prices only", "error", err)
			}
		}()
		defer stream.Close()
	}
	exchangeFeed := exchange.NewFeed(gamma, stream, logger)

	notifier := alerts.NewNotifier(buildSenders(cfg, logger), buildDeduper(cfg), cfg.Alerts.Cooldown.Duration, logger)

	store, csvLog := openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	eng := engine.New(reference, exchangeFeed, notifier, storeOrNil(store), csvOrNil(csvLog), *cfg, logger)

	if *once {
		status := eng.Scan(ctx)
		if status.Counts.Recommended == 0 {
			if err := notifier.AlertQuiet(ctx); err != nil {
				logger.Warn("quiet alert failed", "error", err)
			}
		}
		if status.Err != "" {
			os.Exit(1)
		}
		return
	}

	go serveHealth(cfg.Server.Port, eng, logger)

	eng.Run(ctx)
	logger.Info("value scanner stopped")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildSenders returns a sender per configured channel. Missing
// credentials just mean fewer channels; the scanner stays useful
// log-only.
func buildSenders(cfg *config.Config, logger *slog.Logger) []alerts.Sender {
	var senders []alerts.Sender
	if cfg.Alerts.DiscordWebhook != "" {
		senders = append(senders, alerts.NewDiscordSender(cfg.Alerts.DiscordWebhook))
	}
	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.TelegramChatID != "" {
		senders = append(senders, alerts.NewTelegramSender(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID))
	}
	if len(senders) == 0 {
		logger.Warn("no notification channels configured, running log-only")
	}
	return senders
}

func buildDeduper(cfg *config.Config) alerts.Deduper {
	if cfg.Alerts.RedisAddr != "" {
		return alerts.NewRedisDeduper(redis.NewClient(&redis.Options{Addr: cfg.Alerts.RedisAddr}))
	}
	return alerts.NewMemoryDeduper()
}

// openLedger opens the sqlite store and csv log. Either failing disables
// persistence rather than the whole scanner.
func openLedger(cfg *config.Config, logger *slog.Logger) (*ledger.DB, *ledger.CSVLog) {
	for _, path := range []string{cfg.Ledger.DBPath, cfg.Ledger.CSVPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Warn("ledger directory not writable, persistence disabled", "dir", dir, "error", err)
				return nil, nil
			}
		}
	}

	store, err := ledger.NewDB(cfg.Ledger.DBPath)
	if err != nil {
		logger.Warn("ledger database disabled", "path", cfg.Ledger.DBPath, "error", err)
		store = nil
	}
	return store, ledger.NewCSVLog(cfg.Ledger.CSVPath)
}

// storeOrNil avoids handing the engine a typed nil behind its Store
// interface.
func storeOrNil(db *ledger.DB) engine.Store {
	if db == nil {
		return nil
	}
	return db
}

func csvOrNil(c *ledger.CSVLog) engine.CSVLog {
	if c == nil {
		return nil
	}
	return c
}

func serveHealth(port string, eng *engine.Engine, logger *slog.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		last := eng.LastScan()
		state := "ok"
		if last.Err != "" {
			state = "degraded"
		}
		json.NewEncoder(w).Encode(struct {
			Status   string        `json:"status"`
			LastScan engine.Status `json:"last_scan"`
		}{state, last})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("value scanner - running"))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("health server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("health server stopped", "error", err)
	}
}
