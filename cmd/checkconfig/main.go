// Command checkconfig audits the scanner setup: credentials, files,
// configuration validity and the active strategy parameters. It exits
// non-zero when a required piece is missing, so it doubles as a deploy
// gate. With -migrate-csv it upgrades a legacy trade log in place.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"value-betting-bot/internal/config"
	"value-betting-bot/internal/ledger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	migrate := flag.Bool("migrate-csv", false, "upgrade a legacy 8-column trade log to the current schema")
	flag.Parse()

	fmt.Println("value scanner - configuration check")
	fmt.Println("===================================")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ config: %v\n", err)
		os.Exit(1)
	}

	ok := true

	fmt.Println("credentials:")
	if cfg.Feed.APIKey != "" {
		fmt.Println("  ✅ ODDS_API_KEY set")
	} else {
		fmt.Println("  ❌ ODDS_API_KEY missing (get one at https://the-odds-api.com/)")
		ok = false
	}
	if cfg.Alerts.DiscordWebhook != "" {
		fmt.Println("  ✅ DISCORD_WEBHOOK_URL set")
	} else {
		fmt.Println("  ⚪ DISCORD_WEBHOOK_URL not set (optional, alerts log-only)")
	}
	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.TelegramChatID != "" {
		fmt.Println("  ✅ Telegram bot configured")
	} else {
		fmt.Println("  ⚪ Telegram bot not configured (optional)")
	}
	if cfg.Alerts.RedisAddr != "" {
		fmt.Printf("  ✅ redis dedup at %s\n", cfg.Alerts.RedisAddr)
	} else {
		fmt.Println("  ⚪ redis not configured, alert dedup is in-memory")
	}
	fmt.Println()

	fmt.Println("files:")
	checkFile(*configPath, "configuration, optional when env vars cover everything", false, &ok)
	checkFile(cfg.Ledger.DBPath, "recommendation database, created on first run", false, &ok)
	checkCSV(cfg.Ledger.CSVPath, *migrate, &ok)
	fmt.Println()

	fmt.Println("configuration:")
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  ❌ %v\n", err)
		ok = false
	} else {
		fmt.Println("  ✅ valid")
	}
	fmt.Println()

	fmt.Println("strategy parameters:")
	fmt.Printf("  bankroll            $%.2f\n", cfg.Bankroll)
	fmt.Printf("  min win probability %.2f\n", cfg.Scan.MinProbability)
	fmt.Printf("  min EV              %.2f\n", cfg.Scan.MinEV)
	fmt.Printf("  min decimal odds    %.2f\n", cfg.Scan.MinDecimalOdds)
	fmt.Printf("  max bets            %d\n", cfg.Scan.MaxBets)
	fmt.Printf("  kelly fraction      %.2f\n", cfg.Sizing.KellyFraction)
	fmt.Printf("  single bet cap      %.2f\n", cfg.Sizing.SingleBetCap)
	fmt.Printf("  min bet size        $%.2f\n", cfg.Sizing.MinBetSize)
	fmt.Printf("  max odds age        %s\n", cfg.Scan.MaxOddsAge.Duration)
	fmt.Printf("  devig method        %s\n", cfg.Scan.DevigMethod)
	fmt.Printf("  poll interval       %s\n", cfg.Scan.PollInterval.Duration)
	for _, s := range cfg.Sports {
		fmt.Printf("  sport               %s (%s, series %s)\n", s.Name, s.FeedKey, s.SeriesID)
	}
	fmt.Println()

	if ok {
		fmt.Println("✅ ready to scan")
		return
	}
	fmt.Println("❌ required configuration missing, see above")
	os.Exit(1)
}

func checkFile(path, description string, required bool, ok *bool) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  ✅ %s (%s)\n", path, description)
		return
	}
	if required {
		fmt.Printf("  ❌ %s missing (%s)\n", path, description)
		*ok = false
		return
	}
	fmt.Printf("  ⚪ %s absent (%s)\n", path, description)
}

// checkCSV reports the trade log's schema version and, when asked,
// migrates a legacy file in place.
func checkCSV(path string, migrate bool, ok *bool) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("  ⚪ %s absent (trade log, created on first pick)\n", path)
		return
	}
	header, err := csv.NewReader(f).Read()
	f.Close()
	if err != nil {
		fmt.Printf("  ❌ %s unreadable: %v\n", path, err)
		*ok = false
		return
	}

	version, err := ledger.DetectVersion(header)
	if err != nil {
		fmt.Printf("  ❌ %s has an unrecognized header: %v\n", path, err)
		*ok = false
		return
	}
	if version == ledger.CSVVersion2 {
		fmt.Printf("  ✅ %s (trade log, current schema)\n", path)
		return
	}

	if !migrate {
		fmt.Printf("  ⚪ %s uses the legacy %d-column schema, rerun with -migrate-csv\n", path, len(header))
		return
	}
	n, err := ledger.MigrateLegacy(path)
	if err != nil {
		fmt.Printf("  ❌ %s migration failed: %v\n", path, err)
		*ok = false
		return
	}
	fmt.Printf("  ✅ %s migrated, %d rows upgraded\n", path, n)
}
