// Phase-2 tracking agent CLI
// Consumes a candidates document, refreshes holdings, executes exits and
// admits new entries into the paper book.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/marketdata"
	"github.com/prism-insight/cryptoswing/internal/oracle"
	"github.com/prism-insight/cryptoswing/internal/paper"
	"github.com/prism-insight/cryptoswing/internal/portfolio"
	"github.com/prism-insight/cryptoswing/internal/store"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	dbPath := flag.String("db-path", "stock_tracking_db.sqlite", "Path to the SQLite database")
	language := flag.String("language", "", "Oracle prompt language: ko or en")
	timeframe := flag.String("timeframe", "", "Timeframe label stored with new holdings")
	executeTrades := flag.Bool("execute-trades", false, "Execute paper orders instead of recording decisions only")
	tradeMode := flag.String("trade-mode", "paper", "Trade mode, only paper is supported")
	quoteAmount := flag.Float64("quote-amount", 100.0, "Quote currency amount per entry")
	cooldownHours := flag.Float64("rotation-reentry-cooldown-hours", -1, "Re-entry cooldown after a sell, hours (-1 uses config)")
	logLevel := flag.String("log-level", "", "Log level override")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tracking-agent [flags] <candidates_json>")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.App.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	config.InitLogger(level, cfg.App.LogFmt)

	if *tradeMode != "paper" {
		log.Fatal().Str("trade_mode", *tradeMode).Msg("Unsupported trade mode, only paper is implemented")
	}
	if *language != "" {
		cfg.Oracle.Language = *language
	}

	doc, err := readDocument(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read candidates document")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.Close()

	var cache *marketdata.RedisPriceCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = marketdata.NewRedisPriceCache(client, time.Duration(cfg.Market.SpotCacheTTL)*time.Second)
	}
	md := marketdata.NewClient(cfg.Market, cache)
	trader := paper.New(md, st, cfg.Trading.FeeRate, cfg.Trading.SlippageRate)

	cooldown := cfg.Trading.ReentryCooldownHours
	if *cooldownHours >= 0 {
		cooldown = *cooldownHours
	}
	tf := cfg.Universe.Interval
	if *timeframe != "" {
		tf = *timeframe
	}

	controller, err := portfolio.New(st, oracle.NewFromEnv(cfg.Oracle), trader, portfolio.Options{
		Timeframe:            tf,
		ExecuteTrades:        *executeTrades,
		TradeMode:            *tradeMode,
		QuoteAmount:          *quoteAmount,
		MaxSlots:             cfg.Trading.MaxSlots,
		ReentryCooldownHours: cooldown,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create portfolio controller")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cycleID := uuid.NewString()
	log.Info().Str("cycle_id", cycleID).Msg("Crypto hourly paper cycle started")

	summary, err := controller.ProcessCandidates(ctx, doc)
	if err != nil {
		log.Fatal().Str("cycle_id", cycleID).Err(err).Msg("Cycle failed")
	}

	log.Info().
		Str("cycle_id", cycleID).
		Int("entry", summary.Entries).
		Int("no_entry", summary.NoEntries).
		Int("sold", summary.Sold).
		Msgf("Crypto process complete - entry=%d, no_entry=%d, sold=%d",
			summary.Entries, summary.NoEntries, summary.Sold)
}

// readDocument loads the candidates JSON from path, - meaning stdin.
func readDocument(path string) (trigger.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return trigger.Document{}, err
	}

	var doc trigger.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return trigger.Document{}, err
	}
	return doc, nil
}
