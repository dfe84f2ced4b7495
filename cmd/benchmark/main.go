// Benchmark exporter CLI
// Builds the dashboard comparison document from the tracking database,
// the scheduler logs and CoinGecko daily prices.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prism-insight/cryptoswing/internal/benchmark"
	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	dbPath := flag.String("db-path", "stock_tracking_db.sqlite", "Path to the SQLite database")
	outputPath := flag.String("output-path", "", "Output JSON path (default from config)")
	days := flag.Int("days", 0, "Rolling window days, 0 starts at the first strategy entry")
	initialCapital := flag.Float64("initial-capital", 0, "Initial capital override")
	logLevel := flag.String("log-level", "", "Log level override")
	flag.Parse()

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

	if *initialCapital > 0 {
		cfg.Benchmark.InitialCapital = *initialCapital
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	exporter := benchmark.New(st, cfg.Benchmark)
	report, err := exporter.Generate(ctx, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Benchmark generation failed")
	}

	path := *outputPath
	if path == "" {
		path = cfg.Benchmark.OutputPath
	}
	if err := exporter.WriteFile(report, path); err != nil {
		log.Fatal().Err(err).Msg("Failed to write benchmark document")
	}

	fmt.Printf("Saved: %s\n", path)
}
