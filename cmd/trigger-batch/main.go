// Phase-1 trigger batch CLI
// Scans the symbol universe, screens it through the trigger bank and
// prints the candidates document for the tracking agent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/marketdata"
	"github.com/prism-insight/cryptoswing/internal/snapshot"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbol universe (default from config)")
	excludeFlag := flag.String("exclude-symbols", "", "Comma-separated symbols to drop from the universe")
	interval := flag.String("interval", "", "Bar interval, e.g. 1h, 2h, 4h, 1d")
	period := flag.String("period", "", "History window, e.g. 14d, 30d")
	maxPositions := flag.Int("max-positions", 0, "Global candidate cap for the final selection")
	fallbackMaxEntries := flag.Int("fallback-max-entries", 0, "Candidate cap when only the fallback trigger fires")
	topN := flag.Int("top-n", 0, "Per-trigger candidate cap before final selection")
	output := flag.String("output", "-", "Output path for the candidates JSON, - for stdout")
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

	symbols := cfg.Universe.Symbols
	if *symbolsFlag != "" {
		symbols = splitList(*symbolsFlag)
	}
	symbols = exclude(symbols, splitList(*excludeFlag))
	if len(symbols) == 0 {
		log.Fatal().Msg("Universe is empty after exclusions")
	}

	barInterval := cfg.Universe.Interval
	if *interval != "" {
		barInterval = *interval
	}
	barPeriod := cfg.Universe.Period
	if *period != "" {
		barPeriod = *period
	}
	positions := cfg.Selection.MaxPositions
	if *maxPositions > 0 {
		positions = *maxPositions
	}
	fallbackEntries := cfg.Selection.FallbackMaxEntries
	if *fallbackMaxEntries > 0 {
		fallbackEntries = *fallbackMaxEntries
	}
	perTrigger := cfg.Triggers.TopNPerTrigger
	if *topN > 0 {
		perTrigger = *topN
	}
	if perTrigger <= 0 {
		perTrigger = trigger.DefaultTopN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

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

	rows, err := snapshot.Build(ctx, md, symbols, barPeriod, barInterval, cfg.Market.FetchConcurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot build failed")
	}

	doc := buildCandidates(rows, cfg, barInterval, barPeriod, len(symbols), positions, fallbackEntries, perTrigger)
	if err := writeDocument(doc, *output); err != nil {
		log.Fatal().Err(err).Msg("Failed to write candidates document")
	}
}

// buildCandidates runs the trigger bank over the snapshot and assembles
// the wire document. An empty snapshot yields the empty document so the
// downstream agent can still run its holding refresh.
func buildCandidates(rows []snapshot.Row, cfg *config.Config, interval, period string, universeSize, maxPositions, fallbackMaxEntries, topN int) trigger.Document {
	if len(rows) == 0 {
		log.Warn().Msg("Empty snapshot, emitting empty document")
		return trigger.EmptyDocument()
	}

	base := trigger.Thresholds{
		VolumeMomentumVolumeRatioMin: cfg.Triggers.VolumeRatioMin,
		VolumeMomentumRet1MinPct:     cfg.Triggers.Ret1MinPct,
		VolatilityTrendRet4MinPct:    cfg.Triggers.Ret4MinPct,
		RangeBreakoutVolumeRatioMin:  cfg.Triggers.BreakoutVolRatioMin,
		TighteningFactor:             cfg.Triggers.TighteningFactor,
	}
	effective := base.Effective(rows)

	groups := trigger.EvaluateAll(rows, effective, topN)
	matched := 0
	for _, g := range groups {
		matched += len(g)
	}

	slots := maxPositions
	if matched == 0 {
		limit := fallbackMaxEntries
		if limit > maxPositions {
			limit = maxPositions
		}
		if limit < 1 {
			limit = 1
		}
		log.Info().Int("limit", limit).Msg("No strict trigger fired, using fallback")
		groups = map[string][]trigger.Scored{
			trigger.FallbackMomentum: trigger.EvaluateFallback(rows, topN),
		}
		slots = limit
	}

	sel := trigger.SelectFinal(groups, slots)
	meta := trigger.NewMetadata(interval, period, universeSize, maxPositions, fallbackMaxEntries)
	doc := trigger.BuildDocument(sel, meta)

	total := 0
	for name, items := range doc.Groups {
		log.Info().Str("trigger", name).Int("count", len(items)).Msg("Trigger selection")
		total += len(items)
	}
	log.Info().Int("total", total).Msg("Candidates document built")
	return doc
}

func writeDocument(doc trigger.Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Println(string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func exclude(symbols, drop []string) []string {
	if len(drop) == 0 {
		return symbols
	}
	dropSet := make(map[string]bool, len(drop))
	for _, s := range drop {
		dropSet[strings.ToUpper(s)] = true
	}
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !dropSet[strings.ToUpper(s)] {
			out = append(out, s)
		}
	}
	return out
}
