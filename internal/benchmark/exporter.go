package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/store"
)

// matchWindow bounds how far apart an execution and its history row may
// be to count as the same trade.
const matchWindow = 300 * time.Second

// Exporter assembles the dashboard document from the database, the
// scheduler logs and the CoinGecko daily series.
type Exporter struct {
	store  *store.Store
	gecko  *CoinGecko
	cfg    config.BenchmarkConfig
	logger zerolog.Logger
	now    func() time.Time
}

// New creates an exporter against st using cfg.
func New(st *store.Store, cfg config.BenchmarkConfig) *Exporter {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 1000.0
	}
	if cfg.ExecutionLimit <= 0 {
		cfg.ExecutionLimit = 200
	}
	return &Exporter{
		store:  st,
		gecko:  NewCoinGecko(cfg.CoinGeckoURL),
		cfg:    cfg,
		logger: config.NewLogger("benchmark"),
		now:    time.Now,
	}
}

// Generate builds the full report. days > 0 forces a rolling window,
// otherwise the window starts at the strategy's first entry.
func (e *Exporter) Generate(ctx context.Context, days int) (Report, error) {
	pnlByDay, err := e.store.DailyRealizedPnL()
	if err != nil {
		return Report{}, err
	}
	tradeCount, winRate, err := e.store.TradeStats()
	if err != nil {
		return Report{}, err
	}
	unrealized, openPositions, err := e.store.UnrealizedSummary()
	if err != nil {
		return Report{}, err
	}
	holdings, err := e.holdingViews()
	if err != nil {
		return Report{}, err
	}
	startDate, err := e.store.StrategyStartDate()
	if err != nil {
		return Report{}, err
	}
	exitCounts, err := e.exitReasonCounts(startDate)
	if err != nil {
		return Report{}, err
	}

	cycles, err := LoadRecentCycles(e.cfg.LogDir, 20, e.now())
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to parse scheduler logs")
	}

	btcDaily, periodDays := e.btcSeries(ctx, days, startDate)
	axis := make([]string, 0, len(btcDaily))
	for _, p := range btcDaily {
		axis = append(axis, p.Date)
	}
	universeDaily := e.universeSeries(ctx, periodDays, axis)

	logicChangeTS := e.now().Format("2006-01-02T15:04:05")

	executions, err := e.executionViews(logicChangeTS)
	if err != nil {
		return Report{}, err
	}
	for i := range cycles {
		cycles[i].LogicChangeTS = logicChangeTS
	}

	report := e.buildReport(btcDaily, universeDaily, pnlByDay, periodDays,
		tradeCount, winRate, unrealized, openPositions,
		holdings, executions, cycles, exitCounts, logicChangeTS)
	return report, nil
}

// WriteFile renders the report as indented JSON at path, creating parent
// directories as needed.
func (e *Exporter) WriteFile(report Report, path string) error {
	if path == "" {
		path = e.cfg.OutputPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	e.logger.Info().Str("path", path).Msg("Saved benchmark document")
	return nil
}

func (e *Exporter) buildReport(
	btcDaily []DailyPrice,
	universeDaily []DailyPrice,
	pnlByDay map[string]float64,
	periodDays, tradeCount int,
	winRate, unrealized float64,
	openPositions int,
	holdings []HoldingView,
	executions []ExecutionView,
	cycles []Cycle,
	exitCounts ExitReasonCounts,
	logicChangeTS string,
) Report {
	if len(btcDaily) == 0 {
		btcDaily = []DailyPrice{{Date: e.now().Format("2006-01-02"), Price: 0}}
	}

	baseline := btcDaily[0].Price
	universeByDate := make(map[string]float64, len(universeDaily))
	for _, p := range universeDaily {
		universeByDate[p.Date] = p.Price
	}

	initial := e.cfg.InitialCapital
	realized := 0.0
	points := make([]Point, 0, len(btcDaily))

	for idx, day := range btcDaily {
		realized += pnlByDay[day.Date]
		algoEquity := initial + realized
		if idx == len(btcDaily)-1 {
			algoEquity += unrealized
		}

		algoReturn := 0.0
		if initial > 0 {
			algoReturn = (algoEquity - initial) / initial * 100
		}
		btcReturn := 0.0
		if baseline > 0 {
			btcReturn = (day.Price - baseline) / baseline * 100
		}
		universeReturn := universeByDate[day.Date]

		points = append(points, Point{
			Date:                    day.Date,
			BTCPrice:                round(day.Price, 6),
			BTCReturnPct:            round(btcReturn, 4),
			UniverseReturnPct:       round(universeReturn, 4),
			AlgorithmEquity:         round(algoEquity, 6),
			AlgorithmReturnPct:      round(algoReturn, 4),
			BenchmarkEquity:         round(initial*(1+btcReturn/100), 6),
			UniverseBenchmarkEquity: round(initial*(1+universeReturn/100), 6),
		})
	}

	last := points[len(points)-1]
	return Report{
		GeneratedAt:    e.now().Format("2006-01-02T15:04:05"),
		PeriodDays:     periodDays,
		InitialCapital: initial,
		LogicChangeTS:  logicChangeTS,
		Summary: Summary{
			AlgorithmReturnPct: last.AlgorithmReturnPct,
			BTCReturnPct:       last.BTCReturnPct,
			AlphaPct:           round(last.AlgorithmReturnPct-last.BTCReturnPct, 4),
			UniverseReturnPct:  last.UniverseReturnPct,
			UniverseAlphaPct:   round(last.AlgorithmReturnPct-last.UniverseReturnPct, 4),
			TotalTrades:        tradeCount,
			WinRate:            round(winRate, 2),
			OpenPositions:      openPositions,
			ExitReasonCounts:   exitCounts,
		},
		Points:          points,
		Holdings:        holdings,
		OrderExecutions: executions,
		RecentCycles:    cycles,
	}
}

// btcSeries resolves the BTC daily axis: CoinGecko first, the local
// executions ledger when the API is unreachable. Returns the series and
// the effective window length in days.
func (e *Exporter) btcSeries(ctx context.Context, days int, startDate string) ([]DailyPrice, int) {
	periodDays := days
	if periodDays <= 0 {
		periodDays = 1
		if start, err := time.Parse("2006-01-02", startDate); err == nil {
			periodDays = int(e.now().Sub(start).Hours()/24) + 1
			if periodDays < 1 {
				periodDays = 1
			}
		}
	}

	rows, err := e.gecko.DailyPrices(ctx, "bitcoin", periodDays)
	if err == nil && len(rows) > 0 {
		if days <= 0 {
			if first, perr := time.Parse("2006-01-02", rows[0].Date); perr == nil {
				periodDays = int(e.now().Sub(first).Hours()/24) + 1
				if periodDays < 1 {
					periodDays = 1
				}
			}
		}
		return rows, periodDays
	}

	e.logger.Warn().Err(err).Msg("CoinGecko unavailable, using local BTC prices")
	return e.fallbackBTCDaily(periodDays), periodDays
}

// fallbackBTCDaily averages the filled BTC-USD executions per day; a
// lone open BTC holding seeds a single point when the ledger is empty.
func (e *Exporter) fallbackBTCDaily(days int) []DailyPrice {
	since := e.now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := e.store.DailyAverageExecutedPrices("BTC-USD", since)
	if err == nil && len(rows) > 0 {
		out := make([]DailyPrice, 0, len(rows))
		for _, r := range rows {
			out = append(out, DailyPrice{Date: r.Date, Price: r.Price})
		}
		return out
	}

	if h, err := e.store.GetHolding("BTC-USD"); err == nil && len(h.BuyDate) >= 10 {
		return []DailyPrice{{Date: h.BuyDate[:10], Price: h.BuyPrice}}
	}
	return []DailyPrice{{Date: e.now().Format("2006-01-02"), Price: 0}}
}

// universeSeries builds the equal-weight basket return series over the
// date axis, in percent versus the first axis date. Symbols missing a
// baseline are dropped; gaps carry the last known price forward.
func (e *Exporter) universeSeries(ctx context.Context, periodDays int, axis []string) []DailyPrice {
	if len(axis) == 0 {
		return nil
	}

	symbolDaily := make(map[string]map[string]float64)
	for _, symbol := range config.DefaultUniverse {
		coinID, ok := coinIDBySymbol[symbol]
		if !ok {
			continue
		}
		rows, err := e.gecko.DailyPrices(ctx, coinID, periodDays)
		if err != nil || len(rows) == 0 {
			continue
		}
		byDate := make(map[string]float64, len(rows))
		for _, r := range rows {
			if r.Price > 0 {
				byDate[r.Date] = r.Price
			}
		}
		symbolDaily[symbol] = byDate
	}
	if len(symbolDaily) == 0 {
		return nil
	}

	sorted := append([]string(nil), axis...)
	sort.Strings(sorted)
	firstDate := sorted[0]

	baselines := make(map[string]float64)
	for symbol, byDate := range symbolDaily {
		if baseline := byDate[firstDate]; baseline > 0 {
			baselines[symbol] = baseline
		}
	}
	if len(baselines) == 0 {
		return nil
	}

	lastPrice := make(map[string]float64)
	out := make([]DailyPrice, 0, len(sorted))
	for _, date := range sorted {
		sum := 0.0
		n := 0
		for symbol, baseline := range baselines {
			if cur := symbolDaily[symbol][date]; cur > 0 {
				lastPrice[symbol] = cur
			}
			price := lastPrice[symbol]
			if price <= 0 {
				continue
			}
			sum += (price/baseline - 1) * 100
			n++
		}
		switch {
		case n > 0:
			out = append(out, DailyPrice{Date: date, Price: sum / float64(n)})
		case len(out) > 0:
			out = append(out, DailyPrice{Date: date, Price: out[len(out)-1].Price})
		default:
			out = append(out, DailyPrice{Date: date, Price: 0})
		}
	}
	return out
}

// holdingViews enriches the open positions with market value and book
// weight.
func (e *Exporter) holdingViews() ([]HoldingView, error) {
	holdings, err := e.store.ListHoldings()
	if err != nil {
		return nil, err
	}

	views := make([]HoldingView, 0, len(holdings))
	totalMarketValue := 0.0
	for _, h := range holdings {
		marketValue := h.CurrentPrice * h.Quantity
		unrealized := (h.CurrentPrice - h.BuyPrice) * h.Quantity
		costBasis := h.NotionalUSD
		if h.BuyPrice > 0 && h.Quantity > 0 {
			costBasis = h.BuyPrice * h.Quantity
		}
		profitRate := 0.0
		if costBasis > 0 {
			profitRate = unrealized / costBasis * 100
		}

		views = append(views, HoldingView{
			Symbol:        h.Symbol,
			BuyDate:       h.BuyDate,
			Quantity:      round(h.Quantity, 8),
			BuyPrice:      round(h.BuyPrice, 8),
			CurrentPrice:  round(h.CurrentPrice, 8),
			NotionalUSD:   round(h.NotionalUSD, 6),
			MarketValue:   round(marketValue, 6),
			UnrealizedPnL: round(unrealized, 6),
			ProfitRatePct: round(profitRate, 4),
		})
		totalMarketValue += marketValue
	}

	for i := range views {
		if totalMarketValue > 0 {
			views[i].WeightPct = round(views[i].MarketValue/totalMarketValue*100, 4)
		}
	}
	return views, nil
}

// executionViews annotates the newest ledger rows: sells get their
// realized outcome from the closest history row within the match window.
func (e *Exporter) executionViews(logicChangeTS string) ([]ExecutionView, error) {
	executions, err := e.store.ListExecutions(e.cfg.ExecutionLimit)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ListTradeHistory()
	if err != nil {
		return nil, err
	}

	type sale struct {
		at   time.Time
		rate float64
	}
	salesBySymbol := make(map[string][]sale)
	for _, t := range history {
		at, err := store.ParseTime(t.SellDate)
		if err != nil {
			continue
		}
		salesBySymbol[t.Symbol] = append(salesBySymbol[t.Symbol], sale{at: at, rate: t.ProfitRate})
	}

	findRate := func(symbol, createdAt string) *float64 {
		items := salesBySymbol[symbol]
		if len(items) == 0 {
			return nil
		}
		created, err := store.ParseTime(createdAt)
		if err != nil {
			return nil
		}
		var best *sale
		bestDiff := time.Duration(0)
		for i := range items {
			diff := items[i].at.Sub(created)
			if diff < 0 {
				diff = -diff
			}
			if best == nil || diff < bestDiff {
				best = &items[i]
				bestDiff = diff
			}
		}
		if best != nil && bestDiff <= matchWindow {
			rate := best.rate
			return &rate
		}
		return nil
	}

	views := make([]ExecutionView, 0, len(executions))
	for _, x := range executions {
		view := ExecutionView{
			CreatedAt:     x.CreatedAt,
			Symbol:        x.Symbol,
			Side:          x.Side,
			Status:        x.Status,
			ExecutedPrice: round(x.ExecutedPrice, 8),
			Quantity:      round(x.Quantity, 8),
			QuoteAmount:   round(x.QuoteAmount, 6),
			FeeAmount:     round(x.FeeAmount, 6),
			OrderType:     x.OrderType,
			Mode:          x.Mode,
			LogicChangeTS: logicChangeTS,
		}

		if strings.EqualFold(x.Side, "sell") {
			if rate := findRate(x.Symbol, x.CreatedAt); rate != nil {
				rounded := round(*rate, 4)
				view.RealizedPnLPct = &rounded
				exitType := "breakeven"
				if rounded > 0 {
					exitType = "take_profit"
				} else if rounded < 0 {
					exitType = "stop_loss"
				}
				view.ExitType = &exitType
			}
			reasonType := classifyExitMetadata(x.Metadata)
			view.ExitReasonType = &reasonType
		}

		views = append(views, view)
	}
	return views, nil
}

// exitReasonCounts buckets filled sells since startDate by exit category.
func (e *Exporter) exitReasonCounts(startDate string) (ExitReasonCounts, error) {
	blobs, err := e.store.SellExecutionMetadata(startDate)
	if err != nil {
		return ExitReasonCounts{}, err
	}

	var counts ExitReasonCounts
	for _, blob := range blobs {
		switch classifyExitMetadata(blob) {
		case "stop_loss":
			counts.StopLoss++
		case "rotation":
			counts.Rotation++
		default:
			counts.Normal++
		}
	}
	return counts, nil
}

// classifyExitMetadata derives the exit category from an execution's
// metadata blob, tolerating both the tagged form and raw reason text.
func classifyExitMetadata(metadata string) string {
	text := strings.ToLower(strings.TrimSpace(metadata))
	if text == "" {
		return "normal"
	}
	if strings.Contains(text, "exit_category") {
		switch {
		case strings.Contains(text, "rotation"):
			return "rotation"
		case strings.Contains(text, "stop_loss"), strings.Contains(text, "stop-loss"):
			return "stop_loss"
		case strings.Contains(text, "normal"):
			return "normal"
		}
	}
	if strings.Contains(text, "rotation replace:") {
		return "rotation"
	}
	if strings.Contains(text, "stop loss") ||
		strings.Contains(text, "trailing stop") ||
		strings.Contains(text, "loss guard") {
		return "stop_loss"
	}
	return "normal"
}
