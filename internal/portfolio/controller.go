// Package portfolio is the Phase-2 controller: holding refresh with
// trailing stops, rule-based exits, candidate admission, slot rotation
// and re-entry cool-down.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/metrics"
	"github.com/prism-insight/cryptoswing/internal/oracle"
	"github.com/prism-insight/cryptoswing/internal/paper"
	"github.com/prism-insight/cryptoswing/internal/store"
	"github.com/prism-insight/cryptoswing/internal/theme"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// Portfolio rule constants.
const (
	MaxSlots                 = 10
	RotationMinScoreDelta    = 0.12
	RotationLossPriorityPct  = -2.0
	RotationMaxPerCycle      = 1
	RotationMinHoldingHours  = 4.0
	TrailingActivationPct    = 3.0
	LossGuardPct             = -5.0
	TimeTakeProfitHours      = 72.0
	TimeTakeProfitMinPct     = 4.0
	StaleCleanupHours        = 168.0
)

// Trader executes orders and serves live prices. The paper exchange is
// the only implementation.
type Trader interface {
	Buy(ctx context.Context, symbol string, quoteAmount, limitPrice float64, metadata map[string]interface{}) (paper.Result, error)
	SellAll(ctx context.Context, symbol string, quantity, limitPrice float64, metadata map[string]interface{}) (paper.Result, error)
	CurrentPrice(ctx context.Context, symbol string) float64
}

// Options configure one controller instance.
type Options struct {
	Timeframe            string
	ExecuteTrades        bool
	TradeMode            string
	QuoteAmount          float64
	MaxSlots             int
	ReentryCooldownHours float64
}

// Controller drives one Phase-2 cycle against the store.
type Controller struct {
	store  *store.Store
	oracle oracle.Oracle
	trader Trader
	opts   Options
	logger zerolog.Logger

	exitCounts map[string]int
	now        func() time.Time
}

// New creates a controller. trader may be nil when trades are not
// executed; holdings then refresh from their stored prices.
func New(st *store.Store, orc oracle.Oracle, trader Trader, opts Options) (*Controller, error) {
	if opts.TradeMode == "" {
		opts.TradeMode = "paper"
	}
	if opts.TradeMode != "paper" {
		return nil, fmt.Errorf("unsupported trade mode %q: only paper is implemented", opts.TradeMode)
	}
	if opts.MaxSlots <= 0 {
		opts.MaxSlots = MaxSlots
	}
	if opts.QuoteAmount <= 0 {
		opts.QuoteAmount = 100.0
	}
	if opts.ReentryCooldownHours < 0 {
		opts.ReentryCooldownHours = 0
	}
	if opts.Timeframe == "" {
		opts.Timeframe = "1h"
	}

	return &Controller{
		store:      st,
		oracle:     orc,
		trader:     trader,
		opts:       opts,
		logger:     config.NewLogger("portfolio"),
		exitCounts: map[string]int{"stop_loss": 0, "rotation": 0, "normal": 0},
		now:        time.Now,
	}, nil
}

// Summary reports one cycle's decision counts.
type Summary struct {
	Entries   int
	NoEntries int
	Sold      int
}

// ProcessCandidates runs one full cycle: refresh holdings and exits
// first, then process the Phase-1 candidates in trigger order.
func (c *Controller) ProcessCandidates(ctx context.Context, doc trigger.Document) (Summary, error) {
	c.exitCounts = map[string]int{"stop_loss": 0, "rotation": 0, "normal": 0}

	sold, err := c.updateHoldings(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Sold: sold}
	rotationsDone := 0

	for _, triggerType := range doc.OrderedTriggers() {
		items := doc.Groups[triggerType]
		heldSkipped := 0

		for _, item := range items {
			if item.Symbol == "" {
				continue
			}
			if item.Theme == "" {
				item.Theme = theme.Classify(item.Symbol)
			}

			held, err := c.store.HasHolding(item.Symbol)
			if err != nil {
				return summary, err
			}
			if held {
				c.logger.Info().Str("symbol", item.Symbol).Msg("Skip already-held symbol")
				heldSkipped++
				continue
			}

			cooldownActive, cooldownReason, err := c.reentryCooldown(item.Symbol)
			if err != nil {
				return summary, err
			}
			if cooldownActive {
				if err := c.saveWatchlist(item.Symbol, triggerType, item, oracle.DefaultScenario(), cooldownReason); err != nil {
					return summary, err
				}
				summary.NoEntries++
				c.logger.Info().
					Str("symbol", item.Symbol).
					Str("trigger", triggerType).
					Str("reason", cooldownReason).
					Msg("NO_ENTRY")
				continue
			}

			scenario, err := c.oracle.Analyze(ctx, item.Symbol, triggerType, item)
			if err != nil {
				c.logger.Error().Err(err).Str("symbol", item.Symbol).Msg("Scenario analysis failed")
				scenario = oracle.DefaultScenario()
			}
			scenario.Normalize(item.Symbol, item)

			if scenario.Decision == "entry" && scenario.BuyScore >= scenario.MinScore {
				entered, noEntry, soldByRotation, err := c.admit(ctx, item.Symbol, triggerType, item, scenario, &rotationsDone)
				if err != nil {
					return summary, err
				}
				summary.Entries += entered
				summary.NoEntries += noEntry
				summary.Sold += soldByRotation
				continue
			}

			reason := fmt.Sprintf("decision=%s, score=%d/%d", scenario.Decision, scenario.BuyScore, scenario.MinScore)
			if err := c.saveWatchlist(item.Symbol, triggerType, item, scenario, reason); err != nil {
				return summary, err
			}
			summary.NoEntries++
			c.logger.Info().
				Str("symbol", item.Symbol).
				Str("trigger", triggerType).
				Str("reason", reason).
				Msg("NO_ENTRY")
		}

		if heldSkipped > 0 && heldSkipped == len(items) {
			c.logger.Info().
				Str("trigger", triggerType).
				Int("skipped", heldSkipped).
				Int("total", len(items)).
				Msg("All candidates skipped: already in holdings")
		}
	}

	open, err := c.store.CountHoldings()
	if err != nil {
		return summary, err
	}
	metrics.OpenHoldings.Set(float64(open))

	c.logger.Info().
		Int("stop_loss", c.exitCounts["stop_loss"]).
		Int("rotation", c.exitCounts["rotation"]).
		Int("normal", c.exitCounts["normal"]).
		Int("total", summary.Sold).
		Msg("Cycle exit summary")

	return summary, nil
}

// admit places one qualifying candidate: direct entry when a slot is
// free, rotation when full, watchlist otherwise.
// Returns (entries, noEntries, sold) deltas.
func (c *Controller) admit(ctx context.Context, symbol, triggerType string, item trigger.Candidate, scenario oracle.Scenario, rotationsDone *int) (int, int, int, error) {
	count, err := c.store.CountHoldings()
	if err != nil {
		return 0, 0, 0, err
	}

	if count >= c.opts.MaxSlots {
		if *rotationsDone < RotationMaxPerCycle {
			rotated, reason, soldCount, err := c.tryRotationEntry(ctx, symbol, triggerType, item, scenario)
			if err != nil {
				return 0, 0, soldCount, err
			}
			if rotated {
				*rotationsDone++
				metrics.Rotations.Inc()
				return 1, 0, soldCount, nil
			}
			if err := c.saveWatchlist(symbol, triggerType, item, scenario, reason); err != nil {
				return 0, 0, soldCount, err
			}
			c.logger.Info().Str("symbol", symbol).Str("trigger", triggerType).Str("reason", reason).Msg("NO_ENTRY")
			return 0, 1, soldCount, nil
		}

		reason := fmt.Sprintf("max slots reached (%d), rotation limit reached (%d/cycle)",
			c.opts.MaxSlots, RotationMaxPerCycle)
		if err := c.saveWatchlist(symbol, triggerType, item, scenario, reason); err != nil {
			return 0, 0, 0, err
		}
		c.logger.Info().Str("symbol", symbol).Str("trigger", triggerType).Str("reason", reason).Msg("NO_ENTRY")
		return 0, 1, 0, nil
	}

	var execution *paper.Result
	if c.opts.ExecuteTrades {
		if c.trader == nil {
			reason := "paper trader not initialized"
			if err := c.saveWatchlist(symbol, triggerType, item, scenario, reason); err != nil {
				return 0, 0, 0, err
			}
			c.logger.Warn().Str("symbol", symbol).Str("reason", reason).Msg("NO_ENTRY")
			return 0, 1, 0, nil
		}
		res, err := c.trader.Buy(ctx, symbol, c.opts.QuoteAmount, 0, map[string]interface{}{"trigger_type": triggerType})
		if err != nil {
			return 0, 0, 0, err
		}
		if !res.Success {
			reason := fmt.Sprintf("paper buy failed: %s", res.Message)
			if err := c.saveWatchlist(symbol, triggerType, item, scenario, reason); err != nil {
				return 0, 0, 0, err
			}
			c.logger.Warn().Str("symbol", symbol).Str("reason", reason).Msg("NO_ENTRY")
			return 0, 1, 0, nil
		}
		execution = &res
	}

	if err := c.saveHolding(symbol, triggerType, item, scenario, execution); err != nil {
		return 0, 0, 0, err
	}

	event := c.logger.Info().
		Str("symbol", symbol).
		Str("trigger", triggerType).
		Int("buy_score", scenario.BuyScore).
		Int("min_score", scenario.MinScore)
	if execution != nil {
		event.Float64("quantity", execution.Quantity).
			Float64("executed_price", execution.ExecutedPrice).
			Msg("ENTRY+TRADE")
	} else {
		event.Msg("ENTRY")
	}
	return 1, 0, 0, nil
}

// saveHolding persists a new position, carrying the Phase-1 scoring
// context inside the scenario blob for later rotation decisions.
func (c *Controller) saveHolding(symbol, triggerType string, item trigger.Candidate, scenario oracle.Scenario, execution *paper.Result) error {
	now := store.FormatTime(c.now())
	fallbackPrice := item.CurrentPrice

	execPrice := fallbackPrice
	var qty, notional float64
	if execution != nil {
		if execution.ExecutedPrice > 0 {
			execPrice = execution.ExecutedPrice
		}
		qty = execution.Quantity
		notional = execution.QuoteAmount
	}

	blob := scenario.WireMap()
	setDefaultFloat(blob, "phase1_final_score", item.FinalScore)
	setDefaultFloat(blob, "phase1_composite_score", item.CompositeScore)
	setDefaultFloat(blob, "phase1_risk_reward_ratio", item.RiskRewardRatio)
	setDefaultFloat(blob, "phase1_volume_ratio_20", item.VolumeRatio20)

	scenarioJSON, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario for %s: %w", symbol, err)
	}

	holdingTheme := scenario.Theme
	if holdingTheme == "" {
		holdingTheme = "Major"
	}

	currentPrice := execPrice
	if currentPrice <= 0 {
		currentPrice = fallbackPrice
	}

	err = c.store.InsertHolding(store.Holding{
		Symbol:       symbol,
		AssetName:    theme.Base(symbol),
		BuyPrice:     execPrice,
		BuyDate:      now,
		Quantity:     qty,
		NotionalUSD:  notional,
		CurrentPrice: currentPrice,
		LastUpdated:  now,
		Scenario:     string(scenarioJSON),
		TargetPrice:  scenario.TargetPrice,
		StopLoss:     scenario.StopLoss,
		TriggerType:  triggerType,
		Timeframe:    c.opts.Timeframe,
		Theme:        holdingTheme,
	})
	if err != nil {
		return err
	}

	metrics.Entries.Inc()
	return nil
}

// saveWatchlist records a no-entry decision and seeds the performance
// tracker for later prediction scoring.
func (c *Controller) saveWatchlist(symbol, triggerType string, item trigger.Candidate, scenario oracle.Scenario, reason string) error {
	now := store.FormatTime(c.now())

	scenarioJSON, err := json.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario for %s: %w", symbol, err)
	}

	entryTheme := scenario.Theme
	if entryTheme == "" {
		entryTheme = theme.Classify(symbol)
	}

	err = c.store.InsertWatchlist(store.WatchlistEntry{
		Symbol:          symbol,
		AnalyzedDate:    now,
		CurrentPrice:    item.CurrentPrice,
		BuyScore:        scenario.BuyScore,
		MinScore:        scenario.MinScore,
		Decision:        "no_entry",
		SkipReason:      reason,
		TargetPrice:     scenario.TargetPrice,
		StopLoss:        scenario.StopLoss,
		RiskRewardRatio: scenario.RiskRewardRatio,
		TriggerType:     triggerType,
		Timeframe:       c.opts.Timeframe,
		Theme:           entryTheme,
		Scenario:        string(scenarioJSON),
	})
	if err != nil {
		return err
	}

	direction := "NEUTRAL"
	if scenario.Decision == "entry" {
		direction = "UP"
	}
	err = c.store.InsertPerformance(store.PerformanceRow{
		Symbol:             symbol,
		AnalysisDate:       now,
		AnalysisPrice:      item.CurrentPrice,
		PredictedDirection: direction,
		TargetPrice:        scenario.TargetPrice,
		StopLoss:           scenario.StopLoss,
		BuyScore:           scenario.BuyScore,
		Decision:           scenario.Decision,
		SkipReason:         reason,
		RiskRewardRatio:    scenario.RiskRewardRatio,
		TrackingStatus:     "pending",
		TriggerType:        triggerType,
		Timeframe:          c.opts.Timeframe,
		Theme:              entryTheme,
		CreatedAt:          now,
	})
	if err != nil {
		return err
	}

	metrics.NoEntries.Inc()
	return nil
}

func setDefaultFloat(m map[string]interface{}, key string, value float64) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
