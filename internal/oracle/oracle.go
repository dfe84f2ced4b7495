package oracle

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/metrics"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// Oracle produces a trading scenario for one Phase-1 candidate.
type Oracle interface {
	Analyze(ctx context.Context, symbol, triggerType string, candidate trigger.Candidate) (Scenario, error)
}

// FallbackOracle consults primary and falls through to secondary when the
// primary fails. Analysis never hard-fails: if both sides error, the
// default scenario is returned with the error attached for recording.
type FallbackOracle struct {
	Primary   Oracle
	Secondary Oracle
}

// Analyze implements Oracle.
func (f *FallbackOracle) Analyze(ctx context.Context, symbol, triggerType string, candidate trigger.Candidate) (Scenario, error) {
	scenario, err := f.Primary.Analyze(ctx, symbol, triggerType, candidate)
	if err == nil {
		return scenario, nil
	}

	metrics.OracleFallbacks.Inc()
	log.Warn().
		Err(err).
		Str("symbol", symbol).
		Str("trigger", triggerType).
		Msg("Primary oracle failed, using fallback")

	return f.Secondary.Analyze(ctx, symbol, triggerType, candidate)
}

// NewFromEnv wires the oracle for the current environment: the LLM client
// with heuristic fallback when OPENAI_API_KEY is present, the plain
// heuristic otherwise.
func NewFromEnv(cfg config.OracleConfig) Oracle {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, using heuristic oracle")
		return &HeuristicOracle{}
	}

	return &FallbackOracle{
		Primary:   NewLLMOracle(cfg, apiKey),
		Secondary: &HeuristicOracle{},
	}
}
