package store

import (
	"fmt"
	"strings"
)

var tableDDL = []struct {
	name string
	ddl  string
}{
	{"crypto_holdings", `
CREATE TABLE IF NOT EXISTS crypto_holdings (
    symbol TEXT PRIMARY KEY,
    asset_name TEXT NOT NULL,
    buy_price REAL NOT NULL,
    buy_date TEXT NOT NULL,
    quantity REAL,
    notional_usd REAL,
    current_price REAL,
    last_updated TEXT,
    scenario TEXT,
    target_price REAL,
    stop_loss REAL,
    trigger_type TEXT,
    timeframe TEXT,
    theme TEXT
)`},
	{"crypto_trading_history", `
CREATE TABLE IF NOT EXISTS crypto_trading_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    asset_name TEXT NOT NULL,
    buy_price REAL NOT NULL,
    buy_date TEXT NOT NULL,
    quantity REAL,
    notional_usd REAL,
    sell_price REAL NOT NULL,
    sell_date TEXT NOT NULL,
    profit_rate REAL NOT NULL,
    holding_hours REAL,
    scenario TEXT,
    trigger_type TEXT,
    timeframe TEXT,
    theme TEXT
)`},
	{"crypto_watchlist_history", `
CREATE TABLE IF NOT EXISTS crypto_watchlist_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    analyzed_date TEXT NOT NULL,
    current_price REAL NOT NULL,
    buy_score INTEGER,
    min_score INTEGER,
    decision TEXT NOT NULL,
    skip_reason TEXT,
    target_price REAL,
    stop_loss REAL,
    risk_reward_ratio REAL,
    trigger_type TEXT,
    timeframe TEXT,
    theme TEXT,
    scenario TEXT
)`},
	{"crypto_analysis_performance_tracker", `
CREATE TABLE IF NOT EXISTS crypto_analysis_performance_tracker (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    analysis_date TEXT NOT NULL,
    analysis_price REAL NOT NULL,
    predicted_direction TEXT,
    target_price REAL,
    stop_loss REAL,
    buy_score INTEGER,
    decision TEXT,
    skip_reason TEXT,
    risk_reward_ratio REAL,
    price_24h REAL,
    price_72h REAL,
    price_168h REAL,
    return_24h REAL,
    return_72h REAL,
    return_168h REAL,
    hit_target INTEGER DEFAULT 0,
    hit_stop_loss INTEGER DEFAULT 0,
    tracking_status TEXT DEFAULT 'pending',
    was_traded INTEGER DEFAULT 0,
    trigger_type TEXT,
    timeframe TEXT,
    theme TEXT,
    created_at TEXT NOT NULL,
    last_updated TEXT
)`},
	{"crypto_holding_decisions", `
CREATE TABLE IF NOT EXISTS crypto_holding_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    decision_date TEXT NOT NULL,
    decision_time TEXT NOT NULL,
    current_price REAL NOT NULL,
    should_sell BOOLEAN NOT NULL,
    sell_reason TEXT,
    confidence INTEGER,
    technical_trend TEXT,
    volume_analysis TEXT,
    market_condition_impact TEXT,
    time_factor TEXT,
    portfolio_adjustment_needed BOOLEAN,
    adjustment_reason TEXT,
    new_target_price REAL,
    new_stop_loss REAL,
    adjustment_urgency TEXT,
    full_json_data TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now', 'localtime'))
)`},
	{"crypto_order_executions", `
CREATE TABLE IF NOT EXISTS crypto_order_executions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    order_type TEXT NOT NULL,
    status TEXT NOT NULL,
    requested_price REAL,
    executed_price REAL,
    quantity REAL,
    quote_amount REAL,
    fee_amount REAL,
    mode TEXT DEFAULT 'paper',
    message TEXT,
    metadata TEXT,
    created_at TEXT NOT NULL
)`},
}

var indexDDL = []string{
	"CREATE INDEX IF NOT EXISTS idx_crypto_holdings_theme ON crypto_holdings(theme)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_holdings_trigger ON crypto_holdings(trigger_type)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_history_symbol ON crypto_trading_history(symbol)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_history_sell_date ON crypto_trading_history(sell_date)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_watchlist_symbol ON crypto_watchlist_history(symbol)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_watchlist_date ON crypto_watchlist_history(analyzed_date)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_perf_symbol ON crypto_analysis_performance_tracker(symbol)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_perf_status ON crypto_analysis_performance_tracker(tracking_status)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_holding_dec_symbol ON crypto_holding_decisions(symbol)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_exec_symbol ON crypto_order_executions(symbol)",
	"CREATE INDEX IF NOT EXISTS idx_crypto_exec_created ON crypto_order_executions(created_at)",
}

// themeMigrations adds the theme column to tables created before it
// existed. ALTER TABLE failing means the column is already present.
var themeMigrations = []string{
	"ALTER TABLE crypto_watchlist_history ADD COLUMN theme TEXT",
	"ALTER TABLE crypto_analysis_performance_tracker ADD COLUMN theme TEXT",
}

// Migrate creates tables and indexes and applies idempotent column
// upgrades.
func (s *Store) Migrate() error {
	for _, t := range tableDDL {
		if _, err := s.db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
		s.logger.Debug().Str("table", t.name).Msg("Created/verified table")
	}

	for _, ddl := range indexDDL {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	for _, ddl := range themeMigrations {
		if _, err := s.db.Exec(ddl); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			// Older drivers phrase the duplicate-column error differently;
			// the migration is best-effort either way.
			s.logger.Debug().Err(err).Msg("Theme column migration skipped")
		} else {
			s.logger.Info().Str("ddl", ddl).Msg("Applied column migration")
		}
	}

	s.logger.Info().Msg("Schema migration complete")
	return nil
}
