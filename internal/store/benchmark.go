package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DailyRealizedPnL aggregates realized P&L in quote currency per sell
// day. Rows without a notional fall back to quantity * buy price.
func (s *Store) DailyRealizedPnL() (map[string]float64, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(sell_date) AS d,
			SUM(
				CASE
					WHEN notional_usd > 0 THEN notional_usd * (profit_rate / 100.0)
					WHEN quantity > 0 THEN quantity * buy_price * (profit_rate / 100.0)
					ELSE 0
				END
			) AS pnl
		FROM crypto_trading_history
		WHERE sell_date IS NOT NULL
		GROUP BY DATE(sell_date)
		ORDER BY d`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily pnl: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var day sql.NullString
		var pnl sql.NullFloat64
		if err := rows.Scan(&day, &pnl); err != nil {
			return nil, fmt.Errorf("failed to scan daily pnl: %w", err)
		}
		if day.Valid && day.String != "" {
			out[day.String] = pnl.Float64
		}
	}
	return out, rows.Err()
}

// TradeStats returns the closed trade count and the win rate in percent.
func (s *Store) TradeStats() (int, float64, error) {
	var count sql.NullInt64
	var winRate sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT COUNT(*), AVG(CASE WHEN profit_rate > 0 THEN 1.0 ELSE 0.0 END)
		FROM crypto_trading_history`).Scan(&count, &winRate)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute trade stats: %w", err)
	}
	return int(count.Int64), winRate.Float64 * 100.0, nil
}

// UnrealizedSummary returns the open positions' unrealized P&L and count.
func (s *Store) UnrealizedSummary() (float64, int, error) {
	var unrealized sql.NullFloat64
	var open sql.NullInt64
	err := s.db.QueryRow(`
		SELECT
			SUM(
				CASE
					WHEN current_price > 0 AND quantity > 0
					THEN (current_price - buy_price) * quantity
					ELSE 0
				END
			),
			COUNT(*)
		FROM crypto_holdings`).Scan(&unrealized, &open)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute unrealized summary: %w", err)
	}
	return unrealized.Float64, int(open.Int64), nil
}

// SellExecutionMetadata returns the metadata blobs of filled sells, for
// exit-reason accounting. sinceDate (YYYY-MM-DD) is optional.
func (s *Store) SellExecutionMetadata(sinceDate string) ([]string, error) {
	query := `
		SELECT metadata
		FROM crypto_order_executions
		WHERE side = 'sell' AND status = 'filled'`
	args := []interface{}{}
	if sinceDate != "" {
		query += " AND DATE(created_at) >= DATE(?)"
		args = append(args, sinceDate)
	}

	var out []string
	if err := s.db.Select(&out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load sell metadata: %w", err)
	}
	return out, nil
}

// StrategyStartDate returns the first entry date (YYYY-MM-DD), probing
// executions, then open holdings, then closed trades. Today when the
// strategy has never traded.
func (s *Store) StrategyStartDate() (string, error) {
	queries := []string{
		"SELECT MIN(DATE(created_at)) FROM crypto_order_executions WHERE side = 'buy' AND status = 'filled'",
		"SELECT MIN(DATE(buy_date)) FROM crypto_holdings",
		"SELECT MIN(DATE(buy_date)) FROM crypto_trading_history",
	}
	for _, q := range queries {
		var day sql.NullString
		if err := s.db.QueryRow(q).Scan(&day); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to probe strategy start date: %w", err)
		}
		if day.Valid && day.String != "" {
			return day.String, nil
		}
	}
	return time.Now().Format("2006-01-02"), nil
}

// DailyAveragePrice is one day's mean executed price for a symbol.
type DailyAveragePrice struct {
	Date  string  `db:"d"`
	Price float64 `db:"price"`
}

// DailyAverageExecutedPrices averages the filled execution prices per
// day for symbol since sinceDate, the local benchmark fallback when the
// price API is unreachable.
func (s *Store) DailyAverageExecutedPrices(symbol, sinceDate string) ([]DailyAveragePrice, error) {
	var out []DailyAveragePrice
	err := s.db.Select(&out, `
		SELECT DATE(created_at) AS d, AVG(executed_price) AS price
		FROM crypto_order_executions
		WHERE symbol = ? AND status = 'filled' AND created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY d`, symbol, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily executed prices for %s: %w", symbol, err)
	}
	return out, nil
}
