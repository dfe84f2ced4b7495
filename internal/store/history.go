package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// InsertTradeHistory appends one closed lifecycle row.
func (s *Store) InsertTradeHistory(t TradeHistory) error {
	_, err := s.db.NamedExec(`
		INSERT INTO crypto_trading_history (
			symbol, asset_name, buy_price, buy_date, quantity, notional_usd,
			sell_price, sell_date, profit_rate, holding_hours, scenario,
			trigger_type, timeframe, theme
		) VALUES (
			:symbol, :asset_name, :buy_price, :buy_date, :quantity, :notional_usd,
			:sell_price, :sell_date, :profit_rate, :holding_hours, :scenario,
			:trigger_type, :timeframe, :theme
		)`, t)
	if err != nil {
		return fmt.Errorf("failed to insert trade history for %s: %w", t.Symbol, err)
	}
	return nil
}

// LastSellDate returns the most recent sell timestamp for symbol.
// ErrNotFound when the symbol has never been sold.
func (s *Store) LastSellDate(symbol string) (string, error) {
	var sellDate string
	err := s.db.Get(&sellDate, `
		SELECT sell_date FROM crypto_trading_history
		WHERE symbol = ?
		ORDER BY sell_date DESC
		LIMIT 1`, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last sell date for %s: %w", symbol, err)
	}
	return sellDate, nil
}

// ListTradeHistory returns all closed trades ordered by sell date.
func (s *Store) ListTradeHistory() ([]TradeHistory, error) {
	var rows []TradeHistory
	if err := s.db.Select(&rows, "SELECT * FROM crypto_trading_history ORDER BY sell_date"); err != nil {
		return nil, fmt.Errorf("failed to list trade history: %w", err)
	}
	return rows, nil
}
