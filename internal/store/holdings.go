package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound marks a missing row.
var ErrNotFound = errors.New("not found")

// InsertHolding creates a new open position. A duplicate symbol is an
// invariant violation and surfaces as an error.
func (s *Store) InsertHolding(h Holding) error {
	_, err := s.db.NamedExec(`
		INSERT INTO crypto_holdings (
			symbol, asset_name, buy_price, buy_date, quantity, notional_usd,
			current_price, last_updated, scenario, target_price, stop_loss,
			trigger_type, timeframe, theme
		) VALUES (
			:symbol, :asset_name, :buy_price, :buy_date, :quantity, :notional_usd,
			:current_price, :last_updated, :scenario, :target_price, :stop_loss,
			:trigger_type, :timeframe, :theme
		)`, h)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// GetHolding fetches one holding by symbol.
func (s *Store) GetHolding(symbol string) (Holding, error) {
	var h Holding
	err := s.db.Get(&h, "SELECT * FROM crypto_holdings WHERE symbol = ?", symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return Holding{}, ErrNotFound
	}
	if err != nil {
		return Holding{}, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}
	return h, nil
}

// ListHoldings returns all open positions ordered by buy date.
func (s *Store) ListHoldings() ([]Holding, error) {
	var holdings []Holding
	if err := s.db.Select(&holdings, "SELECT * FROM crypto_holdings ORDER BY buy_date"); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	return holdings, nil
}

// UpdateHoldingRefresh persists the per-cycle refresh of one holding:
// current price, the effective stop, trailing state inside the scenario
// blob, and the refresh timestamp.
func (s *Store) UpdateHoldingRefresh(symbol string, currentPrice, stopLoss float64, scenario, lastUpdated string) error {
	res, err := s.db.Exec(`
		UPDATE crypto_holdings
		SET current_price = ?, stop_loss = ?, scenario = ?, last_updated = ?
		WHERE symbol = ?`, currentPrice, stopLoss, scenario, lastUpdated, symbol)
	if err != nil {
		return fmt.Errorf("failed to refresh holding %s: %w", symbol, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to refresh holding %s: %w", symbol, ErrNotFound)
	}
	return nil
}

// DeleteHolding removes a closed position.
func (s *Store) DeleteHolding(symbol string) error {
	if _, err := s.db.Exec("DELETE FROM crypto_holdings WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	return nil
}

// CountHoldings returns the number of open positions.
func (s *Store) CountHoldings() (int, error) {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM crypto_holdings"); err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return n, nil
}

// HasHolding reports whether symbol is currently held.
func (s *Store) HasHolding(symbol string) (bool, error) {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM crypto_holdings WHERE symbol = ?", symbol); err != nil {
		return false, fmt.Errorf("failed to check holding %s: %w", symbol, err)
	}
	return n > 0, nil
}
