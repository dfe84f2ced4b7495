package store

import "fmt"

// InsertWatchlist appends one no-entry decision row.
func (s *Store) InsertWatchlist(w WatchlistEntry) error {
	_, err := s.db.NamedExec(`
		INSERT INTO crypto_watchlist_history (
			symbol, analyzed_date, current_price, buy_score, min_score,
			decision, skip_reason, target_price, stop_loss, risk_reward_ratio,
			trigger_type, timeframe, theme, scenario
		) VALUES (
			:symbol, :analyzed_date, :current_price, :buy_score, :min_score,
			:decision, :skip_reason, :target_price, :stop_loss, :risk_reward_ratio,
			:trigger_type, :timeframe, :theme, :scenario
		)`, w)
	if err != nil {
		return fmt.Errorf("failed to insert watchlist row for %s: %w", w.Symbol, err)
	}
	return nil
}

// ListWatchlist returns all watchlist rows ordered by analyzed date.
func (s *Store) ListWatchlist() ([]WatchlistEntry, error) {
	var rows []WatchlistEntry
	if err := s.db.Select(&rows, "SELECT * FROM crypto_watchlist_history ORDER BY analyzed_date"); err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return rows, nil
}

// InsertPerformance seeds one analysis performance tracker row.
func (s *Store) InsertPerformance(p PerformanceRow) error {
	if p.TrackingStatus == "" {
		p.TrackingStatus = "pending"
	}
	_, err := s.db.NamedExec(`
		INSERT INTO crypto_analysis_performance_tracker (
			symbol, analysis_date, analysis_price, predicted_direction,
			target_price, stop_loss, buy_score, decision, skip_reason,
			risk_reward_ratio, tracking_status, was_traded,
			trigger_type, timeframe, theme, created_at
		) VALUES (
			:symbol, :analysis_date, :analysis_price, :predicted_direction,
			:target_price, :stop_loss, :buy_score, :decision, :skip_reason,
			:risk_reward_ratio, :tracking_status, :was_traded,
			:trigger_type, :timeframe, :theme, :created_at
		)`, p)
	if err != nil {
		return fmt.Errorf("failed to insert performance row for %s: %w", p.Symbol, err)
	}
	return nil
}

// InsertHoldingDecision appends one sell-evaluation audit row.
func (s *Store) InsertHoldingDecision(d HoldingDecision) error {
	_, err := s.db.NamedExec(`
		INSERT INTO crypto_holding_decisions (
			symbol, decision_date, decision_time, current_price,
			should_sell, sell_reason, confidence, full_json_data
		) VALUES (
			:symbol, :decision_date, :decision_time, :current_price,
			:should_sell, :sell_reason, :confidence, :full_json_data
		)`, d)
	if err != nil {
		return fmt.Errorf("failed to insert holding decision for %s: %w", d.Symbol, err)
	}
	return nil
}
