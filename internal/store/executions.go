package store

import "fmt"

// InsertExecution appends one ledger row and returns its id.
func (s *Store) InsertExecution(e OrderExecution) (int64, error) {
	if e.Mode == "" {
		e.Mode = "paper"
	}
	res, err := s.db.NamedExec(`
		INSERT INTO crypto_order_executions (
			symbol, side, order_type, status, requested_price, executed_price,
			quantity, quote_amount, fee_amount, mode, message, metadata, created_at
		) VALUES (
			:symbol, :side, :order_type, :status, :requested_price, :executed_price,
			:quantity, :quote_amount, :fee_amount, :mode, :message, :metadata, :created_at
		)`, e)
	if err != nil {
		return 0, fmt.Errorf("failed to insert execution for %s: %w", e.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read execution id: %w", err)
	}
	return id, nil
}

// ListExecutions returns the latest limit ledger rows, newest first.
// limit <= 0 returns everything.
func (s *Store) ListExecutions(limit int) ([]OrderExecution, error) {
	query := "SELECT * FROM crypto_order_executions ORDER BY created_at DESC, id DESC"
	var rows []OrderExecution
	var err error
	if limit > 0 {
		err = s.db.Select(&rows, query+" LIMIT ?", limit)
	} else {
		err = s.db.Select(&rows, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return rows, nil
}

// ListFilledExecutions returns filled rows for one symbol and side in
// chronological order.
func (s *Store) ListFilledExecutions(symbol, side string) ([]OrderExecution, error) {
	var rows []OrderExecution
	err := s.db.Select(&rows, `
		SELECT * FROM crypto_order_executions
		WHERE symbol = ? AND side = ? AND status = 'filled'
		ORDER BY created_at, id`, symbol, side)
	if err != nil {
		return nil, fmt.Errorf("failed to list filled executions for %s: %w", symbol, err)
	}
	return rows, nil
}
