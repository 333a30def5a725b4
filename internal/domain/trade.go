package domain

import "time"

// Trade represents an open SingleShot position. The ledger holds at most one
// Trade per (bot, symbol); the record is deleted on any exit.
type Trade struct {
	Symbol     string      `json:"symbol"`      // Trading symbol (e.g., "ETHUSDT")
	Quantity   float64     `json:"quantity"`    // Size recorded from the buy signal
	EntryPrice float64     `json:"entry_price"` // Price recorded from the buy signal
	Status     TradeStatus `json:"status"`      // Always TradeRunning while the record exists
	EntryTime  time.Time   `json:"entry_time"`  // Timestamp when the buy signal was applied
}

// IsRunning reports whether the trade is being watched by the monitor.
func (t *Trade) IsRunning() bool {
	return t.Status == TradeRunning
}
