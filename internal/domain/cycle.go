package domain

import "time"

// DcaCycle is the single active Martingale cycle of a bot. Symbol is non-empty
// iff Status == CycleActivated; while activated no new initial buy is accepted.
type DcaCycle struct {
	Status          CycleStatus `json:"status"`
	Symbol          string      `json:"symbol"`
	EntryPrice      float64     `json:"entry_price"`
	TotalQty        float64     `json:"total_qty"`         // Cumulative quantity across the initial buy and placed safety orders
	DcaOrdersPlaced int         `json:"dca_orders_placed"` // Number of safety orders that were accepted by the exchange
	ActivatedAt     time.Time   `json:"activated_at,omitempty"`
}

// IsActivated reports whether a cycle is currently open.
func (c DcaCycle) IsActivated() bool {
	return c.Status == CycleActivated
}

// Reset returns the cycle to its idle state. Called after an exit was executed
// on the exchange, or when the monitor finds the cycle externally closed.
func (c *DcaCycle) Reset() {
	c.Status = CycleNotActivated
	c.Symbol = ""
	c.EntryPrice = 0
	c.TotalQty = 0
	c.DcaOrdersPlaced = 0
	c.ActivatedAt = time.Time{}
}
