package domain

import "fmt"

// Signal is a validated inbound trading signal. The transport layer is
// responsible for authentication and the symbol-existence pre-check; Validate
// covers the structural rules so the core never acts on a malformed tuple.
type Signal struct {
	Bot      string       `json:"bot"`
	Action   SignalAction `json:"action"`
	Symbol   string       `json:"symbol"`
	Price    float64      `json:"price"`
	Quantity float64      `json:"quantity"`
}

// Validate checks the structural contract: known action, non-empty symbol and
// bot, positive price and quantity.
func (s Signal) Validate() error {
	if s.Bot == "" {
		return fmt.Errorf("bot is required")
	}
	if s.Action != ActionBuy && s.Action != ActionSell {
		return fmt.Errorf("action must be %q or %q, got %q", ActionBuy, ActionSell, s.Action)
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if s.Price <= 0 {
		return fmt.Errorf("price must be positive, got %v", s.Price)
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", s.Quantity)
	}
	return nil
}
