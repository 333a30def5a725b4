package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TPTarget pairs a price-gain threshold with the fraction of the position to
// liquidate when it is reached. Targets are evaluated in order; the first
// matching target wins.
type TPTarget struct {
	Percent     float64 `json:"percent"`      // Gain over entry price that triggers the exit, in percent
	SellPercent float64 `json:"sell_percent"` // Fraction of the position to sell, in percent
}

// TradeAmount is the per-order budget of a Martingale bot. It is either an
// absolute quote amount ("10") or a percentage of the initial price ("2.5%").
type TradeAmount struct {
	Value   float64
	Percent bool
}

// ParseTradeAmount parses an amount string in either form.
func ParseTradeAmount(s string) (TradeAmount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TradeAmount{}, fmt.Errorf("trade amount is empty")
	}
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return TradeAmount{}, fmt.Errorf("invalid trade amount %q: %w", s, err)
	}
	if v <= 0 {
		return TradeAmount{}, fmt.Errorf("trade amount must be positive, got %q", s)
	}
	return TradeAmount{Value: v, Percent: percent}, nil
}

// Resolve returns the quote amount for one base safety order given the price
// the cycle was entered at.
func (a TradeAmount) Resolve(initialPrice float64) float64 {
	if a.Percent {
		return a.Value / 100 * initialPrice
	}
	return a.Value
}

// String renders the amount back in its configured form.
func (a TradeAmount) String() string {
	s := strconv.FormatFloat(a.Value, 'f', -1, 64)
	if a.Percent {
		return s + "%"
	}
	return s
}

// MarshalJSON renders the amount as its string form ("10" or "2.5%").
func (a TradeAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the string form or a bare number.
func (a *TradeAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var v float64
		if numErr := json.Unmarshal(data, &v); numErr != nil {
			return fmt.Errorf("invalid trade amount %s", data)
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	parsed, err := ParseTradeAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// BotConfig holds the adjustable parameters of one bot instance. The
// Martingale fields are ignored for SingleShot bots.
type BotConfig struct {
	OrderType         OrderType  `json:"order_type"`
	StopLossPercent   float64    `json:"stop_loss_percent"`
	TakeProfitTargets []TPTarget `json:"take_profit_targets"`

	// SingleShot only
	DuplicateBuyPolicy DuplicateBuyPolicy `json:"duplicate_buy_policy,omitempty"`

	// Martingale only
	AmountPerTrade           TradeAmount `json:"amount_per_trade,omitempty"`
	MaxDcaOrders             int         `json:"max_dca_orders,omitempty"`
	PriceDeviation           float64     `json:"price_deviation,omitempty"`            // Initial deviation below entry, in percent
	OrderSizeMultiplier      float64     `json:"order_size_multiplier,omitempty"`      // Geometric growth of safety order size
	PriceDeviationMultiplier float64     `json:"price_deviation_multiplier,omitempty"` // Geometric growth of the deviation
}

// Validate checks a config for the given variant.
func (c *BotConfig) Validate(variant BotVariant) error {
	if c.OrderType != OrderTypeMarket && c.OrderType != OrderTypeLimit {
		return fmt.Errorf("order type must be %q or %q, got %q", OrderTypeMarket, OrderTypeLimit, c.OrderType)
	}
	if c.StopLossPercent <= 0 || c.StopLossPercent >= 100 {
		return fmt.Errorf("stop loss percent must be between 0 and 100, got %v", c.StopLossPercent)
	}
	if len(c.TakeProfitTargets) == 0 {
		return fmt.Errorf("at least one take profit target is required")
	}
	for i, tp := range c.TakeProfitTargets {
		if tp.Percent <= 0 {
			return fmt.Errorf("take profit target %d: percent must be positive", i)
		}
		if tp.SellPercent <= 0 || tp.SellPercent > 100 {
			return fmt.Errorf("take profit target %d: sell percent must be in (0, 100]", i)
		}
	}
	switch variant {
	case SingleShot:
		switch c.DuplicateBuyPolicy {
		case DuplicateReject, DuplicateOverwrite, DuplicateReconcile:
		default:
			return fmt.Errorf("unknown duplicate buy policy %q", c.DuplicateBuyPolicy)
		}
	case Martingale:
		if c.AmountPerTrade.Value <= 0 {
			return fmt.Errorf("amount per trade must be positive")
		}
		if c.MaxDcaOrders <= 0 {
			return fmt.Errorf("max DCA orders must be positive, got %d", c.MaxDcaOrders)
		}
		if c.PriceDeviation <= 0 {
			return fmt.Errorf("price deviation must be positive, got %v", c.PriceDeviation)
		}
		if c.OrderSizeMultiplier <= 0 {
			return fmt.Errorf("order size multiplier must be positive, got %v", c.OrderSizeMultiplier)
		}
		if c.PriceDeviationMultiplier <= 0 {
			return fmt.Errorf("price deviation multiplier must be positive, got %v", c.PriceDeviationMultiplier)
		}
	default:
		return fmt.Errorf("unknown bot variant %q", variant)
	}
	return nil
}

// DefaultSingleShotConfig mirrors the stock Bot1 parameters: market orders,
// 10% stop loss, one full-exit target at +5%.
func DefaultSingleShotConfig() BotConfig {
	return BotConfig{
		OrderType:          OrderTypeMarket,
		StopLossPercent:    10,
		TakeProfitTargets:  []TPTarget{{Percent: 5, SellPercent: 100}},
		DuplicateBuyPolicy: DuplicateReject,
	}
}

// DefaultMartingaleConfig mirrors the stock Bot2 parameters: 20% stop loss,
// full exit at +1%, five safety orders doubling in size and deviation.
func DefaultMartingaleConfig() BotConfig {
	return BotConfig{
		OrderType:                OrderTypeMarket,
		StopLossPercent:          20,
		TakeProfitTargets:        []TPTarget{{Percent: 1, SellPercent: 100}},
		AmountPerTrade:           TradeAmount{Value: 10},
		MaxDcaOrders:             5,
		PriceDeviation:           1,
		OrderSizeMultiplier:      2,
		PriceDeviationMultiplier: 2,
	}
}
