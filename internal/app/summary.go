package app

import (
	"context"
	"math"
)

// SummaryStats is the account overview shown by the ops endpoints.
type SummaryStats struct {
	OpenOrders    int     `json:"open_orders"`
	OpenPositions int     `json:"open_positions"`
	UnrealisedPnl float64 `json:"unrealised_pnl"`
}

// Summary aggregates open orders, open positions, and unrealised PnL. When the
// venue reports no positions (plain spot accounts), the count falls back to
// the number of non-zero wallet balances.
func (s *Service) Summary(ctx context.Context) (*SummaryStats, error) {
	callCtx, cancel := s.callCtx(ctx)
	orders, err := s.exchange.GetOpenOrders(callCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	callCtx, cancel = s.callCtx(ctx)
	positions, err := s.exchange.GetPositions(callCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	stats := &SummaryStats{OpenOrders: len(orders), OpenPositions: len(positions)}
	for _, p := range positions {
		stats.UnrealisedPnl += p.UnrealisedPnl
	}
	stats.UnrealisedPnl = math.Round(stats.UnrealisedPnl*100) / 100

	if len(positions) == 0 {
		callCtx, cancel = s.callCtx(ctx)
		balances, err := s.exchange.GetWalletBalance(callCtx)
		cancel()
		if err != nil {
			// Summary stays useful without the balance fallback.
			s.logger.Warn(ctx, "Failed to fetch wallet balances for summary", map[string]interface{}{"error": err.Error()})
			return stats, nil
		}
		for _, b := range balances {
			if b.Free+b.Locked > 0 {
				stats.OpenPositions++
			}
		}
	}
	return stats, nil
}
