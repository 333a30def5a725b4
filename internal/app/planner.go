package app

import (
	"context"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/registry"
)

// placeSafetyOrders submits the full DCA ladder for a freshly activated cycle.
// Called once per activation while the cycle lock is held.
//
// The ladder runs at-least-effort: every rung is attempted regardless of
// earlier failures, so a partial ladder is acceptable and DcaOrdersPlaced ends
// up equal to the number of limit orders the exchange accepted.
func (s *Service) placeSafetyOrders(ctx context.Context, bot *registry.Bot, symbol string, initialPrice float64) {
	cfg := bot.Config()
	amount := cfg.AmountPerTrade.Resolve(initialPrice)
	deviation := cfg.PriceDeviation
	sizeFactor := 1.0

	for i := 0; i < cfg.MaxDcaOrders; i++ {
		qty := amount / initialPrice * sizeFactor
		limitPrice := initialPrice * (1 - deviation/100)

		callCtx, cancel := s.callCtx(ctx)
		_, err := s.exchange.PlaceLimitOrder(callCtx, symbol, domain.Buy, qty, limitPrice)
		cancel()
		if err != nil {
			s.logger.Error(ctx, err, "Failed to place safety order", map[string]interface{}{
				"bot": bot.ID, "symbol": symbol, "order": i + 1, "quantity": qty, "price": limitPrice,
			})
		} else {
			cycle := bot.Cycle()
			cycle.TotalQty += qty
			cycle.DcaOrdersPlaced++
			bot.SetCycle(cycle)
			s.persistCycle(ctx, bot.ID, cycle)
			s.logger.Info(ctx, "Safety order placed", map[string]interface{}{
				"bot": bot.ID, "symbol": symbol, "order": i + 1, "quantity": qty, "price": limitPrice, "deviationPct": deviation,
			})
		}

		sizeFactor *= cfg.OrderSizeMultiplier
		deviation *= cfg.PriceDeviationMultiplier
	}
}
