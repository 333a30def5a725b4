package app

import (
	"context"
	"time"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/registry"
)

// Run executes a reconciliation sweep on a fixed interval until the context is
// cancelled. Sweeps are also triggered directly by the overview endpoint; both
// paths serialize through the registry's per-(bot, symbol) locks, so an extra
// sweep is always a no-op rather than a double exit.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info(ctx, "Reconciliation monitor started", map[string]interface{}{"interval": interval.String()})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Reconciliation monitor stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep evaluates every bot against live market state and executes exits.
// Failures are isolated per symbol: one bad fetch or sell never blocks the
// rest of the sweep.
func (s *Service) Sweep(ctx context.Context) {
	for _, bot := range s.registry.List() {
		switch bot.Variant {
		case domain.SingleShot:
			s.sweepSingleShot(ctx, bot)
		case domain.Martingale:
			s.sweepMartingale(ctx, bot)
		}
	}
}

func (s *Service) sweepSingleShot(ctx context.Context, bot *registry.Bot) {
	for _, t := range bot.Trades() {
		s.checkTrade(ctx, bot, t.Symbol)
	}
}

// checkTrade evaluates one trade against the live price and exits on the first
// matching take-profit target, or on stop-loss. The trade is re-read under the
// symbol lock so a concurrent sell signal that already closed it makes this a
// no-op.
func (s *Service) checkTrade(ctx context.Context, bot *registry.Bot, symbol string) {
	unlock := s.registry.LockSymbol(bot.ID, symbol)
	defer unlock()

	trade, ok := bot.Trade(symbol)
	if !ok || !trade.IsRunning() {
		return
	}

	callCtx, cancel := s.callCtx(ctx)
	price, err := s.exchange.GetTickerPrice(callCtx, symbol)
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch price during sweep", map[string]interface{}{"bot": bot.ID, "symbol": symbol})
		return
	}

	cfg := bot.Config()

	for _, tp := range cfg.TakeProfitTargets {
		if price >= trade.EntryPrice*(1+tp.Percent/100) {
			sellQty := trade.Quantity * (tp.SellPercent / 100)
			if _, err := s.marketSell(ctx, symbol, sellQty); err != nil {
				s.logger.Error(ctx, err, "Take-profit sell failed", map[string]interface{}{"bot": bot.ID, "symbol": symbol, "quantity": sellQty, "price": price})
				return
			}
			bot.RemoveTrade(symbol)
			s.persistTradeDelete(ctx, bot.ID, symbol)
			s.logger.Info(ctx, "Take-profit hit", map[string]interface{}{
				"bot": bot.ID, "symbol": symbol, "quantity": sellQty, "entryPrice": trade.EntryPrice, "price": price, "targetPct": tp.Percent, "reason": domain.ExitTakeProfit,
			})
			// Trade record is gone; nothing further to evaluate this tick.
			return
		}
	}

	if price <= trade.EntryPrice*(1-cfg.StopLossPercent/100) {
		if _, err := s.marketSell(ctx, symbol, trade.Quantity); err != nil {
			s.logger.Error(ctx, err, "Stop-loss sell failed", map[string]interface{}{"bot": bot.ID, "symbol": symbol, "quantity": trade.Quantity, "price": price})
			return
		}
		bot.RemoveTrade(symbol)
		s.persistTradeDelete(ctx, bot.ID, symbol)
		s.logger.Info(ctx, "Stop-loss hit", map[string]interface{}{
			"bot": bot.ID, "symbol": symbol, "quantity": trade.Quantity, "entryPrice": trade.EntryPrice, "price": price, "reason": domain.ExitStopLoss,
		})
	}
}

// sweepMartingale re-derives the DCA cycle state from live open orders and
// positions, then evaluates TP/SL. The cancel+sell+reset exit is treated as a
// unit: any exchange failure leaves the cycle Activated for the next sweep.
func (s *Service) sweepMartingale(ctx context.Context, bot *registry.Bot) {
	unlock := s.registry.LockCycle(bot.ID)
	defer unlock()

	cycle := bot.Cycle()
	if !cycle.IsActivated() || cycle.Symbol == "" {
		return
	}

	callCtx, cancel := s.callCtx(ctx)
	openOrders, err := s.exchange.GetOpenOrders(callCtx)
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch open orders during sweep", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol})
		return
	}
	callCtx, cancel = s.callCtx(ctx)
	positions, err := s.exchange.GetPositions(callCtx)
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch positions during sweep", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol})
		return
	}

	var hasOrders, hasPosition bool
	for _, o := range openOrders {
		if o.Symbol == cycle.Symbol {
			hasOrders = true
			break
		}
	}
	for _, p := range positions {
		if p.Symbol == cycle.Symbol && p.Size > 0 {
			hasPosition = true
			break
		}
	}

	// Nothing left on the exchange: the cycle was closed externally, reset
	// without issuing any call.
	if !hasOrders && !hasPosition {
		s.logger.Info(ctx, "No open orders or positions left, resetting DCA cycle", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol, "reason": domain.ExitExternalClose})
		cycle.Reset()
		bot.SetCycle(cycle)
		s.persistCycle(ctx, bot.ID, cycle)
		return
	}

	callCtx, cancel = s.callCtx(ctx)
	price, err := s.exchange.GetTickerPrice(callCtx, cycle.Symbol)
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch price during sweep", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol})
		return
	}

	cfg := bot.Config()
	tp := cfg.TakeProfitTargets[0]

	switch {
	case price >= cycle.EntryPrice*(1+tp.Percent/100):
		s.exitCycle(ctx, bot, cycle, price, domain.ExitTakeProfit)
	case price <= cycle.EntryPrice*(1-cfg.StopLossPercent/100):
		s.exitCycle(ctx, bot, cycle, price, domain.ExitStopLoss)
	}
}

func (s *Service) exitCycle(ctx context.Context, bot *registry.Bot, cycle domain.DcaCycle, price float64, reason domain.ExitReason) {
	callCtx, cancel := s.callCtx(ctx)
	err := s.exchange.CancelAllOrders(callCtx, cycle.Symbol)
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Failed to cancel safety orders, keeping cycle for retry", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol, "reason": reason})
		return
	}
	if _, err := s.marketSell(ctx, cycle.Symbol, cycle.TotalQty); err != nil {
		s.logger.Error(ctx, err, "Failed to sell cycle quantity, keeping cycle for retry", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol, "quantity": cycle.TotalQty, "reason": reason})
		return
	}

	s.logger.Info(ctx, "DCA cycle exited", map[string]interface{}{
		"bot": bot.ID, "symbol": cycle.Symbol, "quantity": cycle.TotalQty, "entryPrice": cycle.EntryPrice, "price": price, "reason": reason,
	})
	cycle.Reset()
	bot.SetCycle(cycle)
	s.persistCycle(ctx, bot.ID, cycle)
}
