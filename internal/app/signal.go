package app

import (
	"context"
	"fmt"
	"time"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"
	"spotSignalBot/internal/registry"
)

// SignalResult is the synchronous outcome returned to the signal transport.
type SignalResult struct {
	Message string `json:"message"`
}

// ApplySignal validates an inbound signal and applies it to the addressed bot.
// Ledger state for a step is only mutated after the corresponding exchange
// call succeeded; a failed order leaves the ledger untouched.
func (s *Service) ApplySignal(ctx context.Context, sig domain.Signal) (*SignalResult, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidParameters, err)
	}
	bot, ok := s.registry.Get(sig.Bot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownBot, sig.Bot)
	}

	s.logger.Info(ctx, "Applying signal", map[string]interface{}{
		"bot": sig.Bot, "action": sig.Action, "symbol": sig.Symbol, "price": sig.Price, "quantity": sig.Quantity,
	})

	switch bot.Variant {
	case domain.SingleShot:
		return s.applySingleShot(ctx, bot, sig)
	case domain.Martingale:
		return s.applyMartingale(ctx, bot, sig)
	default:
		return nil, fmt.Errorf("%w: bot %s has unknown variant %q", ports.ErrUnknownBot, bot.ID, bot.Variant)
	}
}

func (s *Service) applySingleShot(ctx context.Context, bot *registry.Bot, sig domain.Signal) (*SignalResult, error) {
	unlock := s.registry.LockSymbol(bot.ID, sig.Symbol)
	defer unlock()

	cfg := bot.Config()

	switch sig.Action {
	case domain.ActionBuy:
		if existing, ok := bot.Trade(sig.Symbol); ok {
			switch cfg.DuplicateBuyPolicy {
			case domain.DuplicateReject:
				s.logger.Warn(ctx, "Duplicate buy rejected", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol})
				return nil, fmt.Errorf("%w: %s", ports.ErrDuplicateTrade, sig.Symbol)
			case domain.DuplicateReconcile:
				// Flatten the recorded exposure before taking the new entry.
				if _, err := s.marketSell(ctx, sig.Symbol, existing.Quantity); err != nil {
					s.logger.Error(ctx, err, "Failed to reconcile prior trade before buy", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": existing.Quantity})
					return nil, err
				}
				bot.RemoveTrade(sig.Symbol)
				s.persistTradeDelete(ctx, bot.ID, sig.Symbol)
				s.logger.Info(ctx, "Prior trade reconciled", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": existing.Quantity})
			case domain.DuplicateOverwrite:
				s.logger.Warn(ctx, "Overwriting running trade; prior exposure left unreconciled", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "priorQty": existing.Quantity})
			}
		}

		if _, err := s.placeOrder(ctx, cfg.OrderType, sig.Symbol, domain.Buy, sig.Quantity, sig.Price); err != nil {
			s.logger.Error(ctx, err, "Entry order failed", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": sig.Quantity, "price": sig.Price})
			return nil, err
		}
		trade := domain.Trade{
			Symbol:     sig.Symbol,
			Quantity:   sig.Quantity,
			EntryPrice: sig.Price,
			Status:     domain.TradeRunning,
			EntryTime:  time.Now().UTC(),
		}
		bot.SetTrade(trade)
		s.persistTrade(ctx, bot.ID, trade)
		s.logger.Info(ctx, "Trade opened", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": sig.Quantity, "entryPrice": sig.Price, "orderType": cfg.OrderType})
		return &SignalResult{Message: fmt.Sprintf("Buy order placed for %v %s at %v", sig.Quantity, sig.Symbol, sig.Price)}, nil

	case domain.ActionSell:
		trade, ok := bot.Trade(sig.Symbol)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ports.ErrNoActiveTrade, sig.Symbol)
		}
		// Sell the recorded quantity, not the signal's.
		if _, err := s.placeOrder(ctx, cfg.OrderType, sig.Symbol, domain.Sell, trade.Quantity, sig.Price); err != nil {
			s.logger.Error(ctx, err, "Exit order failed", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": trade.Quantity})
			return nil, err
		}
		bot.RemoveTrade(sig.Symbol)
		s.persistTradeDelete(ctx, bot.ID, sig.Symbol)
		s.logger.Info(ctx, "Trade closed on signal", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": trade.Quantity, "reason": domain.ExitSignal})
		return &SignalResult{Message: fmt.Sprintf("Sell order placed for %v %s at %v", trade.Quantity, sig.Symbol, sig.Price)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidParameters, sig.Action)
	}
}

func (s *Service) applyMartingale(ctx context.Context, bot *registry.Bot, sig domain.Signal) (*SignalResult, error) {
	unlock := s.registry.LockCycle(bot.ID)
	defer unlock()

	switch sig.Action {
	case domain.ActionBuy:
		cycle := bot.Cycle()
		if cycle.IsActivated() {
			s.logger.Warn(ctx, "Buy rejected: DCA cycle already activated", map[string]interface{}{"bot": bot.ID, "activeSymbol": cycle.Symbol})
			return nil, fmt.Errorf("%w: active cycle on %s", ports.ErrCycleActive, cycle.Symbol)
		}

		cfg := bot.Config()
		if _, err := s.placeOrder(ctx, cfg.OrderType, sig.Symbol, domain.Buy, sig.Quantity, sig.Price); err != nil {
			s.logger.Error(ctx, err, "Initial DCA buy failed", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": sig.Quantity, "price": sig.Price})
			return nil, err
		}

		cycle = domain.DcaCycle{
			Status:          domain.CycleActivated,
			Symbol:          sig.Symbol,
			EntryPrice:      sig.Price,
			TotalQty:        sig.Quantity,
			DcaOrdersPlaced: 0,
			ActivatedAt:     time.Now().UTC(),
		}
		bot.SetCycle(cycle)
		s.persistCycle(ctx, bot.ID, cycle)
		s.logger.Info(ctx, "DCA cycle activated", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol, "quantity": sig.Quantity, "entryPrice": sig.Price})

		// The ladder is submitted synchronously before the signal returns.
		s.placeSafetyOrders(ctx, bot, sig.Symbol, sig.Price)

		return &SignalResult{Message: fmt.Sprintf("DCA started for %v %s at %v with %d safety orders", sig.Quantity, sig.Symbol, sig.Price, cfg.MaxDcaOrders)}, nil

	case domain.ActionSell:
		s.logger.Warn(ctx, "Sell signal not supported for DCA bot", map[string]interface{}{"bot": bot.ID, "symbol": sig.Symbol})
		return nil, fmt.Errorf("%w: sell is not supported for DCA bots", ports.ErrUnsupportedAction)

	default:
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidParameters, sig.Action)
	}
}
