package app

import (
	"context"
	"fmt"
	"time"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"
	"spotSignalBot/internal/registry"
)

const defaultCallTimeout = 10 * time.Second

// Service hosts the signal processor, the safety-order planner, and the
// reconciliation monitor. All ledger access goes through the injected registry
// under its per-(bot, symbol) operation locks; all exchange calls run under a
// bounded timeout.
type Service struct {
	logger      ports.Logger
	exchange    ports.ExchangeClient
	registry    *registry.Registry
	ledger      ports.LedgerRepository
	callTimeout time.Duration
}

// Config holds the dependencies and tuning of the service.
type Config struct {
	Logger      ports.Logger
	Exchange    ports.ExchangeClient
	Registry    *registry.Registry
	Ledger      ports.LedgerRepository
	CallTimeout time.Duration // Per exchange call; defaults to 10s
}

// NewService creates the application service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Logger == nil || cfg.Exchange == nil || cfg.Registry == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("missing required dependencies for Service")
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Service{
		logger:      cfg.Logger,
		exchange:    cfg.Exchange,
		registry:    cfg.Registry,
		ledger:      cfg.Ledger,
		callTimeout: timeout,
	}, nil
}

// Registry exposes the bot registry for the transport layer (config reads and
// updates go through it directly).
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// callCtx bounds a single exchange call. A timeout surfaces as an ordinary
// exchange error through the adapter's error mapping.
func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.callTimeout)
}

// placeOrder issues a buy or sell per the bot's configured order type.
func (s *Service) placeOrder(ctx context.Context, orderType domain.OrderType, symbol string, side domain.OrderSide, qty, price float64) (*ports.OrderResponse, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if orderType == domain.OrderTypeLimit {
		return s.exchange.PlaceLimitOrder(callCtx, symbol, side, qty, price)
	}
	return s.exchange.PlaceMarketOrder(callCtx, symbol, side, qty)
}

// marketSell issues an unconditional market sell, used by exits.
func (s *Service) marketSell(ctx context.Context, symbol string, qty float64) (*ports.OrderResponse, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.exchange.PlaceMarketOrder(callCtx, symbol, domain.Sell, qty)
}

// Persistence is write-through and best-effort: a failed write must not undo
// an exit that already executed on the exchange, so failures are logged and
// the in-memory ledger stays authoritative until the next successful write.

func (s *Service) persistTrade(ctx context.Context, bot string, trade domain.Trade) {
	if err := s.ledger.UpsertTrade(ctx, bot, &trade); err != nil {
		s.logger.Error(ctx, err, "Failed to persist trade record", map[string]interface{}{"bot": bot, "symbol": trade.Symbol})
	}
}

func (s *Service) persistTradeDelete(ctx context.Context, bot, symbol string) {
	if err := s.ledger.DeleteTrade(ctx, bot, symbol); err != nil {
		s.logger.Error(ctx, err, "Failed to delete persisted trade record", map[string]interface{}{"bot": bot, "symbol": symbol})
	}
}

func (s *Service) persistCycle(ctx context.Context, bot string, cycle domain.DcaCycle) {
	if err := s.ledger.UpsertCycle(ctx, bot, &cycle); err != nil {
		s.logger.Error(ctx, err, "Failed to persist cycle state", map[string]interface{}{"bot": bot, "symbol": cycle.Symbol, "status": cycle.Status})
	}
}

// PlaceOrder issues a one-off manual order outside any bot ledger. The monitor
// never tracks it; the caller owns the resulting exposure.
func (s *Service) PlaceOrder(ctx context.Context, orderType domain.OrderType, symbol string, side domain.OrderSide, qty, price float64) (*ports.OrderResponse, error) {
	if symbol == "" || qty <= 0 {
		return nil, fmt.Errorf("%w: symbol and positive quantity are required", ports.ErrInvalidParameters)
	}
	if side != domain.Buy && side != domain.Sell {
		return nil, fmt.Errorf("%w: side must be %q or %q", ports.ErrInvalidParameters, domain.Buy, domain.Sell)
	}
	if orderType == domain.OrderTypeLimit && price <= 0 {
		return nil, fmt.Errorf("%w: limit orders require a positive price", ports.ErrInvalidParameters)
	}
	resp, err := s.placeOrder(ctx, orderType, symbol, side, qty, price)
	if err != nil {
		s.logger.Error(ctx, err, "Manual order failed", map[string]interface{}{"symbol": symbol, "side": side, "quantity": qty, "orderType": orderType})
		return nil, err
	}
	s.logger.Info(ctx, "Manual order placed", map[string]interface{}{"symbol": symbol, "side": side, "quantity": qty, "orderType": orderType, "orderID": resp.OrderID})
	return resp, nil
}

// Rehydrate loads persisted ledger state into the registry. Called once at
// startup before monitoring begins, so exchange-side limit orders left by a
// previous process are reconciled instead of orphaned.
func (s *Service) Rehydrate(ctx context.Context) error {
	for _, bot := range s.registry.List() {
		switch bot.Variant {
		case domain.SingleShot:
			trades, err := s.ledger.FindTrades(ctx, bot.ID)
			if err != nil {
				return fmt.Errorf("rehydrate trades for %s: %w", bot.ID, err)
			}
			for _, t := range trades {
				bot.SetTrade(*t)
			}
			if len(trades) > 0 {
				s.logger.Info(ctx, "Restored persisted trades", map[string]interface{}{"bot": bot.ID, "count": len(trades)})
			}
		case domain.Martingale:
			cycle, err := s.ledger.FindCycle(ctx, bot.ID)
			if err != nil {
				return fmt.Errorf("rehydrate cycle for %s: %w", bot.ID, err)
			}
			if cycle != nil {
				bot.SetCycle(*cycle)
				if cycle.IsActivated() {
					s.logger.Info(ctx, "Restored activated DCA cycle", map[string]interface{}{"bot": bot.ID, "symbol": cycle.Symbol, "totalQty": cycle.TotalQty})
				}
			}
		}
	}
	return nil
}

// PanicReset cancels every open order on the exchange and clears all bot
// state. The ledger is only reset if the cancel succeeded.
func (s *Service) PanicReset(ctx context.Context) error {
	callCtx, cancel := s.callCtx(ctx)
	err := s.exchange.CancelAllOrders(callCtx, "")
	cancel()
	if err != nil {
		s.logger.Error(ctx, err, "Panic: failed to cancel open orders")
		return err
	}
	s.ResetAllBots(ctx, domain.ExitPanic)
	s.logger.Warn(ctx, "Panic executed: all orders cancelled and bots reset")
	return nil
}

// ResetAllBots clears every trade and cycle without touching the exchange.
// Used by the panic path (after cancel-all) and by mode switches.
func (s *Service) ResetAllBots(ctx context.Context, reason domain.ExitReason) {
	for _, bot := range s.registry.List() {
		switch bot.Variant {
		case domain.SingleShot:
			for _, t := range bot.Trades() {
				unlock := s.registry.LockSymbol(bot.ID, t.Symbol)
				if bot.RemoveTrade(t.Symbol) {
					s.persistTradeDelete(ctx, bot.ID, t.Symbol)
					s.logger.Info(ctx, "Trade cleared", map[string]interface{}{"bot": bot.ID, "symbol": t.Symbol, "reason": reason})
				}
				unlock()
			}
		case domain.Martingale:
			unlock := s.registry.LockCycle(bot.ID)
			cycle := bot.Cycle()
			if cycle.IsActivated() {
				cycle.Reset()
				bot.SetCycle(cycle)
				s.persistCycle(ctx, bot.ID, cycle)
				s.logger.Info(ctx, "DCA cycle cleared", map[string]interface{}{"bot": bot.ID, "reason": reason})
			}
			unlock()
		}
	}
}
