package app

import (
	"context"
	"fmt"
	"sync"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"
)

// Mode names the exchange environment requests are routed to.
type Mode string

const (
	ModeTestnet Mode = "testnet"
	ModeLive    Mode = "live"
)

// ExchangeSelector is a swappable ports.ExchangeClient that routes every call
// to the active mode's client. The live client is optional; switching to live
// without credentials fails.
type ExchangeSelector struct {
	mu      sync.RWMutex
	mode    Mode
	testnet ports.ExchangeClient
	live    ports.ExchangeClient
}

// NewExchangeSelector starts in testnet mode. A nil live client is allowed.
func NewExchangeSelector(testnet, live ports.ExchangeClient) (*ExchangeSelector, error) {
	if testnet == nil {
		return nil, fmt.Errorf("testnet exchange client is required")
	}
	return &ExchangeSelector{mode: ModeTestnet, testnet: testnet, live: live}, nil
}

// Mode returns the active mode.
func (e *ExchangeSelector) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Switch changes the active mode. Callers must reset bot state afterwards:
// ledger entries recorded against one venue are meaningless on the other.
func (e *ExchangeSelector) Switch(mode Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch mode {
	case ModeTestnet:
		e.mode = ModeTestnet
	case ModeLive:
		if e.live == nil {
			return fmt.Errorf("%w: live API credentials not configured", ports.ErrConfigurationError)
		}
		e.mode = ModeLive
	default:
		return fmt.Errorf("%w: unknown mode %q", ports.ErrInvalidRequest, mode)
	}
	return nil
}

func (e *ExchangeSelector) active() ports.ExchangeClient {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.mode == ModeLive && e.live != nil {
		return e.live
	}
	return e.testnet
}

func (e *ExchangeSelector) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return e.active().GetTickerPrice(ctx, symbol)
}

func (e *ExchangeSelector) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResponse, error) {
	return e.active().PlaceMarketOrder(ctx, symbol, side, quantity)
}

func (e *ExchangeSelector) PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price float64) (*ports.OrderResponse, error) {
	return e.active().PlaceLimitOrder(ctx, symbol, side, quantity, price)
}

func (e *ExchangeSelector) CancelAllOrders(ctx context.Context, symbol string) error {
	return e.active().CancelAllOrders(ctx, symbol)
}

func (e *ExchangeSelector) GetOpenOrders(ctx context.Context) ([]ports.OpenOrder, error) {
	return e.active().GetOpenOrders(ctx)
}

func (e *ExchangeSelector) GetPositions(ctx context.Context) ([]ports.Position, error) {
	return e.active().GetPositions(ctx)
}

func (e *ExchangeSelector) GetAvailableSymbols(ctx context.Context) ([]string, error) {
	return e.active().GetAvailableSymbols(ctx)
}

func (e *ExchangeSelector) GetWalletBalance(ctx context.Context) ([]ports.Balance, error) {
	return e.active().GetWalletBalance(ctx)
}

func (e *ExchangeSelector) Ping(ctx context.Context) error {
	return e.active().Ping(ctx)
}
