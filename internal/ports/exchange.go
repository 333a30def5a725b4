package ports

import (
	"context"
	"time"

	"spotSignalBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	Price         float64   // Price of the order (0 for market orders)
	AvgPrice      float64   // Average filled price, when the exchange reports fills
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type (e.g., MARKET, LIMIT)
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// OpenOrder is one resting order on the exchange.
type OpenOrder struct {
	Symbol      string
	Side        domain.OrderSide
	OrderType   string
	Quantity    float64
	Price       float64
	OrderStatus string
}

// Position is one open exposure reported by the exchange. Only positions with
// Size > 0 are returned.
type Position struct {
	Symbol        string
	Side          domain.OrderSide
	Size          float64
	EntryPrice    float64
	UnrealisedPnl float64
}

// Balance is a non-zero wallet balance for one asset.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// ExchangeClient defines the interface for interacting with a cryptocurrency exchange.
// This abstraction allows decoupling the core bot logic from specific exchange implementations.
type ExchangeClient interface {
	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder places a market order.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*OrderResponse, error)

	// PlaceLimitOrder places a limit order at the given price.
	PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price float64) (*OrderResponse, error)

	// CancelAllOrders cancels every open order for the symbol. An empty symbol
	// cancels all open orders across symbols.
	CancelAllOrders(ctx context.Context, symbol string) error

	// GetOpenOrders retrieves all currently resting orders.
	GetOpenOrders(ctx context.Context) ([]OpenOrder, error)

	// GetPositions retrieves all open exposures with size > 0.
	GetPositions(ctx context.Context) ([]Position, error)

	// GetAvailableSymbols retrieves the symbols tradable on the venue.
	GetAvailableSymbols(ctx context.Context) ([]string, error)

	// GetWalletBalance retrieves all non-zero wallet balances.
	GetWalletBalance(ctx context.Context) ([]Balance, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error
}
