package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// quoteAssets are treated as cash when deriving positions from spot balances.
var quoteAssets = map[string]bool{
	"USDT": true, "USDC": true, "BUSD": true, "FDUSD": true, "TUSD": true,
}

// Client implements the ports.ExchangeClient interface for Binance spot using
// the go-binance library.
type Client struct {
	spot   *binance.Client
	logger ports.Logger
	quote  string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	QuoteAsset string // Asset positions are quoted in; defaults to USDT
}

// New creates a new Binance spot client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	quote := cfg.QuoteAsset
	if quote == "" {
		quote = "USDT"
	}

	return &Client{spot: client, logger: cfg.Logger, quote: quote}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1112, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API key format / permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -3005, -2019: // Insufficient balance
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s", symbol), op)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", prices[0].Price, err), op)
	}
	return price, nil
}

// PlaceMarketOrder places a spot market order.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResponse, error) {
	op := "PlaceMarketOrder"
	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(formatFloat(quantity)).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity, "orderID": resp.OrderID, "avgPrice": resp.AvgPrice})
	return resp, nil
}

// PlaceLimitOrder places a spot limit order (GTC).
func (c *Client) PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price float64) (*ports.OrderResponse, error) {
	op := "PlaceLimitOrder"
	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(formatFloat(quantity)).
		Price(formatFloat(price)).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity, "price": price, "orderID": resp.OrderID})
	return resp, nil
}

// CancelAllOrders cancels every open order for the symbol. With an empty
// symbol it looks up all open orders and cancels per symbol, since the spot
// endpoint requires one.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	op := "CancelAllOrders"

	symbols := []string{symbol}
	if symbol == "" {
		orders, err := c.spot.NewListOpenOrdersService().Do(ctx)
		if err != nil {
			return c.handleError(ctx, err, op)
		}
		seen := make(map[string]bool)
		symbols = symbols[:0]
		for _, o := range orders {
			if !seen[o.Symbol] {
				seen[o.Symbol] = true
				symbols = append(symbols, o.Symbol)
			}
		}
	}

	for _, sym := range symbols {
		if _, err := c.spot.NewCancelOpenOrdersService().Symbol(sym).Do(ctx); err != nil {
			// -2011 with no open orders just means there was nothing to cancel.
			var apiErr *common.APIError
			if errors.As(err, &apiErr) && apiErr.Code == -2011 {
				c.logger.Debug(ctx, op+": no open orders to cancel", map[string]interface{}{"symbol": sym})
				continue
			}
			return c.handleError(ctx, err, op)
		}
		c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": sym})
	}
	return nil
}

// GetOpenOrders retrieves all resting orders across symbols.
func (c *Client) GetOpenOrders(ctx context.Context) ([]ports.OpenOrder, error) {
	op := "GetOpenOrders"
	orders, err := c.spot.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	out := make([]ports.OpenOrder, 0, len(orders))
	for _, o := range orders {
		qty, _ := strconv.ParseFloat(o.OrigQuantity, 64)
		price, _ := strconv.ParseFloat(o.Price, 64)
		out = append(out, ports.OpenOrder{
			Symbol:      o.Symbol,
			Side:        domain.OrderSide(o.Side),
			OrderType:   string(o.Type),
			Quantity:    qty,
			Price:       price,
			OrderStatus: string(o.Status),
		})
	}
	return out, nil
}

// GetPositions derives open exposures from spot balances: every non-quote
// asset with a non-zero total becomes a position against the quote asset.
// Spot accounts carry no entry price or unrealised PnL, so those stay zero.
func (c *Client) GetPositions(ctx context.Context) ([]ports.Position, error) {
	op := "GetPositions"
	account, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	out := make([]ports.Position, 0)
	for _, b := range account.Balances {
		if quoteAssets[b.Asset] {
			continue
		}
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		size := free + locked
		if size <= 0 {
			continue
		}
		out = append(out, ports.Position{
			Symbol: b.Asset + c.quote,
			Side:   domain.Buy,
			Size:   size,
		})
	}
	return out, nil
}

// GetAvailableSymbols retrieves the tradable spot symbols.
func (c *Client) GetAvailableSymbols(ctx context.Context) ([]string, error) {
	op := "GetAvailableSymbols"
	info, err := c.spot.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

// GetWalletBalance retrieves all non-zero spot balances.
func (c *Client) GetWalletBalance(ctx context.Context) ([]ports.Balance, error) {
	op := "GetWalletBalance"
	account, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	out := make([]ports.Balance, 0)
	for _, b := range account.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		if free+locked > 0 {
			out = append(out, ports.Balance{Asset: b.Asset, Free: free, Locked: locked})
		}
	}
	return out, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spot.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// --- Translation Helpers ---

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func translateOrderResponse(order *binance.CreateOrderResponse) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	price, _ := strconv.ParseFloat(order.Price, 64)
	origQty, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	// Spot fills carry the actual execution prices; average them by quantity.
	var avgPrice float64
	if len(order.Fills) > 0 {
		var quote, qty float64
		for _, f := range order.Fills {
			fp, _ := strconv.ParseFloat(f.Price, 64)
			fq, _ := strconv.ParseFloat(f.Quantity, 64)
			quote += fp * fq
			qty += fq
		}
		if qty > 0 {
			avgPrice = quote / qty
		}
	}

	return &ports.OrderResponse{
		OrderID:       order.OrderID,
		Symbol:        order.Symbol,
		ClientOrderID: order.ClientOrderID,
		Price:         price,
		AvgPrice:      avgPrice,
		OrigQuantity:  origQty,
		ExecutedQty:   execQty,
		Status:        string(order.Status),
		Type:          string(order.Type),
		Side:          string(order.Side),
		Timestamp:     time.UnixMilli(order.TransactTime),
	}
}
