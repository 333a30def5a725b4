package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType selects how entry and exit orders are placed.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// BotVariant distinguishes the two strategy engines.
type BotVariant string

const (
	// SingleShot holds one take-profit/stop-loss trade per symbol.
	SingleShot BotVariant = "single_shot"
	// Martingale runs a single DCA cycle with laddered safety orders.
	Martingale BotVariant = "martingale"
)

// TradeStatus is the lifecycle state of a SingleShot trade. Running is the
// only active state; a trade is removed from the ledger on any exit.
type TradeStatus string

const (
	TradeRunning TradeStatus = "Running"
)

// CycleStatus is the binary state of a Martingale DCA cycle.
type CycleStatus string

const (
	CycleNotActivated CycleStatus = "Not Activated"
	CycleActivated    CycleStatus = "Activated"
)

// SignalAction is the requested direction of an inbound signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
)

// DuplicateBuyPolicy decides what a SingleShot bot does with a buy signal
// for a symbol that already has a running trade.
type DuplicateBuyPolicy string

const (
	// DuplicateReject refuses the second buy and keeps the existing trade.
	DuplicateReject DuplicateBuyPolicy = "reject"
	// DuplicateOverwrite places the new order and replaces the trade record,
	// leaving the prior exposure unreconciled on the exchange.
	DuplicateOverwrite DuplicateBuyPolicy = "overwrite"
	// DuplicateReconcile sells the recorded prior quantity at market before
	// placing the new entry order.
	DuplicateReconcile DuplicateBuyPolicy = "reconcile"
)

// ExitReason indicates why a trade or cycle was closed.
type ExitReason string

const (
	ExitTakeProfit    ExitReason = "TP"
	ExitStopLoss      ExitReason = "SL"
	ExitSignal        ExitReason = "SIGNAL"
	ExitExternalClose ExitReason = "EXTERNAL_CLOSE"
	ExitPanic         ExitReason = "PANIC"
	ExitModeSwitch    ExitReason = "MODE_SWITCH"
)
