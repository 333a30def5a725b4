package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"spotSignalBot/internal/app"
	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"
)

type webhookRequest struct {
	Secret string `json:"secret"`
	domain.Signal
}

// handleWebhook is the signal entry point. The shared secret travels in the
// JSON body because webhook senders like TradingView cannot set headers.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.webhookSecret)) != 1 {
		s.logger.Warn(ctx, "Webhook rejected: bad secret", map[string]interface{}{"remote": r.RemoteAddr})
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid secret"})
		return
	}

	s.signalsSeen.Add(1)

	if err := req.Signal.Validate(); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ports.ErrInvalidParameters, err))
		return
	}
	if err := s.checkSymbolListed(r, req.Signal.Symbol); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.service.ApplySignal(ctx, req.Signal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// checkSymbolListed rejects signals for symbols the venue does not trade. A
// failed listing fetch only logs; an exchange hiccup must not drop signals for
// symbols that were valid a minute ago.
func (s *Server) checkSymbolListed(r *http.Request, symbol string) error {
	ctx := r.Context()
	symbols, err := s.exchange.GetAvailableSymbols(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Symbol pre-check skipped: failed to fetch listings", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return nil
	}
	for _, sym := range symbols {
		if sym == symbol {
			return nil
		}
	}
	return fmt.Errorf("%w: symbol %s is not tradable on this venue", ports.ErrInvalidParameters, symbol)
}

type botOverview struct {
	ID      string            `json:"id"`
	Variant domain.BotVariant `json:"variant"`
	Config  domain.BotConfig  `json:"config"`
	Trades  []domain.Trade    `json:"trades,omitempty"`
	Cycle   *domain.DcaCycle  `json:"cycle,omitempty"`
}

type overviewResponse struct {
	Mode        string            `json:"mode"`
	Summary     *app.SummaryStats `json:"summary"`
	OpenOrders  []ports.OpenOrder `json:"open_orders"`
	Positions   []ports.Position  `json:"positions"`
	Bots        []botOverview     `json:"bots"`
	SignalsSeen int64             `json:"signals_seen"`
}

// handleOverview runs a reconciliation sweep, then reports live exchange state
// and the ledger of every bot.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.service.Sweep(ctx)

	orders, err := s.exchange.GetOpenOrders(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	positions, err := s.exchange.GetPositions(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.service.Summary(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := overviewResponse{
		Mode:        s.mode(),
		Summary:     summary,
		OpenOrders:  orders,
		Positions:   positions,
		SignalsSeen: s.signalsSeen.Load(),
	}
	for _, bot := range s.service.Registry().List() {
		bo := botOverview{ID: bot.ID, Variant: bot.Variant, Config: bot.Config()}
		switch bot.Variant {
		case domain.SingleShot:
			bo.Trades = bot.Trades()
		case domain.Martingale:
			cycle := bot.Cycle()
			bo.Cycle = &cycle
		}
		resp.Bots = append(resp.Bots, bo)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) mode() string {
	if s.selector == nil {
		return string(app.ModeTestnet)
	}
	return string(s.selector.Mode())
}

// handleBotConfig updates a bot's parameters. The request body is merged over
// the current configuration, so callers only send the fields they change.
func (s *Server) handleBotConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	bot, ok := s.service.Registry().Get(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: %s", ports.ErrUnknownBot, id))
		return
	}

	cfg := bot.Config()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := bot.SetConfig(cfg); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ports.ErrInvalidParameters, err))
		return
	}
	s.logger.Info(ctx, "Bot configuration updated", map[string]interface{}{"bot": id})
	s.writeJSON(w, http.StatusOK, bot.Config())
}

type panicRequest struct {
	PIN string `json:"pin"`
}

// handlePanic cancels every open order and clears all bot state.
func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req panicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(s.panicPIN)) != 1 {
		s.logger.Warn(ctx, "Panic rejected: bad PIN", map[string]interface{}{"remote": r.RemoteAddr})
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid PIN"})
		return
	}

	if err := s.service.PanicReset(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "all orders cancelled and bots reset"})
}

type modeRequest struct {
	Mode string `json:"mode"`
	PIN  string `json:"pin"`
}

// handleMode switches between testnet and live routing. Ledger state is reset
// on every switch because entries recorded against one venue are meaningless
// on the other.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.selector == nil {
		s.writeError(w, fmt.Errorf("%w: mode switching is not configured", ports.ErrConfigurationError))
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(s.panicPIN)) != 1 {
		s.logger.Warn(ctx, "Mode switch rejected: bad PIN", map[string]interface{}{"remote": r.RemoteAddr})
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid PIN"})
		return
	}

	if err := s.selector.Switch(app.Mode(req.Mode)); err != nil {
		s.writeError(w, err)
		return
	}
	s.service.ResetAllBots(ctx, domain.ExitModeSwitch)
	s.logger.Warn(ctx, "Exchange mode switched", map[string]interface{}{"mode": req.Mode})
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

// handleSummary reports account-level statistics without running a sweep.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type placeOrderRequest struct {
	Secret    string           `json:"secret"`
	Symbol    string           `json:"symbol"`
	Side      domain.OrderSide `json:"side"`
	OrderType domain.OrderType `json:"order_type"`
	Quantity  float64          `json:"quantity"`
	Price     float64          `json:"price"`
}

// handlePlaceOrder places a manual order outside any bot ledger.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.webhookSecret)) != 1 {
		s.logger.Warn(ctx, "Manual order rejected: bad secret", map[string]interface{}{"remote": r.RemoteAddr})
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "invalid secret"})
		return
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	resp, err := s.service.PlaceOrder(ctx, orderType, req.Symbol, req.Side, req.Quantity, req.Price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": resp.OrderID,
		"symbol":   resp.Symbol,
		"status":   resp.Status,
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Mode   string `json:"mode"`
}

// handleHealth pings the active exchange endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.exchange.Ping(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		Mode:   s.mode(),
	})
}
