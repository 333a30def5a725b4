// Package server is the HTTP transport: the webhook entry point plus the
// operational endpoints (overview, config, panic, mode, summary, manual
// orders). It authenticates requests and translates errors; all trading
// decisions live in the app service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"spotSignalBot/internal/app"
	"spotSignalBot/internal/ports"
)

// Server wires the HTTP routes to the application service.
type Server struct {
	logger        ports.Logger
	service       *app.Service
	exchange      ports.ExchangeClient
	selector      *app.ExchangeSelector
	webhookSecret string
	panicPIN      string

	signalsSeen atomic.Int64
	startedAt   time.Time
}

// Config holds the server's dependencies.
type Config struct {
	Logger        ports.Logger
	Service       *app.Service
	Exchange      ports.ExchangeClient
	Selector      *app.ExchangeSelector // Optional; mode switching is disabled without it
	WebhookSecret string
	PanicPIN      string
}

// NewServer creates the HTTP server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Service == nil || cfg.Exchange == nil {
		return nil, fmt.Errorf("missing required dependencies for Server")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if cfg.PanicPIN == "" {
		return nil, fmt.Errorf("panic PIN is required")
	}
	return &Server{
		logger:        cfg.Logger,
		service:       cfg.Service,
		exchange:      cfg.Exchange,
		selector:      cfg.Selector,
		webhookSecret: cfg.WebhookSecret,
		panicPIN:      cfg.PanicPIN,
		startedAt:     time.Now().UTC(),
	}, nil
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/overview", s.handleOverview).Methods(http.MethodGet)
	r.HandleFunc("/bots/{id}/config", s.handleBotConfig).Methods(http.MethodPost)
	r.HandleFunc("/panic", s.handlePanic).Methods(http.MethodPost)
	r.HandleFunc("/mode", s.handleMode).Methods(http.MethodPost)
	r.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request handled", map[string]interface{}{
			"method": r.Method, "path": r.URL.Path, "duration": time.Since(start).String(),
		})
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode response body")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps application sentinels to HTTP statuses. Exchange-side
// failures come back as 502 so webhook senders can distinguish a bad request
// from a venue outage.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrInvalidParameters),
		errors.Is(err, ports.ErrInvalidRequest),
		errors.Is(err, ports.ErrUnsupportedAction):
		status = http.StatusBadRequest
	case errors.Is(err, ports.ErrUnknownBot),
		errors.Is(err, ports.ErrNoActiveTrade),
		errors.Is(err, ports.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ports.ErrDuplicateTrade),
		errors.Is(err, ports.ErrCycleActive):
		status = http.StatusConflict
	case errors.Is(err, ports.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, ports.ErrInvalidAPIKeys):
		status = http.StatusUnauthorized
	case errors.Is(err, ports.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, ports.ErrOrderPlacementFailed),
		errors.Is(err, ports.ErrOrderCancelFailed),
		errors.Is(err, ports.ErrConnectionFailed),
		errors.Is(err, ports.ErrTimeout):
		status = http.StatusBadGateway
	case errors.Is(err, ports.ErrConfigurationError):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
