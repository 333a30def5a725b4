// Package registry owns the position ledger: every Trade and DcaCycle lives
// inside a Bot held by the Registry, and all mutation goes through it. The
// registry is constructed in main and passed to the services explicitly; there
// is no package-level bot state.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"spotSignalBot/internal/domain"
)

// Bot is one strategy engine instance together with its ledger entries.
// All accessors copy values in and out so callers never alias ledger state.
type Bot struct {
	ID      string
	Variant domain.BotVariant

	mu     sync.RWMutex
	config domain.BotConfig
	trades map[string]domain.Trade // SingleShot ledger, keyed by symbol
	cycle  domain.DcaCycle         // Martingale ledger
}

// NewBot creates a bot with a validated configuration.
func NewBot(id string, variant domain.BotVariant, cfg domain.BotConfig) (*Bot, error) {
	if id == "" {
		return nil, fmt.Errorf("bot id is required")
	}
	if err := cfg.Validate(variant); err != nil {
		return nil, fmt.Errorf("bot %s: %w", id, err)
	}
	return &Bot{
		ID:      id,
		Variant: variant,
		config:  cfg,
		trades:  make(map[string]domain.Trade),
		cycle:   domain.DcaCycle{Status: domain.CycleNotActivated},
	}, nil
}

// Config returns a copy of the bot's current configuration.
func (b *Bot) Config() domain.BotConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cfg := b.config
	cfg.TakeProfitTargets = append([]domain.TPTarget(nil), b.config.TakeProfitTargets...)
	return cfg
}

// SetConfig replaces the bot's configuration after validating it.
func (b *Bot) SetConfig(cfg domain.BotConfig) error {
	if err := cfg.Validate(b.Variant); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
	return nil
}

// Trade returns the trade recorded for a symbol, if any.
func (b *Bot) Trade(symbol string) (domain.Trade, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trades[symbol]
	return t, ok
}

// SetTrade creates or replaces the trade record for its symbol.
func (b *Bot) SetTrade(t domain.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades[t.Symbol] = t
}

// RemoveTrade deletes the trade record for a symbol and reports whether it
// existed. A false return means another path already closed it.
func (b *Bot) RemoveTrade(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.trades[symbol]
	delete(b.trades, symbol)
	return ok
}

// Trades returns a snapshot of all trade records, sorted by symbol so sweeps
// are deterministic.
func (b *Bot) Trades() []domain.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Trade, 0, len(b.trades))
	for _, t := range b.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClearTrades removes every trade record (panic reset, mode switch).
func (b *Bot) ClearTrades() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades = make(map[string]domain.Trade)
}

// Cycle returns a copy of the bot's DCA cycle.
func (b *Bot) Cycle() domain.DcaCycle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cycle
}

// SetCycle replaces the bot's DCA cycle state.
func (b *Bot) SetCycle(c domain.DcaCycle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cycle = c
}

// Registry is the process-wide set of bots plus the per-(bot, symbol)
// operation locks that serialize signal processing against monitor sweeps.
type Registry struct {
	mu    sync.Mutex
	bots  map[string]*Bot
	locks map[string]*sync.Mutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		bots:  make(map[string]*Bot),
		locks: make(map[string]*sync.Mutex),
	}
}

// Add registers a bot. Adding a duplicate ID is an error.
func (r *Registry) Add(bot *Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bots[bot.ID]; exists {
		return fmt.Errorf("bot %s is already registered", bot.ID)
	}
	r.bots[bot.ID] = bot
	return nil
}

// Get looks up a bot by ID.
func (r *Registry) Get(id string) (*Bot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	return b, ok
}

// List returns all bots sorted by ID.
func (r *Registry) List() []*Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LockSymbol acquires the operation lock for (bot, symbol) and returns the
// unlock function. At most one signal or monitor operation may be in flight
// per key; callers must re-check ledger state after acquiring the lock.
func (r *Registry) LockSymbol(botID, symbol string) func() {
	mu := r.lockFor(botID + "\x00" + symbol)
	mu.Lock()
	return mu.Unlock
}

// LockCycle acquires the operation lock guarding a Martingale bot's cycle.
func (r *Registry) LockCycle(botID string) func() {
	return r.LockSymbol(botID, "\x00cycle")
}

func (r *Registry) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	mu, ok := r.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[key] = mu
	}
	return mu
}
