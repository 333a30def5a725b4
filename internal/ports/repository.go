package ports

import (
	"context"

	"spotSignalBot/internal/domain"
)

// LedgerRepository persists bot ledger state so that a restart mid-cycle does
// not lose track of exchange-side exposure. Writes happen after each ledger
// mutation; FindTrades/FindCycle rehydrate the registry at startup.
type LedgerRepository interface {
	// UpsertTrade saves or replaces the trade record for (bot, symbol).
	UpsertTrade(ctx context.Context, bot string, trade *domain.Trade) error
	// DeleteTrade removes the trade record for (bot, symbol). Deleting a
	// missing record is not an error.
	DeleteTrade(ctx context.Context, bot, symbol string) error
	// FindTrades retrieves all persisted trades for a bot.
	FindTrades(ctx context.Context, bot string) ([]*domain.Trade, error)

	// UpsertCycle saves the current DCA cycle state for a bot.
	UpsertCycle(ctx context.Context, bot string, cycle *domain.DcaCycle) error
	// FindCycle retrieves the persisted cycle for a bot.
	// Returns nil, nil if none was ever saved.
	FindCycle(ctx context.Context, bot string) (*domain.DcaCycle, error)
}
