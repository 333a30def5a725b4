package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotSignalBot/internal/domain"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "bots.db"),
		Logger: noopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "bots.db")})
	assert.Error(t, err)
}

func TestRepository_TradeRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	trades, err := repo.FindTrades(ctx, "bot1")
	require.NoError(t, err)
	assert.Empty(t, trades)

	entry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trade := &domain.Trade{Symbol: "ETHUSDT", Quantity: 2, EntryPrice: 100.5, Status: domain.TradeRunning, EntryTime: entry}
	require.NoError(t, repo.UpsertTrade(ctx, "bot1", trade))

	trades, err = repo.FindTrades(ctx, "bot1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ETHUSDT", trades[0].Symbol)
	assert.Equal(t, 2.0, trades[0].Quantity)
	assert.Equal(t, 100.5, trades[0].EntryPrice)
	assert.Equal(t, domain.TradeRunning, trades[0].Status)
	assert.True(t, trades[0].EntryTime.Equal(entry))

	// Trades are scoped per bot.
	other, err := repo.FindTrades(ctx, "bot2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepository_TradeUpsertReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	trade := &domain.Trade{Symbol: "ETHUSDT", Quantity: 2, EntryPrice: 100, Status: domain.TradeRunning, EntryTime: time.Now().UTC()}
	require.NoError(t, repo.UpsertTrade(ctx, "bot1", trade))

	trade.Quantity = 5
	trade.EntryPrice = 110
	require.NoError(t, repo.UpsertTrade(ctx, "bot1", trade))

	trades, err := repo.FindTrades(ctx, "bot1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, 110.0, trades[0].EntryPrice)
}

func TestRepository_DeleteTrade(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	trade := &domain.Trade{Symbol: "ETHUSDT", Quantity: 2, EntryPrice: 100, Status: domain.TradeRunning, EntryTime: time.Now().UTC()}
	require.NoError(t, repo.UpsertTrade(ctx, "bot1", trade))
	require.NoError(t, repo.DeleteTrade(ctx, "bot1", "ETHUSDT"))

	trades, err := repo.FindTrades(ctx, "bot1")
	require.NoError(t, err)
	assert.Empty(t, trades)

	// Deleting an absent record is not an error.
	assert.NoError(t, repo.DeleteTrade(ctx, "bot1", "ETHUSDT"))
}

func TestRepository_CycleRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cycle, err := repo.FindCycle(ctx, "bot2")
	require.NoError(t, err)
	assert.Nil(t, cycle, "no record yet")

	activated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := &domain.DcaCycle{
		Status:          domain.CycleActivated,
		Symbol:          "ETHUSDT",
		EntryPrice:      100,
		TotalQty:        1.7,
		DcaOrdersPlaced: 3,
		ActivatedAt:     activated,
	}
	require.NoError(t, repo.UpsertCycle(ctx, "bot2", in))

	cycle, err = repo.FindCycle(ctx, "bot2")
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.True(t, cycle.IsActivated())
	assert.Equal(t, "ETHUSDT", cycle.Symbol)
	assert.Equal(t, 1.7, cycle.TotalQty)
	assert.Equal(t, 3, cycle.DcaOrdersPlaced)
	assert.True(t, cycle.ActivatedAt.Equal(activated))
}

func TestRepository_CycleReset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := &domain.DcaCycle{
		Status: domain.CycleActivated, Symbol: "ETHUSDT", EntryPrice: 100, TotalQty: 1.7, DcaOrdersPlaced: 3, ActivatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertCycle(ctx, "bot2", in))

	in.Reset()
	require.NoError(t, repo.UpsertCycle(ctx, "bot2", in))

	cycle, err := repo.FindCycle(ctx, "bot2")
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.False(t, cycle.IsActivated())
	assert.Empty(t, cycle.Symbol)
	assert.Zero(t, cycle.TotalQty)
	assert.True(t, cycle.ActivatedAt.IsZero(), "reset cycle stores a NULL activation time")
}

func TestRepository_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bots.db")
	ctx := context.Background()

	repo, err := NewRepository(Config{DBPath: path, Logger: noopLogger{}})
	require.NoError(t, err)
	trade := &domain.Trade{Symbol: "ETHUSDT", Quantity: 2, EntryPrice: 100, Status: domain.TradeRunning, EntryTime: time.Now().UTC()}
	require.NoError(t, repo.UpsertTrade(ctx, "bot1", trade))
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(Config{DBPath: path, Logger: noopLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	trades, err := reopened.FindTrades(ctx, "bot1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ETHUSDT", trades[0].Symbol)
}
