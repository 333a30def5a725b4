package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotSignalBot/internal/domain"
)

func newSingleShot(t *testing.T, id string) *Bot {
	t.Helper()
	bot, err := NewBot(id, domain.SingleShot, domain.DefaultSingleShotConfig())
	require.NoError(t, err)
	return bot
}

func TestNewBot(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		variant domain.BotVariant
		cfg     domain.BotConfig
		wantErr bool
	}{
		{
			name:    "valid single shot",
			id:      "bot1",
			variant: domain.SingleShot,
			cfg:     domain.DefaultSingleShotConfig(),
		},
		{
			name:    "valid martingale",
			id:      "bot2",
			variant: domain.Martingale,
			cfg:     domain.DefaultMartingaleConfig(),
		},
		{
			name:    "empty id",
			variant: domain.SingleShot,
			cfg:     domain.DefaultSingleShotConfig(),
			wantErr: true,
		},
		{
			name:    "config for wrong variant",
			id:      "bot3",
			variant: domain.Martingale,
			cfg:     domain.DefaultSingleShotConfig(),
			wantErr: true,
		},
		{
			name:    "unknown variant",
			id:      "bot4",
			variant: "grid",
			cfg:     domain.DefaultSingleShotConfig(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, err := NewBot(tt.id, tt.variant, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, bot)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, bot.ID)
			}
		})
	}
}

func TestBot_ConfigIsolation(t *testing.T) {
	bot := newSingleShot(t, "bot1")

	cfg := bot.Config()
	cfg.TakeProfitTargets[0].Percent = 42
	cfg.StopLossPercent = 1

	fresh := bot.Config()
	assert.Equal(t, 5.0, fresh.TakeProfitTargets[0].Percent, "mutating a returned config must not touch the bot")
	assert.Equal(t, 10.0, fresh.StopLossPercent)
}

func TestBot_SetConfigValidates(t *testing.T) {
	bot := newSingleShot(t, "bot1")

	bad := bot.Config()
	bad.StopLossPercent = -5
	assert.Error(t, bot.SetConfig(bad))

	good := bot.Config()
	good.StopLossPercent = 15
	require.NoError(t, bot.SetConfig(good))
	assert.Equal(t, 15.0, bot.Config().StopLossPercent)
}

func TestBot_TradeLifecycle(t *testing.T) {
	bot := newSingleShot(t, "bot1")

	_, ok := bot.Trade("ETHUSDT")
	assert.False(t, ok)

	trade := domain.Trade{Symbol: "ETHUSDT", Quantity: 2, EntryPrice: 100, Status: domain.TradeRunning, EntryTime: time.Now().UTC()}
	bot.SetTrade(trade)

	got, ok := bot.Trade("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, trade.Quantity, got.Quantity)

	assert.True(t, bot.RemoveTrade("ETHUSDT"))
	assert.False(t, bot.RemoveTrade("ETHUSDT"), "second removal reports the record was already gone")
}

func TestBot_TradesSorted(t *testing.T) {
	bot := newSingleShot(t, "bot1")
	for _, sym := range []string{"SOLUSDT", "BTCUSDT", "ETHUSDT"} {
		bot.SetTrade(domain.Trade{Symbol: sym, Quantity: 1, EntryPrice: 1, Status: domain.TradeRunning})
	}

	trades := bot.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, "BTCUSDT", trades[0].Symbol)
	assert.Equal(t, "ETHUSDT", trades[1].Symbol)
	assert.Equal(t, "SOLUSDT", trades[2].Symbol)
}

func TestBot_CycleCopies(t *testing.T) {
	bot, err := NewBot("bot2", domain.Martingale, domain.DefaultMartingaleConfig())
	require.NoError(t, err)

	cycle := bot.Cycle()
	assert.False(t, cycle.IsActivated())

	cycle.Status = domain.CycleActivated
	cycle.Symbol = "ETHUSDT"
	assert.False(t, bot.Cycle().IsActivated(), "mutating the copy must not touch the bot")

	bot.SetCycle(cycle)
	assert.True(t, bot.Cycle().IsActivated())
}

func TestRegistry_AddAndGet(t *testing.T) {
	reg := New()
	bot := newSingleShot(t, "bot1")

	require.NoError(t, reg.Add(bot))
	assert.Error(t, reg.Add(bot), "duplicate registration is rejected")

	got, ok := reg.Get("bot1")
	require.True(t, ok)
	assert.Same(t, bot, got)

	_, ok = reg.Get("bot9")
	assert.False(t, ok)
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := New()
	for _, id := range []string{"bot2", "bot1", "bot3"} {
		require.NoError(t, reg.Add(newSingleShot(t, id)))
	}

	bots := reg.List()
	require.Len(t, bots, 3)
	assert.Equal(t, "bot1", bots[0].ID)
	assert.Equal(t, "bot2", bots[1].ID)
	assert.Equal(t, "bot3", bots[2].ID)
}

func TestRegistry_LockSymbol(t *testing.T) {
	reg := New()

	unlock := reg.LockSymbol("bot1", "ETHUSDT")

	acquired := make(chan struct{})
	go func() {
		u := reg.LockSymbol("bot1", "ETHUSDT")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquisition must block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}

func TestRegistry_LocksAreIndependent(t *testing.T) {
	reg := New()

	unlock := reg.LockSymbol("bot1", "ETHUSDT")
	defer unlock()

	done := make(chan struct{})
	go func() {
		u1 := reg.LockSymbol("bot1", "BTCUSDT")
		u1()
		u2 := reg.LockSymbol("bot2", "ETHUSDT")
		u2()
		u3 := reg.LockCycle("bot1")
		u3()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated keys must not contend")
	}
}
