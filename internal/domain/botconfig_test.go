package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TradeAmount
		wantErr bool
	}{
		{name: "absolute", input: "10", want: TradeAmount{Value: 10}},
		{name: "absolute decimal", input: "12.5", want: TradeAmount{Value: 12.5}},
		{name: "percent", input: "2.5%", want: TradeAmount{Value: 2.5, Percent: true}},
		{name: "whitespace", input: " 10 ", want: TradeAmount{Value: 10}},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "ten", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "negative percent", input: "-5%", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTradeAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTradeAmount_Resolve(t *testing.T) {
	assert.Equal(t, 10.0, TradeAmount{Value: 10}.Resolve(2000))
	assert.Equal(t, 50.0, TradeAmount{Value: 2.5, Percent: true}.Resolve(2000))
}

func TestTradeAmount_JSON(t *testing.T) {
	data, err := json.Marshal(TradeAmount{Value: 2.5, Percent: true})
	require.NoError(t, err)
	assert.Equal(t, `"2.5%"`, string(data))

	var a TradeAmount
	require.NoError(t, json.Unmarshal([]byte(`"10"`), &a))
	assert.Equal(t, TradeAmount{Value: 10}, a)

	require.NoError(t, json.Unmarshal([]byte(`12.5`), &a))
	assert.Equal(t, TradeAmount{Value: 12.5}, a)

	assert.Error(t, json.Unmarshal([]byte(`"ten"`), &a))
}

func TestBotConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BotConfig)
		variant BotVariant
		wantErr bool
	}{
		{
			name:    "default single shot",
			variant: SingleShot,
		},
		{
			name:    "default martingale",
			variant: Martingale,
		},
		{
			name:    "bad order type",
			variant: SingleShot,
			mutate:  func(c *BotConfig) { c.OrderType = "stop" },
			wantErr: true,
		},
		{
			name:    "stop loss out of range",
			variant: SingleShot,
			mutate:  func(c *BotConfig) { c.StopLossPercent = 100 },
			wantErr: true,
		},
		{
			name:    "no take profit targets",
			variant: SingleShot,
			mutate:  func(c *BotConfig) { c.TakeProfitTargets = nil },
			wantErr: true,
		},
		{
			name:    "sell percent above 100",
			variant: SingleShot,
			mutate:  func(c *BotConfig) { c.TakeProfitTargets[0].SellPercent = 150 },
			wantErr: true,
		},
		{
			name:    "bad duplicate policy",
			variant: SingleShot,
			mutate:  func(c *BotConfig) { c.DuplicateBuyPolicy = "ignore" },
			wantErr: true,
		},
		{
			name:    "martingale zero amount",
			variant: Martingale,
			mutate:  func(c *BotConfig) { c.AmountPerTrade = TradeAmount{} },
			wantErr: true,
		},
		{
			name:    "martingale zero ladder",
			variant: Martingale,
			mutate:  func(c *BotConfig) { c.MaxDcaOrders = 0 },
			wantErr: true,
		},
		{
			name:    "martingale zero deviation",
			variant: Martingale,
			mutate:  func(c *BotConfig) { c.PriceDeviation = 0 },
			wantErr: true,
		},
		{
			name:    "martingale zero size multiplier",
			variant: Martingale,
			mutate:  func(c *BotConfig) { c.OrderSizeMultiplier = 0 },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg BotConfig
			if tt.variant == Martingale {
				cfg = DefaultMartingaleConfig()
			} else {
				cfg = DefaultSingleShotConfig()
			}
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate(tt.variant)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignal_Validate(t *testing.T) {
	valid := Signal{Bot: "bot1", Action: ActionBuy, Symbol: "ETHUSDT", Price: 100, Quantity: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Signal)
	}{
		{name: "missing bot", mutate: func(s *Signal) { s.Bot = "" }},
		{name: "missing symbol", mutate: func(s *Signal) { s.Symbol = "" }},
		{name: "bad action", mutate: func(s *Signal) { s.Action = "hold" }},
		{name: "zero price", mutate: func(s *Signal) { s.Price = 0 }},
		{name: "negative quantity", mutate: func(s *Signal) { s.Quantity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
