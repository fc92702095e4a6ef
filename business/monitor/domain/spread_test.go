package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSpread_Close(t *testing.T) {
	detected := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := Spread{ID: 1, Pair: "ETH/USDC", DetectedAt: detected}
	if !s.IsOpen() {
		t.Fatal("new spread should be open")
	}

	s.Close(detected.Add(90*time.Second + 400*time.Millisecond))

	if s.IsOpen() {
		t.Fatal("closed spread reported open")
	}
	if s.DurationSecs == nil || *s.DurationSecs != 90 {
		t.Errorf("DurationSecs = %v, want 90", s.DurationSecs)
	}

	// Duration rounds to the nearest whole second.
	s2 := Spread{ID: 2, DetectedAt: detected}
	s2.Close(detected.Add(90*time.Second + 600*time.Millisecond))
	if *s2.DurationSecs != 91 {
		t.Errorf("DurationSecs = %d, want 91", *s2.DurationSecs)
	}
}

func TestSpread_CloseIsTerminal(t *testing.T) {
	detected := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Spread{ID: 1, DetectedAt: detected}

	first := detected.Add(time.Minute)
	s.Close(first)
	s.Close(detected.Add(time.Hour))

	if !s.ClosedAt.Equal(first) {
		t.Errorf("ClosedAt = %v, want %v", s.ClosedAt, first)
	}
	if *s.DurationSecs != 60 {
		t.Errorf("DurationSecs = %d, want 60", *s.DurationSecs)
	}
}

func TestSpread_Actionable(t *testing.T) {
	net := decimal.RequireFromString("0.4")

	tests := []struct {
		name   string
		spread Spread
		want   bool
	}{
		{
			name:   "net_cleared_low_friction",
			spread: Spread{NetSpreadPct: &net},
			want:   true,
		},
		{
			name:   "net_cleared_high_friction",
			spread: Spread{NetSpreadPct: &net, HighFriction: true},
			want:   false,
		},
		{
			name:   "net_not_cleared",
			spread: Spread{},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spread.Actionable(); got != tt.want {
				t.Errorf("Actionable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayBucket(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 6, 2, 1, 30, 0, 0, loc) // 2025-06-01T20:30Z
	got := DayBucket(in)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DayBucket = %v, want %v", got, want)
	}
}

func TestNewSimTrade_Profit(t *testing.T) {
	spread := Spread{ID: 7, Pair: "ETH/USDC", BuyChain: "arbitrum", SellChain: "polygon"}

	trade := NewSimTrade(
		spread,
		decimal.RequireFromString("10000"),
		decimal.RequireFromString("4"),
		decimal.RequireFromString("10050"),
		decimal.RequireFromString("0.30"),
		decimal.RequireFromString("0.30"),
		time.Now(),
	)

	if trade.SpreadID != 7 {
		t.Errorf("SpreadID = %d, want 7", trade.SpreadID)
	}
	wantProfit := decimal.RequireFromString("49.4")
	if !trade.NetProfitUSD.Equal(wantProfit) {
		t.Errorf("NetProfitUSD = %s, want %s", trade.NetProfitUSD, wantProfit)
	}
	wantPct := decimal.RequireFromString("0.494")
	if !trade.ProfitPct.Equal(wantPct) {
		t.Errorf("ProfitPct = %s, want %s", trade.ProfitPct, wantPct)
	}
}

func TestNewSimTrade_ZeroSizeGuard(t *testing.T) {
	trade := NewSimTrade(
		Spread{},
		decimal.Zero,
		decimal.Zero,
		decimal.Zero,
		decimal.Zero,
		decimal.Zero,
		time.Now(),
	)
	if !trade.ProfitPct.IsZero() {
		t.Errorf("ProfitPct = %s, want 0", trade.ProfitPct)
	}
}
