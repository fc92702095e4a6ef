package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimTrade is one simulated round trip of a spread at one notional size:
// buy the base token on the cheap chain, sell it on the expensive one.
// Created once when a spread opens; never mutated.
type SimTrade struct {
	ID           int64
	SpreadID     int64
	Timestamp    time.Time
	Pair         string
	BuyChain     string
	SellChain    string
	TradeSizeUSD decimal.Decimal
	TokensBought decimal.Decimal
	USDReceived  decimal.Decimal
	GasCostBuy   decimal.Decimal
	GasCostSell  decimal.Decimal
	NetProfitUSD decimal.Decimal
	ProfitPct    decimal.Decimal
}

// NewSimTrade computes the profit fields from the two simulated legs.
// A non-positive trade size yields a zero profit percentage.
func NewSimTrade(spread Spread, size, tokensBought, usdReceived, gasCostBuy, gasCostSell decimal.Decimal, ts time.Time) SimTrade {
	netProfit := usdReceived.Sub(size).Sub(gasCostBuy).Sub(gasCostSell)

	profitPct := decimal.Zero
	if size.IsPositive() {
		profitPct = netProfit.Div(size).Mul(decimal.NewFromInt(100))
	}

	return SimTrade{
		SpreadID:     spread.ID,
		Timestamp:    ts,
		Pair:         spread.Pair,
		BuyChain:     spread.BuyChain,
		SellChain:    spread.SellChain,
		TradeSizeUSD: size,
		TokensBought: tokensBought,
		USDReceived:  usdReceived,
		GasCostBuy:   gasCostBuy,
		GasCostSell:  gasCostSell,
		NetProfitUSD: netProfit,
		ProfitPct:    profitPct,
	}
}
