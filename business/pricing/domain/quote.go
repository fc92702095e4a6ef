package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapQuote is one directional execution quote: source token in, destination
// token out, on one chain. Amounts are in each token's smallest unit, as
// returned by the quote API.
type SwapQuote struct {
	Chain        string
	SrcToken     string
	DestToken    string
	SrcAmount    decimal.Decimal // smallest units
	DestAmount   decimal.Decimal // smallest units
	SrcDecimals  int
	DestDecimals int
	GasCostUSD   decimal.Decimal
	Route        []RouteHop
	Timestamp    time.Time
}

// RouteHop is one venue in the quoted swap route.
type RouteHop struct {
	Exchange string
	Percent  float64
}

// DestTokens converts the destination amount from smallest units to whole
// tokens using the destination decimals.
func (q *SwapQuote) DestTokens() decimal.Decimal {
	return q.DestAmount.Shift(int32(-q.DestDecimals))
}

// SrcTokens converts the source amount from smallest units to whole tokens.
func (q *SwapQuote) SrcTokens() decimal.Decimal {
	return q.SrcAmount.Shift(int32(-q.SrcDecimals))
}
