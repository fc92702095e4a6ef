package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// GrossSpread is the raw price difference for one pair between two chains,
// before execution costs.
type GrossSpread struct {
	BuyChain  string // chain with the lower price
	SellChain string // chain with the higher price
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Pct       decimal.Decimal // (high - low) / low * 100
}

// CalculateGrossSpread computes the gross spread between two same-pair
// prices. The chain with the lower price becomes the buy chain. A
// non-positive low price yields a zero spread: chain assignment still
// follows the min/max rule, but a zero percentage never clears a positive
// threshold downstream.
func CalculateGrossSpread(priceA decimal.Decimal, chainA string, priceB decimal.Decimal, chainB string) GrossSpread {
	low, high := priceA, priceB
	buyChain, sellChain := chainA, chainB
	if priceB.LessThan(priceA) {
		low, high = priceB, priceA
		buyChain, sellChain = chainB, chainA
	}

	pct := decimal.Zero
	if low.IsPositive() {
		pct = high.Sub(low).Div(low).Mul(hundred)
	}

	return GrossSpread{
		BuyChain:  buyChain,
		SellChain: sellChain,
		BuyPrice:  low,
		SellPrice: high,
		Pct:       pct,
	}
}

// CalculateNetSpread reduces a gross spread percentage by the gas-cost drag
// of both legs expressed as a percentage of the reference trade size. A
// non-positive trade size yields zero (division-by-zero guard).
func CalculateNetSpread(grossPct, gasCostBuy, gasCostSell, referenceTradeSize decimal.Decimal) decimal.Decimal {
	if !referenceTradeSize.IsPositive() {
		return decimal.Zero
	}
	drag := gasCostBuy.Add(gasCostSell).Div(referenceTradeSize).Mul(hundred)
	return grossPct.Sub(drag)
}
