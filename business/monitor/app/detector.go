package app

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
)

// Detector finds cross-chain spread candidates in a batch of price
// observations. It is pure: no clock, no I/O, deterministic output order.
type Detector struct {
	minGrossPct       decimal.Decimal
	minNetPct         decimal.Decimal
	referenceSize     decimal.Decimal
	highFrictionChain string
}

// NewDetector creates a detector with the given thresholds. Percentages
// are absolute values, e.g. 0.05 means 0.05%.
func NewDetector(minGrossPct, minNetPct, referenceSize decimal.Decimal, highFrictionChain string) *Detector {
	return &Detector{
		minGrossPct:       minGrossPct,
		minNetPct:         minNetPct,
		referenceSize:     referenceSize,
		highFrictionChain: highFrictionChain,
	}
}

// Detect compares the latest observation per (pair, chain) across every
// chain pair and returns candidates whose gross and net spreads both clear
// their thresholds. gasCosts maps chain name to an estimated per-leg gas
// cost in USD; a chain with no entry is treated as zero cost so a candidate
// is never excluded for lack of gas data.
func (d *Detector) Detect(observations []pricing.PriceObservation, gasCosts map[string]decimal.Decimal) []domain.CandidateSpread {
	latest := latestPerPairChain(observations)

	pairs := make([]string, 0, len(latest))
	for pair := range latest {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	var candidates []domain.CandidateSpread
	for _, pair := range pairs {
		byChain := latest[pair]
		if len(byChain) < 2 {
			continue
		}

		chains := make([]string, 0, len(byChain))
		for chain := range byChain {
			chains = append(chains, chain)
		}
		sort.Strings(chains)

		for i := 0; i < len(chains); i++ {
			for j := i + 1; j < len(chains); j++ {
				a, b := byChain[chains[i]], byChain[chains[j]]

				gross := pricing.CalculateGrossSpread(a.Price, a.Chain, b.Price, b.Chain)
				if gross.Pct.LessThan(d.minGrossPct) {
					continue
				}

				net := pricing.CalculateNetSpread(
					gross.Pct,
					gasCosts[gross.BuyChain],
					gasCosts[gross.SellChain],
					d.referenceSize,
				)
				if net.LessThan(d.minNetPct) {
					continue
				}

				candidates = append(candidates, domain.CandidateSpread{
					Pair:           pair,
					BuyChain:       gross.BuyChain,
					SellChain:      gross.SellChain,
					BuyPrice:       gross.BuyPrice,
					SellPrice:      gross.SellPrice,
					GrossSpreadPct: gross.Pct,
					NetSpreadPct:   &net,
					HighFriction:   gross.BuyChain == d.highFrictionChain || gross.SellChain == d.highFrictionChain,
				})
			}
		}
	}

	return candidates
}

// latestPerPairChain keeps, per (pair, chain), the observation with the
// newest timestamp.
func latestPerPairChain(observations []pricing.PriceObservation) map[string]map[string]pricing.PriceObservation {
	latest := make(map[string]map[string]pricing.PriceObservation)
	for _, obs := range observations {
		byChain, ok := latest[obs.Pair]
		if !ok {
			byChain = make(map[string]pricing.PriceObservation)
			latest[obs.Pair] = byChain
		}
		if prev, ok := byChain[obs.Chain]; !ok || obs.Timestamp > prev.Timestamp {
			byChain[obs.Chain] = obs
		}
	}
	return latest
}
