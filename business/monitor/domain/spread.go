// Package domain contains the core domain types for the monitor context.
package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// SpreadKey is the directional identity of a spread. A reversal of which
// chain is cheaper produces a different key, hence a different spread.
type SpreadKey struct {
	Pair      string
	BuyChain  string
	SellChain string
}

// CandidateSpread is a detected cross-chain opportunity that cleared the
// configured thresholds. Candidates are ephemeral; the lifecycle manager
// decides which become persisted spreads.
type CandidateSpread struct {
	Pair           string
	BuyChain       string
	SellChain      string
	BuyPrice       decimal.Decimal
	SellPrice      decimal.Decimal
	GrossSpreadPct decimal.Decimal
	NetSpreadPct   *decimal.Decimal // set by the detector for every emitted candidate
	HighFriction   bool
}

// Key returns the directional identity of the candidate.
func (c CandidateSpread) Key() SpreadKey {
	return SpreadKey{Pair: c.Pair, BuyChain: c.BuyChain, SellChain: c.SellChain}
}

// Spread is a persisted cross-chain pricing opportunity between exactly two
// chains. It is written once on open and once on close; prices are never
// updated in between.
type Spread struct {
	ID             int64
	Pair           string
	BuyChain       string
	SellChain      string
	BuyPrice       decimal.Decimal
	SellPrice      decimal.Decimal
	GrossSpreadPct decimal.Decimal
	NetSpreadPct   *decimal.Decimal
	HighFriction   bool
	DetectedAt     time.Time
	ClosedAt       *time.Time
	DurationSecs   *int64
}

// Key returns the directional identity of the spread.
func (s Spread) Key() SpreadKey {
	return SpreadKey{Pair: s.Pair, BuyChain: s.BuyChain, SellChain: s.SellChain}
}

// IsOpen reports whether the spread has not been closed yet.
func (s Spread) IsOpen() bool {
	return s.ClosedAt == nil
}

// Actionable reports whether the spread cleared the net threshold on a
// route that does not involve the high-friction chain.
func (s Spread) Actionable() bool {
	return s.NetSpreadPct != nil && !s.HighFriction
}

// Close marks the spread closed at the given time, recording its lifetime
// rounded to whole seconds. Closing is terminal: a second call is a no-op.
func (s *Spread) Close(now time.Time) {
	if s.ClosedAt != nil {
		return
	}
	closedAt := now
	duration := int64(math.Round(now.Sub(s.DetectedAt).Seconds()))
	s.ClosedAt = &closedAt
	s.DurationSecs = &duration
}

// NewSpread creates an open Spread from a candidate.
func NewSpread(c CandidateSpread, detectedAt time.Time) Spread {
	return Spread{
		Pair:           c.Pair,
		BuyChain:       c.BuyChain,
		SellChain:      c.SellChain,
		BuyPrice:       c.BuyPrice,
		SellPrice:      c.SellPrice,
		GrossSpreadPct: c.GrossSpreadPct,
		NetSpreadPct:   c.NetSpreadPct,
		HighFriction:   c.HighFriction,
		DetectedAt:     detectedAt,
	}
}
