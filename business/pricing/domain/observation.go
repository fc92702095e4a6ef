// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one aggregated price for a (chain, pair) key at a
// point in time. Observations are immutable once produced; the current
// price for a key is the most recent observation by timestamp.
type PriceObservation struct {
	Chain     string
	Pair      string
	Price     decimal.Decimal
	Timestamp int64 // unix seconds
}

// Time returns the observation timestamp as time.Time.
func (o PriceObservation) Time() time.Time {
	return time.Unix(o.Timestamp, 0).UTC()
}

// StaleObservation is an observation rejected by the staleness filter,
// kept for reporting with its computed age.
type StaleObservation struct {
	PriceObservation
	Age int64 // full age in seconds at the time of the fetch
}

// PriceBatch is the result of one aggregated-price fetch: accepted
// observations plus any entries rejected as stale.
type PriceBatch struct {
	Prices []PriceObservation
	Stale  []StaleObservation
}
