package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyAggregate is one row per UTC calendar date. It is recomputed in full
// and upserted every time a spread is recorded for that date, so it always
// reflects the latest recomputation rather than an incremental log.
type DailyAggregate struct {
	Date              time.Time // UTC midnight of the day bucket
	TotalSpreads      int64
	ActionableSpreads int64
	SimTrades         int64
	TotalSimProfit    decimal.Decimal
	AvgSpreadPct      decimal.Decimal
	BestSpreadPct     decimal.Decimal
	MostActivePair    string
	MostActiveRoute   string
}

// DayBucket truncates t to the UTC calendar date containing it.
func DayBucket(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
