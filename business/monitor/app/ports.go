package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
)

// PriceSource fetches current prices for every configured (chain, pair).
type PriceSource interface {
	FetchPrices(ctx context.Context) (*pricing.PriceBatch, error)
}

// QuoteSource prices a concrete swap on one chain.
type QuoteSource interface {
	Quote(ctx context.Context, chain, fromSymbol, toSymbol string, amount decimal.Decimal) (*pricing.SwapQuote, error)
}

// Store is the persistence collaborator. Implementations own durability;
// callers treat every method as best effort and surface failures per cycle.
type Store interface {
	InsertPriceObservation(ctx context.Context, obs pricing.PriceObservation) error

	OpenSpreads(ctx context.Context) ([]domain.Spread, error)
	InsertSpread(ctx context.Context, spread domain.Spread) (int64, error)
	CloseSpread(ctx context.Context, id int64, closedAt time.Time, durationSeconds int64) error

	InsertSimTrade(ctx context.Context, trade domain.SimTrade) error

	ComputeDailyAggregate(ctx context.Context, day time.Time) (*domain.DailyAggregate, error)
	UpsertDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error

	LastPriceTimestamp(ctx context.Context) (time.Time, error)
}
