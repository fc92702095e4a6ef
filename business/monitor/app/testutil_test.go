package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// fakeStore is an in-memory Store with per-method error injection.
type fakeStore struct {
	mu sync.Mutex

	nextID       int64
	observations []pricing.PriceObservation
	spreads      map[int64]*domain.Spread
	simTrades    []domain.SimTrade
	aggregates   map[time.Time]domain.DailyAggregate

	insertSpreadErr error
	closeSpreadErr  error
	insertTradeErr  error
	insertObsErr    error
	openSpreadsErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		spreads:    make(map[int64]*domain.Spread),
		aggregates: make(map[time.Time]domain.DailyAggregate),
	}
}

func (f *fakeStore) InsertPriceObservation(ctx context.Context, obs pricing.PriceObservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertObsErr != nil {
		return f.insertObsErr
	}
	f.observations = append(f.observations, obs)
	return nil
}

func (f *fakeStore) OpenSpreads(ctx context.Context) ([]domain.Spread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openSpreadsErr != nil {
		return nil, f.openSpreadsErr
	}
	var open []domain.Spread
	for _, s := range f.spreads {
		if s.IsOpen() {
			open = append(open, *s)
		}
	}
	return open, nil
}

func (f *fakeStore) InsertSpread(ctx context.Context, spread domain.Spread) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSpreadErr != nil {
		return 0, f.insertSpreadErr
	}
	f.nextID++
	spread.ID = f.nextID
	f.spreads[spread.ID] = &spread
	return spread.ID, nil
}

func (f *fakeStore) CloseSpread(ctx context.Context, id int64, closedAt time.Time, durationSeconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeSpreadErr != nil {
		return f.closeSpreadErr
	}
	s, ok := f.spreads[id]
	if !ok {
		return fmt.Errorf("spread %d not found", id)
	}
	if s.ClosedAt == nil {
		s.ClosedAt = &closedAt
		s.DurationSecs = &durationSeconds
	}
	return nil
}

func (f *fakeStore) InsertSimTrade(ctx context.Context, trade domain.SimTrade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertTradeErr != nil {
		return f.insertTradeErr
	}
	f.simTrades = append(f.simTrades, trade)
	return nil
}

func (f *fakeStore) ComputeDailyAggregate(ctx context.Context, day time.Time) (*domain.DailyAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := domain.DayBucket(day)
	agg := domain.DailyAggregate{Date: bucket}
	for _, s := range f.spreads {
		if domain.DayBucket(s.DetectedAt).Equal(bucket) {
			agg.TotalSpreads++
			if s.Actionable() {
				agg.ActionableSpreads++
			}
		}
	}
	agg.SimTrades = int64(len(f.simTrades))
	return &agg, nil
}

func (f *fakeStore) UpsertDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates[agg.Date] = agg
	return nil
}

func (f *fakeStore) LastPriceTimestamp(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last time.Time
	for _, o := range f.observations {
		if o.Time().After(last) {
			last = o.Time()
		}
	}
	return last, nil
}

func (f *fakeStore) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.spreads {
		if s.IsOpen() {
			n++
		}
	}
	return n
}

var _ Store = (*fakeStore)(nil)

// fakePriceSource returns a fixed batch or error. Safe for use from the
// monitor's poll goroutine.
type fakePriceSource struct {
	mu    sync.Mutex
	batch *pricing.PriceBatch
	err   error
	n     int
}

func (f *fakePriceSource) FetchPrices(ctx context.Context) (*pricing.PriceBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func (f *fakePriceSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// fakeQuoteSource returns canned quotes keyed by "chain:from:to".
type fakeQuoteSource struct {
	quotes map[string]*pricing.SwapQuote
	errs   map[string]error
	calls  []string
}

func quoteKey(chain, from, to string) string {
	return chain + ":" + from + ":" + to
}

func (f *fakeQuoteSource) Quote(ctx context.Context, chain, from, to string, amount decimal.Decimal) (*pricing.SwapQuote, error) {
	key := quoteKey(chain, from, to)
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if q, ok := f.quotes[key]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("no quote for %s", key)
}

func obs(chain, pair, price string, ts int64) pricing.PriceObservation {
	return pricing.PriceObservation{
		Chain:     chain,
		Pair:      pair,
		Price:     decimal.RequireFromString(price),
		Timestamp: ts,
	}
}
