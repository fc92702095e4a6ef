package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
)

func candidate(pair, buyChain, sellChain string) domain.CandidateSpread {
	net := decimal.RequireFromString("0.4")
	return domain.CandidateSpread{
		Pair:           pair,
		BuyChain:       buyChain,
		SellChain:      sellChain,
		BuyPrice:       decimal.RequireFromString("2000"),
		SellPrice:      decimal.RequireFromString("2010"),
		GrossSpreadPct: decimal.RequireFromString("0.5"),
		NetSpreadPct:   &net,
	}
}

func TestLifecycle_OpensNewSpread(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	result := lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "arbitrum", "polygon"),
	}, now)

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Opened) != 1 {
		t.Fatalf("opened %d spreads, want 1", len(result.Opened))
	}
	if result.Opened[0].ID == 0 {
		t.Error("opened spread has no id")
	}
	if store.openCount() != 1 {
		t.Errorf("store has %d open spreads, want 1", store.openCount())
	}

	// Aggregate recomputed for the opened spread's day.
	day := domain.DayBucket(now)
	if _, ok := store.aggregates[day]; !ok {
		t.Errorf("no daily aggregate upserted for %v", day)
	}
}

func TestLifecycle_PersistingSpreadUntouched(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := candidate("ETH/USDC", "arbitrum", "polygon")

	first := lc.Reconcile(context.Background(), []domain.CandidateSpread{c}, t0)
	if len(first.Opened) != 1 {
		t.Fatalf("first cycle opened %d, want 1", len(first.Opened))
	}
	id := first.Opened[0].ID

	// Same key next cycle: nothing opens, nothing closes, detection time
	// and prices stay as first seen.
	second := lc.Reconcile(context.Background(), []domain.CandidateSpread{c}, t0.Add(30*time.Second))
	if len(second.Opened) != 0 || len(second.Closed) != 0 {
		t.Fatalf("second cycle opened %d closed %d, want 0/0", len(second.Opened), len(second.Closed))
	}
	if got := store.spreads[id].DetectedAt; !got.Equal(t0) {
		t.Errorf("DetectedAt = %v, want %v", got, t0)
	}
}

func TestLifecycle_ClosesAbsentSpread(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := candidate("ETH/USDC", "arbitrum", "polygon")
	lc.Reconcile(context.Background(), []domain.CandidateSpread{c}, t0)

	t1 := t0.Add(90 * time.Second)
	result := lc.Reconcile(context.Background(), nil, t1)

	if len(result.Closed) != 1 {
		t.Fatalf("closed %d spreads, want 1", len(result.Closed))
	}
	closed := result.Closed[0]
	if closed.DurationSecs == nil || *closed.DurationSecs != 90 {
		t.Errorf("DurationSecs = %v, want 90", closed.DurationSecs)
	}
	if store.openCount() != 0 {
		t.Errorf("store has %d open spreads, want 0", store.openCount())
	}
}

func TestLifecycle_DirectionFlipOpensNewSpread(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "arbitrum", "polygon"),
	}, t0)

	// Cheaper chain flips: old directional key closes, new one opens.
	result := lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "polygon", "arbitrum"),
	}, t0.Add(time.Minute))

	if len(result.Closed) != 1 {
		t.Errorf("closed %d spreads, want 1", len(result.Closed))
	}
	if len(result.Opened) != 1 {
		t.Errorf("opened %d spreads, want 1", len(result.Opened))
	}
}

func TestLifecycle_InsertFailureIsolated(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.insertSpreadErr = errors.New("disk full")

	result := lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "arbitrum", "polygon"),
		candidate("BTC/USDC", "arbitrum", "polygon"),
	}, now)

	if len(result.Opened) != 0 {
		t.Errorf("opened %d spreads, want 0", len(result.Opened))
	}
	if len(result.Errors) != 2 {
		t.Errorf("got %d errors, want 2", len(result.Errors))
	}
}

func TestLifecycle_CloseFailureDoesNotBlockOthers(t *testing.T) {
	store := newFakeStore()
	lc := NewLifecycle(store, &mockLogger{})

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "arbitrum", "polygon"),
	}, t0)

	store.closeSpreadErr = errors.New("connection reset")

	result := lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("BTC/USDC", "arbitrum", "polygon"),
	}, t0.Add(time.Minute))

	if len(result.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(result.Errors))
	}
	// The new spread still opens despite the close failure.
	if len(result.Opened) != 1 {
		t.Errorf("opened %d spreads, want 1", len(result.Opened))
	}
}

func TestLifecycle_OpenSpreadsFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.openSpreadsErr = errors.New("db down")
	lc := NewLifecycle(store, &mockLogger{})

	result := lc.Reconcile(context.Background(), []domain.CandidateSpread{
		candidate("ETH/USDC", "arbitrum", "polygon"),
	}, time.Now())

	// Without the open set the diff is meaningless; nothing is written.
	if len(result.Opened) != 0 || len(result.Closed) != 0 {
		t.Errorf("opened %d closed %d, want 0/0", len(result.Opened), len(result.Closed))
	}
	if len(result.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(result.Errors))
	}
}
