package app

import (
	"context"
	"fmt"
	"time"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	"github.com/JPercival/trade-arbitrage/internal/logger"
)

// Lifecycle tracks spreads across cycles. A spread opens the first cycle
// its directional key appears and closes the first cycle it is absent.
type Lifecycle struct {
	store  Store
	logger logger.LoggerInterface
}

// ReconcileResult reports what one reconciliation changed.
type ReconcileResult struct {
	Opened []domain.Spread
	Closed []domain.Spread
	Errors []string
}

// NewLifecycle creates a lifecycle manager backed by the given store.
func NewLifecycle(store Store, log logger.LoggerInterface) *Lifecycle {
	return &Lifecycle{store: store, logger: log}
}

// Reconcile diffs the current candidates against the open spreads. Spreads
// whose key is no longer among the candidates are closed with their
// duration; candidates with no matching open spread are inserted as new.
// An open spread that persists is left untouched, keeping its first-seen
// prices and detection time. Storage failures on one spread never block
// the others.
func (l *Lifecycle) Reconcile(ctx context.Context, candidates []domain.CandidateSpread, now time.Time) ReconcileResult {
	var result ReconcileResult

	open, err := l.store.OpenSpreads(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load open spreads: %v", err))
		return result
	}

	current := make(map[domain.SpreadKey]struct{}, len(candidates))
	for _, c := range candidates {
		current[c.Key()] = struct{}{}
	}

	openKeys := make(map[domain.SpreadKey]struct{}, len(open))
	for _, s := range open {
		openKeys[s.Key()] = struct{}{}

		if _, stillPresent := current[s.Key()]; stillPresent {
			continue
		}

		s.Close(now)
		if err := l.store.CloseSpread(ctx, s.ID, *s.ClosedAt, *s.DurationSecs); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("close spread %d: %v", s.ID, err))
			continue
		}
		l.logger.Info(ctx, "spread closed",
			"pair", s.Pair,
			"buy_chain", s.BuyChain,
			"sell_chain", s.SellChain,
			"duration_seconds", *s.DurationSecs,
		)
		result.Closed = append(result.Closed, s)
	}

	days := make(map[time.Time]struct{})
	for _, c := range candidates {
		if _, alreadyOpen := openKeys[c.Key()]; alreadyOpen {
			continue
		}

		spread := domain.NewSpread(c, now)
		id, err := l.store.InsertSpread(ctx, spread)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("insert spread %s %s->%s: %v", c.Pair, c.BuyChain, c.SellChain, err))
			continue
		}
		spread.ID = id
		l.logger.Info(ctx, "spread opened",
			"pair", spread.Pair,
			"buy_chain", spread.BuyChain,
			"sell_chain", spread.SellChain,
			"gross_pct", spread.GrossSpreadPct.String(),
			"high_friction", spread.HighFriction,
		)
		result.Opened = append(result.Opened, spread)
		days[domain.DayBucket(now)] = struct{}{}
	}

	for day := range days {
		if err := l.refreshAggregate(ctx, day); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("refresh aggregate %s: %v", day.Format("2006-01-02"), err))
		}
	}

	return result
}

// refreshAggregate recomputes the daily rollup for one UTC day from stored
// rows and upserts it.
func (l *Lifecycle) refreshAggregate(ctx context.Context, day time.Time) error {
	agg, err := l.store.ComputeDailyAggregate(ctx, day)
	if err != nil {
		return err
	}
	return l.store.UpsertDailyAggregate(ctx, *agg)
}
