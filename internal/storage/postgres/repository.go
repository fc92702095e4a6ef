package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/app"
	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
)

// Repository implements the monitor's storage port on PostgreSQL.
type Repository struct {
	pool *Pool
}

// NewRepository creates a repository over the given pool.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Compile-time interface check.
var _ app.Store = (*Repository)(nil)

// Ping verifies the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// InsertPriceObservation appends one observation to the time series.
func (r *Repository) InsertPriceObservation(ctx context.Context, obs pricing.PriceObservation) error {
	query := `
		INSERT INTO price_observations (chain, pair, price, observed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, obs.Chain, obs.Pair, obs.Price, obs.Time())
	if err != nil {
		return storageError("insert price observation", err)
	}
	return nil
}

// LastPriceTimestamp returns the newest observation time, or the zero time
// when nothing has been stored yet.
func (r *Repository) LastPriceTimestamp(ctx context.Context) (time.Time, error) {
	query := `SELECT MAX(observed_at) FROM price_observations`

	var last *time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&last); err != nil {
		return time.Time{}, storageError("last price timestamp", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}

// OpenSpreads returns every spread without a close time.
func (r *Repository) OpenSpreads(ctx context.Context) ([]domain.Spread, error) {
	query := `
		SELECT id, pair, buy_chain, sell_chain, buy_price, sell_price,
			gross_spread_pct, net_spread_pct, high_friction,
			detected_at, closed_at, duration_seconds
		FROM spreads
		WHERE closed_at IS NULL
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storageError("query open spreads", err)
	}
	defer rows.Close()

	return scanSpreads(rows)
}

// InsertSpread records a newly opened spread and returns its id.
func (r *Repository) InsertSpread(ctx context.Context, spread domain.Spread) (int64, error) {
	query := `
		INSERT INTO spreads (
			pair, buy_chain, sell_chain, buy_price, sell_price,
			gross_spread_pct, net_spread_pct, high_friction, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var net decimal.NullDecimal
	if spread.NetSpreadPct != nil {
		net = decimal.NewNullDecimal(*spread.NetSpreadPct)
	}

	var id int64
	err := r.pool.QueryRow(ctx, query,
		spread.Pair,
		spread.BuyChain,
		spread.SellChain,
		spread.BuyPrice,
		spread.SellPrice,
		spread.GrossSpreadPct,
		net,
		spread.HighFriction,
		spread.DetectedAt,
	).Scan(&id)
	if err != nil {
		return 0, storageError("insert spread", err)
	}
	return id, nil
}

// CloseSpread marks a spread closed. Closing an already closed spread
// leaves it untouched.
func (r *Repository) CloseSpread(ctx context.Context, id int64, closedAt time.Time, durationSeconds int64) error {
	query := `
		UPDATE spreads
		SET closed_at = $2, duration_seconds = $3
		WHERE id = $1 AND closed_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, id, closedAt, durationSeconds)
	if err != nil {
		return storageError("close spread", err)
	}
	return nil
}

// InsertSimTrade records one simulated trade.
func (r *Repository) InsertSimTrade(ctx context.Context, trade domain.SimTrade) error {
	query := `
		INSERT INTO sim_trades (
			spread_id, executed_at, pair, buy_chain, sell_chain,
			trade_size_usd, tokens_bought, usd_received,
			gas_cost_buy, gas_cost_sell, net_profit_usd, profit_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		trade.SpreadID,
		trade.Timestamp,
		trade.Pair,
		trade.BuyChain,
		trade.SellChain,
		trade.TradeSizeUSD,
		trade.TokensBought,
		trade.USDReceived,
		trade.GasCostBuy,
		trade.GasCostSell,
		trade.NetProfitUSD,
		trade.ProfitPct,
	)
	if err != nil {
		return storageError("insert sim trade", err)
	}
	return nil
}

// ComputeDailyAggregate recomputes the rollup for one UTC day from stored
// rows. The aggregate always reflects everything persisted for that day,
// never an incremental delta.
func (r *Repository) ComputeDailyAggregate(ctx context.Context, day time.Time) (*domain.DailyAggregate, error) {
	start := domain.DayBucket(day)
	end := start.Add(24 * time.Hour)

	agg := &domain.DailyAggregate{Date: start}

	spreadQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE net_spread_pct IS NOT NULL AND NOT high_friction),
			COALESCE(AVG(gross_spread_pct), 0),
			COALESCE(MAX(gross_spread_pct), 0)
		FROM spreads
		WHERE detected_at >= $1 AND detected_at < $2
	`
	err := r.pool.QueryRow(ctx, spreadQuery, start, end).Scan(
		&agg.TotalSpreads,
		&agg.ActionableSpreads,
		&agg.AvgSpreadPct,
		&agg.BestSpreadPct,
	)
	if err != nil {
		return nil, storageError("aggregate spreads", err)
	}

	tradeQuery := `
		SELECT COUNT(*), COALESCE(SUM(net_profit_usd), 0)
		FROM sim_trades
		WHERE executed_at >= $1 AND executed_at < $2
	`
	err = r.pool.QueryRow(ctx, tradeQuery, start, end).Scan(&agg.SimTrades, &agg.TotalSimProfit)
	if err != nil {
		return nil, storageError("aggregate sim trades", err)
	}

	agg.MostActivePair, err = r.modeQuery(ctx, `
		SELECT pair
		FROM spreads
		WHERE detected_at >= $1 AND detected_at < $2
		GROUP BY pair
		ORDER BY COUNT(*) DESC, pair ASC
		LIMIT 1
	`, start, end)
	if err != nil {
		return nil, err
	}

	agg.MostActiveRoute, err = r.modeQuery(ctx, `
		SELECT pair || ':' || buy_chain || '->' || sell_chain
		FROM spreads
		WHERE detected_at >= $1 AND detected_at < $2
		GROUP BY pair, buy_chain, sell_chain
		ORDER BY COUNT(*) DESC, pair ASC, buy_chain ASC, sell_chain ASC
		LIMIT 1
	`, start, end)
	if err != nil {
		return nil, err
	}

	return agg, nil
}

func (r *Repository) modeQuery(ctx context.Context, query string, start, end time.Time) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, query, start, end).Scan(&value)
	if isNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", storageError("aggregate mode", err)
	}
	return value, nil
}

// UpsertDailyAggregate stores the rollup, replacing any existing row for
// the same day.
func (r *Repository) UpsertDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error {
	query := `
		INSERT INTO daily_aggregates (
			day, total_spreads, actionable_spreads, sim_trades,
			total_sim_profit, avg_spread_pct, best_spread_pct,
			most_active_pair, most_active_route, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (day) DO UPDATE SET
			total_spreads = EXCLUDED.total_spreads,
			actionable_spreads = EXCLUDED.actionable_spreads,
			sim_trades = EXCLUDED.sim_trades,
			total_sim_profit = EXCLUDED.total_sim_profit,
			avg_spread_pct = EXCLUDED.avg_spread_pct,
			best_spread_pct = EXCLUDED.best_spread_pct,
			most_active_pair = EXCLUDED.most_active_pair,
			most_active_route = EXCLUDED.most_active_route,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		agg.Date,
		agg.TotalSpreads,
		agg.ActionableSpreads,
		agg.SimTrades,
		agg.TotalSimProfit,
		agg.AvgSpreadPct,
		agg.BestSpreadPct,
		agg.MostActivePair,
		agg.MostActiveRoute,
	)
	if err != nil {
		return storageError("upsert daily aggregate", err)
	}
	return nil
}

func scanSpreads(rows pgx.Rows) ([]domain.Spread, error) {
	var spreads []domain.Spread

	for rows.Next() {
		var (
			s   domain.Spread
			net decimal.NullDecimal
		)
		err := rows.Scan(
			&s.ID,
			&s.Pair,
			&s.BuyChain,
			&s.SellChain,
			&s.BuyPrice,
			&s.SellPrice,
			&s.GrossSpreadPct,
			&net,
			&s.HighFriction,
			&s.DetectedAt,
			&s.ClosedAt,
			&s.DurationSecs,
		)
		if err != nil {
			return nil, storageError("scan spread row", err)
		}
		if net.Valid {
			s.NetSpreadPct = &net.Decimal
		}
		spreads = append(spreads, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate spread rows", err)
	}

	return spreads, nil
}
