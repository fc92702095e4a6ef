package postgres

import "context"

// schema is applied at startup when migrations are enabled. Statements are
// idempotent so repeated starts are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS price_observations (
		id BIGSERIAL PRIMARY KEY,
		chain VARCHAR(50) NOT NULL,
		pair VARCHAR(20) NOT NULL,
		price NUMERIC(30, 18) NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_observations_observed_at
		ON price_observations (observed_at DESC)`,

	`CREATE TABLE IF NOT EXISTS spreads (
		id BIGSERIAL PRIMARY KEY,
		pair VARCHAR(20) NOT NULL,
		buy_chain VARCHAR(50) NOT NULL,
		sell_chain VARCHAR(50) NOT NULL,
		buy_price NUMERIC(30, 18) NOT NULL,
		sell_price NUMERIC(30, 18) NOT NULL,
		gross_spread_pct NUMERIC(12, 6) NOT NULL,
		net_spread_pct NUMERIC(12, 6),
		high_friction BOOLEAN NOT NULL DEFAULT FALSE,
		detected_at TIMESTAMPTZ NOT NULL,
		closed_at TIMESTAMPTZ,
		duration_seconds BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_spreads_open
		ON spreads (pair, buy_chain, sell_chain) WHERE closed_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_spreads_detected_at
		ON spreads (detected_at)`,

	`CREATE TABLE IF NOT EXISTS sim_trades (
		id BIGSERIAL PRIMARY KEY,
		spread_id BIGINT NOT NULL REFERENCES spreads (id),
		executed_at TIMESTAMPTZ NOT NULL,
		pair VARCHAR(20) NOT NULL,
		buy_chain VARCHAR(50) NOT NULL,
		sell_chain VARCHAR(50) NOT NULL,
		trade_size_usd NUMERIC(20, 8) NOT NULL,
		tokens_bought NUMERIC(30, 18) NOT NULL,
		usd_received NUMERIC(20, 8) NOT NULL,
		gas_cost_buy NUMERIC(20, 8) NOT NULL,
		gas_cost_sell NUMERIC(20, 8) NOT NULL,
		net_profit_usd NUMERIC(20, 8) NOT NULL,
		profit_pct NUMERIC(12, 6) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sim_trades_executed_at
		ON sim_trades (executed_at)`,

	`CREATE TABLE IF NOT EXISTS daily_aggregates (
		day DATE PRIMARY KEY,
		total_spreads BIGINT NOT NULL,
		actionable_spreads BIGINT NOT NULL,
		sim_trades BIGINT NOT NULL,
		total_sim_profit NUMERIC(20, 8) NOT NULL,
		avg_spread_pct NUMERIC(12, 6) NOT NULL,
		best_spread_pct NUMERIC(12, 6) NOT NULL,
		most_active_pair VARCHAR(20) NOT NULL DEFAULT '',
		most_active_route VARCHAR(120) NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return storageError("apply schema", err)
		}
	}
	return nil
}
