package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
)

var repo *Repository

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("could not stop postgres container: %s", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	pool, err := NewPool(ctx, Config{DSN: connStr})
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool); err != nil {
		log.Fatalf("could not apply schema: %s", err)
	}

	repo = NewRepository(pool)

	os.Exit(m.Run())
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := repo.pool.Exec(context.Background(),
		`TRUNCATE sim_trades, spreads, price_observations, daily_aggregates RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func testCandidate(net string) domain.CandidateSpread {
	c := domain.CandidateSpread{
		Pair:           "ETH/USDC",
		BuyChain:       "arbitrum",
		SellChain:      "polygon",
		BuyPrice:       decimal.RequireFromString("2000"),
		SellPrice:      decimal.RequireFromString("2010"),
		GrossSpreadPct: decimal.RequireFromString("0.5"),
	}
	if net != "" {
		n := decimal.RequireFromString(net)
		c.NetSpreadPct = &n
	}
	return c
}

func TestRepository_PriceObservations(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	last, err := repo.LastPriceTimestamp(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "empty table should report the zero time")

	older := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(30 * time.Second)

	for _, ts := range []time.Time{older, newer} {
		err := repo.InsertPriceObservation(ctx, pricing.PriceObservation{
			Chain:     "arbitrum",
			Pair:      "ETH/USDC",
			Price:     decimal.RequireFromString("2000.123456"),
			Timestamp: ts.Unix(),
		})
		require.NoError(t, err)
	}

	last, err = repo.LastPriceTimestamp(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(newer), "got %s, want %s", last, newer)
}

func TestRepository_SpreadLifecycle(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	detectedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	spread := domain.NewSpread(testCandidate("0.4"), detectedAt)

	id, err := repo.InsertSpread(ctx, spread)
	require.NoError(t, err)
	assert.Positive(t, id)

	open, err := repo.OpenSpreads(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	got := open[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "ETH/USDC", got.Pair)
	assert.Equal(t, "arbitrum", got.BuyChain)
	assert.Equal(t, "polygon", got.SellChain)
	assert.True(t, got.BuyPrice.Equal(decimal.RequireFromString("2000")))
	assert.True(t, got.GrossSpreadPct.Equal(decimal.RequireFromString("0.5")))
	require.NotNil(t, got.NetSpreadPct)
	assert.True(t, got.NetSpreadPct.Equal(decimal.RequireFromString("0.4")))
	assert.False(t, got.HighFriction)
	assert.Nil(t, got.ClosedAt)
	assert.True(t, got.IsOpen())

	closedAt := detectedAt.Add(90 * time.Second)
	require.NoError(t, repo.CloseSpread(ctx, id, closedAt, 90))

	open, err = repo.OpenSpreads(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRepository_CloseSpreadIsTerminal(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	detectedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := repo.InsertSpread(ctx, domain.NewSpread(testCandidate(""), detectedAt))
	require.NoError(t, err)

	first := detectedAt.Add(60 * time.Second)
	require.NoError(t, repo.CloseSpread(ctx, id, first, 60))

	// A second close must not overwrite the recorded close.
	require.NoError(t, repo.CloseSpread(ctx, id, first.Add(time.Hour), 3660))

	var (
		closedAt time.Time
		duration int64
	)
	err = repo.pool.QueryRow(ctx,
		`SELECT closed_at, duration_seconds FROM spreads WHERE id = $1`, id).
		Scan(&closedAt, &duration)
	require.NoError(t, err)
	assert.True(t, closedAt.Equal(first))
	assert.Equal(t, int64(60), duration)
}

func TestRepository_NullNetSpreadRoundTrip(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	detectedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := repo.InsertSpread(ctx, domain.NewSpread(testCandidate(""), detectedAt))
	require.NoError(t, err)

	open, err := repo.OpenSpreads(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Nil(t, open[0].NetSpreadPct)
}

func TestRepository_InsertSimTrade(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	detectedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	spread := domain.NewSpread(testCandidate("0.4"), detectedAt)
	id, err := repo.InsertSpread(ctx, spread)
	require.NoError(t, err)
	spread.ID = id

	trade := domain.NewSimTrade(spread,
		decimal.RequireFromString("10000"),
		decimal.RequireFromString("5"),
		decimal.RequireFromString("10050"),
		decimal.RequireFromString("0.30"),
		decimal.RequireFromString("0.30"),
		detectedAt,
	)
	require.NoError(t, repo.InsertSimTrade(ctx, trade))

	var (
		spreadID  int64
		netProfit decimal.Decimal
	)
	err = repo.pool.QueryRow(ctx,
		`SELECT spread_id, net_profit_usd FROM sim_trades`).
		Scan(&spreadID, &netProfit)
	require.NoError(t, err)
	assert.Equal(t, id, spreadID)
	assert.True(t, netProfit.Equal(decimal.RequireFromString("49.4")), "got %s", netProfit)
}

func TestRepository_ComputeDailyAggregate(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Two spreads inside the day, one actionable, plus one on the next day
	// that must not leak into the bucket.
	actionable := domain.NewSpread(testCandidate("0.4"), day.Add(10*time.Hour))
	id, err := repo.InsertSpread(ctx, actionable)
	require.NoError(t, err)
	actionable.ID = id

	friction := testCandidate("")
	friction.BuyChain = "ethereum"
	friction.HighFriction = true
	friction.GrossSpreadPct = decimal.RequireFromString("0.9")
	_, err = repo.InsertSpread(ctx, domain.NewSpread(friction, day.Add(11*time.Hour)))
	require.NoError(t, err)

	_, err = repo.InsertSpread(ctx, domain.NewSpread(testCandidate("0.4"), day.Add(30*time.Hour)))
	require.NoError(t, err)

	trade := domain.NewSimTrade(actionable,
		decimal.RequireFromString("10000"),
		decimal.RequireFromString("5"),
		decimal.RequireFromString("10050"),
		decimal.RequireFromString("0.30"),
		decimal.RequireFromString("0.30"),
		day.Add(10*time.Hour),
	)
	require.NoError(t, repo.InsertSimTrade(ctx, trade))

	agg, err := repo.ComputeDailyAggregate(ctx, day.Add(15*time.Hour))
	require.NoError(t, err)

	assert.True(t, agg.Date.Equal(day))
	assert.Equal(t, int64(2), agg.TotalSpreads)
	assert.Equal(t, int64(1), agg.ActionableSpreads)
	assert.Equal(t, int64(1), agg.SimTrades)
	assert.True(t, agg.TotalSimProfit.Equal(decimal.RequireFromString("49.4")), "got %s", agg.TotalSimProfit)
	assert.True(t, agg.AvgSpreadPct.Equal(decimal.RequireFromString("0.7")), "got %s", agg.AvgSpreadPct)
	assert.True(t, agg.BestSpreadPct.Equal(decimal.RequireFromString("0.9")), "got %s", agg.BestSpreadPct)
	assert.Equal(t, "ETH/USDC", agg.MostActivePair)
	assert.Equal(t, "ETH/USDC:arbitrum->polygon", agg.MostActiveRoute)
}

func TestRepository_ComputeDailyAggregateEmptyDay(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	agg, err := repo.ComputeDailyAggregate(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Zero(t, agg.TotalSpreads)
	assert.Zero(t, agg.SimTrades)
	assert.True(t, agg.TotalSimProfit.IsZero())
	assert.Empty(t, agg.MostActivePair)
	assert.Empty(t, agg.MostActiveRoute)
}

func TestRepository_UpsertDailyAggregate(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	agg := domain.DailyAggregate{
		Date:            day,
		TotalSpreads:    3,
		SimTrades:       1,
		TotalSimProfit:  decimal.RequireFromString("12.5"),
		AvgSpreadPct:    decimal.RequireFromString("0.4"),
		BestSpreadPct:   decimal.RequireFromString("0.6"),
		MostActivePair:  "ETH/USDC",
		MostActiveRoute: "ETH/USDC:arbitrum->polygon",
	}
	require.NoError(t, repo.UpsertDailyAggregate(ctx, agg))

	agg.TotalSpreads = 5
	agg.TotalSimProfit = decimal.RequireFromString("20")
	require.NoError(t, repo.UpsertDailyAggregate(ctx, agg))

	var (
		count  int64
		total  int64
		profit decimal.Decimal
	)
	err := repo.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(total_spreads), MAX(total_sim_profit) FROM daily_aggregates`).
		Scan(&count, &total, &profit)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "upsert must not create a second row")
	assert.Equal(t, int64(5), total)
	assert.True(t, profit.Equal(decimal.RequireFromString("20")))
}
