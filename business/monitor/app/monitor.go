package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/internal/logger"
)

const meterName = "monitor"

// Config holds the orchestrator's tunables.
type Config struct {
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	TradeSizesUSD     []decimal.Decimal
	ReferenceSizeUSD  decimal.Decimal
	MinGrossSpreadPct decimal.Decimal
	MinNetSpreadPct   decimal.Decimal
	HighFrictionChain string
}

// Monitor drives the poll cycle: fetch prices, detect spreads, reconcile
// lifecycle state, and simulate trades over newly opened spreads. It is
// strictly read-only towards the outside world; nothing it does places an
// order.
type Monitor struct {
	prices    PriceSource
	quotes    QuoteSource
	store     Store
	detector  *Detector
	lifecycle *Lifecycle
	simulator *Simulator
	logger    logger.LoggerInterface

	interval       time.Duration
	requestTimeout time.Duration
	tradeSizes     []decimal.Decimal
	referenceSize  decimal.Decimal

	metrics *cycleMetrics
	now     func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type cycleMetrics struct {
	cyclesTotal   metric.Int64Counter
	cycleDuration metric.Float64Histogram
	pricesStored  metric.Int64Counter
	spreadsOpened metric.Int64Counter
	spreadsClosed metric.Int64Counter
	cycleErrors   metric.Int64Counter
}

// NewMonitor wires the orchestrator. The detector, lifecycle manager, and
// simulator are built here so callers only hand over the three ports.
func NewMonitor(cfg Config, prices PriceSource, quotes QuoteSource, store Store, log logger.LoggerInterface) (*Monitor, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("monitor: poll interval must be positive")
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 10 * time.Second
	}

	metrics, err := newCycleMetrics()
	if err != nil {
		return nil, fmt.Errorf("monitor: failed to create metrics: %w", err)
	}

	return &Monitor{
		prices:         prices,
		quotes:         quotes,
		store:          store,
		detector:       NewDetector(cfg.MinGrossSpreadPct, cfg.MinNetSpreadPct, cfg.ReferenceSizeUSD, cfg.HighFrictionChain),
		lifecycle:      NewLifecycle(store, log),
		simulator:      NewSimulator(quotes, store, log),
		logger:         log,
		interval:       cfg.PollInterval,
		requestTimeout: requestTimeout,
		tradeSizes:     cfg.TradeSizesUSD,
		referenceSize:  cfg.ReferenceSizeUSD,
		metrics:        metrics,
		now:            time.Now,
	}, nil
}

func newCycleMetrics() (*cycleMetrics, error) {
	meter := otel.Meter(meterName)

	cyclesTotal, err := meter.Int64Counter("monitor_cycles_total",
		metric.WithDescription("Completed poll cycles"))
	if err != nil {
		return nil, err
	}
	cycleDuration, err := meter.Float64Histogram("monitor_cycle_duration_seconds",
		metric.WithDescription("Poll cycle duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	pricesStored, err := meter.Int64Counter("monitor_prices_stored_total",
		metric.WithDescription("Price observations persisted"))
	if err != nil {
		return nil, err
	}
	spreadsOpened, err := meter.Int64Counter("monitor_spreads_opened_total",
		metric.WithDescription("Spreads opened"))
	if err != nil {
		return nil, err
	}
	spreadsClosed, err := meter.Int64Counter("monitor_spreads_closed_total",
		metric.WithDescription("Spreads closed"))
	if err != nil {
		return nil, err
	}
	cycleErrors, err := meter.Int64Counter("monitor_cycle_errors_total",
		metric.WithDescription("Errors recorded during poll cycles"))
	if err != nil {
		return nil, err
	}

	return &cycleMetrics{
		cyclesTotal:   cyclesTotal,
		cycleDuration: cycleDuration,
		pricesStored:  pricesStored,
		spreadsOpened: spreadsOpened,
		spreadsClosed: spreadsClosed,
		cycleErrors:   cycleErrors,
	}, nil
}

// Running reports whether the poll loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start launches the poll loop: one cycle immediately, then one per
// interval measured from the end of the previous cycle. Calling Start on
// a running monitor is a logged no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.logger.Info(ctx, "monitor already running, start ignored")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info(ctx, "monitor started", "poll_interval", m.interval.String())
	go m.loop(runCtx, done)
}

// Stop cancels the pending cycle and waits for an in-flight cycle to
// finish. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	running, cancel, done := m.running, m.cancel, m.done
	m.mu.Unlock()
	if !running || cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(done)
	}()

	m.RunCycle(context.WithoutCancel(ctx))

	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "monitor stopped")
			return
		case <-timer.C:
			// In-flight cycles run to completion; cancellation only
			// prevents the next one from starting.
			m.RunCycle(context.WithoutCancel(ctx))
			timer.Reset(m.interval)
		}
	}
}

// RunCycle executes one poll cycle and reports what it did. It never
// panics; failures are collected into the returned stats and the cycle
// continues with whatever data it has.
func (m *Monitor) RunCycle(ctx context.Context) domain.CycleStats {
	stats := domain.CycleStats{StartedAt: m.now()}
	m.safeCycle(ctx, &stats)
	stats.Duration = m.now().Sub(stats.StartedAt)

	m.metrics.cyclesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("failed", stats.Failed())))
	m.metrics.cycleDuration.Record(ctx, stats.Duration.Seconds())
	m.metrics.pricesStored.Add(ctx, int64(stats.PricesStored))
	m.metrics.spreadsOpened.Add(ctx, int64(stats.SpreadsOpened))
	m.metrics.spreadsClosed.Add(ctx, int64(stats.SpreadsClosed))
	m.metrics.cycleErrors.Add(ctx, int64(len(stats.Errors)))

	m.logger.Info(ctx, "cycle completed",
		"duration", stats.Duration.String(),
		"prices_stored", stats.PricesStored,
		"stale_dropped", stats.StaleDropped,
		"spreads_opened", stats.SpreadsOpened,
		"spreads_closed", stats.SpreadsClosed,
		"sim_trades_ok", stats.SimTradesOK,
		"sim_trades_err", stats.SimTradesErr,
		"errors", len(stats.Errors),
	)

	return stats
}

func (m *Monitor) safeCycle(ctx context.Context, stats *domain.CycleStats) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "cycle panicked", "panic", r)
			stats.AddError(fmt.Sprintf("cycle panic: %v", r))
		}
	}()
	m.cycle(ctx, stats)
}

func (m *Monitor) cycle(ctx context.Context, stats *domain.CycleStats) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	batch, err := m.prices.FetchPrices(fetchCtx)
	cancel()
	if err != nil {
		// No price data this cycle: spread state is left untouched
		// because absence of data is not absence of a spread.
		m.logger.Error(ctx, "price fetch failed", "error", err)
		stats.AddError(fmt.Sprintf("fetch prices: %v", err))
		return
	}

	stats.StaleDropped = len(batch.Stale)
	if len(batch.Stale) > 0 {
		m.logger.Warn(ctx, "dropping stale prices", "count", len(batch.Stale))
		for _, stale := range batch.Stale {
			m.logger.Debug(ctx, "stale price",
				"chain", stale.Chain,
				"pair", stale.Pair,
				"age_seconds", stale.Age,
			)
		}
	}

	for _, obs := range batch.Prices {
		storeCtx, cancel := context.WithTimeout(ctx, m.requestTimeout)
		err := m.store.InsertPriceObservation(storeCtx, obs)
		cancel()
		if err != nil {
			stats.AddError(fmt.Sprintf("store price %s/%s: %v", obs.Chain, obs.Pair, err))
			continue
		}
		stats.PricesStored++
	}

	// First pass with zero gas to learn which chains matter, then one
	// representative quote per chain to price the gas legs.
	preliminary := m.detector.Detect(batch.Prices, nil)
	gasCosts := m.refineGasCosts(ctx, preliminary)
	candidates := m.detector.Detect(batch.Prices, gasCosts)

	result := m.lifecycle.Reconcile(ctx, candidates, m.now())
	stats.SpreadsOpened = len(result.Opened)
	stats.SpreadsClosed = len(result.Closed)
	stats.Errors = append(stats.Errors, result.Errors...)

	for _, spread := range result.Opened {
		for _, res := range m.simulator.Simulate(ctx, spread, m.tradeSizes) {
			if res.Err != nil {
				stats.SimTradesErr++
				stats.AddError(fmt.Sprintf("simulate %s %s->%s size %s: %v",
					spread.Pair, spread.BuyChain, spread.SellChain, res.Size.String(), res.Err))
				continue
			}
			stats.SimTradesOK++
		}
	}
}

// refineGasCosts quotes one reference-sized swap per chain appearing in
// the preliminary candidates and takes its gas cost. A failed quote maps
// to zero cost so the candidate survives detection.
func (m *Monitor) refineGasCosts(ctx context.Context, candidates []domain.CandidateSpread) map[string]decimal.Decimal {
	pairs := make(map[string]pricing.Pair)
	for _, c := range candidates {
		pair, err := pricing.ParsePair(c.Pair)
		if err != nil {
			continue
		}
		for _, chain := range []string{c.BuyChain, c.SellChain} {
			if _, ok := pairs[chain]; !ok {
				pairs[chain] = pair
			}
		}
	}

	chains := make([]string, 0, len(pairs))
	for chain := range pairs {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	gasCosts := make(map[string]decimal.Decimal, len(chains))
	for _, chain := range chains {
		pair := pairs[chain]
		quoteCtx, cancel := context.WithTimeout(ctx, m.requestTimeout)
		quote, err := m.quotes.Quote(quoteCtx, chain, pair.Quote, pair.Base, m.referenceSize)
		cancel()
		if err != nil {
			m.logger.Warn(ctx, "gas refinement quote failed, assuming zero cost",
				"chain", chain,
				"pair", pair.String(),
				"error", err,
			)
			gasCosts[chain] = decimal.Zero
			continue
		}
		gasCosts[chain] = quote.GasCostUSD
	}

	return gasCosts
}
