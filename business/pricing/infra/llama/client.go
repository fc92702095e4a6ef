// Package llama implements the aggregated price source adapter. It speaks
// the DefiLlama-compatible coins API: one GET per cycle with a comma-joined
// list of chain:address keys, returning best-effort aggregated USD prices.
package llama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/internal/circuitbreaker"
	"github.com/JPercival/trade-arbitrage/internal/httpclient"
	"github.com/JPercival/trade-arbitrage/internal/logger"
	"github.com/JPercival/trade-arbitrage/internal/ratelimit"

	"github.com/shopspring/decimal"
)

const (
	tracerName     = "pricefeed.llama"
	pricesEndpoint = "/prices/current/"

	defaultTimeout     = 10 * time.Second
	defaultMaxPriceAge = 5 * time.Minute
)

// WatchKey maps one chain:address key in the upstream request to the
// (chain, pair) it prices.
type WatchKey struct {
	Chain   string
	Address string
	Pair    string
}

// String returns the upstream key form "chain:address".
func (k WatchKey) String() string {
	return k.Chain + ":" + k.Address
}

// Config holds configuration for the price feed client.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	MaxPriceAge        time.Duration
	RateLimitPerMinute int
}

// Client fetches aggregated token prices for a fixed set of watch keys.
type Client struct {
	client  httpclient.Client
	breaker *circuitbreaker.Breaker
	limiter *ratelimit.Limiter
	keys    []WatchKey
	byKey   map[string]WatchKey
	maxAge  time.Duration
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	now     func() time.Time
}

// NewClient creates a price feed client for the given watch keys.
func NewClient(cfg Config, keys []WatchKey, log logger.LoggerInterface) (*Client, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("llama: no watch keys configured")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxAge := cfg.MaxPriceAge
	if maxAge == 0 {
		maxAge = defaultMaxPriceAge
	}
	rpm := cfg.RateLimitPerMinute
	if rpm == 0 {
		rpm = 60
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("llama"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("llama: failed to create HTTP client: %w", err)
	}

	byKey := make(map[string]WatchKey, len(keys))
	for _, k := range keys {
		byKey[strings.ToLower(k.String())] = k
	}

	return &Client{
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("llama")),
		limiter: ratelimit.New(rpm),
		keys:    keys,
		byKey:   byKey,
		maxAge:  maxAge,
		logger:  log,
		tracer:  tracer,
		now:     time.Now,
	}, nil
}

// coinRow is a single entry of the upstream response. Pointer fields let a
// row with a missing or non-numeric value fail its own decode instead of
// the whole response.
type coinRow struct {
	Price      *float64 `json:"price"`
	Timestamp  *int64   `json:"timestamp"`
	Symbol     string   `json:"symbol"`
	Decimals   int      `json:"decimals"`
	Confidence float64  `json:"confidence"`
}

// pricesResponse is the upstream envelope. Rows stay raw so malformed
// entries can be skipped individually.
type pricesResponse struct {
	Coins map[string]json.RawMessage `json:"coins"`
}

// FetchPrices requests current prices for every watch key in one round
// trip. Entries older than the configured maximum age are returned in the
// stale list with their computed age and excluded from the prices list.
func (c *Client) FetchPrices(ctx context.Context) (*pricing.PriceBatch, error) {
	ctx, span := c.tracer.Start(ctx, "llama.fetch_prices",
		trace.WithAttributes(attribute.Int("keys", len(c.keys))),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapTransportError(err, "rate limiter interrupted")
	}

	joined := make([]string, len(c.keys))
	for i, k := range c.keys {
		joined[i] = k.String()
	}
	path := pricesEndpoint + strings.Join(joined, ",")

	var result pricesResponse
	err := c.breaker.Execute(func() error {
		resp, reqErr := c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "prices")),
			httpclient.WithResponseErrorHandler(statusErrorHandler),
		).
			SetResult(&result).
			Get(ctx, path)

		return classifyRequestError(reqErr, resp)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	batch := c.parseBatch(ctx, result)

	span.SetAttributes(
		attribute.Int("prices", len(batch.Prices)),
		attribute.Int("stale", len(batch.Stale)),
	)

	return batch, nil
}

// parseBatch converts upstream rows into observations, silently skipping
// rows that are malformed, reference an unknown key, or carry non-numeric
// values.
func (c *Client) parseBatch(ctx context.Context, result pricesResponse) *pricing.PriceBatch {
	now := c.now().Unix()
	cutoff := now - int64(c.maxAge.Seconds())

	batch := &pricing.PriceBatch{}
	for key, raw := range result.Coins {
		watch, ok := c.byKey[strings.ToLower(key)]
		if !ok {
			c.logger.Debug(ctx, "skipping unknown price key", "key", key)
			continue
		}

		var row coinRow
		if err := json.Unmarshal(raw, &row); err != nil {
			c.logger.Debug(ctx, "skipping malformed price row", "key", key, "error", err)
			continue
		}
		if row.Price == nil || row.Timestamp == nil {
			c.logger.Debug(ctx, "skipping incomplete price row", "key", key)
			continue
		}

		obs := pricing.PriceObservation{
			Chain:     watch.Chain,
			Pair:      watch.Pair,
			Price:     decimal.NewFromFloat(*row.Price),
			Timestamp: *row.Timestamp,
		}

		if *row.Timestamp < cutoff {
			batch.Stale = append(batch.Stale, pricing.StaleObservation{
				PriceObservation: obs,
				Age:              now - *row.Timestamp,
			})
			continue
		}

		batch.Prices = append(batch.Prices, obs)
	}

	return batch
}
