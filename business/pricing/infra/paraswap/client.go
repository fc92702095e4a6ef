// Package paraswap implements the swap quote adapter. It asks a
// ParaSwap-compatible aggregator to price a concrete swap of a given size
// on a given chain, returning the executable route and its gas cost.
package paraswap

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/internal/apperror"
	"github.com/JPercival/trade-arbitrage/internal/asset"
	"github.com/JPercival/trade-arbitrage/internal/circuitbreaker"
	"github.com/JPercival/trade-arbitrage/internal/httpclient"
	"github.com/JPercival/trade-arbitrage/internal/logger"
	"github.com/JPercival/trade-arbitrage/internal/ratelimit"

	"github.com/shopspring/decimal"
)

const (
	tracerName     = "quotes.paraswap"
	pricesEndpoint = "/prices"

	defaultTimeout = 10 * time.Second
	sideSell       = "SELL"
)

// Config holds configuration for the quote client.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	RateLimitPerMinute int
}

// Client requests swap quotes against a fixed asset registry.
type Client struct {
	client   httpclient.Client
	breaker  *circuitbreaker.Breaker
	limiter  *ratelimit.Limiter
	registry *asset.Registry
	logger   logger.LoggerInterface
	tracer   trace.Tracer
	now      func() time.Time
}

// NewClient creates a quote client resolving tokens through the registry.
func NewClient(cfg Config, registry *asset.Registry, log logger.LoggerInterface) (*Client, error) {
	if registry == nil {
		return nil, fmt.Errorf("paraswap: nil asset registry")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rpm := cfg.RateLimitPerMinute
	if rpm == 0 {
		rpm = 60
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("paraswap"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("paraswap: failed to create HTTP client: %w", err)
	}

	return &Client{
		client:   client,
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig("paraswap")),
		limiter:  ratelimit.New(rpm),
		registry: registry,
		logger:   log,
		tracer:   tracer,
		now:      time.Now,
	}, nil
}

type routeHop struct {
	Exchange string  `json:"exchange"`
	Percent  float64 `json:"percent"`
}

type priceRoute struct {
	SrcAmount    string `json:"srcAmount"`
	DestAmount   string `json:"destAmount"`
	SrcDecimals  int    `json:"srcDecimals"`
	DestDecimals int    `json:"destDecimals"`
	GasCostUSD   string `json:"gasCostUSD"`
	BestRoute    []struct {
		Swaps []struct {
			SwapExchanges []routeHop `json:"swapExchanges"`
		} `json:"swaps"`
	} `json:"bestRoute"`
}

type quoteResponse struct {
	PriceRoute *priceRoute `json:"priceRoute"`
}

// Quote prices a sell of amount fromSymbol into toSymbol on the given
// chain. The amount is in whole token units and is converted to the
// token's smallest units before the request.
func (c *Client) Quote(ctx context.Context, chain, fromSymbol, toSymbol string, amount decimal.Decimal) (*pricing.SwapQuote, error) {
	ctx, span := c.tracer.Start(ctx, "paraswap.quote",
		trace.WithAttributes(
			attribute.String("chain", chain),
			attribute.String("from", fromSymbol),
			attribute.String("to", toSymbol),
		),
	)
	defer span.End()

	ch, ok := c.registry.Chain(chain)
	if !ok {
		return nil, apperror.Validation(apperror.CodeUnknownChain, fmt.Sprintf("chain=%s", chain))
	}
	src, ok := ch.Token(fromSymbol)
	if !ok {
		return nil, apperror.Validation(apperror.CodeUnknownToken, fmt.Sprintf("chain=%s token=%s", chain, fromSymbol))
	}
	dest, ok := ch.Token(toSymbol)
	if !ok {
		return nil, apperror.Validation(apperror.CodeUnknownToken, fmt.Sprintf("chain=%s token=%s", chain, toSymbol))
	}
	if !amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("amount=%s", amount))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapTransportError(err, "rate limiter interrupted")
	}

	// Smallest units, truncated toward zero.
	rawAmount := amount.Shift(int32(src.Decimals)).Truncate(0).String()

	var result quoteResponse
	err := c.breaker.Execute(func() error {
		resp, reqErr := c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "prices")),
			httpclient.WithResponseErrorHandler(statusErrorHandler),
		).
			SetQueryParams(map[string]string{
				"srcToken":     src.Address,
				"destToken":    dest.Address,
				"amount":       rawAmount,
				"srcDecimals":  strconv.Itoa(src.Decimals),
				"destDecimals": strconv.Itoa(dest.Decimals),
				"network":      strconv.Itoa(ch.ID),
				"side":         sideSell,
			}).
			SetResult(&result).
			Get(ctx, pricesEndpoint)

		return classifyRequestError(reqErr, resp)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	quote, err := c.toQuote(chain, fromSymbol, toSymbol, result)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("dest_amount", quote.DestAmount.String()))
	return quote, nil
}

func (c *Client) toQuote(chain, fromSymbol, toSymbol string, result quoteResponse) (*pricing.SwapQuote, error) {
	route := result.PriceRoute
	if route == nil {
		return nil, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithMessage("quote response has no price route"),
			apperror.WithContext(fmt.Sprintf("provider=paraswap chain=%s", chain)),
		)
	}

	srcAmount, err := decimal.NewFromString(route.SrcAmount)
	if err != nil {
		return nil, malformedField(chain, "srcAmount", err)
	}
	destAmount, err := decimal.NewFromString(route.DestAmount)
	if err != nil {
		return nil, malformedField(chain, "destAmount", err)
	}

	gasCostUSD := decimal.Zero
	if route.GasCostUSD != "" {
		gasCostUSD, err = decimal.NewFromString(route.GasCostUSD)
		if err != nil {
			return nil, malformedField(chain, "gasCostUSD", err)
		}
	}

	var hops []pricing.RouteHop
	for _, leg := range route.BestRoute {
		for _, swap := range leg.Swaps {
			for _, ex := range swap.SwapExchanges {
				hops = append(hops, pricing.RouteHop{
					Exchange: ex.Exchange,
					Percent:  ex.Percent,
				})
			}
		}
	}

	return &pricing.SwapQuote{
		Chain:        chain,
		SrcToken:     fromSymbol,
		DestToken:    toSymbol,
		SrcAmount:    srcAmount,
		DestAmount:   destAmount,
		SrcDecimals:  route.SrcDecimals,
		DestDecimals: route.DestDecimals,
		GasCostUSD:   gasCostUSD,
		Route:        hops,
		Timestamp:    c.now(),
	}, nil
}

func malformedField(chain, field string, cause error) error {
	return apperror.New(apperror.CodeMalformedResponse,
		apperror.WithMessage(fmt.Sprintf("quote response field %s is not numeric", field)),
		apperror.WithContext(fmt.Sprintf("provider=paraswap chain=%s field=%s", chain, field)),
		apperror.WithCause(cause),
	)
}
