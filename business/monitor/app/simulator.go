package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JPercival/trade-arbitrage/business/monitor/domain"
	pricing "github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/internal/logger"
)

// Simulator prices paper trades over a detected spread using real swap
// quotes. No orders are ever placed.
type Simulator struct {
	quotes QuoteSource
	store  Store
	logger logger.LoggerInterface
	now    func() time.Time
}

// SimResult is the outcome of simulating one trade size. Exactly one of
// Trade and Err is set.
type SimResult struct {
	Size  decimal.Decimal
	Trade *domain.SimTrade
	Err   error
}

// NewSimulator creates a simulator quoting through quotes and recording
// trades in store.
func NewSimulator(quotes QuoteSource, store Store, log logger.LoggerInterface) *Simulator {
	return &Simulator{
		quotes: quotes,
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// Simulate runs one paper trade per configured size: buy the base token
// with size USD of the quote token on the buy chain, then sell everything
// received on the sell chain. Legs are priced sequentially because the
// sell amount depends on the buy outcome. A failure at any leg records an
// error for that size only.
func (s *Simulator) Simulate(ctx context.Context, spread domain.Spread, sizes []decimal.Decimal) []SimResult {
	results := make([]SimResult, 0, len(sizes))
	for _, size := range sizes {
		trade, err := s.simulateOne(ctx, spread, size)
		if err != nil {
			s.logger.Warn(ctx, "trade simulation failed",
				"pair", spread.Pair,
				"buy_chain", spread.BuyChain,
				"sell_chain", spread.SellChain,
				"size_usd", size.String(),
				"error", err,
			)
			results = append(results, SimResult{Size: size, Err: err})
			continue
		}
		results = append(results, SimResult{Size: size, Trade: trade})
	}
	return results
}

func (s *Simulator) simulateOne(ctx context.Context, spread domain.Spread, size decimal.Decimal) (*domain.SimTrade, error) {
	pair, err := pricing.ParsePair(spread.Pair)
	if err != nil {
		return nil, err
	}

	buyQuote, err := s.quotes.Quote(ctx, spread.BuyChain, pair.Quote, pair.Base, size)
	if err != nil {
		return nil, err
	}
	tokensBought := buyQuote.DestTokens()

	sellQuote, err := s.quotes.Quote(ctx, spread.SellChain, pair.Base, pair.Quote, tokensBought)
	if err != nil {
		return nil, err
	}
	usdReceived := sellQuote.DestTokens()

	trade := domain.NewSimTrade(
		spread,
		size,
		tokensBought,
		usdReceived,
		buyQuote.GasCostUSD,
		sellQuote.GasCostUSD,
		s.now(),
	)

	if err := s.store.InsertSimTrade(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "trade simulated",
		"pair", spread.Pair,
		"buy_chain", spread.BuyChain,
		"sell_chain", spread.SellChain,
		"size_usd", size.String(),
		"net_profit_usd", trade.NetProfitUSD.String(),
		"profit_pct", trade.ProfitPct.String(),
	)

	return &trade, nil
}
