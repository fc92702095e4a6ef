// Package main is the entry point for the cross-chain spread monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JPercival/trade-arbitrage/business/monitor/app"
	"github.com/JPercival/trade-arbitrage/business/pricing/domain"
	"github.com/JPercival/trade-arbitrage/business/pricing/infra/llama"
	"github.com/JPercival/trade-arbitrage/business/pricing/infra/paraswap"
	"github.com/JPercival/trade-arbitrage/internal/apm"
	"github.com/JPercival/trade-arbitrage/internal/config"
	"github.com/JPercival/trade-arbitrage/internal/health"
	"github.com/JPercival/trade-arbitrage/internal/logger"
	"github.com/JPercival/trade-arbitrage/internal/metrics"
	"github.com/JPercival/trade-arbitrage/internal/storage/postgres"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("spread-monitor %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting cross-chain spread monitor",
		"version", version,
		"environment", cfg.App.Environment,
	)

	traceProvider := setupTelemetry(ctx, cfg, log)
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:            cfg.Database.DSN,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Info(ctx, "database schema applied")
	}

	repo := postgres.NewRepository(pool)
	registry := cfg.AssetRegistry()

	keys, err := buildWatchKeys(cfg)
	if err != nil {
		return fmt.Errorf("failed to build watch keys: %w", err)
	}

	priceSource, err := llama.NewClient(llama.Config{
		BaseURL:            cfg.PriceFeed.BaseURL,
		Timeout:            cfg.PriceFeed.RequestTimeout,
		MaxPriceAge:        cfg.PriceFeed.MaxPriceAge,
		RateLimitPerMinute: cfg.PriceFeed.RateLimitPerMinute,
	}, keys, log)
	if err != nil {
		return fmt.Errorf("failed to create price feed client: %w", err)
	}

	quoteSource, err := paraswap.NewClient(paraswap.Config{
		BaseURL:            cfg.Quotes.BaseURL,
		Timeout:            cfg.Quotes.RequestTimeout,
		RateLimitPerMinute: cfg.Quotes.RateLimitPerMinute,
	}, registry, log)
	if err != nil {
		return fmt.Errorf("failed to create quote client: %w", err)
	}

	monitor, err := app.NewMonitor(app.Config{
		PollInterval:      cfg.Monitor.PollInterval,
		RequestTimeout:    cfg.PriceFeed.RequestTimeout,
		TradeSizesUSD:     cfg.Monitor.TradeSizesDecimal(),
		ReferenceSizeUSD:  cfg.Monitor.ReferenceTradeSizeDecimal(),
		MinGrossSpreadPct: cfg.Monitor.MinGrossSpreadDecimal(),
		MinNetSpreadPct:   cfg.Monitor.MinNetSpreadDecimal(),
		HighFrictionChain: cfg.Monitor.HighFrictionChain,
	}, priceSource, quoteSource, repo, log)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	healthServer := health.NewServer(cfg.App.HealthPort, version)
	healthServer.RegisterCheck("database", func(ctx context.Context) (bool, string) {
		if err := repo.Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, "connected"
	})
	healthServer.RegisterCheck("price_freshness",
		health.FreshnessCheck(repo.LastPriceTimestamp, 2*cfg.Monitor.PollInterval))
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	}
	defer healthServer.Stop(ctx)

	monitor.Start(ctx)

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	monitor.Stop()

	return nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) apm.TraceProvider {
	if !cfg.Telemetry.Enabled {
		return nil
	}

	if cfg.Telemetry.ServiceName != "" {
		os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	}

	provider := apm.ConsoleProvider
	if cfg.Telemetry.TraceProvider == "otlp" {
		provider = apm.OTLPProvider
	}
	traceProvider := apm.NewTraceProvider(log, apm.WithProvider(provider, log))
	log.Info(ctx, "tracing initialized",
		"provider", cfg.Telemetry.TraceProvider,
		"endpoint", cfg.Telemetry.OTLPEndpoint,
	)

	if _, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
	); err != nil {
		log.Warn(ctx, "failed to initialize metrics provider", "error", err)
		return traceProvider
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go func() {
		if err := metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port))); err != nil {
			log.Warn(ctx, "prometheus metrics server stopped", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return traceProvider
}

// buildWatchKeys produces one price feed key per (chain, pair): the base
// token's address on every chain that lists it.
func buildWatchKeys(cfg *config.Config) ([]llama.WatchKey, error) {
	var keys []llama.WatchKey
	for _, raw := range cfg.Monitor.Pairs {
		pair, err := domain.ParsePair(raw)
		if err != nil {
			return nil, err
		}
		for _, chain := range cfg.Chains {
			for _, token := range chain.Tokens {
				if token.Symbol != pair.Base {
					continue
				}
				keys = append(keys, llama.WatchKey{
					Chain:   chain.Name,
					Address: token.Address,
					Pair:    pair.String(),
				})
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no watchable pairs: check monitor.pairs against configured chains")
	}
	return keys, nil
}
