// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/JPercival/trade-arbitrage/internal/asset"
)

// Config holds all application configuration. It is constructed once at
// startup and passed by value into component constructors; nothing reads
// ambient global state.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	PriceFeed PriceFeedConfig `mapstructure:"price_feed"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Chains    []ChainConfig   `mapstructure:"chains"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// PriceFeedConfig configures the aggregated price source (Adapter A).
type PriceFeedConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxPriceAge        time.Duration `mapstructure:"max_price_age"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

// QuotesConfig configures the execution quote source (Adapter B).
type QuotesConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
}

// MonitorConfig holds detection thresholds and polling settings.
type MonitorConfig struct {
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	Pairs                 []string      `mapstructure:"pairs"`
	MinGrossSpreadPct     float64       `mapstructure:"min_gross_spread_pct"`
	MinNetSpreadPct       float64       `mapstructure:"min_net_spread_pct"`
	ReferenceTradeSizeUSD float64       `mapstructure:"reference_trade_size_usd"`
	TradeSizesUSD         []float64     `mapstructure:"trade_sizes_usd"`
	HighFrictionChain     string        `mapstructure:"high_friction_chain"`
}

// MinGrossSpreadDecimal returns the gross threshold as decimal.Decimal.
func (c *MonitorConfig) MinGrossSpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinGrossSpreadPct)
}

// MinNetSpreadDecimal returns the net threshold as decimal.Decimal.
func (c *MonitorConfig) MinNetSpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinNetSpreadPct)
}

// ReferenceTradeSizeDecimal returns the reference size as decimal.Decimal.
func (c *MonitorConfig) ReferenceTradeSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ReferenceTradeSizeUSD)
}

// TradeSizesDecimal returns the notional trade sizes as decimal.Decimal.
func (c *MonitorConfig) TradeSizesDecimal() []decimal.Decimal {
	result := make([]decimal.Decimal, len(c.TradeSizesUSD))
	for i, s := range c.TradeSizesUSD {
		result[i] = decimal.NewFromFloat(s)
	}
	return result
}

// ChainConfig describes one watched chain and its token deployments.
type ChainConfig struct {
	Name    string        `mapstructure:"name"`
	ChainID int           `mapstructure:"chain_id"`
	Tokens  []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig describes one token deployment on a chain.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals int    `mapstructure:"decimals"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // "console", "otlp" or ""
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Upstream APIs
	v.BindEnv("price_feed.base_url", "ARB_PRICE_FEED_URL", "PRICE_FEED_URL")
	v.BindEnv("quotes.base_url", "ARB_QUOTES_URL", "QUOTES_URL")

	// Monitor
	v.BindEnv("monitor.poll_interval", "ARB_POLL_INTERVAL")
	v.BindEnv("monitor.min_gross_spread_pct", "ARB_MIN_GROSS_SPREAD_PCT")
	v.BindEnv("monitor.min_net_spread_pct", "ARB_MIN_NET_SPREAD_PCT")

	// Database
	v.BindEnv("database.dsn", "ARB_DATABASE_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "trade-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	// Price feed defaults (DefiLlama-compatible coins API)
	v.SetDefault("price_feed.base_url", "https://coins.llama.fi")
	v.SetDefault("price_feed.request_timeout", "10s")
	v.SetDefault("price_feed.max_price_age", "5m")
	v.SetDefault("price_feed.rate_limit_per_minute", 60)

	// Quote source defaults (ParaSwap-compatible prices API)
	v.SetDefault("quotes.base_url", "https://apiv5.paraswap.io")
	v.SetDefault("quotes.request_timeout", "10s")
	v.SetDefault("quotes.rate_limit_per_minute", 60)

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "30s")
	v.SetDefault("monitor.pairs", []string{"ETH/USDC"})
	v.SetDefault("monitor.min_gross_spread_pct", 0.05)
	v.SetDefault("monitor.min_net_spread_pct", 0.02)
	v.SetDefault("monitor.reference_trade_size_usd", 10000)
	v.SetDefault("monitor.trade_sizes_usd", []float64{1000, 5000, 10000})
	v.SetDefault("monitor.high_friction_chain", "ethereum")

	// Database defaults
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.migrate_on_start", true)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "trade-arbitrage")
	v.SetDefault("telemetry.trace_provider", "console")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.PriceFeed.BaseURL == "" {
		return fmt.Errorf("price_feed.base_url is required")
	}
	if c.Quotes.BaseURL == "" {
		return fmt.Errorf("quotes.base_url is required")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if c.Monitor.ReferenceTradeSizeUSD <= 0 {
		return fmt.Errorf("monitor.reference_trade_size_usd must be positive")
	}
	if len(c.Monitor.Pairs) == 0 {
		return fmt.Errorf("monitor.pairs cannot be empty")
	}
	for _, p := range c.Monitor.Pairs {
		if !strings.Contains(p, "/") {
			return fmt.Errorf("invalid pair %q: expected BASE/QUOTE", p)
		}
	}
	if len(c.Chains) < 2 {
		return fmt.Errorf("at least two chains are required to detect spreads")
	}
	seen := make(map[string]bool)
	for _, ch := range c.Chains {
		name := strings.ToLower(ch.Name)
		if name == "" {
			return fmt.Errorf("chain name cannot be empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate chain %q", ch.Name)
		}
		seen[name] = true
		if ch.ChainID <= 0 {
			return fmt.Errorf("chain %q: chain_id must be positive", ch.Name)
		}
		for _, t := range ch.Tokens {
			if t.Symbol == "" || t.Address == "" {
				return fmt.Errorf("chain %q: token symbol and address are required", ch.Name)
			}
			if t.Decimals < 0 || t.Decimals > 30 {
				return fmt.Errorf("chain %q token %q: suspicious decimals %d", ch.Name, t.Symbol, t.Decimals)
			}
		}
	}
	return nil
}

// AssetRegistry builds the immutable chain/token registry from config.
func (c *Config) AssetRegistry() *asset.Registry {
	reg := asset.NewRegistry()
	for _, ch := range c.Chains {
		chain := &asset.Chain{Name: strings.ToLower(ch.Name), ID: ch.ChainID}
		reg.RegisterChain(chain)
		for _, t := range ch.Tokens {
			reg.RegisterToken(ch.Name, asset.Token{
				Symbol:   strings.ToUpper(t.Symbol),
				Address:  t.Address,
				Decimals: t.Decimals,
			})
		}
	}
	return reg
}
