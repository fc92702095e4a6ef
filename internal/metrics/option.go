package metrics

// Config holds metric provider configuration.
type Config struct {
	ServiceName string
}

// OptionFn configures the provider.
type OptionFn func(config Config) Config

// WithServiceName attaches the service name resource attribute.
func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

// PromServerConfig holds scrape endpoint settings.
type PromServerConfig struct {
	port string
}

// PromOptionFn configures the scrape endpoint.
type PromOptionFn func(config PromServerConfig) PromServerConfig

// WithPort overrides the default scrape port.
func WithPort(port string) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.port = port
		return config
	}
}
