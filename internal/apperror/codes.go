package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimited          Code = "RATE_LIMITED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Monitor-specific error codes
const (
	// Upstream HTTP APIs
	CodeHTTPError         Code = "HTTP_ERROR"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"
	CodeNetworkError      Code = "NETWORK_ERROR"

	// Price feed errors
	CodePriceFetchFailed Code = "PRICE_FETCH_FAILED"
	CodeStalePrice       Code = "STALE_PRICE"

	// Execution quote errors
	CodeQuoteFailed  Code = "QUOTE_FAILED"
	CodeUnknownChain Code = "UNKNOWN_CHAIN"
	CodeUnknownToken Code = "UNKNOWN_TOKEN"

	// Detection errors
	CodeSpreadCalculationError Code = "SPREAD_CALCULATION_ERROR"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"

	// Storage errors
	CodeStorageError       Code = "STORAGE_ERROR"
	CodeStorageConnFailed  Code = "STORAGE_CONNECTION_FAILED"
	CodeAggregateRecompute Code = "AGGREGATE_RECOMPUTE_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
