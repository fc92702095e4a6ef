package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimited:          "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Upstream HTTP APIs
	CodeHTTPError:         "Upstream returned an HTTP error status",
	CodeMalformedResponse: "Upstream response could not be parsed",
	CodeNetworkError:      "Network request failed",

	// Price feed errors
	CodePriceFetchFailed: "Failed to fetch aggregated prices",
	CodeStalePrice:       "Price observation is older than the allowed age",

	// Execution quote errors
	CodeQuoteFailed:  "Failed to get execution quote",
	CodeUnknownChain: "Chain is not configured",
	CodeUnknownToken: "Token is not configured for this chain",

	// Detection errors
	CodeSpreadCalculationError: "Spread calculation error",
	CodeInvalidTradeSize:       "Invalid trade size",

	// Storage errors
	CodeStorageError:       "Storage operation failed",
	CodeStorageConnFailed:  "Failed to connect to storage",
	CodeAggregateRecompute: "Daily aggregate recomputation failed",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
