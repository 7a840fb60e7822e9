package apperror

var messages = map[Code]string{
	CodeRequiredField:      "Required field is missing",
	CodeInvalidFormat:      "Invalid data format",
	CodeInvalidState:       "Invalid state for this operation",
	CodeConfigurationError: "Configuration error",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeUnknownError:       "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodePrimaryRPCFailed:         "Primary RPC endpoint failed",
	CodeFallbackRPCFailed:        "Fallback RPC endpoint failed",
	CodeGasPriceFailed:           "Gas price lookup failed",

	CodeGasForecastFailed:    "Gas forecast request failed",
	CodeInvalidGasForecast:   "Invalid gas forecast payload",
	CodeGasForecastHTTPError: "Gas forecast service returned an error status",

	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeInvalidSubscriptionMsg:   "Invalid subscription message",
	CodeSubscriberStopped:        "Subscriber already stopped",
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
