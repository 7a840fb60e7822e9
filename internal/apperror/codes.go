package apperror

// Code identifies an error class independent of its message.
type Code string

const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// JSON-RPC gateway
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodePrimaryRPCFailed         Code = "PRIMARY_RPC_FAILED"
	CodeFallbackRPCFailed        Code = "FALLBACK_RPC_FAILED"
	CodeGasPriceFailed           Code = "GAS_PRICE_FAILED"
)

// Gas forecast service
const (
	CodeGasForecastFailed    Code = "GAS_FORECAST_FAILED"
	CodeInvalidGasForecast   Code = "INVALID_GAS_FORECAST"
	CodeGasForecastHTTPError Code = "GAS_FORECAST_HTTP_ERROR"
)

// Live subscription and its transport
const (
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeInvalidSubscriptionMsg   Code = "INVALID_SUBSCRIPTION_MESSAGE"
	CodeSubscriberStopped        Code = "SUBSCRIBER_STOPPED"
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)

// Circuit breaker
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
