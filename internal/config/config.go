// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/fd1az/ethersense/internal/apperror"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	GasAPI    GasAPIConfig    `mapstructure:"gas_api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds JSON-RPC and WebSocket endpoint configuration.
type EthereumConfig struct {
	PrimaryRPCURL  string        `mapstructure:"primary_rpc_url"`
	FallbackRPCURL string        `mapstructure:"fallback_rpc_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GasAPIConfig holds the gas forecast service configuration.
// BaseURL usually embeds the API key, e.g. https://gas.api.infura.io/v3/<key>.
type GasAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	NetworkID         int           `mapstructure:"network_id"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a forecast endpoint is configured.
func (c *GasAPIConfig) Enabled() bool {
	return c.BaseURL != ""
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	HistorySize int  `mapstructure:"history_size"`
	TUIMode     bool `mapstructure:"-"` // Set at runtime, not from config file
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	ZipkinURL      string `mapstructure:"zipkin_url"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds health probe server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
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
	v.SetEnvPrefix("ETS")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ETS_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ETS_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ETS_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.primary_rpc_url", "ETS_ETH_RPC_URL", "ETH_RPC_URL")
	v.BindEnv("ethereum.fallback_rpc_url", "ETS_ETH_FALLBACK_RPC_URL", "ETH_FALLBACK_RPC_URL")
	v.BindEnv("ethereum.websocket_url", "ETS_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.reconnect_delay", "ETS_ETH_RECONNECT_DELAY")

	// Gas API
	v.BindEnv("gas_api.base_url", "ETS_GAS_API_URL", "INFURA_GAS_API_URL")
	v.BindEnv("gas_api.network_id", "ETS_GAS_API_NETWORK_ID")
	v.BindEnv("gas_api.requests_per_minute", "ETS_GAS_API_RPM")

	// Dashboard
	v.BindEnv("dashboard.history_size", "ETS_HISTORY_SIZE")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ETS_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ETS_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ETS_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ETS_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.prometheus_port", "ETS_PROMETHEUS_PORT")
	v.BindEnv("telemetry.zipkin_url", "ETS_ZIPKIN_URL", "ZIPKIN_URL")

	// Health
	v.BindEnv("health.port", "ETS_HEALTH_PORT", "HEALTH_PORT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "ethersense")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.fallback_rpc_url", "https://cloudflare-eth.com")
	v.SetDefault("ethereum.reconnect_delay", "5s")
	v.SetDefault("ethereum.request_timeout", "10s")

	// Gas API defaults
	v.SetDefault("gas_api.network_id", 1)
	v.SetDefault("gas_api.requests_per_minute", 60)
	v.SetDefault("gas_api.timeout", "10s")

	// Dashboard defaults
	v.SetDefault("dashboard.history_size", 15)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ethersense")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8080)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validateURL("ethereum.primary_rpc_url", c.Ethereum.PrimaryRPCURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("ethereum.fallback_rpc_url", c.Ethereum.FallbackRPCURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("ethereum.websocket_url", c.Ethereum.WebSocketURL, "ws", "wss"); err != nil {
		return err
	}
	if c.GasAPI.Enabled() {
		if err := validateURL("gas_api.base_url", c.GasAPI.BaseURL, "http", "https"); err != nil {
			return err
		}
	}
	if c.Ethereum.ReconnectDelay <= 0 {
		return invalid("ethereum.reconnect_delay must be positive", nil)
	}
	if c.Dashboard.HistorySize <= 0 {
		return invalid("dashboard.history_size must be positive", nil)
	}
	return nil
}

func validateURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return invalid(key+" is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalid(key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return invalid(fmt.Sprintf("%s: scheme %q not in %v", key, u.Scheme, schemes), nil)
}

func invalid(context string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(context)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeConfigurationError, opts...)
}
