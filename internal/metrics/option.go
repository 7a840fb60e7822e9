package metrics

import (
	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/fd1az/ethersense/internal/apm"
)

type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "customOtelCollector"
	InsecureOtel                = false
	SecureOtel                  = true
)

// NewOtelCollectorConfig exports metrics to an OTLP gRPC collector. headers
// uses the "k1=v1,k2=v2" form.
func NewOtelCollectorConfig(url, headers string, insecure bool) ProviderCfg {
	return ProviderCfg{
		Provider: OtelCollector,
		Endpoint: url,
		Headers:  apm.ParseHeaders(headers),
		Insecure: insecure,
	}
}

type Config struct {
	ServiceName string
	Provider    []ProviderCfg
	// Registry replaces the default Prometheus registerer when set.
	Registry promclient.Registerer
}

type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

type OptionFn func(config Config) Config

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)

		return config
	}
}

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName

		return config
	}
}

func WithRegistry(reg promclient.Registerer) OptionFn {
	return func(config Config) Config {
		config.Registry = reg

		return config
	}
}

type PromServerConfig struct {
	port     string
	gatherer promclient.Gatherer
}

type PromOptionFn func(config PromServerConfig) PromServerConfig

func WithPort(port string) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.port = port
		return config
	}
}

func WithGatherer(g promclient.Gatherer) PromOptionFn {
	return func(config PromServerConfig) PromServerConfig {
		config.gatherer = g
		return config
	}
}
