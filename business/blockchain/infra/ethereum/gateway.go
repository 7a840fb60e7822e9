package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/internal/apperror"
	"github.com/fd1az/ethersense/internal/circuitbreaker"
	"github.com/fd1az/ethersense/internal/httpclient"
	"github.com/fd1az/ethersense/internal/logger"
)

// GatewayConfig holds the JSON-RPC endpoints.
type GatewayConfig struct {
	PrimaryURL  string        // tried first for block numbers
	FallbackURL string        // single fallback hop, and the only gas price source
	Timeout     time.Duration // per HTTP request
}

// DefaultGatewayConfig returns sensible defaults.
func DefaultGatewayConfig(primaryURL, fallbackURL string) GatewayConfig {
	return GatewayConfig{
		PrimaryURL:  primaryURL,
		FallbackURL: fallbackURL,
		Timeout:     10 * time.Second,
	}
}

type gatewayMetrics struct {
	rpcCalls     metric.Int64Counter
	rpcFailures  metric.Int64Counter
	fallbackUsed metric.Int64Counter
	rpcLatency   metric.Float64Histogram
}

// endpoint is one JSON-RPC upstream with its own breakers.
type endpoint struct {
	name    string
	client  *ethclient.Client
	blockCB *circuitbreaker.CircuitBreaker[uint64]
	gasCB   *circuitbreaker.CircuitBreaker[*big.Int]
}

// Gateway implements app.ChainReader over two JSON-RPC endpoints.
type Gateway struct {
	config GatewayConfig
	logger logger.LoggerInterface

	primary  *endpoint
	fallback *endpoint

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// NewGateway creates the gateway. No network traffic happens until the first call.
func NewGateway(ctx context.Context, cfg GatewayConfig, log logger.LoggerInterface) (*Gateway, error) {
	g := &Gateway{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var err error
	if g.primary, err = g.newEndpoint(ctx, "primary", cfg.PrimaryURL); err != nil {
		return nil, err
	}
	if g.fallback, err = g.newEndpoint(ctx, "fallback", cfg.FallbackURL); err != nil {
		g.primary.client.Close()
		return nil, err
	}

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.rpcCalls, err = meter.Int64Counter(
		"eth_rpc_calls_total",
		metric.WithDescription("Total JSON-RPC calls by endpoint and method"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.rpcFailures, err = meter.Int64Counter(
		"eth_rpc_failures_total",
		metric.WithDescription("Failed JSON-RPC calls by endpoint and method"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.fallbackUsed, err = meter.Int64Counter(
		"eth_rpc_fallback_total",
		metric.WithDescription("Times the fallback endpoint answered for the primary"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	g.metrics.rpcLatency, err = meter.Float64Histogram(
		"eth_rpc_latency_ms",
		metric.WithDescription("JSON-RPC call latency"),
		metric.WithUnit("ms"),
	)
	return err
}

func (g *Gateway) newEndpoint(ctx context.Context, name, url string) (*endpoint, error) {
	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("eth-rpc-"+name),
		httpclient.WithRequestTimeout(g.config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(hc.HTTPClient()))
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(name+" rpc endpoint"))
	}

	onChange := func(breaker string, from, to gobreaker.State) {
		g.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", breaker, "from", from.String(), "to", to.String())
	}

	blockCfg := circuitbreaker.DefaultConfig("eth-" + name + "-block")
	blockCfg.OnStateChange = onChange
	gasCfg := circuitbreaker.DefaultConfig("eth-" + name + "-gas")
	gasCfg.OnStateChange = onChange

	return &endpoint{
		name:    name,
		client:  ethclient.NewClient(rpcClient),
		blockCB: circuitbreaker.New[uint64](blockCfg),
		gasCB:   circuitbreaker.New[*big.Int](gasCfg),
	}, nil
}

// LatestBlockNumber asks the primary, then the fallback once. Both failing yields 0.
func (g *Gateway) LatestBlockNumber(ctx context.Context) uint64 {
	ctx, span := g.tracer.Start(ctx, "eth.block_number")
	defer span.End()

	n, err := g.blockNumber(ctx, g.primary)
	if err == nil {
		span.SetAttributes(attribute.Int64("block_number", int64(n)), attribute.String("endpoint", g.primary.name))
		span.SetStatus(codes.Ok, "primary")
		return n
	}

	g.logger.Warn(ctx, "primary rpc failed, trying fallback", "error", err)
	span.AddEvent("primary_failed")

	n, err = g.blockNumber(ctx, g.fallback)
	if err != nil {
		g.logger.Warn(ctx, "fallback rpc failed, block number unknown", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "all endpoints failed")
		return 0
	}

	g.metrics.fallbackUsed.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "eth_blockNumber")))
	span.SetAttributes(attribute.Int64("block_number", int64(n)), attribute.String("endpoint", g.fallback.name))
	span.SetStatus(codes.Ok, "fallback")
	return n
}

// GasPriceGwei queries the fallback endpoint only. Failure yields "0".
func (g *Gateway) GasPriceGwei(ctx context.Context) string {
	ctx, span := g.tracer.Start(ctx, "eth.gas_price")
	defer span.End()

	ep := g.fallback
	start := time.Now()
	wei, err := ep.gasCB.Execute(func() (*big.Int, error) {
		return ep.client.SuggestGasPrice(ctx)
	})
	g.record(ctx, ep.name, "eth_gasPrice", start, err)

	if err != nil {
		err = apperror.New(apperror.CodeGasPriceFailed,
			apperror.WithCause(err), apperror.WithContext(ep.name))
		g.logger.Warn(ctx, "gas price lookup failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price failed")
		return domain.UnknownGasPrice
	}

	gwei := domain.WeiToGwei(wei)
	span.SetAttributes(attribute.String("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")
	return gwei
}

func (g *Gateway) blockNumber(ctx context.Context, ep *endpoint) (uint64, error) {
	start := time.Now()
	n, err := ep.blockCB.Execute(func() (uint64, error) {
		return ep.client.BlockNumber(ctx)
	})
	g.record(ctx, ep.name, "eth_blockNumber", start, err)

	if err != nil {
		code := apperror.CodePrimaryRPCFailed
		if ep == g.fallback {
			code = apperror.CodeFallbackRPCFailed
		}
		return 0, apperror.New(code, apperror.WithCause(err), apperror.WithContext("eth_blockNumber"))
	}
	return n, nil
}

func (g *Gateway) record(ctx context.Context, endpoint, method string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
	)
	g.metrics.rpcCalls.Add(ctx, 1, attrs)
	g.metrics.rpcLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		g.metrics.rpcFailures.Add(ctx, 1, attrs)
	}
}

// Close releases both RPC clients.
func (g *Gateway) Close() {
	g.primary.client.Close()
	g.fallback.client.Close()
}
