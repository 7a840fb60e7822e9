// Package infura adapts the Infura Gas API to the blockchain context.
package infura

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/internal/apperror"
	"github.com/fd1az/ethersense/internal/httpclient"
	"github.com/fd1az/ethersense/internal/logger"
	"github.com/fd1az/ethersense/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/ethersense/business/blockchain/infra/infura"
	meterName  = "github.com/fd1az/ethersense/business/blockchain/infra/infura"
)

// ForecasterConfig holds Gas API settings.
type ForecasterConfig struct {
	BaseURL           string // https://gas.api.infura.io/v3/<key>
	NetworkID         int
	RequestsPerMinute int
	Timeout           time.Duration
}

// DefaultForecasterConfig returns mainnet defaults.
func DefaultForecasterConfig(baseURL string) ForecasterConfig {
	return ForecasterConfig{
		BaseURL:           baseURL,
		NetworkID:         1,
		RequestsPerMinute: 60,
		Timeout:           10 * time.Second,
	}
}

// tierResponse is one urgency level as sent on the wire. Fees are decimal
// Gwei strings, wait estimates are milliseconds.
type tierResponse struct {
	SuggestedMaxPriorityFeePerGas string  `json:"suggestedMaxPriorityFeePerGas"`
	SuggestedMaxFeePerGas         string  `json:"suggestedMaxFeePerGas"`
	MinWaitTimeEstimate           float64 `json:"minWaitTimeEstimate"`
	MaxWaitTimeEstimate           float64 `json:"maxWaitTimeEstimate"`
}

// suggestedFeesResponse mirrors GET /networks/{id}/suggestedGasFees.
type suggestedFeesResponse struct {
	Low               *tierResponse `json:"low"`
	Medium            *tierResponse `json:"medium"`
	High              *tierResponse `json:"high"`
	EstimatedBaseFee  string        `json:"estimatedBaseFee"`
	NetworkCongestion *float64      `json:"networkCongestion"`
	PriorityFeeTrend  string        `json:"priorityFeeTrend"`
	BaseFeeTrend      string        `json:"baseFeeTrend"`
}

type forecasterMetrics struct {
	fetches  metric.Int64Counter
	failures metric.Int64Counter
}

// Forecaster implements app.GasForecaster.
type Forecaster struct {
	config  ForecasterConfig
	logger  logger.LoggerInterface
	client  httpclient.Client
	limiter *ratelimit.Limiter

	tracer  trace.Tracer
	metrics *forecasterMetrics
}

// NewForecaster creates a Gas API client.
func NewForecaster(cfg ForecasterConfig, log logger.LoggerInterface) (*Forecaster, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("gas api base url"))
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName("infura-gas"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	f := &Forecaster{
		config:  cfg,
		logger:  log,
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		tracer:  otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return f, nil
}

func (f *Forecaster) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &forecasterMetrics{}

	f.metrics.fetches, err = meter.Int64Counter(
		"gas_forecast_fetches_total",
		metric.WithDescription("Gas forecast requests"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	f.metrics.failures, err = meter.Int64Counter(
		"gas_forecast_failures_total",
		metric.WithDescription("Gas forecast requests that produced no forecast"),
		metric.WithUnit("{fetch}"),
	)
	return err
}

// GasForecast makes a single request. Any failure yields nil; there is no retry.
func (f *Forecaster) GasForecast(ctx context.Context) *domain.GasForecast {
	ctx, span := f.tracer.Start(ctx, "gas.forecast",
		trace.WithAttributes(attribute.Int("network_id", f.config.NetworkID)),
	)
	defer span.End()

	f.metrics.fetches.Add(ctx, 1)

	forecast, err := f.fetch(ctx)
	if err != nil {
		f.metrics.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("code", string(apperror.GetCode(err)))))
		f.logger.Warn(ctx, "gas forecast unavailable", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "forecast failed")
		return nil
	}

	span.SetAttributes(
		attribute.String("base_fee_gwei", forecast.EstimatedBaseFeeGwei.String()),
		attribute.Float64("congestion", forecast.NetworkCongestion),
	)
	span.SetStatus(codes.Ok, "fetched")
	return forecast
}

func (f *Forecaster) fetch(ctx context.Context) (*domain.GasForecast, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body suggestedFeesResponse
	_, err := f.client.NewRequest(
		httpclient.WithResponseErrorHandler(httpclient.ExpectSuccess(func(status int) error {
			return apperror.New(apperror.CodeGasForecastHTTPError,
				apperror.WithContext(fmt.Sprintf("status %d", status)))
		})),
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "suggestedGasFees")),
	).
		SetResult(&body).
		Get(ctx, fmt.Sprintf("/networks/%d/suggestedGasFees", f.config.NetworkID))
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		if errors.Is(err, httpclient.ErrDecode) {
			return nil, apperror.New(apperror.CodeInvalidGasForecast, apperror.WithCause(err))
		}
		return nil, apperror.New(apperror.CodeGasForecastFailed, apperror.WithCause(err))
	}

	return body.toDomain()
}

func (r *suggestedFeesResponse) toDomain() (*domain.GasForecast, error) {
	invalid := func(field string, cause error) error {
		return apperror.New(apperror.CodeInvalidGasForecast,
			apperror.WithCause(cause), apperror.WithContext(field))
	}

	low, err := r.Low.toDomain()
	if err != nil {
		return nil, invalid("low", err)
	}
	medium, err := r.Medium.toDomain()
	if err != nil {
		return nil, invalid("medium", err)
	}
	high, err := r.High.toDomain()
	if err != nil {
		return nil, invalid("high", err)
	}

	baseFee, err := decimal.NewFromString(r.EstimatedBaseFee)
	if err != nil {
		return nil, invalid("estimatedBaseFee", err)
	}

	if r.NetworkCongestion == nil {
		return nil, invalid("networkCongestion", fmt.Errorf("missing"))
	}
	congestion := *r.NetworkCongestion
	if congestion < 0 || congestion > 1 {
		return nil, invalid("networkCongestion", fmt.Errorf("%v outside [0,1]", congestion))
	}

	priorityTrend, err := domain.ParseTrend(r.PriorityFeeTrend)
	if err != nil {
		return nil, invalid("priorityFeeTrend", err)
	}
	baseTrend, err := domain.ParseTrend(r.BaseFeeTrend)
	if err != nil {
		return nil, invalid("baseFeeTrend", err)
	}

	return &domain.GasForecast{
		Low:                  low,
		Medium:               medium,
		High:                 high,
		EstimatedBaseFeeGwei: baseFee,
		NetworkCongestion:    congestion,
		PriorityFeeTrend:     priorityTrend,
		BaseFeeTrend:         baseTrend,
	}, nil
}

func (t *tierResponse) toDomain() (domain.FeeTier, error) {
	if t == nil {
		return domain.FeeTier{}, fmt.Errorf("missing tier")
	}

	priority, err := decimal.NewFromString(t.SuggestedMaxPriorityFeePerGas)
	if err != nil {
		return domain.FeeTier{}, fmt.Errorf("suggestedMaxPriorityFeePerGas: %w", err)
	}
	maxFee, err := decimal.NewFromString(t.SuggestedMaxFeePerGas)
	if err != nil {
		return domain.FeeTier{}, fmt.Errorf("suggestedMaxFeePerGas: %w", err)
	}

	return domain.FeeTier{
		PriorityFeeGwei: priority,
		MaxFeeGwei:      maxFee,
		MinWait:         time.Duration(t.MinWaitTimeEstimate * float64(time.Millisecond)),
		MaxWait:         time.Duration(t.MaxWaitTimeEstimate * float64(time.Millisecond)),
	}, nil
}
