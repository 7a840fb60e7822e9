package infura

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/internal/logger"
)

const suggestedFees = `{
  "low": {"suggestedMaxPriorityFeePerGas": "0.05", "suggestedMaxFeePerGas": "16.68", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 30000},
  "medium": {"suggestedMaxPriorityFeePerGas": "0.1", "suggestedMaxFeePerGas": "22.52", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 45000},
  "high": {"suggestedMaxPriorityFeePerGas": "0.3", "suggestedMaxFeePerGas": "27.56", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 60000},
  "estimatedBaseFee": "16.63",
  "networkCongestion": 0.5312,
  "latestPriorityFeeRange": ["0.0001", "17"],
  "historicalPriorityFeeRange": ["0.0001", "100"],
  "historicalBaseFeeRange": ["10.1", "25.7"],
  "priorityFeeTrend": "down",
  "baseFeeTrend": "up",
  "version": "0.0.1"
}`

func newTestForecaster(t *testing.T, handler http.HandlerFunc) *Forecaster {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultForecasterConfig(server.URL + "/v3/test-key")
	cfg.Timeout = 2 * time.Second
	cfg.RequestsPerMinute = 6000

	f, err := NewForecaster(cfg, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	if err != nil {
		t.Fatalf("NewForecaster: %v", err)
	}
	return f
}

func TestForecaster_GasForecast(t *testing.T) {
	var path string
	f := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, suggestedFees)
	})

	got := f.GasForecast(context.Background())
	if got == nil {
		t.Fatal("GasForecast() = nil, want forecast")
	}

	if path != "/v3/test-key/networks/1/suggestedGasFees" {
		t.Errorf("request path = %q", path)
	}
	if !got.Medium.MaxFeeGwei.Equal(decimal.RequireFromString("22.52")) {
		t.Errorf("medium max fee = %s", got.Medium.MaxFeeGwei)
	}
	if !got.EstimatedBaseFeeGwei.Equal(decimal.RequireFromString("16.63")) {
		t.Errorf("base fee = %s", got.EstimatedBaseFeeGwei)
	}
	if got.High.MaxWait != time.Minute {
		t.Errorf("high max wait = %v, want 1m", got.High.MaxWait)
	}
	if got.Low.MinWait != 15*time.Second {
		t.Errorf("low min wait = %v, want 15s", got.Low.MinWait)
	}
	if got.NetworkCongestion != 0.5312 {
		t.Errorf("congestion = %v", got.NetworkCongestion)
	}
	if got.PriorityFeeTrend != domain.TrendDown || got.BaseFeeTrend != domain.TrendUp {
		t.Errorf("trends = %v/%v", got.PriorityFeeTrend, got.BaseFeeTrend)
	}
}

func TestForecaster_GasForecast_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"not found"}`},
		{"server error", http.StatusInternalServerError, suggestedFees},
		{"malformed json", http.StatusOK, `{"low":`},
		{"bad decimal", http.StatusOK, strings.Replace(suggestedFees, `"16.63"`, `"sixteen"`, 1)},
		{"unknown trend", http.StatusOK, strings.Replace(suggestedFees, `"down"`, `"sideways"`, 1)},
		{"congestion out of range", http.StatusOK, strings.Replace(suggestedFees, `0.5312`, `1.7`, 1)},
		{"missing tier", http.StatusOK, `{"estimatedBaseFee":"1","networkCongestion":0.1,"priorityFeeTrend":"up","baseFeeTrend":"up"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			if got := f.GasForecast(context.Background()); got != nil {
				t.Errorf("GasForecast() = %+v, want nil", got)
			}
		})
	}
}

func TestForecaster_SingleRequestNoRetry(t *testing.T) {
	calls := 0
	f := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	f.GasForecast(context.Background())

	if calls != 1 {
		t.Errorf("requests = %d, want 1", calls)
	}
}

func TestForecaster_CancelledContext(t *testing.T) {
	f := newTestForecaster(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, suggestedFees)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := f.GasForecast(ctx); got != nil {
		t.Error("cancelled context should yield no forecast")
	}
}
