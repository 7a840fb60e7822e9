package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/fd1az/ethersense/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func TestPrometheusEndpointExposesOtelCounters(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	reg := promclient.NewRegistry()
	mp, err := NewMetricProvider(context.Background(),
		WithServiceName("ethersense-test"),
		WithRegistry(reg),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider: %v", err)
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := otel.Meter("metrics-test").Int64Counter("eth_blocks_received_total")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	srv := NewPrometheusServer(&mockLogger{}, WithGatherer(reg))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	found := false
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, "eth_blocks_received_total") && strings.HasSuffix(line, " 3") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("counter missing from scrape:\n%s", body)
	}
}

func TestNewOtelCollectorConfig(t *testing.T) {
	cfg := NewOtelCollectorConfig("https://otel.example:4317", "api-key=secret", SecureOtel)
	if cfg.Provider != OtelCollector || cfg.Headers["api-key"] != "secret" || cfg.Insecure {
		t.Errorf("unexpected config %+v", cfg)
	}
}
