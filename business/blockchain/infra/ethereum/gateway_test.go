package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

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

// rpcNode is a fake JSON-RPC endpoint answering from a method->result table.
// A missing method answers with HTTP 500.
type rpcNode struct {
	results map[string]string
	calls   atomic.Int32
}

func newRPCNode(t *testing.T, results map[string]string) (*rpcNode, *httptest.Server) {
	t.Helper()
	node := &rpcNode{results: results}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		node.calls.Add(1)

		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		result, ok := node.results[req.Method]
		if !ok {
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if result == "rpc-error" {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32000,"message":"header not found"}}`, req.ID)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, req.ID, result)
	}))
	t.Cleanup(server.Close)
	return node, server
}

func newTestGateway(t *testing.T, primaryURL, fallbackURL string) *Gateway {
	t.Helper()
	cfg := DefaultGatewayConfig(primaryURL, fallbackURL)
	cfg.Timeout = 2 * time.Second

	g, err := NewGateway(context.Background(), cfg, &mockLogger{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestGateway_LatestBlockNumber(t *testing.T) {
	tests := []struct {
		name            string
		primary         map[string]string
		fallback        map[string]string
		want            uint64
		wantFallbackHit bool
	}{
		{
			name:     "primary answers",
			primary:  map[string]string{"eth_blockNumber": "0x12a05f2"},
			fallback: map[string]string{"eth_blockNumber": "0x1"},
			want:     19531250,
		},
		{
			name:            "primary http error falls back",
			primary:         map[string]string{},
			fallback:        map[string]string{"eth_blockNumber": "0x10"},
			want:            16,
			wantFallbackHit: true,
		},
		{
			name:            "primary rpc error falls back",
			primary:         map[string]string{"eth_blockNumber": "rpc-error"},
			fallback:        map[string]string{"eth_blockNumber": "0x10"},
			want:            16,
			wantFallbackHit: true,
		},
		{
			name:            "malformed primary payload falls back",
			primary:         map[string]string{"eth_blockNumber": "not-hex"},
			fallback:        map[string]string{"eth_blockNumber": "0x10"},
			want:            16,
			wantFallbackHit: true,
		},
		{
			name:            "both fail yields zero",
			primary:         map[string]string{},
			fallback:        map[string]string{},
			want:            0,
			wantFallbackHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, primary := newRPCNode(t, tt.primary)
			fallbackNode, fallback := newRPCNode(t, tt.fallback)

			g := newTestGateway(t, primary.URL, fallback.URL)

			got := g.LatestBlockNumber(context.Background())
			if got != tt.want {
				t.Errorf("LatestBlockNumber() = %d, want %d", got, tt.want)
			}
			if hit := fallbackNode.calls.Load() > 0; hit != tt.wantFallbackHit {
				t.Errorf("fallback hit = %v, want %v", hit, tt.wantFallbackHit)
			}
		})
	}
}

func TestGateway_LatestBlockNumber_UnreachablePrimary(t *testing.T) {
	_, fallback := newRPCNode(t, map[string]string{"eth_blockNumber": "0x10"})

	g := newTestGateway(t, "http://127.0.0.1:1", fallback.URL)

	if got := g.LatestBlockNumber(context.Background()); got != 16 {
		t.Errorf("LatestBlockNumber() = %d, want 16", got)
	}
}

func TestGateway_GasPriceGwei(t *testing.T) {
	primaryNode, primary := newRPCNode(t, map[string]string{"eth_gasPrice": "0x1"})
	_, fallback := newRPCNode(t, map[string]string{"eth_gasPrice": "0x3B9ACA00"})

	g := newTestGateway(t, primary.URL, fallback.URL)

	if got := g.GasPriceGwei(context.Background()); got != "1.00" {
		t.Errorf("GasPriceGwei() = %q, want %q", got, "1.00")
	}
	if primaryNode.calls.Load() != 0 {
		t.Error("gas price must only be asked of the fallback endpoint")
	}
}

func TestGateway_GasPriceGwei_Failure(t *testing.T) {
	_, primary := newRPCNode(t, map[string]string{"eth_gasPrice": "0x3B9ACA00"})
	_, fallback := newRPCNode(t, map[string]string{})

	g := newTestGateway(t, primary.URL, fallback.URL)

	if got := g.GasPriceGwei(context.Background()); got != "0" {
		t.Errorf("GasPriceGwei() = %q, want %q", got, "0")
	}
}

func TestGateway_OpenPrimaryBreakerGoesStraightToFallback(t *testing.T) {
	primaryNode, primary := newRPCNode(t, map[string]string{})
	_, fallback := newRPCNode(t, map[string]string{"eth_blockNumber": "0x10"})

	g := newTestGateway(t, primary.URL, fallback.URL)
	ctx := context.Background()

	// DefaultConfig trips after five consecutive failures.
	for i := 0; i < 5; i++ {
		g.LatestBlockNumber(ctx)
	}
	before := primaryNode.calls.Load()

	if got := g.LatestBlockNumber(ctx); got != 16 {
		t.Errorf("LatestBlockNumber() = %d, want 16", got)
	}
	if primaryNode.calls.Load() != before {
		t.Error("primary was called while its breaker was open")
	}
}
