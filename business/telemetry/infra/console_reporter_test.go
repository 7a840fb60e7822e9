package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/domain"
)

func TestConsoleReporter_Update(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := domain.NewChainSnapshot()
	snap.UpdatedAt = time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC)
	r.Update(snap)

	snap.BlockHeight = 19_000_000
	snap.ConnectionState = domain.StateLive
	snap.GasForecast = &blockchainDomain.GasForecast{
		Medium:               blockchainDomain.FeeTier{MaxFeeGwei: decimal.RequireFromString("31.6")},
		EstimatedBaseFeeGwei: decimal.RequireFromString("29.7"),
		NetworkCongestion:    0.91,
		PriorityFeeTrend:     blockchainDomain.TrendDown,
		BaseFeeTrend:         blockchainDomain.TrendUp,
	}
	r.Update(snap)

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}

	first := lines[2]
	for _, want := range []string{"[10:00:01]", "Connecting...", "block ---", "gas 0 Gwei"} {
		if !strings.Contains(first, want) {
			t.Errorf("first update %q missing %q", first, want)
		}
	}

	second := lines[3]
	for _, want := range []string{"WebSocket Live", "block #19000000", "gas 30 Gwei", "med 32", "congestion 91% (High)", "base up priority down"} {
		if !strings.Contains(second, want) {
			t.Errorf("second update %q missing %q", second, want)
		}
	}
}
