package domain

import (
	"math/big"
	"testing"
)

func TestWeiToGwei(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want string
	}{
		{"one gwei", big.NewInt(0x3B9ACA00), "1.00"},
		{"fractional rounds", big.NewInt(12_345_678_901), "12.35"},
		{"sub gwei", big.NewInt(1_000_000), "0.00"},
		{"nil", nil, UnknownGasPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeiToGwei(tt.wei); got != tt.want {
				t.Errorf("WeiToGwei(%v) = %q, want %q", tt.wei, got, tt.want)
			}
		})
	}
}

func TestGasForecast_Level(t *testing.T) {
	tests := []struct {
		congestion float64
		want       CongestionLevel
	}{
		{0, CongestionLow},
		{0.39, CongestionLow},
		{0.4, CongestionNormal},
		{0.8, CongestionNormal},
		{0.81, CongestionHigh},
		{1, CongestionHigh},
	}

	for _, tt := range tests {
		f := &GasForecast{NetworkCongestion: tt.congestion}
		if got := f.Level(); got != tt.want {
			t.Errorf("Level(%v) = %v, want %v", tt.congestion, got, tt.want)
		}
	}
}

func TestGasForecast_NetworkTip(t *testing.T) {
	calm := &GasForecast{NetworkCongestion: 0.5}
	busy := &GasForecast{NetworkCongestion: 0.9}

	if calm.NetworkTip() == busy.NetworkTip() {
		t.Fatal("tips should differ between calm and congested networks")
	}
	if busy.CongestionPercent() != 90 {
		t.Errorf("CongestionPercent = %d, want 90", busy.CongestionPercent())
	}
}

func TestParseTrend(t *testing.T) {
	for _, ok := range []string{"up", "down", "stable"} {
		if _, err := ParseTrend(ok); err != nil {
			t.Errorf("ParseTrend(%q) unexpected error: %v", ok, err)
		}
	}
	if _, err := ParseTrend("sideways"); err == nil {
		t.Error("ParseTrend(sideways) should fail")
	}
}
