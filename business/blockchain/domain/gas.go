package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Trend is the direction reported for a fee component.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// ParseTrend accepts only the three known directions.
func ParseTrend(s string) (Trend, error) {
	switch t := Trend(s); t {
	case TrendUp, TrendDown, TrendStable:
		return t, nil
	}
	return "", fmt.Errorf("unknown trend %q", s)
}

// CongestionLevel buckets the congestion score.
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "Low"
	CongestionNormal CongestionLevel = "Normal"
	CongestionHigh   CongestionLevel = "High"
)

const (
	lowCongestionBelow  = 0.4
	highCongestionAbove = 0.8
)

// FeeTier is one urgency level of a forecast. Fees are in Gwei.
type FeeTier struct {
	PriorityFeeGwei decimal.Decimal
	MaxFeeGwei      decimal.Decimal
	MinWait         time.Duration
	MaxWait         time.Duration
}

// GasForecast is an immutable multi-tier fee suggestion.
type GasForecast struct {
	Low                  FeeTier
	Medium               FeeTier
	High                 FeeTier
	EstimatedBaseFeeGwei decimal.Decimal
	NetworkCongestion    float64 // [0,1]
	PriorityFeeTrend     Trend
	BaseFeeTrend         Trend
}

// Level buckets NetworkCongestion: < 0.4 low, > 0.8 high.
func (f *GasForecast) Level() CongestionLevel {
	switch {
	case f.NetworkCongestion < lowCongestionBelow:
		return CongestionLow
	case f.NetworkCongestion > highCongestionAbove:
		return CongestionHigh
	default:
		return CongestionNormal
	}
}

// NetworkTip is the user-facing advice for the current congestion.
func (f *GasForecast) NetworkTip() string {
	if f.NetworkCongestion > highCongestionAbove {
		return "Network congestion is currently high. Consider delaying non-urgent transactions."
	}
	return "Network throughput is optimal. Smart contract interactions are executing within expected fee windows."
}

// CongestionPercent renders the score as a whole percentage.
func (f *GasForecast) CongestionPercent() int {
	return int(decimal.NewFromFloat(f.NetworkCongestion * 100).Round(0).IntPart())
}

// UnknownGasPrice is the sentinel for "no gas price yet".
const UnknownGasPrice = "0"

// WeiToGwei renders wei as Gwei with two decimals, e.g. 1e9 -> "1.00".
func WeiToGwei(wei *big.Int) string {
	if wei == nil {
		return UnknownGasPrice
	}
	return decimal.NewFromBigInt(wei, -9).StringFixed(2)
}
