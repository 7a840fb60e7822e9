// Package domain contains the telemetry snapshot model.
package domain

import (
	"fmt"
	"time"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
)

// DefaultHistorySize is the number of block arrivals kept for the chart.
const DefaultHistorySize = 15

const historyTimeLayout = "15:04:05"

// ConnectionState is the dashboard-level liveness indicator.
type ConnectionState string

const (
	StateConnecting ConnectionState = "Connecting"
	StateLive       ConnectionState = "Live"
)

// HistoryPoint is one block arrival.
type HistoryPoint struct {
	Timestamp   string // wall clock, HH:MM:SS
	At          time.Time
	BlockHeight uint64
}

// NewHistoryPoint stamps a block height with its arrival time.
func NewHistoryPoint(at time.Time, height uint64) HistoryPoint {
	return HistoryPoint{
		Timestamp:   at.Format(historyTimeLayout),
		At:          at,
		BlockHeight: height,
	}
}

// ChainSnapshot is the merged view of chain state handed to presentation.
type ChainSnapshot struct {
	BlockHeight     uint64 // 0 = unknown
	GasPriceGwei    string // "0" = unknown
	GasForecast     *blockchainDomain.GasForecast
	History         []HistoryPoint
	ConnectionState ConnectionState
	UpdatedAt       time.Time
}

// NewChainSnapshot returns the initial, empty snapshot.
func NewChainSnapshot() ChainSnapshot {
	return ChainSnapshot{
		GasPriceGwei:    blockchainDomain.UnknownGasPrice,
		ConnectionState: StateConnecting,
	}
}

// Clone returns a copy that shares nothing mutable with s. GasForecast is
// immutable and shared.
func (s ChainSnapshot) Clone() ChainSnapshot {
	c := s
	c.History = append([]HistoryPoint(nil), s.History...)
	return c
}

// IsLive reports whether at least one block height has been observed.
func (s ChainSnapshot) IsLive() bool {
	return s.ConnectionState == StateLive
}

// GasDisplay is the headline gas figure: the forecast base fee rounded to a
// whole Gwei when available, else the simple gas price.
func (s ChainSnapshot) GasDisplay() string {
	if s.GasForecast != nil {
		return s.GasForecast.EstimatedBaseFeeGwei.Round(0).String()
	}
	return s.GasPriceGwei
}

// ChatContext is the one-line summary passed to the chat assistant.
func (s ChainSnapshot) ChatContext() string {
	gas := s.GasPriceGwei
	if s.GasForecast != nil {
		gas = s.GasForecast.EstimatedBaseFeeGwei.String()
	}
	return fmt.Sprintf("Latest block: %d, Current Gas: %s Gwei.", s.BlockHeight, gas)
}

// AppendHistory appends p and evicts the oldest entries beyond max.
func AppendHistory(history []HistoryPoint, p HistoryPoint, max int) []HistoryPoint {
	if max <= 0 {
		max = DefaultHistorySize
	}
	history = append(history, p)
	if over := len(history) - max; over > 0 {
		history = append([]HistoryPoint(nil), history[over:]...)
	}
	return history
}
