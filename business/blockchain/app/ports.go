// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/fd1az/ethersense/business/blockchain/domain"
)

// ChainReader answers one-shot JSON-RPC questions. Implementations never
// return errors: failures come back as the zero sentinels.
type ChainReader interface {
	// LatestBlockNumber returns the head block, or 0 if no endpoint answered.
	LatestBlockNumber(ctx context.Context) uint64

	// GasPriceGwei returns a two-decimal Gwei string, or "0" on failure.
	GasPriceGwei(ctx context.Context) string
}

// GasForecaster fetches multi-tier fee suggestions.
type GasForecaster interface {
	// GasForecast returns nil on any failure.
	GasForecast(ctx context.Context) *domain.GasForecast
}

// BlockSubscriber pushes new block numbers from a live subscription.
type BlockSubscriber interface {
	// Start begins connecting in the background. It may be called once.
	Start(ctx context.Context, onBlock func(number uint64)) error

	// Stop tears the subscription down. Idempotent.
	Stop()

	// State returns the current connection state.
	State() domain.ConnectionState

	// Status returns detailed connection information.
	Status() domain.ConnectionStatus
}
