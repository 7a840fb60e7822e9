// Package app contains the telemetry aggregator and its ports.
package app

import (
	"context"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/domain"
)

// ChainSource is everything the aggregator reads from the blockchain context.
// *blockchain/app.BlockchainService satisfies it.
type ChainSource interface {
	// LatestBlockNumber returns 0 when no endpoint answered.
	LatestBlockNumber(ctx context.Context) uint64

	// GasPriceGwei returns "0" when unknown.
	GasPriceGwei(ctx context.Context) string

	// GasForecast returns nil when unavailable.
	GasForecast(ctx context.Context) *blockchainDomain.GasForecast

	// SubscribeBlocks starts the live feed. Single use.
	SubscribeBlocks(ctx context.Context, onBlock func(uint64)) error

	// StopBlocks ends the live feed. Idempotent.
	StopBlocks()
}

// Observer receives a copy of the snapshot after every change.
type Observer func(domain.ChainSnapshot)

// Reporter renders snapshots to a presentation surface.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Update renders the latest snapshot.
	Update(snapshot domain.ChainSnapshot)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
