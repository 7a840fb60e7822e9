package app

import (
	"context"

	"github.com/fd1az/ethersense/business/blockchain/domain"
)

// BlockchainService is the blockchain context's public facade.
type BlockchainService struct {
	reader     ChainReader
	forecaster GasForecaster
	subscriber BlockSubscriber
}

// NewBlockchainService creates a new BlockchainService. forecaster may be nil
// when no forecast endpoint is configured.
func NewBlockchainService(reader ChainReader, forecaster GasForecaster, subscriber BlockSubscriber) *BlockchainService {
	return &BlockchainService{
		reader:     reader,
		forecaster: forecaster,
		subscriber: subscriber,
	}
}

// LatestBlockNumber returns the head block number, 0 when unknown.
func (s *BlockchainService) LatestBlockNumber(ctx context.Context) uint64 {
	return s.reader.LatestBlockNumber(ctx)
}

// GasPriceGwei returns the simple gas price, "0" when unknown.
func (s *BlockchainService) GasPriceGwei(ctx context.Context) string {
	return s.reader.GasPriceGwei(ctx)
}

// GasForecast returns the fee forecast, nil when unavailable.
func (s *BlockchainService) GasForecast(ctx context.Context) *domain.GasForecast {
	if s.forecaster == nil {
		return nil
	}
	return s.forecaster.GasForecast(ctx)
}

// SubscribeBlocks starts the live block subscription.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context, onBlock func(uint64)) error {
	return s.subscriber.Start(ctx, onBlock)
}

// StopBlocks stops the live block subscription.
func (s *BlockchainService) StopBlocks() {
	s.subscriber.Stop()
}

// ConnectionState returns the subscription state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// ConnectionStatus returns detailed subscription information.
func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.subscriber.Status()
}
