// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/ethersense/business/blockchain/app"
	"github.com/fd1az/ethersense/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	ChainReader     = di.NewToken[app.ChainReader]("blockchain:chainReader")
	GasForecaster   = di.NewToken[app.GasForecaster]("blockchain:gasForecaster")
	BlockSubscriber = di.NewToken[app.BlockSubscriber]("blockchain:blockSubscriber")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}

func GetGasForecaster(c di.ServiceRegistry) app.GasForecaster {
	return di.GetToken(c, GasForecaster)
}

func GetBlockSubscriber(c di.ServiceRegistry) app.BlockSubscriber {
	return di.GetToken(c, BlockSubscriber)
}
