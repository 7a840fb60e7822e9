// Package blockchain implements the blockchain bounded context: JSON-RPC
// reads, the gas forecast service and the live newHeads subscription.
package blockchain

import (
	"context"

	"github.com/fd1az/ethersense/business/blockchain/app"
	blockchainDI "github.com/fd1az/ethersense/business/blockchain/di"
	"github.com/fd1az/ethersense/business/blockchain/infra/ethereum"
	"github.com/fd1az/ethersense/business/blockchain/infra/infura"
	"github.com/fd1az/ethersense/internal/config"
	"github.com/fd1az/ethersense/internal/di"
	"github.com/fd1az/ethersense/internal/logger"
	"github.com/fd1az/ethersense/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gwCfg := ethereum.DefaultGatewayConfig(cfg.Ethereum.PrimaryRPCURL, cfg.Ethereum.FallbackRPCURL)
		if cfg.Ethereum.RequestTimeout > 0 {
			gwCfg.Timeout = cfg.Ethereum.RequestTimeout
		}
		gw, err := ethereum.NewGateway(context.Background(), gwCfg, log)
		if err != nil {
			panic("failed to create rpc gateway: " + err.Error())
		}
		return gw
	})

	// Optional: a nil forecaster means the dashboard shows the simple gas price only.
	di.RegisterToken(c, blockchainDI.GasForecaster, func(sr di.ServiceRegistry) app.GasForecaster {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.GasAPI.Enabled() {
			log.Warn(context.Background(), "gas api not configured, forecasts disabled")
			return nil
		}

		fcCfg := infura.DefaultForecasterConfig(cfg.GasAPI.BaseURL)
		fcCfg.NetworkID = cfg.GasAPI.NetworkID
		fcCfg.RequestsPerMinute = cfg.GasAPI.RequestsPerMinute
		fcCfg.Timeout = cfg.GasAPI.Timeout
		fc, err := infura.NewForecaster(fcCfg, log)
		if err != nil {
			panic("failed to create gas forecaster: " + err.Error())
		}
		return fc
	})

	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.WebSocketURL)
		subCfg.ReconnectDelay = cfg.Ethereum.ReconnectDelay
		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(
			blockchainDI.GetChainReader(sr),
			blockchainDI.GetGasForecaster(sr),
			blockchainDI.GetBlockSubscriber(sr),
		)
	})

	return nil
}

// Startup wires shutdown of the RPC clients. The subscription itself is
// started by the telemetry aggregator.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	if gw, ok := blockchainDI.GetChainReader(mono.Services()).(*ethereum.Gateway); ok {
		mono.OnShutdown(gw.Close)
	}

	log.Info(ctx, "blockchain module started",
		"forecasts", mono.Config().GasAPI.Enabled(),
		"reconnect_delay", mono.Config().Ethereum.ReconnectDelay)
	return nil
}
