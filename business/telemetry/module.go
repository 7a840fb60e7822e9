// Package telemetry implements the telemetry bounded context: the snapshot
// aggregator and its presentation reporters.
package telemetry

import (
	"context"
	"fmt"

	blockchainDI "github.com/fd1az/ethersense/business/blockchain/di"
	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/app"
	telemetryDI "github.com/fd1az/ethersense/business/telemetry/di"
	"github.com/fd1az/ethersense/business/telemetry/infra"
	"github.com/fd1az/ethersense/internal/config"
	"github.com/fd1az/ethersense/internal/di"
	"github.com/fd1az/ethersense/internal/logger"
	"github.com/fd1az/ethersense/internal/monolith"
)

// Module implements the telemetry bounded context.
type Module struct{}

// RegisterServices registers the aggregator and the reporter.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, telemetryDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Dashboard.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, telemetryDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		aggCfg := app.DefaultAggregatorConfig()
		aggCfg.HistorySize = cfg.Dashboard.HistorySize

		agg, err := app.NewAggregator(blockchainDI.GetBlockchainService(sr), aggCfg, log)
		if err != nil {
			panic("failed to create telemetry aggregator: " + err.Error())
		}
		return agg
	})

	return nil
}

// Startup attaches the reporter, registers health checks and starts the
// aggregator. The aggregator is closed on shutdown.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	agg := telemetryDI.GetAggregator(sr)
	reporter := telemetryDI.GetReporter(sr)
	blockchain := blockchainDI.GetBlockchainService(sr)

	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}
	unwatch := agg.Watch(reporter.Update)

	// Registered first so it runs last: the aggregator stops before the reporter.
	mono.OnShutdown(func() {
		unwatch()
		if err := reporter.Stop(); err != nil {
			log.Warn(context.Background(), "reporter stop failed", "error", err)
		}
	})
	mono.OnShutdown(agg.Close)

	if hs := mono.Health(); hs != nil {
		hs.RegisterCheck("subscription", func(ctx context.Context) (bool, string) {
			state := blockchain.ConnectionState()
			return state == blockchainDomain.StateSubscribed, string(state)
		})
		hs.RegisterCheck("snapshot", func(ctx context.Context) (bool, string) {
			snap := agg.Snapshot()
			if !snap.IsLive() {
				return false, "no block observed yet"
			}
			return true, fmt.Sprintf("block %d", snap.BlockHeight)
		})
	}

	reporter.Update(agg.Snapshot())

	if err := agg.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	log.Info(ctx, "telemetry module started", "history_size", mono.Config().Dashboard.HistorySize)
	return nil
}
