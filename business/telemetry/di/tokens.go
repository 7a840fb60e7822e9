// Package di contains dependency injection tokens for the telemetry context.
package di

import (
	"github.com/fd1az/ethersense/business/telemetry/app"
	"github.com/fd1az/ethersense/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Aggregator = di.NewToken[*app.Aggregator]("telemetry.Aggregator")
)

// Private dependency tokens - internal to telemetry module
var (
	Reporter = di.NewToken[app.Reporter]("telemetry:reporter")
)

// Helper functions for type-safe access
func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
