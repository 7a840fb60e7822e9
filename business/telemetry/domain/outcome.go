package domain

import blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"

// Outcome is the result of one upstream read: a value, or a failure that
// leaves the previous snapshot field untouched.
type Outcome[T any] struct {
	Value T
	OK    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, OK: true}
}

// Failed is an outcome carrying no value.
func Failed[T any]() Outcome[T] {
	return Outcome[T]{}
}

// BlockOutcome treats height 0 as a failed read.
func BlockOutcome(height uint64) Outcome[uint64] {
	if height == 0 {
		return Failed[uint64]()
	}
	return Ok(height)
}

// GasPriceOutcome treats the unknown sentinel and empty strings as failed.
func GasPriceOutcome(gwei string) Outcome[string] {
	if gwei == "" || gwei == blockchainDomain.UnknownGasPrice {
		return Failed[string]()
	}
	return Ok(gwei)
}

// ForecastOutcome treats a nil forecast as failed.
func ForecastOutcome(f *blockchainDomain.GasForecast) Outcome[*blockchainDomain.GasForecast] {
	if f == nil {
		return Failed[*blockchainDomain.GasForecast]()
	}
	return Ok(f)
}
