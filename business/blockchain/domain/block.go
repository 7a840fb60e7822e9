// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// ConnectionState represents the live subscription lifecycle.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateSubscribed   ConnectionState = "subscribed"
)

// ConnectionStatus contains detailed subscription information.
type ConnectionStatus struct {
	State      ConnectionState
	LastBlock  uint64
	LastUpdate time.Time
	Reconnects int
	Stopped    bool
}
