package ui

import (
	"github.com/fd1az/ethersense/business/telemetry/domain"
)

// Message types for TUI updates

// SnapshotMsg carries a new chain snapshot.
type SnapshotMsg struct {
	Snapshot domain.ChainSnapshot
}

// RefreshDoneMsg is sent when a manual refresh finishes.
type RefreshDoneMsg struct{}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step   string // "config", "rpc", "websocket"
	Status string // "connecting", "connected", "done", "failed"
}
