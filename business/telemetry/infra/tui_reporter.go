package infra

import (
	"context"

	"github.com/fd1az/ethersense/business/telemetry/domain"
	"github.com/fd1az/ethersense/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	send func(msg any)
}

// NewTUIReporter creates a TUIReporter bound to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: func(msg any) { ui.Send(msg) }}
}

// Start is a no-op; the program is owned by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Update forwards the snapshot to the dashboard.
func (r *TUIReporter) Update(s domain.ChainSnapshot) {
	r.send(ui.SnapshotMsg{Snapshot: s})
}

// Stop is a no-op; quitting the program is left to the user or main.
func (r *TUIReporter) Stop() error {
	return nil
}
