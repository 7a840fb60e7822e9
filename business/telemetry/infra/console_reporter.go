// Package infra contains presentation adapters for the telemetry context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/ethersense/business/telemetry/domain"
)

// ConsoleReporter implements Reporter for CLI output, one line per change.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "ethersense started")
	fmt.Fprintln(r.out, "==================")
	return nil
}

// Update prints one status line for the snapshot.
func (r *ConsoleReporter) Update(s domain.ChainSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, FormatLine(s))
}

// Stop prints the footer.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "ethersense stopped")
	return nil
}

// FormatLine renders a snapshot as a single log-style line.
func FormatLine(s domain.ChainSnapshot) string {
	at := s.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}

	status := "Connecting..."
	if s.IsLive() {
		status = "WebSocket Live"
	}

	block := "---"
	if s.BlockHeight > 0 {
		block = fmt.Sprintf("#%d", s.BlockHeight)
	}

	line := fmt.Sprintf("[%s] %-14s block %s | gas %s Gwei",
		at.Format("15:04:05"), status, block, s.GasDisplay())

	if f := s.GasForecast; f != nil {
		line += fmt.Sprintf(" | low %s med %s high %s | congestion %d%% (%s) | base %s priority %s",
			f.Low.MaxFeeGwei.Round(0), f.Medium.MaxFeeGwei.Round(0), f.High.MaxFeeGwei.Round(0),
			f.CongestionPercent(), f.Level(), f.BaseFeeTrend, f.PriorityFeeTrend)
	}
	return line
}
