// Package main is the entry point for ethersense, the live Ethereum
// telemetry dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/ethersense/business/blockchain"
	"github.com/fd1az/ethersense/business/telemetry"
	telemetryDI "github.com/fd1az/ethersense/business/telemetry/di"
	"github.com/fd1az/ethersense/internal/apm"
	"github.com/fd1az/ethersense/internal/config"
	"github.com/fd1az/ethersense/internal/health"
	"github.com/fd1az/ethersense/internal/logger"
	"github.com/fd1az/ethersense/internal/metrics"
	"github.com/fd1az/ethersense/internal/monolith"
	"github.com/fd1az/ethersense/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ethersense %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Dashboard.TUIMode = tuiMode

	logLevel := logger.ParseLevel(cfg.App.LogLevel)

	var log *logger.Logger
	if tuiMode {
		// Logs would corrupt the screen; warnings and errors go to the dashboard instead.
		log = logger.New(io.Discard, logLevel, cfg.App.Name, forwardToTUI)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting ethersense",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := initObservability(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to init observability: %w", err)
		}
		defer shutdown()
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(stopCtx)
	}()

	mono := monolith.New(cfg, log, healthServer)
	// Stops the subscription and cancels refreshes on every exit path.
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // provides RPC, forecasts and the block subscription
		&telemetry.Module{},  // aggregates them into the snapshot
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	startFunc := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		return nil
	}

	if tuiMode {
		ui.OnRefresh = func() {
			telemetryDI.GetAggregator(mono.Services()).ManualRefresh(ctx)
		}
		return runTUI(ctx, startFunc)
	}

	return runCLI(ctx, startFunc, log)
}

// initObservability installs tracing and the Prometheus meter provider and
// returns their shutdown.
func initObservability(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	provider, endpoint := apm.SelectProvider(cfg.Telemetry.ZipkinURL, cfg.Telemetry.OTLPEndpoint)
	traceProvider, err := apm.NewTraceProvider(ctx, apm.TracerOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    provider,
		Endpoint:    endpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, err
	}

	meterProvider, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{
			Provider: metrics.PrometheusProvider,
		}),
	)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, err
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(port)))
	promServer.Start()

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Stop(stopCtx)
		_ = meterProvider.Shutdown(stopCtx)
		_ = traceProvider.Stop()
	}, nil
}

// forwardToTUI shows warnings and errors in the dashboard.
func forwardToTUI(_ context.Context, r slog.Record) {
	switch {
	case r.Level >= slog.LevelError:
		ui.Send(ui.LogMsg{Level: "error", Message: r.Message})
	case r.Level >= slog.LevelWarn:
		ui.Send(ui.LogMsg{Level: "warn", Message: r.Message})
	}
}

func runCLI(ctx context.Context, startFunc func() error, log *logger.Logger) error {
	if err := startFunc(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, streaming chain telemetry")

	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
		ui.Send(ui.StartupMsg{Step: "rpc", Status: "connecting"})
		ui.Send(ui.StartupMsg{Step: "websocket", Status: "connecting"})

		if err := startFunc(); err != nil {
			ui.Send(ui.StartupMsg{Step: "rpc", Status: "failed"})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// A signal ends the program the same way q does.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
