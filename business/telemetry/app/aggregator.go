package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/domain"
	"github.com/fd1az/ethersense/internal/apm"
	"github.com/fd1az/ethersense/internal/apperror"
	"github.com/fd1az/ethersense/internal/logger"
)

const (
	tracerName = "github.com/fd1az/ethersense/business/telemetry/app"
	meterName  = "github.com/fd1az/ethersense/business/telemetry/app"
)

// AggregatorConfig holds aggregator settings.
type AggregatorConfig struct {
	HistorySize int
	Now         func() time.Time
}

// DefaultAggregatorConfig returns sensible defaults.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		HistorySize: domain.DefaultHistorySize,
		Now:         time.Now,
	}
}

type aggregatorMetrics struct {
	blockPushes metric.Int64Counter
	reads       metric.Int64Counter
	blockHeight metric.Int64Gauge
	refreshes   metric.Int64UpDownCounter
}

// Aggregator owns the ChainSnapshot. Only its methods write it; everybody
// else reads copies via Snapshot or Watch.
type Aggregator struct {
	source ChainSource
	logger logger.LoggerInterface
	config AggregatorConfig

	mu          sync.Mutex
	snapshot    domain.ChainSnapshot
	observers   map[uint64]Observer
	nextWatchID uint64
	initialized bool
	closed      bool

	// lifetime bounds background refreshes; Close cancels it and waits on wg.
	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	tracer  apm.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates a new Aggregator.
func NewAggregator(source ChainSource, cfg AggregatorConfig, log logger.LoggerInterface) (*Aggregator, error) {
	if source == nil {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("aggregator chain source"))
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = domain.DefaultHistorySize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		source:    source,
		logger:    log,
		config:    cfg,
		snapshot:  domain.NewChainSnapshot(),
		observers: make(map[uint64]Observer),
		lifetime:  ctx,
		cancel:    cancel,
		tracer:    apm.NewTracer(tracerName),
	}

	if err := a.initMetrics(); err != nil {
		cancel()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.blockPushes, err = meter.Int64Counter(
		"telemetry_block_pushes_total",
		metric.WithDescription("Block numbers pushed by the live subscription"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	a.metrics.reads, err = meter.Int64Counter(
		"telemetry_reads_total",
		metric.WithDescription("Upstream reads applied to the snapshot, by source and outcome"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	a.metrics.blockHeight, err = meter.Int64Gauge(
		"telemetry_block_height",
		metric.WithDescription("Block height currently shown"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	a.metrics.refreshes, err = meter.Int64UpDownCounter(
		"telemetry_gas_refreshes_in_flight",
		metric.WithDescription("Asynchronous gas refreshes not yet applied"),
		metric.WithUnit("{refresh}"),
	)
	return err
}

// Initialize pulls block height and gas concurrently, applying each result
// as soon as it arrives, then starts the live subscription. It runs once.
func (a *Aggregator) Initialize(ctx context.Context) error {
	ctx, span := a.tracer.StartSpanFromContext(ctx, "telemetry.initialize")
	defer span.End()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		err := apperror.New(apperror.CodeInvalidState, apperror.WithContext("aggregator closed"))
		span.NoticeError(err)
		return err
	}
	if a.initialized {
		a.mu.Unlock()
		err := apperror.New(apperror.CodeInvalidState, apperror.WithContext("aggregator already initialized"))
		span.NoticeError(err)
		return err
	}
	a.initialized = true
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	ctx, release := a.bind(ctx)
	defer release()

	a.pull(ctx)

	if err := a.source.SubscribeBlocks(a.lifetime, a.OnBlockPush); err != nil {
		a.logger.Error(ctx, "failed to start block subscription", "error", err)
		span.NoticeError(err)
		return err
	}

	snap := a.Snapshot()
	a.logger.Info(ctx, "telemetry initialized",
		"block", snap.BlockHeight,
		"gas_gwei", snap.GasPriceGwei,
		"forecast", snap.GasForecast != nil)
	span.Succeed("initialized")
	return nil
}

// ManualRefresh repeats the initial pull. The subscription is untouched.
func (a *Aggregator) ManualRefresh(ctx context.Context) {
	ctx, span := a.tracer.StartSpanFromContext(ctx, "telemetry.manual_refresh")
	defer span.End()

	if !a.track() {
		span.AddEvent("skipped", attribute.String("reason", "closed"))
		return
	}
	defer a.wg.Done()

	ctx, release := a.bind(ctx)
	defer release()

	a.logger.Debug(ctx, "manual refresh")
	a.pull(ctx)
	span.Succeed("refreshed")
}

// OnBlockPush records a block from the live feed and dispatches a gas refresh
// in the background. Height and history are written before the refresh starts.
func (a *Aggregator) OnBlockPush(height uint64) {
	ctx := a.lifetime
	a.metrics.blockPushes.Add(ctx, 1)

	outcome := domain.BlockOutcome(height)
	if !outcome.OK {
		a.logger.Debug(ctx, "ignoring zero block push")
		return
	}

	if !a.applyBlock(ctx, outcome, "push") {
		return
	}

	if !a.track() {
		return
	}
	a.metrics.refreshes.Add(ctx, 1)
	go func() {
		defer a.wg.Done()
		defer a.metrics.refreshes.Add(ctx, -1)
		a.refreshGas(a.lifetime)
	}()
}

// Snapshot returns a copy of the current snapshot.
func (a *Aggregator) Snapshot() domain.ChainSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot.Clone()
}

// Watch registers fn to receive a snapshot copy after every change. The
// returned func unregisters it.
func (a *Aggregator) Watch(fn Observer) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return func() {}
	}
	id := a.nextWatchID
	a.nextWatchID++
	a.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.observers, id)
			a.mu.Unlock()
		})
	}
}

// Close stops the subscription, cancels in-flight refreshes, waits for them
// and detaches observers. Safe to call more than once.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.source.StopBlocks()
	a.cancel()
	a.wg.Wait()

	a.mu.Lock()
	a.observers = make(map[uint64]Observer)
	a.mu.Unlock()

	a.logger.Info(context.Background(), "telemetry aggregator closed")
}

// pull fetches block height, gas price and forecast concurrently. A failing
// read never cancels the others.
func (a *Aggregator) pull(ctx context.Context) {
	var g errgroup.Group

	g.Go(func() error {
		a.applyBlock(ctx, domain.BlockOutcome(a.source.LatestBlockNumber(ctx)), "rpc")
		return nil
	})
	g.Go(func() error {
		a.refreshGas(ctx)
		return nil
	})

	_ = g.Wait()
}

// refreshGas fetches the simple price and the forecast concurrently and
// applies each independently.
func (a *Aggregator) refreshGas(ctx context.Context) {
	ctx, span := a.tracer.StartSpanFromContext(ctx, "telemetry.refresh_gas")
	defer span.End()

	var g errgroup.Group

	g.Go(func() error {
		a.applyGasPrice(ctx, domain.GasPriceOutcome(a.source.GasPriceGwei(ctx)))
		return nil
	})
	g.Go(func() error {
		a.applyForecast(ctx, domain.ForecastOutcome(a.source.GasForecast(ctx)))
		return nil
	})

	_ = g.Wait()
}

// applyBlock is the single update path for block heights, pulled or pushed.
// It reports whether the aggregator was still open.
func (a *Aggregator) applyBlock(ctx context.Context, outcome domain.Outcome[uint64], source string) bool {
	a.countRead(ctx, "block_"+source, outcome.OK)
	if !outcome.OK {
		return !a.isClosed()
	}

	now := a.config.Now()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.snapshot.BlockHeight = outcome.Value
	a.snapshot.History = domain.AppendHistory(a.snapshot.History,
		domain.NewHistoryPoint(now, outcome.Value), a.config.HistorySize)
	a.snapshot.ConnectionState = domain.StateLive
	a.snapshot.UpdatedAt = now
	snap, observers := a.snapshotForNotify()
	a.mu.Unlock()

	a.metrics.blockHeight.Record(ctx, int64(outcome.Value))
	notify(observers, snap)
	return true
}

func (a *Aggregator) applyGasPrice(ctx context.Context, outcome domain.Outcome[string]) {
	a.countRead(ctx, "gas_price", outcome.OK)
	if !outcome.OK {
		return
	}
	a.mutate(func(s *domain.ChainSnapshot) {
		s.GasPriceGwei = outcome.Value
	})
}

func (a *Aggregator) applyForecast(ctx context.Context, outcome domain.Outcome[*blockchainDomain.GasForecast]) {
	a.countRead(ctx, "gas_forecast", outcome.OK)
	if !outcome.OK {
		return
	}
	a.mutate(func(s *domain.ChainSnapshot) {
		s.GasForecast = outcome.Value
	})
}

// mutate applies fn under the lock and notifies observers outside it.
func (a *Aggregator) mutate(fn func(*domain.ChainSnapshot)) {
	now := a.config.Now()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	fn(&a.snapshot)
	a.snapshot.UpdatedAt = now
	snap, observers := a.snapshotForNotify()
	a.mu.Unlock()

	notify(observers, snap)
}

// snapshotForNotify must be called with mu held.
func (a *Aggregator) snapshotForNotify() (domain.ChainSnapshot, []Observer) {
	observers := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		observers = append(observers, o)
	}
	return a.snapshot.Clone(), observers
}

func notify(observers []Observer, snap domain.ChainSnapshot) {
	for _, o := range observers {
		o(snap.Clone())
	}
}

// bind derives a context that is also cancelled by Close.
func (a *Aggregator) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(a.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// track registers a unit of background work unless closed.
func (a *Aggregator) track() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.wg.Add(1)
	return true
}

func (a *Aggregator) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Aggregator) countRead(ctx context.Context, source string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	a.metrics.reads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}
