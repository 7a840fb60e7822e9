// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/internal/apperror"
	"github.com/fd1az/ethersense/internal/logger"
	"github.com/fd1az/ethersense/internal/wsconn"
)

const (
	tracerName = "github.com/fd1az/ethersense/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/ethersense/business/blockchain/infra/ethereum"
)

// SubscriberConfig holds configuration for the newHeads subscriber.
type SubscriberConfig struct {
	WSURL          string
	ReconnectDelay time.Duration // fixed, no backoff growth
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		ReconnectDelay: 5 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// subscribeRequest is sent on every (re)connect.
var subscribeRequest = map[string]any{
	"jsonrpc": "2.0",
	"id":      1,
	"method":  "eth_subscribe",
	"params":  []string{"newHeads"},
}

// subscriptionMessage covers both the subscribe reply and notifications.
type subscriptionMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Params *struct {
		Subscription string `json:"subscription"`
		Result       *struct {
			Number string `json:"number"`
		} `json:"result"`
	} `json:"params,omitempty"`
}

type subscriberMetrics struct {
	blocksReceived  metric.Int64Counter
	ignoredMessages metric.Int64Counter
	reconnects      metric.Int64Counter
	connectionState metric.Int64Gauge
}

// Subscriber implements app.BlockSubscriber over a raw WebSocket newHeads
// subscription. It is single use: Start once, Stop any number of times.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface

	mu      sync.Mutex
	client  *wsconn.Client
	started bool
	onBlock func(uint64)

	stopped    atomic.Bool
	state      atomic.Value // domain.ConnectionState
	lastBlock  atomic.Uint64
	lastUpdate atomic.Int64
	reconnects atomic.Int32

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a new block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.WSURL == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("subscriber ws url"))
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	s.state.Store(domain.StateDisconnected)

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total newHeads notifications delivered"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.ignoredMessages, err = meter.Int64Counter(
		"eth_ws_ignored_messages_total",
		metric.WithDescription("Inbound messages that carried no block number"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	s.metrics.reconnects, err = meter.Int64Counter(
		"eth_ws_reconnects_total",
		metric.WithDescription("Reconnects scheduled after a dropped subscription"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Subscription state (0=disconnected, 1=connecting, 2=subscribed)"),
		metric.WithUnit("{state}"),
	)
	return err
}

// Start connects in the background and invokes onBlock once per newHeads
// notification. onBlock must not call Stop.
func (s *Subscriber) Start(ctx context.Context, onBlock func(uint64)) error {
	ctx, span := s.tracer.Start(ctx, "eth.subscribe.start")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		err := apperror.New(apperror.CodeSubscriberStopped)
		span.RecordError(err)
		return err
	}
	if s.started {
		err := apperror.New(apperror.CodeInvalidState, apperror.WithContext("subscriber already started"))
		span.RecordError(err)
		return err
	}

	wsCfg := wsconn.DefaultConfig(s.config.WSURL, "eth-newheads")
	wsCfg.InitialBackoff = s.config.ReconnectDelay
	wsCfg.MaxBackoff = s.config.ReconnectDelay
	wsCfg.MaxReconnects = 0
	wsCfg.PingInterval = s.config.PingInterval
	wsCfg.MaxMessageSize = s.config.MaxMessageSize

	client, err := wsconn.New(wsCfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ws client")
		return err
	}

	client.OnStateChange(s.handleTransportState)
	client.OnConnect(s.subscribe)
	client.OnMessage(s.handleMessage)

	s.client = client
	s.onBlock = onBlock
	s.started = true

	client.Open()

	s.logger.Info(ctx, "block subscriber started", "reconnect_delay", s.config.ReconnectDelay)
	span.SetStatus(codes.Ok, "started")
	return nil
}

// subscribe runs after every successful (re)connect.
func (s *Subscriber) subscribe(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if err := client.SendJSON(ctx, subscribeRequest); err != nil {
		s.logger.Warn(ctx, "eth_subscribe send failed", "error", err)
		return apperror.New(apperror.CodeEthereumSubscribeFailed, apperror.WithCause(err))
	}

	s.setState(ctx, domain.StateSubscribed)
	s.logger.Info(ctx, "subscribed to newHeads")
	return nil
}

// handleMessage delivers at most one block number per message.
func (s *Subscriber) handleMessage(ctx context.Context, data []byte) {
	if s.stopped.Load() {
		return
	}

	var msg subscriptionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.ignore(ctx, "malformed json", err)
		return
	}

	if msg.Error != nil {
		s.logger.Warn(ctx, "subscription rpc error", "code", msg.Error.Code, "message", msg.Error.Message)
		s.metrics.ignoredMessages.Add(ctx, 1)
		return
	}

	if msg.Method != "eth_subscription" || msg.Params == nil || msg.Params.Result == nil || msg.Params.Result.Number == "" {
		if len(msg.Result) > 0 {
			s.logger.Debug(ctx, "subscription confirmed", "id", string(msg.Result))
			return
		}
		s.ignore(ctx, "no block number", nil)
		return
	}

	number, err := hexutil.DecodeUint64(msg.Params.Result.Number)
	if err != nil {
		s.ignore(ctx, "invalid block number", apperror.New(apperror.CodeInvalidSubscriptionMsg,
			apperror.WithCause(err), apperror.WithContext(msg.Params.Result.Number)))
		return
	}

	s.lastBlock.Store(number)
	s.lastUpdate.Store(time.Now().UnixNano())
	s.metrics.blocksReceived.Add(ctx, 1)

	s.mu.Lock()
	onBlock := s.onBlock
	s.mu.Unlock()

	onBlock(number)
}

func (s *Subscriber) ignore(ctx context.Context, reason string, err error) {
	s.metrics.ignoredMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	if err != nil {
		s.logger.Debug(ctx, "ignoring subscription message", "reason", reason, "error", err)
		return
	}
	s.logger.Debug(ctx, "ignoring subscription message", "reason", reason)
}

func (s *Subscriber) handleTransportState(state wsconn.State, err error) {
	ctx := context.Background()

	switch state {
	case wsconn.StateConnecting:
		s.setState(ctx, domain.StateConnecting)
	case wsconn.StateReconnecting:
		s.reconnects.Add(1)
		s.metrics.reconnects.Add(ctx, 1)
		s.setState(ctx, domain.StateDisconnected)
		s.logger.Warn(ctx, "subscription dropped, reconnect scheduled",
			"delay", s.config.ReconnectDelay, "error", err)
	case wsconn.StateDisconnected, wsconn.StateClosed:
		s.setState(ctx, domain.StateDisconnected)
	}
}

// Stop cancels any pending reconnect and closes the socket. No onBlock call
// happens after Stop returns. Idempotent.
func (s *Subscriber) Stop() {
	if s.stopped.Swap(true) {
		return
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client != nil {
		client.Close()
	}
	s.setState(context.Background(), domain.StateDisconnected)
	s.logger.Info(context.Background(), "block subscriber stopped")
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	return s.state.Load().(domain.ConnectionState)
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	status := domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		Reconnects: int(s.reconnects.Load()),
		Stopped:    s.stopped.Load(),
	}
	if ts := s.lastUpdate.Load(); ts > 0 {
		status.LastUpdate = time.Unix(0, ts)
	}
	return status
}

func (s *Subscriber) setState(ctx context.Context, state domain.ConnectionState) {
	// Late transport events must not resurrect a stopped subscriber.
	if s.stopped.Load() && state != domain.StateDisconnected {
		return
	}
	s.state.Store(state)

	var v int64
	switch state {
	case domain.StateConnecting:
		v = 1
	case domain.StateSubscribed:
		v = 2
	}
	s.metrics.connectionState.Record(ctx, v)
}
