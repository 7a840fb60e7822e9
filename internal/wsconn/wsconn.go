// Package wsconn provides a WebSocket client with scheduled reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/ethersense/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL  string
	Name string

	// Reconnect delay starts at InitialBackoff and doubles up to MaxBackoff.
	// Setting both to the same value gives a fixed delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite

	PingInterval   time.Duration // 0 disables pings
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = wait forever for the next frame
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every inbound data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is notified on each transition. err is the cause of a drop, if any.
type StateHandler func(state State, err error)

// ConnectHandler runs after every successful (re)connect. Returning an error
// drops the connection and schedules a reconnect.
type ConnectHandler func(ctx context.Context) error

// Client is a WebSocket client. Handlers must be registered before the first
// connect and must not call Close.
type Client struct {
	config Config

	mu         sync.RWMutex
	conn       *websocket.Conn
	state      State
	closed     bool
	timer      *time.Timer
	attempts   int
	onMessage  []MessageHandler
	onState    []StateHandler
	onConnect  []ConnectHandler
	lifetime   context.Context
	cancelLife context.CancelFunc

	wg sync.WaitGroup
}

// New creates a new WebSocket client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("wsconn: url"))
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 1 << 20
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:     cfg,
		state:      StateDisconnected,
		lifetime:   ctx,
		cancelLife: cancel,
	}, nil
}

// OnMessage registers a handler for inbound messages.
func (c *Client) OnMessage(fn MessageHandler) {
	c.mu.Lock()
	c.onMessage = append(c.onMessage, fn)
	c.mu.Unlock()
}

// OnStateChange registers a handler for state transitions.
func (c *Client) OnStateChange(fn StateHandler) {
	c.mu.Lock()
	c.onState = append(c.onState, fn)
	c.mu.Unlock()
}

// OnConnect registers a handler run after each successful connect.
func (c *Client) OnConnect(fn ConnectHandler) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// Connect dials once. A failed dial leaves the client disconnected and does
// not schedule a reconnect; drops after a successful dial do.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.dial(ctx)
}

// Open connects in the background. Every failure, including the first dial,
// is retried on the reconnect schedule until Close.
func (c *Client) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer != nil || c.conn != nil {
		return
	}
	c.timer = time.AfterFunc(0, c.reconnect)
}

// ConnectWithRetry blocks until connected, ctx is done or retries run out.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	attempt := 0
	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if apperror.GetCode(err) == apperror.CodeWebSocketClosed {
			return err
		}

		attempt++
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return apperror.New(apperror.CodeWebSocketConnectionError,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s: gave up after %d attempts", c.config.Name, attempt)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(c.config.Name+": not connected"))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err), apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON encodes v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat, apperror.WithCause(err))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether a connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close cancels any pending reconnect, closes the connection and waits for
// background goroutines. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	c.cancelLife()

	c.wg.Wait()
	c.setState(StateClosed, nil)
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		err = apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err), apperror.WithContext(c.config.Name))
		c.setState(StateDisconnected, err)
		return err
	}
	conn.SetReadLimit(c.config.MaxMessageSize)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.CloseNow()
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	c.conn = conn
	c.attempts = 0
	c.wg.Add(1)
	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn)
	}
	hooks := append([]ConnectHandler(nil), c.onConnect...)
	c.mu.Unlock()

	go c.readLoop(conn)
	c.setState(StateConnected, nil)

	for _, hook := range hooks {
		if err := hook(c.lifetime); err != nil {
			// readLoop observes the close and schedules the reconnect.
			conn.Close(websocket.StatusInternalError, "connect hook failed")
			return nil
		}
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		ctx := c.lifetime
		var cancel context.CancelFunc = func() {}
		if c.config.ReadTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			c.handleDrop(conn, err)
			return
		}

		c.mu.RLock()
		handlers := c.onMessage
		c.mu.RUnlock()
		for _, h := range handlers {
			h(c.lifetime, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.lifetime.Done():
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(c.lifetime, c.config.PongTimeout)
		err := conn.Ping(ctx)
		cancel()
		if err != nil {
			conn.CloseNow()
			return
		}

		c.mu.RLock()
		current := c.conn
		c.mu.RUnlock()
		if current != conn {
			return
		}
	}
}

// handleDrop runs once per connection, from its read loop.
func (c *Client) handleDrop(conn *websocket.Conn, cause error) {
	conn.CloseNow()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.scheduleReconnect(apperror.New(apperror.CodeWebSocketConnectionError,
		apperror.WithCause(cause), apperror.WithContext(c.config.Name)))
}

// scheduleReconnect arms exactly one timer unless closed or out of retries.
func (c *Client) scheduleReconnect(cause error) {
	c.mu.Lock()
	if c.closed || c.timer != nil {
		c.mu.Unlock()
		return
	}
	c.attempts++
	if c.config.MaxReconnects > 0 && c.attempts > c.config.MaxReconnects {
		c.mu.Unlock()
		c.setState(StateDisconnected, cause)
		return
	}
	c.timer = time.AfterFunc(c.backoff(c.attempts), c.reconnect)
	c.mu.Unlock()

	c.setState(StateReconnecting, cause)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.timer = nil
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	if err := c.dial(c.lifetime); err != nil {
		if c.lifetime.Err() != nil {
			return
		}
		c.scheduleReconnect(err)
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.InitialBackoff
	for i := 1; i < attempt && d < c.config.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.config.MaxBackoff {
		d = c.config.MaxBackoff
	}
	return d
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	handlers := c.onState
	c.mu.Unlock()

	for _, h := range handlers {
		h(state, err)
	}
}
