package ethereum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/internal/apperror"
)

// wsNode fakes an Ethereum node's WebSocket endpoint. handle is called once
// per accepted connection, after the eth_subscribe request was read.
func wsNode(t *testing.T, handle func(n int, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	var accepted atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := context.Background()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req struct {
			Method string   `json:"method"`
			Params []string `json:"params"`
		}
		if err := json.Unmarshal(data, &req); err != nil || req.Method != "eth_subscribe" || len(req.Params) != 1 || req.Params[0] != "newHeads" {
			t.Errorf("unexpected subscribe request: %s", data)
			return
		}
		conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","id":1,"result":"0x9cef478923ff08bf67fde6c64013158d"}`))

		handle(int(accepted.Add(1)), conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func notification(number string) []byte {
	return []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x9cef","result":{"number":"` + number + `","hash":"0xabc"}}}`)
}

func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type blockRecorder struct {
	mu     sync.Mutex
	blocks []uint64
	seen   chan uint64
}

func newBlockRecorder() *blockRecorder {
	return &blockRecorder{seen: make(chan uint64, 16)}
}

func (r *blockRecorder) onBlock(n uint64) {
	r.mu.Lock()
	r.blocks = append(r.blocks, n)
	r.mu.Unlock()
	r.seen <- n
}

func (r *blockRecorder) snapshot() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.blocks...)
}

func (r *blockRecorder) wait(t *testing.T, want uint64) {
	t.Helper()
	select {
	case got := <-r.seen:
		if got != want {
			t.Fatalf("block = %d, want %d", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for block %d", want)
	}
}

func newTestSubscriber(t *testing.T, url string, delay time.Duration) *Subscriber {
	t.Helper()
	cfg := DefaultSubscriberConfig(url)
	cfg.ReconnectDelay = delay
	cfg.PingInterval = 0

	s, err := NewSubscriber(cfg, &mockLogger{})
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestSubscriber_DeliversBlockNumberOnce(t *testing.T) {
	server := wsNode(t, func(_ int, conn *websocket.Conn) {
		ctx := context.Background()
		conn.Write(ctx, websocket.MessageText, notification("0x64"))
		// Neither of these carries a block number.
		conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x9cef","result":{"hash":"0xabc"}}}`))
		conn.Write(ctx, websocket.MessageText, []byte(`not json`))
		conn.Write(ctx, websocket.MessageText, notification("0x65"))
		holdOpen(conn)
	})

	rec := newBlockRecorder()
	s := newTestSubscriber(t, wsURL(server), time.Hour)

	if err := s.Start(context.Background(), rec.onBlock); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec.wait(t, 100)
	rec.wait(t, 101)

	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("callbacks = %v, want exactly [100 101]", got)
	}
	deadline := time.Now().Add(time.Second)
	for s.State() != domain.StateSubscribed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != domain.StateSubscribed {
		t.Errorf("state = %v, want %v", s.State(), domain.StateSubscribed)
	}
	if s.Status().LastBlock != 101 {
		t.Errorf("LastBlock = %d, want 101", s.Status().LastBlock)
	}
}

func TestSubscriber_ReconnectsAfterUnexpectedClose(t *testing.T) {
	server := wsNode(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			conn.Close(websocket.StatusGoingAway, "node restarting")
			return
		}
		conn.Write(context.Background(), websocket.MessageText, notification("0x66"))
		holdOpen(conn)
	})

	var mu sync.Mutex
	var states []domain.ConnectionState
	rec := newBlockRecorder()
	s := newTestSubscriber(t, wsURL(server), 50*time.Millisecond)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		last := domain.ConnectionState("")
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
			}
			if st := s.State(); st != last {
				mu.Lock()
				states = append(states, st)
				mu.Unlock()
				last = st
			}
		}
	}()

	if err := s.Start(context.Background(), rec.onBlock); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec.wait(t, 102)

	if got := s.Status().Reconnects; got != 1 {
		t.Errorf("Reconnects = %d, want 1", got)
	}

	mu.Lock()
	defer mu.Unlock()
	sawDisconnect := false
	for _, st := range states {
		if st == domain.StateDisconnected {
			sawDisconnect = true
		}
	}
	if !sawDisconnect {
		t.Errorf("states %v never passed through %v", states, domain.StateDisconnected)
	}
}

func TestSubscriber_StopCancelsPendingReconnect(t *testing.T) {
	var accepts atomic.Int32
	server := wsNode(t, func(n int, conn *websocket.Conn) {
		accepts.Add(1)
		conn.Close(websocket.StatusGoingAway, "bye")
	})

	rec := newBlockRecorder()
	s := newTestSubscriber(t, wsURL(server), 200*time.Millisecond)

	if err := s.Start(context.Background(), rec.onBlock); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Status().Reconnects == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Status().Reconnects == 0 {
		t.Fatal("drop did not schedule a reconnect")
	}

	s.Stop()
	time.Sleep(400 * time.Millisecond)

	if got := accepts.Load(); got != 1 {
		t.Errorf("server accepts = %d, want 1 (reconnect should have been cancelled)", got)
	}
	if len(rec.snapshot()) != 0 {
		t.Errorf("unexpected callbacks after Stop: %v", rec.snapshot())
	}
	if s.State() != domain.StateDisconnected {
		t.Errorf("state = %v, want %v", s.State(), domain.StateDisconnected)
	}
}

func TestSubscriber_StopIsIdempotent(t *testing.T) {
	s := newTestSubscriber(t, "ws://127.0.0.1:1", time.Hour)

	if err := s.Start(context.Background(), func(uint64) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Stop()
	s.Stop()

	if !s.Status().Stopped {
		t.Error("expected Stopped status")
	}
	if err := s.Start(context.Background(), func(uint64) {}); apperror.GetCode(err) != apperror.CodeSubscriberStopped {
		t.Errorf("Start after Stop = %v, want %v", err, apperror.CodeSubscriberStopped)
	}
}

func TestSubscriber_StartTwice(t *testing.T) {
	s := newTestSubscriber(t, "ws://127.0.0.1:1", time.Hour)

	if err := s.Start(context.Background(), func(uint64) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background(), func(uint64) {}); apperror.GetCode(err) != apperror.CodeInvalidState {
		t.Errorf("second Start = %v, want %v", err, apperror.CodeInvalidState)
	}
}
