package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polkaclient/polkaclient/pkg/log"
)

// Transport is a full duplex, message framed connection to a node.
//
// Send may be called from many goroutines. Receive is called from a single
// reader goroutine and blocks until a frame arrives or the transport is
// closed. Close unblocks Receive.
type Transport interface {
	Connect(ctx context.Context, endpoint string) error
	Send(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// TransportFactory returns a fresh, unconnected transport for each session.
type TransportFactory func() Transport

// WebsocketConfig tunes a WebsocketTransport.
type WebsocketConfig struct {
	HandshakeTimeout time.Duration
	// PingInterval between control pings; the read deadline is twice this
	// value and is refreshed by every frame and pong. Zero disables both.
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
}

// WebsocketTransport speaks text frames over gorilla/websocket.
type WebsocketTransport struct {
	cfg WebsocketConfig
	lg  log.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex
}

var _ Transport = (*WebsocketTransport)(nil)

// NewWebsocketTransport returns an unconnected transport. A nil lg is
// replaced by a NoopLogger.
func NewWebsocketTransport(cfg WebsocketConfig, lg log.Logger) *WebsocketTransport {
	if lg == nil {
		lg = log.NewNoopLogger()
	}
	return &WebsocketTransport{
		cfg:  cfg,
		lg:   lg.WithName("ws-transport"),
		done: make(chan struct{}),
	}
}

// Connect dials endpoint, a ws:// or wss:// URL, and applies the read limit.
// With a ping interval set it also starts the keepalive loop. A transport
// connects once; a second Connect returns ErrAlreadyConnected.
func (t *WebsocketTransport) Connect(ctx context.Context, endpoint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  t.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDialingWebsocket, err)
	}

	if t.cfg.ReadLimit > 0 {
		conn.SetReadLimit(t.cfg.ReadLimit)
	}
	if t.cfg.PingInterval > 0 {
		t.extendReadDeadline(conn)
		conn.SetPongHandler(func(string) error {
			t.extendReadDeadline(conn)
			return nil
		})
		go t.pingLoop(conn)
	}

	t.conn = conn
	t.lg.Debug("websocket connected", "endpoint", endpoint)
	return nil
}

func (t *WebsocketTransport) extendReadDeadline(conn *websocket.Conn) {
	if t.cfg.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * t.cfg.PingInterval))
	}
}

func (t *WebsocketTransport) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.writeTimeout())
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				t.lg.Warn("ping failed, closing connection", "error", fmt.Errorf("%w: %w", ErrSendingPing, err))
				_ = t.Close()
				return
			}
		}
	}
}

func (t *WebsocketTransport) writeTimeout() time.Duration {
	if t.cfg.WriteTimeout > 0 {
		return t.cfg.WriteTimeout
	}
	return 5 * time.Second
}

func (t *WebsocketTransport) connection() (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return nil, ErrConnectionClosed
	default:
	}
	if t.conn == nil {
		return nil, ErrNotConnected
	}
	return t.conn, nil
}

// Send writes one text frame. The write deadline is the earlier of the
// context deadline and the configured write timeout.
func (t *WebsocketTransport) Send(ctx context.Context, frame []byte) error {
	conn, err := t.connection()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(t.writeTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return &ConnectionError{Op: "send", Err: err}
	}
	return nil
}

// Receive returns the next data frame. The context is only checked before
// blocking; Close is what interrupts a blocked read.
func (t *WebsocketTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := t.connection()
	if err != nil {
		return nil, err
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		select {
		case <-t.done:
			return nil, ErrConnectionClosed
		default:
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &ConnectionError{Op: "read", Err: fmt.Errorf("%w: %w", ErrConnectionTimeout, err)}
		}
		return nil, &ConnectionError{Op: "read", Err: fmt.Errorf("%w: %w", ErrReadingMessage, err)}
	}
	t.extendReadDeadline(conn)
	return data, nil
}

// Close sends a close frame when possible and releases the connection. It
// is safe to call more than once.
func (t *WebsocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		conn := t.conn
		close(t.done)
		t.mu.Unlock()

		if conn == nil {
			return
		}

		t.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.writeMu.Unlock()

		err = conn.Close()
	})
	return err
}
