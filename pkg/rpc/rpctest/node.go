// Package rpctest provides an in-memory node that speaks the client's
// JSON-RPC framing, for tests of rpc.Client and the packages built on it.
package rpctest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkaclient/polkaclient/pkg/rpc"
)

// ErrConnectionReset is returned by Receive after the node dropped the
// connection.
var ErrConnectionReset = errors.New("rpctest: connection reset by node")

// Call is a request as seen by the node.
type Call struct {
	ID     uint64
	Method string
	Params []json.RawMessage

	conn *Conn
}

// Reply answers the call with result.
func (c *Call) Reply(result any) {
	c.conn.push(mustJSON(map[string]any{"jsonrpc": rpc.Version, "id": c.ID, "result": result}))
}

// ReplyError answers the call with a JSON-RPC error.
func (c *Call) ReplyError(code int, message string) {
	c.conn.push(mustJSON(map[string]any{
		"jsonrpc": rpc.Version,
		"id":      c.ID,
		"error":   map[string]any{"code": code, "message": message},
	}))
}

// Param decodes parameter i into out.
func (c *Call) Param(i int, out any) error {
	if i >= len(c.Params) {
		return fmt.Errorf("rpctest: %s has no param %d", c.Method, i)
	}
	return json.Unmarshal(c.Params[i], out)
}

// Handler serves one method. It may reply immediately, later from another
// goroutine, or never.
type Handler func(call *Call)

// Node is a scripted node. Methods without a handler are answered with
// error -32601.
type Node struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []*Call
	conns    []*Conn
	dialErr  error
	nextSub  atomic.Uint64
	unsubbed []string
	changed  chan struct{}
}

func NewNode() *Node {
	return &Node{
		handlers: make(map[string]Handler),
		changed:  make(chan struct{}),
	}
}

// Handle installs h for method.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// HandleResult makes method answer with a fixed result.
func (n *Node) HandleResult(method string, result any) {
	n.Handle(method, func(call *Call) { call.Reply(result) })
}

// HandleSubscribe makes method answer with fresh subscription ids
// "sub-1", "sub-2", ...
func (n *Node) HandleSubscribe(method string) {
	n.Handle(method, func(call *Call) {
		call.Reply(fmt.Sprintf("sub-%d", n.nextSub.Add(1)))
	})
}

// HandleUnsubscribe makes method answer true and records the ids it was
// asked to close.
func (n *Node) HandleUnsubscribe(method string) {
	n.Handle(method, func(call *Call) {
		var id string
		_ = call.Param(0, &id)
		n.mu.Lock()
		n.unsubbed = append(n.unsubbed, id)
		n.mu.Unlock()
		call.Reply(true)
	})
}

// FailDial makes every following Connect fail with err.
func (n *Node) FailDial(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dialErr = err
}

// Factory returns a transport factory for rpc.WithTransportFactory.
func (n *Node) Factory() rpc.TransportFactory {
	return func() rpc.Transport { return &Conn{node: n, wake: make(chan struct{}, 1), closed: make(chan struct{})} }
}

// Notify pushes a subscription notification to every open connection.
func (n *Node) Notify(method string, sub string, result any) {
	n.PushRaw(mustJSON(map[string]any{
		"jsonrpc": rpc.Version,
		"method":  method,
		"params":  map[string]any{"subscription": sub, "result": result},
	}))
}

// PushRaw sends frame verbatim to every open connection.
func (n *Node) PushRaw(frame []byte) {
	for _, c := range n.openConns() {
		c.push(frame)
	}
}

// DropConnections closes every open connection from the node side.
func (n *Node) DropConnections() {
	for _, c := range n.openConns() {
		c.drop()
	}
}

// Calls returns the requests received so far.
func (n *Node) Calls() []*Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Call(nil), n.calls...)
}

// CallsTo returns the requests received for method.
func (n *Node) CallsTo(method string) []*Call {
	var out []*Call
	for _, c := range n.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Unsubscribed returns the ids closed through HandleUnsubscribe handlers.
func (n *Node) Unsubscribed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.unsubbed...)
}

// WaitForCalls blocks until method was called count times or timeout
// elapses, and returns those calls.
func (n *Node) WaitForCalls(method string, count int, timeout time.Duration) ([]*Call, error) {
	deadline := time.After(timeout)
	for {
		n.mu.Lock()
		changed := n.changed
		n.mu.Unlock()

		if calls := n.CallsTo(method); len(calls) >= count {
			return calls, nil
		}
		select {
		case <-changed:
		case <-deadline:
			return nil, fmt.Errorf("rpctest: %d calls to %s after %s, want %d", len(n.CallsTo(method)), method, timeout, count)
		}
	}
}

func (n *Node) openConns() []*Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	var open []*Conn
	for _, c := range n.conns {
		if !c.isClosed() {
			open = append(open, c)
		}
	}
	return open
}

func (n *Node) record(call *Call) Handler {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	close(n.changed)
	n.changed = make(chan struct{})
	return n.handlers[call.Method]
}

// Conn is one client connection to a Node. It implements rpc.Transport.
type Conn struct {
	node *Node

	mu      sync.Mutex
	inbox   [][]byte
	wake    chan struct{}
	closed  chan struct{}
	once    sync.Once
	dropped atomic.Bool
}

var _ rpc.Transport = (*Conn)(nil)

func (c *Conn) Connect(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	if c.node.dialErr != nil {
		return c.node.dialErr
	}
	c.node.conns = append(c.node.conns, c)
	return nil
}

func (c *Conn) Send(_ context.Context, frame []byte) error {
	if c.isClosed() {
		return rpc.ErrConnectionClosed
	}

	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(frame, &req); err != nil {
		return fmt.Errorf("rpctest: bad request frame: %w", err)
	}

	call := &Call{ID: req.ID, Method: req.Method, Params: req.Params, conn: c}
	if h := c.node.record(call); h != nil {
		h(call)
	} else {
		call.ReplyError(-32601, "Method not found")
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	for {
		c.mu.Lock()
		if len(c.inbox) > 0 {
			next := c.inbox[0]
			c.inbox = c.inbox[1:]
			c.mu.Unlock()
			return next, nil
		}
		c.mu.Unlock()

		select {
		case <-c.closed:
			if c.dropped.Load() {
				return nil, ErrConnectionReset
			}
			return nil, rpc.ErrConnectionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.wake:
		}
	}
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) drop() {
	c.dropped.Store(true)
	_ = c.Close()
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) push(frame []byte) {
	if c.isClosed() {
		return
	}
	c.mu.Lock()
	c.inbox = append(c.inbox, frame)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
