package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/polkaclient/polkaclient/pkg/log"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

const tracerName = "github.com/polkaclient/polkaclient/pkg/rpc"

// Client multiplexes JSON-RPC calls and subscriptions over one transport
// connection. All methods are safe for concurrent use.
type Client struct {
	cfg          Config
	configured   bool
	lg           log.Logger
	metrics      *Metrics
	codec        *scale.Codec
	tracer       trace.Tracer
	limiter      *rate.Limiter
	newTransport TransportFactory

	nextID atomic.Uint64

	// lifecycleMu serializes Connect and Disconnect.
	lifecycleMu sync.Mutex
	mu          sync.RWMutex
	state       State
	sess        *session

	topicLocks *xsync.MapOf[TopicKey, *topicLock]
}

// topicLock serializes subscribe and unsubscribe for one topic. The entry
// lives only while someone holds or waits for it.
type topicLock struct {
	sync.Mutex
	refs int
}

// session is the state tied to one physical connection. Nothing in it
// survives a disconnect.
type session struct {
	id        string
	endpoint  string
	transport Transport
	pending   *pendingTable
	subs      *subscriptionRegistry
	lg        log.Logger

	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
	err        error
}

// Option customizes a Client.
type Option func(*Client)

// WithConfig sets the client settings. Unless WithLogger is also given,
// the client logs through a zap logger built from cfg.Log.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg
		c.configured = true
	}
}

// WithLogger sets the logger. It takes precedence over cfg.Log.
func WithLogger(lg log.Logger) Option { return func(c *Client) { c.lg = lg } }

// WithMetrics records client metrics into m. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithCodec sets the codec used to decode subscription payloads.
func WithCodec(codec *scale.Codec) Option { return func(c *Client) { c.codec = codec } }

// WithTracer sets the tracer for call and subscription spans. The global
// otel tracer is used otherwise.
func WithTracer(tr trace.Tracer) Option { return func(c *Client) { c.tracer = tr } }

// WithTransportFactory replaces the websocket transport, mostly for tests.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Client) { c.newTransport = f }
}

// NewClient returns a disconnected client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		cfg:        DefaultConfig(),
		topicLocks: xsync.NewMapOf[TopicKey, *topicLock](),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.lg != nil:
	case c.configured:
		c.lg = log.NewZapLogger(c.cfg.Log)
	default:
		c.lg = log.NewNoopLogger()
	}
	c.lg = c.lg.WithName("rpc-client")
	if c.codec == nil {
		c.codec = scale.NewCodec(scale.NewRegistry())
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.newTransport == nil {
		wsCfg, lg := c.cfg.websocket(), c.lg
		c.newTransport = func() Transport { return NewWebsocketTransport(wsCfg, lg) }
	}
	if c.cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), max(c.cfg.RequestBurst, 1))
	}
	c.metrics.stateChanged(StateDisconnected)
	return c
}

// Codec returns the codec used to decode results and notifications.
func (c *Client) Codec() *scale.Codec { return c.codec }

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) IsConnected() bool { return c.State() == StateConnected }

func (c *Client) setState(s State, sess *session) {
	c.mu.Lock()
	c.state = s
	c.sess = sess
	c.mu.Unlock()
	c.metrics.stateChanged(s)
}

func (c *Client) session() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil
	}
	return c.sess
}

// Connect opens a session to endpoint and starts its reader.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.State() != StateDisconnected {
		return ErrAlreadyConnected
	}
	c.setState(StateConnecting, nil)

	t := c.newTransport()
	if err := t.Connect(ctx, endpoint); err != nil {
		_ = t.Close()
		c.setState(StateDisconnected, nil)
		c.lg.Warn("connect failed", "endpoint", endpoint, "error", err)
		return &ConnectionError{Op: "connect", Err: err}
	}

	id := uuid.NewString()
	sess := &session{
		id:         id,
		endpoint:   endpoint,
		transport:  t,
		pending:    newPendingTable(),
		subs:       newSubscriptionRegistry(),
		lg:         c.lg.WithKV("session", id),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	c.setState(StateConnected, sess)
	go c.readLoop(sess)

	sess.lg.Info("connected", "endpoint", endpoint)
	return nil
}

// Disconnect closes the session. Pending calls fail with
// ErrConnectionClosed and subscriptions are dropped without node side
// unsubscribes. No handler runs once Disconnect has returned, which is why
// it must not be called from inside a Handler. Calling it while
// disconnected does nothing.
func (c *Client) Disconnect() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	if sess == nil {
		return
	}

	c.setState(StateClosing, sess)
	c.teardown(sess, ErrConnectionClosed)
	<-sess.readerDone
	c.setState(StateDisconnected, nil)
	sess.lg.Info("disconnected")
}

// teardown ends sess once: it closes the transport, fails pending calls and
// stops every subscription worker.
func (c *Client) teardown(sess *session, reason error) {
	sess.closeOnce.Do(func() {
		sess.err = reason
		close(sess.done)
		if err := sess.transport.Close(); err != nil {
			sess.lg.Debug("transport close", "error", err)
		}

		sess.pending.failAll(reason)
		subs := sess.subs.closeAll()
		for _, s := range subs {
			s.stop(context.Background())
		}
		c.metrics.subscriptionsAdded(-float64(len(subs)))
	})
}

func (c *Client) readLoop(sess *session) {
	defer close(sess.readerDone)

	ctx := log.SetContextLogger(context.Background(), sess.lg)
	for {
		data, err := sess.transport.Receive(ctx)
		if err != nil {
			select {
			case <-sess.done:
				return
			default:
			}

			sess.lg.Warn("connection lost", "error", err)
			var connErr *ConnectionError
			if !errors.As(err, &connErr) {
				err = &ConnectionError{Op: "read", Err: err}
			}
			c.transition(sess, StateClosing)
			c.teardown(sess, fmt.Errorf("%w: %w", ErrConnectionClosed, err))
			c.transition(sess, StateDisconnected)
			return
		}
		c.dispatch(sess, data)
	}
}

// transition moves the client to s if sess is still the current session. A
// concurrent Disconnect owns the state otherwise.
func (c *Client) transition(sess *session, s State) {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	c.state = s
	if s == StateDisconnected {
		c.sess = nil
	}
	c.mu.Unlock()
	c.metrics.stateChanged(s)
}

func (c *Client) dispatch(sess *session, data []byte) {
	f, kind, err := parseFrame(data)
	switch kind {
	case frameResponse:
		if !sess.pending.resolve(f.requestID, f.Result, f.Error) {
			sess.lg.Debug("dropping response for unknown request", "id", f.requestID)
		}
	case frameNotification:
		sub := sess.subs.lookup(f.Params.Subscription)
		if sub == nil {
			sess.lg.Debug("dropping notification for unknown subscription", "subscription", f.Params.Subscription, "method", f.Method)
			c.metrics.notificationDropped("unknown", "unknown_subscription")
			return
		}
		if sub.push(f.Params.Result) {
			sub.lg.Warn("subscription queue full, dropped oldest notification")
			c.metrics.notificationDropped(sub.topic.Kind, "queue_full")
		}
	default:
		sess.lg.Warn("dropping malformed frame", "frame", string(data), "error", err)
		c.metrics.notificationDropped("unknown", "malformed")
	}
}

// Call sends method with params and waits for the raw JSON result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	sess := c.session()
	if sess == nil {
		return nil, ErrNotConnected
	}
	return c.call(ctx, sess, method, params, nil, nil)
}

// CallInto is Call followed by json.Unmarshal into out.
func (c *Client) CallInto(ctx context.Context, out any, method string, params ...any) error {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// CallDecode calls a method whose result is a hex encoded value and decodes
// it as d. A null result returns (nil, nil).
func (c *Client) CallDecode(ctx context.Context, d scale.Descriptor, method string, params ...any) (any, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	payload, err := HexResult(result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if payload == nil {
		return nil, nil
	}
	return c.codec.Decode(payload, d)
}

// call sends one request and waits for its response. onResult runs on the
// reader goroutine when a result arrives in time. When the wait is given up
// first, late receives the result instead, if it ever comes.
func (c *Client) call(ctx context.Context, sess *session, method string, params []any, onResult func(json.RawMessage) error, late func(json.RawMessage)) (result json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "rpc.call "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
		))
	defer span.End()
	ctx = log.SetContextLogger(ctx, sess.lg)
	lg := log.FromContext(ctx)

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.contextError(ctx, method, err)
		}
	}

	id := c.nextID.Add(1)
	span.SetAttributes(attribute.Int64("rpc.jsonrpc.request_id", int64(id)))
	frame, err := json.Marshal(NewRequest(id, method, params...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshalingRequest, err)
	}

	start := time.Now()
	defer func() {
		c.metrics.callFinished(method, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	pc := sess.pending.add(id, onResult)
	c.metrics.pendingAdded(1)
	defer c.metrics.pendingAdded(-1)

	lg.Debug("sending request", "id", id, "method", method)
	if err := sess.transport.Send(ctx, frame); err != nil {
		sess.pending.remove(id)
		return nil, fmt.Errorf("%w: %w", ErrSendingRequest, err)
	}

	var abort error
	select {
	case res := <-pc.done:
		return res.result, res.err
	case <-ctx.Done():
		abort = c.contextError(ctx, method, ctx.Err())
	case <-sess.done:
		abort = sess.err
	}

	// If the reader or teardown already took the call, its result is on
	// the way and must win over the abort.
	if sess.pending.abandon(id, late) {
		lg.Debug("request abandoned", "id", id, "reason", abort)
		return nil, abort
	}
	res := <-pc.done
	return res.result, res.err
}

func (c *Client) contextError(ctx context.Context, method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrCallTimeout, method, err)
	}
	return err
}

// lockTopic blocks until the caller owns key. The returned func releases it.
func (c *Client) lockTopic(key TopicKey) (unlock func()) {
	l, _ := c.topicLocks.Compute(key, func(l *topicLock, loaded bool) (*topicLock, bool) {
		if !loaded {
			l = &topicLock{}
		}
		l.refs++
		return l, false
	})
	l.Lock()

	return func() {
		l.Unlock()
		c.topicLocks.Compute(key, func(l *topicLock, _ bool) (*topicLock, bool) {
			l.refs--
			return l, l.refs == 0
		})
	}
}

// Subscribe opens a subscription for topic and routes its notifications to
// handler. A live subscription with the same kind and key is closed first,
// including its node side unsubscribe, before the new one is requested.
func (c *Client) Subscribe(ctx context.Context, topic Topic, handler Handler) (SubscriptionID, error) {
	if err := topic.validate(); err != nil {
		return "", err
	}
	if handler == nil {
		return "", fmt.Errorf("%w: nil handler", ErrInvalidTopic)
	}
	sess := c.session()
	if sess == nil {
		return "", ErrNotConnected
	}

	key := topic.key()
	defer c.lockTopic(key)()

	if old := sess.subs.forTopic(key); old != nil {
		if err := c.unsubscribe(ctx, sess, old); err != nil {
			sess.lg.Warn("replacing subscription: node side unsubscribe failed", "topic", key.String(), "subscription", old.id, "error", err)
		}
	}

	var late func(json.RawMessage)
	if topic.UnsubscribeMethod != "" {
		late = func(result json.RawMessage) { go c.closeLateSubscription(sess, topic, result) }
	}

	var sub *subscription
	_, err := c.call(ctx, sess, topic.SubscribeMethod, topic.Params, func(result json.RawMessage) error {
		var id SubscriptionID
		if err := json.Unmarshal(result, &id); err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("%w: %s", ErrInvalidSubscriptionID, result)
		}

		s := newSubscription(id, result, topic, handler, subscriptionDeps{
			codec:     c.codec,
			lg:        sess.lg.WithName("subscriptions"),
			metrics:   c.metrics,
			queueSize: c.cfg.SubscriptionQueueSize,
		})
		if err := sess.subs.install(s); err != nil {
			return err
		}
		sub = s
		return nil
	}, late)
	if err != nil {
		return "", err
	}

	c.metrics.subscriptionsAdded(1)
	sess.lg.Debug("subscribed", "topic", key.String(), "subscription", sub.id)
	return sub.id, nil
}

// closeLateSubscription unsubscribes a node side subscription whose
// subscribe call was abandoned before the node answered it. The id was never
// installed, so no notification for it is delivered.
func (c *Client) closeLateSubscription(sess *session, topic Topic, rawID json.RawMessage) {
	lg := sess.lg.WithKV("topic", topic.key().String())
	if _, err := c.call(context.Background(), sess, topic.UnsubscribeMethod, []any{rawID}, nil, nil); err != nil {
		lg.Warn("closing late subscription failed", "subscription", string(rawID), "error", err)
		return
	}
	lg.Debug("closed late subscription", "subscription", string(rawID))
}

// Unsubscribe removes the subscription and asks the node to close it. The
// local entry is gone even when the node call fails. Unknown ids are
// ignored.
func (c *Client) Unsubscribe(ctx context.Context, id SubscriptionID) error {
	sess := c.session()
	if sess == nil {
		return nil
	}
	sub := sess.subs.lookup(id)
	if sub == nil {
		return nil
	}

	defer c.lockTopic(sub.topic.key())()

	return c.unsubscribe(ctx, sess, sub)
}

func (c *Client) unsubscribe(ctx context.Context, sess *session, sub *subscription) error {
	if sess.subs.remove(sub.id) == nil {
		return nil
	}
	c.metrics.subscriptionsAdded(-1)

	var err error
	if sub.topic.UnsubscribeMethod != "" {
		_, err = c.call(ctx, sess, sub.topic.UnsubscribeMethod, []any{sub.rawID}, nil, nil)
	}
	sub.stop(ctx)

	sess.lg.Debug("unsubscribed", "topic", sub.topic.key().String(), "subscription", sub.id)
	return err
}

// Subscriptions returns the number of live subscriptions.
func (c *Client) Subscriptions() int {
	sess := c.session()
	if sess == nil {
		return 0
	}
	return sess.subs.size()
}
