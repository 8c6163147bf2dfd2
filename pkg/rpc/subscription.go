package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/polkaclient/polkaclient/pkg/log"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

type workerKey struct{}

// subscription is a live node subscription with its own delivery queue and
// worker goroutine. When the queue is full the oldest notification is
// dropped.
type subscription struct {
	id     SubscriptionID
	rawID  json.RawMessage
	topic  Topic
	handle Handler

	codec   *scale.Codec
	lg      log.Logger
	metrics *Metrics

	mu       sync.Mutex
	queue    []json.RawMessage
	limit    int
	wake     chan struct{}
	ctx      context.Context
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func newSubscription(id SubscriptionID, rawID json.RawMessage, topic Topic, handle Handler, deps subscriptionDeps) *subscription {
	s := &subscription{
		id:      id,
		rawID:   rawID,
		topic:   topic,
		handle:  handle,
		codec:   deps.codec,
		lg:      deps.lg.WithKV("topic", topic.key().String()).WithKV("subscription", string(id)),
		metrics: deps.metrics,
		limit:   max(deps.queueSize, 1),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.ctx = context.WithValue(context.Background(), workerKey{}, s)
	return s
}

type subscriptionDeps struct {
	codec     *scale.Codec
	lg        log.Logger
	metrics   *Metrics
	queueSize int
}

func (s *subscription) start() { go s.run() }

// push enqueues a notification result and reports whether an older one
// was dropped to make room.
func (s *subscription) push(result json.RawMessage) bool {
	s.mu.Lock()
	dropped := false
	if len(s.queue) >= s.limit {
		s.queue[0] = nil
		s.queue = s.queue[1:]
		dropped = true
	}
	s.queue = append(s.queue, result)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return dropped
}

func (s *subscription) pop() (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	next := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return next, true
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		for !s.stopped() {
			result, ok := s.pop()
			if !ok {
				break
			}
			s.deliver(result)
		}
	}
}

func (s *subscription) deliver(result json.RawMessage) {
	n := Notification{Topic: s.topic.key(), Subscription: s.id, Raw: result}

	if s.topic.Descriptor != nil {
		extract := s.topic.Extract
		if extract == nil {
			extract = HexResult
		}
		payload, err := extract(result)
		if err != nil {
			s.lg.Warn("dropping notification with unreadable payload", "error", err)
			s.metrics.notificationDropped(s.topic.Kind, "extract")
			return
		}
		if payload != nil {
			v, err := s.codec.Decode(payload, s.topic.Descriptor)
			if err != nil {
				s.lg.Warn("dropping notification that failed to decode", "type", s.topic.Descriptor.String(), "error", err)
				s.metrics.notificationDropped(s.topic.Kind, "decode")
				return
			}
			n.Value = v
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.lg.Error("subscription handler panicked", "panic", fmt.Sprint(r))
		}
	}()
	s.handle(s.ctx, n)
	s.metrics.notificationDelivered(s.topic.Kind)
}

func (s *subscription) stopped() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// stop ends the worker and waits until it has returned, unless ctx belongs
// to this subscription's own handler.
func (s *subscription) stop(ctx context.Context) {
	s.quitOnce.Do(func() { close(s.quit) })
	if own, _ := ctx.Value(workerKey{}).(*subscription); own == s {
		return
	}
	<-s.done
}

// subscriptionRegistry indexes live subscriptions by node id and by topic.
type subscriptionRegistry struct {
	mu      sync.RWMutex
	byID    map[SubscriptionID]*subscription
	byTopic map[TopicKey]*subscription
	closed  bool
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		byID:    make(map[SubscriptionID]*subscription),
		byTopic: make(map[TopicKey]*subscription),
	}
}

// install registers s and starts its worker.
func (r *subscriptionRegistry) install(s *subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrConnectionClosed
	}
	if _, dup := r.byID[s.id]; dup {
		return fmt.Errorf("%w: %s already in use", ErrInvalidSubscriptionID, s.id)
	}
	r.byID[s.id] = s
	r.byTopic[s.topic.key()] = s
	s.start()
	return nil
}

func (r *subscriptionRegistry) lookup(id SubscriptionID) *subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *subscriptionRegistry) forTopic(key TopicKey) *subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTopic[key]
}

// remove unregisters id and returns it, or nil if it was not registered.
func (r *subscriptionRegistry) remove(id SubscriptionID) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	if r.byTopic[s.topic.key()] == s {
		delete(r.byTopic, s.topic.key())
	}
	return s
}

// closeAll refuses further installs and returns everything registered.
func (r *subscriptionRegistry) closeAll() []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	all := make([]*subscription, 0, len(r.byID))
	for _, s := range r.byID {
		all = append(all, s)
	}
	r.byID = make(map[SubscriptionID]*subscription)
	r.byTopic = make(map[TopicKey]*subscription)
	return all
}

func (r *subscriptionRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
