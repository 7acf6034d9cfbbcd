package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/plugin"
)

// eventBus implements plugin.EventBus on a buffered channel. A single
// dispatcher fans events out to one goroutine per handler.
type eventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriberEntry
	nextID      atomic.Uint64

	ch      chan envelope
	done    chan struct{} // closed by Close
	stopped chan struct{} // closed by the dispatcher after draining
	closed  atomic.Bool
	wg      sync.WaitGroup

	logger logging.Logger
}

type envelope struct {
	ctx   context.Context
	event plugin.Event
}

type subscriberEntry struct {
	id      uint64
	handler plugin.EventHandler
}

type subscription struct {
	bus   *eventBus
	topic string
	id    uint64
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subscribers[s.topic]
	for i, entry := range subs {
		if entry.id == s.id {
			s.bus.subscribers[s.topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func NewEventBus(bufferSize int, logger logging.Logger) *eventBus {
	if logger == nil {
		logger = logging.NewNop()
	}
	bus := &eventBus{
		subscribers: make(map[string][]subscriberEntry),
		ch:          make(chan envelope, bufferSize),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		logger:      logger,
	}
	go bus.dispatch()
	return bus
}

func (b *eventBus) dispatch() {
	defer close(b.stopped)
	for {
		select {
		case env := <-b.ch:
			b.fanOut(env)
		case <-b.done:
			for {
				select {
				case env := <-b.ch:
					b.fanOut(env)
				default:
					return
				}
			}
		}
	}
}

func (b *eventBus) fanOut(env envelope) {
	b.mu.RLock()
	subs := append([]subscriberEntry(nil), b.subscribers[env.event.Name]...)
	b.mu.RUnlock()

	for _, entry := range subs {
		b.wg.Add(1)
		go b.run(env, entry.handler)
	}
}

func (b *eventBus) run(env envelope, h plugin.EventHandler) {
	defer b.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", env.event.Name),
				zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	if err := h(env.ctx, env.event); err != nil {
		logging.WithContext(b.logger, env.ctx).Warn("event handler error",
			zap.String("event", env.event.Name),
			zap.String("source", env.event.Source),
			zap.Error(err))
	}
}

// Publish queues event. Handlers run after the publishing request may have
// finished, so they get ctx without its cancellation.
func (b *eventBus) Publish(ctx context.Context, event plugin.Event) error {
	if b.closed.Load() {
		return plugin.ErrBusClosed
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	env := envelope{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case b.ch <- env:
		return nil
	default:
	}

	select {
	case b.ch <- env:
		return nil
	case <-ctx.Done():
		return plugin.ErrPublishTimeout
	}
}

func (b *eventBus) Subscribe(topic string, handler plugin.EventHandler) plugin.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscribers[topic] = append(b.subscribers[topic], subscriberEntry{id: id, handler: handler})
	return &subscription{bus: b, topic: topic, id: id}
}

// Close drains queued events and waits for running handlers. Safe to call twice.
func (b *eventBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.done)
	<-b.stopped
	b.wg.Wait()
	return nil
}
