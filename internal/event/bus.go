package event

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Bus errors.
var (
	ErrNilHandler   = errors.New("event: handler is nil")
	ErrInvalidTopic = errors.New("event: topic pattern is empty")
	ErrNotFound     = errors.New("event: subscription not found")
)

// Handler processes a published event. A handler must not panic; the bus
// recovers and counts panics so one misbehaving consumer cannot take the
// host page down with it.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	id      string
	pattern Topic
}

// Pattern returns the topic pattern the subscription was created with.
func (s Subscription) Pattern() Topic {
	return s.pattern
}

// Stats reports bus activity counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	HandlerPanics uint64
	Subscribers   int
}

// Bus is a synchronous topic bus. Safe for concurrent use, though the
// engine publishes from a single event-loop turn at a time.
type Bus struct {
	mu    sync.RWMutex
	subs  []subscription
	stats Stats
}

type subscription struct {
	id      string
	pattern Topic
	handler Handler
	once    bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every topic matching the pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (Subscription, error) {
	return b.subscribe(pattern, handler, false)
}

// SubscribeOnce registers a handler that is removed after its first delivery.
func (b *Bus) SubscribeOnce(pattern Topic, handler Handler) (Subscription, error) {
	return b.subscribe(pattern, handler, true)
}

func (b *Bus) subscribe(pattern Topic, handler Handler, once bool) (Subscription, error) {
	if handler == nil {
		return Subscription{}, ErrNilHandler
	}
	if pattern == "" {
		return Subscription{}, ErrInvalidTopic
	}

	sub := subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
		once:    once,
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return Subscription{id: sub.id, pattern: pattern}, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Publish delivers the event to every matching handler, in subscription
// order, before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.stats.Published++

	// Snapshot matching handlers so a handler may subscribe/unsubscribe
	// without deadlocking the delivery loop.
	var matched []subscription
	kept := b.subs[:0]
	for _, s := range b.subs {
		if Match(s.pattern, ev.Type) {
			matched = append(matched, s)
			if s.once {
				continue
			}
		}
		kept = append(kept, s)
	}
	b.subs = kept
	b.mu.Unlock()

	for _, s := range matched {
		b.deliver(s.handler, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.stats.HandlerPanics++
			b.mu.Unlock()
		}
	}()
	h(ev)
	b.mu.Lock()
	b.stats.Delivered++
	b.mu.Unlock()
}

// Stats returns a snapshot of bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.stats
	s.Subscribers = len(b.subs)
	return s
}
