// Package events provides an in-process publish/subscribe broker for
// live-tailing activity events, independent of the durable store/graph
// writes the supervisor's sink performs on every event.
package events

import (
	"sync"

	"github.com/tbrennan/chronicle/pkg/types"
)

// Subscriber is a channel that receives a copy of every published event.
type Subscriber chan types.Event

// Broker fans a single stream of events out to any number of
// subscribers, so live activity can be tailed without touching the
// SQLite store. No CLI command subscribes to it.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan types.Event
	stopCh      chan struct{}
}

// NewBroker creates a broker with a bounded internal queue.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan types.Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts distribution and closes every subscriber channel.
func (b *Broker) Stop() {
	close(b.stopCh)
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = make(map[Subscriber]bool)
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a subscriber's channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish enqueues an event for distribution. Non-blocking: if the
// broker is stopped the event is dropped rather than deadlocking the
// caller (the supervisor's sink, which must never block on a CLI
// consumer that isn't listening).
func (b *Broker) Publish(event types.Event) {
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	default:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full; drop rather than stall the broker.
		}
	}
}

// SubscriberCount reports the number of active live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
