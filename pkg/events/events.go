package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudspire/ddnsd/pkg/status"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	// EventStatus carries a full status snapshot
	EventStatus EventType = "status"
	// EventLog carries a free-text log line
	EventLog EventType = "log"
)

// Event is one broadcast message. Seq increases by one per published
// event; a subscriber that observes a gap has missed events and should
// re-fetch the authoritative status snapshot.
type Event struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Status    *status.AppStatus `json:"status,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// DefaultBuffer is the recommended main channel capacity
const DefaultBuffer = 1024

// subscriberBuffer bounds each subscriber channel; when full, the oldest
// buffered event is dropped to make room.
const subscriberBuffer = 64

// Broker manages event subscriptions and distribution. Publishing never
// blocks: slow subscribers lose old events instead of stalling the
// publisher.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	seq         atomic.Uint64
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, DefaultBuffer),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, subscriberBuffer)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subscribers[sub] {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// PublishStatus broadcasts a status-changed event carrying the snapshot
func (b *Broker) PublishStatus(snap status.AppStatus) {
	b.publish(&Event{
		Type:   EventStatus,
		Status: &snap,
	})
}

// PublishLog broadcasts a log line event
func (b *Broker) PublishLog(msg string) {
	b.publish(&Event{
		Type:    EventLog,
		Message: msg,
	})
}

// publish stamps and enqueues an event. The main channel is bounded; if
// the distribution loop has fallen this far behind, the event is dropped
// rather than blocking the publisher.
func (b *Broker) publish(event *Event) {
	event.ID = uuid.New().String()
	event.Seq = b.seq.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

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

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
			continue
		default:
		}
		// Subscriber buffer full: drop its oldest event, then retry once.
		// The subscriber detects the resulting Seq gap.
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
