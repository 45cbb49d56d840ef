// Package events is a lightweight in-process pub/sub bus the simulation loop
// uses to report order and run progress without coupling to its observers.
package events

import "sync"

// Topic enumerates the event streams published during a backtest run.
type Topic string

const (
	TopicOrderFilled   Topic = "order.filled"
	TopicOrderRejected Topic = "order.rejected"
	TopicOrderCanceled Topic = "order.canceled"
	TopicTradeClosed   Topic = "trade.closed"
	TopicBarProcessed  Topic = "bar.processed"
)

// Message is one published event.
type Message struct {
	Topic   Topic
	Payload any
}

// Bus fans messages out to subscribers over buffered channels. Publishing
// never blocks; a subscriber that falls behind loses messages.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Message
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Message)}
}

// Subscribe registers a listener for the topic. The returned function
// unsubscribes and closes the channel.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, buffer)
	b.subs[t] = append(b.subs[t], ch)

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs[t] {
			if c == ch {
				b.subs[t] = append(b.subs[t][:i], b.subs[t][i+1:]...)
				close(c)
				return
			}
		}
	}
}

// Publish delivers the payload to every subscriber of the topic, dropping it
// for subscribers whose buffer is full.
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[t] {
		select {
		case ch <- Message{Topic: t, Payload: payload}:
		default:
		}
	}
}
