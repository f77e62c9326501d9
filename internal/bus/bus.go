package bus

import (
	"context"
	"log/slog"
	"sync"
)

const inboundBuffer = 256

// MessageBus carries inbound webhook deliveries to the dispatch consumer
// and fans events out to subscribers. Implements MessageRouter and
// EventPublisher.
type MessageBus struct {
	inbound chan InboundMessage

	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

// New creates a MessageBus.
func New() *MessageBus {
	return &MessageBus{
		inbound:     make(chan InboundMessage, inboundBuffer),
		subscribers: make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a delivery for routing. A full buffer drops the
// message with a log line rather than blocking the webhook handler — the
// gateway must answer 200 quickly or Green API retries the delivery.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound buffer full, dropping delivery",
			"delivery_id", msg.DeliveryID, "chat_id", msg.ChatID)
	}
}

// ConsumeInbound blocks until a delivery arrives or ctx is done.
// The second return is false when the context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// Subscribe registers an event handler under id, replacing any previous
// handler with that id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes the handler registered under id.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Broadcast delivers event to every subscriber. Handlers run on the
// caller's goroutine and must not block.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
