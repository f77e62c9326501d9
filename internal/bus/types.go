package bus

import "context"

// InboundMessage is one webhook delivery normalized for routing.
type InboundMessage struct {
	DeliveryID string `json:"delivery_id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	ChatName   string `json:"chat_name,omitempty"` // group subject, empty in direct chats
	Content    string `json:"content"`
}

// Event is a server-side event broadcast to WebSocket clients.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// Event names pushed to /ws clients.
const (
	EventRouted  = "message.routed"
	EventDropped = "message.dropped"
	EventHealth  = "health"
)

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription. Used by the
// gateway's WebSocket feed and the router to stay decoupled from the
// concrete MessageBus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// MessageRouter abstracts inbound message flow between the webhook layer
// and the dispatch consumer.
type MessageRouter interface {
	PublishInbound(msg InboundMessage)
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
}
