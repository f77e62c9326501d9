package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	b := New()
	b.PublishInbound(InboundMessage{DeliveryID: "d1", Content: "hi"})

	msg, ok := b.ConsumeInbound(context.Background())
	if !ok || msg.DeliveryID != "d1" {
		t.Fatalf("got %+v, %v", msg, ok)
	}
}

func TestConsumeCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.ConsumeInbound(ctx)
	if ok {
		t.Fatal("consume on cancelled context reported a message")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < inboundBuffer*2; i++ {
			b.PublishInbound(InboundMessage{DeliveryID: "x"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishInbound blocked on a full buffer")
	}
}

func TestBroadcast(t *testing.T) {
	b := New()
	var got []Event
	b.Subscribe("c1", func(ev Event) { got = append(got, ev) })

	b.Broadcast(Event{Name: EventRouted})
	b.Broadcast(Event{Name: EventDropped})
	if len(got) != 2 || got[0].Name != EventRouted {
		t.Fatalf("events = %+v", got)
	}

	b.Unsubscribe("c1")
	b.Broadcast(Event{Name: EventHealth})
	if len(got) != 2 {
		t.Fatal("unsubscribed handler still called")
	}
}
