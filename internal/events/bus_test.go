package events

import "testing"

func TestBusDeliversToSubscribers(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(TopicOrderFilled, 2)
	defer unsub()

	b.Publish(TopicOrderFilled, "a")
	b.Publish(TopicOrderCanceled, "ignored")

	select {
	case msg := <-ch:
		if msg.Topic != TopicOrderFilled || msg.Payload != "a" {
			t.Errorf("got %+v, want order.filled/a", msg)
		}
	default:
		t.Fatal("expected a delivered message")
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %+v", msg)
	default:
	}
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(TopicBarProcessed, 1)
	defer unsub()

	b.Publish(TopicBarProcessed, 1)
	b.Publish(TopicBarProcessed, 2) // dropped, publishing never blocks

	if msg := <-ch; msg.Payload != 1 {
		t.Errorf("payload = %v, want 1", msg.Payload)
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %+v", msg)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(TopicTradeClosed, 1)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected a closed channel after unsubscribe")
	}
	// Publishing to a topic with no subscribers is a no-op.
	b.Publish(TopicTradeClosed, "x")
}
