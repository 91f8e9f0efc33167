package feed

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, ch1, cancel1 := hub.Subscribe(4)
	defer cancel1()
	_, ch2, cancel2 := hub.Subscribe(4)
	defer cancel2()

	hub.Publish(Event{Type: TypeMessageCreated, ID: "m1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			if event.ID != "m1" {
				t.Fatalf("unexpected event %+v", event)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive event")
		}
	}
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, ch, cancel := hub.Subscribe(4)

	cancel()
	cancel() // second cancel must not panic on a closed channel

	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after cancel")
	}

	// Publishing after cancel must not panic either.
	hub.Publish(Event{Type: TypeConversationUpdated, ID: "c1"})
}

func TestSlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, ch, cancel := hub.Subscribe(1)
	defer cancel()

	// Fill the buffer, then keep publishing; Publish must return immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(Event{Type: TypeCampaignUpdated, ID: "c1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}

	// The single buffered event is still readable.
	select {
	case event := <-ch:
		if event.Type != TypeCampaignUpdated {
			t.Fatalf("unexpected event %+v", event)
		}
	default:
		t.Fatalf("expected one buffered event")
	}
}

func TestSubscribeDefaultsBufferSize(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, ch, cancel := hub.Subscribe(0)
	defer cancel()

	for i := 0; i < DefaultBufferSize; i++ {
		hub.Publish(Event{Type: TypeMessageCreated, ID: "m"})
	}
	if len(ch) != DefaultBufferSize {
		t.Fatalf("expected default buffer of %d, held %d", DefaultBufferSize, len(ch))
	}
}
