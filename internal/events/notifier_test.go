package events

import (
	"testing"
)

func TestNotifier_DeliversInSubscriptionOrder(t *testing.T) {
	n := NewNotifier(nil)

	var order []string
	n.Subscribe(func(e Event) { order = append(order, "a") })
	n.Subscribe(func(e Event) { order = append(order, "b") })
	n.Subscribe(func(e Event) { order = append(order, "c") })

	n.Publish(Event{Type: EventCallConnected})

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier(nil)

	calls := 0
	sub := n.Subscribe(func(e Event) { calls++ })

	n.Publish(Event{Type: EventCallTick})
	n.Unsubscribe(sub)
	n.Publish(Event{Type: EventCallTick})

	if calls != 1 {
		t.Fatalf("expected 1 delivery after unsubscribe, got %d", calls)
	}
}

func TestNotifier_PanickingListenerDoesNotStopOthers(t *testing.T) {
	n := NewNotifier(nil)

	var after bool
	n.Subscribe(func(e Event) { panic("listener blew up") })
	n.Subscribe(func(e Event) { after = true })

	// Must not propagate to the publisher either.
	n.Publish(Event{Type: EventError, Reason: "boom"})

	if !after {
		t.Fatalf("listener after panicking one was not invoked")
	}
}

func TestNotifier_StampsTimestamp(t *testing.T) {
	n := NewNotifier(nil)

	var got Event
	n.Subscribe(func(e Event) { got = e })
	n.Publish(Event{Type: EventMessageSent})

	if got.At.IsZero() {
		t.Fatalf("expected At to be stamped")
	}
}

func TestNotifier_NilListenerIgnored(t *testing.T) {
	n := NewNotifier(nil)
	if sub := n.Subscribe(nil); sub != nil {
		t.Fatalf("expected nil subscription for nil listener")
	}
	n.Unsubscribe(nil) // no-op
	n.Publish(Event{Type: EventCallTick})
}
