// Package events provides the in-process notification fan-out used by the
// call tracker and message sender to reach UI-facing consumers.
package events

import (
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventCallInitiated    EventType = "call.initiated"
	EventCallRinging      EventType = "call.ringing"
	EventCallConnected    EventType = "call.connected"
	EventCallTick         EventType = "call.tick"
	EventCallDisconnected EventType = "call.disconnected"
	EventCallCancelled    EventType = "call.cancelled"
	EventCallRejected     EventType = "call.rejected"
	EventMessageSent      EventType = "message.sent"
	EventError            EventType = "error"
	EventModeDowngraded   EventType = "mode_downgraded"
)

// Event is the payload delivered to listeners. Fields beyond Type are
// populated per event type; unused fields stay zero.
type Event struct {
	Type EventType `json:"type"`

	CallID          string `json:"call_id,omitempty"`
	MessageID       string `json:"message_id,omitempty"`
	Counterparty    string `json:"counterparty,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Simulated       bool   `json:"simulated,omitempty"`

	// Reason carries the human-readable cause for mode_downgraded and
	// error events.
	Reason string `json:"reason,omitempty"`

	At time.Time `json:"at"`
}

type Listener func(Event)

// Subscription identifies a registered listener. Go funcs are not
// comparable, so unsubscription goes through the handle returned by
// Subscribe rather than the listener value.
type Subscription struct {
	id uint64
	fn Listener
}

// Notifier delivers events synchronously, in subscription order. A
// panicking listener is contained and never blocks the remaining
// listeners or the publisher.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*Subscription
	log    *slog.Logger
}

func NewNotifier(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{log: log}
}

func (n *Notifier) Subscribe(fn Listener) *Subscription {
	if fn == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	s := &Subscription{id: n.nextID, fn: fn}
	n.subs = append(n.subs, s)
	return s
}

func (n *Notifier) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, cur := range n.subs {
		if cur.id == s.id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every listener with e in subscription order. Delivery
// is synchronous on the caller's goroutine.
func (n *Notifier) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	n.mu.Lock()
	snapshot := make([]*Subscription, len(n.subs))
	copy(snapshot, n.subs)
	n.mu.Unlock()

	for _, s := range snapshot {
		n.deliver(s, e)
	}
}

func (n *Notifier) deliver(s *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("event listener panicked", "event", string(e.Type), "panic", r)
		}
	}()
	s.fn(e)
}
