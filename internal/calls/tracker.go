package calls

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voicedesk/internal/events"
	"voicedesk/internal/phone"
	"voicedesk/internal/telephony"

	"github.com/google/uuid"
)

var (
	// ErrCallActive: the single active-call slot is occupied.
	ErrCallActive = errors.New("calls: a call is already active")
	// ErrNoActiveCall: End was called with the slot idle.
	ErrNoActiveCall = errors.New("calls: no active call")
	// ErrInvalidState: the operation does not apply to the current
	// lifecycle state (e.g. answering a non-ringing call).
	ErrInvalidState = errors.New("calls: operation not valid in current state")
	// ErrInvalidNumber: the dialed number has no digits.
	ErrInvalidNumber = phone.ErrInvalidNumber
)

// CapabilitySource yields the provider client for the current mode and
// accepts failure reports that may downgrade it.
type CapabilitySource interface {
	Client() telephony.Client
	ReportFailure(err error)
}

// Ledger is the slice of history the tracker writes through. The
// tracker never mutates ledger entries directly.
type Ledger interface {
	Append(Record)
	Update(id string, patch func(*Record))
	List() []Record
}

// SlotGuard is an optional cross-process guard on the active-call slot.
// The in-process mutex already serializes one process; the guard covers
// multiple replicas sharing a provider number.
type SlotGuard interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// StartOptions tune an outbound call.
type StartOptions struct {
	From           string
	TwiMLURL       string
	StatusCallback string
}

// Tracker owns the single active call slot, its state transitions, and
// the elapsed-duration timer.
//
// Invariant: at most one Record is non-terminal at any time. Start
// enforces it with a check-and-set under the mutex (and the optional
// SlotGuard across processes).
type Tracker struct {
	mu     sync.Mutex
	active *Record
	timer  *tickTimer

	source   CapabilitySource
	ledger   Ledger
	notifier *events.Notifier
	guard    SlotGuard
	log      *slog.Logger

	now             func() time.Time
	dispatchTimeout time.Duration
	tickInterval    time.Duration

	// simConnectDelay is how long a simulated call "rings" before
	// auto-connecting. Zero connects on the dispatch goroutine.
	simConnectDelay time.Duration
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithDispatchTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.dispatchTimeout = d
		}
	}
}

func WithSlotGuard(g SlotGuard) Option {
	return func(t *Tracker) { t.guard = g }
}

func WithTickInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.tickInterval = d
		}
	}
}

func WithSimulatedConnectDelay(d time.Duration) Option {
	return func(t *Tracker) { t.simConnectDelay = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

func NewTracker(source CapabilitySource, ledger Ledger, notifier *events.Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		source:          source,
		ledger:          ledger,
		notifier:        notifier,
		log:             slog.Default(),
		now:             time.Now,
		dispatchTimeout: 15 * time.Second,
		tickInterval:    time.Second,
		simConnectDelay: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start initiates an outbound call and returns its record ID without
// waiting for the provider. Terminal state is reached asynchronously.
// An occupied slot rejects the call before any parameter validation.
func (t *Tracker) Start(ctx context.Context, number string, opts StartOptions) (string, error) {
	client := t.source.Client()

	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return "", ErrCallActive
	}
	normalized, err := phone.Normalize(number)
	if err != nil {
		t.mu.Unlock()
		return "", err
	}
	rec := Record{
		ID:           uuid.NewString(),
		Direction:    DirectionOutbound,
		Counterparty: normalized,
		Status:       StatusInitiating,
		Simulated:    client.Simulated(),
		CreatedAt:    t.now().UTC(),
	}
	t.active = &rec
	t.mu.Unlock()

	if !t.acquireGuard(ctx) {
		t.mu.Lock()
		t.active = nil
		t.mu.Unlock()
		return "", ErrCallActive
	}

	t.ledger.Append(rec)
	t.publish(events.Event{
		Type:         events.EventCallInitiated,
		CallID:       rec.ID,
		Counterparty: rec.Counterparty,
		Simulated:    rec.Simulated,
	})

	go t.dispatch(client, rec.ID, normalized, opts)

	return rec.ID, nil
}

func (t *Tracker) dispatch(client telephony.Client, id, to string, opts StartOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), t.dispatchTimeout)
	defer cancel()

	d, err := client.CreateCall(ctx, telephony.CallParams{
		To:             to,
		From:           opts.From,
		TwiMLURL:       opts.TwiMLURL,
		StatusCallback: opts.StatusCallback,
	})
	if err != nil {
		t.source.ReportFailure(err)
		t.fail(id, err.Error())
		return
	}

	t.mu.Lock()
	if t.active == nil || t.active.ID != id || t.active.Status != StatusInitiating {
		// Cancelled or failed while the dispatch was in flight.
		t.mu.Unlock()
		return
	}
	t.active.ProviderSID = d.SID
	t.active.Status = StatusDialing
	snapshot := *t.active
	t.mu.Unlock()

	t.ledger.Update(id, func(r *Record) {
		r.ProviderSID = snapshot.ProviderSID
		r.Status = StatusDialing
	})
	t.publish(events.Event{
		Type:         events.EventCallRinging,
		CallID:       id,
		Counterparty: snapshot.Counterparty,
		Simulated:    snapshot.Simulated,
	})

	// A simulated provider never sends status callbacks, so the
	// tracker advances the call itself.
	if client.Simulated() {
		if t.simConnectDelay > 0 {
			time.AfterFunc(t.simConnectDelay, func() { t.connect(id, nil) })
		} else {
			t.connect(id, nil)
		}
	}
}

// End terminates the active call. A connected call completes with its
// measured duration; a call still being set up is cancelled instead.
func (t *Tracker) End() (Record, error) {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return Record{}, ErrNoActiveCall
	}

	var rec Record
	if t.active.Status == StatusInProgress {
		rec = t.finalizeLocked(StatusCompleted, "")
	} else {
		rec = t.finalizeLocked(StatusCancelled, "")
	}
	t.mu.Unlock()

	evType := events.EventCallDisconnected
	if rec.Status == StatusCancelled {
		evType = events.EventCallCancelled
	}
	t.finishRecord(rec, evType)
	return rec, nil
}

// Answer accepts an inbound call that is currently ringing.
func (t *Tracker) Answer() (Record, error) {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return Record{}, ErrNoActiveCall
	}
	if t.active.Direction != DirectionInbound || t.active.Status != StatusRinging {
		t.mu.Unlock()
		return Record{}, ErrInvalidState
	}
	id := t.active.ID
	t.mu.Unlock()

	t.connect(id, nil)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil || t.active.ID != id {
		return Record{}, ErrInvalidState
	}
	return *t.active, nil
}

// Reject declines an inbound call that is currently ringing.
func (t *Tracker) Reject() (Record, error) {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return Record{}, ErrNoActiveCall
	}
	if t.active.Direction != DirectionInbound || t.active.Status != StatusRinging {
		t.mu.Unlock()
		return Record{}, ErrInvalidState
	}
	rec := t.finalizeLocked(StatusRejected, "")
	t.mu.Unlock()

	t.finishRecord(rec, events.EventCallRejected)
	return rec, nil
}

// Active returns a snapshot of the active call, if any.
func (t *Tracker) Active() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return Record{}, false
	}
	return *t.active, true
}

// HandleStatusEvent ingests a provider status callback. Events for an
// unknown or already-evicted call update history at best and are never
// an error; the webhook endpoint always acknowledges.
func (t *Tracker) HandleStatusEvent(ev telephony.StatusEvent) {
	status, ok := mapProviderStatus(ev.Status)
	if !ok {
		t.log.Debug("ignoring provider status", "status", ev.Status, "call_sid", ev.CallSID)
		return
	}

	t.mu.Lock()
	activeMatch := t.active != nil && t.active.ProviderSID == ev.CallSID
	idle := t.active == nil
	t.mu.Unlock()

	switch {
	case activeMatch:
		t.advanceActive(ev, status)
	case idle && ev.Direction == "inbound" && status == StatusRinging:
		t.acceptInbound(ev)
	default:
		// Late event for a call no longer in the slot; patch history
		// if the record has not been evicted yet.
		t.patchHistory(ev, status)
	}
}

func (t *Tracker) advanceActive(ev telephony.StatusEvent, status Status) {
	switch status {
	case StatusRinging:
		t.mu.Lock()
		if t.active == nil || t.active.Status.Terminal() || t.active.Status == StatusInProgress {
			t.mu.Unlock()
			return
		}
		t.active.Status = StatusRinging
		snapshot := *t.active
		t.mu.Unlock()

		t.ledger.Update(snapshot.ID, func(r *Record) { r.Status = StatusRinging })
		t.publish(events.Event{
			Type:         events.EventCallRinging,
			CallID:       snapshot.ID,
			Counterparty: snapshot.Counterparty,
			Simulated:    snapshot.Simulated,
		})

	case StatusInProgress:
		t.mu.Lock()
		var id string
		if t.active != nil {
			id = t.active.ID
		}
		t.mu.Unlock()
		if id != "" {
			t.connect(id, &ev)
		}

	case StatusCompleted:
		t.mu.Lock()
		if t.active == nil || t.active.ProviderSID != ev.CallSID {
			t.mu.Unlock()
			return
		}
		rec := t.finalizeLocked(StatusCompleted, "")
		if ev.DurationSeconds > 0 {
			rec.DurationSeconds = ev.DurationSeconds
		}
		if ev.RecordingURL != "" {
			rec.RecordingURL = ev.RecordingURL
		}
		t.mu.Unlock()
		t.finishRecord(rec, events.EventCallDisconnected)

	case StatusCancelled:
		t.mu.Lock()
		if t.active == nil || t.active.ProviderSID != ev.CallSID {
			t.mu.Unlock()
			return
		}
		rec := t.finalizeLocked(StatusCancelled, "")
		t.mu.Unlock()
		t.finishRecord(rec, events.EventCallCancelled)

	case StatusFailed:
		t.mu.Lock()
		if t.active == nil || t.active.ProviderSID != ev.CallSID {
			t.mu.Unlock()
			return
		}
		rec := t.finalizeLocked(StatusFailed, "provider reported "+ev.Status)
		t.mu.Unlock()
		t.finishRecord(rec, events.EventError)
	}
}

func (t *Tracker) acceptInbound(ev telephony.StatusEvent) {
	counterparty := ev.From
	if n, err := phone.Normalize(ev.From); err == nil {
		counterparty = n
	}

	rec := Record{
		ID:           uuid.NewString(),
		ProviderSID:  ev.CallSID,
		Direction:    DirectionInbound,
		Counterparty: counterparty,
		Status:       StatusRinging,
		Simulated:    t.source.Client().Simulated(),
		CreatedAt:    t.now().UTC(),
	}

	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return
	}
	t.active = &rec
	t.mu.Unlock()

	t.ledger.Append(rec)
	t.publish(events.Event{
		Type:         events.EventCallRinging,
		CallID:       rec.ID,
		Counterparty: rec.Counterparty,
		Simulated:    rec.Simulated,
	})
}

func (t *Tracker) patchHistory(ev telephony.StatusEvent, status Status) {
	if !status.Terminal() {
		return
	}
	for _, rec := range t.ledger.List() {
		if rec.ProviderSID == ev.CallSID {
			t.ledger.Update(rec.ID, func(r *Record) {
				if ev.DurationSeconds > 0 {
					r.DurationSeconds = ev.DurationSeconds
				}
				if ev.RecordingURL != "" {
					r.RecordingURL = ev.RecordingURL
				}
			})
			return
		}
	}
}

// connect moves the active call to in_progress and starts the duration
// timer. ev is non-nil when driven by a provider callback.
func (t *Tracker) connect(id string, ev *telephony.StatusEvent) {
	t.mu.Lock()
	if t.active == nil || t.active.ID != id || t.active.Status.Terminal() || t.active.Status == StatusInProgress {
		t.mu.Unlock()
		return
	}
	started := t.now().UTC()
	t.active.Status = StatusInProgress
	t.active.StartedAt = &started
	snapshot := *t.active
	t.startTimerLocked(id, started)
	t.mu.Unlock()

	t.ledger.Update(id, func(r *Record) {
		r.Status = StatusInProgress
		r.StartedAt = &started
	})
	t.publish(events.Event{
		Type:         events.EventCallConnected,
		CallID:       id,
		Counterparty: snapshot.Counterparty,
		Simulated:    snapshot.Simulated,
	})
}

func (t *Tracker) fail(id, msg string) {
	t.mu.Lock()
	if t.active == nil || t.active.ID != id {
		t.mu.Unlock()
		return
	}
	rec := t.finalizeLocked(StatusFailed, msg)
	t.mu.Unlock()

	t.finishRecord(rec, events.EventError)
}

// finalizeLocked moves the active call to a terminal status, stops the
// timer, and frees the slot. Callers hold the mutex and are responsible
// for ledger/notifier follow-up via finishRecord.
func (t *Tracker) finalizeLocked(status Status, errMsg string) Record {
	now := t.now().UTC()
	rec := t.active

	rec.Status = status
	rec.EndedAt = &now
	rec.ErrorMessage = errMsg
	if status == StatusCompleted && rec.StartedAt != nil {
		rec.DurationSeconds = int(now.Sub(*rec.StartedAt) / time.Second)
	}

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.active = nil
	return *rec
}

// finishRecord performs the unlocked tail of a terminal transition.
func (t *Tracker) finishRecord(rec Record, evType events.EventType) {
	t.ledger.Update(rec.ID, func(r *Record) { *r = rec })
	t.releaseGuard()

	ev := events.Event{
		Type:            evType,
		CallID:          rec.ID,
		Counterparty:    rec.Counterparty,
		DurationSeconds: rec.DurationSeconds,
		Simulated:       rec.Simulated,
	}
	if evType == events.EventError {
		ev.Reason = rec.ErrorMessage
	}
	t.publish(ev)
}

func (t *Tracker) startTimerLocked(id string, started time.Time) {
	timer := newTickTimer()
	t.timer = timer

	go func() {
		ticker := time.NewTicker(t.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-timer.stop:
				return
			case now := <-ticker.C:
				t.publish(events.Event{
					Type:            events.EventCallTick,
					CallID:          id,
					DurationSeconds: int(now.UTC().Sub(started) / time.Second),
				})
			}
		}
	}()
}

func (t *Tracker) acquireGuard(ctx context.Context) bool {
	if t.guard == nil {
		return true
	}
	ok, err := t.guard.Acquire(ctx)
	if err != nil {
		// Guard unavailability must not take calling down with it;
		// the in-process check still holds.
		t.log.Warn("call slot guard unavailable", "err", err)
		return true
	}
	return ok
}

func (t *Tracker) releaseGuard() {
	if t.guard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.guard.Release(ctx); err != nil {
		t.log.Warn("call slot guard release failed", "err", err)
	}
}

func (t *Tracker) publish(e events.Event) {
	if t.notifier != nil {
		t.notifier.Publish(e)
	}
}

// mapProviderStatus translates the provider vocabulary. Unrecognized
// statuses are skipped rather than guessed at.
func mapProviderStatus(s string) (Status, bool) {
	switch s {
	case "queued", "initiated":
		return StatusInitiating, true
	case "ringing":
		return StatusRinging, true
	case "in-progress", "answered":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "busy", "failed", "no-answer":
		return StatusFailed, true
	case "canceled":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// tickTimer is a cancellable handle for the duration ticker. Stop is
// idempotent.
type tickTimer struct {
	stop chan struct{}
	once sync.Once
}

func newTickTimer() *tickTimer {
	return &tickTimer{stop: make(chan struct{})}
}

func (t *tickTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}
