package messages

import (
	"context"
	"log/slog"
	"time"

	"voicedesk/internal/events"
	"voicedesk/internal/phone"
	"voicedesk/internal/telephony"

	"github.com/google/uuid"
)

var ErrInvalidNumber = phone.ErrInvalidNumber

// CapabilitySource mirrors calls.CapabilitySource; declared here so
// the package depends only on what it uses.
type CapabilitySource interface {
	Client() telephony.Client
	ReportFailure(err error)
}

type Ledger interface {
	Append(Record)
	Update(id string, patch func(*Record))
	List() []Record
}

type SendOptions struct {
	From      string
	MediaURLs []string
}

// Service sends outbound messages and records them in history. Sends
// are fire-and-forget: the record is finalized (sent or failed) before
// Send returns, but a failure is reported through the record and the
// error event, not as a Send error.
type Service struct {
	source   CapabilitySource
	ledger   Ledger
	notifier *events.Notifier
	log      *slog.Logger

	now     func() time.Time
	timeout time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(source CapabilitySource, ledger Ledger, notifier *events.Notifier, opts ...Option) *Service {
	s := &Service{
		source:   source,
		ledger:   ledger,
		notifier: notifier,
		log:      slog.Default(),
		now:      time.Now,
		timeout:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send validates, dispatches, and finalizes one message. Validation
// errors return synchronously; dispatch failures finalize the record
// as failed and emit an error event.
func (s *Service) Send(ctx context.Context, to, body string, opts SendOptions) (Record, error) {
	normalized, err := phone.Normalize(to)
	if err != nil {
		return Record{}, err
	}

	client := s.source.Client()
	rec := Record{
		ID:           uuid.NewString(),
		Counterparty: normalized,
		Body:         body,
		Status:       StatusSending,
		Simulated:    client.Simulated(),
		CreatedAt:    s.now().UTC(),
	}
	s.ledger.Append(rec)

	dispatchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d, err := client.CreateMessage(dispatchCtx, telephony.MessageParams{
		To:        normalized,
		From:      opts.From,
		Body:      body,
		MediaURLs: opts.MediaURLs,
	})
	if err != nil {
		s.source.ReportFailure(err)
		rec.Status = StatusFailed
		rec.ErrorMessage = err.Error()
		s.ledger.Update(rec.ID, func(r *Record) { *r = rec })
		s.publish(events.Event{
			Type:         events.EventError,
			MessageID:    rec.ID,
			Counterparty: rec.Counterparty,
			Simulated:    rec.Simulated,
			Reason:       rec.ErrorMessage,
		})
		s.log.Warn("message send failed", "message_id", rec.ID, "err", err)
		return rec, nil
	}

	sentAt := s.now().UTC()
	rec.ProviderSID = d.SID
	rec.Status = StatusSent
	rec.SentAt = &sentAt
	s.ledger.Update(rec.ID, func(r *Record) { *r = rec })
	s.publish(events.Event{
		Type:         events.EventMessageSent,
		MessageID:    rec.ID,
		Counterparty: rec.Counterparty,
		Simulated:    rec.Simulated,
	})
	return rec, nil
}

func (s *Service) publish(e events.Event) {
	if s.notifier != nil {
		s.notifier.Publish(e)
	}
}
