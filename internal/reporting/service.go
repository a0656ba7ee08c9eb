// Package reporting computes dashboard summaries from history
// snapshots. History is bounded, so every aggregation is a full pass
// over at most the ledger cap.
package reporting

import (
	"voicedesk/internal/calls"
	"voicedesk/internal/messages"
)

type CallsSummary struct {
	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	CancelledCalls int `json:"cancelled_calls"`
	RejectedCalls  int `json:"rejected_calls"`
	ActiveCalls    int `json:"active_calls"`

	InboundCalls  int `json:"inbound_calls"`
	OutboundCalls int `json:"outbound_calls"`

	SimulatedCalls int `json:"simulated_calls"`
	RecordedCalls  int `json:"recorded_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

type MessagesSummary struct {
	TotalMessages     int `json:"total_messages"`
	SentMessages      int `json:"sent_messages"`
	FailedMessages    int `json:"failed_messages"`
	SimulatedMessages int `json:"simulated_messages"`
}

type CallLister interface {
	List() []calls.Record
}

type MessageLister interface {
	List() []messages.Record
}

type Service struct {
	calls    CallLister
	messages MessageLister
}

func NewService(calls CallLister, messages MessageLister) *Service {
	return &Service{calls: calls, messages: messages}
}

func (s *Service) CallsSummary() CallsSummary {
	var out CallsSummary
	var completed int
	for _, c := range s.calls.List() {
		out.TotalCalls++
		if c.Simulated {
			out.SimulatedCalls++
		}
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		case calls.DirectionOutbound:
			out.OutboundCalls++
		}
		switch c.Status {
		case calls.StatusCompleted:
			out.CompletedCalls++
			completed++
			out.TotalDurationSeconds += c.DurationSeconds
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusCancelled:
			out.CancelledCalls++
		case calls.StatusRejected:
			out.RejectedCalls++
		default:
			out.ActiveCalls++
		}
	}
	if completed > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / completed
	}
	return out
}

func (s *Service) MessagesSummary() MessagesSummary {
	var out MessagesSummary
	for _, m := range s.messages.List() {
		out.TotalMessages++
		if m.Simulated {
			out.SimulatedMessages++
		}
		switch m.Status {
		case messages.StatusSent:
			out.SentMessages++
		case messages.StatusFailed:
			out.FailedMessages++
		}
	}
	return out
}
