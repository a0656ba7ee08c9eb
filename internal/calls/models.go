package calls

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusInitiating Status = "initiating"
	StatusRinging    Status = "ringing"
	StatusDialing    Status = "dialing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// Record is the history entry for a single call. Once its status is
// terminal the record is immutable and lives in the ledger until
// evicted by capacity.
type Record struct {
	ID string `json:"id"`

	// ProviderSID is the provider's identifier (CAxxxx), set once the
	// dispatch is accepted.
	ProviderSID string `json:"provider_sid,omitempty"`

	Direction Direction `json:"direction"`

	// Counterparty is the remote number in E.164.
	Counterparty string `json:"counterparty"`

	Status Status `json:"status"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// DurationSeconds is meaningful only once Status is terminal.
	DurationSeconds int `json:"duration_seconds"`

	// Simulated marks records produced without contacting the live
	// provider. Downstream consumers must treat them as
	// non-authoritative.
	Simulated bool `json:"simulated"`

	ErrorMessage string `json:"error_message,omitempty"`

	RecordingURL string `json:"recording_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r Record) EntryID() string { return r.ID }
