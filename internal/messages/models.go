package messages

import "time"

type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Record is the history entry for one outbound message. Sends are
// independent of each other and of the call slot; any number may be in
// flight at once.
type Record struct {
	ID           string `json:"id"`
	ProviderSID  string `json:"provider_sid,omitempty"`
	Counterparty string `json:"counterparty"`
	Body         string `json:"body"`

	Status Status `json:"status"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	Simulated bool       `json:"simulated"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (r Record) EntryID() string { return r.ID }
