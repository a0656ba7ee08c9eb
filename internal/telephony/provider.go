package telephony

import (
	"context"
	"fmt"
	"time"
)

// Client defines the provider-agnostic operations consumed by the call
// tracker and the message sender.
//
// Rules:
// - No provider SDK or HTTP calls outside telephony adapters.
// - Keep request/response types provider-agnostic.
// - Adapters never retry; callers decide what a failure means.
type Client interface {
	Name() string
	Simulated() bool
	HealthCheck(ctx context.Context) error

	CreateCall(ctx context.Context, p CallParams) (Dispatch, error)
	CreateMessage(ctx context.Context, p MessageParams) (Dispatch, error)
	CreateAccessToken(ctx context.Context, p TokenParams) (AccessToken, error)
}

// CallParams describes an outbound call request.
type CallParams struct {
	// To must already be E.164; adapters do not normalize.
	To   string `json:"to"`
	From string `json:"from,omitempty"`

	// TwiMLURL serves the call instructions once the callee answers.
	TwiMLURL string `json:"twiml_url,omitempty"`

	// StatusCallback receives lifecycle webhooks for this call.
	StatusCallback string `json:"status_callback,omitempty"`
}

// MessageParams describes an outbound SMS/MMS request.
type MessageParams struct {
	To        string   `json:"to"`
	From      string   `json:"from,omitempty"`
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// Dispatch is the provider's immediate answer to a call or message
// submission. Terminal outcomes arrive later via status callbacks.
type Dispatch struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// TokenParams describes an access-token request for a browser client.
type TokenParams struct {
	// Identity defaults to a random value when empty.
	Identity string
	// TTL defaults to one hour.
	TTL time.Duration
}

type AccessToken struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires"`
	Simulated bool      `json:"simulated"`
}

// ProviderError is returned for failures at the provider boundary.
// Unreachable marks transport-level failures (DNS, connect, timeout)
// that justify a capability downgrade, as opposed to request rejections.
type ProviderError struct {
	Op          string
	StatusCode  int
	Code        int
	Message     string
	Unreachable bool
	err         error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("telephony: %s failed: %s", e.Op, e.Message)
	}
	if e.err != nil {
		return fmt.Sprintf("telephony: %s failed: %v", e.Op, e.err)
	}
	return fmt.Sprintf("telephony: %s failed", e.Op)
}

func (e *ProviderError) Unwrap() error { return e.err }
