package telephony

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// SimulatedClient fabricates provider responses locally. It exists so
// the service stays usable without credentials; every result it
// produces is tagged simulated so consumers never mistake it for a
// live outcome.
type SimulatedClient struct {
	accountSID string
	fromNumber string
	secret     string
}

func NewSimulatedClient(fromNumber string) *SimulatedClient {
	return &SimulatedClient{
		accountSID: "AC" + randomHex(16),
		fromNumber: fromNumber,
		// Ephemeral per-process secret; simulated tokens are not
		// expected to verify anywhere.
		secret: randomHex(16),
	}
}

func (c *SimulatedClient) Name() string    { return "simulated" }
func (c *SimulatedClient) Simulated() bool { return true }

func (c *SimulatedClient) HealthCheck(context.Context) error { return nil }

func (c *SimulatedClient) CreateCall(_ context.Context, _ CallParams) (Dispatch, error) {
	return Dispatch{SID: NewSID("CA"), Status: "queued"}, nil
}

func (c *SimulatedClient) CreateMessage(_ context.Context, _ MessageParams) (Dispatch, error) {
	return Dispatch{SID: NewSID("SM"), Status: "queued"}, nil
}

func (c *SimulatedClient) CreateAccessToken(_ context.Context, p TokenParams) (AccessToken, error) {
	return mintAccessToken(tokenSigner{
		KeySID:     "SK" + randomHex(16),
		Secret:     c.secret,
		AccountSID: c.accountSID,
		Simulated:  true,
	}, p)
}

// NewSID generates a provider-shaped identifier: a two-letter resource
// prefix followed by 32 hex characters.
func NewSID(prefix string) string {
	return prefix + randomHex(16)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
